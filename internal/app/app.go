package app

import (
	"context"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/auth"
	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/chat"
	"github.com/aptos-labs/hong-bao/internal/config"
	transporthttp "github.com/aptos-labs/hong-bao/internal/transport/http"
)

// App wires together the access gate, room registry, and transport layers.
type App struct {
	cfg  config.Config
	gate *auth.Gate
	log  *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	indexer := chain.NewIndexerClient(cfg.IndexerURL)

	return &App{
		cfg:  cfg,
		gate: auth.NewGate(indexer, logger),
		log:  logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// error. ctx also bounds the lifetime of every room run loop.
func (a *App) Run(ctx context.Context) error {
	registry := chat.NewRegistry(ctx, chat.Options{
		AliveInterval: a.cfg.AliveInterval,
	}, a.log)

	server := transporthttp.NewServer(registry, a.gate, a.cfg, a.log)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.cfg.ListenAddr()).Msg("server running")

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
