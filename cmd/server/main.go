package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aptos-labs/hong-bao/internal/app"
	"github.com/aptos-labs/hong-bao/internal/config"
	"github.com/aptos-labs/hong-bao/internal/log"
)

func main() {
	var (
		configPath    string
		listenAddress string
		listenPort    int
		indexerURL    string
		logLevel      string
	)

	root := &cobra.Command{
		Use:   "hong-bao-backend",
		Short: "Token-gated chat room server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrapLogger := log.New(logLevel)

			cfg, path, err := config.Load(bootstrapLogger, configPath)
			if err != nil {
				return err
			}

			// Flags the operator actually set win over the config file.
			if cmd.Flags().Changed("listen-address") {
				cfg.ListenAddress = listenAddress
			}
			if cmd.Flags().Changed("listen-port") {
				cfg.ListenPort = listenPort
			}
			if cmd.Flags().Changed("indexer-url") {
				cfg.IndexerURL = indexerURL
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.New(cfg, logger).Run(ctx)
		},
	}

	defaults := config.Default()
	root.Flags().StringVar(&configPath, "config", "", "path to config file")
	root.Flags().StringVar(&listenAddress, "listen-address", defaults.ListenAddress, "address to listen on")
	root.Flags().IntVar(&listenPort, "listen-port", defaults.ListenPort, "port to listen on")
	root.Flags().StringVar(&indexerURL, "indexer-url", defaults.IndexerURL, "chain indexer GraphQL endpoint")
	root.Flags().StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
