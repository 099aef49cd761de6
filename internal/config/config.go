package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds server configuration values.
type Config struct {
	ListenAddress     string        `mapstructure:"listen_address" yaml:"listen_address"`
	ListenPort        int           `mapstructure:"listen_port" yaml:"listen_port"`
	IndexerURL        string        `mapstructure:"indexer_url" yaml:"indexer_url"`
	AliveInterval     time.Duration `mapstructure:"alive_interval" yaml:"alive_interval"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration matching the public testnet deployment.
func Default() Config {
	return Config{
		ListenAddress:     "0.0.0.0",
		ListenPort:        8888,
		IndexerURL:        "https://indexer-testnet.staging.gcp.aptosdev.com/v1/graphql",
		AliveInterval:     5 * time.Second,
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// ListenAddr combines the listen address and port.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.ListenPort))
}
