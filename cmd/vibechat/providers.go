package main

import (
	"os"

	"go.uber.org/zap"

	"vibesphere/config"
	"vibesphere/internal/identity"
	"vibesphere/internal/push"
	"vibesphere/internal/transport"
)

func provideLogger() (*zap.Logger, error) {
	if os.Getenv("VIBESPHERE_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

func provideTransport(cfg *config.Config) *transport.Client {
	return transport.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
}

func provideChannel(cfg *config.Config, log *zap.Logger) push.Channel {
	if cfg.NatsURL != "" {
		return push.NewNATSChannel(cfg.NatsURL, log)
	}
	return push.NewWSChannel(cfg.SocketURL, log)
}

func provideStore(cfg *config.Config) (*identity.Store, error) {
	return identity.NewStore(cfg.DataDir)
}
