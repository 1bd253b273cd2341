package main

import (
	"go.uber.org/zap"

	"vibesphere/config"
	"vibesphere/internal/identity"
	"vibesphere/internal/push"
	"vibesphere/internal/transport"
)

// App bundles the long-lived collaborators every command needs. Sessions
// are created per command on top of it.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	API     *transport.Client
	Channel push.Channel
	Store   *identity.Store
}

func newApp(cfg *config.Config, log *zap.Logger, api *transport.Client, channel push.Channel, store *identity.Store) *App {
	return &App{
		Config:  cfg,
		Log:     log,
		API:     api,
		Channel: channel,
		Store:   store,
	}
}
