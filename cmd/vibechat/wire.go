//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"vibesphere/config"
)

func InitializeApp() (*App, error) {
	wire.Build(
		config.LoadConfig,
		provideLogger,
		provideTransport,
		provideChannel,
		provideStore,
		newApp,
	)
	return nil, nil
}
