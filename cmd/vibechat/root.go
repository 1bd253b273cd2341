package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vibesphere/infrastructure"
	"vibesphere/internal/identity"
	"vibesphere/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:          "vibechat",
	Short:        "Terminal client for VibeSphere direct messaging",
	SilenceUsage: true,
}

// loadIdentity resolves the stored identity, rejects an expired token,
// and arms the transport client with the session cookie.
func loadIdentity(app *App) (transport.User, error) {
	user, token, err := app.Store.Load()
	if err != nil {
		if errors.Is(err, infrastructure.ErrNoIdentity) {
			return transport.User{}, fmt.Errorf("no stored identity; run `vibechat login` first")
		}
		return transport.User{}, err
	}

	if claims, parseErr := identity.ParseClaims(token); parseErr == nil && claims.Expired(time.Now()) {
		return transport.User{}, fmt.Errorf("%w; run `vibechat login` again", infrastructure.ErrTokenExpired)
	}

	app.API.SetToken(token)
	return user, nil
}
