package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vibesphere/infrastructure"
	"vibesphere/internal/identity"
	"vibesphere/internal/transport"
)

var (
	loginToken    string
	loginUserID   string
	loginUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session token for later commands",
	Long: `Stores the session token issued by the auth service. User id and
name are read from the token's claims; pass --user-id/--username when the
token is opaque (the dev server issues plain ids).`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "session token")
	loginCmd.Flags().StringVar(&loginUserID, "user-id", "", "user id override")
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "username override")
	_ = loginCmd.MarkFlagRequired("token")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	app, err := InitializeApp()
	if err != nil {
		return err
	}

	user := transport.User{ID: loginUserID, Username: loginUsername}
	if claims, parseErr := identity.ParseClaims(loginToken); parseErr == nil {
		if claims.Expired(time.Now()) {
			return infrastructure.ErrTokenExpired
		}
		if user.ID == "" {
			user.ID = claims.UserID
		}
		if user.Username == "" {
			user.Username = claims.Username
		}
	}
	if user.ID == "" {
		return fmt.Errorf("token carries no user id; pass --user-id")
	}

	if err := app.Store.Save(user, loginToken); err != nil {
		return err
	}
	cmd.Printf("logged in as %s (%s)\n", user.Username, user.ID)
	return nil
}
