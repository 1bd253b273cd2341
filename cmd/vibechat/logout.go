package main

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := InitializeApp()
		if err != nil {
			return err
		}
		if err := app.Store.Clear(); err != nil {
			return err
		}
		cmd.Println("logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
