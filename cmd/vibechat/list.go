package main

import (
	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := InitializeApp()
		if err != nil {
			return err
		}
		user, err := loadIdentity(app)
		if err != nil {
			return err
		}

		chats, err := app.API.ListConversations(cmd.Context())
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			cmd.Println("no conversations yet")
			return nil
		}
		for _, chat := range chats {
			other, _ := chat.OtherMember(user.ID)
			preview := "(no messages)"
			if chat.LastMessage != nil {
				preview = chat.LastMessage.Text
			}
			cmd.Printf("%s\t%s\t%s\n", other.ID, other.Username, preview)
		}
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users you can message",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := InitializeApp()
		if err != nil {
			return err
		}
		me, err := loadIdentity(app)
		if err != nil {
			return err
		}

		users, err := app.API.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.ID == me.ID {
				continue
			}
			cmd.Printf("%s\t%s\n", u.ID, u.Username)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(usersCmd)
}
