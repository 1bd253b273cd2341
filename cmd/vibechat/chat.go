package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vibesphere/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat <userId>",
	Short: "Open a conversation and exchange messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := InitializeApp()
	if err != nil {
		return err
	}
	user, err := loadIdentity(app)
	if err != nil {
		return err
	}

	// Every applied store update prints whatever the timeline gained,
	// whether it came from a local send or the push channel.
	var mu sync.Mutex
	printed := 0
	var sess *session.Session
	printNew := func() {
		mu.Lock()
		defer mu.Unlock()
		snap := sess.Snapshot()
		for ; printed < len(snap.Messages); printed++ {
			m := snap.Messages[printed]
			name := m.Sender.Username
			if m.Sender.ID == user.ID {
				name = "you"
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), name, m.Text)
		}
	}
	sess = session.New(app.API, app.Channel,
		session.WithLogger(app.Log),
		session.WithNotify(printNew),
	)

	ctx := cmd.Context()
	if err := sess.Login(ctx, user); err != nil {
		return err
	}
	defer sess.Logout()

	if err := sess.SelectConversation(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to open conversation: %w", err)
	}
	fmt.Println("-- connected; type a message, ctrl-d to quit --")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, err := sess.SendMessage(ctx, text); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		}
	}
	return scanner.Err()
}
