package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vibesphere/internal/devserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	seed := flag.String("seed", "alice,bob", "comma-separated usernames to create at startup")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv := devserver.New(logger)
	for _, name := range strings.Split(*seed, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		user := srv.AddUser(name)
		// The dev server's session cookie is the raw user id.
		log.Printf("seeded user %s token=%s", user.Username, user.ID)
	}

	httpSrv := &http.Server{Addr: *addr, Handler: srv}
	go func() {
		log.Printf("Starting dev server on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down dev server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down: %v", err)
	}
	log.Println("Server gracefully stopped")
}
