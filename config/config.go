package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// APIBaseURL is the root of the REST API, e.g. https://vibe-spheres-chi.vercel.app/api
	APIBaseURL string
	// SocketURL is the push channel endpoint, e.g. wss://vibe-spheres-chi.vercel.app/socket
	SocketURL string
	// NatsURL selects the NATS push adapter when set; SocketURL is used otherwise.
	NatsURL string
	// DataDir holds the local identity database.
	DataDir        string
	RequestTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIBaseURL:     os.Getenv("VIBESPHERE_API_URL"),
		SocketURL:      os.Getenv("VIBESPHERE_SOCKET_URL"),
		NatsURL:        os.Getenv("VIBESPHERE_NATS_URL"),
		DataDir:        os.Getenv("VIBESPHERE_DATA_DIR"),
		RequestTimeout: 15 * time.Second,
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080/api"
	}
	if cfg.SocketURL == "" {
		cfg.SocketURL = "ws://localhost:8080/socket"
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = filepath.Join(home, ".vibesphere")
	}

	return cfg, nil
}
