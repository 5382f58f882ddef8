// File: cmd/hioload-wsloop/main.go
// Package main
// Single-threaded epoll WebSocket server answering every Text frame with a
// fixed greeting.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-wsloop/server"
)

func main() {
	addr := flag.String("addr", "", "WebSocket listen address (overrides config)")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := server.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger := log.New(os.Stdout, "[wsloop] ", log.LstdFlags)
	srv, err := server.NewServer(cfg, server.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Printf("server stopped: %v", err)
	}
	logger.Printf("final metrics: %v", srv.Metrics().GetSnapshot())
}
