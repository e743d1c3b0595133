// Package main provides the entry point for the chat tutor server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/config"
	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/internal/server"
	"github.com/chat-tutor/chattutor/internal/storage"
)

var (
	port      = flag.Int("port", 0, "Server port (overrides configuration)")
	directory = flag.String("directory", "", "Project directory to read configuration from")
	pretty    = flag.Bool("pretty", false, "Human-readable log output")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("chattutor-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to get working directory")
		}
	}

	// A local .env supplements the environment; absence is not an error.
	_ = godotenv.Load()

	appConfig, err := config.Load(workDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(appConfig.LogLevel),
		Pretty: *pretty,
	})

	if err := os.MkdirAll(appConfig.DataDir, 0755); err != nil {
		logging.Fatal().Err(err).Msg("failed to create data directory")
	}
	store := storage.New(appConfig.DataDir)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = appConfig.Port
	if *port != 0 {
		serverConfig.Port = *port
	}

	srv := server.New(serverConfig, appConfig, store, agent.NewGateway())

	go func() {
		logging.Info().
			Str("version", Version).
			Int("port", serverConfig.Port).
			Str("dataDir", appConfig.DataDir).
			Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}

	logging.Info().Msg("server stopped")
}
