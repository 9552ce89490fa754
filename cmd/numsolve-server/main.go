// Command numsolve-server exposes the numsolve tools over HTTP for agent
// frameworks and thin web front ends.
//
// Usage:
//
//	numsolve-server --config numsolve.yaml --addr :8080
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
//
// Responses are JSON, or CBOR when the request accepts application/cbor.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kong"

	"github.com/njchilds90/numsolve"
	"github.com/njchilds90/numsolve/logger"
)

var CLI struct {
	Config   string `help:"Configuration file path (.yaml or .toml)" default:"numsolve.yaml"`
	Addr     string `help:"Listen address (overrides config)"`
	LogLevel string `help:"Log level (overrides config)" name:"log-level"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("numsolve-server"),
		kong.Description("HTTP tool server for the numsolve solvers."),
	)
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := numsolve.LoadConfig(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if CLI.Addr != "" {
		cfg.Server.Addr = CLI.Addr
	}
	levelName := cfg.Log.Level
	if CLI.LogLevel != "" {
		levelName = CLI.LogLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	log := logger.Logger()

	readHeader, read, write, idle := cfg.Server.Durations()
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newHandler(cfg, log),
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("numsolve server listening")
	log.Info().Msg("  POST /tool   execute a tool call")
	log.Info().Msg("  GET  /schema tool schema for agent registration")
	log.Info().Msg("  GET  /health health check")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
