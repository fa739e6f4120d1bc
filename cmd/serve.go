package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linchen0/tutorvault/api"
	"github.com/linchen0/tutorvault/internal/assess"
	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/vault"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	paths, err := vault.NewPaths(cfg.VaultRoot)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	store := vault.NewStore(paths, logger.With("component", "vault"))

	// The index service is optional. Without it the server still runs the
	// full vault surface; index routes answer 503.
	var (
		gateway *index.Gateway
		worker  *index.Worker
	)
	if cfg.IndexURL != "" {
		client, err := index.NewClient(cfg.IndexURL, cfg.IndexAPIKey, cfg.IndexTimeout)
		if err != nil {
			return fmt.Errorf("creating index client: %w", err)
		}
		gateway = index.NewGateway(client, logger.With("component", "index"))
		worker = index.NewWorker(gateway, logger.With("component", "index-worker"))
		worker.Start(ctx)
		defer worker.Close()
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	server := api.NewServer(store, gateway, worker, assess.NewMemoryStore(),
		logger.With("component", "api"), api.Options{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		})
	return server.Run(ctx, addr)
}
