// Package cmd provides the tutorvault CLI commands.
//
// Commands:
//   - serve: HTTP API server over the vault and retrieval index
//   - init: pre-create the category folder structure for an owner
//   - weakest: list the lowest-accuracy documents for review planning
//   - stats: per (owner, subject) vault statistics
//   - version: build information
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linchen0/tutorvault/internal/config"
	"github.com/linchen0/tutorvault/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "tutorvault",
	Short: "Validated-document vault with retrieval-index sync",
	Long: `tutorvault stores validated study documents as markdown with structured
frontmatter, tracks per-document grading accuracy, and keeps an external
retrieval index in sync as a best-effort derived view.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates configuration, and builds the logger
// from it. Shared by every command that touches the vault.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	return cfg, logger, nil
}
