package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linchen0/tutorvault/internal/vault"
)

var (
	initOwner    string
	initSubjects []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Pre-create the category folder structure for an owner",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runInit()
	},
}

func init() {
	initCmd.Flags().StringVar(&initOwner, "owner", "", "owner name (required)")
	initCmd.Flags().StringSliceVar(&initSubjects, "subjects", nil, "subjects to create (required)")
	_ = initCmd.MarkFlagRequired("owner")
	_ = initCmd.MarkFlagRequired("subjects")
	rootCmd.AddCommand(initCmd)
}

func runInit() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := vault.NewPaths(cfg.VaultRoot)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	if err := paths.EnsureStructure(initOwner, initSubjects); err != nil {
		return fmt.Errorf("creating structure: %w", err)
	}

	fmt.Printf("Created %d subject(s) for %s under %s\n", len(initSubjects), initOwner, paths.Root())
	return nil
}
