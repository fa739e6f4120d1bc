package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linchen0/tutorvault/internal/vault"
)

var (
	statsOwner   string
	statsSubject string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per (owner, subject) vault statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStats(cmd)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsOwner, "owner", "", "owner name (required)")
	statsCmd.Flags().StringVar(&statsSubject, "subject", "", "subject (required)")
	_ = statsCmd.MarkFlagRequired("owner")
	_ = statsCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := vault.NewPaths(cfg.VaultRoot)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	store := vault.NewStore(paths, logger)

	stats, err := store.Statistics(cmd.Context(), statsOwner, statsSubject)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s / %s\n\n", statsOwner, statsSubject)
	fmt.Fprintf(out, "Validated problems: %d\n", stats.ValidatedProblems)
	fmt.Fprintf(out, "Review problems:    %d\n", stats.ReviewProblems)
	fmt.Fprintf(out, "Knowledge cards:    %d\n", stats.KnowledgeCards)
	fmt.Fprintf(out, "Lessons:            %d\n", stats.Lessons)
	fmt.Fprintf(out, "Average accuracy:   %.0f%%\n", stats.AverageAccuracy*100)
	if len(stats.DifficultyDistribution) > 0 {
		fmt.Fprintln(out, "\nDifficulty distribution:")
		for level := vault.MinDifficulty; level <= vault.MaxDifficulty; level++ {
			if count := stats.DifficultyDistribution[level]; count > 0 {
				fmt.Fprintf(out, "  %d: %d\n", level, count)
			}
		}
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(out, "\nSkipped unreadable files: %d\n", stats.Skipped)
	}
	return nil
}
