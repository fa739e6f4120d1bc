package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/linchen0/tutorvault/internal/vault"
)

var (
	weakestOwner       string
	weakestSubject     string
	weakestCategory    string
	weakestMinDiff     int
	weakestMaxAccuracy float64
	weakestLimit       int
)

var weakestCmd = &cobra.Command{
	Use:   "weakest",
	Short: "List the lowest-accuracy documents",
	Long: `List documents sorted ascending by running accuracy. Confirmed-weak
material comes first; never-attempted documents sort last.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWeakest(cmd)
	},
}

func init() {
	weakestCmd.Flags().StringVar(&weakestOwner, "owner", "", "owner name (required)")
	weakestCmd.Flags().StringVar(&weakestSubject, "subject", "", "subject (required)")
	weakestCmd.Flags().StringVar(&weakestCategory, "category", string(vault.CategoryReview), "category to scan")
	weakestCmd.Flags().IntVar(&weakestMinDiff, "min-difficulty", 0, "exclude documents easier than this")
	weakestCmd.Flags().Float64Var(&weakestMaxAccuracy, "max-accuracy", -1, "exclude documents above this accuracy")
	weakestCmd.Flags().IntVar(&weakestLimit, "limit", 10, "maximum documents to list")
	_ = weakestCmd.MarkFlagRequired("owner")
	_ = weakestCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(weakestCmd)
}

func runWeakest(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := vault.NewPaths(cfg.VaultRoot)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	store := vault.NewStore(paths, logger)

	category, err := vault.ParseCategory(weakestCategory)
	if err != nil {
		return err
	}

	query := vault.WeakestQuery{MinDifficulty: weakestMinDiff, Limit: weakestLimit}
	if weakestMaxAccuracy >= 0 {
		query.MaxAccuracy = &weakestMaxAccuracy
	}

	docs, err := store.FindLowestAccuracy(cmd.Context(), weakestOwner, weakestSubject, category, query)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tACCURACY\tATTEMPTS\tDIFFICULTY")
	for _, doc := range docs {
		acc := "never"
		if doc.Metadata.Accuracy != nil {
			acc = fmt.Sprintf("%.0f%%", *doc.Metadata.Accuracy*100)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
			doc.Ref.Slug(), acc, doc.Metadata.Attempts, doc.Metadata.Difficulty)
	}
	return w.Flush()
}
