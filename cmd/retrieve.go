package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/modelsmith/tailor-cli/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	flagRetrieveK        int
	flagRetrieveMinScore float64
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <task description>",
	Short: "Find the catalog model that best fits a task description",
	Long: `Encode the task description and rank every catalog model against it
by cosine similarity. When no model clears the similarity floor the
result is "no match" — tailor never invents a recommendation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVar(&flagRetrieveK, "k", 0, "Number of candidates to show (default from config)")
	retrieveCmd.Flags().Float64Var(&flagRetrieveMinScore, "min-score", 0, "Similarity the best match must reach (default from config; 0 disables the floor)")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	opts := retrieval.Options{}
	if cmd.Flags().Changed("k") {
		opts.SearchDepth = flagRetrieveK
	}
	// An explicit --min-score always wins over the config default; an
	// explicit zero disables the floor.
	if cmd.Flags().Changed("min-score") {
		opts.MinSimilarity = flagRetrieveMinScore
		if flagRetrieveMinScore == 0 {
			opts.MinSimilarity = -1
		}
	}

	retriever, cat, err := newRetriever(cfg, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := retriever.Retrieve(ctx, query)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyIndex) {
			return fmt.Errorf("nothing to search: %w\nAdd model cards to %s and run 'tailor index'.", err, cfg.CatalogDir)
		}
		return err
	}

	fmt.Printf("\ntailor retrieve %q\n", query)
	if result.Matched {
		fmt.Println()
		printOK("", fmt.Sprintf("best match: %s  [%.3f]", result.Best.Name, result.Best.Score))
	} else {
		fmt.Println()
		printWarn("", fmt.Sprintf("no model in the catalog fits this task (best score %.3f)", result.Best.Score))
	}

	fmt.Printf("\nCandidates (%d):\n", len(result.Candidates))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, c := range result.Candidates {
		fmt.Fprintf(w, "  %d.\t[%.3f]\t%s\n", i+1, c.Score, c.Name)
		if c.CatalogPos >= 0 && c.CatalogPos < cat.Len() {
			fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(cat.Records[c.CatalogPos].Description))
		}
	}
	return w.Flush()
}
