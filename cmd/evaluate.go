package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelsmith/tailor-cli/internal/trainer"
	"github.com/spf13/cobra"
)

var (
	flagEvalPredictions string
	flagEvalReferences  string
	flagEvalSemantic    bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score predictions against references",
	Long: `Compare a predictions file against a references file, one example
per line, and report exact match and character n-gram F-score. With
--semantic, also report the mean embedding cosine similarity (requires
the embeddings provider to be configured).`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&flagEvalPredictions, "predictions", "", "Predictions file, one per line (required)")
	evaluateCmd.Flags().StringVar(&flagEvalReferences, "references", "", "References file, one per line (required)")
	evaluateCmd.Flags().BoolVar(&flagEvalSemantic, "semantic", false, "Also score embedding similarity")
	_ = evaluateCmd.MarkFlagRequired("predictions")
	_ = evaluateCmd.MarkFlagRequired("references")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	predictions, err := readLines(flagEvalPredictions)
	if err != nil {
		return err
	}
	references, err := readLines(flagEvalReferences)
	if err != nil {
		return err
	}

	metrics := []trainer.Metric{trainer.ExactMatch{}, trainer.ChrF{}}
	if flagEvalSemantic {
		prov, err := newProvider()
		if err != nil {
			return err
		}
		metrics = append(metrics, trainer.EmbeddingSimilarity{Provider: prov})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	scores, err := trainer.Evaluate(ctx, metrics, predictions, references)
	if err != nil {
		return err
	}

	fmt.Printf("\nEvaluated %d example(s):\n\n", len(predictions))
	printMetrics(scores)
	return nil
}

// readLines loads a file as one example per line, dropping the trailing
// newline but keeping interior blank lines so positions stay aligned
// between the two files.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	text = strings.TrimSuffix(text, "\r")
	if text == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines, nil
}
