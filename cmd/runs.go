package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/modelsmith/tailor-cli/internal/runs"
	"github.com/spf13/cobra"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent training runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "Maximum number of runs to show (0 = all)")
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := runs.Open(cfg.RunsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(flagRunsLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printSkip("", "no training runs recorded yet")
		return nil
	}

	fmt.Printf("\nTraining runs (%d):\n\n", len(list))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tMODEL\tSTATUS\tEXAMPLES\tLOSS\tCREATED")
	for _, r := range list {
		loss := "-"
		if r.Status == runs.StatusCompleted {
			loss = fmt.Sprintf("%.4f", r.FinalLoss)
		}
		detail := ""
		if r.Status == runs.StatusFailed && r.Error != "" {
			detail = "  ✗ " + truncate(r.Error, 48)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%d/%d\t%s\t%s%s\n",
			r.ID, r.BaseModel, r.Status, r.TrainExamples, r.ValExamples,
			loss, r.CreatedAt.Format("2006-01-02 15:04"), detail)
	}
	return w.Flush()
}
