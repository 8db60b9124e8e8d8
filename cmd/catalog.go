package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/spf13/cobra"
)

var flagCatalogLimit int

var catalogCmd = &cobra.Command{
	Use:   "catalog [query]",
	Short: "List model cards, optionally filtered by keyword",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().IntVar(&flagCatalogLimit, "limit", 0, "Maximum number of cards to show (0 = all)")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return err
	}

	records := cat.Records
	query := strings.Join(args, " ")
	if query != "" {
		records = catalog.Filter(records, query, flagCatalogLimit)
	} else if flagCatalogLimit > 0 && len(records) > flagCatalogLimit {
		records = records[:flagCatalogLimit]
	}

	if len(records) == 0 {
		if query != "" {
			printWarn("", fmt.Sprintf("no cards match %q", query))
		} else {
			printWarn("", fmt.Sprintf("catalog is empty; add model cards to %s", cfg.CatalogDir))
		}
		return nil
	}

	fmt.Printf("\nModel catalog (%d):\n\n", len(records))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tFAMILY\tPARAMETERS\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			r.Name, orDash(r.Family), orDash(r.Parameters), truncate(r.Description, 72))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
