package cmd

import (
	"fmt"
	"os"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/config"
	"github.com/modelsmith/tailor-cli/internal/embeddings"
	"github.com/modelsmith/tailor-cli/internal/retrieval"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "tailor",
	Short:        "Tailor CLI — find and fine-tune the right model for a task",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `Tailor matches plain-language task descriptions against a local catalog
of model cards using embedding similarity, and drives fine-tuning of the
chosen model through an external training runner. State lives under
~/.tailor/.`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads ~/.tailor/tailor.yaml with a setup hint on failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w\nRun 'tailor init' first.", err)
	}
	return cfg, nil
}

// newProvider builds the embeddings provider from TAILOR_EMBEDDINGS_*
// configuration (process env first, then ~/.tailor/.env).
func newProvider() (embeddings.Provider, error) {
	embCfg, err := embeddings.LoadConfig()
	if err != nil {
		return nil, err
	}
	return embeddings.NewFromConfig(embCfg)
}

// newRetriever loads the catalog and wires it to a retriever using the
// configured index directory and search defaults.
func newRetriever(cfg *config.Config, opts retrieval.Options) (*retrieval.Retriever, *catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, nil, err
	}
	prov, err := newProvider()
	if err != nil {
		return nil, nil, err
	}
	if opts.IndexDir == "" {
		opts.IndexDir = cfg.IndexDir
	}
	if opts.SearchDepth == 0 {
		opts.SearchDepth = cfg.Search.Depth
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = cfg.Search.MinSimilarity
	}
	r, err := retrieval.New(cat, prov, opts)
	if err != nil {
		return nil, nil, err
	}
	return r, cat, nil
}
