package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelsmith/tailor-cli/internal/config"
	"github.com/spf13/cobra"
)

// sampleCard seeds an empty catalog so retrieval has something to rank
// and new users see the card format.
const sampleCard = `---
name: flan-t5-base
description: Instruction-tuned encoder-decoder model for summarization, question answering, and other text-to-text tasks.
family: t5
parameters: 250M
tags: summarization, question-answering, text2text
---

Flan-T5 base checkpoint. A reasonable default for text-to-text
fine-tuning experiments on a single GPU.
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the tailor home directory",
	Long: `Initialize ~/.tailor/ with a default config, an embeddings env
template, and a model catalog seeded with one sample card.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// ── 1. Resolve ~/.tailor directory ────────────────────────────────────────
	tailorDir, err := config.TailorDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	// ── 2. Create ~/.tailor/ if it doesn't exist ──────────────────────────────
	if err := os.MkdirAll(tailorDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", tailorDir, err)
	}
	printOK("", fmt.Sprintf("tailor directory ready: %s", tailorDir))

	// ── 3. Write tailor.yaml if missing ───────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 4. Write the embeddings env template if missing ───────────────────────
	envPath, err := config.DotEnvPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := config.EnsureDotEnvTemplate(); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Embeddings env template written: %s", envPath))
	} else {
		printSkip("", fmt.Sprintf("Embeddings env file already exists: %s", envPath))
	}

	// ── 5. Load final config ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ── 6. Create the catalog and index directories ───────────────────────────
	if err := os.MkdirAll(cfg.CatalogDir, 0o755); err != nil {
		return fmt.Errorf("cannot create catalog dir: %w", err)
	}
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir: %w", err)
	}

	// ── 7. Seed a sample model card when the catalog is empty ─────────────────
	if catalogHasCards(cfg.CatalogDir) {
		printSkip("", fmt.Sprintf("Catalog already has cards: %s", cfg.CatalogDir))
	} else {
		cardPath := filepath.Join(cfg.CatalogDir, "flan-t5-base.md")
		if err := os.WriteFile(cardPath, []byte(sampleCard), 0o644); err != nil {
			return fmt.Errorf("cannot write sample card: %w", err)
		}
		printOK("", fmt.Sprintf("Sample model card written: %s", cardPath))
	}

	fmt.Println("\n✓  tailor init complete. Fill in ~/.tailor/.env, then run 'tailor index' to build the description index.")
	return nil
}

// catalogHasCards reports whether dir contains at least one .md card.
func catalogHasCards(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			return true
		}
	}
	return false
}
