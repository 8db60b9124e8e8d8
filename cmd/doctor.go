package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/config"
	"github.com/modelsmith/tailor-cli/internal/embeddings"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
	"github.com/modelsmith/tailor-cli/internal/runs"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that tailor's data directory, configuration, catalog, and index
are in working order. Run this command when something seems wrong, or
before filing a bug report.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the tailor environment.

Currently fixes:
  - Leftover build directories: deletes index-* directories left under
    ~/.tailor/tmp by interrupted index builds

Run 'tailor doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	// A running build owns exactly one index-* directory; take the build
	// lock so we never delete it out from under the builder.
	_, release, err := acquireIndexLock(2 * time.Second)
	if err != nil {
		return err
	}
	defer release()

	printSection("tailor doctor fix")

	// ── Fix: delete leftover build directories ────────────────────────────────
	fmt.Println("\n[ Leftover build directories ]")
	stale, err := staleBuildDirs()
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		printOK("", "no leftover build directories found — nothing to fix")
		return nil
	}

	var failed int
	for _, dir := range stale {
		if err := os.RemoveAll(dir); err != nil {
			printErr("", fmt.Sprintf("cannot delete %s: %v", dir, err))
			failed++
		} else {
			printOK("", fmt.Sprintf("deleted %s", dir))
		}
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d dir(s) could not be deleted", failed)
	}
	fmt.Printf("  ✓  %d leftover build dir(s) removed.\n", len(stale))
	return nil
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("tailor doctor")
	fmt.Println()

	// ── Check 1: data directory exists ────────────────────────────────────
	fmt.Println("[ Data directory ]")
	tailorDir, err := config.TailorDir()
	if err != nil {
		failD("cannot determine home directory: %v", err)
	} else {
		cfgPath, _ := config.ConfigPath()
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			failD("~/.tailor/tailor.yaml not found — run 'tailor init' first")
		} else {
			printOK("", fmt.Sprintf("~/.tailor/ exists: %s", tailorDir))
		}
	}
	fmt.Println()

	// ── Check 2: tailor.yaml is valid ─────────────────────────────────────
	fmt.Println("[ tailor.yaml ]")
	cfg, loadErr := config.Load()
	if loadErr != nil {
		failD("cannot parse tailor.yaml: %v", loadErr)
	} else {
		printOK("", fmt.Sprintf("valid YAML — catalog at %s", cfg.CatalogDir))
		if cfg.CatalogDir == "" {
			failD("catalog_dir is empty")
		}
		if cfg.IndexDir == "" {
			failD("index_dir is empty")
		}
		if cfg.Search.Depth < 1 {
			printWarn("", fmt.Sprintf("search depth %d — expected at least 1", cfg.Search.Depth))
		}
		if cfg.Search.MinSimilarity >= 1 {
			printWarn("", fmt.Sprintf("min_similarity %.2f — no cosine score can reach it, every retrieval will miss", cfg.Search.MinSimilarity))
		}
	}
	fmt.Println()

	// ── Check 3: embeddings provider ──────────────────────────────────────
	fmt.Println("[ Embeddings ]")
	var encoderID string
	embCfg, embErr := embeddings.LoadConfig()
	switch {
	case embErr != nil:
		failD("cannot resolve embeddings config: %v", embErr)
	case embCfg.Provider == "":
		failD("TAILOR_EMBEDDINGS_PROVIDER is not set — fill in ~/.tailor/.env")
	case embCfg.Model == "":
		failD("TAILOR_EMBEDDINGS_MODEL is not set — fill in ~/.tailor/.env")
	default:
		prov, provErr := embeddings.NewFromConfig(embCfg)
		if provErr != nil {
			failD("%v", provErr)
		} else {
			printOK("", fmt.Sprintf("provider %s, model %s", embCfg.Provider, embCfg.Model))
			encoderID = prov.ModelID()
			if embCfg.APIKey == "" {
				printWarn("", "TAILOR_EMBEDDINGS_API_KEY is empty — the provider will reject requests")
			}
		}
	}
	fmt.Println()

	// ── Check 4: model catalog ────────────────────────────────────────────
	fmt.Println("[ Model catalog ]")
	var cat *catalog.Catalog
	if loadErr == nil {
		var catErr error
		cat, catErr = catalog.Load(cfg.CatalogDir)
		switch {
		case catErr != nil:
			failD("cannot load catalog: %v", catErr)
		case cat.Len() == 0:
			printWarn("", fmt.Sprintf("catalog is empty — add model cards to %s", cfg.CatalogDir))
		default:
			printOK("", fmt.Sprintf("%d model card(s) in %s", cat.Len(), cfg.CatalogDir))
		}
	} else {
		printWarn("", "skipped (tailor.yaml not loaded)")
	}
	fmt.Println()

	// ── Check 5: description index ────────────────────────────────────────
	fmt.Println("[ Description index ]")
	if loadErr == nil {
		idx, idxErr := index.Load(cfg.IndexDir)
		switch {
		case idxErr != nil && cat != nil && cat.Len() > 0:
			printWarn("", "no index built yet (run 'tailor index')")
		case idxErr != nil:
			printSkip("", "no index built yet")
		default:
			printOK("", fmt.Sprintf("%d row(s), dim %d, encoder %s", idx.Len(), idx.Manifest.Dim, idx.Manifest.EncoderID))
			if encoderID != "" && idx.Manifest.EncoderID != encoderID {
				printWarn("", fmt.Sprintf("index was built with %s but the configured encoder is %s — run 'tailor index'", idx.Manifest.EncoderID, encoderID))
			}
			if cat != nil {
				stale, removed := diffIndexAgainstCatalog(cat, idx)
				if stale > 0 {
					printWarn("", fmt.Sprintf("%d description(s) changed since the last build — run 'tailor index'", stale))
				}
				if removed > 0 {
					printWarn("", fmt.Sprintf("index holds %d model(s) no longer in the catalog — run 'tailor index'", removed))
				}
			}
		}
	} else {
		printWarn("", "skipped (tailor.yaml not loaded)")
	}
	fmt.Println()

	// ── Check 6: runs database ────────────────────────────────────────────
	fmt.Println("[ Runs database ]")
	if loadErr != nil {
		printWarn("", "skipped (tailor.yaml not loaded)")
	} else if cfg.RunsDB == "" {
		printSkip("", "runs_db is not configured")
	} else if _, statErr := os.Stat(cfg.RunsDB); os.IsNotExist(statErr) {
		printSkip("", "no runs database yet (created on first 'tailor train')")
	} else {
		store, dbErr := runs.Open(cfg.RunsDB)
		if dbErr != nil {
			failD("cannot open runs database: %v", dbErr)
		} else {
			if all, listErr := store.List(0); listErr != nil {
				failD("cannot read runs database: %v", listErr)
			} else {
				printOK("", fmt.Sprintf("%d training run(s) recorded in %s", len(all), cfg.RunsDB))
			}
			store.Close()
		}
	}
	fmt.Println()

	// ── Check 7: training runner ──────────────────────────────────────────
	fmt.Println("[ Training runner ]")
	if loadErr != nil {
		printWarn("", "skipped (tailor.yaml not loaded)")
	} else if cfg.Runner.BaseURL == "" {
		printSkip("", "runner is not configured — 'tailor train' is disabled")
	} else {
		u, urlErr := url.Parse(cfg.Runner.BaseURL)
		if urlErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			failD("invalid runner base_url %q — expected http(s)://host[:port]", cfg.Runner.BaseURL)
		} else {
			printOK("", fmt.Sprintf("runner endpoint: %s", cfg.Runner.BaseURL))
		}
	}
	fmt.Println()

	// ── Check 8: leftover build directories ───────────────────────────────
	fmt.Println("[ Leftover build directories ]")
	stale, staleErr := staleBuildDirs()
	if staleErr != nil {
		failD("cannot scan for leftover build directories: %v", staleErr)
	} else if len(stale) == 0 {
		printOK("", "no leftover build directories")
	} else {
		for _, d := range stale {
			printWarn("", d)
		}
		fmt.Printf("\n  ⚠  %d leftover build dir(s) found under ~/.tailor/tmp.\n", len(stale))
		fmt.Println("     Interrupted index builds leave these behind.")
		fmt.Println("     Run 'tailor doctor fix' to remove them.")
		allOK = false
	}
	fmt.Println()

	// ── Summary ──────────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. tailor is ready to use.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// diffIndexAgainstCatalog reports how far the index has drifted from the
// catalog: stale counts records whose canonical text no longer matches the
// stored hash (including cards added since the build), removed counts index
// rows whose model has left the catalog.
func diffIndexAgainstCatalog(cat *catalog.Catalog, idx *index.Index) (stale, removed int) {
	hashByName := make(map[string]string, len(idx.Models))
	for _, m := range idx.Models {
		hashByName[m.Name] = m.TextHash
	}
	inCatalog := make(map[string]bool, cat.Len())
	for _, r := range cat.Records {
		inCatalog[r.Name] = true
		hash := index.TextHash(index.CanonicalText(r.Name, r.Description))
		if hashByName[r.Name] != hash {
			stale++
		}
	}
	for _, m := range idx.Models {
		if !inCatalog[m.Name] {
			removed++
		}
	}
	return stale, removed
}

// staleBuildDirs returns leftover index-* build directories under
// ~/.tailor/tmp. Index builds stage into a fresh directory there and remove
// it on exit, so anything still present is from an interrupted run.
func staleBuildDirs() ([]string, error) {
	tailorDir, err := config.TailorDir()
	if err != nil {
		return nil, err
	}
	tmpBase := filepath.Join(tailorDir, "tmp")
	entries, err := os.ReadDir(tmpBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", tmpBase, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "index-") {
			found = append(found, filepath.Join(tmpBase, e.Name()))
		}
	}
	return found, nil
}
