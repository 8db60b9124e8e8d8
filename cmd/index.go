package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/config"
	"github.com/modelsmith/tailor-cli/internal/retrieval"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
	"github.com/spf13/cobra"
)

var flagIndexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the model description index",
	Long: `Encode every catalog description and write the index under the
configured index directory. Unchanged cards reuse their stored vectors;
--force re-encodes everything.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

func init() {
	indexCmd.Flags().BoolVar(&flagIndexForce, "force", false, "Re-encode every description even if unchanged")
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return err
	}
	if cat.Len() == 0 {
		printWarn("", fmt.Sprintf("catalog is empty; add model cards to %s first", cfg.CatalogDir))
		return nil
	}
	prov, err := newProvider()
	if err != nil {
		return err
	}

	// Concurrent builds race on the multi-step tmp-build-then-swap, so
	// serialize them per user.
	_, release, err := acquireIndexLock(10 * time.Second)
	if err != nil {
		return err
	}
	defer release()

	tailorDir, err := config.TailorDir()
	if err != nil {
		return err
	}
	tmpBase := filepath.Join(tailorDir, "tmp")
	if err := os.MkdirAll(tmpBase, 0o755); err != nil {
		return fmt.Errorf("cannot create temp dir %s: %w", tmpBase, err)
	}
	tmpDir, err := os.MkdirTemp(tmpBase, "index-*")
	if err != nil {
		return fmt.Errorf("cannot create temp index dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Seed the build with the current index so unchanged descriptions keep
	// their stored vectors.
	if old, err := index.Load(cfg.IndexDir); err == nil {
		if err := index.Write(tmpDir, old.Manifest, old.Models, old.Vectors); err != nil {
			return fmt.Errorf("cannot stage current index: %w", err)
		}
	}

	retriever, err := retrieval.New(cat, prov, retrieval.Options{
		IndexDir: tmpDir,
		Force:    flagIndexForce,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	printInfo("", fmt.Sprintf("encoding %d model description(s) with %s", cat.Len(), prov.ModelID()))
	idx, err := retriever.EncodeModelDescriptions(ctx)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	if err := index.AtomicSwap(tmpDir, cfg.IndexDir); err != nil {
		return fmt.Errorf("cannot install index: %w", err)
	}
	printOK("", fmt.Sprintf("description index written: %s (%d models, dim %d)", cfg.IndexDir, idx.Len(), idx.Manifest.Dim))
	return nil
}

// acquireIndexLock obtains the per-user index build lock.
func acquireIndexLock(timeout time.Duration) (*flock.Flock, func(), error) {
	lockPath, err := indexLockPath()
	if err != nil {
		return nil, func() {}, err
	}
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, func() {}, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return l, func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, func() {}, fmt.Errorf("another index build is in progress (lock: %s)", lockPath)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// indexLockPath determines the per-user lock path used to prevent
// concurrent index builds.
func indexLockPath() (string, error) {
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		dir := filepath.Join(cacheDir, "tailor")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, "index.lock"), nil
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dir := filepath.Join(home, ".tailor")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, "index.lock"), nil
		}
	}
	return "", fmt.Errorf("cannot determine writable lock directory")
}
