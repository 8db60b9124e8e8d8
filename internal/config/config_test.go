package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	if want := filepath.Join(home, ".tailor", "catalog"); cfg.CatalogDir != want {
		t.Errorf("CatalogDir = %q, want %q", cfg.CatalogDir, want)
	}
	if want := filepath.Join(home, ".tailor", "index"); cfg.IndexDir != want {
		t.Errorf("IndexDir = %q, want %q", cfg.IndexDir, want)
	}
	if cfg.Search.Depth != 5 {
		t.Errorf("Search.Depth = %d, want 5", cfg.Search.Depth)
	}
	if cfg.Search.MinSimilarity != 0.30 {
		t.Errorf("Search.MinSimilarity = %v, want 0.30", cfg.Search.MinSimilarity)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := setTestHome(t)

	body := "catalog_dir: /srv/models/cards\n"
	if err := os.WriteFile(filepath.Join(dir, "tailor.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write tailor.yaml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogDir != "/srv/models/cards" {
		t.Errorf("CatalogDir = %q, want %q", cfg.CatalogDir, "/srv/models/cards")
	}
	// Fields absent from the file keep their defaults.
	if cfg.Search.Depth != 5 {
		t.Errorf("Search.Depth = %d, want default 5", cfg.Search.Depth)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_ExpandsTilde(t *testing.T) {
	dir := setTestHome(t)

	body := "catalog_dir: ~/cards\nindex_dir: ~/idx\n"
	if err := os.WriteFile(filepath.Join(dir, "tailor.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write tailor.yaml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "cards"); cfg.CatalogDir != want {
		t.Errorf("CatalogDir = %q, want %q", cfg.CatalogDir, want)
	}
	if want := filepath.Join(home, "idx"); cfg.IndexDir != want {
		t.Errorf("IndexDir = %q, want %q", cfg.IndexDir, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	setTestHome(t)

	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	cfg.CatalogDir = "/data/cards"
	cfg.Search.MinSimilarity = 0.42
	cfg.Runner.BaseURL = "http://runner.internal:9000"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CatalogDir != "/data/cards" {
		t.Errorf("CatalogDir = %q, want %q", got.CatalogDir, "/data/cards")
	}
	if got.Search.MinSimilarity != 0.42 {
		t.Errorf("Search.MinSimilarity = %v, want 0.42", got.Search.MinSimilarity)
	}
	if got.Runner.BaseURL != "http://runner.internal:9000" {
		t.Errorf("Runner.BaseURL = %q, want %q", got.Runner.BaseURL, "http://runner.internal:9000")
	}
}
