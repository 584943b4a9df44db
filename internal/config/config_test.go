package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Importer.BatchSize != 2000 || cfg.Importer.CommitEvery != 50000 {
		t.Errorf("importer defaults = %+v", cfg.Importer)
	}
	if cfg.Analytics.NightRolloverHour != 6 || cfg.Analytics.MonologueGapSeconds != 300 {
		t.Errorf("analytics defaults = %+v", cfg.Analytics)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir not defaulted")
	}
}

func TestLoadOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "chattrace")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
data_dir = "~/chats"

[importer]
commit_every = 1000

[analytics]
night_rollover_hour = 4
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != filepath.Join(home, "chats") {
		t.Errorf("DataDir = %q, want home expansion", cfg.DataDir)
	}
	if cfg.Importer.CommitEvery != 1000 {
		t.Errorf("CommitEvery = %d, want override 1000", cfg.Importer.CommitEvery)
	}
	// untouched keys keep their defaults
	if cfg.Importer.BatchSize != 2000 {
		t.Errorf("BatchSize = %d, want default 2000", cfg.Importer.BatchSize)
	}
	if cfg.Analytics.NightRolloverHour != 4 {
		t.Errorf("NightRolloverHour = %d, want override 4", cfg.Analytics.NightRolloverHour)
	}
}

func TestLoadBadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "chattrace")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml ==="), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("Load on broken config succeeded, want error")
	}
}
