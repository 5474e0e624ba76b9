package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultThresholdArcsec != DefaultConfig().DefaultThresholdArcsec {
		t.Fatalf("DefaultThresholdArcsec = %v, want %v", cfg.DefaultThresholdArcsec, DefaultConfig().DefaultThresholdArcsec)
	}
	if cfg.Port != 8501 {
		t.Fatalf("Port = %d, want 8501", cfg.Port)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	body := `{"default_threshold_arcsec": 2.5, "port": 9000, "keep_unmatched": true, "match_index": "kdtree"}`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultThresholdArcsec != 2.5 {
		t.Errorf("DefaultThresholdArcsec = %v, want 2.5", cfg.DefaultThresholdArcsec)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if !cfg.KeepUnmatched {
		t.Error("KeepUnmatched = false, want true")
	}
	if cfg.MatchIndex != "kdtree" {
		t.Errorf("MatchIndex = %q, want kdtree", cfg.MatchIndex)
	}
	// untouched fields keep defaults
	if cfg.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want default", cfg.Bind)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["runs_purge", "match_run"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "runs_purge" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "runs_purge")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"default_threshold_arcsec": 3, "disabled_tools": ["runs_purge"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoDir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"default_threshold_arcsec": 0.5, "disabled_tools": ["asc_parse"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	nested := filepath.Join(repoRoot, "data", "night1")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.DefaultThresholdArcsec != 0.5 {
		t.Errorf("DefaultThresholdArcsec = %v, want 0.5 (repo override)", cfg.DefaultThresholdArcsec)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.MaxUploadMB != 64 {
		t.Errorf("MaxUploadMB = %d, want 64", cfg.MaxUploadMB)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Port: 8000, DBMaxOpenConns: 5}
	overlay := &Config{Port: 9000}

	result := Merge(base, overlay)

	if result.Port != 9000 {
		t.Errorf("Port = %d, want 9000 (overlay)", result.Port)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleansAndArrays(t *testing.T) {
	base := &Config{DisableHistory: true, DisabledTools: []string{"a", " b "}}
	overlay := &Config{KeepUnmatched: true, DisabledTools: []string{"b", "c", ""}}

	result := Merge(base, overlay)

	if !result.DisableHistory || !result.KeepUnmatched {
		t.Errorf("booleans = %v/%v, want true/true", result.DisableHistory, result.KeepUnmatched)
	}
	want := []string{"a", "b", "c"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := &Config{MaxUploadMB: 2, ResultTTLMinutes: 15}
	if cfg.MaxUploadBytes() != 2<<20 {
		t.Errorf("MaxUploadBytes() = %d, want %d", cfg.MaxUploadBytes(), 2<<20)
	}
	if cfg.ResultTTL() != 15*time.Minute {
		t.Errorf("ResultTTL() = %v, want 15m", cfg.ResultTTL())
	}
}
