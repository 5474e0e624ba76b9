package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the per-user and per-repo configuration directory name.
const DirName = ".carbonmatch"

// Config holds application configuration.
type Config struct {
	// Bind is the address the web UI listens on.
	Bind string `json:"bind,omitempty"`

	// Port is the web UI port.
	Port int `json:"port,omitempty"`

	// DefaultThresholdArcsec pre-fills θ in the upload form and is used by
	// the CLI and MCP tools when no threshold is given.
	DefaultThresholdArcsec float64 `json:"default_threshold_arcsec,omitempty"`

	// DefaultDelimiter is the catalog delimiter preselected in the UI:
	// "comma", "tab", "semicolon" or "auto".
	DefaultDelimiter string `json:"default_delimiter,omitempty"`

	// KeepUnmatched keeps catalog rows whose nearest separation exceeds θ in
	// exports, flagged with within_threshold=false. Off by default.
	KeepUnmatched bool `json:"keep_unmatched,omitempty"`

	// MatchIndex selects the nearest-neighbour index: "auto", "brute" or "kdtree".
	MatchIndex string `json:"match_index,omitempty"`

	// KDTreeMinPairs is the catalog×candidate count at which "auto" switches
	// to the k-d tree.
	KDTreeMinPairs int `json:"kdtree_min_pairs,omitempty"`

	// MaxUploadMB limits the total size of one multipart upload.
	MaxUploadMB int `json:"max_upload_mb,omitempty"`

	// ResultTTLMinutes is how long the web UI keeps a run's tables for
	// re-filtering and download.
	ResultTTLMinutes int `json:"result_ttl_minutes,omitempty"`

	// MaxCachedResults bounds how many runs the web UI keeps in memory.
	MaxCachedResults int `json:"max_cached_results,omitempty"`

	// DisableHistory turns off the run ledger. No database file is created.
	DisableHistory bool `json:"disable_history,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:                   "127.0.0.1",
		Port:                   8501,
		DefaultThresholdArcsec: 1.0,
		DefaultDelimiter:       "comma",
		MatchIndex:             "auto",
		KDTreeMinPairs:         250_000,
		MaxUploadMB:            64,
		ResultTTLMinutes:       60,
		MaxCachedResults:       32,
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ResultTTL is ResultTTLMinutes as a duration.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.carbonmatch.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global directory and the
// nearest .carbonmatch/config.json found walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .carbonmatch/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Bind = pick(overlay.Bind, base.Bind)
	result.Port = pick(overlay.Port, base.Port)
	result.DefaultThresholdArcsec = pick(overlay.DefaultThresholdArcsec, base.DefaultThresholdArcsec)
	result.DefaultDelimiter = pick(overlay.DefaultDelimiter, base.DefaultDelimiter)
	result.MatchIndex = pick(overlay.MatchIndex, base.MatchIndex)
	result.KDTreeMinPairs = pick(overlay.KDTreeMinPairs, base.KDTreeMinPairs)
	result.MaxUploadMB = pick(overlay.MaxUploadMB, base.MaxUploadMB)
	result.ResultTTLMinutes = pick(overlay.ResultTTLMinutes, base.ResultTTLMinutes)
	result.MaxCachedResults = pick(overlay.MaxCachedResults, base.MaxCachedResults)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.KeepUnmatched = base.KeepUnmatched || overlay.KeepUnmatched
	result.DisableHistory = base.DisableHistory || overlay.DisableHistory

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
