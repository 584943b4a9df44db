package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds everything the import pipeline and analytics engine can
// be tuned with. Every field has a coded default; a config file only
// overrides what it names.
type Config struct {
	// DataDir is where per-session store files live.
	DataDir string `toml:"data_dir"`

	Importer  ImporterConfig  `toml:"importer"`
	Analytics AnalyticsConfig `toml:"analytics"`
}

// ImporterConfig bounds memory and transaction-log growth during import.
type ImporterConfig struct {
	// BatchSize caps the number of messages per parse event.
	BatchSize int `toml:"batch_size"`
	// CommitEvery commits and reopens the write transaction every N messages.
	CommitEvery int `toml:"commit_every"`
	// CheckpointEvery runs a WAL checkpoint every M messages (M > N).
	CheckpointEvery int `toml:"checkpoint_every"`
	// PreprocessThresholdBytes: exports larger than this go through the
	// format's preprocessor when it declares one.
	PreprocessThresholdBytes int64 `toml:"preprocess_threshold_bytes"`
}

// AnalyticsConfig carries the policy knobs observed in the product.
// These are policy choices, not structural requirements.
type AnalyticsConfig struct {
	// NightRolloverHour is the early-morning hour at which a "logical day"
	// begins. Messages before it belong to the previous day socially.
	NightRolloverHour int `toml:"night_rollover_hour"`
	// MonologueGapSeconds is the max gap between consecutive messages of
	// one sender for them to count as the same streak.
	MonologueGapSeconds int64 `toml:"monologue_gap_seconds"`
	// RepeatFollowCapSeconds caps the gap counted toward the
	// fastest-follower score in repeat chains.
	RepeatFollowCapSeconds int64 `toml:"repeat_follow_cap_seconds"`
	// LaughKeywords are matched as regular expressions, case-insensitive.
	LaughKeywords []string `toml:"laugh_keywords"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Importer: ImporterConfig{
			BatchSize:                2000,
			CommitEvery:              50000,
			CheckpointEvery:          200000,
			PreprocessThresholdBytes: 64 << 20,
		},
		Analytics: AnalyticsConfig{
			NightRolloverHour:      6,
			MonologueGapSeconds:    300,
			RepeatFollowCapSeconds: 20,
			LaughKeywords:          []string{`哈哈+`, `h{3,}`, `lol`, `lmao`, `233+`, `笑死`},
		},
	}
}

// Load reads ~/.config/chattrace/config.toml over the defaults.
// A missing file is not an error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.DataDir = filepath.Join(home, ".local", "share", "chattrace")

	cfgPath := filepath.Join(home, ".config", "chattrace", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.DataDir = expandHome(cfg.DataDir, home)
	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
