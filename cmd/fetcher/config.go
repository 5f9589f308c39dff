package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/philbudne/rss-fetcher/internal/config"
)

// fetcher config.toml key mapping to daemon settings.
type fileConfig struct {
	App          string `toml:"app"`
	DatabasePath string `toml:"database_path"`
	PIDDir       string `toml:"pid_dir"`

	Workers          int `toml:"workers"`
	JobTimeoutSecs   int `toml:"job_timeout_secs"`
	FetchTimeoutSecs int `toml:"fetch_timeout_secs"`

	MaxFeeds            int    `toml:"max_feeds"`
	RefillPeriodMins    int    `toml:"refill_period_mins"`
	DefaultIntervalMins int64  `toml:"default_interval_mins"`
	MinimumIntervalMins int64  `toml:"minimum_interval_mins"`
	UserAgent           string `toml:"user_agent"`
}

// loadDaemonConfig overlays the config file on the defaults. Keys the
// file does not define keep their default so a sparse file stays
// valid. A missing file is not an error, the defaults run as-is.
func loadDaemonConfig(path string) (config.FetcherConfig, error) {
	cfg := config.DefaultFetcherConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.FetcherConfig{}, fmt.Errorf("load fetcher config: %w", err)
	}

	if meta.IsDefined("app") {
		cfg.App = strings.TrimSpace(raw.App)
	}
	if meta.IsDefined("database_path") {
		cfg.DatabasePath = strings.TrimSpace(raw.DatabasePath)
	}
	if meta.IsDefined("pid_dir") {
		cfg.PIDDir = strings.TrimSpace(raw.PIDDir)
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("job_timeout_secs") {
		cfg.JobTimeoutSecs = raw.JobTimeoutSecs
	}
	if meta.IsDefined("fetch_timeout_secs") {
		cfg.FetchTimeoutSecs = raw.FetchTimeoutSecs
	}
	if meta.IsDefined("max_feeds") {
		cfg.MaxFeeds = raw.MaxFeeds
	}
	if meta.IsDefined("refill_period_mins") {
		cfg.RefillPeriodMins = raw.RefillPeriodMins
	}
	if meta.IsDefined("default_interval_mins") {
		cfg.DefaultIntervalMins = raw.DefaultIntervalMins
	}
	if meta.IsDefined("minimum_interval_mins") {
		cfg.MinimumIntervalMins = raw.MinimumIntervalMins
	}
	if meta.IsDefined("user_agent") {
		cfg.UserAgent = strings.TrimSpace(raw.UserAgent)
	}

	if err := config.ValidateFetcherConfig(cfg); err != nil {
		return config.FetcherConfig{}, fmt.Errorf("load fetcher config: %w", err)
	}
	return cfg, nil
}
