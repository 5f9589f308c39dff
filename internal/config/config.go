// Package config loads and validates the TOML configuration for the
// fetcher daemon and the stories web server.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FetcherConfig configures the fetcher daemon and the queue-feeds
// tool. Zero values fall back to the documented defaults on load.
type FetcherConfig struct {
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

// WebConfig configures the stories API server.
type WebConfig struct {
	App          string   `toml:"app"`
	Addr         string   `toml:"addr"`
	DatabasePath string   `toml:"database_path"`
	APIKey       string   `toml:"api_key"`
	CorsOrigins  []string `toml:"cors_origins"`
	DefaultDays  int      `toml:"default_days"`
	MaxDays      int      `toml:"max_days"`
}

func LoadFetcherConfig(path string) (FetcherConfig, error) {
	var cfg FetcherConfig
	if err := loadToml(path, &cfg); err != nil {
		return FetcherConfig{}, err
	}
	cfg = fetcherDefaults(cfg)
	if err := ValidateFetcherConfig(cfg); err != nil {
		return FetcherConfig{}, err
	}
	return cfg, nil
}

func LoadWebConfig(path string) (WebConfig, error) {
	var cfg WebConfig
	if err := loadToml(path, &cfg); err != nil {
		return WebConfig{}, err
	}
	cfg = webDefaults(cfg)
	if err := ValidateWebConfig(cfg); err != nil {
		return WebConfig{}, err
	}
	return cfg, nil
}

// DefaultFetcherConfig is the daemon configuration with no file at
// all, for development runs.
func DefaultFetcherConfig() FetcherConfig {
	return fetcherDefaults(FetcherConfig{})
}

func DefaultWebConfig() WebConfig {
	return webDefaults(WebConfig{})
}

func fetcherDefaults(cfg FetcherConfig) FetcherConfig {
	if cfg.App == "" {
		cfg.App = "fetcher"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "rss-fetcher.db"
	}
	if cfg.PIDDir == "" {
		cfg.PIDDir = "."
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.JobTimeoutSecs <= 0 {
		cfg.JobTimeoutSecs = 60
	}
	if cfg.FetchTimeoutSecs <= 0 {
		cfg.FetchTimeoutSecs = 30
	}
	if cfg.MaxFeeds <= 0 {
		cfg.MaxFeeds = 10000
	}
	if cfg.RefillPeriodMins <= 0 {
		cfg.RefillPeriodMins = 5
	}
	if cfg.DefaultIntervalMins <= 0 {
		cfg.DefaultIntervalMins = 12 * 60
	}
	if cfg.MinimumIntervalMins <= 0 {
		cfg.MinimumIntervalMins = 15
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "rss-fetcher/1.0 (+https://mediacloud.org)"
	}
	return cfg
}

func webDefaults(cfg WebConfig) WebConfig {
	if cfg.App == "" {
		cfg.App = "fetcher-web"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "rss-fetcher.db"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("RSS_FETCHER_API_KEY")
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 365
	}
	return cfg
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateFetcherConfig(cfg FetcherConfig) error {
	if strings.TrimSpace(cfg.App) == "" {
		return fmt.Errorf("fetcher config missing app")
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return fmt.Errorf("fetcher config missing database_path")
	}
	if cfg.MinimumIntervalMins > cfg.DefaultIntervalMins {
		return fmt.Errorf("minimum_interval_mins %d exceeds default_interval_mins %d",
			cfg.MinimumIntervalMins, cfg.DefaultIntervalMins)
	}
	if cfg.JobTimeoutSecs < cfg.FetchTimeoutSecs {
		return fmt.Errorf("job_timeout_secs %d below fetch_timeout_secs %d",
			cfg.JobTimeoutSecs, cfg.FetchTimeoutSecs)
	}
	return nil
}

func ValidateWebConfig(cfg WebConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("web config missing addr")
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return fmt.Errorf("web config missing database_path")
	}
	return nil
}
