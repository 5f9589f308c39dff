package config

import (
	"time"

	"github.com/philbudne/rss-fetcher/internal/direct"
	"github.com/philbudne/rss-fetcher/internal/queuer"
	"github.com/philbudne/rss-fetcher/internal/tasks"
	"github.com/philbudne/rss-fetcher/internal/web"
)

// ManagerConfig maps the daemon config onto the worker pool.
func (cfg FetcherConfig) ManagerConfig() direct.Config {
	return direct.Config{
		Workers:    cfg.Workers,
		JobTimeout: time.Duration(cfg.JobTimeoutSecs) * time.Second,
	}
}

// QueuerConfig maps the daemon config onto the feed queuer.
func (cfg FetcherConfig) QueuerConfig() queuer.Config {
	return queuer.Config{
		MaxFeeds:            cfg.MaxFeeds,
		DefaultIntervalMins: cfg.DefaultIntervalMins,
		MinimumIntervalMins: cfg.MinimumIntervalMins,
		RefillPeriod:        time.Duration(cfg.RefillPeriodMins) * time.Minute,
	}
}

// TasksConfig maps the daemon config onto per-feed fetching.
func (cfg FetcherConfig) TasksConfig() tasks.Config {
	c := tasks.DefaultConfig()
	c.UserAgent = cfg.UserAgent
	c.Timeout = time.Duration(cfg.FetchTimeoutSecs) * time.Second
	c.DefaultIntervalMins = cfg.DefaultIntervalMins
	c.MinimumIntervalMins = cfg.MinimumIntervalMins
	return c
}

// ServerConfig maps the web config onto the API server.
func (cfg WebConfig) ServerConfig() web.Config {
	return web.Config{
		App:         cfg.App,
		Addr:        cfg.Addr,
		CORSOrigins: cfg.CorsOrigins,
		DefaultDays: cfg.DefaultDays,
		MaxDays:     cfg.MaxDays,
	}
}
