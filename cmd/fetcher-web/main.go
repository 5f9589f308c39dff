// fetcher-web serves the stories API over the fetcher's database.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/philbudne/rss-fetcher/internal/auth"
	"github.com/philbudne/rss-fetcher/internal/config"
	"github.com/philbudne/rss-fetcher/internal/observability"
	"github.com/philbudne/rss-fetcher/internal/store"
	"github.com/philbudne/rss-fetcher/internal/version"
	"github.com/philbudne/rss-fetcher/internal/web"
)

func main() {
	configPath := flag.String("config", "web.toml", "TOML config path")
	addr := flag.String("addr", "", "override configured listen address")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher-web: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := observability.InitLogger(cfg.App)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher-web: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.APIKey == "" {
		logger.Warn().Msg("no api key configured, /api endpoints will deny everything")
	}

	srv := web.New(cfg.ServerConfig(), db, auth.StaticKey{Key: cfg.APIKey}, version.Version)
	logger.Info().Str("addr", cfg.Addr).Msg("serving stories api")
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "fetcher-web: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.WebConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultWebConfig(), nil
	}
	return config.LoadWebConfig(path)
}
