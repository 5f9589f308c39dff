// queue-feeds marks ready feeds as queued for the fetcher. One-shot
// by default; --loop runs the refill daemon, --clear drops all queue
// markers, explicit feed ids queue just those.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/philbudne/rss-fetcher/internal/config"
	"github.com/philbudne/rss-fetcher/internal/observability"
	"github.com/philbudne/rss-fetcher/internal/pidfile"
	"github.com/philbudne/rss-fetcher/internal/queuer"
	"github.com/philbudne/rss-fetcher/internal/stats"
	"github.com/philbudne/rss-fetcher/internal/store"
	"github.com/philbudne/rss-fetcher/internal/version"
)

func main() {
	configPath := flag.String("config", "fetcher.toml", "TOML config path")
	loop := flag.Bool("loop", false, "run forever, refilling the queue each period")
	clear := flag.Bool("clear", false, "clear all queue markers and exit")
	maxFeeds := flag.Int("max-feeds", 0, "cap one refill (default from config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
		os.Exit(1)
	}
	if *maxFeeds > 0 {
		cfg.MaxFeeds = *maxFeeds
	}

	logger := observability.InitLogger("queue-feeds")

	lock, err := pidfile.Acquire(cfg.PIDDir, "queue-feeds")
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queuer.New(cfg.QueuerConfig(), db, stats.New("queue-feeds"), logger)

	switch {
	case *clear:
		cleared, err := q.Clear(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		logger.Info().Int64("cleared", cleared).Msg("queue markers cleared")

	case len(flag.Args()) > 0:
		ids, err := parseFeedIDs(flag.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		queued, err := q.QueueFeeds(ctx, ids)
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		logger.Info().Int("queued", queued).Int("requested", len(ids)).Msg("feeds queued")

	case *loop:
		if err := q.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		logger.Info().Msg("queue-feeds stopped")

	default:
		hiWater, err := q.HiWater(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		queued, err := q.FindAndQueueFeeds(ctx, hiWater)
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue-feeds: %v\n", err)
			os.Exit(1)
		}
		logger.Info().Int("queued", queued).Int("hi_water", hiWater).Msg("feeds queued")
	}
}

// loadConfig shares the fetcher daemon's config file; a missing file
// means the defaults.
func loadConfig(path string) (config.FetcherConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultFetcherConfig(), nil
	}
	return config.LoadFetcherConfig(path)
}

func parseFeedIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad feed id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
