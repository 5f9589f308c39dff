// fetcher is the feed-fetching daemon: it pulls ready feeds from the
// database, fetches them on a bounded worker pool, and writes stories
// and fetch outcomes back. Given explicit feed ids it fetches just
// those and exits.
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
	"time"

	"github.com/philbudne/rss-fetcher/internal/direct"
	"github.com/philbudne/rss-fetcher/internal/observability"
	"github.com/philbudne/rss-fetcher/internal/pidfile"
	"github.com/philbudne/rss-fetcher/internal/sched"
	"github.com/philbudne/rss-fetcher/internal/stats"
	"github.com/philbudne/rss-fetcher/internal/store"
	"github.com/philbudne/rss-fetcher/internal/tasks"
	"github.com/philbudne/rss-fetcher/internal/version"
)

func main() {
	configPath := flag.String("config", "fetcher.toml", "TOML config path")
	workers := flag.Int("workers", 0, "override configured worker count")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	logger := observability.InitLogger(cfg.App)

	lock, err := pidfile.Acquire(cfg.PIDDir, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := stats.New(cfg.App)
	fetcher := tasks.New(cfg.TasksConfig(), db, st, logger)
	scheduler := sched.New(sched.DefaultConfig(), db)

	ids, err := parseFeedIDs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		os.Exit(1)
	}
	if len(ids) > 0 {
		items, err := pinItems(ctx, db, ids)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
			os.Exit(1)
		}
		scheduler.Pin(items)
		logger.Info().Ints64("feeds", ids).Msg("pinned run")
	} else {
		// queued markers left by a dead run would starve those feeds
		cleared, err := db.ClearQueued(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
			os.Exit(1)
		}
		if cleared > 0 {
			logger.Info().Int64("cleared", cleared).Msg("cleared stale queue markers")
		}
	}

	manager := direct.NewManager(cfg.ManagerConfig(), fetcher.FetchFeed)
	defer manager.CloseAll()

	if err := run(ctx, scheduler, manager, st); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Msg("fetcher stopped")
}

// run is the dispatch loop: keep every available worker busy, collect
// completions once a second, report pool gauges. Returns nil when a
// pinned run drains.
func run(ctx context.Context, scheduler *sched.Scheduler, manager *direct.Manager, st *stats.Stats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for manager.Available() {
			item, err := scheduler.FindWork(ctx)
			if err != nil {
				return err
			}
			if item == nil {
				break
			}
			manager.Dispatch(*item)
		}

		if !scheduler.HaveWork() && manager.Active() == 0 {
			return nil
		}

		manager.Poll(time.Second, func(res direct.Result) {
			scheduler.Completed(res.Item)
		})

		st.Gauge("workers_active", float64(manager.Active()))
		st.Gauge("in_flight", float64(scheduler.InFlight()))
	}
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

func pinItems(ctx context.Context, db *store.Store, ids []int64) ([]sched.Item, error) {
	items := make([]sched.Item, 0, len(ids))
	for _, id := range ids {
		feed, err := db.GetFeed(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("feed %d: %w", id, err)
		}
		items = append(items, sched.Item{
			FeedID:   feed.ID,
			SourceID: feed.SourceID,
			URL:      feed.URL,
			Failures: feed.Failures,
		})
	}
	return items, nil
}
