// Package queuer keeps the fetch queue topped up. One-shot runs queue
// a batch and exit; the loop form stays running as a daemon, reporting
// queue stats and refilling once per period.
package queuer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/philbudne/rss-fetcher/internal/stats"
)

// FeedQueue is the storage surface the queuer drives. Implemented by
// *store.Store.
type FeedQueue interface {
	ReadyFeedIDs(ctx context.Context, now time.Time, limit int) ([]int64, error)
	FilterReady(ctx context.Context, ids []int64, now time.Time) ([]int64, error)
	MarkQueued(ctx context.Context, ids []int64, now time.Time) (int, error)
	ClearQueued(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountQueued(ctx context.Context) (int64, error)
	CountReady(ctx context.Context, now time.Time) (int64, error)
	FetchesPerMinute(ctx context.Context, defaultMins, minimumMins int64) (float64, error)
}

// Config tunes queuing policy.
type Config struct {
	// MaxFeeds caps any single queuing batch.
	MaxFeeds int
	// DefaultIntervalMins is assumed for feeds without an update
	// period of their own.
	DefaultIntervalMins int64
	// MinimumIntervalMins is the floor on any feed's effective
	// interval; feeds never fetch faster than this.
	MinimumIntervalMins int64
	// RefillPeriod is how often the loop tops the queue up.
	RefillPeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFeeds:            10000,
		DefaultIntervalMins: 720,
		MinimumIntervalMins: 15,
		RefillPeriod:        5 * time.Minute,
	}
}

// Queuer encapsulates feed queuing.
type Queuer struct {
	cfg    Config
	db     FeedQueue
	stats  *stats.Stats
	logger zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, db FeedQueue, st *stats.Stats, logger zerolog.Logger) *Queuer {
	if cfg.MaxFeeds <= 0 {
		cfg.MaxFeeds = DefaultConfig().MaxFeeds
	}
	if cfg.RefillPeriod <= 0 {
		cfg.RefillPeriod = DefaultConfig().RefillPeriod
	}
	return &Queuer{
		cfg:    cfg,
		db:     db,
		stats:  st,
		logger: logger,
		now:    time.Now,
	}
}

// FindAndQueueFeeds queues up to limit ready feeds: active, enabled,
// unqueued, never checked or past due, oldest first.
func (q *Queuer) FindAndQueueFeeds(ctx context.Context, limit int) (int, error) {
	if limit > q.cfg.MaxFeeds {
		limit = q.cfg.MaxFeeds
	}
	if limit <= 0 {
		return 0, nil
	}

	now := q.now().UTC()
	ids, err := q.db.ReadyFeedIDs(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return q.queue(ctx, ids, now)
}

// QueueFeeds queues the given feed ids after narrowing them to those
// actually ready, for runs driven from the command line.
func (q *Queuer) QueueFeeds(ctx context.Context, ids []int64) (int, error) {
	now := q.now().UTC()
	valid, err := q.db.FilterReady(ctx, ids, now)
	if err != nil {
		return 0, err
	}
	if len(valid) == 0 {
		return 0, nil
	}
	return q.queue(ctx, valid, now)
}

func (q *Queuer) queue(ctx context.Context, ids []int64, now time.Time) (int, error) {
	queued, err := q.db.MarkQueued(ctx, ids, now)
	if err != nil {
		return 0, err
	}
	q.stats.Incr("queued_feeds", queued)
	q.logger.Info().
		Int("queued", queued).
		Int("total", len(ids)).
		Msg("queued feeds")
	return queued, nil
}

// Clear resets every queued flag.
func (q *Queuer) Clear(ctx context.Context) (int64, error) {
	return q.db.ClearQueued(ctx)
}

// HiWater is the number of fetches that need to happen in one refill
// period to keep up with the expected average rate. Enforcing the
// average spreads out any bunching of ready feeds caused by downtime.
func (q *Queuer) HiWater(ctx context.Context) (int, error) {
	rate, err := q.db.FetchesPerMinute(ctx,
		q.cfg.DefaultIntervalMins, q.cfg.MinimumIntervalMins)
	if err != nil {
		return 0, err
	}
	hiWater := int(rate * q.cfg.RefillPeriod.Minutes())
	// keep dev databases moving
	if hiWater < 10 {
		hiWater = 10
	}
	return hiWater, nil
}

// Loop monitors the queue and tops it up each refill period. Only as
// much work as one period needs is queued, so database changes (new
// feeds, enables, disables) are seen quickly rather than after a long
// queue drains. Blocks until ctx is done.
func (q *Queuer) Loop(ctx context.Context) error {
	q.logger.Info().
		Dur("refill_period", q.cfg.RefillPeriod).
		Msg("starting queue loop")

	hiWater := -1
	for {
		t0 := q.now()

		qlen, err := q.db.CountQueued(ctx)
		if err != nil {
			return err
		}
		q.stats.Gauge("qlen", float64(qlen))

		added := 0

		// always queue on startup, then on refill-period boundaries
		if hiWater < 0 || t0.Truncate(time.Minute).Unix()%int64(q.cfg.RefillPeriod.Seconds()) == 0 {
			hiWater, err = q.HiWater(ctx)
			if err != nil {
				return err
			}
			q.stats.Gauge("hi_water", float64(hiWater))

			if int(qlen) < hiWater {
				added, err = q.FindAndQueueFeeds(ctx, hiWater-int(qlen))
				if err != nil {
					return err
				}
			}
		}

		// gauges stick at their last value, so always set
		q.stats.Gauge("added", float64(added))

		if err := q.reportDBGauges(ctx); err != nil {
			return err
		}

		// sleep to the top of the next minute after wake time
		tnext := t0.Truncate(time.Minute).Add(time.Minute)
		wait := tnext.Sub(q.now())
		if wait <= 0 {
			wait = 500 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reportDBGauges publishes database-side queue depth once a pass,
// after any refill so added entries are not counted twice.
func (q *Queuer) reportDBGauges(ctx context.Context) error {
	active, err := q.db.CountActive(ctx)
	if err != nil {
		return err
	}
	queued, err := q.db.CountQueued(ctx)
	if err != nil {
		return err
	}
	ready, err := q.db.CountReady(ctx, q.now().UTC())
	if err != nil {
		return err
	}

	q.stats.Gauge("db.active", float64(active))
	q.stats.Gauge("db.queued", float64(queued))
	q.stats.Gauge("db.ready", float64(ready))

	q.logger.Debug().
		Int64("active", active).
		Int64("queued", queued).
		Int64("ready", ready).
		Msg("db queue state")
	return nil
}
