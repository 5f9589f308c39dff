package sched

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig defines the retry delay policy for failing feeds.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff spreads repeated failures out to at most a day so a
// dead feed costs one fetch a day instead of one per cycle.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 30 * time.Minute,
		Multiplier:   2.0,
		MaxDelay:     24 * time.Hour,
		Jitter:       true,
	}
}

// NextAttemptDelay returns the delay before the next fetch attempt for
// a feed that has failed `failures` consecutive times (1-based).
func NextAttemptDelay(cfg BackoffConfig, failures int, rng *rand.Rand) time.Duration {
	if failures <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(failures-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}
