// Package web serves the stories API: per-day and per-source story
// volumes out of the fetcher's database, plus health and metrics
// endpoints.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/philbudne/rss-fetcher/internal/auth"
	"github.com/philbudne/rss-fetcher/internal/observability"
	"github.com/philbudne/rss-fetcher/internal/store"
)

// StatsStore is what the API reads. Implemented by *store.Store.
type StatsStore interface {
	StoriesFetchedByDay(ctx context.Context, now time.Time, days int) ([]store.DayCount, error)
	StoriesPublishedByDay(ctx context.Context, now time.Time, days int) ([]store.DayCount, error)
	StoriesBySource(ctx context.Context) (store.SourceSplit, error)
	CountActive(ctx context.Context) (int64, error)
	CountQueued(ctx context.Context) (int64, error)
}

// Config tunes the web server.
type Config struct {
	// App names this process in logs and metrics.
	App string
	// Addr is the listen address, host:port.
	Addr string
	// CORSOrigins allows browser dashboards; empty means localhost
	// development only.
	CORSOrigins []string
	// DefaultDays is the day window when a request names none.
	DefaultDays int
	// MaxDays caps the requested window.
	MaxDays int
}

func DefaultConfig() Config {
	return Config{
		App:         "fetcher-web",
		Addr:        ":8000",
		DefaultDays: 30,
		MaxDays:     365,
	}
}

// Server is the stories API process.
type Server struct {
	cfg       Config
	db        StatsStore
	validator auth.Validator
	router    *gin.Engine
	started   time.Time
	version   string
}

func New(cfg Config, db StatsStore, validator auth.Validator, version string) *Server {
	observability.RegisterMetrics()

	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 365
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.App))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "X-API-Key"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:       cfg,
		db:        db,
		validator: validator,
		router:    r,
		started:   time.Now(),
		version:   version,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	return s.router.Run(s.cfg.Addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"app":     s.cfg.App,
			"version": s.version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		active, err := s.db.CountActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		queued, err := s.db.CountQueued(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":        true,
			"active_feeds": active,
			"queued_feeds": queued,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api", s.requireAPIKey())
	api.GET("/stories/fetched-by-day", s.storiesFetchedByDay)
	api.GET("/stories/published-by-day", s.storiesPublishedByDay)
	api.GET("/stories/by-source", s.storiesBySource)
}

// requireAPIKey guards the API group. The key arrives in the
// X-API-Key header; a bare "key" query parameter is accepted for
// curl convenience.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("key")
		}
		if err := s.validator.Validate(key); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) storiesFetchedByDay(c *gin.Context) {
	days, err := s.daysParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counts, err := s.db.StoriesFetchedByDay(c.Request.Context(), time.Now(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "counts": counts})
}

func (s *Server) storiesPublishedByDay(c *gin.Context) {
	days, err := s.daysParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counts, err := s.db.StoriesPublishedByDay(c.Request.Context(), time.Now(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "counts": counts})
}

func (s *Server) storiesBySource(c *gin.Context) {
	split, err := s.db.StoriesBySource(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, split)
}

var errBadDays = errors.New("days must be a positive integer")

func (s *Server) daysParam(c *gin.Context) (int, error) {
	raw := c.Query("days")
	if raw == "" {
		return s.cfg.DefaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, errBadDays
	}
	if days > s.cfg.MaxDays {
		days = s.cfg.MaxDays
	}
	return days, nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
