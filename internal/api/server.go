package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"tourplan/internal/bundles"
	"tourplan/internal/coherence"
	"tourplan/internal/opt"
	"tourplan/internal/store"
	"tourplan/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Planner *opt.Planner
	Pub     *webhooks.Publisher
	Broker  EventBroker

	planLimiter *rate.Limiter
}

// NewServer wires the API from the environment. Without DATABASE_URL the
// in-memory store is used; without REDIS_URL events stay process-local.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir("db/migrations")
		}
		s = sp
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	bsrc, err := bundles.Load(os.Getenv("BUNDLES_FILE"))
	if err != nil {
		return nil, fmt.Errorf("load bundles: %w", err)
	}
	msrc, err := coherence.LoadSource(os.Getenv("METADATA_FILE"))
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	planner := opt.NewPlanner(bsrc, msrc)
	if cfg, err := s.GetPlannerConfig(context.Background()); err == nil {
		planner.Configure(cfg)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load planner config: %w", err)
	}

	rps := 5.0
	if v := os.Getenv("PLAN_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}

	return &Server{
		Store:       s,
		Planner:     planner,
		Pub:         webhooks.NewPublisher(s),
		Broker:      broker,
		planLimiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
