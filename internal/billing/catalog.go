package billing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"powerplan/internal/types"
)

// PlanCatalog serves the plan list used for recommendations. Loads go through
// a circuit breaker; the last good list is reused for SnapshotTTL and served
// as a fallback while the database is failing or the breaker is open.
//
// Returned slices are shared between callers and must not be modified.
type PlanCatalog struct {
	source  PlanReader
	breaker *gobreaker.CircuitBreaker[[]types.Plan]
	ttl     time.Duration
	clock   types.Clock
	logger  *slog.Logger
	onStale func()

	mu       sync.RWMutex
	snapshot []types.Plan
	loadedAt time.Time
}

// CatalogConfig holds the dependencies and tuning for NewPlanCatalog.
type CatalogConfig struct {
	Source PlanReader
	// SnapshotTTL of zero always queries the source.
	SnapshotTTL time.Duration
	// BreakerFailures consecutive failures open the breaker. Defaults to 5.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open. Defaults to 30s.
	BreakerTimeout time.Duration
	Clock          types.Clock
	Logger         *slog.Logger
	// OnStaleServe is called whenever a fallback snapshot is served.
	OnStaleServe func()
}

// NewPlanCatalog creates a PlanCatalog.
func NewPlanCatalog(cfg CatalogConfig) *PlanCatalog {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onStale := cfg.OnStaleServe
	if onStale == nil {
		onStale = func() {}
	}

	breaker := gobreaker.NewCircuitBreaker[[]types.Plan](gobreaker.Settings{
		Name:        "plan-catalog",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A caller giving up says nothing about the database.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &PlanCatalog{
		source:  cfg.Source,
		breaker: breaker,
		ttl:     cfg.SnapshotTTL,
		clock:   clock,
		logger:  logger,
		onStale: onStale,
	}
}

// Plans returns the current plan list.
func (c *PlanCatalog) Plans(ctx context.Context) ([]types.Plan, error) {
	if plans, ok := c.fresh(); ok {
		return plans, nil
	}

	plans, err := c.breaker.Execute(func() ([]types.Plan, error) {
		plans, err := c.source.List(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return plans, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.mu.RLock()
		stale := c.snapshot
		c.mu.RUnlock()

		if stale != nil {
			c.logger.WarnContext(ctx, "serving last plan snapshot", "error", err, "plans", len(stale))
			c.onStale()
			return stale, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
				"plan storage is temporarily unavailable", err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.snapshot = plans
	c.loadedAt = c.clock.Now()
	c.mu.Unlock()
	return plans, nil
}

// Name implements core.HealthChecker.
func (c *PlanCatalog) Name() string { return "plan_catalog" }

// Check reports an error while the breaker is open, that is while
// recommendations are priced from a snapshot or refused.
func (c *PlanCatalog) Check(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return errCatalogOpen
	}
	return nil
}

var errCatalogOpen = errors.New("plan storage breaker is open")

// Invalidate forces the next Plans call to query the source. The current list
// stays available as a fallback.
func (c *PlanCatalog) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

func (c *PlanCatalog) fresh() ([]types.Plan, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || c.loadedAt.IsZero() || c.clock.Now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.snapshot, true
}
