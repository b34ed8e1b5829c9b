package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds all checks together. A check still running at the
// deadline counts as failed.
const healthCheckTimeout = 2 * time.Second

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthChecker checks one dependency of the API.
type HealthChecker interface {
	Name() string
	// Check must honour the context deadline.
	Check(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingChecker struct {
	name string
	p    Pinger
}

// NewPingChecker reports a dependency healthy when Ping succeeds.
func NewPingChecker(name string, p Pinger) HealthChecker {
	return &pingChecker{name: name, p: p}
}

func (p *pingChecker) Name() string { return p.name }

func (p *pingChecker) Check(ctx context.Context) error {
	return p.p.Ping(ctx)
}

// optionalChecker marks a checker whose failure degrades the service without
// making it unavailable, such as the plan catalog serving a snapshot.
type optionalChecker struct {
	HealthChecker
}

// NewOptionalChecker wraps p so that its failure reports "degraded" with a 200
// instead of failing the health check.
func NewOptionalChecker(p HealthChecker) HealthChecker {
	return optionalChecker{HealthChecker: p}
}

func isOptional(p HealthChecker) bool {
	_, ok := p.(optionalChecker)
	return ok
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every check concurrently. Any required check failing gives
// 503 "unhealthy"; optional failures alone give 200 "degraded". Mounted at
// GET /health without authentication.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checkers := s.HealthChecks
	errs := runChecks(ctx, checkers)

	resp := healthResponse{Status: statusHealthy, Version: s.version()}
	if len(checkers) > 0 {
		resp.Components = make(map[string]componentStatus, len(checkers))
	}

	for i, p := range checkers {
		err := errs[i]
		if err == nil {
			resp.Components[p.Name()] = componentStatus{Status: statusHealthy}
			continue
		}

		if isOptional(p) {
			resp.Components[p.Name()] = componentStatus{Status: statusDegraded, Message: err.Error()}
			if resp.Status == statusHealthy {
				resp.Status = statusDegraded
			}
			continue
		}
		resp.Components[p.Name()] = componentStatus{Status: statusUnhealthy, Message: err.Error()}
		resp.Status = statusUnhealthy
	}

	if resp.Status == statusUnhealthy {
		s.Logger.WarnContext(r.Context(), "health check failed", "components", resp.Components)
		JSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	JSON(w, r, http.StatusOK, resp)
}

var errCheckTimeout = errors.New("health check timed out")

// runChecks returns one error per checker, in order. Checkers that have not
// returned when ctx ends report errCheckTimeout; a panic is reported as an
// error rather than crashing the handler.
func runChecks(ctx context.Context, checkers []HealthChecker) []error {
	var (
		mu   sync.Mutex
		errs = make([]error, len(checkers))
		wg   sync.WaitGroup
	)
	for i := range errs {
		errs[i] = errCheckTimeout
	}

	for i, p := range checkers {
		wg.Go(func() {
			err := runCheck(ctx, p)
			mu.Lock()
			errs[i] = err
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]error, len(errs))
	copy(out, errs)
	return out
}

func runCheck(ctx context.Context, p HealthChecker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return p.Check(ctx)
}

func (s *Server) version() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Build.Version
}
