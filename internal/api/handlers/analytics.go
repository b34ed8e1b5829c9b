package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"powerplan/internal/core"
	"powerplan/internal/types"
)

// AnalyticsRepo provides the user-count aggregates.
// Implemented by db.AnalyticsRepository.
type AnalyticsRepo interface {
	CountByTaxGroup(ctx context.Context) ([]types.GroupCount, error)
	CountByPlan(ctx context.Context) ([]types.GroupCount, error)
}

// StatsResponse combines both aggregates for the admin dashboard.
type StatsResponse struct {
	ByTaxGroup []types.GroupCount `json:"by_tax_group"`
	ByPlan     []types.GroupCount `json:"by_plan"`
}

// AnalyticsHandler serves admin reporting over the user base.
type AnalyticsHandler struct {
	repo   AnalyticsRepo
	logger *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(repo AnalyticsRepo, l *slog.Logger) *AnalyticsHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AnalyticsHandler{repo: repo, logger: l}
}

// RegisterRoutes mounts the analytics endpoints under /users. All of them
// require an admin.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router, guard RoleGuard) {
	r.Group(func(r chi.Router) {
		r.Use(guard(types.RoleAdmin))
		r.Get("/count-by-taxgroup", h.CountByTaxGroup)
		r.Get("/count-by-plan", h.CountByPlan)
		r.Get("/stats", h.Stats)
	})
}

// CountByTaxGroup handles GET /users/count-by-taxgroup.
func (h *AnalyticsHandler) CountByTaxGroup(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByTaxGroup(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.List(counts))
}

// CountByPlan handles GET /users/count-by-plan.
func (h *AnalyticsHandler) CountByPlan(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByPlan(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.List(counts))
}

// Stats handles GET /users/stats. Both aggregates are queried concurrently;
// the first failure cancels the other.
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		counts, err := h.repo.CountByTaxGroup(ctx)
		resp.ByTaxGroup = counts
		return err
	})
	g.Go(func() error {
		counts, err := h.repo.CountByPlan(ctx)
		resp.ByPlan = counts
		return err
	})

	if err := g.Wait(); err != nil {
		h.logger.ErrorContext(r.Context(), "user stats query failed", "error", err)
		core.Error(w, r, err)
		return
	}

	if resp.ByTaxGroup == nil {
		resp.ByTaxGroup = []types.GroupCount{}
	}
	if resp.ByPlan == nil {
		resp.ByPlan = []types.GroupCount{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
