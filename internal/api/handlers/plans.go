package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"powerplan/internal/billing"
	"powerplan/internal/core"
	"powerplan/internal/pricing"
	"powerplan/internal/types"
)

// PlanService is the plan contract used by PlanHandler.
// Implemented by billing.PlanService.
type PlanService interface {
	List(ctx context.Context) ([]types.Plan, error)
	Get(ctx context.Context, id string) (*types.Plan, error)
	Create(ctx context.Context, in billing.PlanInput) (*types.Plan, error)
	Update(ctx context.Context, id string, in billing.PlanInput) (*types.Plan, error)
	Delete(ctx context.Context, id string) error
	Recommend(ctx context.Context, consumption decimal.Decimal, taxGroupID string) (pricing.Recommendation, error)
	Quote(ctx context.Context, planID string, consumption decimal.Decimal, taxGroupID string) (pricing.Breakdown, error)
}

// --- DTOs ---

// TierRequest is one price tier in a plan body. ID selects the stored tier
// to rewrite on update and is omitted for new tiers.
type TierRequest struct {
	ID        string          `json:"id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Threshold *int64          `json:"threshold"`
}

// PlanRequest is the body for POST /plan and PUT /plan/{id}. Plan rules are
// enforced by the service so both paths report identical messages.
type PlanRequest struct {
	Name     string           `json:"name"`
	Discount *decimal.Decimal `json:"discount"`
	Prices   []TierRequest    `json:"prices"`
}

func (req PlanRequest) toInput() billing.PlanInput {
	return billing.PlanInput{
		Name:     req.Name,
		Discount: req.Discount,
		Tiers: lo.Map(req.Prices, func(t TierRequest, _ int) types.PriceTier {
			return types.PriceTier{ID: t.ID, Price: t.Price, Threshold: t.Threshold}
		}),
	}
}

// RecommendRequest is the body for POST /plan/recommend.
type RecommendRequest struct {
	Consumption *decimal.Decimal `json:"consumption" validate:"required,decimal_gte0"`
	TaxGroupID  string           `json:"tax_group_id" validate:"required,prefixed_id=tg"`
}

// QuoteRequest is the body for POST /plan/quote.
type QuoteRequest struct {
	PlanID      string           `json:"plan_id" validate:"required,prefixed_id=plan"`
	Consumption *decimal.Decimal `json:"consumption" validate:"required,decimal_gte0"`
	TaxGroupID  string           `json:"tax_group_id" validate:"required,prefixed_id=tg"`
}

// --- Handler ---

// PlanHandler serves the plan catalog, its admin mutations and the pricing
// endpoints built on it.
type PlanHandler struct {
	service   PlanService
	validator *core.Validator
	logger    *slog.Logger
}

// NewPlanHandler creates a PlanHandler.
func NewPlanHandler(svc PlanService, v *core.Validator, l *slog.Logger) *PlanHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PlanHandler{service: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the plan endpoints. Reads and quotes are anonymous,
// recommendations need a subscriber and mutations need an admin.
func (h *PlanHandler) RegisterRoutes(r chi.Router, guard RoleGuard) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/quote", h.Quote)
	r.With(guard(types.RoleUser)).Post("/recommend", h.Recommend)

	r.Group(func(r chi.Router) {
		r.Use(guard(types.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /plan.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.List(plans))
}

// Get handles GET /plan/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: plan})
}

// Create handles POST /plan.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: plan})
}

// Update handles PUT /plan/{id}. The body is the complete plan; tiers missing
// from it are removed.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: plan})
}

// Delete handles DELETE /plan/{id}.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recommend handles POST /plan/recommend.
func (h *PlanHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	rec, err := h.service.Recommend(r.Context(), *req.Consumption, req.TaxGroupID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plan recommended",
		"plan_id", rec.Plan.ID,
		"tax_group_id", req.TaxGroupID,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rec})
}

// Quote handles POST /plan/quote.
func (h *PlanHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	breakdown, err := h.service.Quote(r.Context(), req.PlanID, *req.Consumption, req.TaxGroupID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: breakdown})
}
