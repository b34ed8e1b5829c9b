package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"powerplan/internal/billing"
	"powerplan/internal/core"
	"powerplan/internal/types"
)

// TaxGroupService is the tax group contract used by TaxGroupHandler.
// Implemented by billing.TaxGroupService.
type TaxGroupService interface {
	List(ctx context.Context) ([]types.TaxGroup, error)
	Get(ctx context.Context, id string) (*types.TaxGroup, error)
	Create(ctx context.Context, in billing.TaxGroupInput) (*types.TaxGroup, error)
	Update(ctx context.Context, id string, in billing.TaxGroupInput) (*types.TaxGroup, error)
	Delete(ctx context.Context, id string) error
}

// TaxGroupRequest is the body for POST /taxgroups and PUT /taxgroups/{id}.
type TaxGroupRequest struct {
	Name   string          `json:"name"`
	VAT    decimal.Decimal `json:"vat"`
	EcoTax decimal.Decimal `json:"eco_tax"`
}

// TaxGroupHandler serves tax group reads and admin mutations.
type TaxGroupHandler struct {
	service TaxGroupService
	logger  *slog.Logger
}

// NewTaxGroupHandler creates a TaxGroupHandler.
func NewTaxGroupHandler(svc TaxGroupService, l *slog.Logger) *TaxGroupHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TaxGroupHandler{service: svc, logger: l}
}

// RegisterRoutes mounts the tax group endpoints.
func (h *TaxGroupHandler) RegisterRoutes(r chi.Router, guard RoleGuard) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(guard(types.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /taxgroups.
func (h *TaxGroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.List(groups))
}

// Get handles GET /taxgroups/{id}.
func (h *TaxGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: g})
}

// Create handles POST /taxgroups.
func (h *TaxGroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TaxGroupRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	g, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: g})
}

// Update handles PUT /taxgroups/{id}.
func (h *TaxGroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req TaxGroupRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	g, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: g})
}

// Delete handles DELETE /taxgroups/{id}.
func (h *TaxGroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req TaxGroupRequest) toInput() billing.TaxGroupInput {
	return billing.TaxGroupInput{Name: req.Name, VAT: req.VAT, EcoTax: req.EcoTax}
}
