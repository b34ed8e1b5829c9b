package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"powerplan/internal/auth"
	"powerplan/internal/core"
	"powerplan/internal/types"
)

// --- Service Interfaces ---

// UserRepo defines the data access contract used by the user handler.
// Mirrors the concrete db.UserRepository methods relevant to this handler.
type UserRepo interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id string) (*types.User, error)
	Update(ctx context.Context, id string, patch types.UserPatch) error
	Delete(ctx context.Context, id string) error
}

// ExistenceChecker reports whether a referenced row exists.
// Implemented by db.PlanRepository and db.TaxGroupRepository.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Owner-only refusals.
const (
	MsgOwnerOnlySee    = "You can only see your own account!"
	MsgOwnerOnlyChange = "You can only change your own account!"
	MsgOwnerOnlyDelete = "You can only delete your own account!"
)

// Update validation messages.
const (
	MsgConsumptionPositive = "Consumption must be positive."
	MsgTaxGroupMissing     = "Tax group does not exist."
	MsgPlanMissing         = "Plan does not exist."
)

// --- Request/Response Models ---

// UserDetailsDTO names the plan and tax group a user is assigned to.
type UserDetailsDTO struct {
	PlanID       *string `json:"plan_id"`
	PlanName     *string `json:"plan_name"`
	TaxGroupID   *string `json:"tax_group_id"`
	TaxGroupName *string `json:"tax_group_name"`
}

// UserDTO is the safe response for a user. The password hash never leaves
// the repository layer.
type UserDTO struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Role        types.UserRole   `json:"role"`
	Consumption *decimal.Decimal `json:"consumption"`
	Email       *string          `json:"email"`
	Details     UserDetailsDTO   `json:"details"`
	CreatedAt   time.Time        `json:"created_at"`
}

func toUserDTO(u types.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Consumption: u.Consumption,
		Email:       u.Email,
		Details: UserDetailsDTO{
			PlanID:       u.PlanID,
			PlanName:     u.PlanName,
			TaxGroupID:   u.TaxGroupID,
			TaxGroupName: u.TaxGroupName,
		},
		CreatedAt: u.CreatedAt,
	}
}

// UpdateUserRequest is the body for PUT /users/{id}. Every field is
// optional; absent fields keep their stored value.
type UpdateUserRequest struct {
	Username    *string          `json:"username"`
	Password    *string          `json:"password"`
	Email       *string          `json:"email"`
	Consumption *decimal.Decimal `json:"consumption"`
	TaxGroupID  *string          `json:"tax_group_id"`
	PlanID      *string          `json:"plan_id"`
}

type emailField struct {
	Email string `json:"email" validate:"email"`
}

// --- Handler ---

// UserHandler manages subscriber accounts. Per-account routes are restricted
// to the account owner.
type UserHandler struct {
	users     UserRepo
	plans     ExistenceChecker
	taxGroups ExistenceChecker
	hasher    auth.PasswordHasher
	validator *core.Validator
	logger    *slog.Logger
}

// NewUserHandler creates a new UserHandler with the provided dependencies.
// A nil hasher falls back to bcrypt.
func NewUserHandler(
	users UserRepo,
	plans ExistenceChecker,
	taxGroups ExistenceChecker,
	hasher auth.PasswordHasher,
	v *core.Validator,
	l *slog.Logger,
) *UserHandler {
	if hasher == nil {
		hasher = auth.NewBcryptHasher()
	}
	if l == nil {
		l = slog.Default()
	}
	return &UserHandler{
		users:     users,
		plans:     plans,
		taxGroups: taxGroups,
		hasher:    hasher,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the per-account user endpoints.
func (h *UserHandler) RegisterRoutes(r chi.Router, guard RoleGuard) {
	r.With(guard(types.RoleAdmin)).Get("/", h.List)

	r.Route("/{id}", func(r chi.Router) {
		r.With(guard(types.RoleUser, types.RoleAdmin)).Get("/", h.Get)
		r.With(guard(types.RoleUser)).Put("/", h.Update)
		r.With(guard(types.RoleUser, types.RoleAdmin)).Delete("/", h.Delete)
	})
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.List(lo.Map(users, func(u types.User, _ int) UserDTO {
		return toUserDTO(u)
	})))
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadOwned(w, r, MsgOwnerOnlySee)
	if !ok {
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: toUserDTO(*u)})
}

// Update handles PUT /users/{id}.
//
// Checks run in a fixed order and the first failure is returned:
//  1. The target exists and is the caller's own account.
//  2. Username and password, when sent, are not blank.
//  3. Consumption, when sent, is positive.
//  4. Email, when sent, is a valid address.
//  5. A referenced tax group and plan exist.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	u, ok := h.loadOwned(w, r, MsgOwnerOnlyChange)
	if !ok {
		return
	}

	patch, err := h.buildPatch(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.users.Update(r.Context(), u.ID, patch); err != nil {
		core.Error(w, r, err)
		return
	}

	updated, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user updated",
		"user_id", u.ID,
		"password_changed", patch.PasswordHash != nil,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: toUserDTO(*updated)})
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadOwned(w, r, MsgOwnerOnlyDelete)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), u.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted", "user_id", u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned fetches the {id} user and checks that the caller owns it. On
// failure the error response has been written and ok is false.
func (h *UserHandler) loadOwned(w http.ResponseWriter, r *http.Request, refusal string) (*types.User, bool) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return nil, false
	}

	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return nil, false
	}

	if !actor.IsOwner(u.ID) {
		h.logger.WarnContext(r.Context(), "owner check failed",
			"actor_id", actor.ID,
			"target_id", u.ID,
		)
		core.Error(w, r, types.NewAppError(types.ErrCodePermissionOwnerOnly, refusal, nil))
		return nil, false
	}
	return u, true
}

// buildPatch validates req and converts it into a repository patch with the
// new password hashed.
func (h *UserHandler) buildPatch(ctx context.Context, req UpdateUserRequest) (types.UserPatch, error) {
	switch {
	case req.Username != nil && strings.TrimSpace(*req.Username) == "":
		return types.UserPatch{}, types.NewAppError(types.ErrCodeValidationUser, auth.MsgUsernameBlank, nil)
	case req.Password != nil && strings.TrimSpace(*req.Password) == "":
		return types.UserPatch{}, types.NewAppError(types.ErrCodeValidationUser, auth.MsgPasswordBlank, nil)
	case req.Consumption != nil && !req.Consumption.IsPositive():
		return types.UserPatch{}, types.NewAppError(types.ErrCodeValidationConsumption, MsgConsumptionPositive, nil)
	}

	if req.Email != nil {
		if err := h.validator.ValidateStruct(emailField{Email: *req.Email}); err != nil {
			return types.UserPatch{}, err
		}
	}

	if req.TaxGroupID != nil {
		if err := h.requireExisting(ctx, h.taxGroups, *req.TaxGroupID,
			types.ErrCodeValidationUnknownTaxGroup, MsgTaxGroupMissing); err != nil {
			return types.UserPatch{}, err
		}
	}
	if req.PlanID != nil {
		if err := h.requireExisting(ctx, h.plans, *req.PlanID,
			types.ErrCodeValidationUnknownPlan, MsgPlanMissing); err != nil {
			return types.UserPatch{}, err
		}
	}

	patch := types.UserPatch{
		Username:    req.Username,
		Email:       req.Email,
		Consumption: req.Consumption,
		TaxGroupID:  req.TaxGroupID,
		PlanID:      req.PlanID,
	}
	if req.Password != nil {
		hash, err := h.hasher.GenerateFromPassword(*req.Password)
		if err != nil {
			return types.UserPatch{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}

func (h *UserHandler) requireExisting(ctx context.Context, c ExistenceChecker, id string, code types.ErrorCode, msg string) error {
	exists, err := c.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return types.NewAppError(code, msg, nil)
	}
	return nil
}
