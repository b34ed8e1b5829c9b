// Package handlers contains the HTTP handler implementations for the PowerPlan API.
//
// Each handler is responsible for:
//   - Decoding and validating HTTP requests
//   - Delegating to service-layer logic
//   - Encoding responses in the core envelope
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"powerplan/internal/auth"
	"powerplan/internal/core"
	"powerplan/internal/types"
)

// --- Service Interfaces ---

// AuthService is the account contract used by AuthHandler.
// Implemented by auth.AuthService.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*types.User, error)
	Login(ctx context.Context, username, password string) (auth.Token, error)
}

// --- DTOs ---

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the request body for POST /auth/register. Blank
// credentials are rejected by the service with their own messages.
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
}

// RegisterResponse confirms a new account.
type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// --- Handler ---

// AuthHandler serves the anonymous account endpoints.
type AuthHandler struct {
	service   AuthService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc AuthService, v *core.Validator, l *slog.Logger) *AuthHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AuthHandler{service: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the auth endpoints. Both are anonymous.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
}

// Login handles POST /auth/login and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: token})
}

// Register handles POST /auth/register. New accounts always get role user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	u, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: RegisterResponse{
		Message:  "User registered successfully",
		Username: u.Username,
	}})
}
