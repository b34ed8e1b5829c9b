package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"powerplan/internal/types"
)

// RoleGuard builds middleware that admits only actors holding one of roles.
// core.Server.RequireRole satisfies it.
type RoleGuard func(roles ...types.UserRole) func(http.Handler) http.Handler

// Set groups the API handlers so they can be mounted together.
type Set struct {
	Auth      *AuthHandler
	Plans     *PlanHandler
	TaxGroups *TaxGroupHandler
	Users     *UserHandler
	Analytics *AnalyticsHandler
}

// Routes returns a registrar that mounts every non-nil handler at the API
// root. The analytics endpoints share the /users prefix; their static paths
// take precedence over /users/{id}.
func (s Set) Routes(guard RoleGuard) func(chi.Router) {
	return func(r chi.Router) {
		if s.Auth != nil {
			r.Route("/auth", s.Auth.RegisterRoutes)
		}
		if s.Plans != nil {
			r.Route("/plan", func(r chi.Router) { s.Plans.RegisterRoutes(r, guard) })
		}
		if s.TaxGroups != nil {
			r.Route("/taxgroups", func(r chi.Router) { s.TaxGroups.RegisterRoutes(r, guard) })
		}
		if s.Users != nil || s.Analytics != nil {
			r.Route("/users", func(r chi.Router) {
				if s.Analytics != nil {
					s.Analytics.RegisterRoutes(r, guard)
				}
				if s.Users != nil {
					s.Users.RegisterRoutes(r, guard)
				}
			})
		}
	}
}
