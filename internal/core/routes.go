package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"powerplan/internal/types"
)

// defaultRequestTimeout applies when the config leaves REQUEST_TIMEOUT unset.
// It sits one second under the Lambda hard timeout.
const defaultRequestTimeout = 29 * time.Second

// defaultRedactedHeaders are masked in request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes registers the middleware chain, the domain routes and /health.
// Domain paths live at the root: /plan, /taxgroups, /users, /auth.
func (s *Server) MountRoutes() error {
	compress, err := s.compressionMiddleware()
	if err != nil {
		return err
	}

	s.registerGlobalMiddleware(compress)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "Route not found.", nil))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "Method not allowed on this route.", nil))
	})

	for _, register := range s.RouteRegistrars {
		register(s.router)
	}
	s.router.Get("/health", s.HandleHealth)
	return nil
}

// registerGlobalMiddleware applies middleware in strict order:
//
//  1. Recoverer       catches panics; outermost.
//  2. ContextTimeout  soft deadline under the Lambda hard timeout.
//  3. RequestID       correlation id for logs and error bodies.
//  4. SecurityHeaders
//  5. RequestLogger   structured access log with redacted headers.
//  6. CORS
//  7. Compression     gzip for bodies above COMPRESS_MIN_SIZE.
//  8. Metrics
//  9. Auth            resolves the optional bearer token into an Actor.
//
// Role checks are attached per route with RequireRole.
func (s *Server) registerGlobalMiddleware(compress func(http.Handler) http.Handler) {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(compress)
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(s.AuthMiddleware)
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}

// compressionMiddleware gzips responses at or above the configured minimum
// size when the client sends Accept-Encoding: gzip.
func (s *Server) compressionMiddleware() (func(http.Handler) http.Handler, error) {
	minSize := gzhttp.DefaultMinSize
	if s.Config != nil && s.Config.Server.CompressMinSize > 0 {
		minSize = s.Config.Server.CompressMinSize
	}

	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(minSize))
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}

// ContextTimeoutMiddleware sets a deadline on the request context. Handlers
// see a cancelled context once it passes; the database driver aborts the
// running query.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses the incoming X-Request-Id or generates one, and
// echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID returns 16 random bytes as 32 hex characters.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
