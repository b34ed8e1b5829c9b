package core

import (
	"context"

	"powerplan/internal/types"
)

// Authenticator turns a bearer token into the Actor making the request.
// auth.TokenService is the production implementation.
type Authenticator interface {
	// ResolveToken returns ErrCodeAuthTokenExpired for an expired token and
	// ErrCodeAuthTokenInvalid for anything else that fails verification.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
