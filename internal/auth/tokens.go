package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"powerplan/internal/types"
)

// Claims is the JWT payload. Subject carries the user ID.
type Claims struct {
	Role       string `json:"role"`
	UniqueName string `json:"unique_name"`
	jwt.RegisteredClaims
}

// Token is a signed access token and its expiry.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
	Clock      types.Clock
}

// TokenService issues and verifies HS256 access tokens. It implements
// core.Authenticator.
type TokenService struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	clock    types.Clock
	parser   *jwt.Parser
}

// NewTokenService creates a TokenService. A zero TTL defaults to one hour.
func NewTokenService(cfg TokenConfig) *TokenService {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		key:      cfg.SigningKey,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		clock:    clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// Issue signs a token for u.
func (s *TokenService) Issue(u types.User) (Token, error) {
	now := s.clock.Now()
	exp := now.Add(s.ttl)

	claims := Claims{
		Role:       string(u.Role),
		UniqueName: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, types.NewAppError(types.ErrCodeInternalToken, "failed to sign token", err)
	}
	return Token{Token: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// ResolveToken verifies raw and returns the principal it names.
func (s *TokenService) ResolveToken(_ context.Context, raw string) (*types.Actor, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "Token has expired.", nil)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid token.", err)
	}

	role := types.UserRole(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid token.", nil)
	}
	return &types.Actor{ID: claims.Subject, Username: claims.UniqueName, Role: role}, nil
}
