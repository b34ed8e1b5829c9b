// Package auth handles account registration, password login and the bearer
// tokens that identify callers on every other route.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"powerplan/internal/types"
)

// Registration and login messages.
const (
	MsgUsernameBlank      = "Username cant be blank"
	MsgPasswordBlank      = "Password cant be blank"
	MsgInvalidEmail       = "Invalid Email"
	MsgUsernameTaken      = "Username already taken"
	MsgInvalidCredentials = "Invalid credentials"
)

// UserRepo is the user data access AuthService needs.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*types.User, error)
	Create(ctx context.Context, u *types.User) error
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Username string
	Password string
	Email    *string
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users    UserRepo
	hasher   PasswordHasher
	tokens   *TokenService
	validate *validator.Validate
	newID    func() string
	logger   *slog.Logger
}

// AuthServiceConfig holds the dependencies for creating an AuthService.
type AuthServiceConfig struct {
	Users  UserRepo
	Tokens *TokenService
	Hasher PasswordHasher
	// IDGenerator defaults to "usr_" + random UUID.
	IDGenerator func() string
	Logger      *slog.Logger
}

// NewAuthService creates an AuthService. If Hasher is nil, bcrypt is used.
// If Logger is nil, slog.Default() is used.
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher()
	}
	newID := cfg.IDGenerator
	if newID == nil {
		newID = func() string { return "usr_" + uuid.New().String() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    cfg.Users,
		hasher:   hasher,
		tokens:   cfg.Tokens,
		validate: validator.New(),
		newID:    newID,
		logger:   logger,
	}
}

// ValidEmail reports whether s is an acceptable e-mail address.
func (s *AuthService) ValidEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

// Register creates an account with role user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return nil, types.NewAppError(types.ErrCodeValidationUser, MsgUsernameBlank, nil)
	case strings.TrimSpace(in.Password) == "":
		return nil, types.NewAppError(types.ErrCodeValidationUser, MsgPasswordBlank, nil)
	case in.Email != nil && !s.ValidEmail(*in.Email):
		return nil, types.NewAppError(types.ErrCodeValidationInvalidEmail, MsgInvalidEmail, nil)
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil && existing != nil:
		return nil, types.NewAppError(types.ErrCodeConflictUsername, MsgUsernameTaken, nil)
	case err != nil && !types.HasCode(err, types.ErrCodeNotFoundUser):
		return nil, err
	}

	hash, err := s.hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	u := &types.User{
		ID:           s.newID(),
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Role:         types.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and returns a signed token. Unknown usernames
// and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if types.HasCode(err, types.ErrCodeNotFoundUser) {
			return Token{}, types.NewAppError(types.ErrCodeAuthInvalidCreds, MsgInvalidCredentials, nil)
		}
		return Token{}, err
	}

	if err := s.hasher.CompareHashAndPassword(u.PasswordHash, password); err != nil {
		s.logger.InfoContext(ctx, "login rejected", "user_id", u.ID)
		return Token{}, types.NewAppError(types.ErrCodeAuthInvalidCreds, MsgInvalidCredentials, nil)
	}

	return s.tokens.Issue(*u)
}
