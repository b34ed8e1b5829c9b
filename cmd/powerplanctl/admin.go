package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"powerplan/internal/auth"
	"powerplan/internal/db"
	"powerplan/internal/types"
)

type userCreator interface {
	Create(ctx context.Context, u *types.User) error
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		username    string
		email       string
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with the admin role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr()).readNewPassword()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := createAdmin(cmd.Context(), db.NewUserRepository(pool), auth.NewBcryptHasher(), username, email, password)
			if err != nil {
				return err
			}
			cliLogger(cmd).Info("admin created", "user_id", user.ID, "username", user.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name of the new admin")
	cmd.Flags().StringVar(&email, "email", "", "optional contact address")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// createAdmin hashes password and stores a new admin account.
func createAdmin(ctx context.Context, store userCreator, hasher auth.PasswordHasher, username, email, password string) (*types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, types.NewAppError(types.ErrCodeValidationUser, auth.MsgUsernameBlank, nil)
	}
	if strings.TrimSpace(password) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationUser, auth.MsgPasswordBlank, nil)
	}

	hash, err := hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &types.User{
		ID:           "usr_" + uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         types.RoleAdmin,
	}
	if email = strings.TrimSpace(email); email != "" {
		if validator.New().Var(email, "email") != nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidEmail, auth.MsgInvalidEmail, nil)
		}
		u.Email = &email
	}

	if err := store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
