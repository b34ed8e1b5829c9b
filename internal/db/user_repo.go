package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"powerplan/internal/types"
)

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns joins plan and tax group names. The order must match scanUser.
const userColumns = `u.id, u.username, u.password_hash, u.email, u.role, u.consumption,
	u.tax_group_id, tg.name, u.plan_id, p.name, u.created_at`

const userFrom = `FROM users u
	LEFT JOIN tax_groups tg ON tg.id = u.tax_group_id
	LEFT JOIN plans p ON p.id = u.plan_id`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&u.Role,
		&u.Consumption,
		&u.TaxGroupID,
		&u.TaxGroupName,
		&u.PlanID,
		&u.PlanName,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func userNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundUser, "User not found.", nil)
}

// List returns every user ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` `+userFrom+` ORDER BY u.username`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list users", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list users", err)
	}
	return users, nil
}

// GetByID returns a user or not_found_user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound()
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// GetByUsername looks a user up for login. Usernames match exactly.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound()
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// Create inserts a user. A taken username is conflict_username_taken.
func (r *UserRepository) Create(ctx context.Context, u *types.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, email, role, consumption, tax_group_id, plan_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.Role, u.Consumption, u.TaxGroupID, u.PlanID,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictUsername, "Username already taken", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create user", err)
	}
	return nil
}

// Update applies the non-nil fields of patch.
func (r *UserRepository) Update(ctx context.Context, id string, patch types.UserPatch) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET
			username      = COALESCE($2, username),
			password_hash = COALESCE($3, password_hash),
			email         = COALESCE($4, email),
			consumption   = COALESCE($5, consumption),
			tax_group_id  = COALESCE($6, tax_group_id),
			plan_id       = COALESCE($7, plan_id)
		 WHERE id = $1`,
		id, patch.Username, patch.PasswordHash, patch.Email, patch.Consumption, patch.TaxGroupID, patch.PlanID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return types.NewAppError(types.ErrCodeConflictUsername, "Username already taken", err)
		case isForeignKeyViolation(err):
			return types.NewAppError(types.ErrCodeValidationUser, "Referenced plan or tax group does not exist.", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update user", err)
	}
	if tag.RowsAffected() == 0 {
		return userNotFound()
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return userNotFound()
	}
	return nil
}
