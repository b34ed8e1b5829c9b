package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"powerplan/internal/types"
)

// TaxGroupRepository provides data access for the tax_groups table.
type TaxGroupRepository struct {
	db DBTX
}

// NewTaxGroupRepository creates a TaxGroupRepository.
func NewTaxGroupRepository(db DBTX) *TaxGroupRepository {
	return &TaxGroupRepository{db: db}
}

const taxGroupColumns = `id, name, vat, eco_tax, created_at, updated_at`

func scanTaxGroup(row pgx.Row) (*types.TaxGroup, error) {
	var g types.TaxGroup
	if err := row.Scan(&g.ID, &g.Name, &g.VAT, &g.EcoTax, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func taxGroupNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundTaxGroup, "Tax group not found.", nil)
}

// List returns all tax groups ordered by name.
func (r *TaxGroupRepository) List(ctx context.Context) ([]types.TaxGroup, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taxGroupColumns+` FROM tax_groups ORDER BY name, id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list tax groups", err)
	}
	defer rows.Close()

	groups := []types.TaxGroup{}
	for rows.Next() {
		g, err := scanTaxGroup(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan tax group", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list tax groups", err)
	}
	return groups, nil
}

// GetByID returns a tax group or not_found_tax_group.
func (r *TaxGroupRepository) GetByID(ctx context.Context, id string) (*types.TaxGroup, error) {
	g, err := scanTaxGroup(r.db.QueryRow(ctx, `SELECT `+taxGroupColumns+` FROM tax_groups WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxGroupNotFound()
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve tax group", err)
	}
	return g, nil
}

// Exists reports whether a tax group with id is stored.
func (r *TaxGroupRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tax_groups WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check tax group", err)
	}
	return exists, nil
}

// Create inserts g and fills in its timestamps.
func (r *TaxGroupRepository) Create(ctx context.Context, g *types.TaxGroup) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tax_groups (id, name, vat, eco_tax) VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		g.ID, g.Name, g.VAT, g.EcoTax,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create tax group", err)
	}
	return nil
}

// Update rewrites name and rates.
func (r *TaxGroupRepository) Update(ctx context.Context, g *types.TaxGroup) error {
	err := r.db.QueryRow(ctx,
		`UPDATE tax_groups SET name = $1, vat = $2, eco_tax = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING created_at, updated_at`,
		g.Name, g.VAT, g.EcoTax, g.ID,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return taxGroupNotFound()
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update tax group", err)
	}
	return nil
}

// IsAssigned reports whether any user references the tax group.
func (r *TaxGroupRepository) IsAssigned(ctx context.Context, id string) (bool, error) {
	var assigned bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE tax_group_id = $1)`, id).Scan(&assigned); err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check tax group assignment", err)
	}
	return assigned, nil
}

// Delete removes a tax group.
func (r *TaxGroupRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tax_groups WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeConflictTaxGroupInUse,
				"Cannot delete a tax group that is assigned to one or more users.", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete tax group", err)
	}
	if tag.RowsAffected() == 0 {
		return taxGroupNotFound()
	}
	return nil
}
