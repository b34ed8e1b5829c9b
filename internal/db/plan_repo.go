package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"powerplan/internal/types"
)

// PlanRepository provides data access for plans and their price tiers.
type PlanRepository struct {
	db DBTX
}

// NewPlanRepository creates a PlanRepository over a pool or transaction.
func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `p.id, p.name, p.discount, p.created_at, p.updated_at`

const tierColumns = `t.id, t.plan_id, t.price, t.threshold`

// tierOrder matches the calculator: ascending threshold, open tier last.
const tierOrder = `t.threshold ASC NULLS LAST, t.id`

func scanPlan(row pgx.Row) (*types.Plan, error) {
	var p types.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Discount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tiers = []types.PriceTier{}
	return &p, nil
}

func scanTier(row pgx.Row) (planID string, t types.PriceTier, err error) {
	err = row.Scan(&t.ID, &planID, &t.Price, &t.Threshold)
	return planID, t, err
}

// List returns every plan with its tiers, oldest first.
func (r *PlanRepository) List(ctx context.Context) ([]types.Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM plans p ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list plans", err)
	}
	defer rows.Close()

	plans := []types.Plan{}
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan plan", err)
		}
		index[p.ID] = len(plans)
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list plans", err)
	}
	rows.Close()

	if len(plans) == 0 {
		return plans, nil
	}

	tierRows, err := r.db.Query(ctx, `SELECT `+tierColumns+` FROM price_tiers t ORDER BY t.plan_id, `+tierOrder)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list price tiers", err)
	}
	defer tierRows.Close()

	for tierRows.Next() {
		planID, tier, err := scanTier(tierRows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan price tier", err)
		}
		// A plan inserted between the two queries has no entry yet.
		if i, ok := index[planID]; ok {
			plans[i].Tiers = append(plans[i].Tiers, tier)
		}
	}
	if err := tierRows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list price tiers", err)
	}
	return plans, nil
}

// GetByID returns one plan with its tiers, or not_found_plan.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*types.Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlan, "Plan not found.", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plan", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+tierColumns+` FROM price_tiers t WHERE t.plan_id = $1 ORDER BY `+tierOrder, id)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve price tiers", err)
	}
	defer rows.Close()

	for rows.Next() {
		_, tier, err := scanTier(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan price tier", err)
		}
		p.Tiers = append(p.Tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve price tiers", err)
	}
	return p, nil
}

// Exists reports whether a plan with id is stored.
func (r *PlanRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM plans WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check plan", err)
	}
	return exists, nil
}

// Insert stores the plan row and all of its tiers. Every tier must already
// carry an ID. Callers run it inside a transaction.
func (r *PlanRepository) Insert(ctx context.Context, p *types.Plan) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO plans (id, name, discount) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Discount,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create plan", err)
	}

	for _, t := range p.Tiers {
		if err := r.InsertTier(ctx, p.ID, t); err != nil {
			return err
		}
	}
	return nil
}

// UpdateHeader rewrites name and discount and bumps updated_at.
func (r *PlanRepository) UpdateHeader(ctx context.Context, p *types.Plan) error {
	err := r.db.QueryRow(ctx,
		`UPDATE plans SET name = $1, discount = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING created_at, updated_at`,
		p.Name, p.Discount, p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodeNotFoundPlan, "Plan not found.", nil)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan", err)
	}
	return nil
}

// InsertTier adds one tier to a plan.
func (r *PlanRepository) InsertTier(ctx context.Context, planID string, t types.PriceTier) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO price_tiers (id, plan_id, price, threshold) VALUES ($1, $2, $3, $4)`,
		t.ID, planID, t.Price, t.Threshold,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create price tier", err)
	}
	return nil
}

// UpdateTier rewrites price and threshold of a tier that belongs to planID.
func (r *PlanRepository) UpdateTier(ctx context.Context, planID string, t types.PriceTier) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE price_tiers SET price = $1, threshold = $2 WHERE id = $3 AND plan_id = $4`,
		t.Price, t.Threshold, t.ID, planID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update price tier", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlan, "Price tier not found.", nil)
	}
	return nil
}

// DeleteTiers removes the given tiers from a plan.
func (r *PlanRepository) DeleteTiers(ctx context.Context, planID string, tierIDs []string) error {
	if len(tierIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM price_tiers WHERE plan_id = $1 AND id = ANY($2)`,
		planID, tierIDs,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete price tiers", err)
	}
	return nil
}

// IsAssigned reports whether any user subscribes to the plan.
func (r *PlanRepository) IsAssigned(ctx context.Context, id string) (bool, error) {
	var assigned bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE plan_id = $1)`, id).Scan(&assigned); err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check plan assignment", err)
	}
	return assigned, nil
}

// Delete removes a plan; its tiers go with it through ON DELETE CASCADE.
// A foreign key violation means a user was assigned concurrently.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeConflictPlanInUse,
				"Cannot delete a plan that is assigned to one or more users.", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete plan", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlan, "Plan not found.", nil)
	}
	return nil
}
