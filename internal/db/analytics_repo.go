package db

import (
	"context"

	"powerplan/internal/types"
)

// AnalyticsRepository answers the admin user-count queries.
type AnalyticsRepository struct {
	db DBTX
}

// NewAnalyticsRepository creates an AnalyticsRepository.
func NewAnalyticsRepository(db DBTX) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountByTaxGroup returns one row per tax group, including groups nobody uses.
func (r *AnalyticsRepository) CountByTaxGroup(ctx context.Context) ([]types.GroupCount, error) {
	return r.counts(ctx, "tax group",
		`SELECT tg.id, tg.name, COUNT(u.id)
		 FROM tax_groups tg
		 LEFT JOIN users u ON u.tax_group_id = tg.id
		 GROUP BY tg.id, tg.name
		 ORDER BY tg.name, tg.id`)
}

// CountByPlan returns one row per plan, including plans nobody uses.
func (r *AnalyticsRepository) CountByPlan(ctx context.Context) ([]types.GroupCount, error) {
	return r.counts(ctx, "plan",
		`SELECT p.id, p.name, COUNT(u.id)
		 FROM plans p
		 LEFT JOIN users u ON u.plan_id = p.id
		 GROUP BY p.id, p.name
		 ORDER BY p.name, p.id`)
}

func (r *AnalyticsRepository) counts(ctx context.Context, what, query string) ([]types.GroupCount, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count users by "+what, err)
	}
	defer rows.Close()

	out := []types.GroupCount{}
	for rows.Next() {
		var c types.GroupCount
		if err := rows.Scan(&c.ID, &c.Name, &c.UserCount); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan "+what+" count", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count users by "+what, err)
	}
	return out, nil
}
