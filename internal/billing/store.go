// Package billing holds the plan and tax group services that sit between the
// HTTP handlers and the repositories. Plan writes go through the shared
// pricing.Validate, and recommendations read plans through a breaker-guarded
// catalog.
package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"powerplan/internal/db"
	"powerplan/internal/types"
)

// PlanReader loads stored plans with their tiers.
type PlanReader interface {
	List(ctx context.Context) ([]types.Plan, error)
	GetByID(ctx context.Context, id string) (*types.Plan, error)
}

// PlanStore is the non-transactional plan data access used by PlanService.
type PlanStore interface {
	PlanReader
	IsAssigned(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// PlanWriter is the transaction-scoped plan data access used for creates and
// tier merges.
type PlanWriter interface {
	GetByID(ctx context.Context, id string) (*types.Plan, error)
	Insert(ctx context.Context, p *types.Plan) error
	UpdateHeader(ctx context.Context, p *types.Plan) error
	InsertTier(ctx context.Context, planID string, t types.PriceTier) error
	UpdateTier(ctx context.Context, planID string, t types.PriceTier) error
	DeleteTiers(ctx context.Context, planID string, tierIDs []string) error
}

// PlanTxManager runs fn with a PlanWriter bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type PlanTxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, w PlanWriter) error) error
}

// TaxGroupReader resolves tax groups.
type TaxGroupReader interface {
	GetByID(ctx context.Context, id string) (*types.TaxGroup, error)
}

// TaxGroupStore is the tax group data access used by TaxGroupService.
type TaxGroupStore interface {
	TaxGroupReader
	List(ctx context.Context) ([]types.TaxGroup, error)
	Create(ctx context.Context, g *types.TaxGroup) error
	Update(ctx context.Context, g *types.TaxGroup) error
	IsAssigned(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// pgPlanTx implements PlanTxManager over a pgx pool.
type pgPlanTx struct {
	db db.TxBeginner
}

// NewPlanTxManager returns a PlanTxManager that opens transactions on pool.
func NewPlanTxManager(pool db.TxBeginner) PlanTxManager {
	return &pgPlanTx{db: pool}
}

// RunInTx passes application errors from fn through untouched and wraps
// driver failures (begin, commit) as internal_database_error.
func (m *pgPlanTx) RunInTx(ctx context.Context, fn func(ctx context.Context, w PlanWriter) error) error {
	err := pgx.BeginFunc(ctx, m.db, func(tx pgx.Tx) error {
		return fn(ctx, db.NewPlanRepository(tx))
	})
	var appErr *types.AppError
	if err != nil && !errors.As(err, &appErr) {
		return types.NewAppError(types.ErrCodeInternalDB, "plan transaction failed", err)
	}
	return err
}
