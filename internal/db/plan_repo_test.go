package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"powerplan/internal/types"
)

func int64p(v int64) *int64 { return &v }

func TestPlanRepository_List_AttachesTiers(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	discount := decimal.NewFromInt(10)

	db.On("Query", ctx, sqlContaining("FROM plans p"), []any(nil)).Return(newMockRows(
		[]any{"plan_a", "Basic", nil, now, now},
		[]any{"plan_b", "Saver", discount, now, now},
	), nil)
	db.On("Query", ctx, sqlContaining("FROM price_tiers t ORDER BY t.plan_id"), []any(nil)).Return(newMockRows(
		[]any{"tier_1", "plan_a", decimal.RequireFromString("0.10"), int64(100)},
		[]any{"tier_2", "plan_a", decimal.RequireFromString("0.08"), nil},
		[]any{"tier_3", "plan_b", decimal.RequireFromString("0.09"), nil},
		[]any{"tier_x", "plan_new", decimal.RequireFromString("0.50"), nil},
	), nil)

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "Basic", plans[0].Name)
	assert.Nil(t, plans[0].Discount)
	require.Len(t, plans[0].Tiers, 2)
	assert.Equal(t, int64(100), *plans[0].Tiers[0].Threshold)
	assert.True(t, plans[0].Tiers[1].IsOpenEnded())

	require.NotNil(t, plans[1].Discount)
	assert.True(t, plans[1].Discount.Equal(discount))
	require.Len(t, plans[1].Tiers, 1)
	assert.Equal(t, "tier_3", plans[1].Tiers[0].ID)

	db.AssertExpectations(t)
}

func TestPlanRepository_List_EmptySkipsTierQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	db.On("Query", mock.Anything, sqlContaining("FROM plans p"), mock.Anything).Return(newMockRows(), nil)

	plans, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
	db.AssertNumberOfCalls(t, "Query", 1)
}

func TestPlanRepository_List_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := repo.List(context.Background())
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestPlanRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	db.On("QueryRow", ctx, sqlContaining("FROM plans p WHERE p.id"), []any{"plan_a"}).
		Return(&mockRow{values: []any{"plan_a", "Basic", nil, now, now}})
	db.On("Query", ctx, sqlContaining("WHERE t.plan_id = $1"), []any{"plan_a"}).Return(newMockRows(
		[]any{"tier_1", "plan_a", decimal.RequireFromString("0.10"), int64(100)},
		[]any{"tier_2", "plan_a", decimal.RequireFromString("0.08"), nil},
	), nil)

	p, err := repo.GetByID(ctx, "plan_a")
	require.NoError(t, err)
	assert.Equal(t, "plan_a", p.ID)
	assert.Equal(t, now, p.CreatedAt)
	require.Len(t, p.Tiers, 2)
	assert.True(t, p.Tiers[0].Price.Equal(decimal.RequireFromString("0.10")))

	db.AssertExpectations(t)
}

func TestPlanRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	db.On("QueryRow", mock.Anything, mock.Anything, []any{"plan_missing"}).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "plan_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPlan, appErr.Code)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRepository_Insert_WritesPlanAndTiers(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	plan := &types.Plan{
		ID:   "plan_a",
		Name: "Basic",
		Tiers: []types.PriceTier{
			{ID: "tier_1", Price: decimal.RequireFromString("0.10"), Threshold: int64p(100)},
			{ID: "tier_2", Price: decimal.RequireFromString("0.08")},
		},
	}

	db.On("QueryRow", ctx, sqlContaining("INSERT INTO plans"), []any{"plan_a", "Basic", (*decimal.Decimal)(nil)}).
		Return(&mockRow{values: []any{now, now}})
	db.On("Exec", ctx, sqlContaining("INSERT INTO price_tiers"), mock.Anything).
		Return(commandTag("INSERT 0 1"), nil).Twice()

	require.NoError(t, repo.Insert(ctx, plan))
	assert.Equal(t, now, plan.CreatedAt)
	assert.Equal(t, now, plan.UpdatedAt)
	db.AssertExpectations(t)
}

func TestPlanRepository_UpdateHeader_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	db.On("QueryRow", mock.Anything, sqlContaining("UPDATE plans"), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	err := repo.UpdateHeader(context.Background(), &types.Plan{ID: "plan_missing", Name: "x"})
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundPlan))
}

func TestPlanRepository_UpdateTier_ScopedToPlan(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)
	ctx := context.Background()
	tier := types.PriceTier{ID: "tier_9", Price: decimal.NewFromInt(1)}

	db.On("Exec", ctx, sqlContaining("UPDATE price_tiers"), []any{tier.Price, (*int64)(nil), "tier_9", "plan_a"}).
		Return(commandTag("UPDATE 0"), nil)

	err := repo.UpdateTier(ctx, "plan_a", tier)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundPlan))
	db.AssertExpectations(t)
}

func TestPlanRepository_DeleteTiers_NoopWhenEmpty(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	require.NoError(t, repo.DeleteTiers(context.Background(), "plan_a", nil))
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRepository_DeleteTiers(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContaining("DELETE FROM price_tiers"), []any{"plan_a", []string{"tier_1", "tier_2"}}).
		Return(commandTag("DELETE 2"), nil)

	require.NoError(t, repo.DeleteTiers(ctx, "plan_a", []string{"tier_1", "tier_2"}))
	db.AssertExpectations(t)
}

func TestPlanRepository_IsAssigned(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPlanRepository(db)

	db.On("QueryRow", mock.Anything, sqlContaining("users WHERE plan_id"), []any{"plan_a"}).
		Return(&mockRow{values: []any{true}})

	assigned, err := repo.IsAssigned(context.Background(), "plan_a")
	require.NoError(t, err)
	assert.True(t, assigned)
}

func TestPlanRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		execErr  error
		wantCode types.ErrorCode
	}{
		{name: "deleted", tag: "DELETE 1"},
		{name: "missing", tag: "DELETE 0", wantCode: types.ErrCodeNotFoundPlan},
		{name: "referenced", execErr: pgError("23503"), wantCode: types.ErrCodeConflictPlanInUse},
		{name: "driver failure", execErr: errors.New("broken pipe"), wantCode: types.ErrCodeInternalDB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewPlanRepository(db)
			db.On("Exec", mock.Anything, sqlContaining("DELETE FROM plans"), []any{"plan_a"}).
				Return(commandTag(tt.tag), tt.execErr)

			err := repo.Delete(context.Background(), "plan_a")
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, types.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}
