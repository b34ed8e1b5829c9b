package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"powerplan/internal/types"
)

// --- Plan store ---

type mockPlanStore struct {
	mock.Mock
}

func (m *mockPlanStore) List(ctx context.Context) ([]types.Plan, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]types.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlanStore) GetByID(ctx context.Context, id string) (*types.Plan, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*types.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlanStore) IsAssigned(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockPlanStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Plan writer and tx manager ---

type mockPlanWriter struct {
	mock.Mock
}

func (m *mockPlanWriter) GetByID(ctx context.Context, id string) (*types.Plan, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*types.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlanWriter) Insert(ctx context.Context, p *types.Plan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPlanWriter) UpdateHeader(ctx context.Context, p *types.Plan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPlanWriter) InsertTier(ctx context.Context, planID string, t types.PriceTier) error {
	return m.Called(ctx, planID, t).Error(0)
}

func (m *mockPlanWriter) UpdateTier(ctx context.Context, planID string, t types.PriceTier) error {
	return m.Called(ctx, planID, t).Error(0)
}

func (m *mockPlanWriter) DeleteTiers(ctx context.Context, planID string, tierIDs []string) error {
	return m.Called(ctx, planID, tierIDs).Error(0)
}

// inlineTx runs the callback directly against a writer and counts calls.
type inlineTx struct {
	writer PlanWriter
	calls  int
}

func (t *inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context, w PlanWriter) error) error {
	t.calls++
	return fn(ctx, t.writer)
}

// --- Tax group store ---

type mockTaxGroupStore struct {
	mock.Mock
}

func (m *mockTaxGroupStore) GetByID(ctx context.Context, id string) (*types.TaxGroup, error) {
	args := m.Called(ctx, id)
	if g := args.Get(0); g != nil {
		return g.(*types.TaxGroup), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaxGroupStore) List(ctx context.Context) ([]types.TaxGroup, error) {
	args := m.Called(ctx)
	if g := args.Get(0); g != nil {
		return g.([]types.TaxGroup), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaxGroupStore) Create(ctx context.Context, g *types.TaxGroup) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockTaxGroupStore) Update(ctx context.Context, g *types.TaxGroup) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockTaxGroupStore) IsAssigned(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockTaxGroupStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Clock ---

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// --- Fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs returns prefix + 1, prefix + 2, ...
func sequentialIDs() func(prefix string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bound(v int64) *int64 { return &v }

func tier(id string, price string, threshold *int64) types.PriceTier {
	return types.PriceTier{ID: id, Price: dec(price), Threshold: threshold}
}

func openPlan(id, name, price string) types.Plan {
	return types.Plan{ID: id, Name: name, Tiers: []types.PriceTier{tier(id+"_open", price, nil)}}
}

func taxGroup(id, vat, eco string) *types.TaxGroup {
	return &types.TaxGroup{ID: id, Name: "Group " + id, VAT: dec(vat), EcoTax: dec(eco)}
}
