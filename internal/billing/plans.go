package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"powerplan/internal/pricing"
	"powerplan/internal/types"
)

// Tier merge messages.
const (
	MsgForeignTier  = "Price tier does not belong to this plan."
	MsgRepeatedTier = "Price tier is listed more than once."
)

// PlanInput is a plan candidate as submitted by an admin. Tier IDs are only
// meaningful on update, where they select the stored tier to rewrite.
type PlanInput struct {
	Name     string
	Discount *decimal.Decimal
	Tiers    []types.PriceTier
}

func (in PlanInput) toPlan(id string) types.Plan {
	return types.Plan{ID: id, Name: in.Name, Discount: in.Discount, Tiers: in.Tiers}
}

// PlanService manages plans and answers pricing questions about them.
type PlanService struct {
	store     PlanStore
	tx        PlanTxManager
	taxGroups TaxGroupReader
	catalog   *PlanCatalog
	newID     func(prefix string) string
	logger    *slog.Logger
}

// PlanServiceConfig holds the dependencies for NewPlanService.
type PlanServiceConfig struct {
	Store     PlanStore
	TxManager PlanTxManager
	TaxGroups TaxGroupReader
	Catalog   *PlanCatalog
	// IDGenerator defaults to prefix + random UUID.
	IDGenerator func(prefix string) string
	Logger      *slog.Logger
}

// NewPlanService creates a PlanService. A nil Catalog reads plans straight
// from Store.
func NewPlanService(cfg PlanServiceConfig) *PlanService {
	newID := cfg.IDGenerator
	if newID == nil {
		newID = func(prefix string) string { return prefix + uuid.New().String() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = NewPlanCatalog(CatalogConfig{Source: cfg.Store, Logger: logger})
	}
	return &PlanService{
		store:     cfg.Store,
		tx:        cfg.TxManager,
		taxGroups: cfg.TaxGroups,
		catalog:   catalog,
		newID:     newID,
		logger:    logger,
	}
}

// List returns every plan with tiers in billing order.
func (s *PlanService) List(ctx context.Context) ([]types.Plan, error) {
	plans, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].Tiers = pricing.OrderTiers(plans[i].Tiers)
	}
	return plans, nil
}

// Get returns one plan with tiers in billing order.
func (s *PlanService) Get(ctx context.Context, id string) (*types.Plan, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Tiers = pricing.OrderTiers(p.Tiers)
	return p, nil
}

// Create validates the candidate and stores it with fresh IDs.
func (s *PlanService) Create(ctx context.Context, in PlanInput) (*types.Plan, error) {
	if err := pricing.Validate(in.toPlan("")); err != nil {
		return nil, err
	}

	plan := in.toPlan(s.newID("plan_"))
	plan.Tiers = make([]types.PriceTier, len(in.Tiers))
	for i, t := range in.Tiers {
		plan.Tiers[i] = types.PriceTier{ID: s.newID("tier_"), Price: t.Price, Threshold: t.Threshold}
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, w PlanWriter) error {
		return w.Insert(ctx, &plan)
	})
	if err != nil {
		return nil, err
	}

	s.catalog.Invalidate()
	s.logger.InfoContext(ctx, "plan created", "plan_id", plan.ID, "tiers", len(plan.Tiers))
	plan.Tiers = pricing.OrderTiers(plan.Tiers)
	return &plan, nil
}

// Update validates the candidate with the same rules as Create, then merges
// tiers by ID in one transaction: tiers with a known ID are rewritten, tiers
// without ID are inserted, and stored tiers missing from the candidate are
// deleted.
func (s *PlanService) Update(ctx context.Context, id string, in PlanInput) (*types.Plan, error) {
	if err := pricing.Validate(in.toPlan(id)); err != nil {
		return nil, err
	}

	var updated *types.Plan
	err := s.tx.RunInTx(ctx, func(ctx context.Context, w PlanWriter) error {
		current, err := w.GetByID(ctx, id)
		if err != nil {
			return err
		}

		stored := make(map[string]struct{}, len(current.Tiers))
		for _, t := range current.Tiers {
			stored[t.ID] = struct{}{}
		}

		var toUpdate, toInsert []types.PriceTier
		kept := make(map[string]struct{}, len(in.Tiers))
		for _, t := range in.Tiers {
			if t.ID == "" {
				t.ID = s.newID("tier_")
				toInsert = append(toInsert, t)
				continue
			}
			if _, ok := stored[t.ID]; !ok {
				return types.NewAppErrorWithDetails(types.ErrCodeValidationPlan, MsgForeignTier, nil,
					map[string]any{"tier_id": t.ID})
			}
			if _, dup := kept[t.ID]; dup {
				return types.NewAppErrorWithDetails(types.ErrCodeValidationPlan, MsgRepeatedTier, nil,
					map[string]any{"tier_id": t.ID})
			}
			kept[t.ID] = struct{}{}
			toUpdate = append(toUpdate, t)
		}

		var toDelete []string
		for _, t := range current.Tiers {
			if _, ok := kept[t.ID]; !ok {
				toDelete = append(toDelete, t.ID)
			}
		}

		plan := in.toPlan(id)
		if err := w.UpdateHeader(ctx, &plan); err != nil {
			return err
		}
		if err := w.DeleteTiers(ctx, id, toDelete); err != nil {
			return err
		}
		for _, t := range toUpdate {
			if err := w.UpdateTier(ctx, id, t); err != nil {
				return err
			}
		}
		for _, t := range toInsert {
			if err := w.InsertTier(ctx, id, t); err != nil {
				return err
			}
		}

		plan.Tiers = pricing.OrderTiers(append(toUpdate, toInsert...))
		updated = &plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.catalog.Invalidate()
	s.logger.InfoContext(ctx, "plan updated", "plan_id", id, "tiers", len(updated.Tiers))
	return updated, nil
}

// Delete removes a plan unless a user is subscribed to it.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	assigned, err := s.store.IsAssigned(ctx, id)
	if err != nil {
		return err
	}
	if assigned {
		return types.NewAppError(types.ErrCodeConflictPlanInUse,
			"Cannot delete a plan that is assigned to one or more users.", nil)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.catalog.Invalidate()
	s.logger.InfoContext(ctx, "plan deleted", "plan_id", id)
	return nil
}

// Recommend returns the cheapest stored plan for consumption under the given
// tax group. Stored plans that no longer pass validation are skipped.
func (s *PlanService) Recommend(ctx context.Context, consumption decimal.Decimal, taxGroupID string) (pricing.Recommendation, error) {
	tg, err := s.taxGroups.GetByID(ctx, taxGroupID)
	if err != nil {
		return pricing.Recommendation{}, err
	}

	plans, err := s.catalog.Plans(ctx)
	if err != nil {
		return pricing.Recommendation{}, err
	}

	rec, err := pricing.Recommend(consumption, *tg, s.usable(ctx, plans))
	if err != nil {
		return pricing.Recommendation{}, err
	}
	rec.Plan = rec.Plan.Clone()
	rec.Plan.Tiers = pricing.OrderTiers(rec.Plan.Tiers)
	return rec, nil
}

// Quote prices consumption under one stored plan and tax group and returns
// the per-tier breakdown.
func (s *PlanService) Quote(ctx context.Context, planID string, consumption decimal.Decimal, taxGroupID string) (pricing.Breakdown, error) {
	plan, err := s.store.GetByID(ctx, planID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if err := pricing.Validate(*plan); err != nil {
		s.logger.WarnContext(ctx, "stored plan fails validation", "plan_id", plan.ID, "error", err)
		return pricing.Breakdown{}, err
	}

	tg, err := s.taxGroups.GetByID(ctx, taxGroupID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.Quote(*plan, consumption, *tg), nil
}

// usable drops plans that fail validation. Persisted plans normally pass, but
// rows edited outside the API could lack an open tier, which would price the
// overflow at zero.
func (s *PlanService) usable(ctx context.Context, plans []types.Plan) []types.Plan {
	out := make([]types.Plan, 0, len(plans))
	for _, p := range plans {
		if err := pricing.Validate(p); err != nil {
			s.logger.WarnContext(ctx, "skipping invalid stored plan", "plan_id", p.ID, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}
