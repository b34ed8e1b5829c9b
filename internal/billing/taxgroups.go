package billing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

// Tax group validation messages.
const (
	MsgTaxGroupName = "Tax group name cannot be empty."
	MsgVAT          = "VAT must not be negative."
	MsgEcoTax       = "Eco tax must not be negative."
)

// TaxGroupInput is a tax group candidate.
type TaxGroupInput struct {
	Name   string
	VAT    decimal.Decimal
	EcoTax decimal.Decimal
}

// ValidateTaxGroup checks a candidate for both create and update. Zero rates
// are allowed.
func ValidateTaxGroup(in TaxGroupInput) error {
	var msg, field string
	switch {
	case strings.TrimSpace(in.Name) == "":
		msg, field = MsgTaxGroupName, "name"
	case in.VAT.IsNegative():
		msg, field = MsgVAT, "vat"
	case in.EcoTax.IsNegative():
		msg, field = MsgEcoTax, "eco_tax"
	default:
		return nil
	}
	return types.NewAppErrorWithDetails(types.ErrCodeValidationTaxGroup, msg, nil, map[string]any{"field": field})
}

// TaxGroupService manages tax groups.
type TaxGroupService struct {
	store  TaxGroupStore
	newID  func(prefix string) string
	logger *slog.Logger
}

// NewTaxGroupService creates a TaxGroupService. A nil newID uses prefixed
// random UUIDs; a nil logger uses slog.Default.
func NewTaxGroupService(store TaxGroupStore, newID func(prefix string) string, logger *slog.Logger) *TaxGroupService {
	if newID == nil {
		newID = func(prefix string) string { return prefix + uuid.New().String() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxGroupService{store: store, newID: newID, logger: logger}
}

func (s *TaxGroupService) List(ctx context.Context) ([]types.TaxGroup, error) {
	return s.store.List(ctx)
}

func (s *TaxGroupService) Get(ctx context.Context, id string) (*types.TaxGroup, error) {
	return s.store.GetByID(ctx, id)
}

// Create validates and stores a new tax group.
func (s *TaxGroupService) Create(ctx context.Context, in TaxGroupInput) (*types.TaxGroup, error) {
	if err := ValidateTaxGroup(in); err != nil {
		return nil, err
	}
	g := &types.TaxGroup{ID: s.newID("tg_"), Name: in.Name, VAT: in.VAT, EcoTax: in.EcoTax}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tax group created", "tax_group_id", g.ID)
	return g, nil
}

// Update validates and rewrites an existing tax group.
func (s *TaxGroupService) Update(ctx context.Context, id string, in TaxGroupInput) (*types.TaxGroup, error) {
	if err := ValidateTaxGroup(in); err != nil {
		return nil, err
	}
	g := &types.TaxGroup{ID: id, Name: in.Name, VAT: in.VAT, EcoTax: in.EcoTax}
	if err := s.store.Update(ctx, g); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tax group updated", "tax_group_id", id)
	return g, nil
}

// Delete removes a tax group unless a user references it.
func (s *TaxGroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	assigned, err := s.store.IsAssigned(ctx, id)
	if err != nil {
		return err
	}
	if assigned {
		return types.NewAppError(types.ErrCodeConflictTaxGroupInUse,
			"Cannot delete a tax group that is assigned to one or more users.", nil)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tax group deleted", "tax_group_id", id)
	return nil
}
