package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTier is one consumption band of a plan. A nil Threshold marks the
// open-ended tier that absorbs all consumption above the highest bounded tier.
type PriceTier struct {
	ID        string          `json:"id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Threshold *int64          `json:"threshold"`
}

// IsOpenEnded reports whether the tier has no upper bound.
func (t PriceTier) IsOpenEnded() bool {
	return t.Threshold == nil
}

// Plan is a tiered electricity pricing plan. Discount is a percentage in
// [0, 100]; nil means no discount.
type Plan struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Discount  *decimal.Decimal `json:"discount"`
	Tiers     []PriceTier      `json:"prices"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so callers can hand plans to concurrent readers
// without sharing the tier slice.
func (p Plan) Clone() Plan {
	out := p
	if p.Discount != nil {
		d := *p.Discount
		out.Discount = &d
	}
	out.Tiers = make([]PriceTier, len(p.Tiers))
	for i, t := range p.Tiers {
		out.Tiers[i] = t
		if t.Threshold != nil {
			th := *t.Threshold
			out.Tiers[i].Threshold = &th
		}
	}
	return out
}

// TaxGroup is a named pair of percentage rates applied on top of the
// discounted base cost.
type TaxGroup struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	VAT       decimal.Decimal `json:"vat"`
	EcoTax    decimal.Decimal `json:"eco_tax"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CombinedRate returns vat + eco tax, in percent.
func (g TaxGroup) CombinedRate() decimal.Decimal {
	return g.VAT.Add(g.EcoTax)
}

// User is a subscriber account. PlanName and TaxGroupName are populated by
// read queries that join the referenced rows.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        *string
	Role         UserRole
	Consumption  *decimal.Decimal
	TaxGroupID   *string
	TaxGroupName *string
	PlanID       *string
	PlanName     *string
	CreatedAt    time.Time
}

// UserPatch carries the optional fields of a user update. Nil fields are left
// unchanged.
type UserPatch struct {
	Username     *string
	PasswordHash *string
	Email        *string
	Consumption  *decimal.Decimal
	TaxGroupID   *string
	PlanID       *string
}

// GroupCount is one row of the user-count analytics.
type GroupCount struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"user_count"`
}
