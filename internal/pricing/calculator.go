package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

// Line is the share of consumption billed by a single tier.
type Line struct {
	TierID      string          `json:"tier_id,omitempty"`
	From        decimal.Decimal `json:"from"`
	UpTo        *int64          `json:"up_to"`
	Price       decimal.Decimal `json:"price"`
	Consumption decimal.Decimal `json:"consumption"`
	Cost        decimal.Decimal `json:"cost"`
}

// Breakdown is the full computation behind a total: tier lines, the base
// cost, the cost after discount, and the final amount after taxes.
type Breakdown struct {
	Consumption decimal.Decimal `json:"consumption"`
	Lines       []Line          `json:"lines"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	Discounted  decimal.Decimal `json:"discounted_cost"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Total       decimal.Decimal `json:"total"`
}

// CalculateTotal returns the exact amount billed for consumption under plan
// and tax group. Consumption at or below zero costs nothing.
func CalculateTotal(plan types.Plan, consumption decimal.Decimal, tg types.TaxGroup) decimal.Decimal {
	return Quote(plan, consumption, tg).Total
}

// Quote prices consumption like CalculateTotal and also reports how each tier
// contributed. Tiers are visited from the smallest threshold upwards with the
// open-ended tier last, independent of their order in plan.Tiers. The walk
// stops as soon as the consumption is exhausted.
func Quote(plan types.Plan, consumption decimal.Decimal, tg types.TaxGroup) Breakdown {
	if consumption.IsNegative() {
		consumption = decimal.Zero
	}

	b := Breakdown{
		Consumption: consumption,
		TaxRate:     tg.CombinedRate(),
		Lines:       []Line{},
	}

	remaining := consumption
	previous := decimal.Zero
	base := decimal.Zero

	for _, tier := range OrderTiers(plan.Tiers) {
		if !remaining.IsPositive() {
			break
		}

		inTier := remaining
		if tier.Threshold != nil {
			limit := decimal.NewFromInt(*tier.Threshold)
			inTier = decimal.Min(remaining, decimal.Max(limit.Sub(previous), decimal.Zero))
		}

		cost := inTier.Mul(tier.Price)
		base = base.Add(cost)
		b.Lines = append(b.Lines, Line{
			TierID:      tier.ID,
			From:        previous,
			UpTo:        tier.Threshold,
			Price:       tier.Price,
			Consumption: inTier,
			Cost:        cost,
		})

		remaining = remaining.Sub(inTier)
		if tier.Threshold != nil {
			previous = decimal.NewFromInt(*tier.Threshold)
		}
	}

	b.BaseCost = base
	b.Discounted = applyDiscount(base, plan.Discount)
	b.Total = applyTax(b.Discounted, b.TaxRate)
	return b
}

// applyDiscount multiplies by (1 - d/100) when d is present and positive.
func applyDiscount(amount decimal.Decimal, d *decimal.Decimal) decimal.Decimal {
	if d == nil || !d.IsPositive() {
		return amount
	}
	return amount.Mul(decimal.NewFromInt(1).Sub(d.Shift(-2)))
}

// applyTax multiplies by (1 + rate/100). Shift keeps the percentage exact.
func applyTax(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(rate.Shift(-2)))
}

// OrderTiers returns a copy of tiers sorted by ascending threshold with
// open-ended tiers last. Equal thresholds keep their input order.
func OrderTiers(tiers []types.PriceTier) []types.PriceTier {
	out := make([]types.PriceTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Threshold, out[j].Threshold
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}
