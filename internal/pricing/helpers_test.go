package pricing

import (
	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bound(n int64) *int64 { return &n }

func tier(price string, threshold *int64) types.PriceTier {
	return types.PriceTier{Price: d(price), Threshold: threshold}
}

func plan(name string, discount *decimal.Decimal, tiers ...types.PriceTier) types.Plan {
	return types.Plan{ID: "plan_" + name, Name: name, Discount: discount, Tiers: tiers}
}

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func taxGroup(vat, eco string) types.TaxGroup {
	return types.TaxGroup{ID: "tg_1", Name: "Standard", VAT: d(vat), EcoTax: d(eco)}
}
