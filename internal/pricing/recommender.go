package pricing

import (
	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

// MsgNoPlans is returned when there is nothing to recommend.
const MsgNoPlans = "No plans available to recommend."

// Recommendation is the cheapest plan for a consumption and tax group, with
// the total it would bill.
type Recommendation struct {
	Plan  types.Plan      `json:"plan"`
	Total decimal.Decimal `json:"total_price"`
}

// Recommend prices every plan and returns the cheapest. Comparison is strict,
// so among plans with an identical total the one listed first wins. An empty
// plan set yields a not_found_plan error.
func Recommend(consumption decimal.Decimal, tg types.TaxGroup, plans []types.Plan) (Recommendation, error) {
	if len(plans) == 0 {
		return Recommendation{}, types.NewAppError(types.ErrCodeNotFoundPlan, MsgNoPlans, nil)
	}

	best := -1
	var bestTotal decimal.Decimal
	for i := range plans {
		total := CalculateTotal(plans[i], consumption, tg)
		if best < 0 || total.LessThan(bestTotal) {
			best = i
			bestTotal = total
		}
	}

	return Recommendation{Plan: plans[best], Total: bestTotal}, nil
}
