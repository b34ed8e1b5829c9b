// Package pricing implements the tiered cost engine: plan validation, total
// cost calculation, and cheapest-plan recommendation.
//
// Everything here is a pure function over values. No function mutates the
// plans or tax groups it receives, so a single plan snapshot may be priced
// from any number of goroutines at once. All money and percentages are
// shopspring/decimal values; nothing is converted to float64.
//
// A plan must pass Validate before it is stored. CalculateTotal and Recommend
// trust their input and do not re-check it; callers that read plans back from
// storage re-validate at that boundary instead.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

// Validation messages, in the order the checks run. The first failing check
// wins.
const (
	MsgNoTiers             = "The plan must have at least one price tier."
	MsgDuplicateThresholds = "Duplicate thresholds are not allowed."
	MsgNonPositivePrice    = "Price cannot be negative or 0."
	MsgEmptyName           = "Plan name cannot be empty."
	MsgDiscountRange       = "Discount must be between 0 and 100."
	MsgNonPositiveBound    = "Thresholds must be positive numbers."
	MsgOpenTierRequired    = "There must be an open ended threshold in the plan"
)

var hundred = decimal.NewFromInt(100)

// planCheck is one structural rule. It returns false when the plan violates it.
type planCheck struct {
	rule    string
	message string
	ok      func(p types.Plan) bool
}

// planChecks run in a fixed order; clients rely on seeing the same message
// for the same invalid plan.
var planChecks = []planCheck{
	{"tiers_required", MsgNoTiers, func(p types.Plan) bool {
		return len(p.Tiers) > 0
	}},
	{"thresholds_unique", MsgDuplicateThresholds, thresholdsUnique},
	{"price_positive", MsgNonPositivePrice, func(p types.Plan) bool {
		for _, t := range p.Tiers {
			if !t.Price.IsPositive() {
				return false
			}
		}
		return true
	}},
	{"name_required", MsgEmptyName, func(p types.Plan) bool {
		return strings.TrimSpace(p.Name) != ""
	}},
	{"discount_range", MsgDiscountRange, func(p types.Plan) bool {
		if p.Discount == nil {
			return true
		}
		return !p.Discount.IsNegative() && p.Discount.LessThanOrEqual(hundred)
	}},
	{"threshold_positive", MsgNonPositiveBound, func(p types.Plan) bool {
		for _, t := range p.Tiers {
			if t.Threshold != nil && *t.Threshold <= 0 {
				return false
			}
		}
		return true
	}},
	{"open_tier_required", MsgOpenTierRequired, func(p types.Plan) bool {
		open := 0
		for _, t := range p.Tiers {
			if t.IsOpenEnded() {
				open++
			}
		}
		return open == 1
	}},
}

// thresholdsUnique treats two open-ended tiers as sharing a threshold.
func thresholdsUnique(p types.Plan) bool {
	seen := make(map[int64]struct{}, len(p.Tiers))
	open := 0
	for _, t := range p.Tiers {
		if t.Threshold == nil {
			open++
			if open > 1 {
				return false
			}
			continue
		}
		if _, dup := seen[*t.Threshold]; dup {
			return false
		}
		seen[*t.Threshold] = struct{}{}
	}
	return true
}

// Validate checks the structural invariants of a plan candidate and returns a
// *types.AppError with code validation_plan_invalid describing the first
// violation. IDs and timestamps are ignored, so the same function serves both
// create and update flows.
func Validate(p types.Plan) error {
	for _, c := range planChecks {
		if !c.ok(p) {
			return types.NewAppErrorWithDetails(
				types.ErrCodeValidationPlan,
				c.message,
				nil,
				map[string]any{"rule": c.rule},
			)
		}
	}
	return nil
}
