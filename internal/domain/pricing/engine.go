package pricing

import (
	"math"
	"sort"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// Bounds clamps the rule-adjusted price when enabled. Clamping shows up in
// the breakdown as an explicit entry so totals stay consistent.
type Bounds struct {
	Enabled       bool  `json:"enabled"`
	MinPriceCents int64 `json:"min_price_cents"`
	MaxPriceCents int64 `json:"max_price_cents"`
}

// Breakdown itemizes rule adjustments by category, in cents. The fields sum
// exactly to FinalPrice − BasePrice of the Outcome they belong to.
type Breakdown struct {
	SeasonalAdjustment     int64 `json:"seasonal_adjustment"`
	PeakTimeAdjustment     int64 `json:"peak_time_adjustment"`
	CapacityAdjustment     int64 `json:"capacity_adjustment"`
	SpecialEventAdjustment int64 `json:"special_event_adjustment"`
	OtherAdjustments       int64 `json:"other_adjustments"`
	ClampAdjustment        int64 `json:"clamp_adjustment"`
}

// Total returns the sum of all breakdown fields.
func (b Breakdown) Total() int64 {
	return b.SeasonalAdjustment + b.PeakTimeAdjustment + b.CapacityAdjustment +
		b.SpecialEventAdjustment + b.OtherAdjustments + b.ClampAdjustment
}

// AppliedRule records one rule's effect on the running price.
type AppliedRule struct {
	RuleName string   `json:"rule_name"`
	RuleType RuleType `json:"rule_type"`
	Delta    int64    `json:"delta_cents"`
}

// Outcome is the result of running the rule engine over a base price.
type Outcome struct {
	BasePriceCents  int64         `json:"base_price_cents"`
	FinalPriceCents int64         `json:"final_price_cents"`
	Breakdown       Breakdown     `json:"breakdown"`
	Applied         []AppliedRule `json:"applied,omitempty"`
}

// Engine applies ordered pricing rules to a base price.
type Engine struct {
	bounds Bounds
}

// NewEngine creates an Engine with the given clamp bounds.
func NewEngine(bounds Bounds) *Engine {
	return &Engine{bounds: bounds}
}

// Apply filters rules to those matching ctx, sorts them ascending by
// priority, and applies every match in order. Each rule's delta is computed
// against the running price, so later rules compound on earlier adjustments.
// Rule validation failures abort the whole computation: billing correctness
// beats a degraded result.
func (e *Engine) Apply(basePriceCents int64, ctx Context, rules []Rule) (Outcome, error) {
	if basePriceCents < 0 {
		return Outcome{}, domain.NewValidationError("base price must not be negative")
	}

	matched := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return Outcome{}, err
		}
		if r.Matches(ctx) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})

	out := Outcome{BasePriceCents: basePriceCents}
	running := basePriceCents
	for _, r := range matched {
		delta := r.delta(running)
		running += delta
		out.Applied = append(out.Applied, AppliedRule{
			RuleName: r.Name,
			RuleType: r.Type,
			Delta:    delta,
		})
		switch r.Type {
		case RuleSeasonal:
			out.Breakdown.SeasonalAdjustment += delta
		case RulePeakTime:
			out.Breakdown.PeakTimeAdjustment += delta
		case RuleCapacityBased:
			out.Breakdown.CapacityAdjustment += delta
		case RuleSpecialEvent:
			out.Breakdown.SpecialEventAdjustment += delta
		default:
			out.Breakdown.OtherAdjustments += delta
		}
	}

	running += e.clampDelta(running, &out.Breakdown)
	out.FinalPriceCents = running
	return out, nil
}

// delta computes the rule's adjustment against the running price.
func (r Rule) delta(runningCents int64) int64 {
	if r.AdjustmentType == AdjustPercentage {
		return int64(math.Round(float64(runningCents) * r.AdjustmentValue / 100))
	}
	return int64(math.Round(r.AdjustmentValue))
}

// clampDelta returns the correction needed to bring the price inside the
// configured bounds, recording it in the breakdown. A negative final price is
// always clamped to zero even when bounds are disabled.
func (e *Engine) clampDelta(runningCents int64, b *Breakdown) int64 {
	clamped := runningCents
	if e.bounds.Enabled {
		if clamped < e.bounds.MinPriceCents {
			clamped = e.bounds.MinPriceCents
		}
		if e.bounds.MaxPriceCents > 0 && clamped > e.bounds.MaxPriceCents {
			clamped = e.bounds.MaxPriceCents
		}
	}
	if clamped < 0 {
		clamped = 0
	}
	delta := clamped - runningCents
	b.ClampAdjustment += delta
	return delta
}
