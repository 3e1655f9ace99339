package loyalty

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// Tier is a points-threshold membership level.
type Tier struct {
	Name               string  `json:"name"`
	MinPoints          int64   `json:"min_points"`
	PointsMultiplier   float64 `json:"points_multiplier"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// Account is a customer's loyalty state. LifetimePoints only ever grows;
// spending and expiry deduct from CurrentPoints alone, so tier standing is
// monotonic.
type Account struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	CurrentPoints  int64     `json:"current_points"`
	LifetimePoints int64     `json:"lifetime_points"`
}

// EarningRule awards points for a completed booking. A rule scoped to
// specific services only fires when the booking's service matches.
type EarningRule struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	ServiceIDs      []uuid.UUID `json:"service_ids,omitempty"`
	PointsPerDollar float64     `json:"points_per_dollar"`
	BonusPoints     int64       `json:"bonus_points"`
}

// RedemptionOption converts points into a discount.
type RedemptionOption struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	PointsCost          int64     `json:"points_cost"`
	DiscountCents       int64     `json:"discount_cents"`
	MinPurchaseCents    int64     `json:"min_purchase_cents"`
	MaxRedemptionsTotal int64     `json:"max_redemptions_total"`
	MaxPerCustomer      int64     `json:"max_per_customer"`
}

// Config is the tenant's loyalty program snapshot.
type Config struct {
	Tiers        []Tier        `json:"tiers"`
	EarningRules []EarningRule `json:"earning_rules"`
}

// Engine exposes tier lookup, point earning and redemption validation.
type Engine struct {
	config Config
}

// NewEngine creates an Engine over a loyalty config snapshot. Tiers are
// sorted ascending by MinPoints once up front.
func NewEngine(config Config) *Engine {
	sorted := make([]Tier, len(config.Tiers))
	copy(sorted, config.Tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPoints < sorted[j].MinPoints
	})
	config.Tiers = sorted
	return &Engine{config: config}
}

// TierFor returns the highest tier whose MinPoints threshold the account's
// lifetime points meet, or nil when no tier applies.
func (e *Engine) TierFor(account Account) *Tier {
	var current *Tier
	for i := range e.config.Tiers {
		if e.config.Tiers[i].MinPoints <= account.LifetimePoints {
			current = &e.config.Tiers[i]
		}
	}
	return current
}

// DiscountCents returns the flat tier discount on a rule-adjusted price, in
// cents. Applied after pricing rules, never before.
func (e *Engine) DiscountCents(account Account, priceCents int64) int64 {
	tier := e.TierFor(account)
	if tier == nil || tier.DiscountPercentage <= 0 {
		return 0
	}
	d := int64(math.Round(float64(priceCents) * tier.DiscountPercentage / 100))
	if d > priceCents {
		d = priceCents
	}
	return d
}

// PointsForBooking sums every applicable earning rule for the transaction,
// scales the total by the customer's tier multiplier, and floors once at the
// end so per-rule rounding error cannot compound.
func (e *Engine) PointsForBooking(account Account, serviceID uuid.UUID, totalCents int64) int64 {
	var raw float64
	for _, rule := range e.config.EarningRules {
		if len(rule.ServiceIDs) > 0 && !containsUUID(rule.ServiceIDs, serviceID) {
			continue
		}
		raw += rule.PointsPerDollar * float64(totalCents) / 100
		raw += float64(rule.BonusPoints)
	}

	multiplier := 1.0
	if tier := e.TierFor(account); tier != nil && tier.PointsMultiplier > 0 {
		multiplier = tier.PointsMultiplier
	}
	return int64(math.Floor(raw * multiplier))
}

// RedemptionUsage reports prior redemption counts for cap enforcement.
type RedemptionUsage struct {
	TotalRedemptions    int64
	CustomerRedemptions int64
}

// ValidateRedemption checks the account can redeem the option against the
// pre-discount subtotal. On success it returns the discount amount; points
// are deducted only when the booking is confirmed, not at quote time.
func (e *Engine) ValidateRedemption(account Account, option RedemptionOption, subtotalCents int64, usage RedemptionUsage) (int64, error) {
	if option.PointsCost > account.CurrentPoints {
		return 0, domain.NewValidationError("insufficient loyalty points for redemption")
	}
	if option.MinPurchaseCents > 0 && subtotalCents < option.MinPurchaseCents {
		return 0, domain.NewValidationError("subtotal below redemption minimum purchase")
	}
	if option.MaxRedemptionsTotal > 0 && usage.TotalRedemptions >= option.MaxRedemptionsTotal {
		return 0, domain.NewValidationError("redemption option exhausted")
	}
	if option.MaxPerCustomer > 0 && usage.CustomerRedemptions >= option.MaxPerCustomer {
		return 0, domain.NewValidationError("customer redemption limit reached")
	}

	discount := option.DiscountCents
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount, nil
}

// Earn applies earned points to the account. Both counters grow; lifetime
// points are never reduced.
func (a *Account) Earn(points int64) {
	if points <= 0 {
		return
	}
	a.CurrentPoints += points
	a.LifetimePoints += points
}

// Spend deducts redeemed points from the spendable balance only.
func (a *Account) Spend(points int64) error {
	if points > a.CurrentPoints {
		return domain.NewValidationError("insufficient loyalty points")
	}
	a.CurrentPoints -= points
	return nil
}

func containsUUID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
