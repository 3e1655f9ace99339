package quote

import (
	"time"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/domain/availability"
	"github.com/PawResorts/service-reservation/internal/domain/compat"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/pet"
	"github.com/PawResorts/service-reservation/internal/domain/pricing"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
)

// RangeVerdict pairs one concrete stay with its availability and pricing
// results.
type RangeVerdict struct {
	Stay         stay.DateRange           `json:"stay"`
	Availability availability.CheckResult `json:"availability"`
	Pricing      pricing.Outcome          `json:"pricing"`
}

// Quote is the immutable output of one booking decision: availability,
// price, and payment terms for a candidate booking. Quotes are advisory;
// capacity is only reserved at confirmation.
type Quote struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	SuiteType  string    `json:"suite_type"`

	Pets          []pet.Profile  `json:"pets"`
	Compatibility compat.Result  `json:"compatibility"`

	// SeparateSuites is set when the pet group failed compatibility and the
	// quote prices each pet in its own suite instead.
	SeparateSuites bool `json:"separate_suites,omitempty"`

	Ranges []RangeVerdict `json:"ranges"`

	// SubtotalCents is the rule-adjusted price across all ranges, before
	// loyalty and coupon effects.
	SubtotalCents        int64  `json:"subtotal_cents"`
	LoyaltyTier          string `json:"loyalty_tier,omitempty"`
	LoyaltyDiscountCents int64  `json:"loyalty_discount_cents"`

	// PointsRedeemed is deducted from the customer's balance only at
	// confirmation, never when the quote is computed.
	PointsRedeemed          int64     `json:"points_redeemed,omitempty"`
	RedemptionOptionID      uuid.UUID `json:"redemption_option_id,omitempty"`
	RedemptionDiscountCents int64     `json:"redemption_discount_cents,omitempty"`

	CouponCode           string `json:"coupon_code,omitempty"`
	CouponDiscountCents  int64  `json:"coupon_discount_cents"`
	TotalCents           int64  `json:"total_cents"`

	Deposit deposit.Terms `json:"deposit"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bookable reports whether every requested range can be fulfilled. An
// incompatible group is still bookable when the quote allocates separate
// suites.
func (q Quote) Bookable() bool {
	if !q.Compatibility.IsCompatible && !q.SeparateSuites {
		return false
	}
	for _, r := range q.Ranges {
		if r.Availability.Status != availability.StatusAvailable {
			return false
		}
	}
	return len(q.Ranges) > 0
}

// StayFinancials is one stay's share of the quote's series-level money. For
// a single-stay quote it equals the quote aggregates.
type StayFinancials struct {
	SubtotalCents           int64 `json:"subtotal_cents"`
	LoyaltyDiscountCents    int64 `json:"loyalty_discount_cents"`
	RedemptionDiscountCents int64 `json:"redemption_discount_cents"`
	CouponDiscountCents     int64 `json:"coupon_discount_cents"`
	TotalCents              int64 `json:"total_cents"`
	DepositCents            int64 `json:"deposit_cents"`
}

// Apportion splits the quote's discounts and deposit across its stays in
// proportion to each stay's rule-adjusted price, so a recurring series never
// charges or rewards the full series amount once per stay. Rounding
// remainders land on the last stay, which keeps the shares summing exactly
// to the series amounts.
func (q Quote) Apportion() []StayFinancials {
	n := len(q.Ranges)
	out := make([]StayFinancials, n)
	if n == 0 {
		return out
	}

	var loyaltyAlloc, redemptionAlloc, couponAlloc, depositAlloc int64
	for i, r := range q.Ranges {
		f := &out[i]
		f.SubtotalCents = r.Pricing.FinalPriceCents
		if i == n-1 {
			f.LoyaltyDiscountCents = q.LoyaltyDiscountCents - loyaltyAlloc
			f.RedemptionDiscountCents = q.RedemptionDiscountCents - redemptionAlloc
			f.CouponDiscountCents = q.CouponDiscountCents - couponAlloc
			f.DepositCents = q.Deposit.DepositAmountCents - depositAlloc
		} else {
			f.LoyaltyDiscountCents = proRata(q.LoyaltyDiscountCents, f.SubtotalCents, q.SubtotalCents)
			f.RedemptionDiscountCents = proRata(q.RedemptionDiscountCents, f.SubtotalCents, q.SubtotalCents)
			f.CouponDiscountCents = proRata(q.CouponDiscountCents, f.SubtotalCents, q.SubtotalCents)
			f.DepositCents = proRata(q.Deposit.DepositAmountCents, f.SubtotalCents, q.SubtotalCents)
			loyaltyAlloc += f.LoyaltyDiscountCents
			redemptionAlloc += f.RedemptionDiscountCents
			couponAlloc += f.CouponDiscountCents
			depositAlloc += f.DepositCents
		}
		f.TotalCents = f.SubtotalCents - f.LoyaltyDiscountCents - f.RedemptionDiscountCents - f.CouponDiscountCents
		if f.TotalCents < 0 {
			f.TotalCents = 0
		}
	}
	return out
}

// proRata allocates amount by weight over total, rounding down.
func proRata(amount, weight, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return amount * weight / total
}
