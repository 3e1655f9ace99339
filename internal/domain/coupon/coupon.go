package coupon

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// Status is the lifecycle state of a coupon.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// DiscountType determines how a coupon's value reduces a subtotal.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Rejection reasons, one per validation check.
const (
	ReasonNotActive            = "coupon_not_active"
	ReasonNotYetValid          = "coupon_not_yet_valid"
	ReasonExpired              = "coupon_expired"
	ReasonMinimumPurchase      = "minimum_purchase_not_met"
	ReasonServiceNotEligible   = "service_not_eligible"
	ReasonUsageLimitReached    = "usage_limit_reached"
	ReasonCustomerLimitReached = "customer_usage_limit_reached"
	ReasonFirstTimeOnly        = "first_time_customers_only"
)

// Coupon is a tenant-scoped discount code. CurrentUses never exceeds
// MaxTotalUses; the counter is incremented at booking confirmation, not at
// validation.
type Coupon struct {
	ID                 uuid.UUID    `json:"id"`
	TenantID           uuid.UUID    `json:"tenant_id"`
	Code               string       `json:"code"`
	Status             Status       `json:"status"`
	DiscountType       DiscountType `json:"discount_type"`
	DiscountValue      float64      `json:"discount_value"`
	MinPurchaseCents   int64        `json:"min_purchase_cents"`
	ServiceIDs         []uuid.UUID  `json:"service_ids,omitempty"`
	ValidFrom          time.Time    `json:"valid_from"`
	ValidUntil         time.Time    `json:"valid_until"`
	MaxTotalUses       int64        `json:"max_total_uses"`
	MaxUsesPerCustomer int64        `json:"max_uses_per_customer"`
	CurrentUses        int64        `json:"current_uses"`
	FirstTimeOnly      bool         `json:"first_time_only"`
}

// CustomerContext carries the customer facts validation needs.
type CustomerContext struct {
	CustomerID               uuid.UUID
	PriorUses                int64
	HasCompletedReservations bool
}

// ValidationResult is the outcome of a successful validation. Validation
// never mutates the coupon.
type ValidationResult struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
}

// Validate runs the check sequence in order, short-circuiting on the first
// failure with its specific reason. On success it computes the discount
// amount without touching CurrentUses.
func Validate(c Coupon, customer CustomerContext, subtotalCents int64, serviceIDs []uuid.UUID, now time.Time) (ValidationResult, error) {
	if c.Status != StatusActive {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonNotActive,
			"coupon is not active: "+c.Code)
	}
	if now.Before(c.ValidFrom) {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonNotYetValid,
			"coupon is not yet valid: "+c.Code)
	}
	if now.After(c.ValidUntil) {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonExpired,
			"coupon has expired: "+c.Code)
	}
	if subtotalCents < c.MinPurchaseCents {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonMinimumPurchase,
			"subtotal below coupon minimum purchase")
	}
	if len(c.ServiceIDs) > 0 && !anyServiceEligible(c.ServiceIDs, serviceIDs) {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonServiceNotEligible,
			"coupon does not apply to the requested services")
	}
	if c.MaxTotalUses > 0 && c.CurrentUses >= c.MaxTotalUses {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonUsageLimitReached,
			"coupon usage limit reached: "+c.Code)
	}
	if c.MaxUsesPerCustomer > 0 && customer.PriorUses >= c.MaxUsesPerCustomer {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonCustomerLimitReached,
			"customer has used this coupon the maximum number of times")
	}
	if c.FirstTimeOnly && customer.HasCompletedReservations {
		return ValidationResult{}, domain.NewCouponInvalidError(ReasonFirstTimeOnly,
			"coupon is restricted to first-time customers")
	}

	return ValidationResult{
		Code:          c.Code,
		DiscountCents: DiscountCents(c, subtotalCents),
	}, nil
}

// DiscountCents computes the coupon's discount against the subtotal, never
// exceeding it.
func DiscountCents(c Coupon, subtotalCents int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = int64(math.Round(float64(subtotalCents) * c.DiscountValue / 100))
	case DiscountFixedAmount:
		discount = int64(math.Round(c.DiscountValue))
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func anyServiceEligible(allowed, requested []uuid.UUID) bool {
	for _, a := range allowed {
		for _, r := range requested {
			if a == r {
				return true
			}
		}
	}
	return false
}
