package coupon

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for coupon usage counters.
// Reads are snapshot reads; the increment is conditional so two concurrent
// confirmations cannot push CurrentUses past MaxTotalUses.
type Repository interface {
	// FindByCode retrieves a coupon by its code within a tenant.
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Coupon, error)

	// CountUsesByCustomer returns how many times the customer has redeemed
	// the coupon.
	CountUsesByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int64, error)

	// RedeemUse increments CurrentUses only while it is below MaxTotalUses
	// and records the customer's redemption. Returns a CouponInvalid domain
	// error when the cap was reached concurrently.
	RedeemUse(ctx context.Context, couponID, customerID uuid.UUID) error
}
