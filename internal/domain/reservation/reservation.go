package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/pet"
	"github.com/PawResorts/service-reservation/internal/domain/quote"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
)

const reservationNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Reservation is the aggregate root for a confirmed (or pending-deposit)
// suite booking.
type Reservation struct {
	id         uuid.UUID
	number     string
	tenantID   uuid.UUID
	customerID uuid.UUID
	serviceID  uuid.UUID
	suiteType  string
	stayRange  stay.DateRange
	pets       []pet.Profile
	status     Status

	// separateSuites records that the pets were allocated one suite each
	// because the group failed compatibility.
	separateSuites bool

	subtotalCents        int64
	loyaltyDiscountCents int64
	couponCode           string
	couponDiscountCents  int64
	totalCents           int64
	loyaltyPointsSpent   int64

	depositTerms  deposit.Terms
	depositPaidAt *time.Time

	checkedInAt  *time.Time
	checkedOutAt *time.Time
	completedAt  *time.Time
	cancelledAt  *time.Time
	cancelNote   string
	refundCents  int64

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateNumber creates a reservation number in the format "RS-XXXXXX".
func generateNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(reservationNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate reservation number: %w", err)
		}
		result[i] = reservationNumberChars[n.Int64()]
	}
	return "RS-" + string(result), nil
}

// NewFromQuote creates a reservation from a bookable quote for one of its
// stays, carrying that stay's share of the series money rather than the
// quote aggregates. Status starts pending when a deposit is owed, confirmed
// otherwise.
func NewFromQuote(q quote.Quote, stayRange stay.DateRange, fin quote.StayFinancials, pointsSpent int64) (*Reservation, error) {
	if q.TenantID == uuid.Nil || q.CustomerID == uuid.Nil {
		return nil, domain.NewValidationError("quote is missing tenant or customer")
	}
	if len(q.Pets) == 0 {
		return nil, domain.NewValidationError("reservation requires at least one pet")
	}
	if !q.Compatibility.IsCompatible && !q.SeparateSuites {
		return nil, domain.NewIncompatiblePetsError("quoted pet group may not share a suite")
	}
	if fin.TotalCents < 0 {
		return nil, domain.NewValidationError("quote total must not be negative")
	}

	number, err := generateNumber()
	if err != nil {
		return nil, err
	}

	terms := q.Deposit
	terms.DepositAmountCents = fin.DepositCents

	status := StatusConfirmed
	if terms.Required && terms.DepositAmountCents > 0 {
		status = StatusPending
	}

	now := time.Now().UTC()
	return &Reservation{
		id:                   uuid.New(),
		number:               number,
		tenantID:             q.TenantID,
		customerID:           q.CustomerID,
		serviceID:            q.ServiceID,
		suiteType:            q.SuiteType,
		stayRange:            stayRange,
		pets:                 q.Pets,
		status:               status,
		separateSuites:       q.SeparateSuites,
		subtotalCents:        fin.SubtotalCents,
		loyaltyDiscountCents: fin.LoyaltyDiscountCents,
		couponCode:           q.CouponCode,
		couponDiscountCents:  fin.CouponDiscountCents,
		totalCents:           fin.TotalCents,
		loyaltyPointsSpent:   pointsSpent,
		depositTerms:         terms,
		version:              1,
		createdAt:            now,
		updatedAt:            now,
	}, nil
}

// Reconstruct rebuilds a Reservation from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	number string,
	tenantID, customerID, serviceID uuid.UUID,
	suiteType string,
	stayRange stay.DateRange,
	pets []pet.Profile,
	status Status,
	separateSuites bool,
	subtotalCents, loyaltyDiscountCents int64,
	couponCode string,
	couponDiscountCents, totalCents, loyaltyPointsSpent int64,
	depositTerms deposit.Terms,
	depositPaidAt, checkedInAt, checkedOutAt, completedAt, cancelledAt *time.Time,
	cancelNote string,
	refundCents int64,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                   id,
		number:               number,
		tenantID:             tenantID,
		customerID:           customerID,
		serviceID:            serviceID,
		suiteType:            suiteType,
		stayRange:            stayRange,
		pets:                 pets,
		status:               status,
		separateSuites:       separateSuites,
		subtotalCents:        subtotalCents,
		loyaltyDiscountCents: loyaltyDiscountCents,
		couponCode:           couponCode,
		couponDiscountCents:  couponDiscountCents,
		totalCents:           totalCents,
		loyaltyPointsSpent:   loyaltyPointsSpent,
		depositTerms:         depositTerms,
		depositPaidAt:        depositPaidAt,
		checkedInAt:          checkedInAt,
		checkedOutAt:         checkedOutAt,
		completedAt:          completedAt,
		cancelledAt:          cancelledAt,
		cancelNote:           cancelNote,
		refundCents:          refundCents,
		version:              version,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// --- Getters ---

// ID returns the reservation's unique identifier.
func (r *Reservation) ID() uuid.UUID { return r.id }

// Number returns the human-readable reservation number.
func (r *Reservation) Number() string { return r.number }

// TenantID returns the owning tenant.
func (r *Reservation) TenantID() uuid.UUID { return r.tenantID }

// CustomerID returns the booking customer.
func (r *Reservation) CustomerID() uuid.UUID { return r.customerID }

// ServiceID returns the booked service.
func (r *Reservation) ServiceID() uuid.UUID { return r.serviceID }

// SuiteType returns the booked suite type.
func (r *Reservation) SuiteType() string { return r.suiteType }

// Stay returns the reserved date range.
func (r *Reservation) Stay() stay.DateRange { return r.stayRange }

// Pets returns the pets staying in the suite.
func (r *Reservation) Pets() []pet.Profile { return r.pets }

// PetCount returns how many pets occupy the suite.
func (r *Reservation) PetCount() int { return len(r.pets) }

// Status returns the current reservation status.
func (r *Reservation) Status() Status { return r.status }

// SeparateSuites reports whether each pet was allocated its own suite.
func (r *Reservation) SeparateSuites() bool { return r.separateSuites }

// SubtotalCents returns the rule-adjusted price before discounts.
func (r *Reservation) SubtotalCents() int64 { return r.subtotalCents }

// LoyaltyDiscountCents returns the applied loyalty tier discount.
func (r *Reservation) LoyaltyDiscountCents() int64 { return r.loyaltyDiscountCents }

// CouponCode returns the applied coupon code, if any.
func (r *Reservation) CouponCode() string { return r.couponCode }

// CouponDiscountCents returns the applied coupon discount.
func (r *Reservation) CouponDiscountCents() int64 { return r.couponDiscountCents }

// TotalCents returns the final price.
func (r *Reservation) TotalCents() int64 { return r.totalCents }

// LoyaltyPointsSpent returns points redeemed against this reservation.
func (r *Reservation) LoyaltyPointsSpent() int64 { return r.loyaltyPointsSpent }

// DepositTerms returns the payment terms selected at booking time.
func (r *Reservation) DepositTerms() deposit.Terms { return r.depositTerms }

// DepositPaidAt returns when the deposit was captured, or nil.
func (r *Reservation) DepositPaidAt() *time.Time { return r.depositPaidAt }

// CheckedInAt returns the check-in time, or nil.
func (r *Reservation) CheckedInAt() *time.Time { return r.checkedInAt }

// CheckedOutAt returns the check-out time, or nil.
func (r *Reservation) CheckedOutAt() *time.Time { return r.checkedOutAt }

// CompletedAt returns the completion time, or nil.
func (r *Reservation) CompletedAt() *time.Time { return r.completedAt }

// CancelledAt returns the cancellation time, or nil.
func (r *Reservation) CancelledAt() *time.Time { return r.cancelledAt }

// CancelNote returns the cancellation reason.
func (r *Reservation) CancelNote() string { return r.cancelNote }

// RefundCents returns the refund granted at cancellation.
func (r *Reservation) RefundCents() int64 { return r.refundCents }

// Version returns the entity version for optimistic locking.
func (r *Reservation) Version() int64 { return r.version }

// CreatedAt returns the creation timestamp.
func (r *Reservation) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *Reservation) UpdatedAt() time.Time { return r.updatedAt }

// --- Behavior ---

// MarkDepositPaid transitions the reservation from pending to confirmed.
func (r *Reservation) MarkDepositPaid() error {
	if !r.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(r.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	r.status = StatusConfirmed
	r.depositPaidAt = &now
	r.updatedAt = now
	return nil
}

// CheckIn transitions the reservation from confirmed to checked_in.
func (r *Reservation) CheckIn() error {
	if !r.status.CanTransitionTo(StatusCheckedIn) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCheckedIn))
	}
	now := time.Now().UTC()
	r.status = StatusCheckedIn
	r.checkedInAt = &now
	r.updatedAt = now
	return nil
}

// CheckOut transitions the reservation from checked_in to checked_out.
func (r *Reservation) CheckOut() error {
	if !r.status.CanTransitionTo(StatusCheckedOut) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCheckedOut))
	}
	now := time.Now().UTC()
	r.status = StatusCheckedOut
	r.checkedOutAt = &now
	r.updatedAt = now
	return nil
}

// Complete finalizes the reservation after check-out. Loyalty points are
// earned at this point, not before.
func (r *Reservation) Complete() error {
	if !r.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCompleted))
	}
	now := time.Now().UTC()
	r.status = StatusCompleted
	r.completedAt = &now
	r.updatedAt = now
	return nil
}

// Cancel cancels a non-terminal reservation, recording the granted refund.
func (r *Reservation) Cancel(reason string, refundCents int64) error {
	if !r.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(r.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	r.status = StatusCancelled
	r.cancelNote = reason
	r.refundCents = refundCents
	r.cancelledAt = &now
	r.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}
