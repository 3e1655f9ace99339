package reservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
)

// Repository defines the persistence contract for reservation aggregates.
type Repository interface {
	// FindByID retrieves a reservation by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByNumber retrieves a reservation by its reservation number.
	FindByNumber(ctx context.Context, number string) (*Reservation, error)

	// FindByCustomerID retrieves a customer's reservations with pagination.
	FindByCustomerID(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) ([]*Reservation, int64, error)

	// ListOverlapping retrieves capacity-holding reservations for a suite
	// type whose stays intersect the window.
	ListOverlapping(ctx context.Context, tenantID uuid.UUID, suiteType string, window stay.DateRange) ([]*Reservation, error)

	// ConfirmWithCapacity persists a new reservation only if the suite still
	// has capacity for its pets on every night of the stay. This is the
	// serialization point for the capacity read-check-write sequence: the
	// re-check runs under a lock, and losing the race returns a
	// CapacityExceeded domain error.
	ConfirmWithCapacity(ctx context.Context, res *Reservation, cfg suite.CapacityConfig) error

	// Update persists changes to an existing reservation with optimistic
	// locking.
	Update(ctx context.Context, res *Reservation) error

	// CountCompletedByCustomer returns how many completed reservations the
	// customer has, for first-time-customer checks.
	CountCompletedByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (int64, error)

	// ListAll retrieves all reservations for a tenant with pagination.
	ListAll(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]*Reservation, int64, error)

	// CountByStatus returns reservation counts grouped by status.
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
}
