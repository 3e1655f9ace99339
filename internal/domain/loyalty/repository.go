package loyalty

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the persistence contract for loyalty accounts.
type AccountRepository interface {
	// GetOrCreate returns the customer's loyalty account, creating an empty
	// one on first contact.
	GetOrCreate(ctx context.Context, tenantID, customerID uuid.UUID) (*Account, error)

	// Save persists the account's point balances.
	Save(ctx context.Context, tenantID uuid.UUID, account *Account) error

	// CountRedemptions reports how often a redemption option has been used,
	// overall and by the given customer.
	CountRedemptions(ctx context.Context, tenantID, optionID, customerID uuid.UUID) (RedemptionUsage, error)

	// RecordRedemption logs a redemption of the option by the customer.
	RecordRedemption(ctx context.Context, tenantID, optionID, customerID uuid.UUID, points int64) error
}
