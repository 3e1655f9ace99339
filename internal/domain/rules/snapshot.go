package rules

import (
	"context"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/domain/compat"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/pricing"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
)

// Snapshot is one tenant's full rule configuration, loaded once per request
// and treated as immutable for the duration of a quote computation. No rule
// mutates state it reads.
type Snapshot struct {
	TenantID             uuid.UUID
	SuiteConfigs         map[string]suite.CapacityConfig
	CompatRules          []compat.Rule
	AllowUnrelatedOwners bool
	PricingRules         []pricing.Rule
	PriceBounds          pricing.Bounds
	DepositRules         []deposit.Rule
	DepositDefaults      deposit.Defaults
	Loyalty              loyalty.Config
	RedemptionOptions    []loyalty.RedemptionOption
}

// RedemptionOption returns the redemption option with the given ID.
func (s *Snapshot) RedemptionOption(id uuid.UUID) (loyalty.RedemptionOption, bool) {
	for _, opt := range s.RedemptionOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return loyalty.RedemptionOption{}, false
}

// SuiteConfig returns the capacity config for a suite type.
func (s *Snapshot) SuiteConfig(suiteType string) (suite.CapacityConfig, bool) {
	cfg, ok := s.SuiteConfigs[suiteType]
	return cfg, ok
}

// Store loads tenant-scoped rule configuration. Coupons live behind their
// own repository; they are usage-counted state, not snapshot configuration.
type Store interface {
	// LoadSnapshot fetches the tenant's complete rule configuration.
	LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error)
}
