package suite

import (
	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// PricingMode determines how a multi-pet suite price is derived from the
// per-pet base rate.
type PricingMode string

const (
	PricingPerPet        PricingMode = "PER_PET"
	PricingFlatRate      PricingMode = "FLAT_RATE"
	PricingTiered        PricingMode = "TIERED"
	PricingPercentageOff PricingMode = "PERCENTAGE_OFF"
)

// IsValid returns true if the pricing mode is recognized.
func (m PricingMode) IsValid() bool {
	switch m {
	case PricingPerPet, PricingFlatRate, PricingTiered, PricingPercentageOff:
		return true
	}
	return false
}

// CapacityConfig is the tenant-owned, read-only configuration for one suite
// type. The engine never mutates it.
type CapacityConfig struct {
	TenantID    uuid.UUID   `json:"tenant_id"`
	SuiteType   string      `json:"suite_type"`
	MaxPets     int         `json:"max_pets"`
	PricingMode PricingMode `json:"pricing_mode"`
	// BaseRateCents is the nightly base rate before pricing rules.
	BaseRateCents int64 `json:"base_rate_cents"`
	// AdditionalPetRateCents applies per extra pet under TIERED pricing.
	AdditionalPetRateCents int64 `json:"additional_pet_rate_cents"`
	// MultiPetDiscountPct applies under PERCENTAGE_OFF pricing.
	MultiPetDiscountPct float64 `json:"multi_pet_discount_pct"`
	// Restriction limits. Zero means unlimited.
	MaxPerBreed  int `json:"max_per_breed"`
	MaxLargeDogs int `json:"max_large_dogs"`
}

// Validate checks the configuration's internal consistency.
func (c CapacityConfig) Validate() error {
	if c.SuiteType == "" {
		return domain.NewConfigurationError("suite_type_missing", "suite type is required")
	}
	if c.MaxPets < 1 {
		return domain.NewConfigurationError("invalid_capacity",
			"suite capacity must be at least 1: "+c.SuiteType)
	}
	if !c.PricingMode.IsValid() {
		return domain.NewConfigurationError("invalid_pricing_mode",
			"unknown pricing mode: "+string(c.PricingMode))
	}
	if c.BaseRateCents < 0 {
		return domain.NewConfigurationError("invalid_base_rate",
			"base rate must not be negative: "+c.SuiteType)
	}
	return nil
}

// NightlyRateCents returns the per-night rate for housing petCount pets in
// one suite of this type, before any pricing rules.
func (c CapacityConfig) NightlyRateCents(petCount int) int64 {
	if petCount < 1 {
		petCount = 1
	}
	switch c.PricingMode {
	case PricingFlatRate:
		return c.BaseRateCents
	case PricingTiered:
		return c.BaseRateCents + int64(petCount-1)*c.AdditionalPetRateCents
	case PricingPercentageOff:
		rate := c.BaseRateCents
		// Each additional pet pays the discounted rate.
		discounted := int64(float64(c.BaseRateCents) * (100 - c.MultiPetDiscountPct) / 100)
		return rate + int64(petCount-1)*discounted
	default: // PER_PET
		return c.BaseRateCents * int64(petCount)
	}
}
