package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PawResorts/service-reservation/internal/domain/compat"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/pricing"
	"github.com/PawResorts/service-reservation/internal/domain/rules"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// SuiteCapacityConfigModel is the GORM model for the suite_capacity_configs
// table. One row per tenant and suite type; the row also serves as the lock
// target for capacity-checked confirmation.
type SuiteCapacityConfigModel struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_suite_cfg_tenant_type"`
	SuiteType              string    `gorm:"not null;size:50;uniqueIndex:idx_suite_cfg_tenant_type"`
	MaxPets                int       `gorm:"not null"`
	PricingMode            string    `gorm:"not null;size:20"`
	BaseRateCents          int64     `gorm:"not null"`
	AdditionalPetRateCents int64     `gorm:"not null;default:0"`
	MultiPetDiscountPct    float64   `gorm:"not null;default:0"`
	MaxPerBreed            int       `gorm:"not null;default:0"`
	MaxLargeDogs           int       `gorm:"not null;default:0"`
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SuiteCapacityConfigModel) TableName() string {
	return "suite_capacity_configs"
}

// RuleModel is the GORM model for tenant rule definitions. Compatibility,
// pricing and deposit rules share the table, discriminated by Kind, with
// the full definition stored as JSONB.
type RuleModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Kind       string          `gorm:"not null;size:20;index"`
	Priority   int             `gorm:"not null;default:0"`
	Enabled    bool            `gorm:"not null;default:true"`
	Definition json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RuleModel) TableName() string {
	return "tenant_rules"
}

// Rule kinds stored in tenant_rules.
const (
	ruleKindCompat     = "compat"
	ruleKindPricing    = "pricing"
	ruleKindDeposit    = "deposit"
	ruleKindEarning    = "earning"
	ruleKindRedemption = "redemption"
	ruleKindTier       = "tier"
)

// TenantSettingsModel is the GORM model for tenant-wide engine settings.
type TenantSettingsModel struct {
	TenantID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	AllowUnrelatedOwners bool      `gorm:"not null;default:false"`
	BoundsEnabled        bool      `gorm:"not null;default:false"`
	MinPriceCents        int64     `gorm:"not null;default:0"`
	MaxPriceCents        int64     `gorm:"not null;default:0"`
	DepositRequired      bool      `gorm:"not null;default:false"`
	DepositAmountCents   int64     `gorm:"not null;default:0"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TenantSettingsModel) TableName() string {
	return "tenant_settings"
}

// GormRuleStore is the GORM-based implementation of rules.Store.
type GormRuleStore struct {
	db *gorm.DB
}

// NewGormRuleStore creates a new GormRuleStore.
func NewGormRuleStore(db *gorm.DB) *GormRuleStore {
	return &GormRuleStore{db: db}
}

// LoadSnapshot fetches the tenant's complete rule configuration. The result
// is a plain value graph the caller can treat as immutable for the request.
func (s *GormRuleStore) LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (*rules.Snapshot, error) {
	snapshot := &rules.Snapshot{
		TenantID:     tenantID,
		SuiteConfigs: make(map[string]suite.CapacityConfig),
	}

	var settings TenantSettingsModel
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load tenant settings: %w", err)
		}
	} else {
		snapshot.AllowUnrelatedOwners = settings.AllowUnrelatedOwners
		snapshot.PriceBounds = pricing.Bounds{
			Enabled:       settings.BoundsEnabled,
			MinPriceCents: settings.MinPriceCents,
			MaxPriceCents: settings.MaxPriceCents,
		}
		snapshot.DepositDefaults = deposit.Defaults{
			DepositRequired:    settings.DepositRequired,
			DepositAmountCents: settings.DepositAmountCents,
		}
	}

	var suiteModels []SuiteCapacityConfigModel
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&suiteModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load suite configs: %w", err)
	}
	for _, m := range suiteModels {
		snapshot.SuiteConfigs[m.SuiteType] = suite.CapacityConfig{
			TenantID:               m.TenantID,
			SuiteType:              m.SuiteType,
			MaxPets:                m.MaxPets,
			PricingMode:            suite.PricingMode(m.PricingMode),
			BaseRateCents:          m.BaseRateCents,
			AdditionalPetRateCents: m.AdditionalPetRateCents,
			MultiPetDiscountPct:    m.MultiPetDiscountPct,
			MaxPerBreed:            m.MaxPerBreed,
			MaxLargeDogs:           m.MaxLargeDogs,
		}
	}

	var ruleModels []RuleModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = true", tenantID).
		Order("priority ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load tenant rules: %w", err)
	}

	for _, m := range ruleModels {
		if err := s.applyRule(snapshot, m); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func (s *GormRuleStore) applyRule(snapshot *rules.Snapshot, m RuleModel) error {
	switch m.Kind {
	case ruleKindCompat:
		var rule compat.Rule
		if err := json.Unmarshal(m.Definition, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal compat rule %s: %w", m.ID, err)
		}
		snapshot.CompatRules = append(snapshot.CompatRules, rule)
	case ruleKindPricing:
		var rule pricing.Rule
		if err := json.Unmarshal(m.Definition, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal pricing rule %s: %w", m.ID, err)
		}
		snapshot.PricingRules = append(snapshot.PricingRules, rule)
	case ruleKindDeposit:
		var rule deposit.Rule
		if err := json.Unmarshal(m.Definition, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal deposit rule %s: %w", m.ID, err)
		}
		snapshot.DepositRules = append(snapshot.DepositRules, rule)
	case ruleKindEarning:
		var rule loyalty.EarningRule
		if err := json.Unmarshal(m.Definition, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal earning rule %s: %w", m.ID, err)
		}
		snapshot.Loyalty.EarningRules = append(snapshot.Loyalty.EarningRules, rule)
	case ruleKindTier:
		var tier loyalty.Tier
		if err := json.Unmarshal(m.Definition, &tier); err != nil {
			return fmt.Errorf("failed to unmarshal loyalty tier %s: %w", m.ID, err)
		}
		snapshot.Loyalty.Tiers = append(snapshot.Loyalty.Tiers, tier)
	case ruleKindRedemption:
		var option loyalty.RedemptionOption
		if err := json.Unmarshal(m.Definition, &option); err != nil {
			return fmt.Errorf("failed to unmarshal redemption option %s: %w", m.ID, err)
		}
		snapshot.RedemptionOptions = append(snapshot.RedemptionOptions, option)
	default:
		return domain.NewConfigurationError("unknown_rule_kind",
			"unknown rule kind: "+m.Kind)
	}
	return nil
}
