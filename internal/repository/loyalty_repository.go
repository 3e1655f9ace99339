package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	loyaltyDomain "github.com/PawResorts/service-reservation/internal/domain/loyalty"
)

// LoyaltyAccountModel is the GORM model for the loyalty_accounts table.
type LoyaltyAccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_tenant_customer"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_tenant_customer"`
	CurrentPoints  int64     `gorm:"not null;default:0"`
	LifetimePoints int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (LoyaltyAccountModel) TableName() string {
	return "loyalty_accounts"
}

// RedemptionRecordModel is the GORM model for loyalty point redemptions.
type RedemptionRecordModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;index;not null"`
	OptionID   uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	Points     int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RedemptionRecordModel) TableName() string {
	return "loyalty_redemptions"
}

// GormLoyaltyRepository is the GORM-based implementation of
// loyalty.AccountRepository.
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewGormLoyaltyRepository creates a new GormLoyaltyRepository.
func NewGormLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// GetOrCreate returns the customer's loyalty account, creating an empty one
// on first contact.
func (r *GormLoyaltyRepository) GetOrCreate(ctx context.Context, tenantID, customerID uuid.UUID) (*loyaltyDomain.Account, error) {
	var model LoyaltyAccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		model = LoyaltyAccountModel{
			ID:         uuid.New(),
			TenantID:   tenantID,
			CustomerID: customerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return nil, fmt.Errorf("failed to create loyalty account: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to find loyalty account: %w", err)
	}

	return &loyaltyDomain.Account{
		CustomerID:     model.CustomerID,
		CurrentPoints:  model.CurrentPoints,
		LifetimePoints: model.LifetimePoints,
	}, nil
}

// Save persists the account's point balances.
func (r *GormLoyaltyRepository) Save(ctx context.Context, tenantID uuid.UUID, account *loyaltyDomain.Account) error {
	result := r.db.WithContext(ctx).Model(&LoyaltyAccountModel{}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, account.CustomerID).
		Updates(map[string]interface{}{
			"current_points":  account.CurrentPoints,
			"lifetime_points": account.LifetimePoints,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save loyalty account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("loyalty account not found for customer %s", account.CustomerID)
	}
	return nil
}

// CountRedemptions reports how often a redemption option has been used,
// overall and by the given customer.
func (r *GormLoyaltyRepository) CountRedemptions(ctx context.Context, tenantID, optionID, customerID uuid.UUID) (loyaltyDomain.RedemptionUsage, error) {
	var usage loyaltyDomain.RedemptionUsage
	if err := r.db.WithContext(ctx).Model(&RedemptionRecordModel{}).
		Where("tenant_id = ? AND option_id = ?", tenantID, optionID).
		Count(&usage.TotalRedemptions).Error; err != nil {
		return usage, fmt.Errorf("failed to count redemptions: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&RedemptionRecordModel{}).
		Where("tenant_id = ? AND option_id = ? AND customer_id = ?", tenantID, optionID, customerID).
		Count(&usage.CustomerRedemptions).Error; err != nil {
		return usage, fmt.Errorf("failed to count customer redemptions: %w", err)
	}
	return usage, nil
}

// RecordRedemption logs a redemption of the option by the customer.
func (r *GormLoyaltyRepository) RecordRedemption(ctx context.Context, tenantID, optionID, customerID uuid.UUID, points int64) error {
	record := RedemptionRecordModel{
		ID:         uuid.New(),
		TenantID:   tenantID,
		OptionID:   optionID,
		CustomerID: customerID,
		Points:     points,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record redemption: %w", err)
	}
	return nil
}
