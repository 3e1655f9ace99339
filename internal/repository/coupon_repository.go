package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	couponDomain "github.com/PawResorts/service-reservation/internal/domain/coupon"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_coupons_tenant_code"`
	Code               string          `gorm:"not null;size:50;uniqueIndex:idx_coupons_tenant_code"`
	Status             string          `gorm:"not null;size:20;index"`
	DiscountType       string          `gorm:"not null;size:20"`
	DiscountValue      float64         `gorm:"not null"`
	MinPurchaseCents   int64           `gorm:"not null;default:0"`
	ServiceIDs         json.RawMessage `gorm:"type:jsonb"`
	ValidFrom          time.Time       `gorm:"not null"`
	ValidUntil         time.Time       `gorm:"not null"`
	MaxTotalUses       int64           `gorm:"not null;default:0"`
	MaxUsesPerCustomer int64           `gorm:"not null;default:0"`
	CurrentUses        int64           `gorm:"not null;default:0"`
	FirstTimeOnly      bool            `gorm:"not null;default:false"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CouponModel) TableName() string {
	return "coupons"
}

// CouponUsageModel is the GORM model for per-customer coupon redemptions.
type CouponUsageModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CouponID   uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CouponUsageModel) TableName() string {
	return "coupon_usages"
}

// GormCouponRepository is the GORM-based implementation of
// coupon.Repository.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCode retrieves a coupon by its code within a tenant.
func (r *GormCouponRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Coupon", code)
		}
		return nil, fmt.Errorf("failed to find coupon by code: %w", err)
	}
	return toDomainCoupon(&model)
}

// CountUsesByCustomer returns how many times the customer has redeemed the
// coupon.
func (r *GormCouponRepository) CountUsesByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&CouponUsageModel{}).
		Where("coupon_id = ? AND customer_id = ?", couponID, customerID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count coupon uses: %w", err)
	}
	return count, nil
}

// RedeemUse increments the coupon's usage counter and records the
// customer's redemption. The increment is conditional on the cap so two
// racing confirmations cannot push CurrentUses past MaxTotalUses; the loser
// gets a usage-limit error.
func (r *GormCouponRepository) RedeemUse(ctx context.Context, couponID, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CouponModel{}).
			Where("id = ? AND (max_total_uses = 0 OR current_uses < max_total_uses)", couponID).
			Update("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to increment coupon uses: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewCouponInvalidError(couponDomain.ReasonUsageLimitReached,
				"coupon usage limit reached")
		}

		usage := CouponUsageModel{
			ID:         uuid.New(),
			CouponID:   couponID,
			CustomerID: customerID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&usage).Error; err != nil {
			return fmt.Errorf("failed to record coupon usage: %w", err)
		}
		return nil
	})
}

// --- Conversion Helpers ---

func toDomainCoupon(m *CouponModel) (*couponDomain.Coupon, error) {
	var serviceIDs []uuid.UUID
	if len(m.ServiceIDs) > 0 {
		if err := json.Unmarshal(m.ServiceIDs, &serviceIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coupon service IDs: %w", err)
		}
	}

	return &couponDomain.Coupon{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		Code:               m.Code,
		Status:             couponDomain.Status(m.Status),
		DiscountType:       couponDomain.DiscountType(m.DiscountType),
		DiscountValue:      m.DiscountValue,
		MinPurchaseCents:   m.MinPurchaseCents,
		ServiceIDs:         serviceIDs,
		ValidFrom:          m.ValidFrom,
		ValidUntil:         m.ValidUntil,
		MaxTotalUses:       m.MaxTotalUses,
		MaxUsesPerCustomer: m.MaxUsesPerCustomer,
		CurrentUses:        m.CurrentUses,
		FirstTimeOnly:      m.FirstTimeOnly,
	}, nil
}
