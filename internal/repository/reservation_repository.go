package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/pet"
	reservationDomain "github.com/PawResorts/service-reservation/internal/domain/reservation"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// ReservationModel is the GORM model for the reservations table.
type ReservationModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReservationNumber    string          `gorm:"uniqueIndex;not null;size:20"`
	TenantID             uuid.UUID       `gorm:"type:uuid;index;not null"`
	CustomerID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	ServiceID            uuid.UUID       `gorm:"type:uuid;not null"`
	SuiteType            string          `gorm:"not null;size:50;index"`
	StayStart            time.Time       `gorm:"not null;index"`
	StayEnd              time.Time       `gorm:"not null;index"`
	Pets                 json.RawMessage `gorm:"type:jsonb;not null"`
	PetCount             int             `gorm:"not null"`
	Status               string          `gorm:"not null;size:30;index"`
	SeparateSuites       bool            `gorm:"not null;default:false"`
	SubtotalCents        int64           `gorm:"not null"`
	LoyaltyDiscountCents int64           `gorm:"not null;default:0"`
	CouponCode           string          `gorm:"size:50"`
	CouponDiscountCents  int64           `gorm:"not null;default:0"`
	TotalCents           int64           `gorm:"not null"`
	LoyaltyPointsSpent   int64           `gorm:"not null;default:0"`
	DepositTerms         json.RawMessage `gorm:"type:jsonb;not null"`
	DepositPaidAt        *time.Time      `gorm:""`
	CheckedInAt          *time.Time      `gorm:""`
	CheckedOutAt         *time.Time      `gorm:""`
	CompletedAt          *time.Time      `gorm:""`
	CancelledAt          *time.Time      `gorm:""`
	CancelNote           string          `gorm:"size:500"`
	RefundCents          int64           `gorm:"not null;default:0"`
	Version              int64           `gorm:"not null;default:1"`
	CreatedAt            time.Time       `gorm:"not null"`
	UpdatedAt            time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// capacityHoldingStatuses are the statuses that consume suite capacity.
var capacityHoldingStatuses = []string{
	string(reservationDomain.StatusPending),
	string(reservationDomain.StatusConfirmed),
	string(reservationDomain.StatusCheckedIn),
}

// GormReservationRepository is the GORM-based implementation of
// reservation.Repository.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID retrieves a reservation by its unique identifier.
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservationDomain.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", id.String())
		}
		return nil, fmt.Errorf("failed to find reservation by ID: %w", err)
	}
	return toDomainReservation(&model)
}

// FindByNumber retrieves a reservation by its reservation number.
func (r *GormReservationRepository) FindByNumber(ctx context.Context, number string) (*reservationDomain.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("reservation_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", number)
		}
		return nil, fmt.Errorf("failed to find reservation by number: %w", err)
	}
	return toDomainReservation(&model)
}

// FindByCustomerID retrieves a customer's reservations with pagination.
func (r *GormReservationRepository) FindByCustomerID(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) ([]*reservationDomain.Reservation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customer reservations: %w", err)
	}

	var models []ReservationModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find customer reservations: %w", err)
	}

	reservations, err := toDomainReservations(models)
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// ListOverlapping retrieves capacity-holding reservations for a suite type
// whose stays intersect the window. Half-open ranges: a stay ending on the
// window's start day does not overlap.
func (r *GormReservationRepository) ListOverlapping(ctx context.Context, tenantID uuid.UUID, suiteType string, window stay.DateRange) ([]*reservationDomain.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND suite_type = ?", tenantID, suiteType).
		Where("status IN ?", capacityHoldingStatuses).
		Where("stay_start < ? AND stay_end > ?", window.End, window.Start).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list overlapping reservations: %w", err)
	}
	return toDomainReservations(models)
}

// ConfirmWithCapacity persists a new reservation only if the suite still has
// room on every night of the stay. The tenant's capacity config row is
// locked FOR UPDATE first, which serializes racing confirmations for the
// same suite type; the losing transaction re-reads occupancy that includes
// the winner's row and fails the night check.
func (r *GormReservationRepository) ConfirmWithCapacity(ctx context.Context, res *reservationDomain.Reservation, cfg suite.CapacityConfig) error {
	model, err := toReservationModel(res)
	if err != nil {
		return fmt.Errorf("failed to convert reservation to model: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lockRow SuiteCapacityConfigModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND suite_type = ?", res.TenantID(), res.SuiteType()).
			First(&lockRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("SuiteCapacityConfig", res.SuiteType())
			}
			return fmt.Errorf("failed to lock capacity config: %w", err)
		}

		var existing []ReservationModel
		if err := tx.
			Where("tenant_id = ? AND suite_type = ?", res.TenantID(), res.SuiteType()).
			Where("status IN ?", capacityHoldingStatuses).
			Where("stay_start < ? AND stay_end > ?", res.Stay().End, res.Stay().Start).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to re-check occupancy: %w", err)
		}

		for _, night := range res.Stay().Dates() {
			booked := 0
			for _, m := range existing {
				if !night.Before(m.StayStart) && night.Before(m.StayEnd) {
					booked += m.PetCount
				}
			}
			if booked+res.PetCount() > cfg.MaxPets {
				return domain.NewCapacityExceededError(fmt.Sprintf(
					"suite %s has no capacity for %d pet(s) on %s",
					res.SuiteType(), res.PetCount(), night.Format("2006-01-02")))
			}
		}

		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		return nil
	})
}

// Update persists changes to an existing reservation with optimistic locking.
func (r *GormReservationRepository) Update(ctx context.Context, res *reservationDomain.Reservation) error {
	res.IncrementVersion()
	model, err := toReservationModel(res)
	if err != nil {
		return fmt.Errorf("failed to convert reservation to model: %w", err)
	}

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := res.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"deposit_paid_at": model.DepositPaidAt,
			"checked_in_at":   model.CheckedInAt,
			"checked_out_at":  model.CheckedOutAt,
			"completed_at":    model.CompletedAt,
			"cancelled_at":    model.CancelledAt,
			"cancel_note":     model.CancelNote,
			"refund_cents":    model.RefundCents,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update reservation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}

	return nil
}

// CountCompletedByCustomer returns how many completed reservations the
// customer has.
func (r *GormReservationRepository) CountCompletedByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("tenant_id = ? AND customer_id = ? AND status = ?", tenantID, customerID, string(reservationDomain.StatusCompleted)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completed reservations: %w", err)
	}
	return count, nil
}

// ListAll retrieves all reservations for a tenant with pagination.
func (r *GormReservationRepository) ListAll(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]*reservationDomain.Reservation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	var models []ReservationModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	reservations, err := toDomainReservations(models)
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// CountByStatus returns reservation counts grouped by status.
func (r *GormReservationRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("tenant_id = ?", tenantID).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toReservationModel(res *reservationDomain.Reservation) (*ReservationModel, error) {
	petsJSON, err := json.Marshal(res.Pets())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pets: %w", err)
	}
	depositJSON, err := json.Marshal(res.DepositTerms())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deposit terms: %w", err)
	}

	return &ReservationModel{
		ID:                   res.ID(),
		ReservationNumber:    res.Number(),
		TenantID:             res.TenantID(),
		CustomerID:           res.CustomerID(),
		ServiceID:            res.ServiceID(),
		SuiteType:            res.SuiteType(),
		StayStart:            res.Stay().Start,
		StayEnd:              res.Stay().End,
		Pets:                 petsJSON,
		PetCount:             res.PetCount(),
		Status:               string(res.Status()),
		SeparateSuites:       res.SeparateSuites(),
		SubtotalCents:        res.SubtotalCents(),
		LoyaltyDiscountCents: res.LoyaltyDiscountCents(),
		CouponCode:           res.CouponCode(),
		CouponDiscountCents:  res.CouponDiscountCents(),
		TotalCents:           res.TotalCents(),
		LoyaltyPointsSpent:   res.LoyaltyPointsSpent(),
		DepositTerms:         depositJSON,
		DepositPaidAt:        res.DepositPaidAt(),
		CheckedInAt:          res.CheckedInAt(),
		CheckedOutAt:         res.CheckedOutAt(),
		CompletedAt:          res.CompletedAt(),
		CancelledAt:          res.CancelledAt(),
		CancelNote:           res.CancelNote(),
		RefundCents:          res.RefundCents(),
		Version:              res.Version(),
		CreatedAt:            res.CreatedAt(),
		UpdatedAt:            res.UpdatedAt(),
	}, nil
}

func toDomainReservation(m *ReservationModel) (*reservationDomain.Reservation, error) {
	var pets []pet.Profile
	if err := json.Unmarshal(m.Pets, &pets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pets: %w", err)
	}
	var terms deposit.Terms
	if err := json.Unmarshal(m.DepositTerms, &terms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deposit terms: %w", err)
	}

	status, err := reservationDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return reservationDomain.Reconstruct(
		m.ID,
		m.ReservationNumber,
		m.TenantID, m.CustomerID, m.ServiceID,
		m.SuiteType,
		stay.DateRange{Start: m.StayStart, End: m.StayEnd},
		pets,
		status,
		m.SeparateSuites,
		m.SubtotalCents, m.LoyaltyDiscountCents,
		m.CouponCode,
		m.CouponDiscountCents, m.TotalCents, m.LoyaltyPointsSpent,
		terms,
		m.DepositPaidAt, m.CheckedInAt, m.CheckedOutAt, m.CompletedAt, m.CancelledAt,
		m.CancelNote,
		m.RefundCents,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	), nil
}

func toDomainReservations(models []ReservationModel) ([]*reservationDomain.Reservation, error) {
	reservations := make([]*reservationDomain.Reservation, len(models))
	for i := range models {
		res, err := toDomainReservation(&models[i])
		if err != nil {
			return nil, err
		}
		reservations[i] = res
	}
	return reservations, nil
}
