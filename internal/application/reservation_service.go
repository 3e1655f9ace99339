package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PawResorts/service-reservation/internal/domain/coupon"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/pet"
	"github.com/PawResorts/service-reservation/internal/domain/quote"
	"github.com/PawResorts/service-reservation/internal/domain/reservation"
	"github.com/PawResorts/service-reservation/internal/domain/rules"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/platform/kafka"
)

const eventSource = "service-reservation"

// EventPublisher publishes reservation lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *kafka.CloudEvent) error
}

// ReservationDTO is the API representation of a reservation.
type ReservationDTO struct {
	ID                   uuid.UUID     `json:"id"`
	Number               string        `json:"number"`
	TenantID             uuid.UUID     `json:"tenant_id"`
	CustomerID           uuid.UUID     `json:"customer_id"`
	ServiceID            uuid.UUID     `json:"service_id"`
	SuiteType            string        `json:"suite_type"`
	Start                time.Time     `json:"start"`
	End                  time.Time     `json:"end"`
	Pets                 []pet.Profile `json:"pets"`
	Status               string        `json:"status"`
	SeparateSuites       bool          `json:"separate_suites,omitempty"`
	SubtotalCents        int64         `json:"subtotal_cents"`
	LoyaltyDiscountCents int64         `json:"loyalty_discount_cents"`
	CouponCode           string        `json:"coupon_code,omitempty"`
	CouponDiscountCents  int64         `json:"coupon_discount_cents"`
	TotalCents           int64         `json:"total_cents"`
	LoyaltyPointsSpent   int64         `json:"loyalty_points_spent"`
	Deposit              deposit.Terms `json:"deposit"`
	DepositPaidAt        *time.Time    `json:"deposit_paid_at,omitempty"`
	CheckedInAt          *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt         *time.Time    `json:"checked_out_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty"`
	CancelNote           string        `json:"cancel_note,omitempty"`
	RefundCents          int64         `json:"refund_cents"`
	CreatedAt            time.Time     `json:"created_at"`
}

// BookingConfirmation pairs the honored quote with the reservations it
// produced, one per stay.
type BookingConfirmation struct {
	Quote        *quote.Quote     `json:"quote"`
	Reservations []ReservationDTO `json:"reservations"`
}

// StatsDTO summarizes a tenant's reservations for the admin dashboard.
type StatsDTO struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:                   r.ID(),
		Number:               r.Number(),
		TenantID:             r.TenantID(),
		CustomerID:           r.CustomerID(),
		ServiceID:            r.ServiceID(),
		SuiteType:            r.SuiteType(),
		Start:                r.Stay().Start,
		End:                  r.Stay().End,
		Pets:                 r.Pets(),
		Status:               string(r.Status()),
		SeparateSuites:       r.SeparateSuites(),
		SubtotalCents:        r.SubtotalCents(),
		LoyaltyDiscountCents: r.LoyaltyDiscountCents(),
		CouponCode:           r.CouponCode(),
		CouponDiscountCents:  r.CouponDiscountCents(),
		TotalCents:           r.TotalCents(),
		LoyaltyPointsSpent:   r.LoyaltyPointsSpent(),
		Deposit:              r.DepositTerms(),
		DepositPaidAt:        r.DepositPaidAt(),
		CheckedInAt:          r.CheckedInAt(),
		CheckedOutAt:         r.CheckedOutAt(),
		CompletedAt:          r.CompletedAt(),
		CancelledAt:          r.CancelledAt(),
		CancelNote:           r.CancelNote(),
		RefundCents:          r.RefundCents(),
		CreatedAt:            r.CreatedAt(),
	}
}

// ReservationService owns the reservation lifecycle: confirmation under the
// capacity lock, deposit capture, check-in, check-out, completion and
// cancellation.
type ReservationService struct {
	quotes       *QuoteService
	reservations reservation.Repository
	ruleStore    rules.Store
	coupons      coupon.Repository
	loyaltyAccts loyalty.AccountRepository
	publisher    EventPublisher
	logger       *zap.Logger
}

// NewReservationService creates a ReservationService.
func NewReservationService(
	quotes *QuoteService,
	reservations reservation.Repository,
	ruleStore rules.Store,
	coupons coupon.Repository,
	loyaltyAccts loyalty.AccountRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		quotes:       quotes,
		reservations: reservations,
		ruleStore:    ruleStore,
		coupons:      coupons,
		loyaltyAccts: loyaltyAccts,
		publisher:    publisher,
		logger:       logger,
	}
}

// ConfirmBooking recomputes the quote and, when every stay is bookable,
// persists one reservation per stay. Capacity is re-checked under the
// repository lock, so two racing confirmations for the last slot resolve to
// one success and one CapacityExceeded error. Coupon usage and loyalty
// points are only consumed here, never at quote time.
func (s *ReservationService) ConfirmBooking(ctx context.Context, tenantID, customerID uuid.UUID, req QuoteRequest) (*BookingConfirmation, error) {
	q, err := s.quotes.GetQuote(ctx, tenantID, customerID, req)
	if err != nil {
		return nil, err
	}
	if !q.Bookable() {
		return nil, domain.NewCapacityExceededError("requested dates are not available")
	}

	snapshot, err := s.ruleStore.LoadSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule snapshot: %w", err)
	}
	cfg, ok := snapshot.SuiteConfig(q.SuiteType)
	if !ok {
		return nil, domain.NewValidationError("unknown suite type: " + q.SuiteType)
	}

	// Series-level discounts and deposit are split across the stays so each
	// reservation carries only its own share.
	fins := q.Apportion()

	var confirmed []*reservation.Reservation
	for i, verdict := range q.Ranges {
		var pointsSpent int64
		if i == 0 {
			pointsSpent = q.PointsRedeemed
		}
		res, err := reservation.NewFromQuote(*q, verdict.Stay, fins[i], pointsSpent)
		if err != nil {
			s.compensate(ctx, confirmed)
			return nil, err
		}
		if err := s.reservations.ConfirmWithCapacity(ctx, res, cfg); err != nil {
			s.compensate(ctx, confirmed)
			return nil, err
		}
		confirmed = append(confirmed, res)
	}

	if err := s.consumeDiscounts(ctx, tenantID, customerID, q); err != nil {
		s.compensate(ctx, confirmed)
		return nil, err
	}

	result := &BookingConfirmation{Quote: q}
	for _, res := range confirmed {
		eventType := reservation.EventCreated
		if res.Status() == reservation.StatusConfirmed {
			eventType = reservation.EventConfirmed
		}
		s.publish(ctx, eventType, res)
		result.Reservations = append(result.Reservations, toReservationDTO(res))
	}

	s.logger.Info("booking confirmed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int("reservations", len(confirmed)),
		zap.Int64("total_cents", q.TotalCents))
	return result, nil
}

// consumeDiscounts burns the coupon use and redeemed loyalty points after
// every stay has been secured.
func (s *ReservationService) consumeDiscounts(ctx context.Context, tenantID, customerID uuid.UUID, q *quote.Quote) error {
	if q.CouponCode != "" {
		c, err := s.coupons.FindByCode(ctx, tenantID, q.CouponCode)
		if err != nil {
			return err
		}
		if err := s.coupons.RedeemUse(ctx, c.ID, customerID); err != nil {
			return err
		}
	}

	if q.PointsRedeemed > 0 {
		account, err := s.loyaltyAccts.GetOrCreate(ctx, tenantID, customerID)
		if err != nil {
			return fmt.Errorf("failed to load loyalty account: %w", err)
		}
		if err := account.Spend(q.PointsRedeemed); err != nil {
			return err
		}
		if err := s.loyaltyAccts.Save(ctx, tenantID, account); err != nil {
			return fmt.Errorf("failed to save loyalty account: %w", err)
		}
		if err := s.loyaltyAccts.RecordRedemption(ctx, tenantID, q.RedemptionOptionID, customerID, q.PointsRedeemed); err != nil {
			return fmt.Errorf("failed to record redemption: %w", err)
		}
	}
	return nil
}

// compensate rolls back reservations created before a multi-stay
// confirmation failed partway through.
func (s *ReservationService) compensate(ctx context.Context, confirmed []*reservation.Reservation) {
	for _, res := range confirmed {
		if err := res.Cancel("released: recurring booking could not be completed", 0); err != nil {
			s.logger.Error("failed to release reservation", zap.String("id", res.ID().String()), zap.Error(err))
			continue
		}
		if err := s.reservations.Update(ctx, res); err != nil {
			s.logger.Error("failed to release reservation", zap.String("id", res.ID().String()), zap.Error(err))
		}
	}
}

// GetReservation retrieves a reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// GetReservationByNumber retrieves a reservation by its number.
func (s *ReservationService) GetReservationByNumber(ctx context.Context, number string) (*ReservationDTO, error) {
	res, err := s.reservations.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// ListCustomerReservations lists a customer's reservations, newest first.
func (s *ReservationService) ListCustomerReservations(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.reservations.FindByCustomerID(ctx, tenantID, customerID, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]ReservationDTO, 0, len(items))
	for _, res := range items {
		dtos = append(dtos, toReservationDTO(res))
	}
	return domain.NewPaginatedResult(dtos, total, page, limit), nil
}

// MarkDepositPaid records deposit capture and confirms the reservation.
func (s *ReservationService) MarkDepositPaid(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	return s.transition(ctx, id, reservation.EventDepositPaid, (*reservation.Reservation).MarkDepositPaid)
}

// CheckIn records the pets' arrival.
func (s *ReservationService) CheckIn(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	return s.transition(ctx, id, reservation.EventCheckedIn, (*reservation.Reservation).CheckIn)
}

// CheckOut records the pets' departure.
func (s *ReservationService) CheckOut(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	return s.transition(ctx, id, reservation.EventCheckedOut, (*reservation.Reservation).CheckOut)
}

// Complete finalizes a checked-out reservation and awards loyalty points
// for the stay. Points accrue here and nowhere earlier.
func (s *ReservationService) Complete(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := res.Complete(); err != nil {
		return nil, err
	}
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	if err := s.awardPoints(ctx, res); err != nil {
		s.logger.Error("failed to award loyalty points",
			zap.String("reservation_id", res.ID().String()), zap.Error(err))
	}

	s.publish(ctx, reservation.EventCompleted, res)
	dto := toReservationDTO(res)
	return &dto, nil
}

func (s *ReservationService) awardPoints(ctx context.Context, res *reservation.Reservation) error {
	snapshot, err := s.ruleStore.LoadSnapshot(ctx, res.TenantID())
	if err != nil {
		return err
	}
	account, err := s.loyaltyAccts.GetOrCreate(ctx, res.TenantID(), res.CustomerID())
	if err != nil {
		return err
	}

	engine := loyalty.NewEngine(snapshot.Loyalty)
	points := engine.PointsForBooking(*account, res.ServiceID(), res.TotalCents())
	if points <= 0 {
		return nil
	}
	account.Earn(points)
	return s.loyaltyAccts.Save(ctx, res.TenantID(), account)
}

// Cancel cancels a reservation. The refund follows the deposit rule's tier
// for how far ahead of check-in the cancellation lands; only amounts
// actually paid are refundable.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var paidCents int64
	if res.DepositPaidAt() != nil {
		paidCents = res.DepositTerms().DepositAmountCents
	}
	refund := deposit.RefundAmount(paidCents, res.DepositTerms().RefundTiers, time.Now().UTC(), res.Stay().Start)

	if err := res.Cancel(reason, refund); err != nil {
		return nil, err
	}
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.publish(ctx, reservation.EventCancelled, res)
	dto := toReservationDTO(res)
	return &dto, nil
}

// ListAll lists every reservation for a tenant, for staff views.
func (s *ReservationService) ListAll(ctx context.Context, tenantID uuid.UUID, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.reservations.ListAll(ctx, tenantID, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]ReservationDTO, 0, len(items))
	for _, res := range items {
		dtos = append(dtos, toReservationDTO(res))
	}
	return domain.NewPaginatedResult(dtos, total, page, limit), nil
}

// Stats returns reservation counts by status for a tenant.
func (s *ReservationService) Stats(ctx context.Context, tenantID uuid.UUID) (*StatsDTO, error) {
	byStatus, err := s.reservations.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	stats := &StatsDTO{ByStatus: byStatus}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}

// transition applies a status change, persists it and publishes the event.
func (s *ReservationService) transition(ctx context.Context, id uuid.UUID, eventType string, apply func(*reservation.Reservation) error) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(res); err != nil {
		return nil, err
	}
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.publish(ctx, eventType, res)
	dto := toReservationDTO(res)
	return &dto, nil
}

// publish emits a lifecycle event. Publication failures are logged, not
// surfaced; the state change has already been persisted.
func (s *ReservationService) publish(ctx context.Context, eventType string, res *reservation.Reservation) {
	if s.publisher == nil {
		return
	}
	event, err := kafka.NewCloudEvent(eventSource, eventType, reservation.NewEvent(res))
	if err != nil {
		s.logger.Error("failed to build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.PublishEvent(ctx, reservation.TopicReservationEvents, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("type", eventType),
			zap.String("reservation_id", res.ID().String()),
			zap.Error(err))
	}
}
