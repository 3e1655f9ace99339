package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PawResorts/service-reservation/internal/domain/availability"
	"github.com/PawResorts/service-reservation/internal/domain/compat"
	"github.com/PawResorts/service-reservation/internal/domain/coupon"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/pet"
	"github.com/PawResorts/service-reservation/internal/domain/pricing"
	"github.com/PawResorts/service-reservation/internal/domain/quote"
	"github.com/PawResorts/service-reservation/internal/domain/reservation"
	"github.com/PawResorts/service-reservation/internal/domain/rules"
	"github.com/PawResorts/service-reservation/internal/domain/schedule"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// quoteTTL is how long a quote remains presentable before the caller should
// request a fresh one. Quotes are advisory either way; capacity is only
// re-validated at confirmation.
const quoteTTL = 30 * time.Minute

// QuoteRequest holds the data needed to price and check a candidate booking.
type QuoteRequest struct {
	ServiceID  uuid.UUID                   `json:"service_id" binding:"required"`
	SuiteType  string                      `json:"suite_type" binding:"required"`
	Start      time.Time                   `json:"start" binding:"required"`
	End        time.Time                   `json:"end" binding:"required"`
	Pets       []pet.Profile               `json:"pets" binding:"required"`
	Recurrence *schedule.RecurrencePattern `json:"recurrence,omitempty"`
	CouponCode string                      `json:"coupon_code,omitempty"`

	// RedemptionOptionID requests a points redemption. Points are only
	// deducted when the booking is confirmed.
	RedemptionOptionID *uuid.UUID `json:"redemption_option_id,omitempty"`
}

// AvailabilityRequest holds the data for a plain availability check.
type AvailabilityRequest struct {
	SuiteType string    `json:"suite_type" binding:"required"`
	Start     time.Time `json:"start" binding:"required"`
	End       time.Time `json:"end" binding:"required"`
	PetCount  int       `json:"pet_count" binding:"required"`
}

// QuoteService is the booking decision engine: it orchestrates recurrence
// expansion, availability, compatibility, pricing, loyalty, coupon and
// deposit into one immutable quote. All its operations are read-only.
type QuoteService struct {
	reservations reservation.Repository
	ruleStore    rules.Store
	coupons      coupon.Repository
	loyaltyAccts loyalty.AccountRepository
	resolver     *availability.Resolver
	logger       *zap.Logger
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(
	reservations reservation.Repository,
	ruleStore rules.Store,
	coupons coupon.Repository,
	loyaltyAccts loyalty.AccountRepository,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		reservations: reservations,
		ruleStore:    ruleStore,
		coupons:      coupons,
		loyaltyAccts: loyaltyAccts,
		resolver:     availability.NewResolver(logger),
		logger:       logger,
	}
}

// GetQuote computes availability, price and payment terms for the request.
// It is pure with respect to stored state and may be called repeatedly.
func (s *QuoteService) GetQuote(ctx context.Context, tenantID, customerID uuid.UUID, req QuoteRequest) (*quote.Quote, error) {
	if len(req.Pets) == 0 {
		return nil, domain.NewValidationError("at least one pet is required")
	}
	anchor, err := stay.NewDateRange(req.Start, req.End)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	snapshot, err := s.ruleStore.LoadSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule snapshot: %w", err)
	}

	cfg, ok := snapshot.SuiteConfig(req.SuiteType)
	if !ok {
		return nil, domain.NewValidationError("unknown suite type: " + req.SuiteType)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A compatibility failure does not reject the request outright: the
	// group falls back to one suite per pet, and the quote fails only when
	// the nightly capacity cannot host them all.
	checker := compat.NewChecker(snapshot.AllowUnrelatedOwners)
	compatibility := checker.Check(req.Pets, snapshot.CompatRules)
	separateSuites := !compatibility.IsCompatible

	if separateSuites {
		for _, p := range req.Pets {
			if err := availability.CheckGroupRestrictions(cfg, []pet.Profile{p}); err != nil {
				return nil, domain.NewValidationError(err.Error())
			}
		}
	} else if err := availability.CheckGroupRestrictions(cfg, req.Pets); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	ranges, err := s.expandRanges(anchor, req.Recurrence)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	engine := pricing.NewEngine(snapshot.PriceBounds)

	q := &quote.Quote{
		ID:             uuid.New(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		ServiceID:      req.ServiceID,
		SuiteType:      req.SuiteType,
		Pets:           req.Pets,
		Compatibility:  compatibility,
		SeparateSuites: separateSuites,
		CreatedAt:      now,
		ExpiresAt:      now.Add(quoteTTL),
	}

	for _, r := range ranges {
		verdict, err := s.priceRange(ctx, tenantID, cfg, r, len(req.Pets), separateSuites, req.ServiceID, snapshot, engine, now)
		if err != nil {
			return nil, err
		}
		q.Ranges = append(q.Ranges, verdict)
		q.SubtotalCents += verdict.Pricing.FinalPriceCents
	}

	if err := s.applyDiscounts(ctx, tenantID, customerID, req, snapshot, q, now); err != nil {
		return nil, err
	}

	if err := s.applyDeposit(ctx, tenantID, customerID, req, snapshot, q, anchor, now); err != nil {
		return nil, err
	}

	return q, nil
}

// expandRanges turns the anchor and optional recurrence pattern into the
// concrete stays to quote.
func (s *QuoteService) expandRanges(anchor stay.DateRange, pattern *schedule.RecurrencePattern) ([]stay.DateRange, error) {
	if pattern == nil {
		return []stay.DateRange{anchor}, nil
	}
	ranges, err := pattern.Expand(anchor)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, domain.NewValidationError("recurrence pattern yields no occurrences")
	}
	return ranges, nil
}

// priceRange computes availability and rule-adjusted price for one stay.
// Separate-suite allocations price each pet at the single-pet rate; shared
// multi-pet discounts never apply to them.
func (s *QuoteService) priceRange(
	ctx context.Context,
	tenantID uuid.UUID,
	cfg suite.CapacityConfig,
	r stay.DateRange,
	petCount int,
	separateSuites bool,
	serviceID uuid.UUID,
	snapshot *rules.Snapshot,
	engine *pricing.Engine,
	now time.Time,
) (quote.RangeVerdict, error) {
	overlaps, err := s.loadOverlaps(ctx, tenantID, cfg.SuiteType, r)
	if err != nil {
		return quote.RangeVerdict{}, err
	}

	check := s.resolver.Check(cfg, r, petCount, overlaps)

	nightly := cfg.NightlyRateCents(petCount)
	if separateSuites {
		nightly = cfg.NightlyRateCents(1) * int64(petCount)
	}
	baseCents := nightly * int64(r.Nights())
	outcome, err := engine.Apply(baseCents, pricing.Context{
		ServiceID:    serviceID,
		SuiteType:    cfg.SuiteType,
		Stay:         r,
		BookingDate:  now,
		OccupancyPct: occupancyPct(cfg.MaxPets, check),
	}, snapshot.PricingRules)
	if err != nil {
		return quote.RangeVerdict{}, err
	}

	return quote.RangeVerdict{Stay: r, Availability: check, Pricing: outcome}, nil
}

// loadOverlaps fetches capacity-holding reservations around the stay. The
// window is widened so alternative-date suggestions see real occupancy.
func (s *QuoteService) loadOverlaps(ctx context.Context, tenantID uuid.UUID, suiteType string, r stay.DateRange) ([]availability.Overlap, error) {
	window := stay.DateRange{
		Start: r.Start.AddDate(0, 0, -31),
		End:   r.End.AddDate(0, 0, 31),
	}
	existing, err := s.reservations.ListOverlapping(ctx, tenantID, suiteType, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlapping reservations: %w", err)
	}

	overlaps := make([]availability.Overlap, 0, len(existing))
	for _, res := range existing {
		overlaps = append(overlaps, availability.Overlap{
			Range:    res.Stay(),
			PetCount: res.PetCount(),
		})
	}
	return overlaps, nil
}

// applyDiscounts applies the loyalty tier discount and then the coupon, in
// that order, both after rule-based adjustments.
func (s *QuoteService) applyDiscounts(ctx context.Context, tenantID, customerID uuid.UUID, req QuoteRequest, snapshot *rules.Snapshot, q *quote.Quote, now time.Time) error {
	account, err := s.loyaltyAccts.GetOrCreate(ctx, tenantID, customerID)
	if err != nil {
		return fmt.Errorf("failed to load loyalty account: %w", err)
	}

	loyaltyEngine := loyalty.NewEngine(snapshot.Loyalty)
	if tier := loyaltyEngine.TierFor(*account); tier != nil {
		q.LoyaltyTier = tier.Name
	}
	q.LoyaltyDiscountCents = loyaltyEngine.DiscountCents(*account, q.SubtotalCents)

	if req.RedemptionOptionID != nil {
		option, ok := snapshot.RedemptionOption(*req.RedemptionOptionID)
		if !ok {
			return domain.NewValidationError("unknown redemption option")
		}
		usage, err := s.loyaltyAccts.CountRedemptions(ctx, tenantID, option.ID, customerID)
		if err != nil {
			return fmt.Errorf("failed to count redemptions: %w", err)
		}
		discount, err := loyaltyEngine.ValidateRedemption(*account, option, q.SubtotalCents, usage)
		if err != nil {
			return err
		}
		q.PointsRedeemed = option.PointsCost
		q.RedemptionOptionID = option.ID
		q.RedemptionDiscountCents = discount
	}

	running := q.SubtotalCents - q.LoyaltyDiscountCents - q.RedemptionDiscountCents

	if req.CouponCode != "" {
		result, err := s.validateCouponInternal(ctx, tenantID, customerID, req.CouponCode, running, []uuid.UUID{req.ServiceID}, now)
		if err != nil {
			return err
		}
		q.CouponCode = result.Code
		q.CouponDiscountCents = result.DiscountCents
		running -= result.DiscountCents
	}

	if running < 0 {
		running = 0
	}
	q.TotalCents = running
	return nil
}

// applyDeposit selects the deposit rule and attaches the payment terms.
func (s *QuoteService) applyDeposit(ctx context.Context, tenantID, customerID uuid.UUID, req QuoteRequest, snapshot *rules.Snapshot, q *quote.Quote, anchor stay.DateRange, now time.Time) error {
	completed, err := s.reservations.CountCompletedByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return fmt.Errorf("failed to count completed reservations: %w", err)
	}

	calc := deposit.NewCalculator(snapshot.DepositDefaults)
	terms, err := calc.Calculate(deposit.Request{
		TotalCents:        q.TotalCents,
		ServiceID:         req.ServiceID,
		Stay:              anchor,
		BookingDate:       now,
		FirstTimeCustomer: completed == 0,
	}, snapshot.DepositRules, now)
	if err != nil {
		return err
	}
	q.Deposit = terms
	return nil
}

// CheckAvailability answers a plain capacity question for a suite type and
// date range.
func (s *QuoteService) CheckAvailability(ctx context.Context, tenantID uuid.UUID, req AvailabilityRequest) (*availability.CheckResult, error) {
	if req.PetCount < 1 {
		return nil, domain.NewValidationError("pet count must be at least 1")
	}
	r, err := stay.NewDateRange(req.Start, req.End)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	snapshot, err := s.ruleStore.LoadSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule snapshot: %w", err)
	}
	cfg, ok := snapshot.SuiteConfig(req.SuiteType)
	if !ok {
		return nil, domain.NewValidationError("unknown suite type: " + req.SuiteType)
	}

	overlaps, err := s.loadOverlaps(ctx, tenantID, req.SuiteType, r)
	if err != nil {
		return nil, err
	}
	result := s.resolver.Check(cfg, r, req.PetCount, overlaps)
	return &result, nil
}

// ValidateCoupon validates a coupon against a subtotal without consuming a
// use. Calling it any number of times never changes the usage counter.
func (s *QuoteService) ValidateCoupon(ctx context.Context, tenantID, customerID uuid.UUID, code string, subtotalCents int64, serviceIDs []uuid.UUID) (*coupon.ValidationResult, error) {
	result, err := s.validateCouponInternal(ctx, tenantID, customerID, code, subtotalCents, serviceIDs, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *QuoteService) validateCouponInternal(ctx context.Context, tenantID, customerID uuid.UUID, code string, subtotalCents int64, serviceIDs []uuid.UUID, now time.Time) (coupon.ValidationResult, error) {
	c, err := s.coupons.FindByCode(ctx, tenantID, code)
	if err != nil {
		return coupon.ValidationResult{}, err
	}

	priorUses, err := s.coupons.CountUsesByCustomer(ctx, c.ID, customerID)
	if err != nil {
		return coupon.ValidationResult{}, fmt.Errorf("failed to count coupon uses: %w", err)
	}

	var hasCompleted bool
	if c.FirstTimeOnly {
		completed, err := s.reservations.CountCompletedByCustomer(ctx, tenantID, customerID)
		if err != nil {
			return coupon.ValidationResult{}, fmt.Errorf("failed to count completed reservations: %w", err)
		}
		hasCompleted = completed > 0
	}

	return coupon.Validate(*c, coupon.CustomerContext{
		CustomerID:               customerID,
		PriorUses:                priorUses,
		HasCompletedReservations: hasCompleted,
	}, subtotalCents, serviceIDs, now)
}

// occupancyPct derives the average occupancy over the checked stay, as a
// percentage, for capacity-based pricing rules.
func occupancyPct(maxPets int, check availability.CheckResult) float64 {
	if maxPets <= 0 || len(check.Days) == 0 {
		return 0
	}
	var booked int
	for _, d := range check.Days {
		booked += d.BookedCapacity
	}
	return float64(booked) / float64(maxPets*len(check.Days)) * 100
}
