package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PawResorts/service-reservation/internal/domain/coupon"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/reservation"
	"github.com/PawResorts/service-reservation/internal/domain/rules"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/platform/kafka"
)

// memReservationRepo is an in-memory reservation.Repository. ConfirmWithCapacity
// runs its per-night re-check under the mutex, mirroring the row-lock
// serialization the real repository gets from the database.
type memReservationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*reservation.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{items: make(map[uuid.UUID]*reservation.Reservation)}
}

func (r *memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id.String())
	}
	return res, nil
}

func (r *memReservationRepo) FindByNumber(_ context.Context, number string) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.items {
		if res.Number() == number {
			return res, nil
		}
	}
	return nil, domain.NewNotFoundError("reservation", number)
}

func (r *memReservationRepo) FindByCustomerID(_ context.Context, tenantID, customerID uuid.UUID, _, _ int) ([]*reservation.Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reservation.Reservation
	for _, res := range r.items {
		if res.TenantID() == tenantID && res.CustomerID() == customerID {
			out = append(out, res)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memReservationRepo) ListOverlapping(_ context.Context, tenantID uuid.UUID, suiteType string, window stay.DateRange) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlappingLocked(tenantID, suiteType, window), nil
}

func (r *memReservationRepo) overlappingLocked(tenantID uuid.UUID, suiteType string, window stay.DateRange) []*reservation.Reservation {
	var out []*reservation.Reservation
	for _, res := range r.items {
		if res.TenantID() != tenantID || res.SuiteType() != suiteType {
			continue
		}
		if !res.Status().HoldsCapacity() {
			continue
		}
		if res.Stay().Overlaps(window) {
			out = append(out, res)
		}
	}
	return out
}

func (r *memReservationRepo) ConfirmWithCapacity(_ context.Context, res *reservation.Reservation, cfg suite.CapacityConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.overlappingLocked(res.TenantID(), res.SuiteType(), res.Stay())
	for _, night := range res.Stay().Dates() {
		booked := 0
		for _, e := range existing {
			if e.Stay().ContainsDate(night) {
				booked += e.PetCount()
			}
		}
		if booked+res.PetCount() > cfg.MaxPets {
			return domain.NewCapacityExceededError("suite is full on " + night.Format("2006-01-02"))
		}
	}
	r.items[res.ID()] = res
	return nil
}

func (r *memReservationRepo) Update(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[res.ID()]; !ok {
		return domain.NewNotFoundError("reservation", res.ID().String())
	}
	res.IncrementVersion()
	r.items[res.ID()] = res
	return nil
}

func (r *memReservationRepo) CountCompletedByCustomer(_ context.Context, tenantID, customerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, res := range r.items {
		if res.TenantID() == tenantID && res.CustomerID() == customerID && res.Status() == reservation.StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (r *memReservationRepo) ListAll(_ context.Context, tenantID uuid.UUID, _, _ int) ([]*reservation.Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reservation.Reservation
	for _, res := range r.items {
		if res.TenantID() == tenantID {
			out = append(out, res)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memReservationRepo) CountByStatus(_ context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, res := range r.items {
		if res.TenantID() == tenantID {
			counts[string(res.Status())]++
		}
	}
	return counts, nil
}

func (r *memReservationRepo) all() []*reservation.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*reservation.Reservation, 0, len(r.items))
	for _, res := range r.items {
		out = append(out, res)
	}
	return out
}

// fakeRuleStore serves a fixed snapshot.
type fakeRuleStore struct {
	snapshot *rules.Snapshot
}

func (s *fakeRuleStore) LoadSnapshot(_ context.Context, _ uuid.UUID) (*rules.Snapshot, error) {
	return s.snapshot, nil
}

// memCouponRepo is an in-memory coupon.Repository with the same conditional
// increment semantics as the database version.
type memCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*coupon.Coupon
	uses    map[uuid.UUID]map[uuid.UUID]int64

	redeemErr error
}

func newMemCouponRepo(coupons ...*coupon.Coupon) *memCouponRepo {
	r := &memCouponRepo{
		coupons: make(map[string]*coupon.Coupon),
		uses:    make(map[uuid.UUID]map[uuid.UUID]int64),
	}
	for _, c := range coupons {
		r.coupons[c.Code] = c
	}
	return r
}

func (r *memCouponRepo) FindByCode(_ context.Context, _ uuid.UUID, code string) (*coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[code]
	if !ok {
		return nil, domain.NewNotFoundError("coupon", code)
	}
	copied := *c
	return &copied, nil
}

func (r *memCouponRepo) CountUsesByCustomer(_ context.Context, couponID, customerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uses[couponID][customerID], nil
}

func (r *memCouponRepo) RedeemUse(_ context.Context, couponID, customerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.redeemErr != nil {
		return r.redeemErr
	}
	for _, c := range r.coupons {
		if c.ID != couponID {
			continue
		}
		if c.MaxTotalUses > 0 && c.CurrentUses >= c.MaxTotalUses {
			return domain.NewCouponInvalidError(coupon.ReasonUsageLimitReached,
				"coupon usage limit reached: "+c.Code)
		}
		c.CurrentUses++
		if r.uses[couponID] == nil {
			r.uses[couponID] = make(map[uuid.UUID]int64)
		}
		r.uses[couponID][customerID]++
		return nil
	}
	return domain.NewNotFoundError("coupon", couponID.String())
}

func (r *memCouponRepo) currentUses(code string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coupons[code].CurrentUses
}

// memLoyaltyRepo is an in-memory loyalty.AccountRepository.
type memLoyaltyRepo struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]*loyalty.Account
	redemptions map[uuid.UUID]map[uuid.UUID]int64
}

func newMemLoyaltyRepo() *memLoyaltyRepo {
	return &memLoyaltyRepo{
		accounts:    make(map[uuid.UUID]*loyalty.Account),
		redemptions: make(map[uuid.UUID]map[uuid.UUID]int64),
	}
}

func (r *memLoyaltyRepo) seed(customerID uuid.UUID, current, lifetime int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[customerID] = &loyalty.Account{
		CustomerID:     customerID,
		CurrentPoints:  current,
		LifetimePoints: lifetime,
	}
}

func (r *memLoyaltyRepo) GetOrCreate(_ context.Context, _, customerID uuid.UUID) (*loyalty.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[customerID]; ok {
		copied := *a
		return &copied, nil
	}
	a := &loyalty.Account{CustomerID: customerID}
	r.accounts[customerID] = a
	copied := *a
	return &copied, nil
}

func (r *memLoyaltyRepo) Save(_ context.Context, _ uuid.UUID, account *loyalty.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *account
	r.accounts[account.CustomerID] = &copied
	return nil
}

func (r *memLoyaltyRepo) CountRedemptions(_ context.Context, _, optionID, customerID uuid.UUID) (loyalty.RedemptionUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var usage loyalty.RedemptionUsage
	for _, n := range r.redemptions[optionID] {
		usage.TotalRedemptions += n
	}
	usage.CustomerRedemptions = r.redemptions[optionID][customerID]
	return usage, nil
}

func (r *memLoyaltyRepo) RecordRedemption(_ context.Context, _, optionID, customerID uuid.UUID, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.redemptions[optionID] == nil {
		r.redemptions[optionID] = make(map[uuid.UUID]int64)
	}
	r.redemptions[optionID][customerID]++
	return nil
}

func (r *memLoyaltyRepo) account(customerID uuid.UUID) loyalty.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[customerID]; ok {
		return *a
	}
	return loyalty.Account{}
}

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Topic string
	Type  string
}

func (p *capturingPublisher) PublishEvent(_ context.Context, topic string, event *kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: event.Type})
	return nil
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// testEnv wires the services over in-memory dependencies.
type testEnv struct {
	reservations *memReservationRepo
	coupons      *memCouponRepo
	loyalty      *memLoyaltyRepo
	publisher    *capturingPublisher
	quotes       *QuoteService
	service      *ReservationService
}

func newTestEnv(t *testing.T, snapshot *rules.Snapshot, coupons ...*coupon.Coupon) *testEnv {
	t.Helper()
	env := &testEnv{
		reservations: newMemReservationRepo(),
		coupons:      newMemCouponRepo(coupons...),
		loyalty:      newMemLoyaltyRepo(),
		publisher:    &capturingPublisher{},
	}
	store := &fakeRuleStore{snapshot: snapshot}
	logger := zap.NewNop()
	env.quotes = NewQuoteService(env.reservations, store, env.coupons, env.loyalty, logger)
	env.service = NewReservationService(env.quotes, env.reservations, store, env.coupons, env.loyalty, env.publisher, logger)
	return env
}

func futureDate(days int) time.Time {
	return stay.TruncateDay(time.Now().UTC()).AddDate(0, 0, days)
}
