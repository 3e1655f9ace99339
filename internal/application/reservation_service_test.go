package application

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PawResorts/service-reservation/internal/domain/coupon"
	"github.com/PawResorts/service-reservation/internal/domain/deposit"
	"github.com/PawResorts/service-reservation/internal/domain/loyalty"
	"github.com/PawResorts/service-reservation/internal/domain/reservation"
	"github.com/PawResorts/service-reservation/internal/domain/schedule"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

func TestConfirmBookingCreatesPendingReservation(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	env := newTestEnv(t, baseSnapshot(tenantID))

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)

	require.Len(t, result.Reservations, 1)
	res := result.Reservations[0]
	assert.Equal(t, string(reservation.StatusPending), res.Status)
	assert.Equal(t, int64(30000), res.TotalCents)
	assert.True(t, res.Deposit.Required)

	assert.Equal(t, []string{reservation.EventCreated}, env.publisher.types())
	assert.Equal(t, reservation.TopicReservationEvents, env.publisher.events[0].Topic)

	stored, err := env.reservations.FindByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, stored.Status())
}

func TestConfirmBookingWithoutDepositStartsConfirmed(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositDefaults = deposit.Defaults{}
	env := newTestEnv(t, snapshot)

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)

	assert.Equal(t, string(reservation.StatusConfirmed), result.Reservations[0].Status)
	assert.Equal(t, []string{reservation.EventConfirmed}, env.publisher.types())
}

func TestConfirmBookingCapacityRace(t *testing.T) {
	tenantID := uuid.New()
	snapshot := baseSnapshot(tenantID)
	cfg := snapshot.SuiteConfigs["deluxe"]
	cfg.MaxPets = 1
	snapshot.SuiteConfigs["deluxe"] = cfg
	env := newTestEnv(t, snapshot)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customerID := uuid.New()
			_, errs[i] = env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
		}(i)
	}
	wg.Wait()

	var successes, capacityErrs int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domain.IsKind(err, domain.KindCapacityExceeded):
			capacityErrs++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, capacityErrs)
}

func TestConfirmBookingConsumesCouponUse(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	c := &coupon.Coupon{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Code:          "ONCE",
		Status:        coupon.StatusActive,
		DiscountType:  coupon.DiscountFixedAmount,
		DiscountValue: 1000,
		ValidFrom:     futureDate(-1),
		ValidUntil:    futureDate(60),
		MaxTotalUses:  1,
	}
	env := newTestEnv(t, baseSnapshot(tenantID), c)

	req := threeNightRequest(uuid.New(), customerID)
	req.CouponCode = "ONCE"

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Quote.CouponDiscountCents)
	assert.Equal(t, int64(1), env.coupons.currentUses("ONCE"))

	// The exhausted coupon now fails validation on the next attempt.
	other := uuid.New()
	req2 := threeNightRequest(uuid.New(), other)
	req2.CouponCode = "ONCE"
	_, err = env.service.ConfirmBooking(context.Background(), tenantID, other, req2)
	assert.True(t, domain.IsKind(err, domain.KindCouponInvalid))
}

func TestConfirmBookingDeductsRedeemedPoints(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	option := loyalty.RedemptionOption{ID: uuid.New(), PointsCost: 500, DiscountCents: 1500}
	snapshot := baseSnapshot(tenantID)
	snapshot.RedemptionOptions = []loyalty.RedemptionOption{option}
	env := newTestEnv(t, snapshot)
	env.loyalty.seed(customerID, 1000, 1000)

	req := threeNightRequest(uuid.New(), customerID)
	req.RedemptionOptionID = &option.ID

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.Reservations[0].LoyaltyPointsSpent)
	assert.Equal(t, int64(500), env.loyalty.account(customerID).CurrentPoints)

	usage, err := env.loyalty.CountRedemptions(context.Background(), tenantID, option.ID, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.CustomerRedemptions)
}

func TestConfirmBookingCompensatesWhenDiscountConsumptionFails(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	c := &coupon.Coupon{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Code:          "FLAKY",
		Status:        coupon.StatusActive,
		DiscountType:  coupon.DiscountFixedAmount,
		DiscountValue: 1000,
		ValidFrom:     futureDate(-1),
		ValidUntil:    futureDate(60),
	}
	env := newTestEnv(t, baseSnapshot(tenantID), c)
	env.coupons.redeemErr = domain.NewConflictError("redeem failed")

	occurrences := 2
	req := threeNightRequest(uuid.New(), customerID)
	req.CouponCode = "FLAKY"
	req.Recurrence = &schedule.RecurrencePattern{
		Frequency:      schedule.FrequencyDaily,
		Interval:       7,
		MaxOccurrences: &occurrences,
	}

	_, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.Error(t, err)

	// Every secured stay was released, so the capacity is free again.
	for _, res := range env.reservations.all() {
		assert.Equal(t, reservation.StatusCancelled, res.Status())
		assert.Equal(t, int64(0), res.RefundCents())
	}

	env.coupons.redeemErr = nil
	_, err = env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	assert.NoError(t, err)
}

func TestLifecycleAwardsPointsOnCompletion(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositDefaults = deposit.Defaults{}
	snapshot.Loyalty = loyalty.Config{
		EarningRules: []loyalty.EarningRule{{ID: uuid.New(), Name: "base", PointsPerDollar: 1}},
	}
	env := newTestEnv(t, snapshot)

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)
	id := result.Reservations[0].ID

	dto, err := env.service.CheckIn(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCheckedIn), dto.Status)

	dto, err = env.service.CheckOut(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCheckedOut), dto.Status)

	dto, err = env.service.Complete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCompleted), dto.Status)
	assert.NotNil(t, dto.CompletedAt)

	// 30000 cents at 1 point per dollar.
	account := env.loyalty.account(customerID)
	assert.Equal(t, int64(300), account.CurrentPoints)
	assert.Equal(t, int64(300), account.LifetimePoints)

	assert.Equal(t, []string{
		reservation.EventConfirmed,
		reservation.EventCheckedIn,
		reservation.EventCheckedOut,
		reservation.EventCompleted,
	}, env.publisher.types())
}

func TestMarkDepositPaidConfirmsReservation(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	env := newTestEnv(t, baseSnapshot(tenantID))

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)
	id := result.Reservations[0].ID

	dto, err := env.service.MarkDepositPaid(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusConfirmed), dto.Status)
	assert.NotNil(t, dto.DepositPaidAt)

	// A second capture is an invalid transition.
	_, err = env.service.MarkDepositPaid(context.Background(), id)
	assert.True(t, domain.IsKind(err, domain.KindInvalidState))
}

func TestCancelRefundsPaidDepositByTier(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositRules = []deposit.Rule{{
		ID:          uuid.New(),
		Name:        "standard deposit",
		AmountType:  deposit.AmountFixed,
		AmountValue: 5000,
		DueDays:     7,
		RefundTiers: []deposit.RefundTier{
			{DaysBeforeStart: 14, RefundPercentage: 100},
			{DaysBeforeStart: 7, RefundPercentage: 50},
		},
	}}
	env := newTestEnv(t, snapshot)

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)
	id := result.Reservations[0].ID

	_, err = env.service.MarkDepositPaid(context.Background(), id)
	require.NoError(t, err)

	// Cancelling 30 days ahead lands in the full-refund tier.
	dto, err := env.service.Cancel(context.Background(), id, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCancelled), dto.Status)
	assert.Equal(t, "change of plans", dto.CancelNote)
	assert.Equal(t, int64(5000), dto.RefundCents)
	assert.Equal(t, reservation.EventCancelled, env.publisher.types()[len(env.publisher.types())-1])
}

func TestCancelUnpaidDepositRefundsNothing(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositRules = []deposit.Rule{{
		ID:          uuid.New(),
		Name:        "standard deposit",
		AmountType:  deposit.AmountFixed,
		AmountValue: 5000,
		RefundTiers: []deposit.RefundTier{{DaysBeforeStart: 7, RefundPercentage: 100}},
	}}
	env := newTestEnv(t, snapshot)

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)

	dto, err := env.service.Cancel(context.Background(), result.Reservations[0].ID, "never paid")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.RefundCents)
}

func TestRecurringBookingCreatesOneReservationPerStay(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	option := loyalty.RedemptionOption{ID: uuid.New(), PointsCost: 500, DiscountCents: 1500}
	snapshot := baseSnapshot(tenantID)
	snapshot.RedemptionOptions = []loyalty.RedemptionOption{option}
	env := newTestEnv(t, snapshot)
	env.loyalty.seed(customerID, 1000, 1000)

	occurrences := 3
	req := threeNightRequest(uuid.New(), customerID)
	req.Recurrence = &schedule.RecurrencePattern{
		Frequency:      schedule.FrequencyDaily,
		Interval:       7,
		MaxOccurrences: &occurrences,
	}
	req.RedemptionOptionID = &option.ID

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.NoError(t, err)

	require.Len(t, result.Reservations, 3)

	// Redeemed points attach to the first stay only.
	assert.Equal(t, int64(500), result.Reservations[0].LoyaltyPointsSpent)
	assert.Equal(t, int64(0), result.Reservations[1].LoyaltyPointsSpent)
	assert.Equal(t, int64(0), result.Reservations[2].LoyaltyPointsSpent)
	assert.Equal(t, int64(500), env.loyalty.account(customerID).CurrentPoints)

	// Each reservation carries its stay's share of the series money, never
	// the full series amount.
	var total, depositSum int64
	for _, res := range result.Reservations {
		assert.Equal(t, int64(30000), res.SubtotalCents)
		assert.Equal(t, int64(29500), res.TotalCents)
		total += res.TotalCents
		depositSum += res.Deposit.DepositAmountCents
	}
	assert.Equal(t, result.Quote.TotalCents, total)
	assert.Equal(t, result.Quote.Deposit.DepositAmountCents, depositSum)
}

func TestCompletingRecurringSeriesAwardsSeriesPointsOnce(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositDefaults = deposit.Defaults{}
	snapshot.Loyalty = loyalty.Config{
		EarningRules: []loyalty.EarningRule{{ID: uuid.New(), Name: "base", PointsPerDollar: 1}},
	}
	env := newTestEnv(t, snapshot)

	occurrences := 3
	req := threeNightRequest(uuid.New(), customerID)
	req.Recurrence = &schedule.RecurrencePattern{
		Frequency:      schedule.FrequencyDaily,
		Interval:       7,
		MaxOccurrences: &occurrences,
	}

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.NoError(t, err)
	require.Len(t, result.Reservations, 3)
	assert.Equal(t, int64(90000), result.Quote.TotalCents)

	for _, res := range result.Reservations {
		assert.Equal(t, int64(30000), res.TotalCents)
		_, err = env.service.CheckIn(context.Background(), res.ID)
		require.NoError(t, err)
		_, err = env.service.CheckOut(context.Background(), res.ID)
		require.NoError(t, err)
		_, err = env.service.Complete(context.Background(), res.ID)
		require.NoError(t, err)
	}

	// 90000 cents across the series at 1 point per dollar, not 1 point per
	// dollar of the series price per stay.
	account := env.loyalty.account(customerID)
	assert.Equal(t, int64(900), account.LifetimePoints)
}

func TestConfirmBookingSeparateSuitesFlagsReservation(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositDefaults = deposit.Defaults{}
	env := newTestEnv(t, snapshot)

	req := threeNightRequest(uuid.New(), customerID)
	req.Pets = append(onePet(customerID), onePet(uuid.New())...)

	result, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, req)
	require.NoError(t, err)
	require.Len(t, result.Reservations, 1)
	assert.True(t, result.Reservations[0].SeparateSuites)
}

func TestStatsCountsByStatus(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	snapshot := baseSnapshot(tenantID)
	snapshot.DepositDefaults = deposit.Defaults{}
	env := newTestEnv(t, snapshot)

	first, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)

	second, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, QuoteRequest{
		ServiceID: uuid.New(),
		SuiteType: "deluxe",
		Start:     futureDate(40),
		End:       futureDate(42),
		Pets:      onePet(customerID),
	})
	require.NoError(t, err)
	_ = first

	_, err = env.service.Cancel(context.Background(), second.Reservations[0].ID, "cancelled")
	require.NoError(t, err)

	stats, err := env.service.Stats(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[string(reservation.StatusConfirmed)])
	assert.Equal(t, int64(1), stats.ByStatus[string(reservation.StatusCancelled)])
}

func TestListCustomerReservations(t *testing.T) {
	tenantID, customerID := uuid.New(), uuid.New()
	env := newTestEnv(t, baseSnapshot(tenantID))

	_, err := env.service.ConfirmBooking(context.Background(), tenantID, customerID, threeNightRequest(uuid.New(), customerID))
	require.NoError(t, err)

	page, err := env.service.ListCustomerReservations(context.Background(), tenantID, customerID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, customerID, page.Items[0].CustomerID)

	other, err := env.service.ListCustomerReservations(context.Background(), tenantID, uuid.New(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Total)
}
