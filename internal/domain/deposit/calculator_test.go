package deposit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func depositRequest(totalCents int64, daysAhead, nights int) Request {
	start := testNow.AddDate(0, 0, daysAhead)
	return Request{
		TotalCents:  totalCents,
		ServiceID:   uuid.New(),
		Stay:        stay.DateRange{Start: start, End: start.AddDate(0, 0, nights)},
		BookingDate: testNow,
	}
}

func TestCalculateFirstMatchWins(t *testing.T) {
	calc := NewCalculator(Defaults{})
	rules := []Rule{
		{Name: "half", Priority: 20, AmountType: AmountPercentage, AmountValue: 50},
		{Name: "quarter", Priority: 10, AmountType: AmountPercentage, AmountValue: 25},
	}

	terms, err := calc.Calculate(depositRequest(20000, 30, 2), rules, testNow)
	require.NoError(t, err)

	// Lowest priority wins; the second matching rule never applies.
	assert.True(t, terms.Required)
	assert.Equal(t, "quarter", terms.RuleName)
	assert.Equal(t, int64(5000), terms.DepositAmountCents)
}

func TestCalculateRejectsMisconfiguredRuleBehindMatch(t *testing.T) {
	calc := NewCalculator(Defaults{})
	rules := []Rule{
		{Name: "standard", Priority: 10, AmountType: AmountPercentage, AmountValue: 25},
		{Name: "broken", Priority: 20, AmountType: "HALF"},
	}

	// The first rule would match, but a misconfigured rule anywhere in the
	// set is a configuration fault and surfaces eagerly.
	_, err := calc.Calculate(depositRequest(20000, 30, 2), rules, testNow)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestCalculateAmountTypes(t *testing.T) {
	calc := NewCalculator(Defaults{})

	tests := []struct {
		name string
		rule Rule
		want int64
	}{
		{"percentage", Rule{Name: "r", AmountType: AmountPercentage, AmountValue: 30}, 6000},
		{"fixed", Rule{Name: "r", AmountType: AmountFixed, AmountValue: 2500}, 2500},
		{"full", Rule{Name: "r", AmountType: AmountFull}, 20000},
		{"fixed capped at total", Rule{Name: "r", AmountType: AmountFixed, AmountValue: 50000}, 20000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := calc.Calculate(depositRequest(20000, 30, 2), []Rule{tt.rule}, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, terms.DepositAmountCents)
		})
	}
}

func TestCalculateConditions(t *testing.T) {
	calc := NewCalculator(Defaults{})
	rule := Rule{
		Name:        "long stays",
		AmountType:  AmountPercentage,
		AmountValue: 50,
		Conditions:  Conditions{MinNights: 5, MinTotalCents: 10000},
	}

	terms, err := calc.Calculate(depositRequest(20000, 30, 2), []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.False(t, terms.Required)

	terms, err = calc.Calculate(depositRequest(20000, 30, 7), []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.True(t, terms.Required)
	assert.Equal(t, "long stays", terms.RuleName)
}

func TestCalculateFirstTimeOnlyCondition(t *testing.T) {
	calc := NewCalculator(Defaults{})
	rule := Rule{
		Name:       "new customers",
		AmountType: AmountFull,
		Conditions: Conditions{FirstTimeOnly: true},
	}

	req := depositRequest(20000, 30, 2)
	terms, err := calc.Calculate(req, []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.False(t, terms.Required)

	req.FirstTimeCustomer = true
	terms, err = calc.Calculate(req, []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.True(t, terms.Required)
	assert.Equal(t, int64(20000), terms.DepositAmountCents)
}

func TestCalculateDueDate(t *testing.T) {
	calc := NewCalculator(Defaults{})
	rule := Rule{Name: "r", AmountType: AmountFixed, AmountValue: 1000, DueDays: 7}

	terms, err := calc.Calculate(depositRequest(20000, 30, 2), []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.False(t, terms.DueImmediately)
	assert.Equal(t, testNow.AddDate(0, 0, 23), terms.DueDate)

	// Check-in closer than the due window collapses to immediately.
	terms, err = calc.Calculate(depositRequest(20000, 3, 2), []Rule{rule}, testNow)
	require.NoError(t, err)
	assert.True(t, terms.DueImmediately)
	assert.Equal(t, testNow, terms.DueDate)
}

func TestCalculateDefaults(t *testing.T) {
	calc := NewCalculator(Defaults{DepositRequired: true, DepositAmountCents: 5000, DueDays: 3})

	terms, err := calc.Calculate(depositRequest(20000, 30, 2), nil, testNow)
	require.NoError(t, err)
	assert.True(t, terms.Required)
	assert.Empty(t, terms.RuleName)
	assert.Equal(t, int64(5000), terms.DepositAmountCents)

	none := NewCalculator(Defaults{})
	terms, err = none.Calculate(depositRequest(20000, 30, 2), nil, testNow)
	require.NoError(t, err)
	assert.False(t, terms.Required)
	assert.Zero(t, terms.DepositAmountCents)
}

func TestValidateRefundTiers(t *testing.T) {
	base := Rule{Name: "r", AmountType: AmountFull}

	ok := base
	ok.RefundTiers = []RefundTier{
		{DaysBeforeStart: 14, RefundPercentage: 100},
		{DaysBeforeStart: 7, RefundPercentage: 50},
		{DaysBeforeStart: 3, RefundPercentage: 25},
	}
	assert.NoError(t, ok.Validate())

	unsorted := base
	unsorted.RefundTiers = []RefundTier{
		{DaysBeforeStart: 7, RefundPercentage: 50},
		{DaysBeforeStart: 14, RefundPercentage: 100},
	}
	err := unsorted.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))

	nonDecreasing := base
	nonDecreasing.RefundTiers = []RefundTier{
		{DaysBeforeStart: 14, RefundPercentage: 50},
		{DaysBeforeStart: 7, RefundPercentage: 50},
	}
	err = nonDecreasing.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestRefundAmount(t *testing.T) {
	tiers := []RefundTier{
		{DaysBeforeStart: 14, RefundPercentage: 100},
		{DaysBeforeStart: 7, RefundPercentage: 50},
	}
	checkIn := time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cancelAt time.Time
		want     int64
	}{
		{"well in advance", checkIn.AddDate(0, 0, -20), 10000},
		{"exactly at threshold", checkIn.AddDate(0, 0, -14), 10000},
		{"mid tier", checkIn.AddDate(0, 0, -10), 5000},
		{"inside last threshold", checkIn.AddDate(0, 0, -2), 0},
		{"day of check-in", checkIn, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RefundAmount(10000, tiers, tt.cancelAt, checkIn))
		})
	}
}
