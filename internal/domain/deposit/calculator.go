package deposit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
)

// AmountType determines how a deposit amount is derived from the total.
type AmountType string

const (
	AmountPercentage AmountType = "PERCENTAGE"
	AmountFixed      AmountType = "FIXED"
	AmountFull       AmountType = "FULL"
)

// IsValid returns true if the amount type is recognized.
func (t AmountType) IsValid() bool {
	switch t {
	case AmountPercentage, AmountFixed, AmountFull:
		return true
	}
	return false
}

// RefundTier pairs a days-before-check-in threshold with a refund percentage.
// Within one rule, tiers are ordered by descending DaysBeforeStart with
// strictly decreasing RefundPercentage as the cancellation date approaches.
type RefundTier struct {
	DaysBeforeStart  int     `json:"days_before_start"`
	RefundPercentage float64 `json:"refund_percentage"`
}

// Conditions gate a deposit rule. Nil and zero-valued fields do not
// constrain.
type Conditions struct {
	MinTotalCents  int64          `json:"min_total_cents"`
	MaxTotalCents  int64          `json:"max_total_cents"`
	ServiceIDs     []uuid.UUID    `json:"service_ids,omitempty"`
	MinAdvanceDays int            `json:"min_advance_days"`
	MaxAdvanceDays int            `json:"max_advance_days"`
	DaysOfWeek     []time.Weekday `json:"days_of_week,omitempty"`
	MinNights      int            `json:"min_nights"`
	MaxNights      int            `json:"max_nights"`
	FirstTimeOnly  bool           `json:"first_time_only"`
}

// Rule maps matched conditions to a payment term. Rules are evaluated in
// ascending priority order and the first full match wins; a deposit is a
// single payment term, not a stack of adjustments like pricing rules.
type Rule struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Priority    int          `json:"priority"`
	Conditions  Conditions   `json:"conditions"`
	AmountType  AmountType   `json:"amount_type"`
	AmountValue float64      `json:"amount_value"`
	DueDays     int          `json:"due_days"`
	RefundTiers []RefundTier `json:"refund_tiers"`
}

// Validate checks the rule's internal consistency, including the refund tier
// monotonicity invariant.
func (r Rule) Validate() error {
	if !r.AmountType.IsValid() {
		return domain.NewConfigurationError("invalid_deposit_amount_type",
			fmt.Sprintf("deposit rule %s has unknown amount type %q", r.Name, r.AmountType))
	}
	if r.AmountType == AmountPercentage && (r.AmountValue <= 0 || r.AmountValue > 100) {
		return domain.NewConfigurationError("invalid_deposit_percentage",
			fmt.Sprintf("deposit rule %s percentage must be in (0, 100]", r.Name))
	}
	for i := 1; i < len(r.RefundTiers); i++ {
		prev, cur := r.RefundTiers[i-1], r.RefundTiers[i]
		if cur.DaysBeforeStart >= prev.DaysBeforeStart {
			return domain.NewConfigurationError("refund_tiers_not_sorted",
				fmt.Sprintf("deposit rule %s refund tiers must descend by days before start", r.Name))
		}
		if cur.RefundPercentage >= prev.RefundPercentage {
			return domain.NewConfigurationError("refund_tiers_not_monotonic",
				fmt.Sprintf("deposit rule %s refund percentages must strictly decrease toward check-in", r.Name))
		}
	}
	return nil
}

// Request carries the reservation facts a deposit rule is matched against.
type Request struct {
	TotalCents        int64
	ServiceID         uuid.UUID
	Stay              stay.DateRange
	BookingDate       time.Time
	FirstTimeCustomer bool
}

// Terms is the selected payment term for a reservation.
type Terms struct {
	Required           bool         `json:"required"`
	RuleName           string       `json:"rule_name,omitempty"`
	DepositAmountCents int64        `json:"deposit_amount_cents"`
	DueDate            time.Time    `json:"due_date"`
	DueImmediately     bool         `json:"due_immediately"`
	RefundTiers        []RefundTier `json:"refund_tiers,omitempty"`
}

// Defaults is the fallback when no rule matches.
type Defaults struct {
	DepositRequired    bool
	DepositAmountCents int64
	DueDays            int
}

// Calculator selects the applicable deposit rule and produces payment terms.
type Calculator struct {
	defaults Defaults
}

// NewCalculator creates a Calculator with the tenant's fallback policy.
func NewCalculator(defaults Defaults) *Calculator {
	return &Calculator{defaults: defaults}
}

// Calculate evaluates active rules in ascending priority order and returns
// terms from the first rule whose conditions all match. Every rule is
// validated before matching starts, so a misconfigured rule surfaces even
// when an earlier rule would win. now anchors the due-date collapse: a due
// date already in the past becomes "immediately".
func (c *Calculator) Calculate(req Request, rules []Rule, now time.Time) (Terms, error) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, rule := range ordered {
		if err := rule.Validate(); err != nil {
			return Terms{}, err
		}
	}

	for _, rule := range ordered {
		if !rule.matches(req) {
			continue
		}
		return c.termsFromRule(rule, req, now)
	}

	if !c.defaults.DepositRequired {
		return Terms{Required: false}, nil
	}
	amount := c.defaults.DepositAmountCents
	if amount > req.TotalCents {
		amount = req.TotalCents
	}
	due, immediately := dueDate(req.Stay.Start, c.defaults.DueDays, now)
	return Terms{
		Required:           true,
		DepositAmountCents: amount,
		DueDate:            due,
		DueImmediately:     immediately,
	}, nil
}

func (c *Calculator) termsFromRule(rule Rule, req Request, now time.Time) (Terms, error) {
	var amount int64
	switch rule.AmountType {
	case AmountPercentage:
		amount = int64(math.Round(float64(req.TotalCents) * rule.AmountValue / 100))
	case AmountFixed:
		amount = int64(math.Round(rule.AmountValue))
	case AmountFull:
		amount = req.TotalCents
	}
	if amount > req.TotalCents {
		amount = req.TotalCents
	}
	if amount < 0 {
		amount = 0
	}

	due, immediately := dueDate(req.Stay.Start, rule.DueDays, now)
	return Terms{
		Required:           true,
		RuleName:           rule.Name,
		DepositAmountCents: amount,
		DueDate:            due,
		DueImmediately:     immediately,
		RefundTiers:        rule.RefundTiers,
	}, nil
}

func dueDate(checkIn time.Time, dueDays int, now time.Time) (time.Time, bool) {
	due := checkIn.AddDate(0, 0, -dueDays)
	if due.Before(now) {
		return now, true
	}
	return due, false
}

func (r Rule) matches(req Request) bool {
	c := r.Conditions
	if c.MinTotalCents > 0 && req.TotalCents < c.MinTotalCents {
		return false
	}
	if c.MaxTotalCents > 0 && req.TotalCents > c.MaxTotalCents {
		return false
	}
	if len(c.ServiceIDs) > 0 && !containsUUID(c.ServiceIDs, req.ServiceID) {
		return false
	}

	advance := daysBetween(req.BookingDate, req.Stay.Start)
	if c.MinAdvanceDays > 0 && advance < c.MinAdvanceDays {
		return false
	}
	if c.MaxAdvanceDays > 0 && advance > c.MaxAdvanceDays {
		return false
	}

	if len(c.DaysOfWeek) > 0 && !containsWeekday(c.DaysOfWeek, req.Stay.Start.Weekday()) {
		return false
	}

	nights := req.Stay.Nights()
	if c.MinNights > 0 && nights < c.MinNights {
		return false
	}
	if c.MaxNights > 0 && nights > c.MaxNights {
		return false
	}

	if c.FirstTimeOnly && !req.FirstTimeCustomer {
		return false
	}
	return true
}

// RefundAmount computes the refundable portion of totalPaid when cancelling
// at cancelAt for a stay starting at checkIn. The first tier whose threshold
// is met by the actual days-before-check-in wins; cancelling inside the last
// threshold refunds nothing.
func RefundAmount(totalPaidCents int64, tiers []RefundTier, cancelAt, checkIn time.Time) int64 {
	daysBefore := daysBetween(cancelAt, checkIn)
	for _, tier := range tiers {
		if daysBefore >= tier.DaysBeforeStart {
			return int64(math.Round(float64(totalPaidCents) * tier.RefundPercentage / 100))
		}
	}
	return 0
}

func daysBetween(from, to time.Time) int {
	days := int(stay.TruncateDay(to).Sub(stay.TruncateDay(from)) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

func containsUUID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func containsWeekday(list []time.Weekday, d time.Weekday) bool {
	for _, v := range list {
		if v == d {
			return true
		}
	}
	return false
}
