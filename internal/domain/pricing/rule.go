package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
)

// RuleType discriminates the pricing rule variants.
type RuleType string

const (
	RuleSeasonal       RuleType = "SEASONAL"
	RulePeakTime       RuleType = "PEAK_TIME"
	RuleCapacityBased  RuleType = "CAPACITY_BASED"
	RuleSpecialEvent   RuleType = "SPECIAL_EVENT"
	RuleAdvanceBooking RuleType = "ADVANCE_BOOKING"
	RuleLastMinute     RuleType = "LAST_MINUTE"
)

// IsValid returns true if the rule type is recognized.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleSeasonal, RulePeakTime, RuleCapacityBased, RuleSpecialEvent, RuleAdvanceBooking, RuleLastMinute:
		return true
	}
	return false
}

// AdjustmentType determines how AdjustmentValue modifies the running price.
type AdjustmentType string

const (
	AdjustPercentage  AdjustmentType = "PERCENTAGE"
	AdjustFixedAmount AdjustmentType = "FIXED_AMOUNT"
)

// IsValid returns true if the adjustment type is recognized.
func (t AdjustmentType) IsValid() bool {
	return t == AdjustPercentage || t == AdjustFixedAmount
}

// MonthDayWindow is a recurring yearly window expressed as month/day pairs.
// Windows may cross the year boundary (Dec 20 – Jan 5).
type MonthDayWindow struct {
	StartMonth time.Month `json:"start_month"`
	StartDay   int        `json:"start_day"`
	EndMonth   time.Month `json:"end_month"`
	EndDay     int        `json:"end_day"`
}

// Contains reports whether the date's month/day falls inside the window,
// handling year-boundary wraparound.
func (w MonthDayWindow) Contains(t time.Time) bool {
	d := int(t.Month())*100 + t.Day()
	start := int(w.StartMonth)*100 + w.StartDay
	end := int(w.EndMonth)*100 + w.EndDay
	if start <= end {
		return d >= start && d <= end
	}
	// Wraps the year boundary.
	return d >= start || d <= end
}

// SeasonalCondition scopes a SEASONAL rule to a recurring yearly window.
type SeasonalCondition struct {
	Window MonthDayWindow `json:"window"`
}

// PeakTimeCondition scopes a PEAK_TIME rule to specific weekdays.
type PeakTimeCondition struct {
	DaysOfWeek []time.Weekday `json:"days_of_week"`
}

// CapacityCondition scopes a CAPACITY_BASED rule to an occupancy band.
type CapacityCondition struct {
	MinOccupancyPct float64 `json:"min_occupancy_pct"`
	MaxOccupancyPct float64 `json:"max_occupancy_pct"`
}

// SpecialEventCondition scopes a SPECIAL_EVENT rule to a named event window.
type SpecialEventCondition struct {
	EventName string         `json:"event_name"`
	Window    MonthDayWindow `json:"window"`
}

// AdvanceBookingCondition rewards booking at least MinDaysAhead in advance.
type AdvanceBookingCondition struct {
	MinDaysAhead int `json:"min_days_ahead"`
}

// LastMinuteCondition applies when booking at most MaxDaysAhead before
// check-in.
type LastMinuteCondition struct {
	MaxDaysAhead int `json:"max_days_ahead"`
}

// Rule is one pricing rule. Exactly one condition field matching Type is set;
// the others stay nil, keeping variant fields out of each other's way.
type Rule struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Type            RuleType       `json:"type"`
	Priority        int            `json:"priority"`
	AdjustmentType  AdjustmentType `json:"adjustment_type"`
	AdjustmentValue float64        `json:"adjustment_value"`

	// Applicability filters. Empty slices match everything.
	ServiceIDs []uuid.UUID `json:"service_ids,omitempty"`
	SuiteTypes []string    `json:"suite_types,omitempty"`
	ValidFrom  *time.Time  `json:"valid_from,omitempty"`
	ValidUntil *time.Time  `json:"valid_until,omitempty"`

	Seasonal     *SeasonalCondition       `json:"seasonal,omitempty"`
	PeakTime     *PeakTimeCondition       `json:"peak_time,omitempty"`
	Capacity     *CapacityCondition       `json:"capacity,omitempty"`
	SpecialEvent *SpecialEventCondition   `json:"special_event,omitempty"`
	Advance      *AdvanceBookingCondition `json:"advance,omitempty"`
	LastMinute   *LastMinuteCondition     `json:"last_minute,omitempty"`
}

// Validate checks the rule's internal consistency. A rule whose condition
// block is missing for its type is a configuration fault: quoting must abort
// rather than silently skip it.
func (r Rule) Validate() error {
	if !r.Type.IsValid() {
		return domain.NewConfigurationError("invalid_rule_type",
			fmt.Sprintf("pricing rule %s has unknown type %q", r.Name, r.Type))
	}
	if !r.AdjustmentType.IsValid() {
		return domain.NewConfigurationError("invalid_adjustment_type",
			fmt.Sprintf("pricing rule %s has unknown adjustment type %q", r.Name, r.AdjustmentType))
	}
	if r.AdjustmentType == AdjustPercentage && r.AdjustmentValue <= -100 {
		return domain.NewConfigurationError("invalid_adjustment_value",
			fmt.Sprintf("pricing rule %s discounts more than 100%%", r.Name))
	}

	ok := false
	switch r.Type {
	case RuleSeasonal:
		ok = r.Seasonal != nil
	case RulePeakTime:
		ok = r.PeakTime != nil && len(r.PeakTime.DaysOfWeek) > 0
	case RuleCapacityBased:
		ok = r.Capacity != nil && r.Capacity.MaxOccupancyPct >= r.Capacity.MinOccupancyPct
	case RuleSpecialEvent:
		ok = r.SpecialEvent != nil
	case RuleAdvanceBooking:
		ok = r.Advance != nil && r.Advance.MinDaysAhead >= 0
	case RuleLastMinute:
		ok = r.LastMinute != nil && r.LastMinute.MaxDaysAhead >= 0
	}
	if !ok {
		return domain.NewConfigurationError("missing_rule_condition",
			fmt.Sprintf("pricing rule %s is missing its %s condition", r.Name, r.Type))
	}
	return nil
}

// Context carries the booking facts a rule is matched against.
type Context struct {
	ServiceID    uuid.UUID
	SuiteType    string
	Stay         stay.DateRange
	BookingDate  time.Time
	OccupancyPct float64
}

// daysAhead returns whole days between booking and check-in, floored at zero.
func (c Context) daysAhead() int {
	days := int(stay.TruncateDay(c.Stay.Start).Sub(stay.TruncateDay(c.BookingDate)) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	return days
}

// Matches reports whether the rule applies to the context: applicability
// filters first, then the type-specific condition.
func (r Rule) Matches(ctx Context) bool {
	if len(r.ServiceIDs) > 0 && !containsUUID(r.ServiceIDs, ctx.ServiceID) {
		return false
	}
	if len(r.SuiteTypes) > 0 && !containsString(r.SuiteTypes, ctx.SuiteType) {
		return false
	}
	if r.ValidFrom != nil && ctx.BookingDate.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && ctx.BookingDate.After(*r.ValidUntil) {
		return false
	}

	switch r.Type {
	case RuleSeasonal:
		return anyNightIn(ctx.Stay, r.Seasonal.Window)
	case RulePeakTime:
		return anyNightOn(ctx.Stay, r.PeakTime.DaysOfWeek)
	case RuleCapacityBased:
		return ctx.OccupancyPct >= r.Capacity.MinOccupancyPct &&
			ctx.OccupancyPct <= r.Capacity.MaxOccupancyPct
	case RuleSpecialEvent:
		return anyNightIn(ctx.Stay, r.SpecialEvent.Window)
	case RuleAdvanceBooking:
		return ctx.daysAhead() >= r.Advance.MinDaysAhead
	case RuleLastMinute:
		return ctx.daysAhead() <= r.LastMinute.MaxDaysAhead
	}
	return false
}

func anyNightIn(s stay.DateRange, w MonthDayWindow) bool {
	for _, night := range s.Dates() {
		if w.Contains(night) {
			return true
		}
	}
	return false
}

func anyNightOn(s stay.DateRange, days []time.Weekday) bool {
	selected := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		selected[d] = true
	}
	for _, night := range s.Dates() {
		if selected[night.Weekday()] {
			return true
		}
	}
	return false
}

func containsUUID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
