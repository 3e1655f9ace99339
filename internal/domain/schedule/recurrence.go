package schedule

import (
	"time"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
)

// Frequency is the repetition unit of a recurring reservation pattern.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// IsValid returns true if the frequency is recognized.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ReasonMissingTermination identifies a pattern with neither an end date nor
// an occurrence cap.
const ReasonMissingTermination = "missing_termination_condition"

// maxExpansion bounds the number of calendar days scanned during expansion so
// a misconfigured pattern can never loop unbounded.
const maxExpansion = 5 * 366

// RecurrencePattern describes how a stay repeats. EndDate and MaxOccurrences
// are independent stop conditions; whichever triggers first ends expansion.
type RecurrencePattern struct {
	Frequency      Frequency      `json:"frequency"`
	Interval       int            `json:"interval"`
	DaysOfWeek     []time.Weekday `json:"days_of_week,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	MaxOccurrences *int           `json:"max_occurrences,omitempty"`
}

// Validate checks the pattern's internal consistency.
func (p RecurrencePattern) Validate() error {
	if !p.Frequency.IsValid() {
		return domain.NewValidationError("invalid recurrence frequency: " + string(p.Frequency))
	}
	if p.Interval < 1 {
		return domain.NewValidationError("recurrence interval must be at least 1")
	}
	if p.Frequency == FrequencyWeekly && len(p.DaysOfWeek) == 0 {
		return domain.NewValidationError("weekly recurrence requires at least one day of week")
	}
	if p.EndDate == nil && p.MaxOccurrences == nil {
		return domain.NewConfigurationError(ReasonMissingTermination,
			"recurrence pattern has neither end date nor max occurrences")
	}
	if p.MaxOccurrences != nil && *p.MaxOccurrences < 1 {
		return domain.NewValidationError("max occurrences must be at least 1")
	}
	return nil
}

// Expand turns the pattern and an anchor stay into the concrete sequence of
// stays, each preserving the anchor's time-of-day and duration. The result is
// ordered, deduplicated and finite. Expansion is pure: calling it again with
// the same inputs yields the same sequence.
func (p RecurrencePattern) Expand(anchor stay.DateRange) ([]stay.DateRange, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Frequency {
	case FrequencyDaily:
		return p.expandDaily(anchor), nil
	case FrequencyWeekly:
		return p.expandWeekly(anchor), nil
	default:
		return p.expandMonthly(anchor), nil
	}
}

// expandDaily steps the anchor forward interval days at a time, starting with
// the anchor stay itself.
func (p RecurrencePattern) expandDaily(anchor stay.DateRange) []stay.DateRange {
	var out []stay.DateRange
	for k := 0; k*p.Interval <= maxExpansion; k++ {
		occ := anchor.Shift(k * p.Interval)
		if p.pastEnd(occ.Start) {
			break
		}
		out = append(out, occ)
		if p.reachedCap(len(out)) {
			break
		}
	}
	return out
}

// expandWeekly scans each day after the anchor and keeps the ones whose
// weekday is selected and whose week index matches the interval.
func (p RecurrencePattern) expandWeekly(anchor stay.DateRange) []stay.DateRange {
	selected := make(map[time.Weekday]bool, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		selected[d] = true
	}

	var out []stay.DateRange
	for days := 1; days <= maxExpansion; days++ {
		occ := anchor.Shift(days)
		if p.pastEnd(occ.Start) {
			break
		}
		if !selected[occ.Start.Weekday()] {
			continue
		}
		if (days/7)%p.Interval != 0 {
			continue
		}
		out = append(out, occ)
		if p.reachedCap(len(out)) {
			break
		}
	}
	return out
}

// expandMonthly preserves the anchor's day-of-month. Months too short for
// that day are skipped rather than rolled over.
func (p RecurrencePattern) expandMonthly(anchor stay.DateRange) []stay.DateRange {
	dayOfMonth := anchor.Start.Day()

	var out []stay.DateRange
	for k := 0; k*p.Interval <= maxExpansion/28; k++ {
		// AddDate rolls over short months (Jan 31 + 1 month = Mar 3), so the
		// target month is computed from the first of the month instead.
		firstOfMonth := time.Date(anchor.Start.Year(), anchor.Start.Month(), 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, k*p.Interval, 0)
		year, month := firstOfMonth.Year(), firstOfMonth.Month()

		if dayOfMonth > daysInMonth(year, month) {
			continue
		}

		start := time.Date(year, month, dayOfMonth,
			anchor.Start.Hour(), anchor.Start.Minute(), anchor.Start.Second(), 0, anchor.Start.Location())
		occ := stay.DateRange{Start: start, End: start.Add(anchor.Duration())}

		if p.pastEnd(occ.Start) {
			break
		}
		out = append(out, occ)
		if p.reachedCap(len(out)) {
			break
		}
	}
	return out
}

func (p RecurrencePattern) pastEnd(start time.Time) bool {
	if p.EndDate == nil {
		return false
	}
	return stay.TruncateDay(start).After(stay.TruncateDay(*p.EndDate))
}

func (p RecurrencePattern) reachedCap(count int) bool {
	return p.MaxOccurrences != nil && count >= *p.MaxOccurrences
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
