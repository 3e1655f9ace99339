package stay

import (
	"fmt"
	"time"
)

// DateRange is a half-open [Start, End) stay interval. Start and End carry
// the check-in and check-out time-of-day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange validates and builds a DateRange.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, fmt.Errorf("start and end are required")
	}
	if !end.After(start) {
		return DateRange{}, fmt.Errorf("end must be after start")
	}
	return DateRange{Start: start, End: end}, nil
}

// Nights returns the number of nights in the range, never less than 1.
func (r DateRange) Nights() int {
	nights := int(truncateDay(r.End).Sub(truncateDay(r.Start)) / (24 * time.Hour))
	if nights < 1 {
		nights = 1
	}
	return nights
}

// Duration returns the exact duration of the stay.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Dates returns each calendar night of the stay, truncated to midnight UTC.
// The check-out day itself is not occupied.
func (r DateRange) Dates() []time.Time {
	start := truncateDay(r.Start)
	end := truncateDay(r.End)
	if !end.After(start) {
		return []time.Time{start}
	}
	dates := make([]time.Time, 0, r.Nights())
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Overlaps reports whether two ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// ContainsDate reports whether the given calendar day is occupied by the stay.
func (r DateRange) ContainsDate(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(r.Start)) && d.Before(truncateDay(r.End))
}

// Shift returns the range moved by the given number of days, preserving
// time-of-day and duration.
func (r DateRange) Shift(days int) DateRange {
	return DateRange{
		Start: r.Start.AddDate(0, 0, days),
		End:   r.End.AddDate(0, 0, days),
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TruncateDay returns t at midnight UTC of the same calendar day.
func TruncateDay(t time.Time) time.Time {
	return truncateDay(t)
}
