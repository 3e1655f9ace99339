package availability

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PawResorts/service-reservation/internal/domain/pet"
	"github.com/PawResorts/service-reservation/internal/domain/stay"
	"github.com/PawResorts/service-reservation/internal/domain/suite"
)

// Status classifies how well a requested stay fits remaining capacity.
type Status string

const (
	StatusAvailable          Status = "AVAILABLE"
	StatusPartiallyAvailable Status = "PARTIALLY_AVAILABLE"
	StatusUnavailable        Status = "UNAVAILABLE"
)

// Overlap is an existing reservation slice that intersects the window under
// consideration.
type Overlap struct {
	Range    stay.DateRange
	PetCount int
}

// DayCapacity is the per-date capacity picture for one suite type.
type DayCapacity struct {
	Date              time.Time `json:"date"`
	BookedCapacity    int       `json:"booked_capacity"`
	AvailableCapacity int       `json:"available_capacity"`
}

// CheckResult is the outcome of an availability query.
type CheckResult struct {
	Status            Status           `json:"status"`
	SuiteType         string           `json:"suite_type"`
	RequestedPetCount int              `json:"requested_pet_count"`
	Days              []DayCapacity    `json:"days"`
	AlternativeDates  []stay.DateRange `json:"alternative_dates,omitempty"`
	WaitlistAvailable bool             `json:"waitlist_available"`
}

// alternativeSearchDays bounds how far the resolver scans for alternative
// stays around an unavailable request.
const alternativeSearchDays = 30

// maxAlternatives caps how many alternative stays are suggested.
const maxAlternatives = 3

// Resolver computes per-date capacity and availability status for a suite
// type. It is pure apart from logging: overlapping reservations are passed in
// as a snapshot by the caller.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Check computes availability of the requested stay for petCount pets.
// overlaps must cover at least the requested range; reservations overlapping
// the surrounding alternative-search window improve alternative suggestions.
func (r *Resolver) Check(cfg suite.CapacityConfig, requested stay.DateRange, petCount int, overlaps []Overlap) CheckResult {
	result := CheckResult{
		SuiteType:         cfg.SuiteType,
		RequestedPetCount: petCount,
	}

	fitDays := 0
	for _, date := range requested.Dates() {
		day := r.dayCapacity(cfg, date, overlaps)
		result.Days = append(result.Days, day)
		if day.AvailableCapacity >= petCount {
			fitDays++
		}
	}

	switch {
	case fitDays == len(result.Days):
		result.Status = StatusAvailable
	case fitDays > 0:
		result.Status = StatusPartiallyAvailable
	default:
		result.Status = StatusUnavailable
	}

	if result.Status != StatusAvailable {
		result.AlternativeDates = r.findAlternatives(cfg, requested, petCount, overlaps)
	}
	if result.Status == StatusUnavailable {
		result.WaitlistAvailable = true
	}
	return result
}

// dayCapacity sums pets across reservations occupying the date and clamps
// the remainder at zero. A negative remainder means a prior overbooking bug;
// it is logged as an invariant violation, never propagated.
func (r *Resolver) dayCapacity(cfg suite.CapacityConfig, date time.Time, overlaps []Overlap) DayCapacity {
	booked := 0
	for _, o := range overlaps {
		if o.Range.ContainsDate(date) {
			booked += o.PetCount
		}
	}

	available := cfg.MaxPets - booked
	if available < 0 {
		r.logger.Error("capacity invariant violated: booked exceeds max",
			zap.String("suite_type", cfg.SuiteType),
			zap.Time("date", date),
			zap.Int("booked", booked),
			zap.Int("max_pets", cfg.MaxPets),
		)
		available = 0
	}

	return DayCapacity{Date: date, BookedCapacity: booked, AvailableCapacity: available}
}

// findAlternatives scans outward from the requested stay, nearest first, for
// windows of the same length with sufficient capacity every night.
func (r *Resolver) findAlternatives(cfg suite.CapacityConfig, requested stay.DateRange, petCount int, overlaps []Overlap) []stay.DateRange {
	var alternatives []stay.DateRange
	for offset := 1; offset <= alternativeSearchDays && len(alternatives) < maxAlternatives; offset++ {
		for _, shift := range []int{offset, -offset} {
			candidate := requested.Shift(shift)
			if shift < 0 && candidate.Start.Before(time.Now().UTC()) {
				continue
			}
			if r.fitsEveryNight(cfg, candidate, petCount, overlaps) {
				alternatives = append(alternatives, candidate)
				if len(alternatives) >= maxAlternatives {
					break
				}
			}
		}
	}
	return alternatives
}

func (r *Resolver) fitsEveryNight(cfg suite.CapacityConfig, candidate stay.DateRange, petCount int, overlaps []Overlap) bool {
	for _, date := range candidate.Dates() {
		if r.dayCapacity(cfg, date, overlaps).AvailableCapacity < petCount {
			return false
		}
	}
	return true
}

// CheckGroupRestrictions validates a pet group against the suite's
// restriction limits (max per breed, max large dogs). A zero limit means
// unlimited.
func CheckGroupRestrictions(cfg suite.CapacityConfig, pets []pet.Profile) error {
	if len(pets) > cfg.MaxPets {
		return fmt.Errorf("suite %s holds at most %d pets", cfg.SuiteType, cfg.MaxPets)
	}

	if cfg.MaxPerBreed > 0 {
		perBreed := make(map[string]int)
		for _, p := range pets {
			perBreed[strings.ToLower(p.Breed)]++
		}
		for breed, n := range perBreed {
			if n > cfg.MaxPerBreed {
				return fmt.Errorf("suite %s allows at most %d pets of breed %s", cfg.SuiteType, cfg.MaxPerBreed, breed)
			}
		}
	}

	if cfg.MaxLargeDogs > 0 {
		largeDogs := 0
		for _, p := range pets {
			if p.IsLargeDog() {
				largeDogs++
			}
		}
		if largeDogs > cfg.MaxLargeDogs {
			return fmt.Errorf("suite %s allows at most %d large dogs", cfg.SuiteType, cfg.MaxLargeDogs)
		}
	}
	return nil
}
