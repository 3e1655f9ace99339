package pet

import (
	"github.com/google/uuid"
)

// Species represents the kind of animal staying at the resort.
type Species string

const (
	SpeciesDog    Species = "dog"
	SpeciesCat    Species = "cat"
	SpeciesBird   Species = "bird"
	SpeciesRabbit Species = "rabbit"
	SpeciesOther  Species = "other"
)

// IsValid returns true if the species is recognized.
func (s Species) IsValid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRabbit, SpeciesOther:
		return true
	}
	return false
}

// Temperament describes how a pet behaves around other animals.
type Temperament string

const (
	TemperamentFriendly   Temperament = "friendly"
	TemperamentShy        Temperament = "shy"
	TemperamentAnxious    Temperament = "anxious"
	TemperamentAggressive Temperament = "aggressive"
)

// IsValid returns true if the temperament is recognized.
func (t Temperament) IsValid() bool {
	switch t {
	case TemperamentFriendly, TemperamentShy, TemperamentAnxious, TemperamentAggressive:
		return true
	}
	return false
}

// Profile is an immutable value object describing one pet in a booking
// request. Suite sharing decisions are made from these fields alone.
type Profile struct {
	ID           uuid.UUID   `json:"id"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	Name         string      `json:"name"`
	Species      Species     `json:"species"`
	Breed        string      `json:"breed"`
	WeightKg     float64     `json:"weight_kg"`
	AgeMonths    int         `json:"age_months"`
	Temperament  Temperament `json:"temperament"`
	IsContagious bool        `json:"is_contagious"`
	IsIntact     bool        `json:"is_intact"`
	SpecialNeeds string      `json:"special_needs,omitempty"`
}

// largeDogThresholdKg marks the weight at which a dog counts against a
// suite's large-dog limit.
const largeDogThresholdKg = 25.0

// IsLargeDog reports whether the pet counts as a large dog for suite
// restriction limits.
func (p Profile) IsLargeDog() bool {
	return p.Species == SpeciesDog && p.WeightKg >= largeDogThresholdKg
}
