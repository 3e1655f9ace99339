package compat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PawResorts/service-reservation/internal/domain/pet"
)

// Severity classifies how a failed compatibility rule affects the booking.
// ERROR blocks suite sharing; WARNING is surfaced but does not block.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Rule is a named predicate set applied to a group of pets requesting the
// same suite. Condition fields are optional; a nil field does not constrain.
// All configured conditions must hold for the rule to pass.
type Rule struct {
	Name             string        `json:"name"`
	Severity         Severity      `json:"severity"`
	MaxWeightDiffKg  *float64      `json:"max_weight_diff_kg,omitempty"`
	MinAgeMonths     *int          `json:"min_age_months,omitempty"`
	MaxAgeMonths     *int          `json:"max_age_months,omitempty"`
	RejectAggressive bool          `json:"reject_aggressive"`
	RejectContagious bool          `json:"reject_contagious"`
	AllowedBreeds    []string      `json:"allowed_breeds,omitempty"`
	DeniedBreeds     []string      `json:"denied_breeds,omitempty"`
	AppliesToSpecies []pet.Species `json:"applies_to_species,omitempty"`
}

// appliesTo reports whether the rule's scoping conditions select this group.
// A rule scoped to particular species only fires when every pet in the group
// is one of them.
func (r Rule) appliesTo(pets []pet.Profile) bool {
	if len(r.AppliesToSpecies) == 0 {
		return true
	}
	allowed := make(map[pet.Species]bool, len(r.AppliesToSpecies))
	for _, s := range r.AppliesToSpecies {
		allowed[s] = true
	}
	for _, p := range pets {
		if !allowed[p.Species] {
			return false
		}
	}
	return true
}

// Result is the outcome of a group compatibility check. Output is
// deterministic for a given pet set regardless of input order.
type Result struct {
	IsCompatible    bool     `json:"is_compatible"`
	Issues          []string `json:"issues,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Checker evaluates whether a group of pets may share one suite.
type Checker struct {
	// AllowUnrelatedOwners is the tenant override for the built-in
	// same-household rule.
	AllowUnrelatedOwners bool
}

// NewChecker creates a Checker with the default same-owner policy.
func NewChecker(allowUnrelatedOwners bool) *Checker {
	return &Checker{AllowUnrelatedOwners: allowUnrelatedOwners}
}

// Check evaluates every applicable rule independently and aggregates the
// outcome. Any ERROR makes the group incompatible; WARNINGs are surfaced but
// do not block.
func (c *Checker) Check(pets []pet.Profile, rules []Rule) Result {
	res := Result{IsCompatible: true}
	if len(pets) < 2 {
		return res
	}

	// Sort a copy by name then ID so rule evaluation and message order never
	// depend on request order.
	group := make([]pet.Profile, len(pets))
	copy(group, pets)
	sort.Slice(group, func(i, j int) bool {
		if group[i].Name != group[j].Name {
			return group[i].Name < group[j].Name
		}
		return group[i].ID.String() < group[j].ID.String()
	})

	c.checkSameOwner(group, &res)

	for _, rule := range rules {
		if !rule.appliesTo(group) {
			continue
		}
		c.applyRule(rule, group, &res)
	}

	if len(res.Issues) > 0 {
		res.IsCompatible = false
		res.Recommendations = append(res.Recommendations,
			"book separate suites for pets that cannot share")
	}
	return res
}

// checkSameOwner enforces the built-in same-household rule unless the tenant
// permits unrelated households to share.
func (c *Checker) checkSameOwner(group []pet.Profile, res *Result) {
	if c.AllowUnrelatedOwners {
		return
	}
	first := group[0].OwnerID
	for _, p := range group[1:] {
		if p.OwnerID != first {
			res.Issues = append(res.Issues,
				"pets from different households may not share a suite")
			return
		}
	}
}

func (c *Checker) applyRule(rule Rule, group []pet.Profile, res *Result) {
	var failures []string

	if rule.MaxWeightDiffKg != nil {
		minW, maxW := group[0].WeightKg, group[0].WeightKg
		for _, p := range group[1:] {
			if p.WeightKg < minW {
				minW = p.WeightKg
			}
			if p.WeightKg > maxW {
				maxW = p.WeightKg
			}
		}
		if maxW-minW > *rule.MaxWeightDiffKg {
			failures = append(failures, fmt.Sprintf(
				"weight difference %.1fkg exceeds limit %.1fkg", maxW-minW, *rule.MaxWeightDiffKg))
		}
	}

	for _, p := range group {
		if rule.MinAgeMonths != nil && p.AgeMonths < *rule.MinAgeMonths {
			failures = append(failures, fmt.Sprintf(
				"%s is younger than %d months", p.Name, *rule.MinAgeMonths))
		}
		if rule.MaxAgeMonths != nil && p.AgeMonths > *rule.MaxAgeMonths {
			failures = append(failures, fmt.Sprintf(
				"%s is older than %d months", p.Name, *rule.MaxAgeMonths))
		}
		if rule.RejectAggressive && p.Temperament == pet.TemperamentAggressive {
			failures = append(failures, fmt.Sprintf(
				"%s has an aggressive temperament", p.Name))
		}
		if rule.RejectContagious && p.IsContagious {
			failures = append(failures, fmt.Sprintf(
				"%s is flagged contagious", p.Name))
		}
		if len(rule.AllowedBreeds) > 0 && !containsFold(rule.AllowedBreeds, p.Breed) {
			failures = append(failures, fmt.Sprintf(
				"breed %s is not on the shared-suite allow list", p.Breed))
		}
		if containsFold(rule.DeniedBreeds, p.Breed) {
			failures = append(failures, fmt.Sprintf(
				"breed %s is on the shared-suite deny list", p.Breed))
		}
	}

	for _, f := range failures {
		msg := fmt.Sprintf("%s: %s", rule.Name, f)
		if rule.Severity == SeverityError {
			res.Issues = append(res.Issues, msg)
		} else {
			res.Warnings = append(res.Warnings, msg)
		}
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
