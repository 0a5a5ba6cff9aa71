// Package rules evaluates deterministic business rules over feature
// vectors. Built-in rules are declarative tables of (predicate, boost,
// reason) evaluated in declaration order; operator-defined CEL rules extend
// them at runtime.
package rules

import (
	"github.com/ecomtrust/kestrel/internal/domain"
)

// Rule is one named predicate over the feature vector. Predicates use
// literal thresholds baked in at construction; reasons may embed those
// literals for context but never data-derived values.
type Rule struct {
	Name   string
	Boost  float64
	Reason string
	When   func(domain.FeatureVector) bool
}

// Set is an ordered rule table for one entity class.
type Set struct {
	rules []Rule
}

// NewSet creates a rule set preserving declaration order.
func NewSet(rules []Rule) *Set {
	return &Set{rules: rules}
}

// Evaluate applies every rule independently. Boosts sum with no cap and no
// short-circuit; capping happens during fusion. Reasons come out as a
// stable subsequence of the declaration order.
func (s *Set) Evaluate(v domain.FeatureVector) domain.RuleOutcome {
	out := domain.RuleOutcome{Reasons: []string{}}
	for _, r := range s.rules {
		if r.When(v) {
			out.Boost += r.Boost
			out.Reasons = append(out.Reasons, r.Reason)
		}
	}
	return out
}

// Names returns the rule names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name
	}
	return names
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}
