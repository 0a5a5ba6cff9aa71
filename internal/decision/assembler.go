// Package decision fuses an external model score with the rule boost into
// one bounded, explainable decision record.
package decision

import (
	"fmt"
	"math"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// Confidence band distances from the threshold.
const (
	highConfidenceDistance   = 0.2
	mediumConfidenceDistance = 0.1
)

// Assemble combines a normalized model score with the rule boost:
//
//	final = clamp(model + boost, 0, 1)
//	decision = final >= threshold
//
// Scores are rounded to 4 decimal places and contribution percentages to 1.
// When final is exactly 0 the contributions are 100/0 by convention; near
// zero they stay an honest ratio even though tiny denominators make them
// swing, which is a documented sharp edge rather than something to smooth
// over.
//
// Invalid inputs (model score outside [0,1], negative threshold, negative
// boost, NaN anywhere) return ErrInvalidScoreInput instead of being clamped,
// so bugs in the scoring collaborator surface upstream.
func Assemble(modelScore, ruleBoost, threshold float64, reasons []string) (*domain.Decision, error) {
	if math.IsNaN(modelScore) || modelScore < 0 || modelScore > 1 {
		return nil, fmt.Errorf("%w: model score %v outside [0,1]", domain.ErrInvalidScoreInput, modelScore)
	}
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("%w: negative threshold %v", domain.ErrInvalidScoreInput, threshold)
	}
	if math.IsNaN(ruleBoost) || ruleBoost < 0 {
		return nil, fmt.Errorf("%w: negative rule boost %v", domain.ErrInvalidScoreInput, ruleBoost)
	}

	final := math.Min(1.0, math.Max(0.0, modelScore+ruleBoost))
	isFraud := final >= threshold

	distance := math.Abs(final - threshold)
	confidence := domain.ConfidenceLow
	switch {
	case distance > highConfidenceDistance:
		confidence = domain.ConfidenceHigh
	case distance > mediumConfidenceDistance:
		confidence = domain.ConfidenceMedium
	}

	modelPct, rulesPct := 100.0, 0.0
	if final > 0 {
		modelPct = modelScore / final * 100
		rulesPct = ruleBoost / final * 100
	}

	if reasons == nil {
		reasons = []string{}
	}

	return &domain.Decision{
		Decision:          isFraud,
		Confidence:        confidence,
		ScoreModel:        roundScore(modelScore),
		ScoreRules:        roundScore(ruleBoost),
		ScoreFinal:        roundScore(final),
		Threshold:         threshold,
		Reasons:           reasons,
		ModelContribution: roundPercent(modelPct),
		RulesContribution: roundPercent(rulesPct),
	}, nil
}

// roundScore rounds to 4 decimal places.
func roundScore(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// roundPercent rounds to 1 decimal place.
func roundPercent(x float64) float64 {
	return math.Round(x*10) / 10
}
