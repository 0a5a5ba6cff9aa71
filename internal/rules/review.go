package rules

import (
	"fmt"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// ReviewLimits holds the literal thresholds for the built-in review rules.
// Overrides come from configuration at startup; the table is fixed per
// process, never mutated per request.
type ReviewLimits struct {
	IPBurstCount         float64 `json:"ip_burst_count"`
	NewAccountMaxAgeDays float64 `json:"new_account_max_age_days"`
	NewAccountBurstCount float64 `json:"new_account_burst_count"`
	ShoutingUpperRatio   float64 `json:"shouting_upper_ratio"`
	ShortTextLen         float64 `json:"short_text_len"`
	LongTextLen          float64 `json:"long_text_len"`
	ExtremeRatingTextLen float64 `json:"extreme_rating_text_len"`
	RatingDeviation      float64 `json:"rating_deviation"`
	DeviceReuseCount     float64 `json:"device_reuse_count"`
}

// DefaultReviewLimits returns the standard review rule thresholds.
func DefaultReviewLimits() ReviewLimits {
	return ReviewLimits{
		IPBurstCount:         50,
		NewAccountMaxAgeDays: 7,
		NewAccountBurstCount: 5,
		ShoutingUpperRatio:   0.4,
		ShortTextLen:         10,
		LongTextLen:          1000,
		ExtremeRatingTextLen: 20,
		RatingDeviation:      2.5,
		DeviceReuseCount:     100,
	}
}

// ReviewRules builds the built-in review rule table. All comparisons are
// strict inequalities.
func ReviewRules(l ReviewLimits) *Set {
	return NewSet([]Rule{
		{
			Name:   "ip-burst",
			Boost:  0.15,
			Reason: fmt.Sprintf("Suspicious IP activity (%.0f+ reviews in 30 days)", l.IPBurstCount),
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatIP30dReviews] > l.IPBurstCount
			},
		},
		{
			Name:   "new-account-burst",
			Boost:  0.20,
			Reason: "New account with unusual activity",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatAccountAgeDays] < l.NewAccountMaxAgeDays &&
					v[domain.FeatUser30dReviews] > l.NewAccountBurstCount
			},
		},
		{
			Name:   "shouting",
			Boost:  0.05,
			Reason: "Excessive uppercase usage",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatUpperRatio] > l.ShoutingUpperRatio
			},
		},
		{
			Name:   "short-text",
			Boost:  0.10,
			Reason: "Suspiciously short review",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatTextLen] < l.ShortTextLen
			},
		},
		{
			Name:   "long-text",
			Boost:  0.05,
			Reason: "Unusually long review",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatTextLen] > l.LongTextLen
			},
		},
		{
			Name:   "extreme-rating-thin-text",
			Boost:  0.10,
			Reason: "Extreme rating with minimal text",
			When: func(v domain.FeatureVector) bool {
				r := v[domain.FeatRating]
				return (r == 1 || r == 5) && v[domain.FeatTextLen] < l.ExtremeRatingTextLen
			},
		},
		{
			Name:   "rating-inconsistency",
			Boost:  0.08,
			Reason: "Rating inconsistent with user history",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatRatingDeviation] > l.RatingDeviation
			},
		},
		{
			Name:   "device-reuse",
			Boost:  0.12,
			Reason: fmt.Sprintf("Device used for %.0f+ reviews", l.DeviceReuseCount),
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatDeviceReviews] > l.DeviceReuseCount
			},
		},
	})
}
