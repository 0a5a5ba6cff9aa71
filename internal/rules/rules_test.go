package rules

import (
	"math"
	"testing"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// reviewVector builds a feature vector representing an unremarkable review
// so individual tests only override the features they exercise.
func reviewVector() domain.FeatureVector {
	v := domain.NewFeatureVector(domain.ReviewFeatureKeys())
	v[domain.FeatTextLen] = 120
	v[domain.FeatRating] = 4
	v[domain.FeatAccountAgeDays] = 365
	return v
}

func transactionVector() domain.FeatureVector {
	v := domain.NewFeatureVector(domain.TransactionFeatureKeys())
	v[domain.FeatAmount] = 100
	v[domain.FeatAccountAgeDays] = 365
	return v
}

func TestReviewRules(t *testing.T) {
	set := ReviewRules(DefaultReviewLimits())

	t.Run("BenignReviewScoresZero", func(t *testing.T) {
		out := set.Evaluate(reviewVector())
		if out.Boost != 0 {
			t.Errorf("Expected zero boost, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
		if out.Reasons == nil {
			t.Error("Expected non-nil reasons slice")
		}
		if len(out.Reasons) != 0 {
			t.Errorf("Expected no reasons, got %v", out.Reasons)
		}
	})

	t.Run("ShoutingShortExtremeReview", func(t *testing.T) {
		// "AMAZING!!!" style: 5 stars, under 10 chars, all caps.
		// Fires shouting (0.05), short-text (0.10), extreme-rating-thin-text (0.10).
		v := reviewVector()
		v[domain.FeatTextLen] = 8
		v[domain.FeatUpperRatio] = 0.9
		v[domain.FeatRating] = 5

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.25) > 1e-9 {
			t.Errorf("Expected boost 0.25, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
		want := []string{
			"Excessive uppercase usage",
			"Suspiciously short review",
			"Extreme rating with minimal text",
		}
		if len(out.Reasons) != len(want) {
			t.Fatalf("Expected %d reasons, got %v", len(want), out.Reasons)
		}
		for i, reason := range want {
			if out.Reasons[i] != reason {
				t.Errorf("Reason %d: expected %q, got %q", i, reason, out.Reasons[i])
			}
		}
	})

	t.Run("BoundariesAreStrict", func(t *testing.T) {
		// Exactly at the limit must not fire.
		v := reviewVector()
		v[domain.FeatTextLen] = 10
		v[domain.FeatUpperRatio] = 0.4
		v[domain.FeatIP30dReviews] = 50
		v[domain.FeatRatingDeviation] = 2.5
		v[domain.FeatDeviceReviews] = 100

		out := set.Evaluate(v)
		if out.Boost != 0 {
			t.Errorf("Expected no rules at exact limits, got boost %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})

	t.Run("NewAccountBurst", func(t *testing.T) {
		v := reviewVector()
		v[domain.FeatAccountAgeDays] = 3
		v[domain.FeatUser30dReviews] = 6

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.20) > 1e-9 {
			t.Errorf("Expected boost 0.20, got %v", out.Boost)
		}
	})

	t.Run("RatingInconsistency", func(t *testing.T) {
		v := reviewVector()
		v[domain.FeatRatingDeviation] = 3.0

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.08) > 1e-9 {
			t.Errorf("Expected boost 0.08, got %v", out.Boost)
		}
	})
}

func TestTransactionRules(t *testing.T) {
	set := TransactionRules(DefaultTransactionLimits())

	t.Run("SmallTransactionScoresZero", func(t *testing.T) {
		out := set.Evaluate(transactionVector())
		if out.Boost != 0 {
			t.Errorf("Expected zero boost, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})

	t.Run("HighValueTier", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatAmount] = 60000

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.25) > 1e-9 {
			t.Errorf("Expected boost 0.25, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
		if len(out.Reasons) != 1 || out.Reasons[0] != "High-value transaction (>50000)" {
			t.Errorf("Unexpected reasons: %v", out.Reasons)
		}
	})

	t.Run("ElevatedValueTier", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatAmount] = 30000

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.10) > 1e-9 {
			t.Errorf("Expected boost 0.10, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})

	t.Run("TiersAreMutuallyExclusive", func(t *testing.T) {
		// Exactly 50000 sits in the elevated tier, not the high tier.
		v := transactionVector()
		v[domain.FeatAmount] = 50000

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.10) > 1e-9 {
			t.Errorf("Expected only elevated tier at 50000, got boost %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})

	t.Run("CompoundRisk", func(t *testing.T) {
		// High value + velocity + geo mismatch stack additively.
		v := transactionVector()
		v[domain.FeatAmount] = 75000
		v[domain.FeatUser1hTx] = 6
		v[domain.FeatCountryMismatch] = 1

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.60) > 1e-9 {
			t.Errorf("Expected boost 0.60, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
		if len(out.Reasons) != 3 {
			t.Errorf("Expected 3 reasons, got %v", out.Reasons)
		}
	})

	t.Run("AmountAnomalyUsesAbsoluteZ", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatAmountZ] = -3.5

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.12) > 1e-9 {
			t.Errorf("Expected boost 0.12 for negative z-score, got %v", out.Boost)
		}
	})

	t.Run("NightLargeAmount", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatIsNightTime] = 1
		v[domain.FeatAmount] = 12000

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.08) > 1e-9 {
			t.Errorf("Expected boost 0.08, got %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})

	t.Run("NightSmallAmountIgnored", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatIsNightTime] = 1
		v[domain.FeatAmount] = 500

		out := set.Evaluate(v)
		if out.Boost != 0 {
			t.Errorf("Expected no boost for small night transaction, got %v", out.Boost)
		}
	})

	t.Run("NewAccountLarge", func(t *testing.T) {
		v := transactionVector()
		v[domain.FeatAccountAgeDays] = 10
		v[domain.FeatAmount] = 25000

		out := set.Evaluate(v)
		if math.Abs(out.Boost-0.28) > 1e-9 {
			t.Errorf("Expected boost 0.28 (new account + elevated tier), got %v (reasons: %v)", out.Boost, out.Reasons)
		}
	})
}

func TestLimitOverrides(t *testing.T) {
	limits := DefaultTransactionLimits()
	limits.HighValueAmount = 1000

	set := TransactionRules(limits)
	v := transactionVector()
	v[domain.FeatAmount] = 1500

	out := set.Evaluate(v)
	if math.Abs(out.Boost-0.25) > 1e-9 {
		t.Errorf("Expected overridden high-value limit to fire, got boost %v", out.Boost)
	}
	if len(out.Reasons) != 1 || out.Reasons[0] != "High-value transaction (>1000)" {
		t.Errorf("Expected reason to reflect overridden limit, got %v", out.Reasons)
	}
}

func TestSetNames(t *testing.T) {
	set := ReviewRules(DefaultReviewLimits())
	names := set.Names()
	if len(names) != set.Len() {
		t.Fatalf("Expected %d names, got %d", set.Len(), len(names))
	}
	if names[0] != "ip-burst" {
		t.Errorf("Expected first rule ip-burst, got %s", names[0])
	}
}
