package domain

import (
	"fmt"
)

// FeatureVector maps feature names to numeric values. For a given entity
// class the key set is fixed: a correctly built vector always carries every
// declared key, with 0 standing in for "no history" or "field absent".
type FeatureVector map[string]float64

// Review feature names.
const (
	FeatTextLen          = "text_len"
	FeatWordCount        = "word_count"
	FeatUpperRatio       = "upper_ratio"
	FeatDigitRatio       = "digit_ratio"
	FeatPunctRatio       = "punct_ratio"
	FeatExclaimRatio     = "exclaim_ratio"
	FeatQuestionRatio    = "question_ratio"
	FeatAvgWordLen       = "avg_word_len"
	FeatUniqueWordRatio  = "unique_word_ratio"
	FeatHasURL           = "has_url"
	FeatHasEmail         = "has_email"
	FeatRepeatedChars    = "repeated_chars"
	FeatRating           = "rating"
	FeatRatingDeviation  = "rating_deviation"
	FeatUserAvgRating    = "user_avg_rating"
	FeatUser30dReviews   = "user_30d_review_count"
	FeatUser7dReviews    = "user_7d_review_count"
	FeatUser1hReviews    = "user_1h_review_count"
	FeatIP30dReviews     = "ip_30d_review_count"
	FeatDeviceReviews    = "device_review_count"
	FeatDeviceUsers      = "device_unique_users"
	FeatProductReviews   = "product_review_count"
	FeatProductAvgRating = "product_avg_rating"
)

// Transaction feature names.
const (
	FeatAmount          = "amount"
	FeatHourOfDay       = "hour_of_day"
	FeatIsNightTime     = "is_night_time"
	FeatIsWeekend       = "is_weekend"
	FeatUserTotalTxs    = "user_total_txs"
	FeatUserAvgAmount   = "user_avg_amount"
	FeatUserMaxAmount   = "user_max_amount"
	FeatUserMinAmount   = "user_min_amount"
	FeatUserStdAmount   = "user_std_amount"
	FeatAmountZ         = "amount_z"
	FeatUser1hTx        = "user_1h_tx"
	FeatUser24hTx       = "user_24h_tx"
	FeatUser7dTx        = "user_7d_tx"
	FeatUser24hAmount   = "user_24h_amount"
	FeatIP1hTx          = "ip_1h_tx"
	FeatDevSwitch7d     = "dev_switch_7d"
	FeatRollingMeanDiff = "rolling_mean_diff"
	FeatRollingStd      = "rolling_std"
	FeatChannelMismatch = "channel_mismatch"
	FeatChannelFreq     = "channel_freq"
	FeatCountryMismatch = "country_mismatch"
)

// Shared feature names.
const (
	FeatAccountAgeDays = "account_age_days"
	FeatIPUniqueUsers  = "ip_unique_users"
)

var reviewFeatureKeys = []string{
	FeatTextLen, FeatWordCount,
	FeatUpperRatio, FeatDigitRatio, FeatPunctRatio, FeatExclaimRatio, FeatQuestionRatio,
	FeatAvgWordLen, FeatUniqueWordRatio,
	FeatHasURL, FeatHasEmail, FeatRepeatedChars,
	FeatRating, FeatRatingDeviation, FeatUserAvgRating,
	FeatAccountAgeDays,
	FeatUser30dReviews, FeatUser7dReviews, FeatUser1hReviews,
	FeatIP30dReviews, FeatIPUniqueUsers,
	FeatDeviceReviews, FeatDeviceUsers,
	FeatProductReviews, FeatProductAvgRating,
}

var transactionFeatureKeys = []string{
	FeatAmount,
	FeatHourOfDay, FeatIsNightTime, FeatIsWeekend,
	FeatAccountAgeDays,
	FeatUserTotalTxs, FeatUserAvgAmount, FeatUserMaxAmount, FeatUserMinAmount, FeatUserStdAmount,
	FeatAmountZ,
	FeatUser1hTx, FeatUser24hTx, FeatUser7dTx, FeatUser24hAmount,
	FeatIP1hTx, FeatIPUniqueUsers,
	FeatDevSwitch7d,
	FeatRollingMeanDiff, FeatRollingStd,
	FeatChannelMismatch, FeatChannelFreq,
	FeatCountryMismatch,
}

// ReviewFeatureKeys returns the canonical review feature key set.
func ReviewFeatureKeys() []string {
	keys := make([]string, len(reviewFeatureKeys))
	copy(keys, reviewFeatureKeys)
	return keys
}

// TransactionFeatureKeys returns the canonical transaction feature key set.
func TransactionFeatureKeys() []string {
	keys := make([]string, len(transactionFeatureKeys))
	copy(keys, transactionFeatureKeys)
	return keys
}

// NewFeatureVector returns a vector with every key present and zeroed, so
// downstream consumers never observe a missing key.
func NewFeatureVector(keys []string) FeatureVector {
	v := make(FeatureVector, len(keys))
	for _, k := range keys {
		v[k] = 0
	}
	return v
}

// Complete verifies that every declared key is present. A failure here is a
// programming error in the aggregation code, not a data condition.
func (v FeatureVector) Complete(keys []string) error {
	for _, k := range keys {
		if _, ok := v[k]; !ok {
			return fmt.Errorf("%w: missing %q", ErrIncompleteFeatureVector, k)
		}
	}
	return nil
}
