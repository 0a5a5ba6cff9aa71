package rules

import (
	"fmt"
	"math"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// TransactionLimits holds the literal thresholds for the built-in
// transaction rules.
type TransactionLimits struct {
	HighValueAmount      float64 `json:"high_value_amount"`
	ElevatedValueAmount  float64 `json:"elevated_value_amount"`
	VelocityCount1h      float64 `json:"velocity_count_1h"`
	DeviceChurnCount     float64 `json:"device_churn_count"`
	AmountZScore         float64 `json:"amount_z_score"`
	NightAmount          float64 `json:"night_amount"`
	NewAccountMaxAgeDays float64 `json:"new_account_max_age_days"`
	NewAccountAmount     float64 `json:"new_account_amount"`
	IPBurstCount1h       float64 `json:"ip_burst_count_1h"`
}

// DefaultTransactionLimits returns the standard transaction rule thresholds.
func DefaultTransactionLimits() TransactionLimits {
	return TransactionLimits{
		HighValueAmount:      50000,
		ElevatedValueAmount:  20000,
		VelocityCount1h:      5,
		DeviceChurnCount:     5,
		AmountZScore:         3,
		NightAmount:          10000,
		NewAccountMaxAgeDays: 30,
		NewAccountAmount:     15000,
		IPBurstCount1h:       10,
	}
}

// TransactionRules builds the built-in transaction rule table. The two
// amount tiers are mutually exclusive: only the matching tier contributes.
func TransactionRules(l TransactionLimits) *Set {
	return NewSet([]Rule{
		{
			Name:   "high-value",
			Boost:  0.25,
			Reason: fmt.Sprintf("High-value transaction (>%.0f)", l.HighValueAmount),
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatAmount] > l.HighValueAmount
			},
		},
		{
			Name:   "elevated-value",
			Boost:  0.10,
			Reason: fmt.Sprintf("Elevated transaction amount (>%.0f)", l.ElevatedValueAmount),
			When: func(v domain.FeatureVector) bool {
				amt := v[domain.FeatAmount]
				return amt > l.ElevatedValueAmount && amt <= l.HighValueAmount
			},
		},
		{
			Name:   "velocity-spike",
			Boost:  0.20,
			Reason: fmt.Sprintf("High transaction velocity (%.0f+ in 1 hour)", l.VelocityCount1h),
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatUser1hTx] > l.VelocityCount1h
			},
		},
		{
			Name:   "device-churn",
			Boost:  0.15,
			Reason: fmt.Sprintf("Frequent device changes (%.0f+ in 7 days)", l.DeviceChurnCount),
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatDevSwitch7d] > l.DeviceChurnCount
			},
		},
		{
			Name:   "geo-mismatch",
			Boost:  0.15,
			Reason: "Transaction from unusual location",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatCountryMismatch] == 1
			},
		},
		{
			Name:   "amount-anomaly",
			Boost:  0.12,
			Reason: "Amount significantly deviates from user pattern",
			When: func(v domain.FeatureVector) bool {
				return math.Abs(v[domain.FeatAmountZ]) > l.AmountZScore
			},
		},
		{
			Name:   "night-large-amount",
			Boost:  0.08,
			Reason: "Large transaction during unusual hours",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatIsNightTime] == 1 && v[domain.FeatAmount] > l.NightAmount
			},
		},
		{
			Name:   "new-account-large",
			Boost:  0.18,
			Reason: "New account with large transaction",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatAccountAgeDays] < l.NewAccountMaxAgeDays &&
					v[domain.FeatAmount] > l.NewAccountAmount
			},
		},
		{
			Name:   "ip-burst",
			Boost:  0.10,
			Reason: "Multiple transactions from same IP",
			When: func(v domain.FeatureVector) bool {
				return v[domain.FeatIP1hTx] > l.IPBurstCount1h
			},
		},
	})
}

// Limits bundles the per-class rule literals for configuration loading.
type Limits struct {
	Review      ReviewLimits      `json:"review"`
	Transaction TransactionLimits `json:"transaction"`
}

// DefaultLimits returns the standard thresholds for both classes.
func DefaultLimits() Limits {
	return Limits{
		Review:      DefaultReviewLimits(),
		Transaction: DefaultTransactionLimits(),
	}
}
