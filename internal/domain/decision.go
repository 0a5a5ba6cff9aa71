package domain

// Confidence bands describing how far the final score sits from the
// decision threshold.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Decision is the immutable result of scoring one event. Scores are rounded
// to 4 decimal places and contribution percentages to 1, so two runs over
// the same inputs compare equal. The caller owns persistence.
type Decision struct {
	Decision          bool     `json:"decision"`
	Confidence        string   `json:"confidence"`
	ScoreModel        float64  `json:"score_model"`
	ScoreRules        float64  `json:"score_rules"`
	ScoreFinal        float64  `json:"score_final"`
	Threshold         float64  `json:"threshold"`
	Reasons           []string `json:"reasons"`
	ModelContribution float64  `json:"model_contribution"`
	RulesContribution float64  `json:"rules_contribution"`
}

// RuleOutcome is the additive result of rule evaluation: a non-negative
// score boost and the reasons for every rule that fired, in rule-declaration
// order.
type RuleOutcome struct {
	Boost   float64  `json:"boost"`
	Reasons []string `json:"reasons"`
}
