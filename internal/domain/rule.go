package domain

// RuleConfig is an operator-defined rule: a CEL predicate over the feature
// vector with a fixed boost and reason. Built-in rules are compiled into the
// binary; RuleConfigs extend them at runtime and are persisted in the store.
type RuleConfig struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Class       EntityClass `json:"class"`

	// Expression is a CEL expression over the feature map `f`, e.g.
	// `f["amount"] > 100000.0 && f["account_age_days"] < 7.0`.
	// It must evaluate to bool.
	Expression string `json:"expression"`

	Boost   float64 `json:"boost"`
	Reason  string  `json:"reason"`
	Enabled bool    `json:"enabled"`
}
