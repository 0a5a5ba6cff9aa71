package domain

import (
	"errors"
)

// Error taxonomy. Callers match with errors.Is; lower layers wrap these
// with %w and add context.
var (
	// ErrMissingRequiredField is raised at the request boundary before the
	// engine is invoked.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrHistoryUnavailable means the historical store failed mid-aggregation.
	// The aggregator propagates it rather than presenting a partial vector
	// as complete.
	ErrHistoryUnavailable = errors.New("history store unavailable")

	// ErrInvalidScoreInput means a model score or threshold was outside its
	// contractual range. Surfaced loudly instead of clamping so upstream
	// scoring bugs are not masked.
	ErrInvalidScoreInput = errors.New("invalid score input")

	// ErrIncompleteFeatureVector signals an internal invariant violation:
	// aggregation produced a vector missing a declared key.
	ErrIncompleteFeatureVector = errors.New("incomplete feature vector")
)
