// Package model consumes externally trained classifiers through a single
// contract: feature vector in, probability-like score in [0,1] out.
// Training and artifact production happen outside this service.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// Scorer scores one feature vector. Implementations must return values in
// [0,1]; the decision assembler rejects anything outside.
type Scorer interface {
	Score(ctx context.Context, v domain.FeatureVector) (float64, error)
}

// LogisticScorer applies a logistic regression artifact: a bias plus one
// weight per feature name. Unknown feature names in the artifact are an
// error at load time rather than silently ignored at scoring time.
type LogisticScorer struct {
	weights map[string]float64
	bias    float64
}

type logisticArtifact struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// LoadLogistic reads a logistic regression artifact from a JSON file and
// checks its feature names against the given canonical key set.
func LoadLogistic(path string, featureKeys []string) (*LogisticScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact logisticArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	known := make(map[string]struct{}, len(featureKeys))
	for _, k := range featureKeys {
		known[k] = struct{}{}
	}
	for name := range artifact.Weights {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("model artifact %s references unknown feature %q", path, name)
		}
	}

	return &LogisticScorer{
		weights: artifact.Weights,
		bias:    artifact.Bias,
	}, nil
}

// Score computes sigmoid(bias + w·v).
func (s *LogisticScorer) Score(ctx context.Context, v domain.FeatureVector) (float64, error) {
	z := s.bias
	for name, w := range s.weights {
		z += w * v[name]
	}
	return sigmoid(z), nil
}

// StaticScorer always returns the same score. Used for rules-only
// deployments (no model artifact configured) and in tests.
type StaticScorer float64

// Score returns the fixed score.
func (s StaticScorer) Score(ctx context.Context, v domain.FeatureVector) (float64, error) {
	return float64(s), nil
}

// NormalizeAnomaly converts an unbounded anomaly score (e.g. an isolation
// forest's negated sample score) to a pseudo-probability in (0,1), centered
// so an anomaly score of 0.5 maps to 0.5.
func NormalizeAnomaly(anomaly float64) float64 {
	return sigmoid((anomaly - 0.5) * 5)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
