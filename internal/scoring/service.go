// Package scoring orchestrates the hybrid decision pipeline:
// event, then feature aggregation, then model scoring and rule evaluation
// in parallel, then fusion.
// Each call is stateless and independent; arbitrarily many may run in
// parallel, with the historical store as the only shared resource.
package scoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ecomtrust/kestrel/internal/decision"
	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/features"
	"github.com/ecomtrust/kestrel/internal/model"
	"github.com/ecomtrust/kestrel/internal/rules"
)

var tracer = otel.Tracer("kestrel-scoring")

// Thresholds holds the per-class decision thresholds, supplied by
// configuration at construction time.
type Thresholds struct {
	Review      float64
	Transaction float64
}

// Service scores single events. It holds no cross-request mutable state.
type Service struct {
	reviews      *features.ReviewAggregator
	transactions *features.TransactionAggregator

	reviewRules      *rules.Set
	transactionRules *rules.Set
	custom           *rules.CustomEngine // optional

	reviewScorer      model.Scorer
	transactionScorer model.Scorer

	thresholds Thresholds
}

// New creates a scoring service. The custom engine may be nil.
func New(
	reviews *features.ReviewAggregator,
	transactions *features.TransactionAggregator,
	reviewRules, transactionRules *rules.Set,
	custom *rules.CustomEngine,
	reviewScorer, transactionScorer model.Scorer,
	thresholds Thresholds,
) *Service {
	return &Service{
		reviews:           reviews,
		transactions:      transactions,
		reviewRules:       reviewRules,
		transactionRules:  transactionRules,
		custom:            custom,
		reviewScorer:      reviewScorer,
		transactionScorer: transactionScorer,
		thresholds:        thresholds,
	}
}

// ScoreReview scores one review event. The returned feature vector is the
// one both the model and the rules saw, for audit purposes.
func (s *Service) ScoreReview(ctx context.Context, ev *domain.ReviewEvent) (*domain.Decision, domain.FeatureVector, error) {
	ctx, span := tracer.Start(ctx, "score.review")
	defer span.End()

	vec, err := s.reviews.Features(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	d, err := s.fuse(ctx, domain.ClassReview, vec, s.reviewScorer, s.reviewRules, s.thresholds.Review, span)
	if err != nil {
		return nil, nil, err
	}
	return d, vec, nil
}

// ScoreTransaction scores one transaction event.
func (s *Service) ScoreTransaction(ctx context.Context, ev *domain.TransactionEvent) (*domain.Decision, domain.FeatureVector, error) {
	ctx, span := tracer.Start(ctx, "score.transaction")
	defer span.End()

	vec, err := s.transactions.Features(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	d, err := s.fuse(ctx, domain.ClassTransaction, vec, s.transactionScorer, s.transactionRules, s.thresholds.Transaction, span)
	if err != nil {
		return nil, nil, err
	}
	return d, vec, nil
}

// fuse runs model scoring and rule evaluation concurrently (neither depends
// on the other) and assembles the final decision.
func (s *Service) fuse(
	ctx context.Context,
	class domain.EntityClass,
	vec domain.FeatureVector,
	scorer model.Scorer,
	ruleSet *rules.Set,
	threshold float64,
	span trace.Span,
) (*domain.Decision, error) {
	var (
		modelScore float64
		outcome    domain.RuleOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		score, err := scorer.Score(gctx, vec)
		if err != nil {
			return err
		}
		modelScore = score
		return nil
	})
	g.Go(func() error {
		outcome = ruleSet.Evaluate(vec)
		if s.custom != nil {
			extra := s.custom.Evaluate(class, vec)
			outcome.Boost += extra.Boost
			outcome.Reasons = append(outcome.Reasons, extra.Reasons...)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d, err := decision.Assemble(modelScore, outcome.Boost, threshold, outcome.Reasons)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("entity.class", string(class)),
		attribute.Float64("score.final", d.ScoreFinal),
		attribute.Bool("decision", d.Decision),
		attribute.Int("reasons.count", len(d.Reasons)),
	)
	return d, nil
}
