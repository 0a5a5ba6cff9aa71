// Package worker provides async scoring of events published on the bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/scoring"
)

// Store persists scored events.
type Store interface {
	SaveReview(ctx context.Context, ev *domain.ReviewEvent, d *domain.Decision) (int64, error)
	SaveTransaction(ctx context.Context, ev *domain.TransactionEvent, d *domain.Decision) (int64, error)
}

// Worker consumes ingested events from the bus, scores them, persists the
// result and publishes the decision on the scored topics.
type Worker struct {
	bus    domain.EventBus
	store  Store
	scorer *scoring.Service

	subscriptions []domain.Subscription
	// wg tracks in-flight handlers so Stop can await them. Unsubscribe only
	// stops new deliveries.
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ScoredEvent is the payload published on the scored topics.
type ScoredEvent struct {
	ID       int64            `json:"id"`
	Class    string           `json:"class"`
	Decision *domain.Decision `json:"result"`
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, store Store, scorer *scoring.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		store:  store,
		scorer: scorer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the ingested topics.
func (w *Worker) Start() error {
	reviewSub, err := w.bus.Subscribe(w.ctx, domain.TopicReviewIngested, w.handleReview)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, reviewSub)

	txSub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionIngested, w.handleTransaction)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, txSub)

	slog.Info("worker started",
		"topics", []string{domain.TopicReviewIngested, domain.TopicTransactionIngested},
	)
	return nil
}

func (w *Worker) handleReview(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()
	start := time.Now()

	var ev domain.ReviewEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		slog.Error("failed to parse review message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	d, _, err := w.scorer.ScoreReview(ctx, &ev)
	if err != nil {
		slog.Error("review scoring failed",
			"message_id", msg.ID,
			"user_id", ev.UserID,
			"error", err,
		)
		return err
	}

	id, err := w.store.SaveReview(ctx, &ev, d)
	if err != nil {
		slog.Error("failed to save review",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	w.publishScored(ctx, domain.TopicReviewScored, id, domain.ClassReview, d)

	slog.Info("review processed",
		"review_id", id,
		"user_id", ev.UserID,
		"decision", d.Decision,
		"score", d.ScoreFinal,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) handleTransaction(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()
	start := time.Now()

	var ev domain.TransactionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		slog.Error("failed to parse transaction message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	d, _, err := w.scorer.ScoreTransaction(ctx, &ev)
	if err != nil {
		slog.Error("transaction scoring failed",
			"message_id", msg.ID,
			"user_id", ev.UserID,
			"error", err,
		)
		return err
	}

	id, err := w.store.SaveTransaction(ctx, &ev, d)
	if err != nil {
		slog.Error("failed to save transaction",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	w.publishScored(ctx, domain.TopicTransactionScored, id, domain.ClassTransaction, d)

	slog.Info("transaction processed",
		"transaction_id", id,
		"user_id", ev.UserID,
		"decision", d.Decision,
		"score", d.ScoreFinal,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) publishScored(ctx context.Context, topic string, id int64, class domain.EntityClass, d *domain.Decision) {
	payload, err := json.Marshal(ScoredEvent{ID: id, Class: string(class), Decision: d})
	if err != nil {
		slog.Error("failed to marshal scored event", "error", err)
		return
	}
	if err := w.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish scored event",
			"topic", topic,
			"error", err,
		)
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
