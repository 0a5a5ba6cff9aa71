package domain

import (
	"context"
)

// EventBus carries scored decisions to downstream consumers and raw events
// to the async scoring worker. Go channels serve a single node; NATS serves
// multi-node deployments.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Ping checks bus health.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is an event envelope.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription is an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is "channel" or "nats".
	Type string `env:"TYPE" envDefault:"channel"`

	// Channel settings.
	ChannelBufferSize int `env:"CHANNEL_BUFFER_SIZE" envDefault:"1000"`

	// NATS settings.
	NATSUrl           string `env:"NATS_URL"`
	NATSToken         string `env:"NATS_TOKEN"`
	NATSMaxReconnects int    `env:"NATS_MAX_RECONNECTS" envDefault:"10"`
	NATSReconnectWait int    `env:"NATS_RECONNECT_WAIT" envDefault:"5"` // seconds
}

// Pipeline topic names.
const (
	TopicReviewIngested      = "kestrel.review.ingested"
	TopicTransactionIngested = "kestrel.transaction.ingested"
	TopicReviewScored        = "kestrel.review.scored"
	TopicTransactionScored   = "kestrel.transaction.scored"
)
