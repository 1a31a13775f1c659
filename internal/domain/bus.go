package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// Messages are scoped by userID; subscribing with UserWildcard receives
// events for every user, which is how the recompute worker listens.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, userID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, userID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, userID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// UserWildcard subscribes across all users.
const UserWildcard = "*"

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names.
const (
	// TopicRecordsUpdated fires after a category record upsert or delete;
	// the worker regenerates the affected user's comparison.
	TopicRecordsUpdated = "myna.records.updated"

	// TopicComparisonGenerated fires after a comparison is persisted.
	TopicComparisonGenerated = "myna.comparison.generated"
)

// RecordsUpdatedEvent is the payload for TopicRecordsUpdated.
type RecordsUpdatedEvent struct {
	UserID   string   `json:"userId"`
	Category Category `json:"category"`
	Deleted  bool     `json:"deleted,omitempty"`
}

// ComparisonGeneratedEvent is the payload for TopicComparisonGenerated.
type ComparisonGeneratedEvent struct {
	UserID            string     `json:"userId"`
	AssessmentYear    string     `json:"assessmentYear"`
	RecommendedRegime RegimeKind `json:"recommendedRegime"`
	TaxSaving         string     `json:"taxSaving"`
}
