// Package events publishes list page configuration changes to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// DefaultStream is the stream configuration events are added to.
const DefaultStream = "list-pages:events"

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// EventType names a configuration change.
type EventType string

const (
	ListPageCreated EventType = "list_page.created"
	ListPageUpdated EventType = "list_page.updated"
	ListPageDeleted EventType = "list_page.deleted"
)

// ListPageEvent is the envelope written to the stream.
type ListPageEvent struct {
	EventID          uuid.UUID `json:"event_id"`
	EventType        EventType `json:"event_type"`
	OwnerID          string    `json:"owner_id"`
	SourceEntityType string    `json:"source_entity_type,omitempty"`
	SourceBundle     string    `json:"source_bundle,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewEvent builds the event for a change of cfg.
func NewEvent(eventType EventType, cfg *domain.ListPageConfiguration) ListPageEvent {
	return ListPageEvent{
		EventType:        eventType,
		OwnerID:          cfg.OwnerID,
		SourceEntityType: cfg.SourceEntityType,
		SourceBundle:     cfg.SourceBundle,
	}
}

// Publisher publishes list page events to Redis Streams.
type Publisher struct {
	client *redis.Client
	stream string
	log    logger.Logger
}

// NewPublisher creates a publisher. Returns nil if client is nil; a nil
// publisher is a no-op.
func NewPublisher(client *redis.Client, stream string, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if stream == "" {
		stream = DefaultStream
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{client: client, stream: stream, log: log}
}

// Publish adds event to the stream.
func (p *Publisher) Publish(ctx context.Context, event ListPageEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": string(payload)},
	})
	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish event",
			logger.String("event_type", string(event.EventType)),
			logger.OwnerID(event.OwnerID),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Published list page event",
		logger.String("event_type", string(event.EventType)),
		logger.OwnerID(event.OwnerID),
		logger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes in the background. Errors are logged.
func (p *Publisher) PublishAsync(event ListPageEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		_ = p.Publish(ctx, event)
	}()
}
