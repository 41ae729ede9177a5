package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/events"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPublisher_NewPublisher_RequiresClient(t *testing.T) {
	if pub := events.NewPublisher(nil, "", nil); pub != nil {
		t.Error("expected nil publisher when client is nil")
	}
}

func TestPublisher_NilReceiverIsNoOp(t *testing.T) {
	var pub *events.Publisher

	if err := pub.Publish(context.Background(), events.ListPageEvent{EventType: events.ListPageDeleted}); err != nil {
		t.Errorf("expected nil error for nil receiver, got: %v", err)
	}
	pub.PublishAsync(events.ListPageEvent{EventType: events.ListPageDeleted})
}

func TestPublisher_Publish(t *testing.T) {
	_, client := newRedis(t)
	pub := events.NewPublisher(client, "", nil)

	cfg := &domain.ListPageConfiguration{OwnerID: "page-1", SourceEntityType: "node", SourceBundle: "article"}
	if err := pub.Publish(context.Background(), events.NewEvent(events.ListPageCreated, cfg)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	entries, err := client.XRange(context.Background(), events.DefaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stream has %d entries, want 1", len(entries))
	}

	raw, ok := entries[0].Values["event"].(string)
	if !ok {
		t.Fatalf("event value has type %T", entries[0].Values["event"])
	}
	var got events.ListPageEvent
	if unmarshalErr := json.Unmarshal([]byte(raw), &got); unmarshalErr != nil {
		t.Fatalf("unmarshal event: %v", unmarshalErr)
	}

	if got.EventType != events.ListPageCreated || got.OwnerID != "page-1" || got.SourceBundle != "article" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.EventID == uuid.Nil {
		t.Error("expected an event id to be generated")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected a timestamp to be set")
	}
}

func TestPublisher_PublishAsync(t *testing.T) {
	_, client := newRedis(t)
	pub := events.NewPublisher(client, "custom", nil)

	pub.PublishAsync(events.ListPageEvent{EventType: events.ListPageDeleted, OwnerID: "page-2"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := client.XLen(context.Background(), "custom").Result(); n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("async event was not published")
}

func TestPublisher_PublishFailure(t *testing.T) {
	mr, client := newRedis(t)
	pub := events.NewPublisher(client, "", nil)
	mr.Close()

	if err := pub.Publish(context.Background(), events.ListPageEvent{EventType: events.ListPageUpdated}); err == nil {
		t.Error("expected an error when redis is unavailable")
	}
}
