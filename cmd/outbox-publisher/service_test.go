package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
)

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		newEvent(t, enums.AggregateOrder, enums.EventOrderCreated, 0),
		newEvent(t, enums.AggregatePayment, enums.EventPaymentSucceeded, 0),
	}}
	pub := &fakePublisher{results: []fakePublishResult{
		{err: errors.New("transient")},
		{},
	}}
	svc := newTestService(t, repo, pub)

	seen, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected 2 rows seen, got %d", seen)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("expected second row published, got %v", repo.published)
	}
}

func TestPublishRoutesByAggregateAndSetsAttributes(t *testing.T) {
	event := newEvent(t, enums.AggregateInventory, enums.EventInventoryAdjusted, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "inventory-topic" {
		t.Fatalf("expected inventory topic, got %v", pub.topics)
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != string(enums.EventInventoryAdjusted) {
		t.Fatalf("unexpected event_type %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id %q", attrs["aggregate_id"])
	}
	if attrs["event_id"] != "evt-"+event.ID.String() {
		t.Fatalf("expected envelope event id, got %q", attrs["event_id"])
	}
}

func TestProcessBatchMarksTerminalOnMaxAttempts(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		newEvent(t, enums.AggregateOrder, enums.EventOrderStatusChanged, 2),
	}}
	pub := &fakePublisher{results: []fakePublishResult{{err: errors.New("still down")}}}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows should not also be marked failed")
	}
}

func TestProcessBatchMarksTerminalOnPermanentStatus(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		newEvent(t, enums.AggregatePayment, enums.EventPaymentFailed, 0),
	}}
	pub := &fakePublisher{results: []fakePublishResult{{err: status.Error(codes.NotFound, "topic gone")}}}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected NotFound to be terminal, got %v", repo.terminal)
	}
}

func TestProcessBatchMarksTerminalOnUndecodablePayload(t *testing.T) {
	event := newEvent(t, enums.AggregateOrder, enums.EventOrderCreated, 0)
	event.Payload = json.RawMessage(`not-json`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark for bad payload")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	got := nextBackoff(base, base, maxBackoff)
	if got != time.Second {
		t.Fatalf("expected doubling, got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap %s, got %s", maxBackoff, got)
	}
	if got := withJitter(time.Second); got < time.Second || got >= time.Second+jitterWindow {
		t.Fatalf("jitter out of window: %s", got)
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3}}
	topics, err := outbox.NewTopicRouter(config.PubSubConfig{
		OrdersTopic:    "orders-topic",
		PaymentsTopic:  "payments-topic",
		InventoryTopic: "inventory-topic",
	})
	if err != nil {
		t.Fatalf("topic router: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:         fakeDB{},
		PubSub:     fakePubSub{},
		Repository: repo,
		Topics:     topics,
		PublisherFactory: func(topic string) publisher {
			pub.current = topic
			return pub
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func newEvent(t *testing.T, agg enums.OutboxAggregateType, kind enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-" + id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     kind,
		AggregateType: agg,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error            { return nil }
func (fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakePublisher struct {
	current  string
	topics   []string
	messages []*gcppubsub.Message
	results  []fakePublishResult
	calls    int
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.topics = append(f.topics, f.current)
	f.messages = append(f.messages, msg)
	var res fakePublishResult
	if f.calls < len(f.results) {
		res = f.results[f.calls]
	}
	f.calls++
	return res
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}
