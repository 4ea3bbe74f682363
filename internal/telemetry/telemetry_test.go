package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"authgrid.org/internal/rbac"
)

type captureStore struct {
	batches [][]Event
	err     error
}

func (c *captureStore) InsertEvents(_ context.Context, events []Event) error {
	if c.err != nil {
		return c.err
	}
	c.batches = append(c.batches, events)
	return nil
}

func newTestService(store *captureStore, at time.Time) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestIngestFillsServerFields(t *testing.T) {
	store := &captureStore{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, at)

	occurred := at.Add(-time.Minute)
	n, err := svc.Ingest(context.Background(), []Event{
		{Name: "app.opened"},
		{Name: "page.viewed", OccurredAt: occurred, Payload: json.RawMessage(`{"page":"settings"}`)},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 2 || len(store.batches) != 1 {
		t.Fatalf("expected one stored batch of 2, got n=%d batches=%d", n, len(store.batches))
	}

	first, second := store.batches[0][0], store.batches[0][1]
	if first.ID == "" || second.ID == "" {
		t.Fatal("ids must be generated")
	}
	if !first.OccurredAt.Equal(at) {
		t.Fatalf("missing occurred_at must default to receipt time, got %v", first.OccurredAt)
	}
	if !second.OccurredAt.Equal(occurred) {
		t.Fatalf("client occurred_at must be kept, got %v", second.OccurredAt)
	}
	if !first.ReceivedAt.Equal(at) || !second.ReceivedAt.Equal(at) {
		t.Fatal("received_at must be server time")
	}
}

func TestIngestRejectsInvalidBatches(t *testing.T) {
	store := &captureStore{}
	svc := newTestService(store, time.Now())
	ctx := context.Background()

	oversized := make([]Event, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = Event{Name: "e"}
	}

	cases := map[string][]Event{
		"empty":             {},
		"over batch cap":    oversized,
		"unnamed event":     {{Name: "ok"}, {Name: "  "}},
		"name too long":     {{Name: strings.Repeat("n", 129)}},
		"payload too large": {{Name: "big", Payload: json.RawMessage(`"` + strings.Repeat("p", 5000) + `"`)}},
	}
	for label, events := range cases {
		if _, err := svc.Ingest(ctx, events); !errors.Is(err, rbac.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", label, err)
		}
	}
	if len(store.batches) != 0 {
		t.Fatalf("no batch may be stored on rejection, got %d", len(store.batches))
	}
}

func TestIngestStoreFailure(t *testing.T) {
	store := &captureStore{err: errors.New("connection reset")}
	svc := newTestService(store, time.Now())

	_, err := svc.Ingest(context.Background(), []Event{{Name: "app.opened"}})
	if err == nil || !strings.Contains(err.Error(), "persist telemetry batch") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
