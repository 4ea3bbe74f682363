// Package telemetry ingests batched client events. Storage is write-only
// from the service's point of view; analysis happens elsewhere.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"authgrid.org/internal/ids"
	"authgrid.org/internal/rbac"
)

const (
	// MaxBatchSize caps a single ingestion request.
	MaxBatchSize = 100

	maxNameLength    = 128
	maxPayloadLength = 4096
)

// Event is one client-reported occurrence.
type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Source     string          `json:"source,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Store persists accepted events.
type Store interface {
	InsertEvents(ctx context.Context, events []Event) error
}

type Service struct {
	store Store
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewService(store Store, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Ingest validates and persists a batch. The whole batch is rejected on the
// first invalid event so clients get a deterministic retry unit.
func (s *Service) Ingest(ctx context.Context, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: empty batch", rbac.ErrInvalidInput)
	}
	if len(events) > MaxBatchSize {
		return 0, fmt.Errorf("%w: batch exceeds %d events", rbac.ErrInvalidInput, MaxBatchSize)
	}

	now := s.now().UTC()
	accepted := make([]Event, 0, len(events))
	for i, ev := range events {
		ev.Name = strings.TrimSpace(ev.Name)
		if ev.Name == "" {
			return 0, fmt.Errorf("%w: event %d has no name", rbac.ErrInvalidInput, i)
		}
		if len(ev.Name) > maxNameLength {
			return 0, fmt.Errorf("%w: event %d name too long", rbac.ErrInvalidInput, i)
		}
		if len(ev.Payload) > maxPayloadLength {
			return 0, fmt.Errorf("%w: event %d payload too large", rbac.ErrInvalidInput, i)
		}
		if ev.ID == "" {
			ev.ID = ids.New()
		}
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = now
		}
		ev.ReceivedAt = now
		accepted = append(accepted, ev)
	}

	if err := s.store.InsertEvents(ctx, accepted); err != nil {
		return 0, fmt.Errorf("persist telemetry batch: %w", err)
	}
	s.log.Debugw("telemetry batch accepted", "events", len(accepted))
	return len(accepted), nil
}
