package pg

import (
	"context"

	"authgrid.org/internal/telemetry"
)

var _ telemetry.Store = (*Store)(nil)

func (s *Store) InsertEvents(ctx context.Context, events []telemetry.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, ev := range events {
		payload := []byte("{}")
		if len(ev.Payload) > 0 {
			payload = ev.Payload
		}
		if _, err := tx.ExecContext(ctx, `
			insert into telemetry_events (id, name, source, payload, occurred_at, received_at)
			values ($1, $2, $3, $4, $5, $6)
		`, ev.ID, ev.Name, nullIfEmpty(ev.Source), payload, ev.OccurredAt, ev.ReceivedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
