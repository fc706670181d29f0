package clickhouse

import (
	"context"
	"fmt"
	"time"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// PenaltyEventStore implements storage.PenaltyEventStore using ClickHouse.
type PenaltyEventStore struct {
	conn *Conn
}

// NewPenaltyEventStore creates a new PenaltyEventStore.
func NewPenaltyEventStore(conn *Conn) *PenaltyEventStore {
	return &PenaltyEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PenaltyEventStore = (*PenaltyEventStore)(nil)

// Insert appends an event.
func (s *PenaltyEventStore) Insert(ctx context.Context, e *domain.PenaltyEvent) (err error) {
	if e == nil || e.PoolIdentity == "" || e.EventTime < 0 {
		return storage.ErrInvalidInput
	}
	defer observe("insert_penalty_event", time.Now(), &err)

	query := `
		INSERT INTO penalty_events (
			event_time, pool_identity, pool_index, action, amount,
			caller, outcome, error_kind, receipt_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		uint64(e.EventTime),
		e.PoolIdentity,
		e.PoolIndex,
		string(e.Action),
		e.Amount,
		e.Caller,
		string(e.Outcome),
		e.ErrorKind,
		e.ReceiptID,
	)
	if err != nil {
		return fmt.Errorf("insert penalty event: %w", err)
	}
	return nil
}

// GetByPool retrieves all events for a pool, ordered by event_time ASC.
func (s *PenaltyEventStore) GetByPool(ctx context.Context, identity string) (_ []*domain.PenaltyEvent, err error) {
	defer observe("get_penalty_events_by_pool", time.Now(), &err)

	query := `
		SELECT
			event_time, pool_identity, pool_index, action, amount,
			caller, outcome, error_kind, receipt_id
		FROM penalty_events
		WHERE pool_identity = ?
		ORDER BY event_time ASC
	`

	rows, err := s.conn.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("query penalty events: %w", err)
	}
	defer rows.Close()

	var result []*domain.PenaltyEvent
	for rows.Next() {
		var (
			e         domain.PenaltyEvent
			eventTime uint64
			action    string
			outcome   string
		)
		err := rows.Scan(
			&eventTime, &e.PoolIdentity, &e.PoolIndex, &action, &e.Amount,
			&e.Caller, &outcome, &e.ErrorKind, &e.ReceiptID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan penalty event: %w", err)
		}
		e.EventTime = int64(eventTime)
		e.Action = domain.Action(action)
		e.Outcome = domain.Outcome(outcome)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate penalty events: %w", err)
	}
	return result, nil
}
