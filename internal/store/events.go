// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AppendEvent persists one event. Append-only; writes land in FIFO order
// per stream because each reader is the sole writer of its stream and the
// store serializes physical writes.
func (s *Store) AppendEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var value, isPress any
	if e.Value != nil {
		value = *e.Value
	}
	if e.IsPress != nil {
		isPress = boolToInt(*e.IsPress)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO input_events (id, recording_id, session_id, stream_id, t_ms, kind, code, value, is_press)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RecordingID, e.SessionID, e.StreamID, e.TMs, e.Kind, e.Code, value, isPress)
	if err != nil {
		return fmt.Errorf("%w: append event: %v", ErrStore, err)
	}
	return nil
}

// ScanEvents returns events of the given streams and kinds ordered by
// (stream_id, t_ms, code). Global order is enforced here, not by writers.
// Empty kinds means all live kinds (INIT markers excluded).
func (s *Store) ScanEvents(ctx context.Context, streamIDs []string, kinds []string) ([]Event, error) {
	if len(streamIDs) == 0 {
		return nil, nil
	}
	if len(kinds) == 0 {
		kinds = []string{KindAxis, KindButton}
	}

	query := fmt.Sprintf(`
		SELECT id, recording_id, session_id, stream_id, t_ms, kind, code, value, is_press
		FROM input_events
		WHERE stream_id IN (%s) AND kind IN (%s)
		ORDER BY stream_id, t_ms, code`,
		placeholders(len(streamIDs)), placeholders(len(kinds)))

	args := make([]any, 0, len(streamIDs)+len(kinds))
	for _, id := range streamIDs {
		args = append(args, id)
	}
	for _, k := range kinds {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: scan events: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			value   sql.NullInt64
			isPress sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.RecordingID, &e.SessionID, &e.StreamID,
			&e.TMs, &e.Kind, &e.Code, &value, &isPress); err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", ErrStore, err)
		}
		if value.Valid {
			v := value.Int64
			e.Value = &v
		}
		if isPress.Valid {
			p := isPress.Int64 != 0
			e.IsPress = &p
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the number of live events on a stream.
func (s *Store) CountEvents(ctx context.Context, streamID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM input_events WHERE stream_id = ? AND kind != ?`,
		streamID, KindInit).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count events: %v", ErrStore, err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
