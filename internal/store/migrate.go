// SPDX-License-Identifier: MIT

package store

import "fmt"

// migrate creates the base schema and applies additive column migrations.
// Columns are only ever added, never dropped; defaults keep old rows valid.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS studies (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL UNIQUE,
		created_utc TEXT NOT NULL,
		security_hash TEXT NOT NULL,
		is_locked INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		study_id TEXT NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
		created_utc TEXT NOT NULL,
		video_path TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_study ON recordings(study_id);

	CREATE TABLE IF NOT EXISTS observer_sessions (
		id TEXT PRIMARY KEY,
		recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
		created_utc TEXT NOT NULL,
		label TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_recording ON observer_sessions(recording_id);

	CREATE TABLE IF NOT EXISTS input_streams (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES observer_sessions(id) ON DELETE CASCADE,
		device_name TEXT,
		profile_id TEXT,
		created_utc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_streams_session ON input_streams(session_id);

	CREATE TABLE IF NOT EXISTS input_events (
		id TEXT PRIMARY KEY,
		recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL REFERENCES observer_sessions(id) ON DELETE CASCADE,
		stream_id TEXT NOT NULL REFERENCES input_streams(id) ON DELETE CASCADE,
		t_ms INTEGER NOT NULL,
		kind TEXT NOT NULL,
		code TEXT NOT NULL,
		value INTEGER,
		is_press INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_events_stream ON input_events(stream_id, t_ms, code);
	CREATE INDEX IF NOT EXISTS idx_events_recording ON input_events(recording_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrStore, err)
	}

	// Columns introduced after the first schema version. Opening an old
	// database adds them in place; values default to NULL, except
	// recognition_check_required, which defaults to 0 (non-destructive).
	additive := []struct {
		table  string
		column string
		ddl    string
	}{
		{"studies", "observer_instructions_text", "observer_instructions_text TEXT"},
		{"studies", "observer_instructions_image", "observer_instructions_image TEXT"},
		{"recordings", "notes", "notes TEXT"},
		{"recordings", "video_sha256", "video_sha256 TEXT"},
		{"observer_sessions", "recognition_check_required", "recognition_check_required INTEGER NOT NULL DEFAULT 0"},
		{"observer_sessions", "recognition_check_passed", "recognition_check_passed INTEGER"},
		{"observer_sessions", "recognition_check_timestamp", "recognition_check_timestamp TEXT"},
		{"input_streams", "alias", "alias TEXT"},
		{"input_streams", "construct_mapping", "construct_mapping TEXT"},
		{"input_streams", "calibration_data", "calibration_data TEXT"},
		{"input_streams", "allowed_inputs", "allowed_inputs TEXT"},
	}

	for _, m := range additive {
		ok, err := s.hasColumn(m.table, m.column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.table, m.ddl)); err != nil {
			return fmt.Errorf("%w: add column %s.%s: %v", ErrStore, m.table, m.column, err)
		}
	}
	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("%w: table_info %s: %v", ErrStore, table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("%w: scan table_info: %v", ErrStore, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
