// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drjhoover/hsparc/internal/calibration"
)

// CreateRecording opens a new recording under a study.
func (s *Store) CreateRecording(ctx context.Context, studyID, videoPath string) (Recording, error) {
	rec := Recording{
		ID:         uuid.NewString(),
		StudyID:    studyID,
		CreatedUTC: time.Now().UTC(),
		VideoPath:  videoPath,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (id, study_id, created_utc, video_path)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.StudyID, rec.CreatedUTC.Format(time.RFC3339), nullable(rec.VideoPath))
	if err != nil {
		return Recording{}, fmt.Errorf("%w: insert recording: %v", ErrStore, err)
	}
	return rec, nil
}

const recordingSelect = `
	SELECT id, study_id, created_utc, video_path, video_sha256, notes
	FROM recordings`

// GetRecording loads a recording by id.
func (s *Store) GetRecording(ctx context.Context, recordingID string) (Recording, error) {
	row := s.db.QueryRowContext(ctx, recordingSelect+` WHERE id = ?`, recordingID)
	return scanRecording(row.Scan)
}

// ListRecordings returns a study's recordings, newest first.
func (s *Store) ListRecordings(ctx context.Context, studyID string) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, recordingSelect+` WHERE study_id = ? ORDER BY created_utc DESC`, studyID)
	if err != nil {
		return nil, fmt.Errorf("%w: list recordings: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecording(scan func(...any) error) (Recording, error) {
	var (
		rec     Recording
		created string
		video   sql.NullString
		sha     sql.NullString
		notes   sql.NullString
	)
	err := scan(&rec.ID, &rec.StudyID, &created, &video, &sha, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, fmt.Errorf("%w: recording", ErrNotFound)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("%w: scan recording: %v", ErrStore, err)
	}
	rec.CreatedUTC, _ = time.Parse(time.RFC3339, created)
	rec.VideoPath = video.String
	rec.VideoSHA256 = sha.String
	rec.Notes = notes.String
	return rec, nil
}

// UpdateRecordingVideoPath points a recording at its sealed video file.
func (s *Store) UpdateRecordingVideoPath(ctx context.Context, recordingID, newPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET video_path = ? WHERE id = ?`, newPath, recordingID)
	if err != nil {
		return fmt.Errorf("%w: update video path: %v", ErrStore, err)
	}
	return requireRow(res)
}

// UpdateRecordingVideoSHA256 records the content address of the sealed blob.
func (s *Store) UpdateRecordingVideoSHA256(ctx context.Context, recordingID, digest string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET video_sha256 = ? WHERE id = ?`, digest, recordingID)
	if err != nil {
		return fmt.Errorf("%w: update video sha256: %v", ErrStore, err)
	}
	return requireRow(res)
}

// UpdateRecordingNotes replaces the researcher notes on a recording.
func (s *Store) UpdateRecordingNotes(ctx context.Context, recordingID, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET notes = ? WHERE id = ?`, nullable(notes), recordingID)
	if err != nil {
		return fmt.Errorf("%w: update notes: %v", ErrStore, err)
	}
	return requireRow(res)
}

// CreateSession opens a session under a recording.
func (s *Store) CreateSession(ctx context.Context, recordingID, label string, recognitionRequired bool) (Session, error) {
	sess := Session{
		ID:                       uuid.NewString(),
		RecordingID:              recordingID,
		CreatedUTC:               time.Now().UTC(),
		Label:                    label,
		RecognitionCheckRequired: recognitionRequired,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observer_sessions (id, recording_id, created_utc, label, recognition_check_required)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.RecordingID, sess.CreatedUTC.Format(time.RFC3339),
		nullable(sess.Label), boolToInt(recognitionRequired))
	if err != nil {
		return Session{}, fmt.Errorf("%w: insert session: %v", ErrStore, err)
	}
	return sess, nil
}

// ListSessions returns a recording's sessions in creation order.
func (s *Store) ListSessions(ctx context.Context, recordingID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recording_id, created_utc, label,
		       recognition_check_required, recognition_check_passed, recognition_check_timestamp
		FROM observer_sessions WHERE recording_id = ? ORDER BY created_utc, id`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			created string
			label   sql.NullString
			reqd    int
			passed  sql.NullInt64
			ts      sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.RecordingID, &created, &label, &reqd, &passed, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", ErrStore, err)
		}
		sess.CreatedUTC, _ = time.Parse(time.RFC3339, created)
		sess.Label = label.String
		sess.RecognitionCheckRequired = reqd != 0
		if passed.Valid {
			v := passed.Int64 != 0
			sess.RecognitionCheckPassed = &v
		}
		sess.RecognitionCheckUTC = ts.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

// UpdateSessionRecognition records a recognition-check outcome.
func (s *Store) UpdateSessionRecognition(ctx context.Context, sessionID string, passed bool, timestamp string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE observer_sessions
		SET recognition_check_passed = ?, recognition_check_timestamp = ?
		WHERE id = ?`,
		boolToInt(passed), timestamp, sessionID)
	if err != nil {
		return fmt.Errorf("%w: update recognition: %v", ErrStore, err)
	}
	return requireRow(res)
}

// CreateStream opens a stream under a session and writes its synthetic INIT
// event at t=0 in the same transaction, so stream birth is detectable from
// the event log alone.
func (s *Store) CreateStream(ctx context.Context, st Stream) (Stream, error) {
	sess, err := s.getSession(ctx, st.SessionID)
	if err != nil {
		return Stream{}, err
	}

	st.ID = uuid.NewString()

	mapping, err := marshalJSON(st.ConstructMapping)
	if err != nil {
		return Stream{}, err
	}
	calData, err := marshalJSON(st.Calibration)
	if err != nil {
		return Stream{}, err
	}
	allowed, err := marshalJSON(st.AllowedInputs)
	if err != nil {
		return Stream{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: begin: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO input_streams (id, session_id, device_name, profile_id, created_utc,
		                           alias, construct_mapping, calibration_data, allowed_inputs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.SessionID, nullable(st.DeviceName), nullable(st.ProfileID),
		time.Now().UTC().Format(time.RFC3339),
		nullable(st.Alias), mapping, calData, allowed)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: insert stream: %v", ErrStore, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO input_events (id, recording_id, session_id, stream_id, t_ms, kind, code, value, is_press)
		VALUES (?, ?, ?, ?, 0, ?, ?, NULL, NULL)`,
		uuid.NewString(), sess.RecordingID, st.SessionID, st.ID, KindInit, InitCode)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: insert init event: %v", ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return Stream{}, fmt.Errorf("%w: commit stream: %v", ErrStore, err)
	}
	return st, nil
}

func (s *Store) getSession(ctx context.Context, sessionID string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, recording_id FROM observer_sessions WHERE id = ?`, sessionID).
		Scan(&sess.ID, &sess.RecordingID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: session", ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: get session: %v", ErrStore, err)
	}
	return sess, nil
}

const streamSelect = `
	SELECT id, session_id, device_name, profile_id, alias,
	       construct_mapping, calibration_data, allowed_inputs
	FROM input_streams`

// GetStream loads a stream by id.
func (s *Store) GetStream(ctx context.Context, streamID string) (Stream, error) {
	row := s.db.QueryRowContext(ctx, streamSelect+` WHERE id = ?`, streamID)
	return scanStream(row.Scan)
}

// ListStreams returns a session's streams in creation order.
func (s *Store) ListStreams(ctx context.Context, sessionID string) ([]Stream, error) {
	rows, err := s.db.QueryContext(ctx, streamSelect+` WHERE session_id = ? ORDER BY created_utc, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list streams: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Stream
	for rows.Next() {
		st, err := scanStream(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStream(scan func(...any) error) (Stream, error) {
	var (
		st      Stream
		device  sql.NullString
		profile sql.NullString
		alias   sql.NullString
		mapping sql.NullString
		calData sql.NullString
		allowed sql.NullString
	)
	err := scan(&st.ID, &st.SessionID, &device, &profile, &alias, &mapping, &calData, &allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return Stream{}, fmt.Errorf("%w: stream", ErrNotFound)
	}
	if err != nil {
		return Stream{}, fmt.Errorf("%w: scan stream: %v", ErrStore, err)
	}
	st.DeviceName = device.String
	st.ProfileID = profile.String
	st.Alias = alias.String

	if mapping.Valid && mapping.String != "" {
		if err := json.Unmarshal([]byte(mapping.String), &st.ConstructMapping); err != nil {
			return Stream{}, fmt.Errorf("%w: construct mapping: %v", ErrStore, err)
		}
	}
	if calData.Valid && calData.String != "" {
		var cal calibration.State
		if err := json.Unmarshal([]byte(calData.String), &cal); err != nil {
			return Stream{}, fmt.Errorf("%w: calibration data: %v", ErrStore, err)
		}
		st.Calibration = &cal
	}
	if allowed.Valid && allowed.String != "" {
		if err := json.Unmarshal([]byte(allowed.String), &st.AllowedInputs); err != nil {
			return Stream{}, fmt.Errorf("%w: allowed inputs: %v", ErrStore, err)
		}
	}
	return st, nil
}

func marshalJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case *calibration.State:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrStore, err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
