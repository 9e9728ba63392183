// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/drjhoover/hsparc/internal/security"
)

// CreateStudy persists a new study with a hashed PIN and returns it locked.
func (s *Store) CreateStudy(ctx context.Context, label, pin string) (Study, error) {
	study := Study{
		ID:           uuid.NewString(),
		Label:        label,
		CreatedUTC:   time.Now().UTC(),
		SecurityHash: security.HashPin(pin),
		IsLocked:     true,
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM studies WHERE label = ?`, label).Scan(&exists)
	if err != nil {
		return Study{}, fmt.Errorf("%w: check label: %v", ErrStore, err)
	}
	if exists > 0 {
		return Study{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO studies (id, label, created_utc, security_hash, is_locked)
		VALUES (?, ?, ?, ?, 1)`,
		study.ID, study.Label, study.CreatedUTC.Format(time.RFC3339), study.SecurityHash)
	if err != nil {
		return Study{}, fmt.Errorf("%w: insert study: %v", ErrStore, err)
	}
	return study, nil
}

// VerifyStudyPin checks a PIN against the stored hash.
func (s *Store) VerifyStudyPin(ctx context.Context, studyID, pin string) (bool, error) {
	study, err := s.GetStudy(ctx, studyID)
	if err != nil {
		return false, err
	}
	return security.VerifyPin(study.SecurityHash, pin), nil
}

// GetStudy loads a study by id.
func (s *Store) GetStudy(ctx context.Context, studyID string) (Study, error) {
	return s.scanStudy(s.db.QueryRowContext(ctx, studySelect+` WHERE id = ?`, studyID))
}

// GetStudyByLabel loads a study by its unique label.
func (s *Store) GetStudyByLabel(ctx context.Context, label string) (Study, error) {
	return s.scanStudy(s.db.QueryRowContext(ctx, studySelect+` WHERE label = ?`, label))
}

const studySelect = `
	SELECT id, label, created_utc, security_hash, is_locked,
	       observer_instructions_text, observer_instructions_image
	FROM studies`

func (s *Store) scanStudy(row *sql.Row) (Study, error) {
	var (
		st         Study
		created    string
		locked     int
		instrText  sql.NullString
		instrImage sql.NullString
	)
	err := row.Scan(&st.ID, &st.Label, &created, &st.SecurityHash, &locked, &instrText, &instrImage)
	if errors.Is(err, sql.ErrNoRows) {
		return Study{}, fmt.Errorf("%w: study", ErrNotFound)
	}
	if err != nil {
		return Study{}, fmt.Errorf("%w: scan study: %v", ErrStore, err)
	}
	st.CreatedUTC, _ = time.Parse(time.RFC3339, created)
	st.IsLocked = locked != 0
	st.InstructionsText = instrText.String
	st.InstructionsImagePath = instrImage.String
	return st, nil
}

// ListStudies returns all studies ordered by label.
func (s *Store) ListStudies(ctx context.Context) ([]Study, error) {
	rows, err := s.db.QueryContext(ctx, studySelect+` ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("%w: list studies: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Study
	for rows.Next() {
		var (
			st         Study
			created    string
			locked     int
			instrText  sql.NullString
			instrImage sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.Label, &created, &st.SecurityHash, &locked, &instrText, &instrImage); err != nil {
			return nil, fmt.Errorf("%w: scan study: %v", ErrStore, err)
		}
		st.CreatedUTC, _ = time.Parse(time.RFC3339, created)
		st.IsLocked = locked != 0
		st.InstructionsText = instrText.String
		st.InstructionsImagePath = instrImage.String
		out = append(out, st)
	}
	return out, rows.Err()
}

// SetStudyInstructions stores the observer instructions for a study.
func (s *Store) SetStudyInstructions(ctx context.Context, studyID, text, imagePath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE studies
		SET observer_instructions_text = ?, observer_instructions_image = ?
		WHERE id = ?`,
		nullable(text), nullable(imagePath), studyID)
	if err != nil {
		return fmt.Errorf("%w: set instructions: %v", ErrStore, err)
	}
	return requireRow(res)
}

// DeleteStudy removes a study, its recordings, sessions, streams, events,
// and its media directory. Irreversible; the caller gates it behind PIN
// entry.
func (s *Store) DeleteStudy(ctx context.Context, studyID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM studies WHERE id = ?`, studyID)
	if err != nil {
		return fmt.Errorf("%w: delete study: %v", ErrStore, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := os.RemoveAll(s.StudyDir(studyID)); err != nil {
		return fmt.Errorf("%w: remove study dir: %v", ErrStore, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrStore, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
