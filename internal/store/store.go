// SPDX-License-Identifier: MIT

// Package store provides transactional SQLite persistence for studies,
// recordings, sessions, streams, and events.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store wraps the SQLite backing of one app home.
type Store struct {
	db      *sql.DB
	dataDir string
}

// Open initializes the store at <dataDir>/store.db and runs migrations.
// WAL mode and busy_timeout are applied through the DSN so every pooled
// connection carries them.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", ErrStore, err)
	}

	dbPath := filepath.Join(dataDir, "store.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStore, err)
	}

	// Single logical writer; readers share the WAL snapshot.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrStore, err)
	}

	s := &Store{db: db, dataDir: dataDir}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the app home this store persists under.
func (s *Store) DataDir() string { return s.dataDir }

// StudyDir returns the filesystem root owned by a study.
func (s *Store) StudyDir(studyID string) string {
	return filepath.Join(s.dataDir, "studies", studyID)
}

// MediaDir returns the media directory of a recording.
func (s *Store) MediaDir(studyID, recordingID string) string {
	return filepath.Join(s.StudyDir(studyID), "media", recordingID)
}
