// SPDX-License-Identifier: MIT

// Package security implements PIN hashing, the per-process attempt guard,
// and the access log for guarded actions.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/drjhoover/hsparc/internal/log"
)

// MaxAttempts caps PIN entries per guarded action for the process lifetime.
const MaxAttempts = 3

// ErrTooManyAttempts is returned once an action's attempt budget is spent.
var ErrTooManyAttempts = errors.New("too many PIN attempts")

// HashPin returns the hex SHA-256 digest of a PIN.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// VerifyPin compares an entered PIN against a stored hash in constant time.
func VerifyPin(storedHash, pin string) bool {
	entered := HashPin(pin)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(entered)) == 1
}

// Action names a PIN-guarded operation for attempt accounting and logging.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionDecrypt Action = "decrypt"
	ActionUnlock  Action = "unlock"
)

// AttemptGuard tracks failed PIN entries per (study, action) pair. Exceeding
// MaxAttempts denies the action until the process exits.
type AttemptGuard struct {
	mu       sync.Mutex
	attempts map[string]int
}

// NewAttemptGuard returns an empty guard.
func NewAttemptGuard() *AttemptGuard {
	return &AttemptGuard{attempts: make(map[string]int)}
}

// Check reports whether another attempt is allowed for the pair.
func (g *AttemptGuard) Check(studyID string, action Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.attempts[studyID+"/"+string(action)] >= MaxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

// Record logs one attempt and its outcome. Successful attempts reset the
// counter for the pair.
func (g *AttemptGuard) Record(studyID string, action Action, success bool) {
	g.mu.Lock()
	key := studyID + "/" + string(action)
	if success {
		delete(g.attempts, key)
	} else {
		g.attempts[key]++
	}
	g.mu.Unlock()

	logAccess(studyID, action, success)
}

// logAccess writes one access-log line per PIN attempt.
func logAccess(studyID string, action Action, success bool) {
	prefix := studyID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	logger := log.WithComponent("access")
	logger.Info().
		Str("log_type", "access").
		Str("study_prefix", prefix).
		Str("action", string(action)).
		Bool("success", success).
		Str("utc", time.Now().UTC().Format(time.RFC3339)).
		Msg("pin attempt")
}
