// SPDX-License-Identifier: MIT

package store

import (
	"errors"
	"time"

	"github.com/drjhoover/hsparc/internal/calibration"
)

// Typed failure kinds surfaced to callers. The CLI maps these to exit codes.
var (
	ErrDuplicateLabel = errors.New("study label already exists")
	ErrNotFound       = errors.New("not found")
	ErrStore          = errors.New("store failure")
)

// Event kinds.
const (
	KindAxis   = "axis"
	KindButton = "button"
	KindInit   = "init"
)

// InitCode marks the synthetic stream-birth event written at t=0.
const InitCode = "INIT"

// HideLabel is the construct label that excludes a code from plots and
// exports.
const HideLabel = "__HIDE__"

// Study is the root of all persisted data for a research project.
type Study struct {
	ID                    string
	Label                 string
	CreatedUTC            time.Time
	SecurityHash          string
	IsLocked              bool
	InstructionsText      string
	InstructionsImagePath string
}

// Recording is one capture run; it owns exactly one video file.
type Recording struct {
	ID          string
	StudyID     string
	CreatedUTC  time.Time
	VideoPath   string
	VideoSHA256 string
	Notes       string
}

// Session brackets streams and events inside a recording.
type Session struct {
	ID                       string
	RecordingID              string
	CreatedUTC               time.Time
	Label                    string
	RecognitionCheckRequired bool
	RecognitionCheckPassed   *bool
	RecognitionCheckUTC      string
}

// Stream is the event channel of one physical controller in a session.
type Stream struct {
	ID               string
	SessionID        string
	DeviceName       string
	ProfileID        string
	Alias            string
	ConstructMapping map[string]string
	Calibration      *calibration.State
	AllowedInputs    []string
}

// Event is one immutable input sample.
//
// Value is nil only on the synthetic INIT marker. IsPress is non-nil only
// for unambiguous button transitions; hardware repeats leave it nil.
type Event struct {
	ID          string
	RecordingID string
	SessionID   string
	StreamID    string
	TMs         int64
	Kind        string
	Code        string
	Value       *int64
	IsPress     *bool
}

// Participant returns the display identity of a stream: the alias when the
// researcher set one, the device name otherwise.
func (s Stream) Participant() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.DeviceName
}
