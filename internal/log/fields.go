// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldStudyID     = "study_id"
	FieldRecordingID = "recording_id"
	FieldSessionID   = "session_id"
	FieldStreamID    = "stream_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Capture fields
	FieldDevice = "device"
	FieldCode   = "code"
	FieldKind   = "kind"
	FieldTMs    = "t_ms"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath       = "path"
	FieldSealedPath = "sealed_path"
)
