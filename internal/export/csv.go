// SPDX-License-Identifier: MIT

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"
)

var axisHeader = []string{
	"recording_id", "study_id", "session_id", "session_label", "stream_id",
	"participant", "device_name", "profile_id", "code", "construct", "t_ms", "value",
}

var buttonHeaderChange = []string{
	"recording_id", "study_id", "session_id", "session_label", "stream_id",
	"participant", "device_name", "profile_id", "code", "construct", "t_ms", "event",
}

var buttonHeaderSeries = []string{
	"recording_id", "study_id", "session_id", "session_label", "stream_id",
	"participant", "device_name", "profile_id", "code", "construct", "t_ms", "state",
}

// WriteCSV renders both tables as CSV files, atomically.
func WriteCSV(tables Tables, axesPath, buttonsPath string) error {
	axes, err := renderAxes(tables.Axes)
	if err != nil {
		return err
	}
	buttons, err := renderButtons(tables)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(axesPath, axes, 0o600); err != nil {
		return fmt.Errorf("write axes csv: %w", err)
	}
	if err := renameio.WriteFile(buttonsPath, buttons, 0o600); err != nil {
		return fmt.Errorf("write buttons csv: %w", err)
	}
	return nil
}

func renderAxes(rows []AxisRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(axisHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.RecordingID, r.StudyID, r.SessionID, r.SessionLabel, r.StreamID,
			r.Participant, r.DeviceName, r.ProfileID, r.Code, r.Construct,
			strconv.FormatInt(r.TMs, 10), strconv.FormatInt(r.Value, 10),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderButtons(tables Tables) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := buttonHeaderSeries
	if tables.Mode == ModeChange {
		header = buttonHeaderChange
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range tables.Buttons {
		tail := strconv.FormatInt(r.State, 10)
		if tables.Mode == ModeChange {
			tail = r.Event
		}
		record := []string{
			r.RecordingID, r.StudyID, r.SessionID, r.SessionLabel, r.StreamID,
			r.Participant, r.DeviceName, r.ProfileID, r.Code, r.Construct,
			strconv.FormatInt(r.TMs, 10), tail,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
