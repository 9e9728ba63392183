// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drjhoover/hsparc/internal/calibration"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func i64(v int64) *int64 { return &v }
func b(v bool) *bool     { return &v }

func TestCreateStudy_DuplicateLabel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, err := s.CreateStudy(ctx, "pilot", "1234")
	require.NoError(t, err)
	assert.True(t, study.IsLocked)
	assert.NotEmpty(t, study.SecurityHash)

	_, err = s.CreateStudy(ctx, "pilot", "9999")
	assert.ErrorIs(t, err, ErrDuplicateLabel)
}

func TestVerifyStudyPin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, err := s.CreateStudy(ctx, "pilot", "1234")
	require.NoError(t, err)

	ok, err := s.VerifyStudyPin(ctx, study.ID, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyStudyPin(ctx, study.ID, "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.VerifyStudyPin(ctx, "missing", "1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteStudy_CascadesAndRemovesMedia(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, err := s.CreateStudy(ctx, "pilot", "1234")
	require.NoError(t, err)

	rec, err := s.CreateRecording(ctx, study.ID, "")
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, rec.ID, "observer-1", false)
	require.NoError(t, err)
	stream, err := s.CreateStream(ctx, Stream{SessionID: sess.ID, DeviceName: "pad-0"})
	require.NoError(t, err)
	require.NoError(t, s.AppendEvent(ctx, Event{
		RecordingID: rec.ID, SessionID: sess.ID, StreamID: stream.ID,
		TMs: 10, Kind: KindAxis, Code: "ABS_X", Value: i64(42),
	}))

	mediaDir := s.MediaDir(study.ID, rec.ID)
	require.NoError(t, os.MkdirAll(mediaDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "video.mp4.enc"), []byte("sealed"), 0o600))

	require.NoError(t, s.DeleteStudy(ctx, study.ID))

	_, err = s.GetRecording(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	events, err := s.ScanEvents(ctx, []string{stream.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	_, statErr := os.Stat(s.StudyDir(study.ID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateStream_WritesInitEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, _ := s.CreateStudy(ctx, "pilot", "1234")
	rec, _ := s.CreateRecording(ctx, study.ID, "")
	sess, _ := s.CreateSession(ctx, rec.ID, "", false)

	cal := &calibration.State{
		Axes: map[string]calibration.Axis{
			"ABS_X": {Min: 0, Max: 255, Center: 127.5, Label: "Arousal"},
		},
	}
	stream, err := s.CreateStream(ctx, Stream{
		SessionID:        sess.ID,
		DeviceName:       "pad-0",
		Alias:            "Participant A",
		Calibration:      cal,
		AllowedInputs:    []string{"ABS_X"},
		ConstructMapping: map[string]string{"ABS_X": "Arousal"},
	})
	require.NoError(t, err)

	events, err := s.ScanEvents(ctx, []string{stream.ID}, []string{KindInit, KindAxis, KindButton})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindInit, events[0].Kind)
	assert.Equal(t, InitCode, events[0].Code)
	assert.Equal(t, int64(0), events[0].TMs)
	assert.Nil(t, events[0].Value)

	loaded, err := s.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, "Participant A", loaded.Alias)
	assert.Equal(t, []string{"ABS_X"}, loaded.AllowedInputs)
	require.NotNil(t, loaded.Calibration)
	if diff := cmp.Diff(cal.Axes, loaded.Calibration.Axes); diff != "" {
		t.Errorf("calibration mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateStream_MissingSession(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateStream(context.Background(), Stream{SessionID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanEvents_OrderAndKindFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, _ := s.CreateStudy(ctx, "pilot", "1234")
	rec, _ := s.CreateRecording(ctx, study.ID, "")
	sess, _ := s.CreateSession(ctx, rec.ID, "", false)
	s1, _ := s.CreateStream(ctx, Stream{SessionID: sess.ID, DeviceName: "pad-0"})
	s2, _ := s.CreateStream(ctx, Stream{SessionID: sess.ID, DeviceName: "pad-1"})

	// Insert out of time order on purpose; the scan orders, not the writer.
	for _, e := range []Event{
		{StreamID: s1.ID, TMs: 30, Kind: KindAxis, Code: "ABS_X", Value: i64(3)},
		{StreamID: s1.ID, TMs: 10, Kind: KindAxis, Code: "ABS_X", Value: i64(1)},
		{StreamID: s1.ID, TMs: 10, Kind: KindAxis, Code: "ABS_A", Value: i64(9)},
		{StreamID: s2.ID, TMs: 20, Kind: KindButton, Code: "BTN_SOUTH", Value: i64(1), IsPress: b(true)},
	} {
		e.RecordingID, e.SessionID = rec.ID, sess.ID
		require.NoError(t, s.AppendEvent(ctx, e))
	}

	events, err := s.ScanEvents(ctx, []string{s1.ID, s2.ID}, nil)
	require.NoError(t, err)
	require.Len(t, events, 4)

	type key struct {
		stream string
		t      int64
		code   string
	}
	var got []key
	for _, e := range events {
		got = append(got, key{e.StreamID, e.TMs, e.Code})
	}
	want := []key{
		{s1.ID, 10, "ABS_A"},
		{s1.ID, 10, "ABS_X"},
		{s1.ID, 30, "ABS_X"},
		{s2.ID, 20, "BTN_SOUTH"},
	}
	if s2.ID < s1.ID {
		want = append(want[3:4], want[0:3]...)
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(key{})); diff != "" {
		t.Errorf("scan order mismatch (-want +got):\n%s", diff)
	}

	buttons, err := s.ScanEvents(ctx, []string{s1.ID, s2.ID}, []string{KindButton})
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	require.NotNil(t, buttons[0].IsPress)
	assert.True(t, *buttons[0].IsPress)
}

func TestUpdateRecording_SealTransition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, _ := s.CreateStudy(ctx, "pilot", "1234")
	rec, err := s.CreateRecording(ctx, study.ID, "/media/video.mp4")
	require.NoError(t, err)

	require.NoError(t, s.UpdateRecordingVideoPath(ctx, rec.ID, "/media/video.mp4.enc"))
	require.NoError(t, s.UpdateRecordingVideoSHA256(ctx, rec.ID, "abc123"))
	require.NoError(t, s.UpdateRecordingNotes(ctx, rec.ID, "baseline run"))

	loaded, err := s.GetRecording(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "/media/video.mp4.enc", loaded.VideoPath)
	assert.Equal(t, "abc123", loaded.VideoSHA256)
	assert.Equal(t, "baseline run", loaded.Notes)

	assert.ErrorIs(t, s.UpdateRecordingVideoPath(ctx, "missing", "x"), ErrNotFound)
}

func TestUpdateSessionRecognition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, _ := s.CreateStudy(ctx, "pilot", "1234")
	rec, _ := s.CreateRecording(ctx, study.ID, "")
	sess, err := s.CreateSession(ctx, rec.ID, "obs", true)
	require.NoError(t, err)

	require.NoError(t, s.UpdateSessionRecognition(ctx, sess.ID, true, "2026-08-01T10:00:00Z"))

	sessions, err := s.ListSessions(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].RecognitionCheckRequired)
	require.NotNil(t, sessions[0].RecognitionCheckPassed)
	assert.True(t, *sessions[0].RecognitionCheckPassed)
	assert.Equal(t, "2026-08-01T10:00:00Z", sessions[0].RecognitionCheckUTC)
}

func TestSetStudyInstructions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	study, _ := s.CreateStudy(ctx, "pilot", "1234")
	require.NoError(t, s.SetStudyInstructions(ctx, study.ID, "Watch the screen.", "/img/instr.png"))

	loaded, err := s.GetStudy(ctx, study.ID)
	require.NoError(t, err)
	assert.Equal(t, "Watch the screen.", loaded.InstructionsText)
	assert.Equal(t, "/img/instr.png", loaded.InstructionsImagePath)
}
