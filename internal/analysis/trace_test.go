// SPDX-License-Identifier: MIT

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drjhoover/hsparc/internal/calibration"
	"github.com/drjhoover/hsparc/internal/store"
)

func i64(v int64) *int64 { return &v }

func TestTracesFromEvents_ScalesCalibratedStreams(t *testing.T) {
	streams := []store.Stream{
		{
			ID:         "s1",
			Alias:      "Participant A",
			DeviceName: "pad-0",
			Calibration: &calibration.State{Axes: map[string]calibration.Axis{
				"ABS_X": {Min: 0, Max: 255},
			}},
			ConstructMapping: map[string]string{"ABS_X": "Arousal"},
		},
		{ID: "s2", DeviceName: "pad-1"},
	}
	events := []store.Event{
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 0, Value: i64(-1000)},
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 10, Value: i64(1000)},
		{StreamID: "s1", Kind: store.KindButton, Code: "BTN_SOUTH", TMs: 5, Value: i64(1)},
		{StreamID: "s2", Kind: store.KindAxis, Code: "ABS_Y", TMs: 3, Value: i64(42)},
	}

	traces := TracesFromEvents(streams, events)
	require.Len(t, traces, 2)

	require.Equal(t, "Participant A: Arousal", traces[0].Name)
	assert.Equal(t, []float64{-1.0, 1.0}, traces[0].Values)
	assert.Equal(t, []int64{0, 10}, traces[0].TimesMS)

	// Uncalibrated stream keeps raw values and names by code.
	require.Equal(t, "pad-1: ABS_Y", traces[1].Name)
	assert.Equal(t, []float64{42}, traces[1].Values)
}

func TestTracesFromEvents_HidesHiddenConstructs(t *testing.T) {
	streams := []store.Stream{{
		ID:               "s1",
		DeviceName:       "pad-0",
		ConstructMapping: map[string]string{"ABS_X": store.HideLabel},
	}}
	events := []store.Event{
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 0, Value: i64(1)},
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_Y", TMs: 0, Value: i64(2)},
	}

	traces := TracesFromEvents(streams, events)
	require.Len(t, traces, 1)
	assert.Equal(t, "pad-0: ABS_Y", traces[0].Name)
}

func TestTracesFromEvents_SameMillisecondKeepsLast(t *testing.T) {
	streams := []store.Stream{{ID: "s1", DeviceName: "pad-0"}}
	events := []store.Event{
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 7, Value: i64(1)},
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 7, Value: i64(2)},
		{StreamID: "s1", Kind: store.KindAxis, Code: "ABS_X", TMs: 9, Value: i64(3)},
	}

	traces := TracesFromEvents(streams, events)
	require.Len(t, traces, 1)
	assert.Equal(t, []int64{7, 9}, traces[0].TimesMS)
	assert.Equal(t, []float64{2, 3}, traces[0].Values)
}
