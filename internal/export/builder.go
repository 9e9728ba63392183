// SPDX-License-Identifier: MIT

package export

import (
	"fmt"
	"sort"

	"github.com/drjhoover/hsparc/internal/store"
	"github.com/drjhoover/hsparc/internal/timeseries"
)

// Mode selects between raw change rows and resampled series rows.
type Mode string

const (
	ModeChange     Mode = "change_based"
	ModeTimeSeries Mode = "time_series"
)

// AxisRow is one row of the axes table.
type AxisRow struct {
	RecordingID  string
	StudyID      string
	SessionID    string
	SessionLabel string
	StreamID     string
	Participant  string
	DeviceName   string
	ProfileID    string
	Code         string
	Construct    string
	TMs          int64
	Value        int64
}

// ButtonRow is one row of the buttons table. Event carries press/release in
// change mode; State carries {0,1} in time-series mode.
type ButtonRow struct {
	RecordingID  string
	StudyID      string
	SessionID    string
	SessionLabel string
	StreamID     string
	Participant  string
	DeviceName   string
	ProfileID    string
	Code         string
	Construct    string
	TMs          int64
	Event        string
	State        int64
}

// Tables is the pair of flat data sets handed to a writer.
type Tables struct {
	Mode    Mode
	Axes    []AxisRow
	Buttons []ButtonRow
}

// Selection names what to export.
type Selection struct {
	Study     store.Study
	Recording store.Recording
	Sessions  []store.Session
	Streams   []store.Stream
	Events    []store.Event
}

// Builder produces export tables from a selection.
type Builder struct {
	mode   Mode
	conv   *timeseries.Converter
	interp timeseries.Interpolation
}

// NewChangeBuilder exports raw change rows.
func NewChangeBuilder() *Builder {
	return &Builder{mode: ModeChange}
}

// NewTimeSeriesBuilder exports regular samples at the given rate.
func NewTimeSeriesBuilder(rateHz int, interp timeseries.Interpolation) (*Builder, error) {
	conv, err := timeseries.New(rateHz)
	if err != nil {
		return nil, err
	}
	if interp == "" {
		interp = timeseries.ForwardFill
	}
	return &Builder{mode: ModeTimeSeries, conv: conv, interp: interp}, nil
}

// Build materializes the tables. An empty selection yields the empty pair
// deterministically.
func (b *Builder) Build(sel Selection) (Tables, error) {
	tables := Tables{Mode: b.mode, Axes: []AxisRow{}, Buttons: []ButtonRow{}}

	sessionByID := make(map[string]store.Session, len(sel.Sessions))
	for _, s := range sel.Sessions {
		sessionByID[s.ID] = s
	}
	streamByID := make(map[string]store.Stream, len(sel.Streams))
	for _, s := range sel.Streams {
		streamByID[s.ID] = s
	}

	var err error
	switch b.mode {
	case ModeChange:
		b.buildChange(&tables, sel, sessionByID, streamByID)
	case ModeTimeSeries:
		err = b.buildTimeSeries(&tables, sel, sessionByID, streamByID)
	default:
		return Tables{}, fmt.Errorf("unknown export mode %q", b.mode)
	}
	if err != nil {
		return Tables{}, err
	}

	b.sortTables(&tables)
	return tables, nil
}

func (b *Builder) buildChange(tables *Tables, sel Selection,
	sessions map[string]store.Session, streams map[string]store.Stream) {
	for _, e := range sel.Events {
		stream, ok := streams[e.StreamID]
		if !ok || e.Value == nil {
			continue
		}
		display, construct := ResolveDisplay(stream.ConstructMapping, e.Code)
		if display == DisplayHidden {
			continue
		}
		base := rowBase(sel, sessions[e.SessionID], stream)

		switch e.Kind {
		case store.KindAxis:
			tables.Axes = append(tables.Axes, AxisRow{
				RecordingID: base.RecordingID, StudyID: base.StudyID,
				SessionID: stream.SessionID, SessionLabel: base.SessionLabel,
				StreamID: stream.ID, Participant: base.Participant,
				DeviceName: stream.DeviceName, ProfileID: stream.ProfileID,
				Code: e.Code, Construct: construct,
				TMs: e.TMs, Value: *e.Value,
			})
		case store.KindButton:
			if e.IsPress == nil {
				// Hardware repeats are neither press nor release.
				continue
			}
			event := "release"
			if *e.IsPress {
				event = "press"
			}
			tables.Buttons = append(tables.Buttons, ButtonRow{
				RecordingID: base.RecordingID, StudyID: base.StudyID,
				SessionID: stream.SessionID, SessionLabel: base.SessionLabel,
				StreamID: stream.ID, Participant: base.Participant,
				DeviceName: stream.DeviceName, ProfileID: stream.ProfileID,
				Code: e.Code, Construct: construct,
				TMs: e.TMs, Event: event,
			})
		}
	}
}

func (b *Builder) buildTimeSeries(tables *Tables, sel Selection,
	sessions map[string]store.Session, streams map[string]store.Stream) error {
	// Group events per (stream, code).
	type series struct {
		stream  store.Stream
		code    string
		kind    string
		times   []int64
		values  []int64
		press   []int64
		release []int64
	}
	grouped := map[string]*series{}
	var order []string
	var maxT int64

	for _, e := range sel.Events {
		stream, ok := streams[e.StreamID]
		if !ok {
			continue
		}
		if e.TMs > maxT {
			maxT = e.TMs
		}
		key := e.StreamID + "\x00" + e.Code
		sr, ok := grouped[key]
		if !ok {
			sr = &series{stream: stream, code: e.Code, kind: e.Kind}
			grouped[key] = sr
			order = append(order, key)
		}
		switch e.Kind {
		case store.KindAxis:
			if e.Value != nil {
				sr.times = append(sr.times, e.TMs)
				sr.values = append(sr.values, *e.Value)
			}
		case store.KindButton:
			if e.IsPress == nil {
				continue
			}
			if *e.IsPress {
				sr.press = append(sr.press, e.TMs)
			} else {
				sr.release = append(sr.release, e.TMs)
			}
		}
	}

	sort.Strings(order)
	for _, key := range order {
		sr := grouped[key]
		sortSeries(sr.times, sr.values)
		display, construct := ResolveDisplay(sr.stream.ConstructMapping, sr.code)
		if display == DisplayHidden {
			continue
		}
		base := rowBase(sel, sessions[sr.stream.SessionID], sr.stream)

		switch sr.kind {
		case store.KindAxis:
			times, values, err := b.conv.ConvertAxis(sr.times, sr.values, b.interp)
			if err != nil {
				return err
			}
			for i := range times {
				tables.Axes = append(tables.Axes, AxisRow{
					RecordingID: base.RecordingID, StudyID: base.StudyID,
					SessionID: sr.stream.SessionID, SessionLabel: base.SessionLabel,
					StreamID: sr.stream.ID, Participant: base.Participant,
					DeviceName: sr.stream.DeviceName, ProfileID: sr.stream.ProfileID,
					Code: sr.code, Construct: construct,
					TMs: times[i], Value: values[i],
				})
			}
		case store.KindButton:
			times, states := b.conv.ConvertButtons(sr.press, sr.release, maxT)
			for i := range times {
				tables.Buttons = append(tables.Buttons, ButtonRow{
					RecordingID: base.RecordingID, StudyID: base.StudyID,
					SessionID: sr.stream.SessionID, SessionLabel: base.SessionLabel,
					StreamID: sr.stream.ID, Participant: base.Participant,
					DeviceName: sr.stream.DeviceName, ProfileID: sr.stream.ProfileID,
					Code: sr.code, Construct: construct,
					TMs: times[i], State: states[i],
				})
			}
		}
	}
	return nil
}

// sortSeries orders one axis series by time, keeping pairs together.
func sortSeries(times []int64, values []int64) {
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })
	t2 := make([]int64, len(times))
	v2 := make([]int64, len(values))
	for i, j := range idx {
		t2[i] = times[j]
		v2[i] = values[j]
	}
	copy(times, t2)
	copy(values, v2)
}

type base struct {
	RecordingID  string
	StudyID      string
	SessionLabel string
	Participant  string
}

func rowBase(sel Selection, session store.Session, stream store.Stream) base {
	return base{
		RecordingID:  sel.Recording.ID,
		StudyID:      sel.Study.ID,
		SessionLabel: session.Label,
		Participant:  stream.Participant(),
	}
}

// sortTables applies the mode's ordering: change rows group by stream, time
// series rows interleave by instant.
func (b *Builder) sortTables(tables *Tables) {
	if b.mode == ModeChange {
		sort.SliceStable(tables.Axes, func(i, j int) bool {
			a, z := tables.Axes[i], tables.Axes[j]
			return lessBy(a.SessionID, z.SessionID, a.StreamID, z.StreamID, a.Code, z.Code, a.TMs, z.TMs)
		})
		sort.SliceStable(tables.Buttons, func(i, j int) bool {
			a, z := tables.Buttons[i], tables.Buttons[j]
			return lessBy(a.SessionID, z.SessionID, a.StreamID, z.StreamID, a.Code, z.Code, a.TMs, z.TMs)
		})
		return
	}
	sort.SliceStable(tables.Axes, func(i, j int) bool {
		a, z := tables.Axes[i], tables.Axes[j]
		if a.TMs != z.TMs {
			return a.TMs < z.TMs
		}
		return lessBy(a.SessionID, z.SessionID, a.StreamID, z.StreamID, a.Code, z.Code, 0, 0)
	})
	sort.SliceStable(tables.Buttons, func(i, j int) bool {
		a, z := tables.Buttons[i], tables.Buttons[j]
		if a.TMs != z.TMs {
			return a.TMs < z.TMs
		}
		return lessBy(a.SessionID, z.SessionID, a.StreamID, z.StreamID, a.Code, z.Code, 0, 0)
	})
}

func lessBy(s1a, s1b, s2a, s2b, s3a, s3b string, t1, t2 int64) bool {
	if s1a != s1b {
		return s1a < s1b
	}
	if s2a != s2b {
		return s2a < s2b
	}
	if s3a != s3b {
		return s3a < s3b
	}
	return t1 < t2
}
