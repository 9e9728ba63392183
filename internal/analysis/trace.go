// SPDX-License-Identifier: MIT

// Package analysis aligns event-driven traces onto a common timeline and
// runs the trace-count-adaptive analysis.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/drjhoover/hsparc/internal/store"
)

// ErrInsufficientData is returned when the selected traces cannot support
// the requested analysis.
var ErrInsufficientData = errors.New("insufficient data")

// Trace is one event-driven series: strictly increasing times and the value
// observed at each.
type Trace struct {
	Name    string
	TimesMS []int64
	Values  []float64
}

// calibratedScale maps the persisted ±1000 integers back onto [-1, 1].
const calibratedScale = 1000.0

// TracesFromEvents builds one trace per (stream, axis code) from a scan.
// Calibrated streams come back on [-1, 1]; uncalibrated ones stay raw.
// Codes mapped to the hide label are excluded. Trace names follow
// "<participant>: <construct-or-code>".
func TracesFromEvents(streams []store.Stream, events []store.Event) []Trace {
	byStream := make(map[string]store.Stream, len(streams))
	for _, s := range streams {
		byStream[s.ID] = s
	}

	type key struct {
		stream string
		code   string
	}
	grouped := make(map[key]*Trace)
	var order []key

	for _, e := range events {
		if e.Kind != store.KindAxis || e.Value == nil {
			continue
		}
		s, ok := byStream[e.StreamID]
		if !ok {
			continue
		}
		label := s.ConstructMapping[e.Code]
		if label == store.HideLabel {
			continue
		}

		k := key{stream: e.StreamID, code: e.Code}
		tr, ok := grouped[k]
		if !ok {
			display := e.Code
			if label != "" {
				display = label
			}
			tr = &Trace{Name: fmt.Sprintf("%s: %s", s.Participant(), display)}
			grouped[k] = tr
			order = append(order, k)
		}

		value := float64(*e.Value)
		if _, calibrated := s.Calibration.AxisFor(e.Code); calibrated {
			value /= calibratedScale
		}

		// Scans order by (stream, t, code); same-ms duplicates keep the
		// last observation.
		n := len(tr.TimesMS)
		if n > 0 && tr.TimesMS[n-1] == e.TMs {
			tr.Values[n-1] = value
			continue
		}
		tr.TimesMS = append(tr.TimesMS, e.TMs)
		tr.Values = append(tr.Values, value)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].stream != order[j].stream {
			return order[i].stream < order[j].stream
		}
		return order[i].code < order[j].code
	})

	out := make([]Trace, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out
}
