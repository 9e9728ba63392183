// SPDX-License-Identifier: MIT

// Package timeseries converts event-driven samples into regular series for
// export.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidRate rejects sampling rates outside the supported set.
var ErrInvalidRate = errors.New("invalid sampling rate")

// ErrLengthMismatch rejects time/value slices of different lengths.
var ErrLengthMismatch = errors.New("times and values length mismatch")

// Interpolation selects how axis values behave between events.
type Interpolation string

const (
	// ForwardFill holds the last value until the next event.
	ForwardFill Interpolation = "forward_fill"
	// Linear interpolates linearly between events.
	Linear Interpolation = "linear"
)

// Rates supported by the converter.
var Rates = []int{1, 5, 10, 20, 30, 60}

// Converter resamples event-driven series at a fixed rate.
type Converter struct {
	rateHz     int
	intervalMS float64
}

// New validates the rate and returns a converter.
func New(rateHz int) (*Converter, error) {
	ok := false
	for _, r := range Rates {
		if r == rateHz {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d Hz", ErrInvalidRate, rateHz)
	}
	return &Converter{rateHz: rateHz, intervalMS: 1000.0 / float64(rateHz)}, nil
}

// RateHz returns the configured sampling rate.
func (c *Converter) RateHz() int { return c.rateHz }

// timeline yields sample instants covering [0, maxTimeMS]. Times are
// truncated to integer milliseconds for output; comparisons use the exact
// float instant.
func (c *Converter) timeline(maxTimeMS int64) ([]int64, []float64) {
	if maxTimeMS < 0 {
		return nil, nil
	}
	n := int(math.Ceil(float64(maxTimeMS)/c.intervalMS)) + 1
	times := make([]int64, n)
	exact := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) * c.intervalMS
		exact[i] = t
		times[i] = int64(t)
	}
	return times, exact
}

// ConvertAxis resamples axis events. Samples before the first event hold the
// first value. Values are rounded to integers.
func (c *Converter) ConvertAxis(timesMS []int64, values []int64, interp Interpolation) ([]int64, []int64, error) {
	if len(timesMS) != len(values) {
		return nil, nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(timesMS), len(values))
	}
	if len(timesMS) == 0 {
		return nil, nil, nil
	}

	regular, exact := c.timeline(timesMS[len(timesMS)-1])
	out := make([]int64, len(regular))

	switch interp {
	case ForwardFill:
		idx := 0
		for i, t := range exact {
			for idx < len(timesMS)-1 && float64(timesMS[idx+1]) <= t {
				idx++
			}
			if float64(timesMS[idx]) > t {
				out[i] = values[0]
				continue
			}
			out[i] = values[idx]
		}
	case Linear:
		for i, t := range exact {
			out[i] = int64(math.Round(interpLinear(timesMS, values, t)))
		}
	default:
		return nil, nil, fmt.Errorf("%w: interpolation %q", ErrInvalidRate, interp)
	}
	return regular, out, nil
}

func interpLinear(timesMS []int64, values []int64, t float64) float64 {
	if t <= float64(timesMS[0]) {
		return float64(values[0])
	}
	last := len(timesMS) - 1
	if t >= float64(timesMS[last]) {
		return float64(values[last])
	}
	hi := sort.Search(len(timesMS), func(i int) bool { return float64(timesMS[i]) > t })
	lo := hi - 1
	t0, t1 := float64(timesMS[lo]), float64(timesMS[hi])
	v0, v1 := float64(values[lo]), float64(values[hi])
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

// ConvertButtons resamples press/release events into {0,1} states. The state
// at each sample is the most recent transition at or before it.
func (c *Converter) ConvertButtons(pressesMS, releasesMS []int64, maxTimeMS int64) ([]int64, []int64) {
	if maxTimeMS <= 0 {
		return nil, nil
	}

	type change struct {
		t     int64
		state int64
	}
	changes := make([]change, 0, len(pressesMS)+len(releasesMS))
	for _, t := range pressesMS {
		changes = append(changes, change{t: t, state: 1})
	}
	for _, t := range releasesMS {
		changes = append(changes, change{t: t, state: 0})
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].t < changes[j].t })

	regular, exact := c.timeline(maxTimeMS)
	states := make([]int64, len(regular))

	var current int64
	idx := 0
	for i, t := range exact {
		for idx < len(changes) && float64(changes[idx].t) <= t {
			current = changes[idx].state
			idx++
		}
		states[i] = current
	}
	return regular, states
}

// TimeAxis returns the regular sample instants covering [0, maxTimeMS].
func (c *Converter) TimeAxis(maxTimeMS int64) []int64 {
	times, _ := c.timeline(maxTimeMS)
	return times
}

// SampleCount returns how many samples a duration produces.
func (c *Converter) SampleCount(durationMS int64) int {
	if durationMS < 0 {
		return 0
	}
	return int(math.Ceil(float64(durationMS)/c.intervalMS)) + 1
}
