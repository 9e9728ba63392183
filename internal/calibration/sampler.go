// SPDX-License-Identifier: MIT

package calibration

import "fmt"

// MinAxisSamples is how many readings an axis must produce, with the
// participant sweeping both extremes, before its extent is accepted.
const MinAxisSamples = 40

// AxisSampler learns one axis extent from live readings.
type AxisSampler struct {
	code    string
	label   string
	min     int
	max     int
	samples int
}

// NewAxisSampler starts sampling the named axis.
func NewAxisSampler(code, label string) *AxisSampler {
	return &AxisSampler{code: code, label: label}
}

// Observe feeds one raw reading.
func (s *AxisSampler) Observe(raw int) {
	if s.samples == 0 || raw < s.min {
		s.min = raw
	}
	if s.samples == 0 || raw > s.max {
		s.max = raw
	}
	s.samples++
}

// Count returns how many readings were observed.
func (s *AxisSampler) Count() int { return s.samples }

// Complete reports whether enough readings arrived.
func (s *AxisSampler) Complete() bool { return s.samples >= MinAxisSamples }

// Result finalizes the learned extent.
func (s *AxisSampler) Result() (Axis, error) {
	if !s.Complete() {
		return Axis{}, fmt.Errorf("%w: axis %s has %d of %d samples",
			ErrInvalidExtent, s.code, s.samples, MinAxisSamples)
	}
	if s.min >= s.max {
		return Axis{}, fmt.Errorf("%w: axis %s min=%d max=%d", ErrInvalidExtent, s.code, s.min, s.max)
	}
	return Axis{
		Min:    s.min,
		Max:    s.max,
		Center: float64(s.min+s.max) / 2.0,
		Label:  s.label,
	}, nil
}

// Builder accumulates axis and button calibrations into a State.
type Builder struct {
	state State
}

// NewBuilder returns an empty calibration builder.
func NewBuilder() *Builder {
	return &Builder{state: State{
		Axes:    make(map[string]Axis),
		Buttons: make(map[string]Button),
	}}
}

// AddAxis records a finalized axis calibration.
func (b *Builder) AddAxis(code string, ax Axis) {
	b.state.Axes[code] = ax
}

// AddButton records a button detected on first press.
func (b *Builder) AddButton(code, label string) {
	b.state.Buttons[code] = Button{Label: label}
}

// Remove drops a calibrated input.
func (b *Builder) Remove(code string) {
	delete(b.state.Axes, code)
	delete(b.state.Buttons, code)
}

// State finalizes and validates the accumulated calibration. An empty
// builder yields nil: the stream gets no allow-list and raw values persist.
func (b *Builder) State() (*State, error) {
	if len(b.state.Axes) == 0 && len(b.state.Buttons) == 0 {
		return nil, nil
	}
	st := b.state
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}
