// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drjhoover/hsparc/internal/calibration"
	"github.com/drjhoover/hsparc/internal/clock"
	"github.com/drjhoover/hsparc/internal/store"
)

// fakeSource feeds scripted events and then blocks until closed.
type fakeSource struct {
	events chan RawEvent
	closed sync.Once
	done   chan struct{}
}

func newFakeSource(events ...RawEvent) *fakeSource {
	ch := make(chan RawEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	return &fakeSource{events: ch, done: make(chan struct{})}
}

func (f *fakeSource) ReadOne() (RawEvent, error) {
	select {
	case e := <-f.events:
		return e, nil
	case <-f.done:
		return RawEvent{}, errors.New("closed")
	}
}

func (f *fakeSource) Close() error {
	f.closed.Do(func() { close(f.done) })
	return nil
}

// memAppender collects appended events.
type memAppender struct {
	mu     sync.Mutex
	events []store.Event
	fail   error
}

func (m *memAppender) AppendEvent(_ context.Context, e store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memAppender) all() []store.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Event(nil), m.events...)
}

func runReader(t *testing.T, r *Reader) chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()
	return errCh
}

func waitEvents(t *testing.T, sink *memAppender, n int) []store.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := sink.all(); len(got) >= n {
			return got
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %d", n, len(sink.all()))
		case <-time.After(time.Millisecond):
		}
	}
}

func TestReader_DecodesAxisAndButton(t *testing.T) {
	src := newFakeSource(
		RawEvent{Type: evSyn, Code: 0, Value: 0},           // skipped
		RawEvent{Type: evAbs, Code: 0x00, Value: 200},      // ABS_X
		RawEvent{Type: evKey, Code: 0x130, Value: 1},       // BTN_SOUTH press
		RawEvent{Type: evKey, Code: 0x130, Value: 0},       // release
		RawEvent{Type: evKey, Code: 0x130, Value: 2},       // hardware repeat
		RawEvent{Type: 0x04, Code: 0x01, Value: 1},         // EV_MSC, skipped
	)
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, nil)
	errCh := runReader(t, r)

	events := waitEvents(t, sink, 4)
	r.Stop()
	require.NoError(t, <-errCh)
	assert.Equal(t, StateClosed, r.State())

	assert.Equal(t, store.KindAxis, events[0].Kind)
	assert.Equal(t, "ABS_X", events[0].Code)
	require.NotNil(t, events[0].Value)
	assert.Equal(t, int64(200), *events[0].Value)

	press, release, repeat := events[1], events[2], events[3]
	require.NotNil(t, press.IsPress)
	assert.True(t, *press.IsPress)
	require.NotNil(t, release.IsPress)
	assert.False(t, *release.IsPress)
	assert.Nil(t, repeat.IsPress)
	require.NotNil(t, repeat.Value)
	assert.Equal(t, int64(2), *repeat.Value)
}

func TestReader_AppliesCalibration(t *testing.T) {
	cal := &calibration.State{Axes: map[string]calibration.Axis{
		"ABS_X": {Min: 0, Max: 200, Center: 100},
	}}
	src := newFakeSource(
		RawEvent{Type: evAbs, Code: 0x00, Value: 0},
		RawEvent{Type: evAbs, Code: 0x00, Value: 200},
		RawEvent{Type: evAbs, Code: 0x00, Value: 100},
		RawEvent{Type: evAbs, Code: 0x01, Value: 77}, // ABS_Y uncalibrated: raw
	)
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), cal, nil)
	errCh := runReader(t, r)

	events := waitEvents(t, sink, 4)
	r.Stop()
	require.NoError(t, <-errCh)

	assert.Equal(t, int64(-1000), *events[0].Value)
	assert.Equal(t, int64(1000), *events[1].Value)
	assert.Equal(t, int64(0), *events[2].Value)
	assert.Equal(t, int64(77), *events[3].Value)
}

func TestReader_AllowListFilters(t *testing.T) {
	src := newFakeSource(
		RawEvent{Type: evAbs, Code: 0x00, Value: 5},  // ABS_X allowed
		RawEvent{Type: evAbs, Code: 0x01, Value: 5},  // ABS_Y dropped
		RawEvent{Type: evKey, Code: 0x130, Value: 1}, // BTN_SOUTH dropped
		RawEvent{Type: evAbs, Code: 0x00, Value: 6},
	)
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, []string{"ABS_X"})
	errCh := runReader(t, r)

	events := waitEvents(t, sink, 2)
	r.Stop()
	require.NoError(t, <-errCh)

	for _, e := range events {
		assert.Equal(t, "ABS_X", e.Code)
	}
}

func TestReader_DeviceLossSurfaces(t *testing.T) {
	src := newFakeSource() // no events; closing mid-run means loss
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	// Simulate the kernel yanking the device: the source fails while the
	// reader is still RUNNING.
	src.closed.Do(func() { close(src.done) })

	err := <-errCh
	assert.ErrorIs(t, err, ErrDeviceLost)
	assert.Equal(t, StateClosed, r.State())
}

func TestReader_StoreFailureAborts(t *testing.T) {
	src := newFakeSource(RawEvent{Type: evAbs, Code: 0x00, Value: 1})
	sink := &memAppender{fail: store.ErrStore}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, nil)

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, store.ErrStore)
}

func TestReader_StopIdempotent(t *testing.T) {
	src := newFakeSource()
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, nil)
	errCh := runReader(t, r)

	r.Stop()
	r.Stop()
	require.NoError(t, <-errCh)
	assert.Equal(t, StateClosed, r.State())
}

func TestReader_TimestampsNonDecreasing(t *testing.T) {
	var raws []RawEvent
	for i := 0; i < 50; i++ {
		raws = append(raws, RawEvent{Type: evAbs, Code: 0x00, Value: int32(i)})
	}
	src := newFakeSource(raws...)
	sink := &memAppender{}
	r := NewReader(src, sink, "rec", "sess", "stream", clock.New(), nil, nil)
	errCh := runReader(t, r)

	events := waitEvents(t, sink, 50)
	r.Stop()
	require.NoError(t, <-errCh)

	var prev int64
	for _, e := range events {
		assert.GreaterOrEqual(t, e.TMs, prev)
		prev = e.TMs
	}
}
