// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/drjhoover/hsparc/internal/calibration"
	"github.com/drjhoover/hsparc/internal/clock"
	"github.com/drjhoover/hsparc/internal/log"
	"github.com/drjhoover/hsparc/internal/metrics"
	"github.com/drjhoover/hsparc/internal/store"
)

// Reader lifecycle states.
type State int32

const (
	StateOpened State = iota
	StateRunning
	StateStopping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "closed"
	}
}

// Appender is the single store operation a reader needs.
type Appender interface {
	AppendEvent(ctx context.Context, e store.Event) error
}

// Reader decodes one device's events into one stream. It owns its Source
// exclusively and releases it on every exit path.
type Reader struct {
	src         Source
	appender    Appender
	recordingID string
	sessionID   string
	streamID    string
	clk         *clock.Clock
	cal         *calibration.State
	allowed     map[string]struct{}

	state    atomic.Int32
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewReader wires a reader to its source, stream, and clock. A nil allowed
// slice accepts every input.
func NewReader(src Source, appender Appender, recordingID, sessionID, streamID string,
	clk *clock.Clock, cal *calibration.State, allowed []string) *Reader {
	var allowSet map[string]struct{}
	if len(allowed) > 0 {
		allowSet = make(map[string]struct{}, len(allowed))
		for _, code := range allowed {
			allowSet[code] = struct{}{}
		}
	}
	r := &Reader{
		src:         src,
		appender:    appender,
		recordingID: recordingID,
		sessionID:   sessionID,
		streamID:    streamID,
		clk:         clk,
		cal:         cal,
		allowed:     allowSet,
		logger: log.WithComponent("reader").With().
			Str(log.FieldStreamID, streamID).
			Logger(),
	}
	r.state.Store(int32(StateOpened))
	return r
}

// State returns the reader's current lifecycle state.
func (r *Reader) State() State { return State(r.state.Load()) }

// Stop is idempotent. It closes the device handle, which unblocks the read
// loop at the next event boundary.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		r.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		r.state.CompareAndSwap(int32(StateOpened), int32(StateStopping))
		_ = r.src.Close()
	})
}

// Run consumes the device until Stop, ctx cancellation, device loss, or a
// store failure. Store failures are fatal and surface to the pipeline;
// device loss after a clean Stop is a normal exit.
func (r *Reader) Run(ctx context.Context) error {
	r.state.Store(int32(StateRunning))
	metrics.ReaderStarted()
	defer func() {
		r.Stop()
		r.state.Store(int32(StateClosed))
		metrics.ReaderStopped()
	}()

	for {
		if ctx.Err() != nil || r.State() == StateStopping {
			return nil
		}

		raw, err := r.src.ReadOne()
		if err != nil {
			if r.State() == StateStopping || ctx.Err() != nil {
				return nil
			}
			metrics.IncReaderError()
			return fmt.Errorf("%w: %v", ErrDeviceLost, err)
		}

		event, ok := r.decode(raw)
		if !ok {
			continue
		}

		if err := r.append(ctx, event); err != nil {
			return err
		}
	}
}

// decode applies the classify → name → filter → normalize rules.
func (r *Reader) decode(raw RawEvent) (store.Event, bool) {
	switch raw.Type {
	case evSyn:
		metrics.IncEventDropped("sync")
		return store.Event{}, false

	case evAbs:
		code := AbsName(raw.Code)
		if !r.allowedCode(code) {
			metrics.IncEventDropped("filtered")
			return store.Event{}, false
		}
		value := int64(raw.Value)
		if ax, ok := r.cal.AxisFor(code); ok {
			value = ax.Quantize(int(raw.Value))
		}
		return store.Event{
			RecordingID: r.recordingID,
			SessionID:   r.sessionID,
			StreamID:    r.streamID,
			TMs:         r.clk.NowMS(),
			Kind:        store.KindAxis,
			Code:        code,
			Value:       &value,
		}, true

	case evKey:
		code := KeyName(raw.Code)
		if !r.allowedCode(code) {
			metrics.IncEventDropped("filtered")
			return store.Event{}, false
		}
		value := int64(raw.Value)
		var isPress *bool
		switch raw.Value {
		case 1:
			v := true
			isPress = &v
		case 0:
			v := false
			isPress = &v
		default:
			// hardware repeat: ambiguous, persisted with null is_press
		}
		return store.Event{
			RecordingID: r.recordingID,
			SessionID:   r.sessionID,
			StreamID:    r.streamID,
			TMs:         r.clk.NowMS(),
			Kind:        store.KindButton,
			Code:        code,
			Value:       &value,
			IsPress:     isPress,
		}, true

	default:
		metrics.IncEventDropped("other")
		return store.Event{}, false
	}
}

func (r *Reader) allowedCode(code string) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[code]
	return ok
}

func (r *Reader) append(ctx context.Context, e store.Event) error {
	if err := r.appender.AppendEvent(ctx, e); err != nil {
		r.logger.Error().Err(err).
			Str(log.FieldCode, e.Code).
			Int64(log.FieldTMs, e.TMs).
			Msg("append failed, aborting capture")
		return err
	}
	metrics.IncEventAppended(e.Kind)
	return nil
}
