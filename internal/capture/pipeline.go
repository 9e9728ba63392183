// SPDX-License-Identifier: MIT

// Package capture composes the clock, device readers, and store for a single
// recording.
package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/drjhoover/hsparc/internal/calibration"
	"github.com/drjhoover/hsparc/internal/clock"
	"github.com/drjhoover/hsparc/internal/device"
	"github.com/drjhoover/hsparc/internal/log"
)

// JoinTimeout bounds how long Stop waits for each reader to exit. A reader
// that misses the deadline is considered leaked; the pipeline still closes.
const JoinTimeout = 1 * time.Second

// ErrCancelled reports a capture aborted by context cancellation.
var ErrCancelled = errors.New("capture cancelled")

// Assignment binds one device path to one stream.
type Assignment struct {
	DevicePath    string
	StreamID      string
	Alias         string
	Calibration   *calibration.State
	AllowedInputs []string
}

// openFunc opens a device path; injectable for tests.
type openFunc func(path string) (device.Source, string, error)

// Pipeline owns the readers of one recording.
type Pipeline struct {
	recordingID string
	sessionID   string
	clk         *clock.Clock
	appender    device.Appender
	assignments []Assignment
	open        openFunc

	mu      sync.Mutex
	started bool
	closed  bool
	readers []*device.Reader
	group   *errgroup.Group
	cancel  context.CancelFunc
	fatal   error

	logger zerolog.Logger
}

// New builds a pipeline for one recording session.
func New(appender device.Appender, recordingID, sessionID string, clk *clock.Clock, assignments []Assignment) *Pipeline {
	return &Pipeline{
		recordingID: recordingID,
		sessionID:   sessionID,
		clk:         clk,
		appender:    appender,
		assignments: assignments,
		open:        device.OpenSource,
		logger: log.WithComponent("capture").With().
			Str(log.FieldRecordingID, recordingID).
			Str(log.FieldSessionID, sessionID).
			Logger(),
	}
}

// Start resolves device paths, opens one reader per assignment, and begins
// capture. Idempotent: a second call on a running pipeline is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if p.closed {
		return errors.New("pipeline already closed")
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	var opened []*device.Reader
	for _, a := range p.assignments {
		realPath, err := filepath.EvalSymlinks(a.DevicePath)
		if err != nil {
			realPath = a.DevicePath
		}

		src, name, err := p.open(realPath)
		if err != nil {
			for _, r := range opened {
				r.Stop()
			}
			cancel()
			return fmt.Errorf("open %s: %w", realPath, err)
		}

		reader := device.NewReader(src, p.appender, p.recordingID, p.sessionID,
			a.StreamID, p.clk, a.Calibration, a.AllowedInputs)
		opened = append(opened, reader)

		p.logger.Info().
			Str(log.FieldEvent, "reader.open").
			Str(log.FieldDevice, name).
			Str(log.FieldPath, realPath).
			Str(log.FieldStreamID, a.StreamID).
			Msg("device reader opened")
	}

	for _, reader := range opened {
		reader := reader
		group.Go(func() error {
			err := reader.Run(groupCtx)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, device.ErrDeviceLost):
				// One lost device does not stop the others; its stream
				// just stops receiving events.
				p.logger.Warn().Err(err).Msg("device lost")
				return nil
			default:
				// Store failures are fatal to the whole capture.
				return err
			}
		})
	}

	// A fatal reader error cancels groupCtx; unblock the survivors.
	go func() {
		<-groupCtx.Done()
		for _, r := range opened {
			r.Stop()
		}
	}()

	p.readers = opened
	p.group = group
	p.cancel = cancel
	p.started = true

	p.logger.Info().
		Str(log.FieldEvent, "capture.start").
		Int("readers", len(opened)).
		Msg("capture running")
	return nil
}

// Stop signals every reader, waits up to JoinTimeout for them to join, and
// closes the pipeline. It returns the first fatal error observed during
// capture, if any. Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.closed {
		fatal := p.fatal
		p.mu.Unlock()
		return fatal
	}
	p.closed = true
	started := p.started
	readers := p.readers
	group := p.group
	cancel := p.cancel
	p.mu.Unlock()

	if !started {
		return nil
	}

	for _, r := range readers {
		r.Stop()
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- group.Wait() }()

	var fatal error
	select {
	case err := <-waitErr:
		fatal = err
	case <-time.After(JoinTimeout):
		p.logger.Warn().
			Str(log.FieldEvent, "capture.join_timeout").
			Msg("reader failed to exit before deadline, leaking it")
	}
	cancel()

	p.mu.Lock()
	p.fatal = fatal
	p.mu.Unlock()

	p.logger.Info().
		Str(log.FieldEvent, "capture.stop").
		Bool("clean", fatal == nil).
		Msg("capture stopped")
	return fatal
}

// Wait blocks until every reader exited and returns the first fatal error.
// Useful when capture ends by store failure rather than an explicit Stop.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	group := p.group
	p.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}
