// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/drjhoover/hsparc/internal/log"
)

// InputDir is where the kernel exposes event devices.
const InputDir = "/dev/input"

// ChangeOp classifies a hot-plug notification.
type ChangeOp int

const (
	Added ChangeOp = iota
	Removed
)

// Change is one device hot-plug notification.
type Change struct {
	Path string
	Op   ChangeOp
}

// Watcher reports controllers appearing and disappearing while the
// assignment prompt is open.
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan Change
}

// NewWatcher starts watching dir (InputDir in production) for event devices.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{fsw: fsw, changes: make(chan Change, 16)}, nil
}

// Changes returns the notification channel. It closes when Run returns.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Run pumps filesystem notifications until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	logger := log.WithComponent("device-watcher")
	defer close(w.changes)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				w.emit(ctx, Change{Path: ev.Name, Op: Added})
			case ev.Has(fsnotify.Remove):
				w.emit(ctx, Change{Path: ev.Name, Op: Removed})
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) emit(ctx context.Context, c Change) {
	select {
	case w.changes <- c:
	case <-ctx.Done():
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
