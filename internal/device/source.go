// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"

	"github.com/holoplot/go-evdev"
)

// ErrDeviceUnavailable is returned when a device path cannot be opened.
var ErrDeviceUnavailable = errors.New("device unavailable")

// ErrDeviceLost is returned when an open device stops responding mid-capture.
var ErrDeviceLost = errors.New("device lost")

// RawEvent is one undecoded kernel input event.
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Source yields raw events from one device handle. Close unblocks a pending
// ReadOne.
type Source interface {
	ReadOne() (RawEvent, error)
	Close() error
}

type evdevSource struct {
	dev *evdev.InputDevice
}

// OpenSource opens the evdev device at path and returns its event source and
// reported name.
func OpenSource(path string) (Source, string, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	name, err := dev.Name()
	if err != nil {
		name = path
	}
	return &evdevSource{dev: dev}, name, nil
}

func (s *evdevSource) ReadOne() (RawEvent, error) {
	ev, err := s.dev.ReadOne()
	if err != nil {
		return RawEvent{}, err
	}
	return RawEvent{Type: uint16(ev.Type), Code: uint16(ev.Code), Value: ev.Value}, nil
}

func (s *evdevSource) Close() error {
	return s.dev.Close()
}

// ListDevicePaths enumerates the input devices currently present.
func ListDevicePaths() ([]string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Path)
	}
	return out, nil
}
