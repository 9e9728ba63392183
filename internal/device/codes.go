// SPDX-License-Identifier: MIT

// Package device reads raw controller events and turns them into normalized,
// filtered input records.
package device

import "fmt"

// Linux input event types (stable kernel ABI).
const (
	evSyn uint16 = 0x00
	evKey uint16 = 0x01
	evAbs uint16 = 0x03
)

// absNames maps EV_ABS codes to their stable symbolic names.
var absNames = map[uint16]string{
	0x00: "ABS_X",
	0x01: "ABS_Y",
	0x02: "ABS_Z",
	0x03: "ABS_RX",
	0x04: "ABS_RY",
	0x05: "ABS_RZ",
	0x10: "ABS_HAT0X",
	0x11: "ABS_HAT0Y",
}

// keyNames maps EV_KEY codes to their stable symbolic names.
var keyNames = map[uint16]string{
	0x120: "BTN_TRIGGER",
	0x121: "BTN_THUMB",
	0x122: "BTN_THUMB2",
	0x123: "BTN_TOP",
	0x124: "BTN_TOP2",
	0x125: "BTN_PINKIE",
	0x130: "BTN_SOUTH",
	0x131: "BTN_EAST",
	0x133: "BTN_NORTH",
	0x134: "BTN_WEST",
	0x136: "BTN_TL",
	0x137: "BTN_TR",
	0x138: "BTN_TL2",
	0x139: "BTN_TR2",
	0x13a: "BTN_SELECT",
	0x13b: "BTN_START",
	0x13c: "BTN_MODE",
	0x13d: "BTN_THUMBL",
	0x13e: "BTN_THUMBR",
}

// AbsName returns the symbolic name of an EV_ABS code, stable across runs.
func AbsName(code uint16) string {
	if name, ok := absNames[code]; ok {
		return name
	}
	return fmt.Sprintf("ABS_%d", code)
}

// KeyName returns the symbolic name of an EV_KEY code, stable across runs.
func KeyName(code uint16) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("KEY_%d", code)
}

// CommonControls is the canonical gamepad surface offered by the
// construct-mapping UI and the calibration workflow.
var CommonControls = []string{
	"ABS_X", "ABS_Y", "ABS_RX", "ABS_RY", "ABS_Z", "ABS_RZ",
	"ABS_HAT0X", "ABS_HAT0Y",
	"BTN_SOUTH", "BTN_EAST", "BTN_WEST", "BTN_NORTH",
	"BTN_TL", "BTN_TR", "BTN_SELECT", "BTN_START",
	"BTN_THUMBL", "BTN_THUMBR",
}
