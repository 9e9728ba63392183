// SPDX-License-Identifier: MIT

// Package export materializes selected streams as flat rectangular tables
// for an external writer.
package export

import "github.com/drjhoover/hsparc/internal/store"

// Display says how a code shows up in plots and exports.
type Display int

const (
	// DisplayRaw shows the raw code.
	DisplayRaw Display = iota
	// DisplayLabeled shows the researcher's construct label.
	DisplayLabeled
	// DisplayHidden excludes the code entirely.
	DisplayHidden
)

// ResolveDisplay maps a code through a stream's construct mapping.
// The returned string is the construct column value for Raw and Labeled.
func ResolveDisplay(mapping map[string]string, code string) (Display, string) {
	label, ok := mapping[code]
	switch {
	case !ok, label == "":
		return DisplayRaw, code
	case label == store.HideLabel:
		return DisplayHidden, ""
	default:
		return DisplayLabeled, label
	}
}
