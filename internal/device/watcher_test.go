// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsEventDevices(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Non-device files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mouse-state"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "event5"), nil, 0o600))

	select {
	case change := <-w.Changes():
		assert.Equal(t, Added, change.Op)
		assert.Equal(t, filepath.Join(dir, "event5"), change.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "event5")))
	select {
	case change := <-w.Changes():
		assert.Equal(t, Removed, change.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("no remove notification")
	}
}

func TestCodeNames(t *testing.T) {
	assert.Equal(t, "ABS_X", AbsName(0x00))
	assert.Equal(t, "BTN_SOUTH", KeyName(0x130))
	assert.Equal(t, "ABS_99", AbsName(99))
	assert.Equal(t, "KEY_777", KeyName(777))
}
