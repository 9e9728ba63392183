// SPDX-License-Identifier: MIT

package studycrypto

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicPerStudyAndPin(t *testing.T) {
	k1 := DeriveKey("study-1", "1234")
	k2 := DeriveKey("study-1", "1234")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)

	assert.NotEqual(t, k1, DeriveKey("study-2", "1234"))
	assert.NotEqual(t, k1, DeriveKey("study-1", "4321"))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")

	payload := make([]byte, 1<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	sealedPath, err := EncryptFile(path, "study-1", "1234")
	require.NoError(t, err)
	assert.Equal(t, path+SealedExt, sealedPath)
	assert.True(t, IsSealed(sealedPath))

	// Plaintext removed, sealed blob differs from source.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	sealed, err := os.ReadFile(sealedPath)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, payload[:64]))

	plainPath, err := DecryptFile(sealedPath, "study-1", "1234")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Dir(plainPath)) })

	got, err := os.ReadFile(plainPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))
}

func TestDecryptFile_WrongPin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("frames"), 0o600))

	sealedPath, err := EncryptFile(path, "study-1", "1234")
	require.NoError(t, err)

	_, err = DecryptFile(sealedPath, "study-1", "9999")
	assert.ErrorIs(t, err, ErrBadPinOrTampered)
}

func TestDecryptFile_Tampered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("frames"), 0o600))

	sealedPath, err := EncryptFile(path, "study-1", "1234")
	require.NoError(t, err)

	sealed, err := os.ReadFile(sealedPath)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(sealedPath, sealed, 0o600))

	_, err = DecryptFile(sealedPath, "study-1", "1234")
	assert.ErrorIs(t, err, ErrBadPinOrTampered)
}

func TestEncryptFile_RejectsSealed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4.enc")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EncryptFile(path, "study-1", "1234")
	assert.ErrorIs(t, err, ErrAlreadySealed)
}

func TestEncryptFile_MissingPlaintextLeavesNoSealedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "absent.mp4")

	_, err := EncryptFile(path, "study-1", "1234")
	require.Error(t, err)
	_, statErr := os.Stat(path + SealedExt)
	assert.True(t, os.IsNotExist(statErr))
}
