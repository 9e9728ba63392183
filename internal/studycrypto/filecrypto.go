// SPDX-License-Identifier: MIT

package studycrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// SealedExt marks a file as sealed. It is appended to the plaintext name.
const SealedExt = ".enc"

// ErrBadPinOrTampered is returned when a sealed file fails authentication.
var ErrBadPinOrTampered = errors.New("bad PIN or tampered file")

// ErrAlreadySealed is returned when asked to seal a sealed file.
var ErrAlreadySealed = errors.New("file is already sealed")

// IsSealed reports whether a path names a sealed file.
func IsSealed(path string) bool {
	return strings.HasSuffix(path, SealedExt)
}

func newGCM(studyID, pin string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(studyID, pin))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptFile seals path into path+".enc" and removes the plaintext.
// Failure at any step leaves the plaintext in place and no sealed file on
// disk: the sealed blob lands atomically before the plaintext is unlinked.
func EncryptFile(path, studyID, pin string) (string, error) {
	if IsSealed(path) {
		return "", ErrAlreadySealed
	}

	gcm, err := newGCM(studyID, pin)
	if err != nil {
		return "", err
	}

	plaintext, err := os.ReadFile(path) // #nosec G304 -- store-owned media path
	if err != nil {
		return "", fmt.Errorf("read plaintext: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	sealedPath := path + SealedExt
	if err := renameio.WriteFile(sealedPath, sealed, 0o600); err != nil {
		return "", fmt.Errorf("write sealed file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		_ = os.Remove(sealedPath)
		return "", fmt.Errorf("remove plaintext: %w", err)
	}
	return sealedPath, nil
}

// DecryptFile opens a sealed file into a caller-private temporary location
// and returns the plaintext path. The caller owns the temporary file and
// must remove it when done. A failed authentication check returns
// ErrBadPinOrTampered and produces no plaintext.
func DecryptFile(sealedPath, studyID, pin string) (string, error) {
	gcm, err := newGCM(studyID, pin)
	if err != nil {
		return "", err
	}

	sealed, err := os.ReadFile(sealedPath) // #nosec G304 -- store-owned media path
	if err != nil {
		return "", fmt.Errorf("read sealed file: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ErrBadPinOrTampered
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrBadPinOrTampered
	}

	tmpDir, err := os.MkdirTemp("", "hsparc-media-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(sealedPath), SealedExt)
	tmpPath := filepath.Join(tmpDir, name)
	if err := os.WriteFile(tmpPath, plaintext, 0o600); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("write plaintext: %w", err)
	}
	return tmpPath, nil
}
