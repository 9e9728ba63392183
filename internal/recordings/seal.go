// SPDX-License-Identifier: MIT

// Package recordings handles the video file lifecycle around a recording:
// closed plaintext → sealed blob → verified open for review.
package recordings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/drjhoover/hsparc/internal/log"
	"github.com/drjhoover/hsparc/internal/metrics"
	"github.com/drjhoover/hsparc/internal/store"
	"github.com/drjhoover/hsparc/internal/studycrypto"
)

// ErrTampered reports a sealed blob whose content hash no longer matches
// the recorded one.
var ErrTampered = errors.New("sealed video does not match recorded digest")

// Seal encrypts a recording's closed plaintext video in place, records the
// sealed path and its content address, and removes the plaintext. It runs
// only after every reader has joined.
func Seal(ctx context.Context, st *store.Store, rec store.Recording, pin string) (string, error) {
	logger := log.WithComponent("sealer").With().
		Str(log.FieldRecordingID, rec.ID).
		Logger()

	if rec.VideoPath == "" {
		return "", fmt.Errorf("recording %s has no video file", rec.ID)
	}
	if studycrypto.IsSealed(rec.VideoPath) {
		return rec.VideoPath, nil
	}

	sealedPath, err := studycrypto.EncryptFile(rec.VideoPath, rec.StudyID, pin)
	if err != nil {
		metrics.IncSeal("error")
		return "", fmt.Errorf("seal video: %w", err)
	}

	digest, err := fileSHA256(sealedPath)
	if err != nil {
		metrics.IncSeal("error")
		return "", err
	}

	if err := st.UpdateRecordingVideoPath(ctx, rec.ID, sealedPath); err != nil {
		metrics.IncSeal("error")
		return "", err
	}
	if err := st.UpdateRecordingVideoSHA256(ctx, rec.ID, digest); err != nil {
		metrics.IncSeal("error")
		return "", err
	}

	metrics.IncSeal("ok")
	logger.Info().
		Str(log.FieldEvent, "video.sealed").
		Str(log.FieldSealedPath, sealedPath).
		Msg("video sealed")
	return sealedPath, nil
}

// Open verifies the sealed blob against its content address and decrypts it
// into a caller-owned temporary plaintext. Plaintext (legacy) videos are
// returned as-is.
func Open(rec store.Recording, pin string) (string, error) {
	if rec.VideoPath == "" {
		return "", fmt.Errorf("recording %s has no video file", rec.ID)
	}
	if !studycrypto.IsSealed(rec.VideoPath) {
		return rec.VideoPath, nil
	}

	if rec.VideoSHA256 != "" {
		digest, err := fileSHA256(rec.VideoPath)
		if err != nil {
			return "", err
		}
		if digest != rec.VideoSHA256 {
			return "", ErrTampered
		}
	}

	return studycrypto.DecryptFile(rec.VideoPath, rec.StudyID, pin)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- store-owned media path
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
