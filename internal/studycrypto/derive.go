// SPDX-License-Identifier: MIT

// Package studycrypto seals and opens study media files with a PIN-derived
// key. Files on disk are either plaintext or sealed (".enc"), never both.
package studycrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLen     = 32
	iterations = 100_000
)

// DeriveKey derives the symmetric key for a study from its id and PIN.
// The study id is the salt, so the key is deterministic per (study, pin).
func DeriveKey(studyID, pin string) []byte {
	return pbkdf2.Key([]byte(pin), []byte(studyID), iterations, keyLen, sha256.New)
}
