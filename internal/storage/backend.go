// Package storage holds the physical homes of ledger documents.
//
// A Backend stores opaque byte documents under flat names; it knows nothing about
// CSV or accounts. Which name an account maps to is decided by a Namer.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotExist is returned by Read when no document is stored under the name.
var ErrNotExist = errors.New("storage: document does not exist")

// Backend is scoped acquisition of named documents: every call opens, reads or
// writes, and releases. No handle survives between calls.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	// Write replaces the whole document.
	Write(ctx context.Context, name string, data []byte) error
}

// Namer maps an account key to a document name.
type Namer func(account string) string

// maxHexKeyBytes bounds the keys HexNamer spells out, so that a name plus its
// backup and temp-file suffixes stays under a 255 byte file name limit.
const maxHexKeyBytes = 64

// HexNamer returns a Namer that hex-encodes the account key between prefix and
// ext. Hex keeps the mapping injective and safe on case-insensitive filesystems.
// Keys longer than maxHexKeyBytes are named by their SHA-256 digest instead; the
// "sha256-" marker keeps those names apart from plain hex ones.
func HexNamer(prefix, ext string) Namer {
	return func(account string) string {
		if len(account) > maxHexKeyBytes {
			sum := sha256.Sum256([]byte(account))
			return prefix + "sha256-" + hex.EncodeToString(sum[:]) + ext
		}
		return prefix + hex.EncodeToString([]byte(account)) + ext
	}
}
