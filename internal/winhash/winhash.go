// Package winhash is an opaque SHA-256 hashing facade (§1, §4.5): the
// core treats cryptographic hashing as a black box ("hashing oracle")
// rather than a component to design around, so this package exposes
// only the narrow surface the manifest and ARP-correlation code need —
// hashing a buffer or file and comparing hex digests.
//
// Grounded on the teacher's pkg/utils/hash.go, trimmed to SHA-256 only
// since MD5 has no caller anywhere in the core.
package winhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Size is the length in bytes of a SHA-256 digest.
const Size = sha256.Size

// Buffer is a 32-byte SHA-256 digest, matching §4.5's HashBuffer.
type Buffer [Size]byte

// Hex renders the digest as lowercase hex, the wire encoding used for
// InstallerSha256, ManifestSHA256Hash, and installed-file hashes (§6).
func (b Buffer) Hex() string {
	return hex.EncodeToString(b[:])
}

// Equal performs a case-insensitive comparison against a hex digest.
func (b Buffer) Equal(hexDigest string) bool {
	return strings.EqualFold(b.Hex(), hexDigest)
}

// Sum hashes an in-memory buffer.
func Sum(data []byte) Buffer {
	return sha256.Sum256(data)
}

// SumReader hashes the entirety of r.
func SumReader(r io.Reader) (Buffer, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Buffer{}, fmt.Errorf("winhash: reading stream: %w", err)
	}
	var buf Buffer
	copy(buf[:], h.Sum(nil))
	return buf, nil
}

// SumFile hashes the file at path.
func SumFile(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("winhash: opening %s: %w", path, err)
	}
	defer f.Close()
	return SumReader(f)
}

// ParseHex parses a 64-character hex digest into a Buffer, matching the
// SHA-256 pattern `^[A-Fa-f0-9]{64}$` from §4.1's schema validation.
func ParseHex(hexDigest string) (Buffer, error) {
	decoded, err := hex.DecodeString(hexDigest)
	if err != nil {
		return Buffer{}, fmt.Errorf("winhash: invalid hex digest: %w", err)
	}
	if len(decoded) != Size {
		return Buffer{}, fmt.Errorf("winhash: digest has %d bytes, want %d", len(decoded), Size)
	}
	var buf Buffer
	copy(buf[:], decoded)
	return buf, nil
}

// VerifyFile reports whether the file at path hashes to expectedHex.
func VerifyFile(path, expectedHex string) bool {
	sum, err := SumFile(path)
	if err != nil {
		return false
	}
	return sum.Equal(expectedHex)
}

// Hasher streams writes through SHA-256, for callers that need the
// digest of data as it is copied elsewhere (filecache's store-and-hash
// path) rather than hashing a buffer or file after the fact.
type Hasher struct {
	h interface {
		io.Writer
		Sum([]byte) []byte
	}
}

// NewHasher returns a ready-to-write Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write implements io.Writer.
func (w *Hasher) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum returns the digest of everything written so far.
func (w *Hasher) Sum() Buffer {
	var buf Buffer
	copy(buf[:], w.h.Sum(nil))
	return buf
}
