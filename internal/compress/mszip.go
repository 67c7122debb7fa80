// Package compress implements the MSZIP-compatible compressor/decompressor
// used to pack the PackageVersionData index manifest ("mszyml", §6). MSZIP
// is DEFLATE framed per-block with the "CK" signature prefix; here the
// payload is treated as a single DEFLATE stream, which is sufficient for
// the index manifest's single-blob framing and lets the core reuse
// klauspost/compress's flate implementation instead of hand-rolling one,
// the way the example pack's OCI tooling reuses compress/flate-family
// packages rather than writing codecs from scratch.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// mszipSignature is MSZIP's two-byte block marker ('C', 'K').
var mszipSignature = [2]byte{'C', 'K'}

// Compress returns the MSZIP-framed encoding of data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(mszipSignature[:])

	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("compress: creating deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: writing payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: closing deflate stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress, validating the MSZIP signature first.
func Decompress(blob []byte) ([]byte, error) {
	if len(blob) < 2 || blob[0] != mszipSignature[0] || blob[1] != mszipSignature[1] {
		return nil, fmt.Errorf("compress: missing MSZIP signature")
	}

	r := flate.NewReader(bytes.NewReader(blob[2:]))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compress: reading deflate stream: %w", err)
	}
	return out, nil
}
