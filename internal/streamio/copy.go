// Package streamio holds the chunked-copy, size-capped, and peeking
// primitives the loose and pack paths build their streaming inserts on.
// All primitives are O(chunk size) in memory, independent of stream length.
package streamio

import "io"

// ChunkSize is the recommended buffer size for CopyByChunks, matching
// spec.md §4.2's "recommended 64 KiB".
const ChunkSize = 64 * 1024

// CopyByChunks copies from r to w using a fixed-size buffer, returning the
// number of bytes transferred. It differs from io.Copy only in pinning the
// buffer size so callers get a predictable memory ceiling regardless of
// src/dst's own buffering behavior.
func CopyByChunks(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	return io.CopyBuffer(w, r, buf)
}
