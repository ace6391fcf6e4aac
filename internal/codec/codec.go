// Package codec provides streaming compressor/decompressor wrappers for the
// algorithms a pack entry may be stored under: none, zlib, and zstd. Each
// wrapper is a plain byte stream with no per-object framing; decompression
// tolerates streams that end exactly at the logical end of the payload.
package codec

import (
	"errors"
	"io"
)

// ErrUnsupportedAlgorithm is returned for any name other than "none",
// "zlib", or "zstd".
var ErrUnsupportedAlgorithm = errors.New("codec: unsupported compression algorithm")

// Name identifies a supported compression algorithm.
type Name string

const (
	None Name = "none"
	Zlib Name = "zlib"
	Zstd Name = "zstd"
)

// DefaultLevel returns the default compression level for name, per
// spec.md §4.4 (zlib defaults to 1, zstd to 3; none ignores level).
func DefaultLevel(name Name) int {
	switch name {
	case Zlib:
		return 1
	case Zstd:
		return 3
	default:
		return 0
	}
}

// WriteCloser is the capability a streaming compressor exposes: writes
// compress into the wrapped writer, and Close flushes and finalizes the
// compressed stream (it does not close the underlying writer).
type WriteCloser interface {
	io.Writer
	io.Closer
}

// WrapWriter returns a streaming compressor for name/level writing into w.
// name "none" (or "") returns w behind a no-op Close (no framing).
func WrapWriter(name Name, level int, w io.Writer) (WriteCloser, error) {
	switch name {
	case None, "":
		return nopWriteCloser{w}, nil
	case Zlib:
		return newZlibWriter(w, level)
	case Zstd:
		return newZstdWriter(w, level)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// WrapReader returns a streaming decompressor for name reading from r.
// name "none" (or "") returns r behind a no-op Close.
func WrapReader(name Name, r io.Reader) (io.ReadCloser, error) {
	switch name {
	case None, "":
		return nopReadCloser{r}, nil
	case Zlib:
		return newZlibReader(r)
	case Zstd:
		return newZstdReader(r)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type nopReadCloser struct{ io.Reader }

func (nopReadCloser) Close() error { return nil }
