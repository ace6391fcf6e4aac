package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdWriteCloser adapts *zstd.Encoder (bound to a particular underlying
// writer) to the WriteCloser contract: Close flushes the frame but the
// encoder itself, and the underlying writer, are not reused across calls.
type zstdWriteCloser struct {
	enc *zstd.Encoder
}

func (z zstdWriteCloser) Write(p []byte) (int, error) { return z.enc.Write(p) }
func (z zstdWriteCloser) Close() error                { return z.enc.Close() }

// speedTier maps a legacy zstd numeric level (1-22, default 3) onto the
// klauspost encoder's coarser speed/ratio tiers.
func speedTier(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func newZstdWriter(w io.Writer, level int) (WriteCloser, error) {
	if level == 0 {
		level = DefaultLevel(Zstd)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(speedTier(level)))
	if err != nil {
		return nil, err
	}
	return zstdWriteCloser{enc: enc}, nil
}

// zstdReadCloser adapts *zstd.Decoder to io.ReadCloser. Close releases the
// decoder's goroutines/buffers; it does not close the underlying reader.
type zstdReadCloser struct {
	dec *zstd.Decoder
}

func (z zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }
func (z zstdReadCloser) Close() error {
	z.dec.Close()
	return nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zstdReadCloser{dec: dec}, nil
}
