package streamio

import "io"

// BoundedReader limits reads to at most N remaining bytes and yields io.EOF
// exactly at that boundary, even if the underlying reader has more to give.
// Used to slice a single entry's bytes out of a pack file, at the offset
// and length known from the index.
type BoundedReader struct {
	r io.LimitedReader
}

// NewBoundedReader returns a reader over r limited to n bytes.
func NewBoundedReader(r io.Reader, n int64) *BoundedReader {
	return &BoundedReader{r: io.LimitedReader{R: r, N: n}}
}

// Read implements io.Reader.
func (b *BoundedReader) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// Remaining reports how many bytes may still be read before EOF.
func (b *BoundedReader) Remaining() int64 {
	return b.r.N
}
