package streamio

import "bufio"

// PeekReader buffers up to K leading bytes for inspection without removing
// them from the stream later readers will consume. It is the plumbing
// behind the worth-compressing classifier's "peek is returned to the front
// of the stream" requirement (spec.md §4.1).
type PeekReader struct {
	*bufio.Reader
}

// NewPeekReader wraps r with a peek window of at least k bytes.
func NewPeekReader(r *bufio.Reader, k int) *PeekReader {
	if r.Size() < k {
		r = bufio.NewReaderSize(r, k)
	}
	return &PeekReader{Reader: r}
}

// Peek returns up to k leading bytes without consuming them. The returned
// slice may be shorter than k if the stream is shorter, or empty at EOF.
// It aliases the reader's internal buffer; callers must not mutate it and
// must use it before further Reads from the same PeekReader invalidate it.
func (p *PeekReader) Peek(k int) []byte {
	b, _ := p.Reader.Peek(k)
	return b
}
