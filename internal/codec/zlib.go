package codec

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

func newZlibWriter(w io.Writer, level int) (WriteCloser, error) {
	if level == 0 {
		level = DefaultLevel(Zlib)
	}
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}
	return zw, nil
}

func newZlibReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}
