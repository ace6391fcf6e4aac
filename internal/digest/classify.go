package digest

// Tag names the worth-compressing verdict the classifier reaches for a
// payload, per the detection rules evaluated in order below.
type Tag int

const (
	// MaybeLargeText means none of the other rules fired: compress if
	// compression is enabled.
	MaybeLargeText Tag = iota
	// SmallContent means the total size is known and below the small-object
	// threshold: never worth the framing/codec overhead.
	SmallContent
	// ZFile means the payload already looks zlib- or zstd-compressed.
	ZFile
	// MaybeBinary means the peek window contains a NUL byte.
	MaybeBinary
)

// String names a Tag for logs and diagnostics.
func (t Tag) String() string {
	switch t {
	case SmallContent:
		return "SmallContent"
	case ZFile:
		return "ZFile"
	case MaybeBinary:
		return "MaybeBinary"
	default:
		return "MaybeLargeText"
	}
}

// SmallContentThreshold is the byte size below which compression is never
// attempted, regardless of content.
const SmallContentThreshold = 850

// PeekWindow is the number of leading bytes the classifier inspects.
const PeekWindow = 512

var zstdMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}

// zlibMagics are the second-byte values zlib uses for its four standard
// compression-level/window combinations, always preceded by 0x78.
var zlibMagics = [...]byte{0x01, 0x5E, 0x9C, 0xDA}

// LooksCompressed reports whether peek's leading bytes match a known zlib
// or zstd stream header.
func LooksCompressed(peek []byte) bool {
	if len(peek) >= 2 && peek[0] == 0x78 {
		for _, m := range zlibMagics {
			if peek[1] == m {
				return true
			}
		}
	}
	if len(peek) >= 4 && peek[0] == zstdMagic[0] && peek[1] == zstdMagic[1] &&
		peek[2] == zstdMagic[2] && peek[3] == zstdMagic[3] {
		return true
	}
	return false
}

// Classify applies the worth-compressing heuristic from a peek buffer of up
// to PeekWindow leading bytes and the total size, if known (knownSize < 0
// means unknown). Classify never consumes peek; callers must still feed the
// full, unconsumed stream to the next stage.
func Classify(peek []byte, knownSize int64, recompress bool) Tag {
	if knownSize >= 0 && knownSize < SmallContentThreshold {
		return SmallContent
	}
	if len(peek) > PeekWindow {
		peek = peek[:PeekWindow]
	}
	if !recompress && LooksCompressed(peek) {
		return ZFile
	}
	for _, b := range peek {
		if b == 0 {
			return MaybeBinary
		}
	}
	return MaybeLargeText
}

// ShouldCompress applies compressionEnabled on top of Classify's verdict:
// only MaybeLargeText payloads are compressed, and only if compression is
// enabled at all.
func ShouldCompress(peek []byte, knownSize int64, recompress, compressionEnabled bool) bool {
	if !compressionEnabled {
		return false
	}
	return Classify(peek, knownSize, recompress) == MaybeLargeText
}
