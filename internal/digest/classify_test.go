package digest

import "testing"

func TestClassifySmallContent(t *testing.T) {
	if got := Classify([]byte("abc"), 10, false); got != SmallContent {
		t.Errorf("Classify = %v, want SmallContent", got)
	}
}

func TestClassifyZFile(t *testing.T) {
	zlibPeek := []byte{0x78, 0x9C, 0x01, 0x02}
	if got := Classify(zlibPeek, 10000, false); got != ZFile {
		t.Errorf("Classify(zlib) = %v, want ZFile", got)
	}
	zstdPeek := []byte{0x28, 0xB5, 0x2F, 0xFD, 0x01}
	if got := Classify(zstdPeek, 10000, false); got != ZFile {
		t.Errorf("Classify(zstd) = %v, want ZFile", got)
	}
	// recompress flag overrides the ZFile short-circuit
	if got := Classify(zlibPeek, 10000, true); got == ZFile {
		t.Errorf("Classify(zlib, recompress=true) = %v, want not ZFile", got)
	}
}

func TestClassifyMaybeBinary(t *testing.T) {
	peek := append([]byte("some text"), 0x00, 'x')
	if got := Classify(peek, 10000, false); got != MaybeBinary {
		t.Errorf("Classify = %v, want MaybeBinary", got)
	}
}

func TestClassifyMaybeLargeText(t *testing.T) {
	peek := []byte("plain ascii text with no nulls or magic bytes")
	if got := Classify(peek, 10000, false); got != MaybeLargeText {
		t.Errorf("Classify = %v, want MaybeLargeText", got)
	}
}

func TestClassifyDoesNotConsume(t *testing.T) {
	// Property 7 from spec.md §8: the classifier must not consume bytes.
	// Here that means repeated calls against the same slice are stable.
	peek := []byte("hello world, this is a peek buffer")
	before := append([]byte{}, peek...)
	_ = Classify(peek, -1, false)
	_ = Classify(peek, -1, false)
	if string(peek) != string(before) {
		t.Errorf("Classify mutated peek buffer")
	}
}

func TestShouldCompress(t *testing.T) {
	text := []byte("plain ascii text with no nulls or magic bytes")
	if ShouldCompress(text, 10000, false, false) {
		t.Error("ShouldCompress with compression disabled should be false")
	}
	if !ShouldCompress(text, 10000, false, true) {
		t.Error("ShouldCompress(text, compression enabled) should be true")
	}
	zlibPeek := []byte{0x78, 0x9C, 0x01, 0x02}
	if ShouldCompress(zlibPeek, 10000, false, true) {
		t.Error("ShouldCompress(already-zlib) should be false")
	}
}
