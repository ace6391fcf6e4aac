package loose

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contentstore/cas/internal/digest"
)

func TestInsertStreamAndOpen(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2)

	content := []byte("hello world")
	dig, size, err := s.InsertStream(strings.NewReader(string(content)))
	if err != nil {
		t.Fatalf("InsertStream: %v", err)
	}
	want := digest.Hex(content)
	if dig != want {
		t.Errorf("digest = %q, want %q", dig, want)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}

	wantPath := filepath.Join(dir, "loose", dig[:2], dig[2:])
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("expected file at %s: %v", wantPath, err)
	}

	rc, err := s.Open(dig)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got := make([]byte, len(content))
	if _, err := io.ReadFull(rc, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestInsertStreamDuplicate(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2)
	content := "duplicate me"

	dig1, _, err := s.InsertStream(strings.NewReader(content))
	if err != nil {
		t.Fatalf("first InsertStream: %v", err)
	}
	dig2, _, err := s.InsertStream(strings.NewReader(content))
	if err != nil {
		t.Fatalf("second InsertStream: %v", err)
	}
	if dig1 != dig2 {
		t.Fatalf("digests differ: %q vs %q", dig1, dig2)
	}

	entries, err := s.IterDigests()
	if err != nil {
		t.Fatalf("IterDigests: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("loose file count = %d, want 1", len(entries))
	}

	// sandbox should have no leftover temp files
	sbEntries, _ := os.ReadDir(filepath.Join(dir, "sandbox"))
	if len(sbEntries) != 0 {
		t.Errorf("sandbox not cleaned up: %v", sbEntries)
	}
}

func TestContainsAndNotFound(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2)
	dig, _, err := s.InsertStream(strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Contains(dig) {
		t.Error("Contains should be true")
	}
	missing := digest.Hex([]byte("not inserted"))
	if s.Contains(missing) {
		t.Error("Contains should be false for missing digest")
	}
	if _, err := s.Open(missing); err == nil {
		t.Error("Open(missing) should error")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2)
	dig, _, err := s.InsertStream(strings.NewReader("removable"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(dig); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Contains(dig) {
		t.Error("Contains should be false after Remove")
	}
	// removing again must not error (idempotent)
	if err := s.Remove(dig); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestIterDigestsSortedAndAcrossShards(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2)
	payloads := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	var want []string
	for _, p := range payloads {
		dig, _, err := s.InsertStream(strings.NewReader(p))
		if err != nil {
			t.Fatal(err)
		}
		want = append(want, dig)
	}

	entries, err := s.IterDigests()
	if err != nil {
		t.Fatalf("IterDigests: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Digest >= entries[i].Digest {
			t.Errorf("entries not sorted: %q >= %q", entries[i-1].Digest, entries[i].Digest)
		}
	}
}

func TestPrefixLenZero(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 0)
	dig, _, err := s.InsertStream(strings.NewReader("flat"))
	if err != nil {
		t.Fatal(err)
	}
	wantPath := filepath.Join(dir, "loose", dig)
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("expected flat file at %s: %v", wantPath, err)
	}
}
