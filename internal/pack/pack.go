// Package pack implements the append-only pack storage class (spec.md
// §4.3): objects are written as raw concatenated (optionally compressed)
// bodies into packs/<id>, located purely through the index — pack files
// carry no in-band framing.
package pack

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/contentstore/cas/internal/casfs"
	"github.com/contentstore/cas/internal/codec"
	"github.com/contentstore/cas/internal/digest"
	"github.com/contentstore/cas/internal/index"
	"github.com/contentstore/cas/internal/streamio"
)

// Store drives the pack selection, append, and seal algorithm described in
// spec.md §4.3.
type Store struct {
	packsDir  string
	sizeTarget int64
	ix        *index.Index
}

// New returns a Store rooted at <root>/packs, writing entries into ix and
// sealing a pack once it reaches sizeTarget bytes.
func New(root string, sizeTarget int64, ix *index.Index) *Store {
	return &Store{packsDir: filepath.Join(root, casfs.DirPacks), sizeTarget: sizeTarget, ix: ix}
}

func (s *Store) packPath(id int64) string {
	return filepath.Join(s.packsDir, fmt.Sprintf("%d", id))
}

// CurrentPackID returns the id of the highest-numbered existing pack, or 0
// if none exists yet (pack ids start at 0, per spec.md §3.1).
func (s *Store) CurrentPackID() (int64, error) {
	entries, err := os.ReadDir(s.packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("pack: readdir: %w", err)
	}
	var maxID int64
	for _, e := range entries {
		id, perr := strconv.ParseInt(e.Name(), 10, 64)
		if e.IsDir() || perr != nil || id < 0 {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

// currentPackLength stats the current pack file; a missing file (brand new
// container) is treated as length 0.
func (s *Store) currentPackLength(id int64) (int64, error) {
	info, err := os.Stat(s.packPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// selectPack picks the pack id and its current length an append of
// sizeHint bytes should land in, per spec.md §4.3's selection rule.
func (s *Store) selectPack(sizeHint int64) (id int64, length int64, err error) {
	id, err = s.CurrentPackID()
	if err != nil {
		return 0, 0, err
	}
	length, err = s.currentPackLength(id)
	if err != nil {
		return 0, 0, fmt.Errorf("pack: stat current pack: %w", err)
	}
	if length == 0 || length+sizeHint <= s.sizeTarget {
		return id, length, nil
	}
	return id + 1, 0, nil
}

// Stat returns the number of pack files and the sum of their on-disk
// lengths, for the container's status() report.
func (s *Store) Stat() (count int, totalBytes int64, err error) {
	entries, err := os.ReadDir(s.packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("pack: readdir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, 0, err
		}
		count++
		totalBytes += info.Size()
	}
	return count, totalBytes, nil
}

// InsertResult reports what InsertToPack wrote.
type InsertResult struct {
	Digest     string
	PackID     int64
	Offset     int64
	Size       int64 // bytes written to the pack (compressed length, if compressed)
	RawSize    int64 // uncompressed length
	Compressed bool
}

// InsertToPack appends r's bytes (optionally compressed) to the selected
// pack and records the corresponding db_object row inside tx. It does not
// commit tx; the caller controls transaction boundaries across multiple
// inserts (spec.md §4.5's pack-all-loose commits once for the whole run).
//
// sizeHint, if >= 0, is the known uncompressed size (used only for pack
// selection; the entry's recorded offset is the pack file's length as
// observed at selection time, and the bytes are appended with O_APPEND).
func (s *Store) InsertToPack(tx *sql.Tx, r io.Reader, sizeHint int64, compress bool, level int, name codec.Name) (InsertResult, error) {
	if err := os.MkdirAll(s.packsDir, 0755); err != nil {
		return InsertResult{}, fmt.Errorf("pack: mkdir packs: %w", err)
	}
	if sizeHint < 0 {
		sizeHint = 0
	}
	id, offset, err := s.selectPack(sizeHint)
	if err != nil {
		return InsertResult{}, err
	}

	f, err := os.OpenFile(s.packPath(id), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return InsertResult{}, fmt.Errorf("pack: open pack %d: %w", id, err)
	}
	defer f.Close()

	hw := digest.NewHashingWriter(f)
	var dst io.Writer = hw
	var wc codec.WriteCloser
	if compress {
		wc, err = codec.WrapWriter(name, level, hw)
		if err != nil {
			return InsertResult{}, fmt.Errorf("pack: wrap writer: %w", err)
		}
		dst = wc
	}

	counter := &countingWriter{}
	raw := digest.NewHashingWriter(counter)
	tee := io.MultiWriter(dst, raw)
	if _, err := streamio.CopyByChunks(tee, r); err != nil {
		return InsertResult{}, fmt.Errorf("pack: copy into pack: %w", err)
	}
	if wc != nil {
		if err := wc.Close(); err != nil {
			return InsertResult{}, fmt.Errorf("pack: close compressor: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return InsertResult{}, fmt.Errorf("pack: fsync pack: %w", err)
	}

	res := InsertResult{
		Digest:     raw.Sum(),
		PackID:     id,
		Offset:     offset,
		Size:       hw.Size(),
		RawSize:    counter.n,
		Compressed: compress,
	}

	if err := index.Insert(tx, index.Entry{
		HashKey:    res.Digest,
		Compressed: res.Compressed,
		Size:       res.Size,
		Offset:     res.Offset,
		Length:     res.RawSize,
		PackID:     res.PackID,
	}); err != nil {
		return InsertResult{}, fmt.Errorf("pack: insert index row: %w", err)
	}
	return res, nil
}

// countingWriter counts bytes written to it without storing them; used to
// capture the uncompressed byte count even when the write path goes
// through a compressor.
type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Extract opens pack_id read-only, seeks to offset, and returns a reader
// limited to size pack-file bytes, transparently decompressing through
// algo if the entry is compressed (algo is ignored otherwise). The
// returned reader yields exactly raw_size bytes.
//
// db_object (spec.md §4.3) records only *that* an entry is compressed, not
// which algorithm — the container is the one that knows the container-wide
// compression_algorithm from config.json, so it passes algo through here.
func (s *Store) Extract(e index.Entry, algo codec.Name) (io.ReadCloser, error) {
	f, err := os.Open(s.packPath(e.PackID))
	if err != nil {
		return nil, fmt.Errorf("pack: open pack %d: %w", e.PackID, err)
	}
	if _, err := f.Seek(e.Offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("pack: seek: %w", err)
	}
	bounded := streamio.NewBoundedReader(f, e.Size)

	if !e.Compressed {
		return &fileBoundReader{BoundedReader: bounded, f: f}, nil
	}
	rc, err := codec.WrapReader(algo, bounded)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileBoundReadCloser{ReadCloser: rc, f: f}, nil
}

type fileBoundReader struct {
	*streamio.BoundedReader
	f *os.File
}

func (r *fileBoundReader) Close() error { return r.f.Close() }

type fileBoundReadCloser struct {
	io.ReadCloser
	f *os.File
}

func (r *fileBoundReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
