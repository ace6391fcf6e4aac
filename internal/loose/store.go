// Package loose implements the sharded, one-file-per-object storage class
// (spec.md §4.2): each object is a standalone file named by the hex digest
// of its own contents, sharded into subdirectories by a configurable
// prefix length.
package loose

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/contentstore/cas/internal/casfs"
	"github.com/contentstore/cas/internal/digest"
	"github.com/contentstore/cas/internal/streamio"
)

// Store is a loose object store rooted at a container's <root>/loose and
// <root>/sandbox directories.
type Store struct {
	looseDir   string
	sandboxDir string
	prefixLen  int
}

// New returns a Store. root is the container root directory; prefixLen is
// Config.LoosePrefixLen (spec.md §3.1, must be in [0,63]).
func New(root string, prefixLen int) *Store {
	return &Store{
		looseDir:   filepath.Join(root, casfs.DirLoose),
		sandboxDir: filepath.Join(root, casfs.DirSandbox),
		prefixLen:  prefixLen,
	}
}

// Path returns the on-disk path a digest would live at, whether or not the
// file currently exists.
func (s *Store) Path(dig string) string {
	if s.prefixLen <= 0 {
		return filepath.Join(s.looseDir, dig)
	}
	return filepath.Join(s.looseDir, dig[:s.prefixLen], dig[s.prefixLen:])
}

// InsertStream copies r into a sandbox temp file while hashing it, then
// atomically renames it into its shard path. Returns the digest and size.
// A duplicate (destination already exists) is not an error: the temp file
// is discarded and the existing digest is returned, per spec.md §4.2/§7.
func (s *Store) InsertStream(r io.Reader) (dig string, size int64, err error) {
	if err := os.MkdirAll(s.sandboxDir, 0755); err != nil {
		return "", 0, fmt.Errorf("loose: mkdir sandbox: %w", err)
	}
	tmpPath := filepath.Join(s.sandboxDir, tmpName())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("loose: create sandbox file: %w", err)
	}

	hw := digest.NewHashingWriter(f)
	_, copyErr := streamio.CopyByChunks(hw, r)
	if copyErr != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("loose: copy to sandbox: %w", copyErr)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("loose: fsync sandbox file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("loose: close sandbox file: %w", err)
	}

	dig = hw.Sum()
	size = hw.Size()
	dest := s.Path(dig)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("loose: mkdir shard: %w", err)
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		// Duplicate: discard the temp file, report success with the
		// existing digest.
		os.Remove(tmpPath)
		return dig, size, nil
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("loose: rename into shard: %w", err)
	}
	return dig, size, nil
}

func tmpName() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b) + ".tmp"
}

// Contains reports whether dig has a loose file.
func (s *Store) Contains(dig string) bool {
	_, err := os.Stat(s.Path(dig))
	return err == nil
}

// Open returns a reader over the loose file for dig. It fails with
// casfs.ErrNotFound if absent.
func (s *Store) Open(dig string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(dig))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, casfs.ErrNotFound
		}
		return nil, fmt.Errorf("loose: open %s: %w", dig, err)
	}
	return f, nil
}

// Size returns the size, in bytes, of the loose file for dig.
func (s *Store) Size(dig string) (int64, error) {
	info, err := os.Stat(s.Path(dig))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, casfs.ErrNotFound
		}
		return 0, fmt.Errorf("loose: stat %s: %w", dig, err)
	}
	return info.Size(), nil
}

// Remove deletes the loose file for dig, and its shard directory once that
// directory is empty. Used only by pack-all-loose after a successful copy
// into a pack (spec.md §4.2).
func (s *Store) Remove(dig string) error {
	p := s.Path(dig)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loose: remove %s: %w", dig, err)
	}
	if s.prefixLen > 0 {
		// Fails, and is ignored, while other objects still share the shard.
		os.Remove(filepath.Dir(p))
	}
	return nil
}

// Entry is one (digest, size) pair yielded by IterDigests.
type Entry struct {
	Digest string
	Size   int64
}

// IterDigests walks every shard directory and returns all (digest, size)
// pairs, sorted lexicographically by digest for deterministic iteration
// (spec.md §4.5 requires this ordering for pack-all-loose).
func (s *Store) IterDigests() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.looseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		dig := s.digestFromPath(path)
		if dig == "" {
			return nil // defensive: ignore stray non-shard files
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Digest: dig, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loose: walk: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Digest < entries[j].Digest })
	return entries, nil
}

// digestFromPath reconstructs the digest a shard path encodes, or "" if the
// path doesn't look like a digest shard/leaf.
func (s *Store) digestFromPath(path string) string {
	rel, err := filepath.Rel(s.looseDir, path)
	if err != nil {
		return ""
	}
	joined := ""
	for _, r := range filepath.ToSlash(rel) {
		if r != '/' {
			joined += string(r)
		}
	}
	if !isHex(joined) || len(joined) != digest.HexLen {
		return ""
	}
	return joined
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
