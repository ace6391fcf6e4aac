// Package container orchestrates the loose store, pack store, index, and
// config into the public operations spec.md §4.5 names: init, insert,
// extract, pack-all-loose, status, and the other Container-level APIs.
package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/contentstore/cas/internal/casfs"
	"github.com/contentstore/cas/internal/codec"
	"github.com/contentstore/cas/internal/config"
	"github.com/contentstore/cas/internal/digest"
	"github.com/contentstore/cas/internal/index"
	"github.com/contentstore/cas/internal/loose"
	"github.com/contentstore/cas/internal/pack"
)

// Container is the single owner of a root directory tree and the index DB
// handle (spec.md §3.3). The zero value is not usable; construct one with
// Init or Open.
type Container struct {
	root   string
	config config.Config

	loose *loose.Store
	index *index.Index
	pack  *pack.Store
}

// Init creates <root>/{loose,packs,sandbox} and <root>/config.json. It
// fails with casfs.ErrAlreadyInitialized if config.json already exists,
// unless clear is true, in which case the directory is purged first
// (spec.md §4.5).
func Init(root string, cfg config.Config, clear bool) (*Container, error) {
	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		if !clear {
			return nil, casfs.ErrAlreadyInitialized
		}
		if err := os.RemoveAll(root); err != nil {
			return nil, fmt.Errorf("container: clear root: %w", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	for _, d := range []string{casfs.DirLoose, casfs.DirPacks, casfs.DirSandbox} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			return nil, fmt.Errorf("container: mkdir %s: %w", d, err)
		}
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return nil, err
	}
	c, err := Open(root)
	if err != nil {
		return nil, err
	}
	if err := c.index.SetSetting("container_id", cfg.ContainerID); err != nil {
		c.Close()
		return nil, fmt.Errorf("container: record container_id setting: %w", err)
	}
	if err := c.index.SetSetting("compression", cfg.CompressionAlgorithm); err != nil {
		c.Close()
		return nil, fmt.Errorf("container: record compression setting: %w", err)
	}
	return c, nil
}

// Open opens an already-initialized container at root, failing with
// casfs.ErrNotInitialized if config.json is absent.
func Open(root string) (*Container, error) {
	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err != nil {
		if os.IsNotExist(err) {
			return nil, casfs.ErrNotInitialized
		}
		return nil, fmt.Errorf("container: stat config: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	ix, err := index.Open(filepath.Join(root, casfs.IndexFile))
	if err != nil {
		return nil, err
	}
	c := &Container{
		root:   root,
		config: cfg,
		loose:  loose.New(root, cfg.LoosePrefixLen),
		index:  ix,
		pack:   pack.New(root, cfg.PackSizeTarget, ix),
	}
	return c, nil
}

// Close releases the index DB handle.
func (c *Container) Close() error {
	return c.index.Close()
}

// Config returns the container's (read-only) configuration.
func (c *Container) Config() config.Config {
	return c.config
}

// Insert delegates to the loose store (direct user inserts always go to
// loose per spec.md §4.3) and returns the digest.
func (c *Container) Insert(r io.Reader) (string, error) {
	dig, _, err := c.loose.InsertStream(r)
	return dig, err
}

// InsertMany inserts each reader in order, stopping at the first error.
func (c *Container) InsertMany(readers []io.Reader) ([]string, error) {
	digs := make([]string, 0, len(readers))
	for _, r := range readers {
		dig, err := c.Insert(r)
		if err != nil {
			return digs, err
		}
		digs = append(digs, dig)
	}
	return digs, nil
}

// Has reports whether dig is present as loose or packed.
func (c *Container) Has(dig string) (bool, error) {
	if c.loose.Contains(dig) {
		return true, nil
	}
	return c.index.Contains(dig)
}

// Extract resolves dig against loose first, then the index, per spec.md
// §4.5. The returned reader must be closed by the caller.
func (c *Container) Extract(dig string) (io.ReadCloser, error) {
	if _, err := digest.Parse(dig); err != nil {
		return nil, casfs.ErrInvalidDigest
	}
	if c.loose.Contains(dig) {
		return c.loose.Open(dig)
	}
	e, err := c.index.Lookup(dig)
	if err != nil {
		return nil, casfs.ErrNotFound
	}
	name, _, perr := codec.ParseID(c.config.CompressionAlgorithm)
	if perr != nil {
		return nil, perr
	}
	return c.pack.Extract(e, name)
}

// ListAll returns every digest known to the container, from loose and the
// index, yielded once even if (transiently) present in both.
func (c *Container) ListAll() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	looseEntries, err := c.loose.IterDigests()
	if err != nil {
		return nil, err
	}
	for _, e := range looseEntries {
		if _, ok := seen[e.Digest]; !ok {
			seen[e.Digest] = struct{}{}
			out = append(out, e.Digest)
		}
	}

	packed, err := c.index.Digests()
	if err != nil {
		return nil, err
	}
	for _, d := range packed {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}

// Status reports object counts and byte sums by storage class.
type Status struct {
	LooseCount   int64
	LooseBytes   int64
	PackedCount  int64
	PackedBytes  int64 // Σ size over db_object (pack-file bytes, compressed if applicable)
	PackFiles    int
	PackFileBytes int64 // Σ length over packs/* (includes any orphan tail bytes)
}

// Status computes the current byte/object accounting across storage
// classes.
func (c *Container) Status() (Status, error) {
	var st Status

	looseEntries, err := c.loose.IterDigests()
	if err != nil {
		return Status{}, err
	}
	st.LooseCount = int64(len(looseEntries))
	for _, e := range looseEntries {
		st.LooseBytes += e.Size
	}

	st.PackedCount, err = c.index.Count()
	if err != nil {
		return Status{}, err
	}
	st.PackedBytes, err = c.index.SumSize()
	if err != nil {
		return Status{}, err
	}
	st.PackFiles, st.PackFileBytes, err = c.pack.Stat()
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

func (c *Container) lockForPacking() *pack.Lock {
	return pack.NewLock(c.root)
}
