package container

import (
	"bufio"
	"fmt"

	"github.com/contentstore/cas/internal/codec"
	"github.com/contentstore/cas/internal/digest"
	"github.com/contentstore/cas/internal/streamio"
)

// CompressMode controls how pack-all-loose decides whether to compress
// each object, per spec.md §4.5.
type CompressMode int

const (
	// Auto consults the §4.1 classifier per object.
	Auto CompressMode = iota
	// Never forces compressed=false regardless of the heuristic.
	Never
	// Always forces compression regardless of the heuristic.
	Always
)

// PackAllLooseStats summarizes one pack-all-loose run.
type PackAllLooseStats struct {
	ObjectsPacked   int
	BytesPacked     int64 // Σ raw_size across packed objects
	BytesCompressed int64 // Σ size across compressed objects only
}

// PackAllLoose migrates every loose object into packs, per spec.md §4.5:
//  1. enumerate loose digests, sorted (loose.IterDigests already sorts),
//  2. open one write transaction against the index,
//  3. append each object to the pack store, honoring compressMode,
//  4. commit once all objects succeeded, then delete the loose files.
//
// On any failure the transaction rolls back and loose files are left
// intact; the pack file may contain orphan tail bytes from the failed
// object's partial append, which is accepted per spec.md §4.3/§7.
func (c *Container) PackAllLoose(compressMode CompressMode) (PackAllLooseStats, error) {
	lock := c.lockForPacking()
	if err := lock.Acquire(); err != nil {
		return PackAllLooseStats{}, err
	}
	defer lock.Release()

	entries, err := c.loose.IterDigests()
	if err != nil {
		return PackAllLooseStats{}, err
	}
	if len(entries) == 0 {
		return PackAllLooseStats{}, nil
	}

	algoName, level, err := codec.ParseID(c.config.CompressionAlgorithm)
	if err != nil {
		return PackAllLooseStats{}, err
	}

	tx, err := c.index.DB().Begin()
	if err != nil {
		return PackAllLooseStats{}, fmt.Errorf("container: begin pack transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var stats PackAllLooseStats
	var packed []string

	for _, e := range entries {
		rc, err := c.loose.Open(e.Digest)
		if err != nil {
			return stats, err
		}

		pr := streamio.NewPeekReader(bufio.NewReaderSize(rc, digest.PeekWindow), digest.PeekWindow)
		peek := pr.Peek(digest.PeekWindow)
		compress, name, lvl := decideCompression(compressMode, peek, e.Size, algoName, level)

		res, err := c.pack.InsertToPack(tx, pr, e.Size, compress, lvl, name)
		closeErr := rc.Close()
		if err != nil {
			return stats, err
		}
		if closeErr != nil {
			return stats, closeErr
		}

		stats.ObjectsPacked++
		stats.BytesPacked += res.RawSize
		if res.Compressed {
			stats.BytesCompressed += res.Size
		}
		packed = append(packed, e.Digest)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("container: commit pack transaction: %w", err)
	}
	committed = true

	var removeErr error
	for _, dig := range packed {
		if err := c.loose.Remove(dig); err != nil && removeErr == nil {
			// The index transaction already committed; a loose file that
			// fails to delete is not a correctness problem (the object
			// now also lives in a pack), so this is reported but not
			// fatal to the overall run.
			removeErr = err
		}
	}
	return stats, removeErr
}

// decideCompression applies compressMode on top of the §4.1 classifier and
// returns whether to compress plus which codec/level to use.
func decideCompression(mode CompressMode, peek []byte, size int64, name codec.Name, level int) (compress bool, outName codec.Name, outLevel int) {
	switch mode {
	case Never:
		return false, codec.None, 0
	case Always:
		return true, name, level
	default: // Auto
		if digest.ShouldCompress(peek, size, false, true) {
			return true, name, level
		}
		return false, codec.None, 0
	}
}
