package pack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contentstore/cas/internal/codec"
	"github.com/contentstore/cas/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, sizeTarget int64) (*Store, *index.Index, string) {
	t.Helper()
	root := t.TempDir()
	ix, err := index.Open(filepath.Join(root, "packs.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return New(root, sizeTarget, ix), ix, root
}

func TestInsertToPackUncompressed(t *testing.T) {
	s, ix, root := newTestStore(t, 1024*1024)

	tx, err := ix.DB().Begin()
	require.NoError(t, err)
	res1, err := s.InsertToPack(tx, strings.NewReader("aaa"), 3, false, 0, codec.None)
	require.NoError(t, err)
	res2, err := s.InsertToPack(tx, strings.NewReader("bbbb"), 4, false, 0, codec.None)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(0), res1.PackID)
	assert.Equal(t, int64(0), res1.Offset)
	assert.Equal(t, int64(3), res1.Size)
	assert.False(t, res1.Compressed)

	assert.Equal(t, int64(0), res2.PackID)
	assert.Equal(t, int64(3), res2.Offset)
	assert.Equal(t, int64(4), res2.Size)

	// spec.md S3: packs/0 has length 7
	info, err := os.Stat(filepath.Join(root, "packs", "0"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size())

	total, err := ix.SumSize()
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}

func TestInsertToPackCompressedRoundTrip(t *testing.T) {
	s, ix, _ := newTestStore(t, 1024*1024)
	payload := strings.Repeat("repeat this text many times for a good compression ratio. ", 500)

	tx, err := ix.DB().Begin()
	require.NoError(t, err)
	res, err := s.InsertToPack(tx, strings.NewReader(payload), int64(len(payload)), true, 1, codec.Zlib)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.True(t, res.Compressed)
	assert.Less(t, res.Size, res.RawSize)
	assert.Equal(t, int64(len(payload)), res.RawSize)

	e, err := ix.Lookup(res.Digest)
	require.NoError(t, err)
	rc, err := s.Extract(e, codec.Zlib)
	require.NoError(t, err)
	defer rc.Close()

	got := make([]byte, len(payload))
	n := 0
	for n < len(got) {
		m, err := rc.Read(got[n:])
		n += m
		if err != nil {
			break
		}
	}
	assert.Equal(t, payload, string(got))
}

func TestPackRollover(t *testing.T) {
	// spec.md S6: pack_size_target=1024, ten 301-byte payloads.
	s, ix, root := newTestStore(t, 1024)
	payload := strings.Repeat("x", 300)

	var packIDs []int64
	var inserted []string
	for i := 0; i < 10; i++ {
		tx, err := ix.DB().Begin()
		require.NoError(t, err)
		res, err := s.InsertToPack(tx, strings.NewReader(payload+string(rune('a'+i))), 301, false, 0, codec.None)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		packIDs = append(packIDs, res.PackID)
		inserted = append(inserted, res.Digest)
	}

	maxID := packIDs[len(packIDs)-1]
	assert.GreaterOrEqual(t, maxID, int64(3))

	// offsets strictly monotonic within each pack, in insertion order
	seen := map[int64][]int64{}
	rows, err := ix.Digests()
	require.NoError(t, err)
	require.Len(t, rows, len(inserted))
	for _, d := range inserted {
		e, err := ix.Lookup(d)
		require.NoError(t, err)
		seen[e.PackID] = append(seen[e.PackID], e.Offset)
	}
	for pid, offsets := range seen {
		for i := 1; i < len(offsets); i++ {
			assert.Less(t, offsets[i-1], offsets[i], "pack %d offsets not monotonic", pid)
		}
	}
	_ = root
}
