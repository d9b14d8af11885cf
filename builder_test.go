package sparsecache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sparsecache/metadata"
	"github.com/hupe1980/sparsecache/page"
	"github.com/hupe1980/sparsecache/shard"
)

// memDMatrix is a DMatrix over fixed batches with precomputed aggregates.
type memDMatrix struct {
	info    metadata.MetaInfo
	batches []page.RowBatch
}

func (m *memDMatrix) Info() *metadata.MetaInfo { return &m.info }
func (m *memDMatrix) Rows() RowBatchSource     { return &sliceSource{batches: m.batches} }

func TestGroupBoundaries(t *testing.T) {
	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")

	// The canonical case: group ids 1,1,2,2,2,3 yield boundaries 0,2,5
	// plus the trailing sentinel 6.
	qids := []uint64{1, 1, 2, 2, 2, 3}
	var src sliceSource
	for r, qid := range qids {
		b := rowBatch(r, 1, 4)
		b.QID = []uint64{qid}
		src.batches = append(src.batches, b)
	}
	require.NoError(t, CreateRowPages(&src, cacheInfo, WithLogger(NoopLogger())))

	ps, err := Open(cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()

	require.Equal(t, []uint32{0, 2, 5, 6}, ps.Info().GroupPtr)
	require.Equal(t, qids, ps.Info().QIDs)
}

func TestGroupBoundariesAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")

	// A group run spanning a batch boundary must not split.
	b1 := rowBatch(0, 2, 4)
	b1.QID = []uint64{7, 7}
	b2 := rowBatch(2, 2, 4)
	b2.QID = []uint64{7, 9}
	src := sliceSource{batches: []page.RowBatch{b1, b2}}
	require.NoError(t, CreateRowPages(&src, cacheInfo, WithLogger(NoopLogger())))

	ps, err := Open(cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()
	require.Equal(t, []uint32{0, 3, 4}, ps.Info().GroupPtr)
}

func TestInconsistentGroupIDs(t *testing.T) {
	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")

	b1 := rowBatch(0, 2, 4)
	b1.QID = []uint64{1, 1}
	b2 := rowBatch(2, 2, 4) // no group ids
	src := sliceSource{batches: []page.RowBatch{b1, b2}}

	err := CreateRowPages(&src, cacheInfo, WithLogger(NoopLogger()))
	require.ErrorIs(t, err, metadata.ErrInconsistentGroups)
}

func TestPageFlushThreshold(t *testing.T) {
	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")
	const threshold = 200

	// Each 3-row batch adds 48 bytes of memory cost.
	var src sliceSource
	for r := 0; r < 30; r += 3 {
		src.batches = append(src.batches, rowBatch(r, 3, 4))
	}
	require.NoError(t, CreateRowPages(&src, cacheInfo,
		WithLogger(NoopLogger()),
		WithPageSizeBytes(threshold),
	))

	ps, err := Open(cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()

	var costs []int
	for {
		ok, err := ps.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		costs = append(costs, ps.Value().MemCost())
	}
	require.NotEmpty(t, costs)
	for i, cost := range costs[:len(costs)-1] {
		// Flushed exactly when the threshold was reached: at most one
		// batch's contribution past it.
		require.GreaterOrEqual(t, cost, threshold, "page %d", i)
		require.Less(t, cost, threshold+48, "page %d", i)
	}
}

func TestCreateDMatrixRowPages(t *testing.T) {
	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")

	dm := &memDMatrix{
		info:    metadata.MetaInfo{NumRow: 6, NumCol: 4, NumNonzero: 6},
		batches: []page.RowBatch{rowBatch(0, 3, 4), rowBatch(3, 3, 4)},
	}
	require.NoError(t, CreateDMatrixPages(dm, cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger())))

	ps, err := Open(cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()

	require.Equal(t, uint64(6), ps.Info().NumRow)
	ok, err := ps.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 6, ps.Value().Size())
}

func TestCreateColumnPages(t *testing.T) {
	// Rows: r0 = {(0,1),(2,2)}, r1 = {(2,3)}, r2 = {(1,4)}
	b := page.RowBatch{
		Offset: []uint64{0, 2, 3, 4},
		Index:  []uint32{0, 2, 2, 1},
		Value:  []float32{1, 2, 3, 4},
	}
	dm := &memDMatrix{
		info:    metadata.MetaInfo{NumRow: 3, NumCol: 4, NumNonzero: 4},
		batches: []page.RowBatch{b},
	}

	for _, sorted := range []bool{false, true} {
		dir := t.TempDir()
		cacheInfo := filepath.Join(dir, "train")
		require.NoError(t, CreateColumnPages(dm, cacheInfo, sorted, WithLogger(NoopLogger())))

		pageType := shard.ColPageSuffix
		if sorted {
			pageType = shard.SortedColPageSuffix
		}
		require.True(t, Exists(cacheInfo, pageType))

		ps, err := Open(cacheInfo, pageType, WithLogger(NoopLogger()))
		require.NoError(t, err)

		ok, err := ps.Next()
		require.NoError(t, err)
		require.True(t, ok)

		p := ps.Value()
		require.Equal(t, 4, p.Size(), "one page row per column")

		idx, val := p.Row(0)
		require.Equal(t, []uint32{0}, idx)
		require.Equal(t, []float32{1}, val)

		idx, val = p.Row(2)
		require.Equal(t, []uint32{0, 1}, idx, "column 2 holds rows 0 and 1")
		require.Equal(t, []float32{2, 3}, val)

		idx, _ = p.Row(3)
		require.Empty(t, idx, "trailing empty column is preserved")

		require.NoError(t, ps.Close())
	}
}

func TestCreateColumnPagesMultiBatch(t *testing.T) {
	// Two 2-row batches, every value in column 0. Column entries must carry
	// dataset-global row ids, not positions within their producing batch.
	b1 := page.RowBatch{
		Offset: []uint64{0, 1, 2},
		Index:  []uint32{0, 0},
		Value:  []float32{10, 11},
	}
	b2 := page.RowBatch{
		Offset: []uint64{0, 1, 2},
		Index:  []uint32{0, 0},
		Value:  []float32{12, 13},
	}
	dm := &memDMatrix{
		info:    metadata.MetaInfo{NumRow: 4, NumCol: 2, NumNonzero: 4},
		batches: []page.RowBatch{b1, b2},
	}

	dir := t.TempDir()
	cacheInfo := filepath.Join(dir, "train")
	require.NoError(t, CreateColumnPages(dm, cacheInfo, false, WithLogger(NoopLogger())))

	ps, err := Open(cacheInfo, shard.ColPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()

	var rowIDs []uint32
	var values []float32
	for {
		ok, err := ps.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		p := ps.Value()
		// Each transposed batch contributes one group of NumCol page rows.
		require.Zero(t, p.Size()%2)
		for i := 0; i < p.Size(); i += 2 {
			idx, val := p.Row(i)
			rowIDs = append(rowIDs, idx...)
			values = append(values, val...)
		}
	}

	require.Equal(t, []uint32{0, 1, 2, 3}, rowIDs)
	require.Equal(t, []float32{10, 11, 12, 13}, values)
}

func TestCreateDMatrixPagesUnknownType(t *testing.T) {
	dm := &memDMatrix{}
	err := CreateDMatrixPages(dm, "anywhere", ".bin.page", WithLogger(NoopLogger()))
	require.ErrorIs(t, err, ErrUnknownPageType)
}

func TestBuildWithCompressedShard(t *testing.T) {
	dir := t.TempDir()
	// The ".zst" prefix extension selects the zstd codec for this shard.
	cacheInfo := filepath.Join(dir, "train.zst")

	var src sliceSource
	for r := 0; r < 10; r++ {
		src.batches = append(src.batches, rowBatch(r, 4, 4))
	}
	require.NoError(t, CreateRowPages(&src, cacheInfo, WithLogger(NoopLogger())))

	ps, err := Open(cacheInfo, shard.RowPageSuffix, WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer ps.Close()

	var rows int
	for {
		ok, err := ps.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows += ps.Value().Size()
	}
	require.Equal(t, 40, rows)
}
