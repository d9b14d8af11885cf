package sparsecache

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/sparsecache/codec"
	"github.com/hupe1980/sparsecache/metadata"
	"github.com/hupe1980/sparsecache/page"
	"github.com/hupe1980/sparsecache/shard"
	"github.com/hupe1980/sparsecache/writer"
)

// RowBatchSource streams sparse row batches from an external input, e.g. a
// text parser. Next advances to the next batch; Err reports the first input
// error after Next returns false.
type RowBatchSource interface {
	Next() bool
	Value() page.RowBatch
	Err() error
}

// DMatrix is an in-memory dataset that can replay its row batches and
// already knows its aggregates.
type DMatrix interface {
	Info() *metadata.MetaInfo
	Rows() RowBatchSource
}

// progressInterval is the cadence of build throughput log lines.
const progressInterval = 4 * time.Second

// CreateRowPages builds a row-page cache from an external source in one
// pass, accumulating the dataset aggregates while flushing size-bounded
// pages to the shard files.
func CreateRowPages(src RowBatchSource, cacheInfo string, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithCache(cacheInfo).WithPageType(shard.RowPageSuffix)

	shards, err := shard.Split(cacheInfo)
	if err != nil {
		return err
	}
	w, err := newShardWriter(shards, shard.RowPageSuffix, o)
	if err != nil {
		return err
	}

	var (
		info        metadata.MetaInfo
		columns     = roaring.New()
		cur         = w.Alloc()
		lastGroupID = uint64(math.MaxUint64)
		groupSize   uint32
		bytesWrite  int64
		start       = time.Now()
		nextTick    = progressInterval
	)

	for src.Next() {
		batch := src.Value()
		if batch.Size() == 0 {
			continue
		}
		info.Labels = append(info.Labels, batch.Label...)
		info.Weights = append(info.Weights, batch.Weight...)
		if len(batch.QID) > 0 {
			info.QIDs = append(info.QIDs, batch.QID...)
			for _, qid := range batch.QID {
				// A new boundary starts at each run of a fresh group id.
				if lastGroupID == math.MaxUint64 || lastGroupID != qid {
					info.GroupPtr = append(info.GroupPtr, groupSize)
				}
				lastGroupID = qid
				groupSize++
			}
		}

		info.NumRow += uint64(batch.Size())
		info.NumNonzero += batch.NumNonzero()
		for _, idx := range batch.Index[batch.Offset[0]:batch.Offset[len(batch.Offset)-1]] {
			if uint64(idx)+1 > info.NumCol {
				info.NumCol = uint64(idx) + 1
			}
			columns.Add(idx)
		}

		cur.Push(batch)
		if cur.MemCost() >= o.pageSizeBytes {
			bytesWrite += int64(cur.MemCost())
			if err := w.Push(cur); err != nil {
				w.Close()
				return err
			}
			cur = w.Alloc()

			if elapsed := time.Since(start); elapsed >= nextTick {
				logger.Info("writing pages",
					"throughput_mb_s", float64(bytesWrite>>20)/elapsed.Seconds(),
					"written_mb", bytesWrite>>20,
				)
				nextTick += progressInterval
			}
		}
	}
	if err := src.Err(); err != nil {
		w.Close()
		return fmt.Errorf("row batch source failed: %w", err)
	}

	if lastGroupID != math.MaxUint64 && groupSize > info.GroupPtr[len(info.GroupPtr)-1] {
		// Close the trailing group with the total-row sentinel.
		info.GroupPtr = append(info.GroupPtr, groupSize)
	}
	if cur.Size() > 0 {
		if err := w.Push(cur); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := info.Validate(); err != nil {
		return err
	}
	if err := saveInfo(shards, &info); err != nil {
		return err
	}

	logger.Info("finished writing row pages",
		"num_row", info.NumRow,
		"num_col", info.NumCol,
		"num_nonzero", info.NumNonzero,
		"distinct_columns", columns.GetCardinality(),
	)
	return nil
}

// CreateDMatrixPages builds a cache of the given page type from an in-memory
// dataset: row pages verbatim, column pages transposed, sorted column pages
// transposed with each column's entries sorted by row index. The dataset's
// own aggregates are persisted as the cache metadata.
func CreateDMatrixPages(dm DMatrix, cacheInfo, pageType string, opts ...Option) error {
	if !shard.ValidPageType(pageType) {
		return fmt.Errorf("%w: %q", ErrUnknownPageType, pageType)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithCache(cacheInfo).WithPageType(pageType)

	shards, err := shard.Split(cacheInfo)
	if err != nil {
		return err
	}
	w, err := newShardWriter(shards, pageType, o)
	if err != nil {
		return err
	}

	info := dm.Info()
	cur := w.Alloc()
	var (
		bytesWrite int64
		start      = time.Now()
	)

	src := dm.Rows()
	var baseRow uint64
	for src.Next() {
		batch := src.Value()
		switch pageType {
		case shard.RowPageSuffix:
			cur.Push(batch)
		case shard.ColPageSuffix, shard.SortedColPageSuffix:
			staged := page.NewSparsePage()
			staged.Push(batch)
			transposed := staged.Transpose(int(info.NumCol), baseRow)
			if pageType == shard.SortedColPageSuffix {
				transposed.SortRows()
			}
			cur.Push(transposed.Batch())
		}
		baseRow += uint64(batch.Size())

		if cur.MemCost() >= o.pageSizeBytes {
			bytesWrite += int64(cur.MemCost())
			if err := w.Push(cur); err != nil {
				w.Close()
				return err
			}
			cur = w.Alloc()

			elapsed := time.Since(start)
			logger.Info("writing pages",
				"throughput_mb_s", float64(bytesWrite>>20)/elapsed.Seconds(),
				"written_mb", bytesWrite>>20,
			)
		}
	}
	if err := src.Err(); err != nil {
		w.Close()
		return fmt.Errorf("row batch source failed: %w", err)
	}
	if cur.Size() > 0 {
		if err := w.Push(cur); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := saveInfo(shards, info); err != nil {
		return err
	}
	logger.Info("finished writing pages", "num_row", info.NumRow)
	return nil
}

// CreateColumnPages builds column pages (sorted or unsorted) from an
// in-memory dataset.
func CreateColumnPages(dm DMatrix, cacheInfo string, sorted bool, opts ...Option) error {
	pageType := shard.ColPageSuffix
	if sorted {
		pageType = shard.SortedColPageSuffix
	}
	return CreateDMatrixPages(dm, cacheInfo, pageType, opts...)
}

// newShardWriter opens the write-behind workers for one cache build, picking
// each shard's codec from its path prefix.
func newShardWriter(shards []string, pageType string, o options) (*writer.Writer, error) {
	paths := make([]string, len(shards))
	formats := make([]string, len(shards))
	for i, prefix := range shards {
		paths[i] = shard.PagePath(prefix, pageType)
		formats[i] = codec.Decide(prefix)
	}
	return writer.New(paths, formats, writer.Options{
		Concurrency:          o.concurrency,
		QueueDepth:           o.queueDepth,
		RateLimitBytesPerSec: o.rateLimit,
	})
}

// saveInfo persists the magic header and metadata to the shard-0 file.
func saveInfo(shards []string, info *metadata.MetaInfo) error {
	f, err := os.Create(shard.MetadataPath(shards))
	if err != nil {
		return fmt.Errorf("failed to create cache metadata: %w", err)
	}
	if err := info.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
