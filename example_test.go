package sparsecache_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/sparsecache"
	"github.com/hupe1980/sparsecache/page"
	"github.com/hupe1980/sparsecache/shard"
)

type singleBatchSource struct {
	batch page.RowBatch
	done  bool
}

func (s *singleBatchSource) Next() bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}

func (s *singleBatchSource) Value() page.RowBatch { return s.batch }
func (s *singleBatchSource) Err() error           { return nil }

func Example() {
	dir, _ := os.MkdirTemp("", "sparsecache")
	defer os.RemoveAll(dir)
	cacheInfo := filepath.Join(dir, "train")

	// Three sparse rows: {(0,1.0)}, {(2,0.5)}, {(1,2.0)}.
	src := &singleBatchSource{batch: page.RowBatch{
		Offset: []uint64{0, 1, 2, 3},
		Index:  []uint32{0, 2, 1},
		Value:  []float32{1.0, 0.5, 2.0},
	}}
	if err := sparsecache.CreateRowPages(src, cacheInfo,
		sparsecache.WithLogger(sparsecache.NoopLogger()),
	); err != nil {
		panic(err)
	}

	ps, err := sparsecache.Open(cacheInfo, shard.RowPageSuffix,
		sparsecache.WithLogger(sparsecache.NoopLogger()),
	)
	if err != nil {
		panic(err)
	}
	defer ps.Close()

	fmt.Println("rows:", ps.Info().NumRow)
	for {
		ok, err := ps.Next()
		if err != nil {
			panic(err)
		}
		if !ok {
			break
		}
		fmt.Println("page rows:", ps.Value().Size(), "base:", ps.Value().BaseRowID)
	}
	// Output:
	// rows: 3
	// page rows: 3 base: 0
}
