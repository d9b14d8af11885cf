package sparsecache

import (
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/sparsecache/codec"
	"github.com/hupe1980/sparsecache/metadata"
	"github.com/hupe1980/sparsecache/page"
	"github.com/hupe1980/sparsecache/prefetch"
	"github.com/hupe1980/sparsecache/shard"
)

// PageSource re-reads a previously built page cache, one forward pass at a
// time. Pages are pulled from the shards in fixed round-robin order, each
// stamped with its global starting row id; BeforeFirst rewinds every shard
// for the next pass.
//
// A PageSource is for a single consumer goroutine.
type PageSource struct {
	info        *metadata.MetaInfo
	files       []*os.File
	prefetchers []*prefetch.Prefetcher
	logger      *Logger

	cur       *page.SparsePage
	clock     int
	baseRowID uint64
	closed    bool
}

// Open reads the cache's metadata file (verifying its magic header), opens
// every shard's page file for the given page type, and starts one background
// prefetcher per shard.
func Open(cacheInfo, pageType string, opts ...Option) (*PageSource, error) {
	if !shard.ValidPageType(pageType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPageType, pageType)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	shards, err := shard.Split(cacheInfo)
	if err != nil {
		return nil, err
	}

	info := &metadata.MetaInfo{}
	metaFile, err := os.Open(shard.MetadataPath(shards))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache metadata: %w", err)
	}
	err = info.Load(metaFile)
	metaFile.Close()
	if err != nil {
		return nil, err
	}

	ps := &PageSource{
		info:   info,
		logger: o.logger.WithCache(cacheInfo).WithPageType(pageType),
	}
	for _, prefix := range shards {
		path := shard.PagePath(prefix, pageType)
		f, err := os.Open(path)
		if err != nil {
			ps.Close()
			return nil, &ErrShardOpen{Path: path, cause: err}
		}
		c, err := codec.ReadTag(f)
		if err != nil {
			f.Close()
			ps.Close()
			return nil, &ErrShardOpen{Path: path, cause: err}
		}
		start, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			f.Close()
			ps.Close()
			return nil, &ErrShardOpen{Path: path, cause: err}
		}
		ps.files = append(ps.files, f)
		ps.prefetchers = append(ps.prefetchers, prefetch.New(f, c, start, o.prefetchDepth))
	}

	ps.logger.WithShards(len(shards)).Debug("page source opened",
		"num_row", info.NumRow,
		"num_col", info.NumCol,
	)
	return ps, nil
}

// Next advances to the next page of the pass. It returns false with a nil
// error when the pass ends, which happens at the first exhausted shard: the
// pass is over even if other shards still hold unread pages, so all shards
// see the same number of pages per pass.
func (ps *PageSource) Next() (bool, error) {
	if ps.closed {
		return false, ErrClosed
	}
	n := len(ps.prefetchers)
	if ps.cur != nil {
		// Return the previous page's storage to the shard that produced
		// it, one clock position behind.
		ps.prefetchers[(ps.clock+n-1)%n].Recycle(ps.cur)
		ps.cur = nil
	}
	p, err := ps.prefetchers[ps.clock].Next()
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	p.BaseRowID = ps.baseRowID
	ps.baseRowID += uint64(p.Size())
	ps.clock = (ps.clock + 1) % n
	ps.cur = p
	return true, nil
}

// Value returns the page of the most recent successful Next. It is undefined
// before the first successful Next, and the page is only valid until the
// following Next or BeforeFirst call.
func (ps *PageSource) Value() *page.SparsePage {
	return ps.cur
}

// BeforeFirst rewinds every shard so the next sequence of Next calls
// reproduces the pass from the beginning.
func (ps *PageSource) BeforeFirst() error {
	if ps.closed {
		return ErrClosed
	}
	n := len(ps.prefetchers)
	if ps.cur != nil {
		ps.prefetchers[(ps.clock+n-1)%n].Recycle(ps.cur)
		ps.cur = nil
	}
	ps.baseRowID = 0
	ps.clock = 0
	for _, p := range ps.prefetchers {
		if err := p.Rewind(); err != nil {
			return err
		}
	}
	ps.logger.Debug("page source rewound")
	return nil
}

// Info returns the dataset metadata loaded at open time. The returned value
// is shared and must not be mutated.
func (ps *PageSource) Info() *metadata.MetaInfo {
	return ps.info
}

// Close stops the prefetchers and closes the shard files. It is idempotent.
func (ps *PageSource) Close() error {
	if ps.closed {
		return nil
	}
	ps.closed = true
	var err error
	for _, p := range ps.prefetchers {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}
	for _, f := range ps.files {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Exists reports whether the cache's metadata file and every shard's page
// file for the given page type can be opened for reading. It never fails;
// any problem reads as false.
func Exists(cacheInfo, pageType string) bool {
	shards, err := shard.Split(cacheInfo)
	if err != nil {
		return false
	}
	if !probeFile(shard.MetadataPath(shards)) {
		return false
	}
	for _, prefix := range shards {
		if !probeFile(shard.PagePath(prefix, pageType)) {
			return false
		}
	}
	return true
}

// probeFile checks openability only, no content validation.
func probeFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
