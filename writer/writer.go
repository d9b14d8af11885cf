// Package writer implements asynchronous write-behind for shard page files:
// completed pages are handed off to background workers that encode them with
// each shard's codec, in strict per-shard file order.
package writer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/sparsecache/codec"
	"github.com/hupe1980/sparsecache/page"
)

const (
	// DefaultConcurrency bounds how many pages are being encoded at once
	// across all shards.
	DefaultConcurrency = 6
	// DefaultQueueDepth is the per-shard backlog of unwritten pages. Push
	// blocks once a shard's backlog is full, bounding peak memory.
	DefaultQueueDepth = 8
)

// ErrClosed is returned by Push and Alloc after Close.
var ErrClosed = errors.New("page writer is closed")

// Options configures a Writer.
type Options struct {
	// Concurrency is the maximum number of simultaneous page encodes.
	Concurrency int
	// QueueDepth is the per-shard bounded backlog of pending pages.
	QueueDepth int
	// RateLimitBytesPerSec throttles the aggregate encoded byte rate when
	// > 0, so a build cannot saturate shared storage.
	RateLimitBytesPerSec int
}

// Writer owns one output stream per shard and a pool of background encoders.
// Pages enter via Push, which distributes them across shards round-robin,
// and storage cycles back through Alloc.
//
// Push, Alloc and Close must be called from a single goroutine.
type Writer struct {
	files   []*os.File
	bufws   []*bufio.Writer
	codecs  []codec.Codec
	queues  []chan *page.SparsePage
	free    chan *page.SparsePage
	sem     *semaphore.Weighted
	limiter *rate.Limiter

	group  *errgroup.Group
	ctx    context.Context
	next   int
	closed bool
}

// New creates the shard page files, writes each file's codec tag, and starts
// the background encoders. paths and formats must have equal length; formats
// holds codec registry names per shard.
func New(paths []string, formats []string, opts Options) (*Writer, error) {
	if len(paths) == 0 || len(paths) != len(formats) {
		return nil, fmt.Errorf("writer needs matching shard paths and formats, got %d and %d", len(paths), len(formats))
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = DefaultQueueDepth
	}

	group, ctx := errgroup.WithContext(context.Background())
	w := &Writer{
		files:  make([]*os.File, len(paths)),
		bufws:  make([]*bufio.Writer, len(paths)),
		codecs: make([]codec.Codec, len(paths)),
		queues: make([]chan *page.SparsePage, len(paths)),
		free:   make(chan *page.SparsePage, depth*len(paths)+1),
		sem:    semaphore.NewWeighted(int64(concurrency)),
		group:  group,
		ctx:    ctx,
	}
	if opts.RateLimitBytesPerSec > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitBytesPerSec), opts.RateLimitBytesPerSec)
	}

	for i, path := range paths {
		c, ok := codec.ByName(formats[i])
		if !ok {
			w.abort()
			return nil, fmt.Errorf("unknown page format %q for shard %s", formats[i], path)
		}
		f, err := os.Create(path)
		if err != nil {
			w.abort()
			return nil, fmt.Errorf("failed to create shard page file: %w", err)
		}
		bufw := bufio.NewWriterSize(f, 1<<20)
		if err := codec.WriteTag(bufw, c.Name()); err != nil {
			f.Close()
			w.abort()
			return nil, fmt.Errorf("failed to write page format tag: %w", err)
		}
		w.files[i] = f
		w.bufws[i] = bufw
		w.codecs[i] = c
		w.queues[i] = make(chan *page.SparsePage, depth)
	}

	for i := range paths {
		shardIdx := i
		group.Go(func() error { return w.drain(shardIdx) })
	}
	return w, nil
}

// drain encodes the pages of one shard in arrival order.
func (w *Writer) drain(shardIdx int) error {
	for p := range w.queues[shardIdx] {
		if err := w.writeOne(shardIdx, p); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeOne(shardIdx int, p *page.SparsePage) error {
	if err := w.sem.Acquire(w.ctx, 1); err != nil {
		return err
	}
	cw := &countingWriter{w: w.bufws[shardIdx]}
	err := w.codecs[shardIdx].Encode(p, cw)
	w.sem.Release(1)
	if err != nil {
		return fmt.Errorf("failed to encode page for shard %d: %w", shardIdx, err)
	}
	if err := w.waitRate(cw.n); err != nil {
		return err
	}

	p.Clear()
	select {
	case w.free <- p:
	default:
	}
	return nil
}

// waitRate charges n encoded bytes against the limiter, chunked to its burst.
func (w *Writer) waitRate(n int64) error {
	if w.limiter == nil {
		return nil
	}
	burst := int64(w.limiter.Burst())
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := w.limiter.WaitN(w.ctx, int(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Alloc returns an empty page, reusing storage from previously written pages
// when available.
func (w *Writer) Alloc() *page.SparsePage {
	select {
	case p := <-w.free:
		p.Clear()
		return p
	default:
		return page.NewSparsePage()
	}
}

// Push hands ownership of a completed page to the background encoders. Pages
// are assigned to shards round-robin; Push blocks while the target shard's
// backlog is full. The caller must not touch the page afterwards.
func (w *Writer) Push(p *page.SparsePage) error {
	if w.closed {
		return ErrClosed
	}
	select {
	case w.queues[w.next] <- p:
		w.next = (w.next + 1) % len(w.queues)
		return nil
	case <-w.ctx.Done():
		// A worker failed; surface its error rather than blocking forever.
		return w.Close()
	}
}

// Close flushes and closes every shard file after the backlog drains, and
// returns the first worker error. It is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return w.group.Wait()
	}
	w.closed = true
	for _, q := range w.queues {
		close(q)
	}
	err := w.group.Wait()
	for i := range w.files {
		if w.bufws[i] != nil {
			if ferr := w.bufws[i].Flush(); err == nil {
				err = ferr
			}
		}
		if w.files[i] != nil {
			if cerr := w.files[i].Close(); err == nil {
				err = cerr
			}
		}
	}
	return err
}

// abort releases partially opened files during a failed New.
func (w *Writer) abort() {
	for i := range w.files {
		if w.files[i] != nil {
			w.files[i].Close()
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}
