// Package prefetch implements per-shard background read-ahead: a goroutine
// decodes pages sequentially into a bounded queue so I/O and decode latency
// stay hidden behind the consumer's compute.
package prefetch

import (
	"bufio"
	"io"

	"github.com/hupe1980/sparsecache/codec"
	"github.com/hupe1980/sparsecache/page"
)

// DefaultDepth is the read-ahead queue capacity.
const DefaultDepth = 4

// result is one decoded page or the terminal condition of the decode loop:
// err is io.EOF for a clean end of shard, anything else for a decode failure.
type result struct {
	page *page.SparsePage
	err  error
}

// Prefetcher owns one shard's decode loop. It is valid for exactly one
// consumer goroutine; Next, Recycle, Rewind and Close must not be called
// concurrently with each other.
type Prefetcher struct {
	rs    io.ReadSeeker
	br    *bufio.Reader
	codec codec.Codec
	start int64
	depth int

	queue chan result
	free  chan *page.SparsePage
	stop  chan struct{}
	done  chan struct{}

	exhausted bool
	closed    bool
}

// New creates a Prefetcher reading pages from rs with c, starting at offset
// start (the position just past the shard's codec tag, which doubles as the
// rewind position). depth <= 0 selects DefaultDepth. The decode loop starts
// immediately.
func New(rs io.ReadSeeker, c codec.Codec, start int64, depth int) *Prefetcher {
	if depth <= 0 {
		depth = DefaultDepth
	}
	p := &Prefetcher{
		rs:    rs,
		br:    bufio.NewReaderSize(rs, 1<<20),
		codec: c,
		start: start,
		depth: depth,
		free:  make(chan *page.SparsePage, depth+2),
	}
	p.startWorker()
	return p
}

func (p *Prefetcher) startWorker() {
	p.queue = make(chan result, p.depth)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.queue, p.stop, p.done)
}

// run decodes pages until end of shard, a decode error, or a stop signal.
// The terminal result is always the last entry sent on the queue.
func (p *Prefetcher) run(queue chan<- result, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		var buf *page.SparsePage
		select {
		case buf = <-p.free:
		default:
			buf = page.NewSparsePage()
		}

		err := p.codec.Decode(buf, p.br)
		if err != nil {
			select {
			case queue <- result{err: err}:
			case <-stop:
			}
			return
		}
		select {
		case queue <- result{page: buf}:
		case <-stop:
			return
		}
	}
}

// Next blocks until the next page of the shard is available and returns it.
// It returns (nil, nil) once the shard is exhausted for the current pass, and
// keeps doing so until Rewind. Decode and I/O errors are returned as-is and
// also exhaust the shard.
func (p *Prefetcher) Next() (*page.SparsePage, error) {
	if p.exhausted || p.closed {
		return nil, nil
	}
	res := <-p.queue
	if res.err != nil {
		p.exhausted = true
		if res.err == io.EOF {
			return nil, nil
		}
		return nil, res.err
	}
	return res.page, nil
}

// Recycle returns a consumed page's storage to the shard's free pool so the
// decode loop can reuse it. The caller must not touch the page afterwards.
func (p *Prefetcher) Recycle(buf *page.SparsePage) {
	select {
	case p.free <- buf:
	default:
		// Pool full, let the page be collected.
	}
}

// Rewind seeks back to the shard's data start and restarts the decode loop
// so the next pass reproduces the original page sequence. Pages already
// buffered for the old pass are dropped into the free pool, never served.
func (p *Prefetcher) Rewind() error {
	if p.closed {
		return nil
	}
	p.stopWorker()
	if _, err := p.rs.Seek(p.start, io.SeekStart); err != nil {
		return err
	}
	p.br.Reset(p.rs)
	p.exhausted = false
	p.startWorker()
	return nil
}

// Close stops the decode loop. It is idempotent and does not close the
// underlying stream.
func (p *Prefetcher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.stopWorker()
	return nil
}

// stopWorker signals the decode loop, waits for it to exit, and reclaims any
// queued buffers.
func (p *Prefetcher) stopWorker() {
	close(p.stop)
	for {
		select {
		case res := <-p.queue:
			if res.page != nil {
				p.Recycle(res.page)
			}
		case <-p.done:
			// Drain whatever was sent before the worker observed stop.
			for {
				select {
				case res := <-p.queue:
					if res.page != nil {
						p.Recycle(res.page)
					}
				default:
					return
				}
			}
		}
	}
}
