package sparsecache

import (
	"github.com/hupe1980/sparsecache/prefetch"
	"github.com/hupe1980/sparsecache/writer"
)

// DefaultPageSizeBytes is the memory-cost threshold at which the builder
// flushes the open page to the background writers.
const DefaultPageSizeBytes = 32 << 20

type options struct {
	logger        *Logger
	pageSizeBytes int
	concurrency   int
	queueDepth    int
	prefetchDepth int
	rateLimit     int
}

func defaultOptions() options {
	return options{
		logger:        NewLogger(nil),
		pageSizeBytes: DefaultPageSizeBytes,
		concurrency:   writer.DefaultConcurrency,
		queueDepth:    writer.DefaultQueueDepth,
		prefetchDepth: prefetch.DefaultDepth,
	}
}

// Option configures builds and page sources.
type Option func(*options)

// WithLogger sets the logger. Nil selects the default text logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NewLogger(nil)
		}
		o.logger = l
	}
}

// WithPageSizeBytes sets the page memory-cost threshold for builds. A page
// is flushed as soon as its cost reaches the threshold, so it overshoots by
// at most one row batch's contribution.
func WithPageSizeBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSizeBytes = n
		}
	}
}

// WithWriterConcurrency bounds how many pages are encoded simultaneously
// during builds.
func WithWriterConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithQueueDepth sets the per-shard backlog of unwritten pages during
// builds. Together with the page size this bounds the build's peak memory.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// WithWriteRateLimit throttles the aggregate encoded byte rate of builds.
// Zero disables throttling.
func WithWriteRateLimit(bytesPerSec int) Option {
	return func(o *options) {
		if bytesPerSec > 0 {
			o.rateLimit = bytesPerSec
		}
	}
}
