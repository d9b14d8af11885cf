package sparsecache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPageType is returned when a page-type string is not one of
	// the known suffixes. This is programmer error, not a transient failure.
	ErrUnknownPageType = errors.New("unknown page type")

	// ErrClosed is returned by PageSource operations after Close.
	ErrClosed = errors.New("page source is closed")
)

// ErrShardOpen indicates a shard's page file could not be opened or its
// header could not be read. The underlying error is available via
// errors.Unwrap.
type ErrShardOpen struct {
	Path  string
	cause error
}

func (e *ErrShardOpen) Error() string {
	return fmt.Sprintf("failed to open shard %s: %v", e.Path, e.cause)
}

func (e *ErrShardOpen) Unwrap() error { return e.cause }
