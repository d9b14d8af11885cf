// Package codec centralizes the binary page formats of the cache.
//
// Codec selection is intentionally a breaking-change boundary: every shard
// page file records its codec name in a tag at the start of the file, and a
// file written by one codec can only ever be opened by that codec.
package codec

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/hupe1980/sparsecache/internal/binio"
	"github.com/hupe1980/sparsecache/page"
)

// Codec encodes and decodes one page at a time against a byte stream.
// Implementations must be safe for concurrent use; the streams they operate
// on are not shared.
type Codec interface {
	// Name returns the stable registry name of the codec.
	Name() string
	// Encode appends one page to w.
	Encode(p *page.SparsePage, w io.Writer) error
	// Decode reads the next page from r into p, replacing its contents but
	// reusing its storage. A clean end of stream returns io.EOF.
	Decode(p *page.SparsePage, r io.Reader) error
}

// ByName returns a built-in codec by its stable name.
//
// The set is closed on purpose: names end up inside cache files, and an open
// registry would turn a typo into an unreadable cache.
func ByName(name string) (Codec, bool) {
	switch name {
	case "raw":
		return Raw{}, true
	case "snappy":
		return Snappy{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd":
		return ZSTD{}, true
	default:
		return nil, false
	}
}

// Decide picks the codec name for a shard from its path prefix extension:
// ".lz4", ".zst" and ".snappy" select the matching codec, anything else
// falls back to "raw".
func Decide(prefix string) string {
	switch filepath.Ext(prefix) {
	case ".lz4":
		return "lz4"
	case ".zst":
		return "zstd"
	case ".snappy":
		return "snappy"
	default:
		return "raw"
	}
}

// WriteTag writes the codec-name tag that starts every shard page file.
func WriteTag(w io.Writer, name string) error {
	return binio.NewWriter(w).WriteString(name)
}

// ReadTag reads the codec-name tag from the start of a shard page file and
// resolves it to a codec.
func ReadTag(r io.Reader) (Codec, error) {
	name, err := binio.NewReader(r).ReadString()
	if err != nil {
		return nil, fmt.Errorf("failed to read page format tag: %w", err)
	}
	c, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown page format %q", name)
	}
	return c, nil
}
