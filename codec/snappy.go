package codec

import (
	"io"

	"github.com/golang/snappy"

	"github.com/hupe1980/sparsecache/page"
)

// Snappy compresses each page as a single snappy block. Fast with a modest
// ratio; a reasonable default for caches on local disks.
type Snappy struct{}

// Name returns "snappy".
func (Snappy) Name() string { return "snappy" }

// Encode appends one page to w.
func (Snappy) Encode(p *page.SparsePage, w io.Writer) error {
	return encodeBlock(p, w, func(src []byte) ([]byte, error) {
		return snappy.Encode(nil, src), nil
	})
}

// Decode reads the next page from r into p. End of stream returns io.EOF.
func (Snappy) Decode(p *page.SparsePage, r io.Reader) error {
	return decodeBlock(p, r, func(src []byte, uncompressedSize int) ([]byte, error) {
		return snappy.Decode(make([]byte, 0, uncompressedSize), src)
	})
}
