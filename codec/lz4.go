package codec

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/sparsecache/page"
)

// LZ4 compresses each page as a single lz4 block. Good for hot caches where
// decode speed matters more than ratio.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Encode appends one page to w.
func (LZ4) Encode(p *page.SparsePage, w io.Writer) error {
	return encodeBlock(p, w, func(src []byte) ([]byte, error) {
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		var c lz4.Compressor
		n, err := c.CompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible, store as-is.
			return nil, nil
		}
		return dst[:n], nil
	})
}

// Decode reads the next page from r into p. End of stream returns io.EOF.
func (LZ4) Decode(p *page.SparsePage, r io.Reader) error {
	return decodeBlock(p, r, func(src []byte, uncompressedSize int) ([]byte, error) {
		dst := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n != uncompressedSize {
			return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", n, uncompressedSize)
		}
		return dst, nil
	})
}
