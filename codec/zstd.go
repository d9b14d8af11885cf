package codec

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/sparsecache/page"
)

// ZSTD compresses each page as a single zstd block. Best ratio of the
// built-in codecs; use it when the cache lives on slow or shared storage.
type ZSTD struct{}

// Encoder/decoder pools: zstd encoders are expensive to construct and safe
// to reuse via EncodeAll/DecodeAll.
var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() any {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
)

// Name returns "zstd".
func (ZSTD) Name() string { return "zstd" }

// Encode appends one page to w.
func (ZSTD) Encode(p *page.SparsePage, w io.Writer) error {
	return encodeBlock(p, w, func(src []byte) ([]byte, error) {
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(src, nil), nil
	})
}

// Decode reads the next page from r into p. End of stream returns io.EOF.
func (ZSTD) Decode(p *page.SparsePage, r io.Reader) error {
	return decodeBlock(p, r, func(src []byte, uncompressedSize int) ([]byte, error) {
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(src, make([]byte, 0, uncompressedSize))
	})
}
