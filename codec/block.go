package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/sparsecache/internal/binio"
	"github.com/hupe1980/sparsecache/page"
)

// Block framing shared by the compressed codecs.
// Format: [uncompressed u32][compressed u32][data]. CompressedSize == 0 means
// the block is stored uncompressed (the compressor did not shrink it).

// compressFunc compresses src, returning nil to store the block as-is.
type compressFunc func(src []byte) ([]byte, error)

// decompressFunc decompresses src into a buffer of exactly uncompressedSize.
type decompressFunc func(src []byte, uncompressedSize int) ([]byte, error)

// encodeBlock serializes p with the raw layout and writes one framed block.
func encodeBlock(p *page.SparsePage, w io.Writer, compress compressFunc) error {
	var payload bytes.Buffer
	payload.Grow(p.MemCost() + 16)
	if err := (Raw{}).Encode(p, &payload); err != nil {
		return err
	}

	raw := payload.Bytes()
	compressed, err := compress(raw)
	if err != nil {
		return err
	}

	bw := binio.NewWriter(w)
	if err := bw.WriteUint32(uint32(len(raw))); err != nil {
		return err
	}
	if compressed == nil || len(compressed) >= len(raw) {
		if err := bw.WriteUint32(0); err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	}
	if err := bw.WriteUint32(uint32(len(compressed))); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// decodeBlock reads one framed block from r and decodes its payload into p.
// End of stream returns io.EOF.
func decodeBlock(p *page.SparsePage, r io.Reader, decompress decompressFunc) error {
	br := binio.NewReader(r)
	uncompressedSize, err := br.ReadUint32()
	if err != nil {
		return err
	}
	compressedSize, err := br.ReadUint32()
	if err != nil {
		return truncated(err)
	}

	stored := compressedSize
	if stored == 0 {
		stored = uncompressedSize
	}
	buf := make([]byte, stored)
	if _, err := io.ReadFull(r, buf); err != nil {
		return truncated(err)
	}

	if compressedSize != 0 {
		buf, err = decompress(buf, int(uncompressedSize))
		if err != nil {
			return fmt.Errorf("failed to decompress page block: %w", err)
		}
	}
	if err := (Raw{}).Decode(p, bytes.NewReader(buf)); err != nil {
		return truncated(err)
	}
	return nil
}
