package codec

import (
	"fmt"
	"io"

	"github.com/hupe1980/sparsecache/internal/binio"
	"github.com/hupe1980/sparsecache/page"
)

// maxPageDim bounds the row and entry counts read from a page header before
// they feed an allocation, so a corrupt header fails as an error rather than
// an out-of-memory panic.
const maxPageDim = 1 << 31

// Raw is the uncompressed little-endian page codec.
//
// Page layout: [nrows u64][nnz u64][offset (nrows+1)*u64][index nnz*u32]
// [value nnz*f32]. This is also the payload layout the compressed codecs
// wrap in their block framing.
type Raw struct{}

// Name returns "raw".
func (Raw) Name() string { return "raw" }

// Encode appends one page to w.
func (Raw) Encode(p *page.SparsePage, w io.Writer) error {
	bw := binio.NewWriter(w)
	if err := bw.WriteUint64(uint64(p.Size())); err != nil {
		return err
	}
	if err := bw.WriteUint64(uint64(p.NumNonzero())); err != nil {
		return err
	}
	if err := bw.WriteUint64Slice(p.Offset); err != nil {
		return err
	}
	if err := bw.WriteUint32Slice(p.Index); err != nil {
		return err
	}
	return bw.WriteFloat32Slice(p.Value)
}

// Decode reads the next page from r into p. End of stream returns io.EOF.
func (Raw) Decode(p *page.SparsePage, r io.Reader) error {
	br := binio.NewReader(r)
	nrows, err := br.ReadUint64()
	if err != nil {
		// io.EOF here means the previous page was the last one.
		return err
	}
	nnz, err := br.ReadUint64()
	if err != nil {
		return truncated(err)
	}
	if nrows > maxPageDim || nnz > maxPageDim {
		return fmt.Errorf("page header corrupt: %d rows, %d entries", nrows, nnz)
	}
	p.BaseRowID = 0
	p.Offset = grow64(p.Offset, int(nrows)+1)
	p.Index = grow32(p.Index, int(nnz))
	p.Value = growF32(p.Value, int(nnz))
	if err := br.ReadUint64Slice(p.Offset); err != nil {
		return truncated(err)
	}
	if err := br.ReadUint32Slice(p.Index); err != nil {
		return truncated(err)
	}
	if err := br.ReadFloat32Slice(p.Value); err != nil {
		return truncated(err)
	}
	return nil
}

// truncated maps a mid-page EOF to an explicit corruption error so only a
// clean page boundary ever reads as end of stream.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("page truncated: %w", io.ErrUnexpectedEOF)
	}
	return err
}

func grow64(s []uint64, n int) []uint64 {
	if cap(s) < n {
		return make([]uint64, n)
	}
	return s[:n]
}

func grow32(s []uint32, n int) []uint32 {
	if cap(s) < n {
		return make([]uint32, n)
	}
	return s[:n]
}

func growF32(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
