// Package page defines the in-memory unit of transfer of the page cache: a
// batch of sparse rows stored as a CSR-style triple of offset, index and
// value arrays.
package page

import "sort"

// SparsePage holds a batch of sparse rows. Offset has one entry per row plus
// a trailing total and is monotonically non-decreasing with Offset[0] == 0.
// Index and Value are the concatenated (column, value) pairs of all rows.
//
// BaseRowID is the global row id of row 0. It is stamped by the page source
// at consumption time and is meaningless before that.
type SparsePage struct {
	Offset    []uint64
	Index     []uint32
	Value     []float32
	BaseRowID uint64
}

// NewSparsePage returns an empty page.
func NewSparsePage() *SparsePage {
	return &SparsePage{Offset: []uint64{0}}
}

// Size returns the number of rows in the page.
func (p *SparsePage) Size() int {
	if len(p.Offset) == 0 {
		return 0
	}
	return len(p.Offset) - 1
}

// NumNonzero returns the number of stored entries.
func (p *SparsePage) NumNonzero() int { return len(p.Index) }

// MemCost returns the memory cost of the page in bytes. This is the quantity
// compared against the page-size threshold during builds.
func (p *SparsePage) MemCost() int {
	return len(p.Offset)*8 + len(p.Index)*4 + len(p.Value)*4
}

// Clear resets the page to empty while keeping its allocated storage.
func (p *SparsePage) Clear() {
	p.Offset = append(p.Offset[:0], 0)
	p.Index = p.Index[:0]
	p.Value = p.Value[:0]
	p.BaseRowID = 0
}

// Row returns the index and value spans of row i. The returned slices alias
// the page's storage.
func (p *SparsePage) Row(i int) ([]uint32, []float32) {
	lo, hi := p.Offset[i], p.Offset[i+1]
	return p.Index[lo:hi], p.Value[lo:hi]
}

// Push appends every row of the batch to the page, rebasing the batch's
// offsets so the page's offset table stays zero-based.
func (p *SparsePage) Push(b RowBatch) {
	if len(p.Offset) == 0 {
		p.Offset = append(p.Offset, 0)
	}
	top := p.Offset[len(p.Offset)-1]
	base := b.Offset[0]
	for i := 1; i < len(b.Offset); i++ {
		p.Offset = append(p.Offset, top+b.Offset[i]-base)
	}
	lo, hi := base, b.Offset[len(b.Offset)-1]
	p.Index = append(p.Index, b.Index[lo:hi]...)
	p.Value = append(p.Value, b.Value[lo:hi]...)
}

// Batch returns a borrowed RowBatch view over the whole page. Label, weight
// and qid slices are nil.
func (p *SparsePage) Batch() RowBatch {
	return RowBatch{Offset: p.Offset, Index: p.Index, Value: p.Value}
}

// Transpose returns a new page in column orientation: row j of the result
// holds the (row, value) entries of column j, in row order. Entry row ids
// are global — offset by baseRow — so column caches built from several
// successive batches still distinguish their rows. numCol fixes the number
// of result rows so trailing empty columns are preserved.
func (p *SparsePage) Transpose(numCol int, baseRow uint64) *SparsePage {
	counts := make([]uint64, numCol+1)
	for _, idx := range p.Index {
		counts[idx+1]++
	}
	out := &SparsePage{
		Offset: make([]uint64, numCol+1),
		Index:  make([]uint32, len(p.Index)),
		Value:  make([]float32, len(p.Value)),
	}
	for j := 1; j <= numCol; j++ {
		out.Offset[j] = out.Offset[j-1] + counts[j]
	}
	next := make([]uint64, numCol)
	copy(next, out.Offset[:numCol])
	for i := 0; i < p.Size(); i++ {
		idx, val := p.Row(i)
		for k, col := range idx {
			pos := next[col]
			out.Index[pos] = uint32(baseRow + uint64(i))
			out.Value[pos] = val[k]
			next[col] = pos + 1
		}
	}
	return out
}

// SortRows sorts the entries of every row by ascending index, keeping each
// (index, value) pair together.
func (p *SparsePage) SortRows() {
	for i := 0; i < p.Size(); i++ {
		idx, val := p.Row(i)
		sort.Sort(&rowSorter{idx: idx, val: val})
	}
}

type rowSorter struct {
	idx []uint32
	val []float32
}

func (s *rowSorter) Len() int           { return len(s.idx) }
func (s *rowSorter) Less(i, j int) bool { return s.idx[i] < s.idx[j] }
func (s *rowSorter) Swap(i, j int) {
	s.idx[i], s.idx[j] = s.idx[j], s.idx[i]
	s.val[i], s.val[j] = s.val[j], s.val[i]
}
