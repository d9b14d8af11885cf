package page

// RowBatch is a borrowed view over a span of sparse rows produced by an input
// source. Offset has len(rows)+1 entries and need not start at zero; Index
// and Value are addressed by the raw offset values, exactly as the producer
// laid them out.
//
// Label, Weight and QID are optional per-row side arrays; each is either nil
// or has one entry per row.
type RowBatch struct {
	Offset []uint64
	Index  []uint32
	Value  []float32

	Label  []float32
	Weight []float32
	QID    []uint64
}

// Size returns the number of rows in the batch.
func (b RowBatch) Size() int {
	if len(b.Offset) == 0 {
		return 0
	}
	return len(b.Offset) - 1
}

// NumNonzero returns the number of stored entries in the batch.
func (b RowBatch) NumNonzero() uint64 {
	if len(b.Offset) == 0 {
		return 0
	}
	return b.Offset[len(b.Offset)-1] - b.Offset[0]
}
