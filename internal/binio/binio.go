// Package binio provides little-endian binary readers and writers for the
// fixed-width integer and float slices used by the page and metadata formats.
package binio

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer writes little-endian scalars and slices to an underlying stream.
// Slice writes are staged through an internal scratch buffer so each slice
// costs a single Write call on the underlying stream.
type Writer struct {
	w       io.Writer
	scratch []byte
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, scratch: make([]byte, 0, 4096)}
}

// scratchFlushAt caps how much slice data is staged before it is pushed to
// the underlying stream, so encoding a large page never doubles its memory.
const scratchFlushAt = 64 << 10

func (bw *Writer) flushScratch() error {
	_, err := bw.w.Write(bw.scratch)
	bw.scratch = bw.scratch[:0]
	return err
}

func (bw *Writer) maybeFlush() error {
	if len(bw.scratch) >= scratchFlushAt {
		return bw.flushScratch()
	}
	return nil
}

// WriteUint32 writes a single uint32.
func (bw *Writer) WriteUint32(v uint32) error {
	bw.scratch = binary.LittleEndian.AppendUint32(bw.scratch, v)
	return bw.flushScratch()
}

// WriteUint64 writes a single uint64.
func (bw *Writer) WriteUint64(v uint64) error {
	bw.scratch = binary.LittleEndian.AppendUint64(bw.scratch, v)
	return bw.flushScratch()
}

// WriteUint32Slice writes the elements of s without a length prefix.
func (bw *Writer) WriteUint32Slice(s []uint32) error {
	for _, v := range s {
		bw.scratch = binary.LittleEndian.AppendUint32(bw.scratch, v)
		if err := bw.maybeFlush(); err != nil {
			return err
		}
	}
	return bw.flushScratch()
}

// WriteUint64Slice writes the elements of s without a length prefix.
func (bw *Writer) WriteUint64Slice(s []uint64) error {
	for _, v := range s {
		bw.scratch = binary.LittleEndian.AppendUint64(bw.scratch, v)
		if err := bw.maybeFlush(); err != nil {
			return err
		}
	}
	return bw.flushScratch()
}

// WriteFloat32Slice writes the elements of s without a length prefix.
func (bw *Writer) WriteFloat32Slice(s []float32) error {
	for _, v := range s {
		bw.scratch = binary.LittleEndian.AppendUint32(bw.scratch, math.Float32bits(v))
		if err := bw.maybeFlush(); err != nil {
			return err
		}
	}
	return bw.flushScratch()
}

// WriteString writes a uint32 length prefix followed by the raw bytes.
func (bw *Writer) WriteString(s string) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(bw.w, s)
	return err
}

// Reader reads little-endian scalars and slices from an underlying stream.
type Reader struct {
	r       io.Reader
	scratch []byte
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, scratch: make([]byte, 4096)}
}

// ReadUint32 reads a single uint32. A clean end of stream before the first
// byte surfaces as io.EOF; a truncated value surfaces as ErrUnexpectedEOF.
func (br *Reader) ReadUint32() (uint32, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(br.scratch[:4]), nil
}

// ReadUint64 reads a single uint64 with the same EOF convention as ReadUint32.
func (br *Reader) ReadUint64() (uint64, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(br.scratch[:8]), nil
}

// fill reads exactly n bytes into the scratch buffer and returns it.
func (br *Reader) fill(n int) ([]byte, error) {
	if cap(br.scratch) < n {
		br.scratch = make([]byte, n)
	}
	buf := br.scratch[:n]
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint32Slice fills dst from the stream.
func (br *Reader) ReadUint32Slice(dst []uint32) error {
	buf, err := br.fill(len(dst) * 4)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return nil
}

// ReadUint64Slice fills dst from the stream.
func (br *Reader) ReadUint64Slice(dst []uint64) error {
	buf, err := br.fill(len(dst) * 8)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return nil
}

// ReadFloat32Slice fills dst from the stream.
func (br *Reader) ReadFloat32Slice(dst []float32) error {
	buf, err := br.fill(len(dst) * 4)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return nil
}

// ReadString reads a string written by Writer.WriteString.
func (br *Reader) ReadString() (string, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return "", err
	}
	buf, err := br.fill(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
