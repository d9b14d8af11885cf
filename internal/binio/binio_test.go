package binio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarsAndSlices(t *testing.T) {
	var buf bytes.Buffer
	bw := NewWriter(&buf)
	require.NoError(t, bw.WriteUint32(7))
	require.NoError(t, bw.WriteUint64(1<<40))
	require.NoError(t, bw.WriteUint32Slice([]uint32{1, 2, 3}))
	require.NoError(t, bw.WriteUint64Slice([]uint64{4, 5}))
	require.NoError(t, bw.WriteFloat32Slice([]float32{1.5, -2.5}))
	require.NoError(t, bw.WriteString("raw"))

	br := NewReader(&buf)
	v32, err := br.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), v32)

	v64, err := br.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(1<<40), v64)

	s32 := make([]uint32, 3)
	require.NoError(t, br.ReadUint32Slice(s32))
	require.Equal(t, []uint32{1, 2, 3}, s32)

	s64 := make([]uint64, 2)
	require.NoError(t, br.ReadUint64Slice(s64))
	require.Equal(t, []uint64{4, 5}, s64)

	f32 := make([]float32, 2)
	require.NoError(t, br.ReadFloat32Slice(f32))
	require.Equal(t, []float32{1.5, -2.5}, f32)

	s, err := br.ReadString()
	require.NoError(t, err)
	require.Equal(t, "raw", s)
}

func TestCleanEOF(t *testing.T) {
	br := NewReader(bytes.NewReader(nil))
	_, err := br.ReadUint32()
	require.ErrorIs(t, err, io.EOF)
}

func TestTruncatedValue(t *testing.T) {
	br := NewReader(bytes.NewReader([]byte{1, 2}))
	_, err := br.ReadUint32()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLargeSliceRoundTrip(t *testing.T) {
	// Big enough to force several scratch flushes on the write side.
	src := make([]uint64, 40_000)
	for i := range src {
		src[i] = uint64(i) * 3
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteUint64Slice(src))
	require.Equal(t, len(src)*8, buf.Len())

	dst := make([]uint64, len(src))
	require.NoError(t, NewReader(&buf).ReadUint64Slice(dst))
	require.Equal(t, src, dst)
}
