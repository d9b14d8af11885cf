package metadata

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	want := MetaInfo{
		NumRow:     6,
		NumCol:     10,
		NumNonzero: 17,
		Labels:     []float32{0, 1, 0, 1, 1, 0},
		Weights:    []float32{1, 1, 2, 1, 0.5, 1},
		GroupPtr:   []uint32{0, 2, 5, 6},
		QIDs:       []uint64{1, 1, 2, 2, 2, 3},
	}

	var buf bytes.Buffer
	require.NoError(t, want.Save(&buf))

	var got MetaInfo
	require.NoError(t, got.Load(&buf))
	require.Equal(t, want, got)
}

func TestLoadEmptyVectors(t *testing.T) {
	want := MetaInfo{NumRow: 3, NumCol: 4, NumNonzero: 5}

	var buf bytes.Buffer
	require.NoError(t, want.Save(&buf))

	var got MetaInfo
	require.NoError(t, got.Load(&buf))
	require.Equal(t, want.NumRow, got.NumRow)
	require.Empty(t, got.Labels)
	require.Empty(t, got.QIDs)
}

func TestLoadBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0x12345678)))
	buf.Write(make([]byte, 64))

	var m MetaInfo
	require.ErrorIs(t, m.Load(&buf), ErrInvalidMagic)
}

func TestLoadBadVersion(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, (&MetaInfo{NumRow: 1}).Save(&good))

	raw := good.Bytes()
	binary.LittleEndian.PutUint32(raw[4:], 99)

	var m MetaInfo
	require.ErrorIs(t, m.Load(bytes.NewReader(raw)), ErrInvalidVersion)
}

func TestLoadCorruptVectorLength(t *testing.T) {
	var good bytes.Buffer
	m := MetaInfo{NumRow: 2, Labels: []float32{1, 2}}
	require.NoError(t, m.Save(&good))

	// The labels length field sits after the magic, version, and the three
	// dataset counts. A huge value must fail before it feeds an allocation,
	// and a plausible-but-wrong one must fail the per-row consistency check.
	const labelsLenOff = 4 + 4 + 3*8
	for _, n := range []uint64{1 << 60, 3} {
		raw := append([]byte(nil), good.Bytes()...)
		binary.LittleEndian.PutUint64(raw[labelsLenOff:], n)

		var got MetaInfo
		require.ErrorIs(t, got.Load(bytes.NewReader(raw)), ErrCorrupt)
	}
}

func TestValidate(t *testing.T) {
	m := MetaInfo{NumRow: 3, QIDs: []uint64{1, 1, 2}}
	require.NoError(t, m.Validate())

	m.QIDs = m.QIDs[:2]
	require.ErrorIs(t, m.Validate(), ErrInconsistentGroups)

	m.QIDs = nil
	require.NoError(t, m.Validate())
}
