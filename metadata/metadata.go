// Package metadata defines the dataset-level aggregates persisted alongside
// a page cache and their binary format.
package metadata

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/sparsecache/internal/binio"
)

const (
	// Magic identifies sparsecache metadata files (ASCII: "SPC0"). It is
	// written before the serialized MetaInfo and verified on load, purely
	// to fail fast on incompatible or corrupt caches.
	Magic = 0x53504330

	// Version is the metadata format version.
	Version = 1
)

var (
	// ErrInvalidMagic indicates the metadata file does not start with Magic.
	ErrInvalidMagic = errors.New("invalid metadata magic number")
	// ErrInvalidVersion indicates an unsupported metadata format version.
	ErrInvalidVersion = errors.New("unsupported metadata version")
	// ErrInconsistentGroups indicates some but not all rows carry a group id.
	ErrInconsistentGroups = errors.New("group ids must be present for every row or none")
	// ErrCorrupt indicates a length field in the metadata file is implausible.
	ErrCorrupt = errors.New("corrupt metadata")
)

// maxVectorLen bounds any vector length read from a metadata file before it
// feeds an allocation, so a corrupt length fails as an error rather than an
// out-of-memory panic.
const maxVectorLen = 1 << 31

// MetaInfo holds the dataset-level aggregates of one cache: global counts,
// optional per-row label/weight vectors, and the ranking group structure.
//
// GroupPtr is a prefix-offset array: GroupPtr[k] is the starting row index
// of group k, with a trailing sentinel equal to the total row count. QIDs
// holds the raw per-row group ids; it is either empty or has NumRow entries.
type MetaInfo struct {
	NumRow     uint64
	NumCol     uint64
	NumNonzero uint64

	Labels  []float32
	Weights []float32

	GroupPtr []uint32
	QIDs     []uint64
}

// Validate checks the group invariant: either every row has a group id or
// none does.
func (m *MetaInfo) Validate() error {
	if len(m.QIDs) != 0 && uint64(len(m.QIDs)) != m.NumRow {
		return fmt.Errorf("%w: %d ids for %d rows", ErrInconsistentGroups, len(m.QIDs), m.NumRow)
	}
	return nil
}

// Save writes the magic header followed by the serialized MetaInfo.
func (m *MetaInfo) Save(w io.Writer) error {
	bw := binio.NewWriter(w)
	if err := bw.WriteUint32(Magic); err != nil {
		return err
	}
	return m.saveBinary(bw)
}

// Load reads and verifies the magic header, then deserializes the MetaInfo.
func (m *MetaInfo) Load(r io.Reader) error {
	br := binio.NewReader(r)
	magic, err := br.ReadUint32()
	if err != nil {
		return fmt.Errorf("failed to read metadata magic: %w", err)
	}
	if magic != Magic {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}
	return m.loadBinary(br)
}

func (m *MetaInfo) saveBinary(bw *binio.Writer) error {
	if err := bw.WriteUint32(Version); err != nil {
		return err
	}
	for _, v := range []uint64{m.NumRow, m.NumCol, m.NumNonzero} {
		if err := bw.WriteUint64(v); err != nil {
			return err
		}
	}
	if err := bw.WriteUint64(uint64(len(m.Labels))); err != nil {
		return err
	}
	if err := bw.WriteFloat32Slice(m.Labels); err != nil {
		return err
	}
	if err := bw.WriteUint64(uint64(len(m.Weights))); err != nil {
		return err
	}
	if err := bw.WriteFloat32Slice(m.Weights); err != nil {
		return err
	}
	if err := bw.WriteUint64(uint64(len(m.GroupPtr))); err != nil {
		return err
	}
	if err := bw.WriteUint32Slice(m.GroupPtr); err != nil {
		return err
	}
	if err := bw.WriteUint64(uint64(len(m.QIDs))); err != nil {
		return err
	}
	return bw.WriteUint64Slice(m.QIDs)
}

func (m *MetaInfo) loadBinary(br *binio.Reader) error {
	version, err := br.ReadUint32()
	if err != nil {
		return err
	}
	if version != Version {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, version)
	}
	for _, dst := range []*uint64{&m.NumRow, &m.NumCol, &m.NumNonzero} {
		if *dst, err = br.ReadUint64(); err != nil {
			return err
		}
	}
	n, err := br.ReadUint64()
	if err != nil {
		return err
	}
	if err := m.checkRowVectorLen("labels", n); err != nil {
		return err
	}
	m.Labels = make([]float32, n)
	if err := br.ReadFloat32Slice(m.Labels); err != nil {
		return err
	}
	if n, err = br.ReadUint64(); err != nil {
		return err
	}
	if err := m.checkRowVectorLen("weights", n); err != nil {
		return err
	}
	m.Weights = make([]float32, n)
	if err := br.ReadFloat32Slice(m.Weights); err != nil {
		return err
	}
	if n, err = br.ReadUint64(); err != nil {
		return err
	}
	if n > m.NumRow+1 || n > maxVectorLen {
		return fmt.Errorf("%w: %d group offsets for %d rows", ErrCorrupt, n, m.NumRow)
	}
	m.GroupPtr = make([]uint32, n)
	if err := br.ReadUint32Slice(m.GroupPtr); err != nil {
		return err
	}
	if n, err = br.ReadUint64(); err != nil {
		return err
	}
	if err := m.checkRowVectorLen("group ids", n); err != nil {
		return err
	}
	m.QIDs = make([]uint64, n)
	return br.ReadUint64Slice(m.QIDs)
}

// Per-row vectors are either empty or hold one entry per row.
func (m *MetaInfo) checkRowVectorLen(name string, n uint64) error {
	if (n != 0 && n != m.NumRow) || n > maxVectorLen {
		return fmt.Errorf("%w: %d %s for %d rows", ErrCorrupt, n, name, m.NumRow)
	}
	return nil
}
