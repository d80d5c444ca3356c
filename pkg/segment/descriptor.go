package segment

import "encoding/binary"

// descriptorMagic identifies a segment file belonging to this journal
// format. unrecognized magic fails open with ErrInvalidDescriptor.
const descriptorMagic uint32 = 0x4a524e4c // "JRNL"

// descriptorVersion is the on-disk format version this package writes and
// reads. A version mismatch on open fails with ErrInvalidDescriptor rather
// than attempting a best-effort read.
const descriptorVersion uint16 = 1

// DescriptorSize is the fixed width of the header written at the start of
// every segment file, ahead of any frame. It must be written and fsynced
// before the first frame.
const DescriptorSize = 4 + 2 + 2 + 8 + 8 + 8 + 8 // magic,version,pad,id,firstIndex,maxSegmentSize,maxEntries

// Descriptor is the fixed-size header at the start of a segment file.
type Descriptor struct {
	SegmentID      uint64
	FirstIndex     uint64
	MaxSegmentSize int64
	MaxEntries     int64
}

// Encode serializes d into dst, which must be at least DescriptorSize bytes.
func (d Descriptor) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], descriptorMagic)
	binary.LittleEndian.PutUint16(dst[4:6], descriptorVersion)
	binary.LittleEndian.PutUint16(dst[6:8], 0) // reserved
	binary.LittleEndian.PutUint64(dst[8:16], d.SegmentID)
	binary.LittleEndian.PutUint64(dst[16:24], d.FirstIndex)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(d.MaxSegmentSize))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(d.MaxEntries))
}

// DecodeDescriptor parses a previously-encoded descriptor from src, which
// must be at least DescriptorSize bytes. It validates the magic and
// version, returning ErrInvalidDescriptor on mismatch.
func DecodeDescriptor(src []byte) (Descriptor, error) {
	if len(src) < DescriptorSize {
		return Descriptor{}, ErrInvalidDescriptor
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	version := binary.LittleEndian.Uint16(src[4:6])
	if magic != descriptorMagic || version != descriptorVersion {
		return Descriptor{}, ErrInvalidDescriptor
	}
	return Descriptor{
		SegmentID:      binary.LittleEndian.Uint64(src[8:16]),
		FirstIndex:     binary.LittleEndian.Uint64(src[16:24]),
		MaxSegmentSize: int64(binary.LittleEndian.Uint64(src[24:32])),
		MaxEntries:     int64(binary.LittleEndian.Uint64(src[32:40])),
	}, nil
}
