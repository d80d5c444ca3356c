package record

import (
	"encoding/binary"
	"hash/crc32"
)

// FrameHeaderSize is the width of the length+CRC prefix that precedes every
// payload on disk (see pkg/segment for the segment file layout).
const FrameHeaderSize = 4 + 4

// EncodePayload writes the deterministic wire form of a record's Index,
// Asqn and Data into dst, which must be at least PayloadSize bytes.
// Encoding is little-endian throughout, matching the frame header it
// travels inside of; determinism matters because the frame CRC is
// computed over these bytes and must reproduce on reopen.
func EncodePayload(dst []byte, index uint64, asqn int64, data []byte) int {
	binary.LittleEndian.PutUint64(dst[0:8], index)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(asqn))
	copy(dst[payloadHeaderSize:], data)
	return payloadHeaderSize + len(data)
}

// DecodePayload parses the Index/Asqn/Data previously written by
// EncodePayload. The returned Data aliases src — callers that retain it
// past the lifetime of the buffer it came from must copy.
func DecodePayload(src []byte) (index uint64, asqn int64, data []byte, err error) {
	if len(src) < payloadHeaderSize {
		return 0, 0, nil, ErrInsufficientBuffer
	}
	index = binary.LittleEndian.Uint64(src[0:8])
	asqn = int64(binary.LittleEndian.Uint64(src[8:16]))
	data = src[payloadHeaderSize:]
	return index, asqn, data, nil
}

// EncodeFrame writes the length-prefixed, checksummed frame for payload
// into dst (dst must be at least FrameHeaderSize+len(payload) bytes) and
// returns the total frame size. This is component A of the journal: it
// knows nothing about Index/Asqn, only about opaque payload bytes.
func EncodeFrame(dst []byte, payload []byte) int {
	crc := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(dst[4:8], crc)
	copy(dst[FrameHeaderSize:], payload)
	return FrameHeaderSize + len(payload)
}

// DecodeFrameHeader parses the 8-byte length+CRC prefix of a frame.
func DecodeFrameHeader(header []byte) (length uint32, crc uint32) {
	length = binary.LittleEndian.Uint32(header[0:4])
	crc = binary.LittleEndian.Uint32(header[4:8])
	return length, crc
}

// VerifyChecksum reports whether crc is the CRC32-IEEE of payload.
func VerifyChecksum(payload []byte, crc uint32) bool {
	return crc32.ChecksumIEEE(payload) == crc
}

// Checksum computes the CRC32-IEEE of payload.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}
