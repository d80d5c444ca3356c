package segment

import "errors"

var (
	// ErrTooLarge is returned when an appended payload exceeds maxEntrySize.
	ErrTooLarge = errors.New("segment: entry exceeds maxEntrySize")
	// ErrOutOfSpace is returned when a segment's remaining bytes or entry
	// count cannot accommodate the next append.
	ErrOutOfSpace = errors.New("segment: out of space")
	// ErrInvalidIndex is returned by a replication append whose record index
	// is a gap ahead of the segment's next index, equals the segment's
	// current last index, or falls before the segment's first index.
	ErrInvalidIndex = errors.New("segment: invalid index")
	// ErrInvalidChecksum is returned by a replication append whose supplied
	// CRC disagrees with the payload it was supplied with.
	ErrInvalidChecksum = errors.New("segment: invalid checksum")
	// ErrCorruptFrame is returned by a reader encountering a frame whose
	// checksum fails, or whose length is out of bounds, ahead of the
	// writer's last known-good position.
	ErrCorruptFrame = errors.New("segment: corrupt frame")
	// ErrInvalidDescriptor is returned when a segment file's header carries
	// an unrecognized magic or an unsupported format version.
	ErrInvalidDescriptor = errors.New("segment: invalid descriptor")
	// ErrClosed is returned by any operation against a closed segment.
	ErrClosed = errors.New("segment: closed")
)
