package segment

import (
	"golang.org/x/exp/mmap"

	"github.com/downfa11-org/segjournal/pkg/record"
)

// Scanner is a read-only, writer-independent integrity check over a
// segment's log file, used by offline tooling rather than by the
// journal's own open/append/read paths. The file is memory-mapped, so a
// pass never competes with the writer's file handle.
type Scanner struct {
	r *mmap.ReaderAt
}

// OpenScanner memory-maps path read-only for scanning.
func OpenScanner(path string) (*Scanner, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &Scanner{r: r}, nil
}

// Close unmaps the file.
func (s *Scanner) Close() error { return s.r.Close() }

// VerifyResult summarizes one pass over a segment's frames.
type VerifyResult struct {
	ValidRecords  int
	FirstBadFrame int64 // byte offset of the first invalid frame, or -1
}

// Verify walks every frame from the descriptor onward, validating payload
// completeness, checksum and index contiguity as Writer.rescan does, but
// without mutating anything or requiring exclusive access to the file.
// Unlike rescan it applies no maximum-entry-size bound to a frame's length.
func (s *Scanner) Verify(firstIndex uint64) (VerifyResult, error) {
	result := VerifyResult{FirstBadFrame: -1}
	pos := int64(DescriptorSize)
	header := make([]byte, record.FrameHeaderSize)
	expected := firstIndex

	for {
		n, err := s.r.ReadAt(header, pos)
		if n < record.FrameHeaderSize || err != nil {
			break
		}
		length, crc := record.DecodeFrameHeader(header)
		if length == 0 {
			break
		}
		payload := make([]byte, length)
		n, err = s.r.ReadAt(payload, pos+int64(record.FrameHeaderSize))
		if n < int(length) || err != nil {
			result.FirstBadFrame = pos
			break
		}
		if !record.VerifyChecksum(payload, crc) {
			result.FirstBadFrame = pos
			break
		}
		index, _, _, derr := record.DecodePayload(payload)
		if derr != nil || index != expected {
			result.FirstBadFrame = pos
			break
		}

		result.ValidRecords++
		expected++
		pos += int64(record.FrameHeaderSize) + int64(length)
	}

	return result, nil
}
