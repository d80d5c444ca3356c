package segment

import (
	"errors"
	"io"
	"os"

	"github.com/downfa11-org/segjournal/pkg/record"
)

// ErrNotFound is returned by SeekToAsqn when no record in the segment
// carries an asqn less than or equal to the target.
var ErrNotFound = errors.New("segment: no matching record")

// Reader is an independent, forward-only cursor over a segment's frames.
// Its file handle is distinct from the writer's; it never observes bytes
// past the writer's last committed position, but is otherwise free to run
// concurrently with appends and with other readers.
type Reader struct {
	seg  *Segment
	file *os.File
	pos  int64

	header [record.FrameHeaderSize]byte
	closed bool
}

// bound returns the writer's current committed size: the reader may never
// read past it, since bytes beyond it are either unwritten or mid-write.
func (r *Reader) bound() int64 {
	return r.seg.writer.Size()
}

// HasNext reports whether a call to Next would currently return a record.
func (r *Reader) HasNext() bool {
	if r.closed {
		return false
	}
	return r.pos < r.bound()
}

// Next decodes and returns the frame at the cursor, advancing past it.
// It returns io.EOF once the cursor reaches the writer's committed end.
// A checksum or decode failure within the committed region is always
// ErrCorruptFrame: the writer never commits bytes it hasn't itself
// validated, so any such failure here reflects on-disk corruption, not a
// race with an in-progress append.
func (r *Reader) Next() (record.Record, error) {
	if r.closed {
		return record.Record{}, ErrClosed
	}
	bound := r.bound()
	if r.pos >= bound {
		return record.Record{}, io.EOF
	}

	rec, frameSize, err := r.readFrameAt(r.pos, bound)
	if err != nil {
		return record.Record{}, err
	}
	r.pos += frameSize
	return rec, nil
}

// readFrameAt decodes one frame starting at pos, which must be < bound.
func (r *Reader) readFrameAt(pos, bound int64) (record.Record, int64, error) {
	if _, err := r.file.ReadAt(r.header[:], pos); err != nil {
		return record.Record{}, 0, err
	}
	length, crc := record.DecodeFrameHeader(r.header[:])
	if length == 0 || pos+int64(record.FrameHeaderSize)+int64(length) > bound {
		return record.Record{}, 0, ErrCorruptFrame
	}

	payload := make([]byte, length)
	if _, err := r.file.ReadAt(payload, pos+int64(record.FrameHeaderSize)); err != nil {
		return record.Record{}, 0, err
	}
	if !record.VerifyChecksum(payload, crc) {
		return record.Record{}, 0, ErrCorruptFrame
	}

	index, asqn, data, err := record.DecodePayload(payload)
	if err != nil {
		return record.Record{}, 0, ErrCorruptFrame
	}

	rec := record.Record{Index: index, Asqn: asqn, Data: append([]byte(nil), data...), Checksum: crc}
	frameSize := int64(record.FrameHeaderSize) + int64(length)
	return rec, frameSize, nil
}

// Reset repositions the cursor at the start of the frame holding index,
// using the segment's sparse index to shortcut the scan and falling back
// to a sequential scan from its nearest hit. index may equal one past the
// segment's last index, in which case HasNext becomes false.
func (r *Reader) Reset(index uint64) error {
	if r.closed {
		return ErrClosed
	}
	bound := r.bound()

	pos := int64(DescriptorSize)
	if offset, ok := r.seg.writer.index.lookup(index); ok {
		pos = offset
	}

	for pos < bound {
		if _, err := r.file.ReadAt(r.header[:], pos); err != nil {
			return err
		}
		length, _ := record.DecodeFrameHeader(r.header[:])
		if length == 0 {
			break
		}
		payload := make([]byte, length)
		if _, err := r.file.ReadAt(payload, pos+int64(record.FrameHeaderSize)); err != nil {
			return err
		}
		recIndex, _, _, err := record.DecodePayload(payload)
		if err != nil {
			return ErrCorruptFrame
		}
		if recIndex >= index {
			r.pos = pos
			return nil
		}
		pos += int64(record.FrameHeaderSize) + int64(length)
	}

	r.pos = bound
	return nil
}

// SeekToLast repositions the cursor so that the next call to Next returns
// the segment's last record, and returns that record's index. It returns
// ErrNotFound if the segment holds no records.
func (r *Reader) SeekToLast() (uint64, error) {
	last := r.seg.writer.LastIndex()
	first := r.seg.FirstIndex()
	if r.seg.writer.EntryCount() == 0 || last < first {
		return 0, ErrNotFound
	}
	if err := r.Reset(last); err != nil {
		return 0, err
	}
	return last, nil
}

// SeekToAsqn scans forward from the start of the segment and positions the
// cursor at the last record whose Asqn is less than or equal to target,
// such that the next call to Next returns that record again. Records with
// an unspecified asqn are skipped; the scan ends early once a specified
// asqn exceeds the target, since asqns never decrease. It returns
// ErrNotFound if no record in the segment qualifies.
func (r *Reader) SeekToAsqn(target int64) (record.Record, error) {
	if r.closed {
		return record.Record{}, ErrClosed
	}
	bound := r.bound()

	var found record.Record
	var foundPos int64
	ok := false

	pos := int64(DescriptorSize)
	for pos < bound {
		rec, frameSize, err := r.readFrameAt(pos, bound)
		if err != nil {
			return record.Record{}, err
		}
		if rec.Asqn != record.UnspecifiedAsqn {
			if rec.Asqn > target {
				break
			}
			found, foundPos, ok = rec, pos, true
		}
		pos += frameSize
	}

	if !ok {
		return record.Record{}, ErrNotFound
	}
	r.pos = foundPos
	return found, nil
}

// Close releases the reader's file handle. It does not affect the writer
// or any other reader over the same segment.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
