package segment

import (
	"io"
	"os"
	"sync"

	"github.com/downfa11-org/segjournal/pkg/record"
)

// Writer is the single-writer append path for one segment's log file. It
// owns the writable file handle exclusively; the embedding journal is
// responsible for never constructing two writers over the same path.
//
// Frames are assembled in a reusable scratch buffer and written with one
// positional write each, so a concurrent reader holding its own file
// handle observes every committed frame immediately. Durability is
// separate: nothing is fsynced until Flush.
type Writer struct {
	mu sync.Mutex

	file *os.File

	firstIndex uint64
	cfg        Config

	writePos   int64
	entryCount int64
	lastEntry  *record.Record

	index   *sparseIndex
	scratch []byte
	closed  bool

	lastRecoveryDiscard int
}

// openWriter opens (or creates) the log file at path positioned just past
// the descriptor, and rebuilds lastEntry/the sparse index by rescanning
// any existing frames. The rescan runs eagerly for every segment, not just
// the tail (see DESIGN.md).
func openWriter(path string, firstIndex uint64, cfg Config) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	adviseSequential(f.Fd())

	w := &Writer{
		file:       f,
		firstIndex: firstIndex,
		cfg:        cfg,
		index:      newSparseIndex(cfg.IndexDensity),
		scratch:    make([]byte, cfg.MaxEntrySize+payloadHeaderSizeConst+record.FrameHeaderSize),
	}

	if err := w.rescan(0); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// payloadHeaderSizeConst mirrors record's private payload header width; it
// is re-declared here because record does not export it (only PayloadSize
// on a constructed Record does), and the writer needs it to size its
// reusable scratch buffer.
const payloadHeaderSizeConst = 16

// rescan reads frames sequentially from just past the descriptor,
// validating each, stopping at the first invalid or zero-length frame or
// once upTo is reached (0 means "scan everything"). It rebuilds lastEntry
// and the sparse index from scratch and leaves writePos just past the last
// valid frame so subsequent appends are contiguous — this is both the
// recovery-on-open path and the implementation of the public Reset.
func (w *Writer) rescan(upTo uint64) error {
	w.index.reset()
	w.lastEntry = nil
	w.entryCount = 0

	pos := int64(DescriptorSize)
	header := make([]byte, record.FrameHeaderSize)
	terminated := false

	for {
		n, err := w.file.ReadAt(header, pos)
		if err != nil && err != io.EOF {
			return err
		}
		if n < record.FrameHeaderSize {
			break // short read: unwritten tail
		}

		length, crc := record.DecodeFrameHeader(header)
		if length == 0 {
			terminated = true
			break // terminator
		}
		if int(length) > len(w.scratch)-record.FrameHeaderSize {
			break // bogus length, treat as corrupt tail
		}

		payload := make([]byte, length)
		n, err = w.file.ReadAt(payload, pos+record.FrameHeaderSize)
		if err != nil && err != io.EOF {
			return err
		}
		if n < int(length) {
			break
		}

		if !record.VerifyChecksum(payload, crc) {
			break
		}

		index, asqn, data, err := record.DecodePayload(payload)
		if err != nil {
			break
		}

		expected := w.firstIndex
		if w.lastEntry != nil {
			expected = w.lastEntry.Index + 1
		}
		if index != expected {
			break // non-sequential: torn or foreign write, stop here
		}

		dataCopy := append([]byte(nil), data...)
		rec := record.Record{Index: index, Asqn: asqn, Data: dataCopy, Checksum: crc}
		w.lastEntry = &rec
		w.entryCount++
		w.index.record(index, pos)

		pos += int64(record.FrameHeaderSize) + int64(length)

		if upTo != 0 && index == upTo {
			break
		}
	}

	w.writePos = pos
	w.lastRecoveryDiscard = 0
	if info, statErr := w.file.Stat(); statErr == nil && !terminated && info.Size() > pos {
		// Bytes remain past the last frame rescan accepted, and the scan
		// did not stop on a zero terminator (the zero-fill a truncation
		// leaves behind is a clean tail, not a discarded frame). A single
		// malformed or torn frame hides however many frames follow it,
		// so this is a lower bound, not an exact frame count.
		w.lastRecoveryDiscard = 1
	}
	return nil
}

// RecoveryDiscardCount reports whether the most recent rescan found and
// truncated-away a trailing malformed frame (1) or found a clean tail (0).
func (w *Writer) RecoveryDiscardCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRecoveryDiscard
}

// Reset rescans on-disk frames up to and including upTo (0 = all),
// rebuilding lastEntry and the sparse index.
func (w *Writer) Reset(upTo uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.rescan(upTo)
}

// nextIndexLocked returns the index the next normal append would receive.
func (w *Writer) nextIndexLocked() uint64 {
	if w.lastEntry == nil {
		return w.firstIndex
	}
	return w.lastEntry.Index + 1
}

// NextIndex returns the index the next normal append would receive.
func (w *Writer) NextIndex() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextIndexLocked()
}

// LastIndex returns the index of the last valid entry, or firstIndex-1 if
// the segment holds no records yet.
func (w *Writer) LastIndex() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastIndexLocked()
}

func (w *Writer) lastIndexLocked() uint64 {
	if w.lastEntry == nil {
		return w.firstIndex - 1
	}
	return w.lastEntry.Index
}

// LastRecord returns a copy of the most recently committed record and
// true, or a zero Record and false if the segment holds nothing yet.
func (w *Writer) LastRecord() (record.Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastEntry == nil {
		return record.Record{}, false
	}
	return *w.lastEntry, true
}

// Size returns the current logical write position: the file offset just
// past the last valid frame, descriptor bytes included.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writePos
}

// EntryCount returns the number of valid records currently in the segment.
func (w *Writer) EntryCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entryCount
}

// IsFull reports whether the segment has reached its configured size or
// entry-count ceiling and should no longer accept appends.
func (w *Writer) IsFull() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg.MaxEntries > 0 && w.entryCount >= w.cfg.MaxEntries {
		return true
	}
	return w.writePos >= w.cfg.MaxSegmentSize
}

// Append frames data (with asqn, or record.UnspecifiedAsqn) and appends it
// under the next sequential index.
func (w *Writer) Append(data []byte, asqn int64) (record.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return record.Record{}, ErrClosed
	}
	if len(data) > w.cfg.MaxEntrySize {
		return record.Record{}, ErrTooLarge
	}

	index := w.nextIndexLocked()
	rec, frame, err := w.encodeLocked(index, asqn, data)
	if err != nil {
		return record.Record{}, err
	}
	if w.writePos+int64(len(frame)) > w.cfg.MaxSegmentSize {
		return record.Record{}, ErrOutOfSpace
	}
	if w.cfg.MaxEntries > 0 && w.entryCount+1 > w.cfg.MaxEntries {
		return record.Record{}, ErrOutOfSpace
	}

	if _, err := w.file.WriteAt(frame, w.writePos); err != nil {
		return record.Record{}, err
	}

	w.commitLocked(rec, w.writePos)
	return rec, nil
}

// AppendRecord appends a pre-framed record arriving from replication,
// verifying its checksum and index against this writer's current state.
// A record whose index conflicts with an existing, different record makes
// the writer truncate back and overwrite; a gap ahead of the next index,
// a re-append of the current tail, or an index before this segment's
// range is rejected with ErrInvalidIndex.
func (w *Writer) AppendRecord(rec record.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.appendRecordLocked(rec)
}

func (w *Writer) appendRecordLocked(rec record.Record) error {
	payload := make([]byte, payloadHeaderSizeConst+len(rec.Data))
	record.EncodePayload(payload, rec.Index, rec.Asqn, rec.Data)
	if !record.VerifyChecksum(payload, rec.Checksum) {
		return ErrInvalidChecksum
	}

	if rec.Index < w.firstIndex {
		// Conflicts reaching into an earlier segment are the journal's
		// problem, not this writer's.
		return ErrInvalidIndex
	}

	next := w.nextIndexLocked()
	switch {
	case rec.Index == next:
		frame := make([]byte, record.FrameHeaderSize+len(payload))
		record.EncodeFrame(frame, payload)
		if w.writePos+int64(len(frame)) > w.cfg.MaxSegmentSize {
			return ErrOutOfSpace
		}
		if w.cfg.MaxEntries > 0 && w.entryCount+1 > w.cfg.MaxEntries {
			return ErrOutOfSpace
		}
		if _, err := w.file.WriteAt(frame, w.writePos); err != nil {
			return err
		}
		w.commitLocked(rec, w.writePos)
		return nil

	case rec.Index == w.lastIndexLocked():
		return ErrInvalidIndex

	case rec.Index < next:
		existing, _, err := w.recordAtLocked(rec.Index)
		if err == nil && existing.Equal(rec) {
			return nil
		}
		if err := w.truncateLocked(rec.Index - 1); err != nil {
			return err
		}
		return w.appendRecordLocked(rec)

	default: // rec.Index > next: gap
		return ErrInvalidIndex
	}
}

// encodeLocked builds the record and its on-disk frame for index/asqn/data
// without writing anything, returning the frame sized to fit the current
// scratch buffer.
func (w *Writer) encodeLocked(index uint64, asqn int64, data []byte) (record.Record, []byte, error) {
	payloadLen := payloadHeaderSizeConst + len(data)
	total := record.FrameHeaderSize + payloadLen
	if total > len(w.scratch) {
		w.scratch = make([]byte, total)
	}
	record.EncodePayload(w.scratch[record.FrameHeaderSize:record.FrameHeaderSize+payloadLen], index, asqn, data)
	payload := w.scratch[record.FrameHeaderSize : record.FrameHeaderSize+payloadLen]
	crc := record.Checksum(payload)
	record.EncodeFrame(w.scratch[:total], payload)

	rec := record.Record{Index: index, Asqn: asqn, Data: append([]byte(nil), data...), Checksum: crc}
	return rec, w.scratch[:total], nil
}

// commitLocked updates in-memory state after a frame has been written
// successfully. frameStart is the position the frame began at, used to
// seed the sparse index.
func (w *Writer) commitLocked(rec record.Record, frameStart int64) {
	frameSize := int64(record.FrameHeaderSize + rec.PayloadSize())
	w.writePos = frameStart + frameSize
	w.entryCount++
	r := rec
	w.lastEntry = &r
	w.index.record(rec.Index, frameStart)
}

// recordAtLocked locates and decodes the record stored at index, using the
// sparse index to shortcut the scan when possible and falling back to a
// sequential scan from the start of the segment on a miss.
func (w *Writer) recordAtLocked(index uint64) (record.Record, int64, error) {
	if index < w.firstIndex || (w.lastEntry != nil && index > w.lastEntry.Index) {
		return record.Record{}, 0, ErrInvalidIndex
	}

	pos := int64(DescriptorSize)
	if offset, ok := w.index.lookup(index); ok {
		pos = offset
	}

	header := make([]byte, record.FrameHeaderSize)
	for pos < w.writePos {
		if _, err := w.file.ReadAt(header, pos); err != nil {
			return record.Record{}, 0, err
		}
		length, crc := record.DecodeFrameHeader(header)
		payload := make([]byte, length)
		if _, err := w.file.ReadAt(payload, pos+record.FrameHeaderSize); err != nil {
			return record.Record{}, 0, err
		}
		recIndex, asqn, data, err := record.DecodePayload(payload)
		if err != nil {
			return record.Record{}, 0, err
		}
		frameSize := int64(record.FrameHeaderSize) + int64(length)
		if recIndex == index {
			return record.Record{Index: recIndex, Asqn: asqn, Data: append([]byte(nil), data...), Checksum: crc}, pos, nil
		}
		pos += frameSize
	}
	return record.Record{}, 0, ErrInvalidIndex
}

// Truncate sets the new lastIndex to index, zero-filling frames strictly
// after it in place. An index at or past the current tail is a no-op; an
// index below firstIndex zero-fills the whole live region, leaving an
// empty segment.
func (w *Writer) Truncate(index uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.truncateLocked(index)
}

func (w *Writer) truncateLocked(index uint64) error {
	if index >= w.lastIndexLocked() {
		return nil
	}

	oldEnd := w.writePos
	w.index.truncate(index)

	var newEnd int64
	var newLast *record.Record

	if index < w.firstIndex {
		newEnd = int64(DescriptorSize)
		newLast = nil
	} else {
		rec, pos, err := w.recordAtLocked(index)
		if err != nil {
			return err
		}
		newEnd = pos + int64(record.FrameHeaderSize+rec.PayloadSize())
		r := rec
		newLast = &r
	}

	if err := w.zeroFillLocked(newEnd, oldEnd); err != nil {
		return err
	}

	w.writePos = newEnd
	w.lastEntry = newLast
	w.entryCount = w.countEntriesUpTo(newLast)
	return nil
}

func (w *Writer) countEntriesUpTo(last *record.Record) int64 {
	if last == nil {
		return 0
	}
	return int64(last.Index-w.firstIndex) + 1
}

// zeroFillLocked overwrites [from, to) with zero bytes, keeping the format
// self-delimiting (a zero length word terminates the live region).
func (w *Writer) zeroFillLocked(from, to int64) error {
	if to <= from {
		return nil
	}
	const chunk = 64 * 1024
	zeros := make([]byte, chunk)
	for pos := from; pos < to; pos += chunk {
		n := to - pos
		if n > chunk {
			n = chunk
		}
		if _, err := w.file.WriteAt(zeros[:n], pos); err != nil {
			return err
		}
	}
	return nil
}

// Flush fsyncs the underlying file, promising durability for every frame
// written before it returns.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.file.Sync()
}

// Close closes the underlying file without fsyncing; callers wanting the
// tail durable flush first.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
