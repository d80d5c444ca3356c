// Package journal implements the segmented journal and its public facade:
// an ordered list of segments keyed by firstIndex, recovered on open,
// rolled over on demand, with a single exclusive lock serializing
// append/truncate/reset/rollover.
package journal

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/downfa11-org/segjournal/pkg/metrics"
	"github.com/downfa11-org/segjournal/pkg/record"
	"github.com/downfa11-org/segjournal/pkg/segment"
)

// Journal manages the ordered collection of segments and exposes the
// append/read/truncate/reset/flush entry points.
type Journal struct {
	mu sync.RWMutex

	dir    string
	name   string
	segCfg segment.Config

	segments      []*segment.Segment // ordered ascending by FirstIndex
	active        *segment.Segment
	nextSegmentID uint64
	lastAsqn      int64
	generation    int
	closed        bool
}

var segmentFileRe = regexp.MustCompile(`^(.+)-(\d+)\.log$`)

// Open recovers (or creates) a journal rooted at cfg.Directory: scan the
// directory, sort segments by firstIndex, validate the chain has no gaps,
// and rely on each segment's own eager rescan to have already discarded
// any torn tail.
func Open(cfg Config) (*Journal, error) {
	cfg = cfg.normalize()
	if cfg.Directory == "" {
		return nil, fmt.Errorf("journal: directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(cfg.Directory)
	if err != nil {
		return nil, err
	}

	var ids []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := segmentFileRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != cfg.Name {
			continue
		}
		id, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			continue
		}
		if info, err := e.Info(); err == nil && info.Size() == 0 {
			// A crash between file creation and the descriptor write
			// leaves an empty file; it holds nothing recoverable.
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	j := &Journal{
		dir:      cfg.Directory,
		name:     cfg.Name,
		segCfg:   cfg.segmentConfig(),
		lastAsqn: record.UnspecifiedAsqn,
	}

	if len(ids) == 0 {
		seg, err := segment.Open(j.dir, j.name, 1, 1, j.segCfg)
		if err != nil {
			return nil, err
		}
		j.segments = []*segment.Segment{seg}
		j.active = seg
		j.nextSegmentID = 2
		metrics.SetSegmentCount(1)
		if n := seg.RecoveryDiscardCount(); n > 0 {
			metrics.RecordRecoveryDiscard(n)
		}
		return j, nil
	}

	segs := make([]*segment.Segment, 0, len(ids))
	discarded := 0
	for _, id := range ids {
		seg, err := segment.Open(j.dir, j.name, id, 0, j.segCfg)
		if err != nil {
			for _, s := range segs {
				_ = s.Close()
			}
			return nil, err
		}
		discarded += seg.RecoveryDiscardCount()
		segs = append(segs, seg)
	}
	sort.Slice(segs, func(i, k int) bool { return segs[i].FirstIndex() < segs[k].FirstIndex() })

	for i := 1; i < len(segs); i++ {
		if segs[i-1].LastIndex()+1 != segs[i].FirstIndex() {
			for _, s := range segs {
				_ = s.Close()
			}
			return nil, ErrCorruptJournal
		}
	}

	j.segments = segs
	j.active = segs[len(segs)-1]
	j.nextSegmentID = j.active.Descriptor().SegmentID + 1
	if rec, ok := j.active.Writer().LastRecord(); ok {
		j.lastAsqn = rec.Asqn
	} else if len(segs) > 1 {
		// Crash between rollover and the first append into the new tail:
		// the asqn high-water mark lives in the sealed segment before it.
		if rec, ok := segs[len(segs)-2].Writer().LastRecord(); ok {
			j.lastAsqn = rec.Asqn
		}
	}
	metrics.SetSegmentCount(len(j.segments))
	if discarded > 0 {
		metrics.RecordRecoveryDiscard(discarded)
	}
	return j, nil
}

func (j *Journal) lastIndexLocked() uint64 { return j.active.Writer().LastIndex() }

// GetFirstIndex returns the journal's overall first index.
func (j *Journal) GetFirstIndex() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.segments[0].FirstIndex()
}

// GetLastIndex returns the journal's overall last index.
func (j *Journal) GetLastIndex() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastIndexLocked()
}

// IsEmpty reports whether the journal holds zero records.
func (j *Journal) IsEmpty() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastIndexLocked() < j.segments[0].FirstIndex()
}

// IsOpen reports whether Close has not yet been called.
func (j *Journal) IsOpen() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return !j.closed
}

// Append assigns the next sequential index and record.UnspecifiedAsqn.
func (j *Journal) Append(payload []byte) (record.Record, error) {
	return j.appendWithAsqn(payload, record.UnspecifiedAsqn, false)
}

// AppendAsqn assigns the next sequential index and the given asqn, which
// must exceed the last record's asqn whenever that asqn was specified.
func (j *Journal) AppendAsqn(payload []byte, asqn int64) (record.Record, error) {
	return j.appendWithAsqn(payload, asqn, true)
}

func (j *Journal) appendWithAsqn(payload []byte, asqn int64, checkAsqn bool) (record.Record, error) {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return record.Record{}, ErrClosed
	}
	if checkAsqn && j.lastAsqn != record.UnspecifiedAsqn && asqn <= j.lastAsqn {
		return record.Record{}, ErrInvalidAsqn
	}

	rec, err := j.active.Writer().Append(payload, asqn)
	if err != nil {
		if err != segment.ErrOutOfSpace {
			return record.Record{}, err
		}
		if rollErr := j.rollLocked(); rollErr != nil {
			return record.Record{}, rollErr
		}
		rec, err = j.active.Writer().Append(payload, asqn)
		if err != nil {
			if err == segment.ErrOutOfSpace {
				return record.Record{}, ErrEntryTooLarge
			}
			return record.Record{}, err
		}
	} else if j.active.IsFull() {
		// Accepted, but the segment is now full: roll eagerly so the next
		// append doesn't pay for the OutOfSpace round trip.
		_ = j.rollLocked()
	}

	j.lastAsqn = rec.Asqn
	metrics.RecordAppend(len(payload), time.Since(start).Seconds())
	return rec, nil
}

// AppendRecord appends a pre-framed record arriving from replication,
// rolling over on OutOfSpace exactly once. A record whose index conflicts
// with entries in an earlier, sealed segment first truncates the journal
// back to just before that index, then appends into the new tail.
func (j *Journal) AppendRecord(rec record.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	if rec.Index < j.segments[0].FirstIndex() {
		return segment.ErrInvalidIndex
	}
	if rec.Index < j.active.FirstIndex() {
		// The conflict reaches into a sealed segment. Validate the record
		// before touching anything: a rejected append must leave the
		// journal unchanged.
		payload := make([]byte, rec.PayloadSize())
		record.EncodePayload(payload, rec.Index, rec.Asqn, rec.Data)
		if !record.VerifyChecksum(payload, rec.Checksum) {
			return segment.ErrInvalidChecksum
		}
		if rec.Index == j.lastIndexLocked() {
			return segment.ErrInvalidIndex
		}
		existing, ok := j.recordAtLocked(rec.Index)
		if ok && existing.Equal(rec) {
			return nil
		}
		if err := j.deleteAfterLocked(rec.Index - 1); err != nil {
			return err
		}
	}

	err := j.active.Writer().AppendRecord(rec)
	if err == segment.ErrOutOfSpace {
		if rollErr := j.rollLocked(); rollErr != nil {
			return rollErr
		}
		err = j.active.Writer().AppendRecord(rec)
		if err == segment.ErrOutOfSpace {
			return ErrEntryTooLarge
		}
	}
	if err != nil {
		return err
	}
	j.lastAsqn = rec.Asqn
	return nil
}

// rollLocked seals the active segment (flushing it) and opens a fresh one.
func (j *Journal) rollLocked() error {
	if err := j.active.Writer().Flush(); err != nil {
		return err
	}
	firstIndex := j.lastIndexLocked() + 1
	id := j.nextSegmentID
	seg, err := segment.Open(j.dir, j.name, id, firstIndex, j.segCfg)
	if err != nil {
		return err
	}
	j.nextSegmentID++
	j.segments = append(j.segments, seg)
	j.active = seg
	metrics.RecordSegmentRoll(len(j.segments))
	return nil
}

// findSegmentLocked returns the index into j.segments whose range contains
// target, via binary search over each segment's FirstIndex.
func (j *Journal) findSegmentLocked(target uint64) int {
	segs := j.segments
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].FirstIndex() > target
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// SegmentInfo describes one on-disk segment file for offline tooling.
type SegmentInfo struct {
	Path       string
	SegmentID  uint64
	FirstIndex uint64
	LastIndex  uint64
}

// SegmentInfos returns a snapshot of the journal's current segment files
// in index order.
func (j *Journal) SegmentInfos() []SegmentInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	infos := make([]SegmentInfo, 0, len(j.segments))
	for _, seg := range j.segments {
		infos = append(infos, SegmentInfo{
			Path:       seg.Path(),
			SegmentID:  seg.Descriptor().SegmentID,
			FirstIndex: seg.FirstIndex(),
			LastIndex:  seg.LastIndex(),
		})
	}
	return infos
}

// recordAtLocked reads back the record currently stored at index, or
// ok=false if no valid record lives there.
func (j *Journal) recordAtLocked(index uint64) (record.Record, bool) {
	seg := j.segments[j.findSegmentLocked(index)]
	sr, err := seg.NewReader()
	if err != nil {
		return record.Record{}, false
	}
	defer sr.Close()
	if err := sr.Reset(index); err != nil {
		return record.Record{}, false
	}
	rec, err := sr.Next()
	if err != nil || rec.Index != index {
		return record.Record{}, false
	}
	return rec, true
}

// DeleteAfter truncates the journal so that index becomes its new last
// index: whole trailing segments with FirstIndex > index are deleted, and
// the segment now holding the tail is truncated in place. An index below
// the journal's first index empties the earliest segment rather than
// deleting it, so the journal always retains at least one segment.
func (j *Journal) DeleteAfter(index uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return j.deleteAfterLocked(index)
}

func (j *Journal) deleteAfterLocked(index uint64) error {
	if index >= j.lastIndexLocked() {
		return nil
	}

	var keep []*segment.Segment
	var toDelete []*segment.Segment
	for i, seg := range j.segments {
		if i > 0 && seg.FirstIndex() > index {
			toDelete = append(toDelete, seg)
			continue
		}
		keep = append(keep, seg)
	}
	for _, seg := range toDelete {
		if err := seg.Delete(); err != nil {
			return err
		}
	}
	j.segments = keep

	tail := j.segments[len(j.segments)-1]
	if err := tail.Writer().Truncate(index); err != nil {
		return err
	}
	j.active = tail
	if rec, ok := tail.Writer().LastRecord(); ok {
		j.lastAsqn = rec.Asqn
	} else {
		j.lastAsqn = record.UnspecifiedAsqn
	}
	j.generation++
	metrics.SetSegmentCount(len(j.segments))
	return nil
}

// DeleteUntil retires whole sealed segments whose LastIndex < index; the
// segment currently holding index, and the active segment, are retained.
func (j *Journal) DeleteUntil(index uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	var keep []*segment.Segment
	for i, seg := range j.segments {
		if i == len(j.segments)-1 {
			keep = append(keep, seg)
			continue
		}
		if seg.LastIndex() < index {
			if err := seg.Delete(); err != nil {
				return err
			}
			continue
		}
		keep = append(keep, seg)
	}
	j.segments = keep
	j.generation++
	metrics.SetSegmentCount(len(j.segments))
	return nil
}

// Reset discards every segment and starts a fresh, empty active segment
// at newFirstIndex. Readers created before Reset observe ErrClosed on
// their next operation and must re-open.
func (j *Journal) Reset(newFirstIndex uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	for _, seg := range j.segments {
		if err := seg.Delete(); err != nil {
			return err
		}
	}

	seg, err := segment.Open(j.dir, j.name, 1, newFirstIndex, j.segCfg)
	if err != nil {
		return err
	}
	j.segments = []*segment.Segment{seg}
	j.active = seg
	j.nextSegmentID = 2
	j.lastAsqn = record.UnspecifiedAsqn
	j.generation++
	metrics.SetSegmentCount(1)
	return nil
}

// Flush fsyncs the active segment.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.active.Writer().Flush(); err != nil {
		return err
	}
	metrics.RecordFlush()
	return nil
}

// Close flushes and closes every segment's writer. Open readers are
// unaffected until they try to use a closed journal's segment list.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	j.generation++
	var first error
	for _, seg := range j.segments {
		if err := seg.Writer().Flush(); err != nil && first == nil {
			first = err
		}
		if err := seg.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
