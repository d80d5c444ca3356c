package journal

import (
	"io"

	"github.com/downfa11-org/segjournal/pkg/record"
	"github.com/downfa11-org/segjournal/pkg/segment"
)

// Reader is a forward-only cursor over the whole journal, transparently
// advancing across segment boundaries. It is tied to the generation of
// the journal at the time it was created: a subsequent Reset or truncation
// invalidates it and the caller must re-open.
type Reader struct {
	j      *Journal
	gen    int
	segIdx int
	cur    *segment.Reader
	closed bool
}

// OpenReader opens a reader positioned at the start of the journal's
// current first segment.
func (j *Journal) OpenReader() (*Reader, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}
	sr, err := j.segments[0].NewReader()
	if err != nil {
		return nil, err
	}
	return &Reader{j: j, gen: j.generation, segIdx: 0, cur: sr}, nil
}

func (r *Reader) checkLive() error {
	if r.closed {
		return ErrClosed
	}
	r.j.mu.RLock()
	gen, closed := r.j.generation, r.j.closed
	r.j.mu.RUnlock()
	if closed || gen != r.gen {
		return ErrClosed
	}
	return nil
}

// advance switches the cursor to the next segment if the current one is
// exhausted, returning ok=false once there is nothing left to advance to.
func (r *Reader) advance() (ok bool, err error) {
	r.j.mu.RLock()
	nextIdx := r.segIdx + 1
	hasNext := nextIdx < len(r.j.segments)
	var next *segment.Segment
	if hasNext {
		next = r.j.segments[nextIdx]
	}
	r.j.mu.RUnlock()
	if !hasNext {
		return false, nil
	}
	nr, err := next.NewReader()
	if err != nil {
		return false, err
	}
	_ = r.cur.Close()
	r.cur = nr
	r.segIdx = nextIdx
	return true, nil
}

// HasNext reports whether Next would currently return a record.
func (r *Reader) HasNext() bool {
	if err := r.checkLive(); err != nil {
		return false
	}
	for {
		if r.cur.HasNext() {
			return true
		}
		ok, err := r.advance()
		if err != nil || !ok {
			return false
		}
	}
}

// Next decodes and returns the next record, crossing into the following
// segment transparently when the current one is exhausted.
func (r *Reader) Next() (record.Record, error) {
	if err := r.checkLive(); err != nil {
		return record.Record{}, err
	}
	for {
		rec, err := r.cur.Next()
		if err == nil {
			return rec, nil
		}
		if err != io.EOF {
			return record.Record{}, err
		}
		ok, aerr := r.advance()
		if aerr != nil {
			return record.Record{}, aerr
		}
		if !ok {
			return record.Record{}, io.EOF
		}
	}
}

// Reset positions the cursor at the start of the frame holding index,
// binary-searching the owning segment first.
func (r *Reader) Reset(index uint64) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.j.mu.RLock()
	idx := r.j.findSegmentLocked(index)
	seg := r.j.segments[idx]
	r.j.mu.RUnlock()

	sr, err := seg.NewReader()
	if err != nil {
		return err
	}
	if err := sr.Reset(index); err != nil {
		sr.Close()
		return err
	}
	_ = r.cur.Close()
	r.cur = sr
	r.segIdx = idx
	return nil
}

// SeekToLast positions the cursor so Next returns the journal's last
// record, and returns that record's index.
func (r *Reader) SeekToLast() (uint64, error) {
	if err := r.checkLive(); err != nil {
		return 0, err
	}
	r.j.mu.RLock()
	// The active segment may be empty right after a rollover, so locate
	// the segment that holds the journal's last index.
	lastIdx := r.j.findSegmentLocked(r.j.lastIndexLocked())
	seg := r.j.segments[lastIdx]
	empty := r.j.lastIndexLocked() < r.j.segments[0].FirstIndex()
	r.j.mu.RUnlock()
	if empty {
		return 0, ErrEmpty
	}

	sr, err := seg.NewReader()
	if err != nil {
		return 0, err
	}
	idx, err := sr.SeekToLast()
	if err != nil {
		sr.Close()
		return 0, err
	}
	_ = r.cur.Close()
	r.cur = sr
	r.segIdx = lastIdx
	return idx, nil
}

// SeekToAsqn scans forward across segments for the last record with
// asqn <= target, since asqn is monotonic non-decreasing across the whole
// journal. It returns segment.ErrNotFound if none qualify.
func (r *Reader) SeekToAsqn(target int64) (record.Record, error) {
	if err := r.checkLive(); err != nil {
		return record.Record{}, err
	}
	r.j.mu.RLock()
	segs := append([]*segment.Segment(nil), r.j.segments...)
	r.j.mu.RUnlock()

	var best record.Record
	bestIdx := -1

	for i, seg := range segs {
		sr, err := seg.NewReader()
		if err != nil {
			return record.Record{}, err
		}
		rec, serr := sr.SeekToAsqn(target)
		sr.Close()
		if serr == nil {
			best, bestIdx = rec, i
			continue
		}
		if serr != segment.ErrNotFound {
			return record.Record{}, serr
		}
	}

	if bestIdx < 0 {
		return record.Record{}, segment.ErrNotFound
	}

	seg := segs[bestIdx]
	sr, err := seg.NewReader()
	if err != nil {
		return record.Record{}, err
	}
	if _, err := sr.SeekToAsqn(target); err != nil {
		sr.Close()
		return record.Record{}, err
	}
	_ = r.cur.Close()
	r.cur = sr
	r.segIdx = bestIdx
	return best, nil
}

// Close releases the reader's current segment file handle.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.cur.Close()
}
