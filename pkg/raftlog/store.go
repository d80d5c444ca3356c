// Package raftlog adapts the journal facade to hashicorp/raft's
// raft.LogStore interface. It is a seam, not a consensus implementation:
// leader election, vote counting and snapshotting remain entirely outside
// this package.
package raftlog

import (
	"fmt"

	"github.com/hashicorp/raft"

	"github.com/downfa11-org/segjournal/pkg/journal"
	"github.com/downfa11-org/segjournal/pkg/record"
)

// Store implements raft.LogStore over a *journal.Journal. It deliberately
// does not implement raft.StableStore or raft.SnapshotStore: those carry
// term/vote state and snapshot bookkeeping, which are consensus-protocol
// concerns out of this repository's scope.
type Store struct {
	j *journal.Journal
}

// NewStore wraps an already-open journal as a raft.LogStore.
func NewStore(j *journal.Journal) *Store {
	return &Store{j: j}
}

var _ raft.LogStore = (*Store)(nil)

// FirstIndex returns 0 if the journal holds no entries, matching
// raft.LogStore's convention, else the journal's first retained index.
func (s *Store) FirstIndex() (uint64, error) {
	if s.j.IsEmpty() {
		return 0, nil
	}
	return s.j.GetFirstIndex(), nil
}

// LastIndex returns 0 if the journal holds no entries, else the index of
// the most recently stored log.
func (s *Store) LastIndex() (uint64, error) {
	if s.j.IsEmpty() {
		return 0, nil
	}
	return s.j.GetLastIndex(), nil
}

// GetLog populates log with the entry at index, or raft.ErrLogNotFound if
// no such entry is currently retained.
func (s *Store) GetLog(index uint64, log *raft.Log) error {
	r, err := s.j.OpenReader()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Reset(index); err != nil {
		return err
	}
	if !r.HasNext() {
		return raft.ErrLogNotFound
	}
	rec, err := r.Next()
	if err != nil {
		return err
	}
	if rec.Index != index {
		return raft.ErrLogNotFound
	}
	decodeLog(rec, log)
	return nil
}

// StoreLog appends one raft log entry via the journal's replication path
// (append(record)), which ignores an entry identical to one the journal
// already holds before its last index and truncates-and-overwrites on a
// conflicting one — the semantics raft's own leader-change protocol
// requires. Re-sending the current last entry is rejected with
// segment.ErrInvalidIndex.
func (s *Store) StoreLog(log *raft.Log) error {
	return s.j.AppendRecord(toRecord(log))
}

// StoreLogs appends a batch of raft log entries in order, stopping at the
// first failure.
func (s *Store) StoreLogs(logs []*raft.Log) error {
	for _, log := range logs {
		if err := s.j.AppendRecord(toRecord(log)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRange maps onto the journal's DeleteUntil/DeleteAfter depending
// on which bound touches the journal's current head or tail; a range that
// touches neither cannot be expressed over a gapless journal.
func (s *Store) DeleteRange(min, max uint64) error {
	if s.j.IsEmpty() {
		return nil
	}
	first := s.j.GetFirstIndex()
	last := s.j.GetLastIndex()

	switch {
	case min <= first:
		return s.j.DeleteUntil(max + 1)
	case max >= last:
		return s.j.DeleteAfter(min - 1)
	default:
		return fmt.Errorf("raftlog: DeleteRange(%d, %d) touches neither the journal's head nor its tail", min, max)
	}
}

// raft's Term is monotonically non-decreasing for the lifetime of a log,
// the same property the journal requires of an asqn, so a raft.Log's Term
// is carried as the record's asqn. SeekToAsqn can then locate a term
// boundary without a secondary index.
func toRecord(log *raft.Log) record.Record {
	data := encodeEntry(log)
	payload := make([]byte, 16+len(data))
	record.EncodePayload(payload, log.Index, int64(log.Term), data)
	return record.Record{
		Index:    log.Index,
		Asqn:     int64(log.Term),
		Data:     data,
		Checksum: record.Checksum(payload),
	}
}

func decodeLog(rec record.Record, out *raft.Log) {
	out.Index = rec.Index
	out.Term = uint64(rec.Asqn)
	out.Type, out.Data = decodeEntry(rec.Data)
}

// encodeEntry packs a raft.Log's Type ahead of its opaque Data, since the
// journal's own payload has no room for raft-specific fields.
func encodeEntry(log *raft.Log) []byte {
	buf := make([]byte, 1+len(log.Data))
	buf[0] = byte(log.Type)
	copy(buf[1:], log.Data)
	return buf
}

func decodeEntry(buf []byte) (raft.LogType, []byte) {
	if len(buf) == 0 {
		return raft.LogCommand, nil
	}
	return raft.LogType(buf[0]), append([]byte(nil), buf[1:]...)
}
