package segment

import (
	"sort"
	"sync"
)

// indexEntry is one sparse-index record: a journal index mapped to the
// byte offset, within the owning segment's log file, of the frame that
// begins that index.
type indexEntry struct {
	index  uint64
	offset int64
}

// sparseIndex is the in-memory, lossy cache from journal index to file
// offset. It is populated every density-th successful append and
// consulted only to shortcut seeks: every lookup miss falls back to a
// sequential scan performed by the caller. It holds no durable state and
// is rebuilt from disk whenever the writer rescans.
//
// The writer mutates it under its own lock while readers consult it
// concurrently, so it carries its own RWMutex.
type sparseIndex struct {
	mu      sync.RWMutex
	density int
	entries []indexEntry
}

func newSparseIndex(density int) *sparseIndex {
	if density <= 0 {
		density = 1
	}
	return &sparseIndex{density: density}
}

// record stores an entry for rec's index and offset if it aligns on the
// configured density. It must never be called out of index order.
func (s *sparseIndex) record(index uint64, offset int64) {
	if index%uint64(s.density) != 0 {
		return
	}
	s.mu.Lock()
	s.entries = append(s.entries, indexEntry{index: index, offset: offset})
	s.mu.Unlock()
}

// lookup returns the offset of the greatest recorded entry with
// index <= target, and ok=false if the sparse index has nothing that low
// (the caller must then scan from the start of the segment).
func (s *sparseIndex) lookup(target uint64) (offset int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// entries is sorted ascending by construction (append-only, in index
	// order); sort.Search finds the first entry whose index exceeds
	// target, then steps back one.
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].index > target
	})
	if i == 0 {
		return 0, false
	}
	return s.entries[i-1].offset, true
}

// truncate drops every entry recorded for an index greater than afterIndex.
func (s *sparseIndex) truncate(afterIndex uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].index > afterIndex
	})
	s.entries = s.entries[:i]
}

// reset discards all entries, used when a writer rebuilds its view of a
// segment from scratch (recovery on open).
func (s *sparseIndex) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}
