package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Segment binds one on-disk log file (with its descriptor) to a writer
// and a reader factory. It is the unit the journal rolls over, deletes,
// and binary-searches by FirstIndex: one file, one writer, metadata
// delegated to the writer.
type Segment struct {
	mu sync.RWMutex

	path       string
	descriptor Descriptor
	cfg        Config
	writer     *Writer
	closed     bool
}

// FileName returns the on-disk name for segment id under name:
// "<name>-<segmentId>.log".
func FileName(name string, id uint64) string {
	return fmt.Sprintf("%s-%d.log", name, id)
}

// Open creates a fresh segment file (writing and fsyncing its descriptor
// before any frame) or reopens an existing one, validating its descriptor
// and rebuilding writer state by rescanning its frames.
func Open(dir, name string, id uint64, firstIndex uint64, cfg Config) (*Segment, error) {
	path := filepath.Join(dir, FileName(name, id))

	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	if isNew {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}
		desc := Descriptor{
			SegmentID:      id,
			FirstIndex:     firstIndex,
			MaxSegmentSize: cfg.MaxSegmentSize,
			MaxEntries:     cfg.MaxEntries,
		}
		header := make([]byte, DescriptorSize)
		desc.Encode(header)
		if _, err := f.WriteAt(header, 0); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}

	desc, err := readDescriptor(path)
	if err != nil {
		return nil, err
	}

	w, err := openWriter(path, desc.FirstIndex, cfg)
	if err != nil {
		return nil, err
	}

	return &Segment{path: path, descriptor: desc, cfg: cfg, writer: w}, nil
}

func readDescriptor(path string) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, err
	}
	defer f.Close()

	header := make([]byte, DescriptorSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return Descriptor{}, err
	}
	return DecodeDescriptor(header)
}

// Path returns the segment's on-disk log file path.
func (s *Segment) Path() string { return s.path }

// Descriptor returns the segment's fixed header.
func (s *Segment) Descriptor() Descriptor { return s.descriptor }

// FirstIndex returns the authoritative first index from this segment's
// descriptor.
func (s *Segment) FirstIndex() uint64 { return s.descriptor.FirstIndex }

// LastIndex delegates to the writer.
func (s *Segment) LastIndex() uint64 { return s.writer.LastIndex() }

// IsFull reports whether the writer has reached its size or entry-count
// ceiling.
func (s *Segment) IsFull() bool { return s.writer.IsFull() }

// RecoveryDiscardCount reports how many trailing malformed frames this
// segment's most recent open discarded (0 or 1; see Writer.RecoveryDiscardCount).
func (s *Segment) RecoveryDiscardCount() int { return s.writer.RecoveryDiscardCount() }

// Writer returns the segment's single writer.
func (s *Segment) Writer() *Writer { return s.writer }

// NewReader opens an independent read cursor over this segment. Multiple
// readers may coexist with each other and with the writer.
func (s *Segment) NewReader() (*Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	return &Reader{seg: s, file: f, pos: int64(DescriptorSize)}, nil
}

// Close closes the writer's file handle. Readers already opened against
// this segment keep reading through their own file handles; NewReader
// fails with ErrClosed once the segment is closed.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

// Delete closes and removes the segment's log file from disk.
func (s *Segment) Delete() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		_ = s.writer.Close()
	}
	path := s.path
	s.mu.Unlock()
	return os.Remove(path)
}
