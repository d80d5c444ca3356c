package segment_test

import (
	"os"
	"testing"

	"github.com/downfa11-org/segjournal/pkg/record"
	"github.com/downfa11-org/segjournal/pkg/segment"
)

func TestOpenWritesDescriptorForFreshSegment(t *testing.T) {
	dir := t.TempDir()
	seg, err := segment.Open(dir, "journal", 3, 101, testConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	desc := seg.Descriptor()
	if desc.SegmentID != 3 {
		t.Fatalf("SegmentID = %d, want 3", desc.SegmentID)
	}
	if desc.FirstIndex != 101 {
		t.Fatalf("FirstIndex = %d, want 101", desc.FirstIndex)
	}
	if seg.FirstIndex() != 101 {
		t.Fatalf("Segment.FirstIndex() = %d, want 101", seg.FirstIndex())
	}
	if got := seg.Writer().LastIndex(); got != 100 {
		t.Fatalf("fresh segment LastIndex = %d, want firstIndex-1 = 100", got)
	}
}

func TestOpenRejectsForeignDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/journal-1.log"
	if err := os.WriteFile(path, []byte("not a segment file, just garbage bytes padded out"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := segment.Open(dir, "journal", 1, 1, testConfig()); err != segment.ErrInvalidDescriptor {
		t.Fatalf("Open(foreign file) = %v, want ErrInvalidDescriptor", err)
	}
}

func TestSegmentDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	seg, err := segment.Open(dir, "journal", 1, 1, testConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path := seg.Path()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist before delete: %v", err)
	}
	if err := seg.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
}

func TestSegmentCloseIsIdempotent(t *testing.T) {
	seg := openSeg(t, 1)
	if err := seg.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewReaderAfterCloseFails(t *testing.T) {
	dir := t.TempDir()
	seg, err := segment.Open(dir, "journal", 1, 1, testConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := seg.NewReader(); err != segment.ErrClosed {
		t.Fatalf("NewReader after Close = %v, want ErrClosed", err)
	}
}

func TestTornTailDiscardedOnReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	seg, err := segment.Open(dir, "journal", 1, 1, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w := seg.Writer()
	for i := 0; i < 3; i++ {
		if _, err := w.Append([]byte("good"), record.UnspecifiedAsqn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	path := seg.Path()
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a crash mid-write: append a truncated frame header past the
	// last good record, with no payload backing it.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	torn := []byte{0xff, 0x00, 0x00, 0x00, 0xde, 0xad, 0xbe, 0xef}
	if _, err := f.WriteAt(torn, info.Size()); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := segment.Open(dir, "journal", 1, 1, cfg)
	if err != nil {
		t.Fatalf("reopen after torn tail: %v", err)
	}
	defer reopened.Close()

	if got := reopened.Writer().LastIndex(); got != 3 {
		t.Fatalf("LastIndex after recovering torn tail = %d, want 3", got)
	}

	rec, err := reopened.Writer().Append([]byte("resumed"), record.UnspecifiedAsqn)
	if err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
	if rec.Index != 4 {
		t.Fatalf("post-recovery append index = %d, want 4", rec.Index)
	}
}
