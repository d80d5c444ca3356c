package segment_test

import (
	"fmt"
	"io"
	"testing"

	"github.com/downfa11-org/segjournal/pkg/record"
	"github.com/downfa11-org/segjournal/pkg/segment"
)

func TestReaderReadsBackWhatWasWritten(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()

	var want [][]byte
	for i := 0; i < 10; i++ {
		data := []byte(fmt.Sprintf("record-%d", i))
		if _, err := w.Append(data, int64(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		want = append(want, data)
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	for i, exp := range want {
		if !r.HasNext() {
			t.Fatalf("HasNext false before record %d", i)
		}
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next() #%d: %v", i, err)
		}
		if rec.Index != uint64(i+1) {
			t.Fatalf("record #%d index = %d, want %d", i, rec.Index, i+1)
		}
		if string(rec.Data) != string(exp) {
			t.Fatalf("record #%d data = %q, want %q", i, rec.Data, exp)
		}
	}
	if r.HasNext() {
		t.Fatalf("HasNext true after last record")
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() past end = %v, want io.EOF", err)
	}
}

func TestReaderDoesNotSeeUnflushedTailBeyondWriterSize(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	if _, err := w.Append([]byte("visible"), record.UnspecifiedAsqn); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(rec.Data) != "visible" {
		t.Fatalf("data = %q, want visible", rec.Data)
	}
	if r.HasNext() {
		t.Fatalf("HasNext should be false: writer has not appended more")
	}
}

func TestReaderResetSeeksToIndex(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	for i := 0; i < 20; i++ {
		if _, err := w.Append([]byte(fmt.Sprintf("v%d", i)), record.UnspecifiedAsqn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if err := r.Reset(15); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next after Reset: %v", err)
	}
	if rec.Index != 15 {
		t.Fatalf("index after Reset(15) = %d, want 15", rec.Index)
	}
}

func TestReaderSeekToLast(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	for i := 0; i < 7; i++ {
		if _, err := w.Append([]byte("x"), record.UnspecifiedAsqn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	idx, err := r.SeekToLast()
	if err != nil {
		t.Fatalf("SeekToLast: %v", err)
	}
	if idx != 7 {
		t.Fatalf("SeekToLast index = %d, want 7", idx)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next after SeekToLast: %v", err)
	}
	if rec.Index != 7 {
		t.Fatalf("Next().Index after SeekToLast = %d, want 7", rec.Index)
	}
	if r.HasNext() {
		t.Fatalf("HasNext true after reading the last record")
	}
}

func TestReaderSeekToLastEmptySegment(t *testing.T) {
	seg := openSeg(t, 1)
	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if _, err := r.SeekToLast(); err != segment.ErrNotFound {
		t.Fatalf("SeekToLast on empty segment = %v, want ErrNotFound", err)
	}
}

func TestReaderSeekToAsqn(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	asqns := []int64{10, 10, 20, 30, 40}
	for _, a := range asqns {
		if _, err := w.Append([]byte("x"), a); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	rec, err := r.SeekToAsqn(25)
	if err != nil {
		t.Fatalf("SeekToAsqn(25): %v", err)
	}
	if rec.Asqn != 20 || rec.Index != 3 {
		t.Fatalf("SeekToAsqn(25) = index %d asqn %d, want index 3 asqn 20", rec.Index, rec.Asqn)
	}

	next, err := r.Next()
	if err != nil {
		t.Fatalf("Next after SeekToAsqn: %v", err)
	}
	if next.Index != 3 {
		t.Fatalf("Next after SeekToAsqn index = %d, want 3 (re-read the qualifying record)", next.Index)
	}
}

func TestReaderSeekToAsqnSkipsUnspecified(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	asqns := []int64{10, record.UnspecifiedAsqn, 20, record.UnspecifiedAsqn}
	for _, a := range asqns {
		if _, err := w.Append([]byte("x"), a); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	rec, err := r.SeekToAsqn(25)
	if err != nil {
		t.Fatalf("SeekToAsqn(25): %v", err)
	}
	if rec.Index != 3 || rec.Asqn != 20 {
		t.Fatalf("SeekToAsqn(25) = index %d asqn %d, want index 3 asqn 20", rec.Index, rec.Asqn)
	}

	rec, err = r.SeekToAsqn(15)
	if err != nil {
		t.Fatalf("SeekToAsqn(15): %v", err)
	}
	if rec.Index != 1 || rec.Asqn != 10 {
		t.Fatalf("SeekToAsqn(15) = index %d asqn %d, want index 1 asqn 10", rec.Index, rec.Asqn)
	}
}

func TestReaderSeekToAsqnNoneQualify(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	if _, err := w.Append([]byte("x"), 50); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if _, err := r.SeekToAsqn(10); err != segment.ErrNotFound {
		t.Fatalf("SeekToAsqn with none qualifying = %v, want ErrNotFound", err)
	}
}

func TestMultipleReadersIndependentFromWriterAndEachOther(t *testing.T) {
	seg := openSeg(t, 1)
	w := seg.Writer()
	for i := 0; i < 3; i++ {
		if _, err := w.Append([]byte("x"), record.UnspecifiedAsqn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r1, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader r1: %v", err)
	}
	defer r1.Close()
	r2, err := seg.NewReader()
	if err != nil {
		t.Fatalf("NewReader r2: %v", err)
	}
	defer r2.Close()

	if _, err := r1.Next(); err != nil {
		t.Fatalf("r1.Next: %v", err)
	}
	if _, err := r1.Next(); err != nil {
		t.Fatalf("r1.Next: %v", err)
	}

	rec, err := r2.Next()
	if err != nil {
		t.Fatalf("r2.Next: %v", err)
	}
	if rec.Index != 1 {
		t.Fatalf("r2 (fresh reader) first record index = %d, want 1", rec.Index)
	}

	if _, err := w.Append([]byte("new"), record.UnspecifiedAsqn); err != nil {
		t.Fatalf("Append while readers open: %v", err)
	}
	if !r1.HasNext() {
		t.Fatalf("r1 should observe the new append")
	}
}
