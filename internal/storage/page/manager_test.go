package page

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestAllocatePage_DenseAndSequential(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "t.db"), 4096)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	for i := 0; i < 5; i++ {
		id, err := m.AllocatePage()
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if id != ID(i) {
			t.Fatalf("expected dense id %d, got %d", i, id)
		}
	}
	if m.PageCount() != 5 {
		t.Fatalf("expected page count 5, got %d", m.PageCount())
	}
}

func TestReadWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "t.db"), 4096)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	want := bytes.Repeat([]byte{0xAB}, 4096)
	if err := m.Write(id, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, 4096)
	if err := m.Read(id, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestFileLength_AlwaysMultipleOfPageSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.db")
	m, err := Open(path, 4096)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.AllocatePage(); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}
	m.Close()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size()%4096 != 0 {
		t.Fatalf("file size %d is not a multiple of page size", fi.Size())
	}
	if fi.Size() != 3*4096 {
		t.Fatalf("expected size %d, got %d", 3*4096, fi.Size())
	}
}

func TestOpen_RejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.db")
	if err := os.WriteFile(path, make([]byte, 100), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := Open(path, 4096); err == nil {
		t.Fatal("expected error opening a file whose length is not a multiple of page_size")
	}
}

func TestReadPastEndOfFile_Fails(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "t.db"), 4096)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	buf := make([]byte, 4096)
	if err := m.Read(ID(9), buf); err == nil {
		t.Fatal("expected I/O error reading an unallocated page")
	}
}
