package buffer

import (
	"path/filepath"
	"testing"

	"github.com/beedb-project/beedb/internal/storage/page"
)

func newTestManager(t *testing.T, pages int) *page.Manager {
	t.Helper()
	mgr, err := page.Open(filepath.Join(t.TempDir(), "t.db"), 4096)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < pages; i++ {
		if _, err := mgr.AllocatePage(); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}
	return mgr
}

func TestPool_PinUnpin_PinCountInvariant(t *testing.T) {
	mgr := newTestManager(t, 4)
	pool := New(mgr, 3, NewClockStrategy(3))

	p0, err := pool.Pin(page.ID(0))
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if _, err := pool.Pin(page.ID(1)); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if pool.PinCountSum() != 2 {
		t.Fatalf("expected pin count sum 2, got %d", pool.PinCountSum())
	}
	if err := pool.Unpin(p0.ID, false); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if pool.PinCountSum() != 1 {
		t.Fatalf("expected pin count sum 1, got %d", pool.PinCountSum())
	}
}

func TestPool_UnpinWithoutPin_Fails(t *testing.T) {
	mgr := newTestManager(t, 2)
	pool := New(mgr, 2, NewClockStrategy(2))
	if err := pool.Unpin(page.ID(0), false); err == nil {
		t.Fatal("expected error unpinning a page that was never pinned")
	}
}

func TestPool_NoFreeFrame_WhenAllPinned(t *testing.T) {
	mgr := newTestManager(t, 3)
	pool := New(mgr, 2, NewClockStrategy(2))
	if _, err := pool.Pin(page.ID(0)); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if _, err := pool.Pin(page.ID(1)); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if _, err := pool.Pin(page.ID(2)); err == nil {
		t.Fatal("expected no-free-frame error")
	}
}

func TestPool_EvictionWritesBackDirtyPage(t *testing.T) {
	mgr := newTestManager(t, 3)
	pool := New(mgr, 1, NewClockStrategy(1))

	p0, err := pool.Pin(page.ID(0))
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	copy(p0.Bytes, []byte("hello-world-dirty-page-contents"))
	if err := pool.Unpin(p0.ID, true); err != nil {
		t.Fatalf("unpin: %v", err)
	}

	// Pinning a different page forces eviction of page 0, which must be
	// written back because it was marked dirty.
	if _, err := pool.Pin(page.ID(1)); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if pool.EvictedFrames() == 0 {
		t.Fatal("expected at least one eviction")
	}

	raw := make([]byte, 4096)
	if err := mgr.Read(page.ID(0), raw); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(raw[:32]) != "hello-world-dirty-page-contents" {
		t.Fatalf("dirty page was not written back before eviction")
	}
}

func TestPool_Flush_ClearsDirtyFlags(t *testing.T) {
	mgr := newTestManager(t, 2)
	pool := New(mgr, 2, NewClockStrategy(2))

	p0, _ := pool.Pin(page.ID(0))
	copy(p0.Bytes, []byte("flush-me"))
	pool.Unpin(p0.ID, true)

	if err := pool.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	raw := make([]byte, 4096)
	if err := mgr.Read(page.ID(0), raw); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw[:8]) != "flush-me" {
		t.Fatal("flush did not persist dirty page")
	}
}

func TestLRUStrategy_EvictsSmallestTimestamp(t *testing.T) {
	s := NewLRUStrategy(3)
	s.OnPin(0, 1)
	s.OnPin(1, 2)
	s.OnPin(2, 3)
	idx, ok := s.FindVictim([]bool{false, false, false})
	if !ok || idx != 0 {
		t.Fatalf("expected victim 0, got %d (ok=%v)", idx, ok)
	}
}

func TestLFUStrategy_EvictsSmallestCount(t *testing.T) {
	s := NewLFUStrategy(3)
	s.OnPin(0, 0)
	s.OnPin(0, 0)
	s.OnPin(1, 0)
	s.OnPin(2, 0)
	s.OnPin(2, 0)
	s.OnPin(2, 0)
	idx, ok := s.FindVictim([]bool{false, false, false})
	if !ok || idx != 1 {
		t.Fatalf("expected victim 1 (count 1), got %d (ok=%v)", idx, ok)
	}
}

// TestLRUKStrategy_WorkedExample reproduces a worked trace: frames
// [A,B,C], pin sequence A,B,C,A,B,A with K=2. Pin timestamps are
// A=1,4,6, B=2,5, C=3; the strategy keeps the last K, so histories end up
// A=[4,6], B=[2,5], C=[3]. Group 1 is {C}; victim is C.
func TestLRUKStrategy_WorkedExample(t *testing.T) {
	s := NewLRUKStrategy(3, 2)
	const A, B, C = 0, 1, 2
	seq := []int{A, B, C, A, B, A}
	for i, frameIdx := range seq {
		s.OnPin(frameIdx, uint64(i+1))
	}
	idx, ok := s.FindVictim([]bool{false, false, false})
	if !ok || idx != C {
		t.Fatalf("expected victim C (%d), got %d (ok=%v)", C, idx, ok)
	}
}

func TestClockStrategy_SecondChance(t *testing.T) {
	s := NewClockStrategy(3)
	// Pin all three so their bits are set.
	s.OnPin(0, 1)
	s.OnPin(1, 2)
	s.OnPin(2, 3)
	pinned := []bool{false, false, false}
	// First pass must clear all bits without selecting anything useful
	// until it wraps; second pass finds a cleared bit immediately.
	idx, ok := s.FindVictim(pinned)
	if !ok {
		t.Fatal("expected a victim among three unpinned frames")
	}
	if idx < 0 || idx > 2 {
		t.Fatalf("victim index out of range: %d", idx)
	}
}

func TestClockStrategy_NeverReturnsPinnedFrame(t *testing.T) {
	s := NewClockStrategy(2)
	s.OnPin(0, 1)
	s.OnPin(1, 2)
	_, ok := s.FindVictim([]bool{true, true})
	if ok {
		t.Fatal("expected no victim when all frames are pinned")
	}
}
