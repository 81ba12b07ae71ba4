package buffer

import (
	"sync"

	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/bdlog"
	"github.com/beedb-project/beedb/internal/metrics"
	"github.com/beedb-project/beedb/internal/storage/page"
)

// frame is one slot in the pool, capable of holding one page.
type frame struct {
	id       page.ID
	buf      []byte
	pinCount int
	dirty    bool
	used     bool // has this frame ever held a page
}

// Pool is a fixed-size, coarsely-latched buffer pool. A single mutex
// guards pin/unpin/flush; coarse latching is acceptable here since the
// per-page work under the lock is short.
type Pool struct {
	mu       sync.Mutex
	mgr      *page.Manager
	frames   []frame
	index    map[page.ID]int // resident page id -> frame index
	strategy ReplacementStrategy
	pinSeq   uint64
	evicted  uint64
}

// New creates a buffer pool of n frames backed by mgr, using strategy for
// victim selection once all n frames are in use.
func New(mgr *page.Manager, n int, strategy ReplacementStrategy) *Pool {
	frames := make([]frame, n)
	for i := range frames {
		frames[i].buf = make([]byte, mgr.PageSize())
	}
	return &Pool{
		mgr:      mgr,
		frames:   frames,
		index:    make(map[page.ID]int, n),
		strategy: strategy,
	}
}

// Page is the caller-facing handle for a pinned page: its id and the
// frame's payload bytes. Dirty and pin state stay inside the pool.
type Page struct {
	ID    page.ID
	Bytes []byte
}

// Pin returns the requested page, loading it from disk if necessary. The
// caller must Unpin exactly once per successful Pin call.
func (p *Pool) Pin(id page.ID) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pinSeq++
	seq := p.pinSeq

	if idx, ok := p.index[id]; ok {
		p.frames[idx].pinCount++
		p.strategy.OnPin(idx, seq)
		metrics.BufferPins.WithLabelValues("hit").Inc()
		return &Page{ID: id, Bytes: p.frames[idx].buf}, nil
	}

	idx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}

	if err := p.mgr.Read(id, p.frames[idx].buf); err != nil {
		return nil, err
	}
	p.frames[idx].id = id
	p.frames[idx].pinCount = 1
	p.frames[idx].dirty = false
	p.frames[idx].used = true
	p.index[id] = idx
	p.strategy.OnPin(idx, seq)

	return &Page{ID: id, Bytes: p.frames[idx].buf}, nil
}

// acquireFrame returns an index ready to receive a newly loaded page: a
// never-used frame if one exists, otherwise an eviction victim (writing it
// back first if dirty). Caller holds p.mu.
func (p *Pool) acquireFrame() (int, error) {
	for i := range p.frames {
		if !p.frames[i].used {
			metrics.BufferPins.WithLabelValues("fault").Inc()
			metrics.BufferEvictedFrames.Inc()
			p.evicted++
			return i, nil
		}
	}

	pinned := make([]bool, len(p.frames))
	for i := range p.frames {
		pinned[i] = p.frames[i].pinCount > 0
	}
	idx, ok := p.strategy.FindVictim(pinned)
	if !ok {
		return 0, bderr.Wrap(bderr.KindNoFreeFrame, "pin", bderr.ErrNoFreeFrame)
	}

	victim := &p.frames[idx]
	if victim.dirty {
		if err := p.mgr.Write(victim.id, victim.buf); err != nil {
			return 0, err
		}
	}
	delete(p.index, victim.id)
	metrics.BufferPins.WithLabelValues("fault_evict").Inc()
	metrics.BufferEvictedFrames.Inc()
	p.evicted++
	bdlog.WithComponent("storage.buffer").Debug().
		Uint32("evicted_page_id", uint32(victim.id)).
		Msg("buffer pool eviction")
	return idx, nil
}

// Unpin decrements the pin count for id and ORs dirty into the frame's
// dirty flag. Fails if the page is not resident or already has a zero pin
// count.
func (p *Pool) Unpin(id page.ID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[id]
	if !ok {
		return bderr.New(bderr.KindPageNotPinned, "unpin")
	}
	if p.frames[idx].pinCount <= 0 {
		return bderr.New(bderr.KindPageNotPinned, "unpin")
	}
	p.frames[idx].pinCount--
	p.frames[idx].dirty = p.frames[idx].dirty || dirty
	return nil
}

// Flush writes every dirty resident page back to disk and clears their
// dirty flags.
func (p *Pool) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.frames {
		if p.frames[i].used && p.frames[i].dirty {
			if err := p.mgr.Write(p.frames[i].id, p.frames[i].buf); err != nil {
				return err
			}
			p.frames[i].dirty = false
		}
	}
	return nil
}

// EvictedFrames returns the monotonic count of pin operations that caused
// an eviction or consumed an initial empty frame.
func (p *Pool) EvictedFrames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evicted
}

// FrameCount returns the total number of frames in the pool.
func (p *Pool) FrameCount() int { return len(p.frames) }

// PinCountSum returns the sum of pin counts across all frames; used by
// invariant tests.
func (p *Pool) PinCountSum() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	sum := 0
	for i := range p.frames {
		sum += p.frames[i].pinCount
	}
	return sum
}
