// Package page implements the Storage Manager: raw, page-identifier-keyed
// I/O against a single dense file of fixed-size pages.
//
// What: read/write of exactly page_size bytes at a page id's offset, plus
// monotonic page id allocation.
// How: grounded on tinySQL's pager.OpenPager/readPage/writePage, but
// stripped of its CRC32/WAL page-header machinery — durability
// via write-ahead logging is an explicit non-goal, so a page
// here carries no header the Storage Manager itself needs to understand.
// Why: keeping this layer to "seek, read/write exactly page_size bytes" is
// what makes the Buffer Manager's pin/evict contract simple to reason
// about: every page is the same size, every offset is id*page_size.
package page

import (
	"fmt"
	"os"
	"sync"

	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/bdlog"
)

// ID is a 32-bit page identifier. Page ids are dense starting at 0 and are
// never reused.
type ID uint32

const (
	// InvalidID denotes "no page".
	InvalidID ID = 0xFFFFFFFF

	// MemoryTableID denotes "this tuple does not live on disk" — used for
	// synthetic rows produced by operators like Aggregation that have no
	// backing page.
	MemoryTableID ID = 0xFFFFFFFE
)

// Manager owns the single append-only-sized database file and provides raw
// page read/write by page id.
type Manager struct {
	mu       sync.Mutex // guards allocation / file-length changes only
	file     *os.File
	pageSize int
	nextID   ID
}

// Open opens (creating if necessary) the database file at path and returns
// a Manager whose file length is verified to be a whole multiple of
// pageSize.
func Open(path string, pageSize int) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, bderr.Wrap(bderr.KindIOError, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, bderr.Wrap(bderr.KindIOError, path, err)
	}
	if fi.Size()%int64(pageSize) != 0 {
		f.Close()
		return nil, bderr.New(bderr.KindIOError, fmt.Sprintf("%s: size %d is not a multiple of page_size %d", path, fi.Size(), pageSize))
	}
	m := &Manager{
		file:     f,
		pageSize: pageSize,
		nextID:   ID(fi.Size() / int64(pageSize)),
	}
	return m, nil
}

// PageSize returns the configured page size.
func (m *Manager) PageSize() int { return m.pageSize }

// PageCount returns the current next page id (i.e. the number of pages
// ever allocated).
func (m *Manager) PageCount() ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID
}

// Read fills buf with exactly PageSize bytes from the page at id. buf must
// be at least PageSize bytes; only the first PageSize bytes are touched.
func (m *Manager) Read(id ID, buf []byte) error {
	if len(buf) < m.pageSize {
		return bderr.New(bderr.KindIOError, fmt.Sprintf("page %d: buffer too small (%d < %d)", id, len(buf), m.pageSize))
	}
	off := int64(id) * int64(m.pageSize)
	n, err := m.file.ReadAt(buf[:m.pageSize], off)
	if err != nil || n != m.pageSize {
		return bderr.Wrap(bderr.KindIOError, fmt.Sprintf("page %d", id), err)
	}
	return nil
}

// Write writes exactly PageSize bytes of data to the page at id and
// flushes it to stable storage before returning.
func (m *Manager) Write(id ID, data []byte) error {
	if len(data) < m.pageSize {
		return bderr.New(bderr.KindIOError, fmt.Sprintf("page %d: payload too small (%d < %d)", id, len(data), m.pageSize))
	}
	off := int64(id) * int64(m.pageSize)
	if _, err := m.file.WriteAt(data[:m.pageSize], off); err != nil {
		return bderr.Wrap(bderr.KindIOError, fmt.Sprintf("page %d", id), err)
	}
	if err := m.file.Sync(); err != nil {
		return bderr.Wrap(bderr.KindIOError, fmt.Sprintf("page %d sync", id), err)
	}
	return nil
}

// AllocatePage atomically returns a new page id, zero-extending the file
// by one page.
func (m *Manager) AllocatePage() (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	newLen := int64(id+1) * int64(m.pageSize)
	if err := m.file.Truncate(newLen); err != nil {
		return InvalidID, bderr.Wrap(bderr.KindIOError, fmt.Sprintf("allocate page %d", id), err)
	}
	m.nextID++
	bdlog.WithComponent("storage.page").Debug().
		Uint32("page_id", uint32(id)).
		Msg("page allocated")
	return id, nil
}

// Close flushes and closes the underlying file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		return bderr.Wrap(bderr.KindIOError, "close", err)
	}
	return m.file.Close()
}
