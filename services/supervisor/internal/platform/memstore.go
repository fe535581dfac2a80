package platform

import (
	"errors"
	"sync"
)

var ErrOutOfRange = errors.New("store: access out of range")

// MemStore is a RAM-backed ByteStore. Erased cells read as 0xFF, like a
// blank EEPROM. Writes are counted so tests can assert side-effect freedom.
type MemStore struct {
	mu     sync.Mutex
	buf    []byte
	writes int
}

func NewMemStore(size int) *MemStore {
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xFF
	}
	return &MemStore{buf: b}
}

func (m *MemStore) Size() int { return len(m.buf) }

func (m *MemStore) ReadAt(p []byte, off int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+len(p) > len(m.buf) {
		return ErrOutOfRange
	}
	copy(p, m.buf[off:])
	return nil
}

func (m *MemStore) WriteAt(p []byte, off int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+len(p) > len(m.buf) {
		return ErrOutOfRange
	}
	copy(m.buf[off:], p)
	m.writes++
	return nil
}

// Writes returns the number of WriteAt calls so far.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Bytes returns a copy of the backing array.
func (m *MemStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.buf...)
}
