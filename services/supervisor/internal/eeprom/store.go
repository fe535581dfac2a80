// Package eeprom implements the supervisor's persistent slot table on top of
// a small durable byte store.
package eeprom

import (
	"bytes"
	"errors"
	"fmt"

	"sentinel-go/services/supervisor/internal/halcore"
)

var ErrTooSmall = errors.New("eeprom: backing store smaller than slot layout")

// Store is a write-through view of the slot table. It keeps no copy of the
// data; every Get and Set goes to the backing store.
type Store struct {
	bs halcore.ByteStore
}

// New wraps bs. The backing store must hold at least Size bytes.
func New(bs halcore.ByteStore) (*Store, error) {
	if bs.Size() < Size {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooSmall, bs.Size(), Size)
	}
	return &Store{bs: bs}, nil
}

// Get returns the value at s. Reads are assumed not to fail; an invalid slot
// or a failed read yields the slot default.
func (st *Store) Get(s Slot) uint16 {
	if !s.Valid() {
		return 0
	}
	var b [SlotBytes]byte
	if err := st.bs.ReadAt(b[:], int(s)*SlotBytes); err != nil {
		return Default(s)
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

// Set writes v to s immediately (little-endian: LOW then HIGH).
func (st *Store) Set(s Slot, v uint16) error {
	if !s.Valid() {
		return fmt.Errorf("eeprom: invalid slot %d", s)
	}
	b := [SlotBytes]byte{byte(v), byte(v >> 8)}
	if err := st.bs.WriteAt(b[:], int(s)*SlotBytes); err != nil {
		return fmt.Errorf("eeprom: write %s: %w", s, err)
	}
	return nil
}

// Write is one slot update in a Commit.
type Write struct {
	Slot  Slot
	Value uint16
}

// Commit applies ws with a single write covering the lowest to the highest
// slot named. The span is read back first; when no byte changes the backing
// store is not touched.
func (st *Store) Commit(ws ...Write) error {
	if len(ws) == 0 {
		return nil
	}
	lo, hi := ws[0].Slot, ws[0].Slot
	for _, w := range ws {
		if !w.Slot.Valid() {
			return fmt.Errorf("eeprom: invalid slot %d", w.Slot)
		}
		lo, hi = min(lo, w.Slot), max(hi, w.Slot)
	}
	off := int(lo) * SlotBytes
	span := make([]byte, int(hi-lo+1)*SlotBytes)
	if err := st.bs.ReadAt(span, off); err != nil {
		return fmt.Errorf("eeprom: read %s..%s: %w", lo, hi, err)
	}
	orig := bytes.Clone(span)
	for _, w := range ws {
		i := int(w.Slot-lo) * SlotBytes
		span[i], span[i+1] = byte(w.Value), byte(w.Value>>8)
	}
	if bytes.Equal(span, orig) {
		return nil
	}
	if err := st.bs.WriteAt(span, off); err != nil {
		return fmt.Errorf("eeprom: write %s..%s: %w", lo, hi, err)
	}
	return nil
}

// SetBool stores a flag as 0/1.
func (st *Store) SetBool(s Slot, on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return st.Set(s, v)
}

// GetBool reads a flag; any non-zero value is true.
func (st *Store) GetBool(s Slot) bool { return st.Get(s) != 0 }

// Formatted reports whether the init marker is present.
func (st *Store) Formatted() bool { return st.Get(InitFlag) == InitMarker }

// Format resets every known slot to its default. The init marker is written
// last so an interrupted format is redone on the next boot.
func (st *Store) Format() error {
	for s := InitFlag + 1; s < NumSlots; s++ {
		if err := st.Set(s, Default(s)); err != nil {
			return err
		}
	}
	return st.Set(InitFlag, InitMarker)
}

// EnsureFormatted formats the store when the init marker does not match.
// It reports whether a format happened.
func (st *Store) EnsureFormatted() (bool, error) {
	if st.Formatted() {
		return false, nil
	}
	return true, st.Format()
}

// Dump returns every slot value in layout order.
func (st *Store) Dump() []uint16 {
	out := make([]uint16, NumSlots)
	for s := Slot(0); s < NumSlots; s++ {
		out[s] = st.Get(s)
	}
	return out
}
