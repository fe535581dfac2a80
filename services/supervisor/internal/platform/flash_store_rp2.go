//go:build rp2040 || rp2350

package platform

import (
	"bytes"
	"errors"
	"machine"
)

var ErrStoreTooLarge = errors.New("store: layout larger than one flash erase block")

// recordMark leads every programmed record. Erased flash reads 0xFF.
const recordMark = 0x5E

// FlashStore emulates an EEPROM in the last erase block of the flash data
// area. The block is an append-only log of page-aligned records, each a
// full copy of the store. A changing write programs the next free record;
// the block is erased only once every record is used. Reads come from a
// RAM mirror of the newest record.
type FlashStore struct {
	mirror []byte
	off    int64
	block  int64
	rec    int64 // record stride, whole pages
	slots  int64 // records per erase block
	next   int64 // next free record; slots means the block is full
}

func NewFlashStore(size int) (*FlashStore, error) {
	bs := machine.Flash.EraseBlockSize()
	page := machine.Flash.WriteBlockSize()
	rec := (int64(size) + 1 + page - 1) / page * page
	if rec > bs {
		return nil, ErrStoreTooLarge
	}
	block := machine.Flash.Size()/bs - 1
	s := &FlashStore{
		mirror: make([]byte, size),
		off:    block * bs,
		block:  block,
		rec:    rec,
		slots:  bs / rec,
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// scan finds the newest record. A block holding no records but not blank
// either is loaded as-is and erased on the first write.
func (s *FlashStore) scan() error {
	var mark [1]byte
	last := int64(-1)
	for i := int64(0); i < s.slots; i++ {
		if _, err := machine.Flash.ReadAt(mark[:], s.off+i*s.rec); err != nil {
			return err
		}
		if mark[0] != recordMark {
			break
		}
		last = i
	}
	if last >= 0 {
		s.next = last + 1
		_, err := machine.Flash.ReadAt(s.mirror, s.off+last*s.rec+1)
		return err
	}
	if _, err := machine.Flash.ReadAt(s.mirror, s.off); err != nil {
		return err
	}
	if mark[0] != 0xFF || !bytes.Equal(s.mirror, bytes.Repeat([]byte{0xFF}, len(s.mirror))) {
		s.next = s.slots
	}
	return nil
}

func (s *FlashStore) Size() int { return len(s.mirror) }

func (s *FlashStore) ReadAt(p []byte, off int) error {
	if off < 0 || off+len(p) > len(s.mirror) {
		return ErrOutOfRange
	}
	copy(p, s.mirror[off:])
	return nil
}

func (s *FlashStore) WriteAt(p []byte, off int) error {
	if off < 0 || off+len(p) > len(s.mirror) {
		return ErrOutOfRange
	}
	if bytes.Equal(s.mirror[off:off+len(p)], p) {
		return nil
	}
	copy(s.mirror[off:], p)

	if s.next >= s.slots {
		if err := machine.Flash.EraseBlocks(s.block, 1); err != nil {
			return err
		}
		s.next = 0
	}
	buf := bytes.Repeat([]byte{0xFF}, int(s.rec))
	buf[0] = recordMark
	copy(buf[1:], s.mirror)
	_, err := machine.Flash.WriteAt(buf, s.off+s.next*s.rec)
	s.next++
	return err
}
