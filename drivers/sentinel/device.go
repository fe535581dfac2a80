// Package sentinel drives a sentinel watchdog coprocessor from the primary
// controller.
package sentinel

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"sentinel-go/errcode"
)

var (
	ErrBadPing    = errors.New("sentinel: unexpected ping response")
	ErrTimerRange = errors.New("sentinel: timer id out of range")
	ErrSlotRange  = errors.New("sentinel: slot out of range")
	ErrArgRange   = errors.New("sentinel: argument out of range")
)

type Device struct {
	i2c  drivers.I2C
	addr uint16
	// ack mirrors the coprocessor's reply toggle. Formatted devices start
	// with acks on.
	ack bool

	// Fixed buffers to avoid per-call heap allocations.
	w [8]byte
	r [16]byte
}

// New returns a driver for the coprocessor at addr. Zero selects
// AddressDefault.
func New(i2c drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr, ack: true}
}

// SyncAck reads the coprocessor's persisted reply toggle so the driver
// knows which opcodes will be answered.
func (d *Device) SyncAck() error {
	v, err := d.query(opDumpSlot0 + ackSlot)
	if err != nil {
		return err
	}
	d.ack = v != 0
	return nil
}

// Acks reports whether non-query opcodes are expected to reply.
func (d *Device) Acks() bool { return d.ack }

func (d *Device) Address() uint16 { return d.addr }

// Ping feeds the coprocessor's heartbeat. Pinging faster than every ten
// seconds counts as a flood and cuts the primary's power.
func (d *Device) Ping() error {
	v, err := d.query(opPing)
	if err != nil {
		return err
	}
	if v != codePingResponse {
		return ErrBadPing
	}
	return nil
}

func (d *Device) Unlock() error { return d.command(opUnlock) }
func (d *Device) Lock() error   { return d.command(opLock) }

// Version returns the firmware version.
func (d *Device) Version() (major, minor uint8, err error) {
	v, err := d.query(opVersion)
	return uint8(v >> 8), uint8(v), err
}

// BuildDate returns the firmware build date. A zero word yields the zero
// time.
func (d *Device) BuildDate() (time.Time, error) {
	v, err := d.query(opBuildDate)
	if err != nil || v == 0 {
		return time.Time{}, err
	}
	return decodeFATDate(v), nil
}

// Faults returns the primary reboot count and the coprocessor's own
// watchdog reset count.
func (d *Device) Faults() (primary, secondary uint16, err error) {
	words, err := d.words([]byte{opPrimaryFaults, opSecondaryFaults})
	if err != nil {
		return 0, 0, err
	}
	return words[0], words[1], nil
}

func (d *Device) ResetFaults() error { return d.gated(opResetFaults) }

// EnableTimer arms timer id from now.
func (d *Device) EnableTimer(id int) error  { return d.onTimer(id, opSentinelEnable) }
func (d *Device) DisableTimer(id int) error { return d.onTimer(id, opSentinelDisable) }

// Kick restarts timer id. It fails with errcode.InvalidAction when the
// timer is disabled.
func (d *Device) Kick(id int) error { return d.onTimer(id, opSentinelKick) }

// SetInterval sets timer id to Bases[base]×mult seconds.
func (d *Device) SetInterval(id, base, mult int) error {
	if err := checkTimer(id); err != nil {
		return err
	}
	if err := d.command(opSelectTimer0 + byte(id)); err != nil {
		return err
	}
	return d.setInterval(EditSentinel, base, mult)
}

// SetPowerSaveInterval sets the low-power sleep length.
func (d *Device) SetPowerSaveInterval(base, mult int) error {
	return d.setInterval(EditPowerSave, base, mult)
}

// SetBeaconInterval sets the beacon pattern period.
func (d *Device) SetBeaconInterval(base, mult int) error {
	return d.setInterval(EditBeacon, base, mult)
}

func (d *Device) setInterval(target EditTarget, base, mult int) error {
	if base < 0 || base >= NumBases || mult < MinMultiplier || mult > MaxMultiplier {
		return ErrArgRange
	}
	if err := d.command(opEditSentinel + byte(target)); err != nil {
		return err
	}
	if err := d.gated(opIntervalBase0 + byte(base)); err != nil {
		return err
	}
	if err := d.gated(opMultiplier1 + byte(mult-1)); err != nil {
		return err
	}
	return d.command(opEditSentinel)
}

// FuseBlown reports whether the anti-flapping fuse is engaged.
func (d *Device) FuseBlown() (bool, error) {
	v, err := d.query(opFuseQuery)
	return v == 1, err
}

func (d *Device) SetFuse() error  { return d.gated(opSetFuse) }
func (d *Device) BlowFuse() error { return d.gated(opBlowFuse) }

func (d *Device) SetBeacon(on bool) error {
	if on {
		return d.gated(opBeaconEnable)
	}
	return d.gated(opBeaconDisable)
}

func (d *Device) SetBeaconMode(m BeaconMode) error {
	if m > BeaconChirp {
		return ErrArgRange
	}
	return d.gated(opBeaconMode0 + byte(m))
}

func (d *Device) BeaconPulse() error { return d.command(opBeaconPulse) }

// SetAck turns replies to non-query opcodes on or off. With acks off,
// commands cannot report failures. The toggle is answered according to
// the setting in force when it arrives.
func (d *Device) SetAck(on bool) error {
	op := byte(opAckDisable)
	if on {
		op = opAckEnable
	}
	if err := d.gated(op); err != nil {
		return err
	}
	d.ack = on
	return nil
}

// Format restores every persisted setting to its default.
func (d *Device) Format() error { return d.gated(opFormat) }

// SelfTest power-cycles the primary and pulses the beacon.
func (d *Device) SelfTest() error { return d.gated(opSelfTest) }

// Shutdown cuts the primary's power.
func (d *Device) Shutdown() error { return d.gated(opShutdown) }

// RebootAll power-cycles the primary, then resets the coprocessor.
func (d *Device) RebootAll() error { return d.gated(opRebootAll) }

// RebootSelf resets the coprocessor.
func (d *Device) RebootSelf() error { return d.gated(opRebootSelf) }

// DumpSlot reads one raw persisted slot.
func (d *Device) DumpSlot(slot int) (uint16, error) {
	if slot < 0 || slot >= NumSlots {
		return 0, ErrSlotRange
	}
	return d.query(opDumpSlot0 + byte(slot))
}

// Raw sends ops as one transaction and returns one word per op. Words for
// opcodes that did not reply read as zero.
func (d *Device) Raw(ops ...byte) ([]uint16, error) {
	return d.words(ops)
}

func (d *Device) onTimer(id int, op byte) error {
	if err := checkTimer(id); err != nil {
		return err
	}
	d.w[0] = opSelectTimer0 + byte(id)
	d.w[1] = opUnlock
	d.w[2] = op
	if !d.ack {
		return d.i2c.Tx(d.addr, d.w[:3], nil)
	}
	if err := d.i2c.Tx(d.addr, d.w[:3], d.r[:6]); err != nil {
		return err
	}
	return codeErr(readWord(d.r[4:6]))
}

func checkTimer(id int) error {
	if id < 0 || id >= NumTimers {
		return ErrTimerRange
	}
	return nil
}

func decodeFATDate(v uint16) time.Time {
	return time.Date(1980+int(v>>9), time.Month(v>>5&0x0F), int(v&0x1F), 0, 0, 0, 0, time.UTC)
}

func codeErr(v uint16) error {
	if v == codeSuccess {
		return nil
	}
	return errcode.Code(v)
}
