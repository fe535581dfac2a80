// services/supervisor/internal/halcore/types.go
package halcore

import (
	"errors"
	"time"
)

// ---- GPIO abstractions ----

// GPIOPin is the subset of machine.Pin the supervisor drives.
type GPIOPin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- Time ----

// Clock is the monotonic running clock. It restarts from zero on every
// reset of the coprocessor. Sleep is a bounded busy-wait on MCU targets.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// ---- Durable storage ----

// ByteStore is a small durable byte array (EEPROM or an emulation of one).
// Writes are synchronous; there is no buffering above this interface.
type ByteStore interface {
	Size() int
	ReadAt(p []byte, off int) error
	WriteAt(p []byte, off int) error
}

// ---- Command bus ----

// Transaction is one bus transaction offered by the primary. Respond must be
// called exactly once with the bytes to return (possibly none).
type Transaction struct {
	Data    []byte
	Respond func(resp []byte)
}

// Transport is the peer side of the command bus. Received transactions are
// queued by the transport and drained by the scheduler, one per tick.
type Transport interface {
	Enable()
	Disable()
	Enabled() bool
	// Reinit tears down and re-establishes the peripheral, keeping the
	// enabled state.
	Reinit() error
	// Poll returns the next queued transaction without blocking.
	Poll() (Transaction, bool)
}

// ---- Power management ----

// ResetCause reports why the coprocessor last started.
type ResetCause uint8

const (
	ResetPowerOn ResetCause = iota
	ResetWatchdog
	ResetOther
)

// SelfWatchdog is the coprocessor's own hardware watchdog.
type SelfWatchdog interface {
	Start(timeout time.Duration) error
	Update()
	// Reset arms the shortest timeout and halts until the reset happens.
	// On hosts it returns ErrHalted after tearing the run down.
	Reset() error
	Cause() ResetCause
}

// LowPower enters a bounded low-power sleep and reports how long it slept,
// measured on the low-power clock source.
type LowPower interface {
	Sleep(max time.Duration) time.Duration
}

// StateRetainer is implemented by a LowPower whose sleep keeps RAM and the
// running clock alive. Nothing needs persisting around such a sleep.
type StateRetainer interface {
	RetainsState() bool
}

var (
	ErrUnknownPin = errors.New("unknown_pin")
	ErrHalted     = errors.New("halted")
	ErrNACK       = errors.New("nack")
	ErrTimeout    = errors.New("timeout")
)
