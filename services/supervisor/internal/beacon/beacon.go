// Package beacon drives the status indicator output. It only reads watchdog
// state and never feeds back into it.
package beacon

import (
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

type Mode uint8

const (
	// ModeMirror copies timer 0's enabled flag onto the output.
	ModeMirror Mode = iota
	// ModePattern emits three short pulses every interval, plus a long one
	// while the fuse is blown.
	ModePattern
	// ModeToggle flips the output once per second.
	ModeToggle
	// ModeChirp emits one short audio-rate burst every interval.
	ModeChirp

	NumModes
)

func (m Mode) String() string {
	switch m {
	case ModeMirror:
		return "mirror"
	case ModePattern:
		return "pattern"
	case ModeToggle:
		return "toggle"
	case ModeChirp:
		return "chirp"
	}
	return "invalid"
}

// Config is the beacon part of the supervisor state. Pending is transient.
type Config struct {
	Enabled     bool
	Mode        Mode
	Base        uint16
	Mult        uint16
	LastTrigger int64
	Pending     bool
}

// Interval is the pattern period in seconds.
func (c Config) Interval() int64 { return int64(c.Base) * int64(c.Mult) }

// Timing holds the pulse shape. Zero fields take DefaultTiming values.
type Timing struct {
	Short time.Duration
	Long  time.Duration
	Gap   time.Duration
	// Chirp is the half-period of the chirp carrier.
	Chirp       time.Duration
	ChirpCycles int
}

var DefaultTiming = Timing{
	Short:       100 * time.Millisecond,
	Long:        600 * time.Millisecond,
	Gap:         150 * time.Millisecond,
	Chirp:       250 * time.Microsecond,
	ChirpCycles: 40,
}

type Indicator struct {
	pin   halcore.GPIOPin
	clock halcore.Clock
	t     Timing
}

// New configures pin as a low output.
func New(pin halcore.GPIOPin, clock halcore.Clock, t Timing) (*Indicator, error) {
	if err := pin.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if t.Short <= 0 {
		t.Short = DefaultTiming.Short
	}
	if t.Long <= 0 {
		t.Long = DefaultTiming.Long
	}
	if t.Gap <= 0 {
		t.Gap = DefaultTiming.Gap
	}
	if t.Chirp <= 0 {
		t.Chirp = DefaultTiming.Chirp
	}
	if t.ChirpCycles <= 0 {
		t.ChirpCycles = DefaultTiming.ChirpCycles
	}
	return &Indicator{pin: pin, clock: clock, t: t}, nil
}

// Evaluate runs once per tick. Level-driven modes update the output
// directly; timed modes only mark the config Pending.
func (b *Indicator) Evaluate(c *Config, now int64, timer0Enabled bool) {
	if c.Mode == ModeMirror {
		b.pin.Set(timer0Enabled)
		c.Pending = false
		return
	}
	if !c.Enabled {
		b.pin.Set(false)
		c.Pending = false
		return
	}
	switch c.Mode {
	case ModeToggle:
		b.pin.Set(now%2 == 1)
	case ModePattern, ModeChirp:
		if now-c.LastTrigger >= c.Interval() {
			c.Pending = true
		}
	}
}

// Fire performs the pending pattern, if any. It blocks for the length of
// the pattern.
func (b *Indicator) Fire(c *Config, now int64, fuseBlown bool) {
	if !c.Pending {
		return
	}
	switch c.Mode {
	case ModePattern:
		for i := 0; i < 3; i++ {
			b.pulse(b.t.Short)
		}
		if fuseBlown {
			b.pulse(b.t.Long)
		}
	case ModeChirp:
		b.chirp()
	}
	c.LastTrigger = now
	c.Pending = false
}

// Pulse emits one long pulse regardless of mode.
func (b *Indicator) Pulse() { b.pulse(b.t.Long) }

func (b *Indicator) pulse(width time.Duration) {
	b.pin.Set(true)
	b.clock.Sleep(width)
	b.pin.Set(false)
	b.clock.Sleep(b.t.Gap)
}

func (b *Indicator) chirp() {
	for i := 0; i < b.t.ChirpCycles; i++ {
		b.pin.Set(true)
		b.clock.Sleep(b.t.Chirp)
		b.pin.Set(false)
		b.clock.Sleep(b.t.Chirp)
	}
}
