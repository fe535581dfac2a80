// Package power drives the primary's ON/OFF control lines and the
// coprocessor's own reset path.
package power

import (
	"log/slog"
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

// Controller is what the dispatcher, fuse and scheduler need from the
// actuator.
type Controller interface {
	PowerOn()
	PowerOff()
	PowerOffKeepBus()
	RebootPrimary()
	RebootSelf() error
}

type Timing struct {
	Pulse  time.Duration
	Settle time.Duration
}

var DefaultTiming = Timing{
	Pulse:  50 * time.Millisecond,
	Settle: 500 * time.Millisecond,
}

// Actuator pulses the control lines. Every pulse drives the pin low, high,
// then low again, so the previous level does not matter. A started sequence
// always runs to completion.
type Actuator struct {
	on, off halcore.GPIOPin
	bus     halcore.Transport
	wd      halcore.SelfWatchdog
	clock   halcore.Clock
	t       Timing
	log     *slog.Logger
}

func New(
	on, off halcore.GPIOPin,
	bus halcore.Transport,
	wd halcore.SelfWatchdog,
	clock halcore.Clock,
	t Timing,
	log *slog.Logger,
) (*Actuator, error) {
	if err := on.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if err := off.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if t.Pulse <= 0 {
		t.Pulse = DefaultTiming.Pulse
	}
	if t.Settle <= 0 {
		t.Settle = DefaultTiming.Settle
	}
	return &Actuator{on: on, off: off, bus: bus, wd: wd, clock: clock, t: t, log: log}, nil
}

// PowerOn pulses ON and re-enables the command bus.
func (a *Actuator) PowerOn() {
	a.log.Info("Powering primary on")
	a.pulse(a.on)
	a.bus.Enable()
}

// PowerOff pulses OFF and disables the command bus while the primary is
// believed to be unpowered.
func (a *Actuator) PowerOff() {
	a.log.Info("Powering primary off")
	a.pulse(a.off)
	a.bus.Disable()
}

// PowerOffKeepBus cuts primary power but leaves the bus enabled so an
// operator can still issue recovery commands.
func (a *Actuator) PowerOffKeepBus() {
	a.log.Warn("Powering primary off, bus kept alive")
	a.pulse(a.off)
	a.bus.Enable()
}

func (a *Actuator) RebootPrimary() {
	a.log.Warn("Rebooting primary", "settle", a.t.Settle)
	a.PowerOff()
	a.clock.Sleep(a.t.Settle)
	a.PowerOn()
}

// RebootSelf arms the shortest watchdog timeout and halts. On hardware it
// does not return; on hosts it returns halcore.ErrHalted.
func (a *Actuator) RebootSelf() error {
	a.log.Warn("Rebooting self")
	return a.wd.Reset()
}

func (a *Actuator) pulse(p halcore.GPIOPin) {
	p.Set(false)
	p.Set(true)
	a.clock.Sleep(a.t.Pulse)
	p.Set(false)
}
