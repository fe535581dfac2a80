// Package core owns the supervisor's mutable state: the four watchdog timers,
// the config lock, ping history, beacon and power-save settings. Every
// mutation is mirrored to the persistent store before it returns.
//
// The state is owned by one goroutine (the scheduler). It does no locking.
package core

import (
	"log/slog"
	"slices"
	"time"

	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/x/mathx"
)

const (
	NumTimers = 4
	// FuseTimer doubles as the anti-flapping fuse. Enabled means blown.
	FuseTimer = 3

	MinMultiplier = 1
	MaxMultiplier = 20
)

// BaseTable holds the selectable interval bases in seconds.
var BaseTable = [...]uint16{1, 5, 10, 15, 30, 60, 90}

// TimerSlot is one watchdog timer. Start is on the running clock, in seconds.
type TimerSlot struct {
	Enabled bool
	Start   int64
	Base    uint16
	Mult    uint16
}

// Threshold is the timeout in seconds.
func (t TimerSlot) Threshold() int64 { return int64(t.Base) * int64(t.Mult) }

// Expired is recomputed on every call and never stored.
func (t TimerSlot) Expired(now int64) bool {
	return t.Enabled && now-t.Start > t.Threshold()
}

type Phase uint8

const (
	PhaseDisabled Phase = iota
	PhaseArmed
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseArmed:
		return "armed"
	case PhaseExpired:
		return "expired"
	}
	return "invalid"
}

func (t TimerSlot) Phase(now int64) Phase {
	switch {
	case !t.Enabled:
		return PhaseDisabled
	case t.Expired(now):
		return PhaseExpired
	}
	return PhaseArmed
}

// EditTarget selects which interval the base/multiplier opcodes change.
type EditTarget uint8

const (
	EditSentinel EditTarget = iota
	EditPowerSave
	EditBeacon
)

func (e EditTarget) String() string {
	switch e {
	case EditSentinel:
		return "sentinel"
	case EditPowerSave:
		return "power_save"
	case EditBeacon:
		return "beacon"
	}
	return "invalid"
}

// Interval is a base×multiplier pair in seconds.
type Interval struct {
	Base uint16
	Mult uint16
}

func (i Interval) Seconds() int64 { return int64(i.Base) * int64(i.Mult) }

// Events receives notable state transitions. Implementations must not call
// back into the state.
type Events interface {
	FuseToggled(blown bool, at int64)
	Flood(delta, at int64)
	Rebooting(expired [NumTimers]bool, primaryFaults uint16, at int64)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) FuseToggled(bool, int64)                  {}
func (NopEvents) Flood(int64, int64)                       {}
func (NopEvents) Rebooting([NumTimers]bool, uint16, int64) {}

// SupervisorState is the single owned copy of everything the dispatcher and
// scheduler act on.
type SupervisorState struct {
	Timers          [NumTimers]TimerSlot
	Selected        int
	Edit            EditTarget
	LastPing        int64
	Beacon          beacon.Config
	PowerSave       Interval
	AckEnabled      bool
	BusAddress      uint16
	PrimaryFaults   uint16
	SecondaryFaults uint16 // coprocessor resets caused by its own watchdog
	RebootPending   bool

	unlocked bool

	store  *eeprom.Store
	clock  halcore.Clock
	log    *slog.Logger
	events Events
}

// New returns a state with defaults. Call Load to restore the persisted
// values.
func New(store *eeprom.Store, clock halcore.Clock, log *slog.Logger, ev Events) *SupervisorState {
	if ev == nil {
		ev = NopEvents{}
	}
	s := &SupervisorState{store: store, clock: clock, log: log, events: ev}
	s.reset()
	return s
}

func (s *SupervisorState) reset() {
	for id := range s.Timers {
		s.Timers[id] = TimerSlot{Base: eeprom.DefaultTimerBase, Mult: eeprom.DefaultTimerMult}
	}
	s.Selected = 0
	s.Edit = EditSentinel
	s.LastPing = 0
	s.Beacon = beacon.Config{
		Mode: eeprom.DefaultBeaconMode,
		Base: eeprom.DefaultBeaconBase,
		Mult: eeprom.DefaultBeaconMult,
	}
	s.PowerSave = Interval{Base: eeprom.DefaultPowerSaveBase, Mult: eeprom.DefaultPowerSaveMult}
	s.AckEnabled = true
	s.BusAddress = eeprom.DefaultBusAddress
	s.PrimaryFaults = 0
	s.SecondaryFaults = 0
	s.RebootPending = false
	s.unlocked = false
}

// Now is the running clock in whole seconds.
func (s *SupervisorState) Now() int64 { return int64(s.clock.Now() / time.Second) }

// Store exposes the backing slot table for read-only diagnostics.
func (s *SupervisorState) Store() *eeprom.Store { return s.store }

// FuseBlown reports whether the fuse (timer 3) is engaged.
func (s *SupervisorState) FuseBlown() bool { return s.Timers[FuseTimer].Enabled }

// Load restores every persisted field. Out-of-range interval values fall
// back to their defaults. Transient fields (lock, selection, pending flags)
// are reset.
func (s *SupervisorState) Load() {
	st := s.store
	s.reset()
	s.BusAddress = st.Get(eeprom.BusAddress)
	for id := range s.Timers {
		en, start, base, mult := eeprom.TimerSlots(id)
		s.Timers[id] = TimerSlot{
			Enabled: st.GetBool(en),
			Start:   int64(st.Get(start)),
			Base:    sanitizeBase(st.Get(base), eeprom.DefaultTimerBase),
			Mult:    sanitizeMult(st.Get(mult)),
		}
	}
	s.Beacon.Enabled = st.GetBool(eeprom.BeaconEnabled)
	s.Beacon.Mode = beacon.Mode(st.Get(eeprom.BeaconMode))
	if s.Beacon.Mode >= beacon.NumModes {
		s.Beacon.Mode = eeprom.DefaultBeaconMode
	}
	s.Beacon.Base = sanitizeBase(st.Get(eeprom.BeaconBase), eeprom.DefaultBeaconBase)
	s.Beacon.Mult = sanitizeMult(st.Get(eeprom.BeaconMult))
	s.PowerSave.Base = sanitizeBase(st.Get(eeprom.PowerSaveBase), eeprom.DefaultPowerSaveBase)
	s.PowerSave.Mult = sanitizeMult(st.Get(eeprom.PowerSaveMult))
	s.AckEnabled = st.GetBool(eeprom.AckEnabled)
	s.PrimaryFaults = st.Get(eeprom.PrimaryFaults)
	s.SecondaryFaults = st.Get(eeprom.SecondaryFaults)
	s.LastPing = int64(st.Get(eeprom.LastPing))
}

// Rearm restarts every enabled timer at now. The running clock restarts on
// reset, so persisted start times are meaningless after a cold boot.
func (s *SupervisorState) Rearm(now int64) {
	for id := range s.Timers {
		if s.Timers[id].Enabled {
			s.Timers[id].Start = now
			s.persistStart(id)
		}
	}
}

// Format resets the store to defaults and reloads.
func (s *SupervisorState) Format() error {
	if err := s.store.Format(); err != nil {
		return err
	}
	s.Load()
	return nil
}

func sanitizeBase(v, def uint16) uint16 {
	if slices.Contains(BaseTable[:], v) {
		return v
	}
	return def
}

func sanitizeMult(v uint16) uint16 {
	return mathx.Clamp(v, MinMultiplier, MaxMultiplier)
}

// put writes through to the store. Write failures are logged and otherwise
// ignored; the in-RAM state stays authoritative until the next reset.
func (s *SupervisorState) put(slot eeprom.Slot, v uint16) {
	if err := s.store.Set(slot, v); err != nil {
		s.log.Error("Persistent write failed", "slot", slot.String(), "err", err)
	}
}

func (s *SupervisorState) commit(ws []eeprom.Write) {
	if err := s.store.Commit(ws...); err != nil {
		s.log.Error("Persistent write failed", "slots", len(ws), "err", err)
	}
}

func (s *SupervisorState) putBool(slot eeprom.Slot, on bool) {
	var v uint16
	if on {
		v = 1
	}
	s.put(slot, v)
}

func (s *SupervisorState) persistTimer(id int) {
	en, start, base, mult := eeprom.TimerSlots(id)
	t := s.Timers[id]
	s.putBool(en, t.Enabled)
	s.put(start, uint16(t.Start))
	s.put(base, t.Base)
	s.put(mult, t.Mult)
}

func (s *SupervisorState) persistStart(id int) {
	_, start, _, _ := eeprom.TimerSlots(id)
	s.put(start, uint16(s.Timers[id].Start))
}
