// Package supervisor composes the watchdog coprocessor: persistent state,
// command dispatcher, power actuator, beacon and the main loop.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentinel-go/bus"
	"sentinel-go/services/config"
	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/core"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/services/supervisor/internal/power"
	"sentinel-go/services/supervisor/internal/protocol"
	"sentinel-go/services/supervisor/internal/scheduler"
	"sentinel-go/types"
	"sentinel-go/x/mathx"
)

// ErrSelfReset is returned by Run when the supervisor reset itself. On a
// host the caller decides whether to boot again.
var ErrSelfReset = halcore.ErrHalted

// ErrBusTimeout is returned by the host bus when a transaction got no
// complete reply.
var ErrBusTimeout = halcore.ErrTimeout

// Board is the hardware the supervisor runs on.
type Board struct {
	Store    halcore.ByteStore
	Pins     halcore.PinFactory
	Bus      halcore.Transport
	Watchdog halcore.SelfWatchdog
	LowPower halcore.LowPower
	Clock    halcore.Clock
}

type Options struct {
	Config *config.Config
	Board  Board
	// Conn receives state snapshots and events. Nil disables telemetry.
	Conn *bus.Connection
	Log  *slog.Logger
}

// BootInfo describes how the last boot went.
type BootInfo struct {
	Cause     halcore.ResetCause
	Formatted bool
	Wake      bool
}

type Supervisor struct {
	log   *slog.Logger
	st    *core.SupervisorState
	sched *scheduler.Scheduler
	boot  BootInfo
}

func New(o Options) (*Supervisor, error) {
	cfg, b := o.Config, o.Board
	if cfg == nil {
		return nil, fmt.Errorf("supervisor: nil config")
	}
	log := o.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	tel := telemetry{conn: o.Conn}

	store, err := eeprom.New(b.Store)
	if err != nil {
		return nil, fmt.Errorf("supervisor: store: %w", err)
	}
	formatted, err := store.EnsureFormatted()
	if err != nil {
		return nil, fmt.Errorf("supervisor: format store: %w", err)
	}

	st := core.New(store, b.Clock, log.With("component", "core"), tel)
	st.Load()

	boot := BootInfo{Cause: b.Watchdog.Cause(), Formatted: formatted, Wake: st.Waking()}
	now := st.Now()
	if boot.Wake {
		slept := mathx.Min(st.PowerSave.Seconds(), int64(cfg.MaxSleep()/time.Second))
		st.Wake(now, slept)
	} else {
		st.Rearm(now)
	}
	if boot.Cause == halcore.ResetWatchdog {
		st.CountSecondaryFault()
	}

	if st.BusAddress != cfg.Bus.Address {
		log.Warn("Stored bus address differs from board config, using config",
			"stored", st.BusAddress, "config", cfg.Bus.Address)
		if err := store.Set(eeprom.BusAddress, cfg.Bus.Address); err != nil {
			log.Error("Persistent write failed", "slot", eeprom.BusAddress.String(), "err", err)
		}
		st.BusAddress = cfg.Bus.Address
	}

	pin := func(name string, n int) (halcore.GPIOPin, error) {
		p, ok := b.Pins.ByNumber(n)
		if !ok {
			return nil, fmt.Errorf("supervisor: %s pin %d: %w", name, n, halcore.ErrUnknownPin)
		}
		return p, nil
	}
	onPin, err := pin("power_on", cfg.Pins.PowerOn)
	if err != nil {
		return nil, err
	}
	offPin, err := pin("power_off", cfg.Pins.PowerOff)
	if err != nil {
		return nil, err
	}
	beaconPin, err := pin("beacon", cfg.Pins.Beacon)
	if err != nil {
		return nil, err
	}

	ind, err := beacon.New(beaconPin, b.Clock, beacon.DefaultTiming)
	if err != nil {
		return nil, fmt.Errorf("supervisor: beacon: %w", err)
	}
	act, err := power.New(onPin, offPin, b.Bus, b.Watchdog, b.Clock,
		power.Timing{Pulse: cfg.Pulse(), Settle: cfg.Settle()},
		log.With("component", "power"))
	if err != nil {
		return nil, fmt.Errorf("supervisor: power: %w", err)
	}

	date, err := cfg.BuildDate()
	if err != nil {
		return nil, fmt.Errorf("supervisor: build date: %w", err)
	}
	disp := protocol.NewDispatcher(st, act, ind,
		protocol.BuildInfo{Version: cfg.Version(), Date: date},
		log.With("component", "dispatcher"))

	sched := scheduler.New(scheduler.Deps{
		State:     st,
		Handler:   disp,
		Bus:       b.Bus,
		Power:     act,
		Beacon:    ind,
		Watchdog:  b.Watchdog,
		LowPower:  b.LowPower,
		Clock:     b.Clock,
		Publisher: tel,
		Log:       log.With("component", "scheduler"),
	}, scheduler.Config{
		Tick:            cfg.Tick(),
		BusReinit:       cfg.BusReinit(),
		WatchdogTimeout: cfg.Watchdog(),
		PowerSave:       cfg.PowerSave.Enabled,
		MaxSleep:        cfg.MaxSleep(),
		IdleBeforeSleep: cfg.SleepIdle(),
	})

	b.Bus.Enable()
	tel.Booted(boot.Cause, boot.Formatted, boot.Wake)
	log.Info("Supervisor booted",
		"cause", causeName(boot.Cause),
		"formatted", boot.Formatted,
		"wake", boot.Wake,
		"address", st.BusAddress,
		"primary_faults", st.PrimaryFaults,
		"secondary_faults", st.SecondaryFaults)

	return &Supervisor{log: log, st: st, sched: sched, boot: boot}, nil
}

// Run drives the main loop until ctx ends or the supervisor resets itself,
// in which case it returns ErrSelfReset.
func (s *Supervisor) Run(ctx context.Context) error {
	return s.sched.Run(ctx)
}

// Tick runs one loop pass. Only for callers that do not use Run.
func (s *Supervisor) Tick() error { return s.sched.Tick() }

func (s *Supervisor) Boot() BootInfo { return s.boot }

// Snapshot returns the current state. It must not race with Run.
func (s *Supervisor) Snapshot() types.State { return Snapshot(s.st, s.st.Now()) }

// Dump returns the raw persisted slot table.
func (s *Supervisor) Dump() []uint16 { return s.st.Store().Dump() }

// NumSlots is the size of the persisted slot table.
const NumSlots = int(eeprom.NumSlots)

// SlotName names persisted slot i.
func SlotName(i int) string { return eeprom.Slot(i).String() }
