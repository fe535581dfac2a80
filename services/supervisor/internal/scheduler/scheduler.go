// Package scheduler runs the supervisor's cooperative main loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/core"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/services/supervisor/internal/power"
	"sentinel-go/x/mathx"
)

type Config struct {
	Tick            time.Duration
	BusReinit       time.Duration
	WatchdogTimeout time.Duration
	// PowerSave enables the low-power sleep at the end of idle ticks.
	PowerSave bool
	// MaxSleep bounds one sleep. It must stay below WatchdogTimeout.
	MaxSleep time.Duration
	// IdleBeforeSleep is the bus silence required before the first sleep.
	IdleBeforeSleep time.Duration
}

var DefaultConfig = Config{
	Tick:            10 * time.Millisecond,
	BusReinit:       30 * time.Minute,
	WatchdogTimeout: 4 * time.Second,
	MaxSleep:        3 * time.Second,
	IdleBeforeSleep: 2 * time.Second,
}

// Handler services one bus transaction.
type Handler interface {
	Handle(tx halcore.Transaction) error
}

type Indicator interface {
	Evaluate(c *beacon.Config, now int64, timer0Enabled bool)
	Fire(c *beacon.Config, now int64, fuseBlown bool)
}

// Publisher receives a state snapshot about once per second.
type Publisher interface {
	PublishState(st *core.SupervisorState, now int64)
}

type nopPublisher struct{}

func (nopPublisher) PublishState(*core.SupervisorState, int64) {}

type Deps struct {
	State     *core.SupervisorState
	Handler   Handler
	Bus       halcore.Transport
	Power     power.Controller
	Beacon    Indicator
	Watchdog  halcore.SelfWatchdog
	LowPower  halcore.LowPower
	Clock     halcore.Clock
	Publisher Publisher
	Log       *slog.Logger
}

type Scheduler struct {
	Deps
	cfg Config

	lastReinit  time.Duration
	lastBusy    time.Duration
	lastPublish int64
	reboots     int
}

func New(d Deps, cfg Config) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig.Tick
	}
	if cfg.BusReinit <= 0 {
		cfg.BusReinit = DefaultConfig.BusReinit
	}
	if cfg.WatchdogTimeout <= 0 {
		cfg.WatchdogTimeout = DefaultConfig.WatchdogTimeout
	}
	if cfg.MaxSleep <= 0 {
		cfg.MaxSleep = DefaultConfig.MaxSleep
	}
	cfg.MaxSleep = mathx.Min(cfg.MaxSleep, cfg.WatchdogTimeout*3/4)
	if cfg.IdleBeforeSleep <= 0 {
		cfg.IdleBeforeSleep = DefaultConfig.IdleBeforeSleep
	}
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	return &Scheduler{
		Deps:        d,
		cfg:         cfg,
		lastReinit:  d.Clock.Now(),
		lastBusy:    d.Clock.Now(),
		lastPublish: -1,
	}
}

// Reboots returns how many primary reboots the loop has issued.
func (s *Scheduler) Reboots() int { return s.reboots }

// Run arms the self-watchdog and ticks until ctx ends or a tick fails. The
// returned error is the tick error or the context cause.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Watchdog.Start(s.cfg.WatchdogTimeout); err != nil {
		return err
	}
	s.Log.Info("Scheduler running", "tick", s.cfg.Tick, "watchdog", s.cfg.WatchdogTimeout)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
			s.Watchdog.Update()
			if err := s.Tick(); err != nil {
				return err
			}
		}
	}
}

// Tick runs one pass of the loop body.
func (s *Scheduler) Tick() error {
	st := s.State

	// 1. Defensive bus reinit.
	if now := s.Clock.Now(); now-s.lastReinit >= s.cfg.BusReinit {
		s.lastReinit = now
		if err := s.Bus.Reinit(); err != nil {
			s.Log.Error("Bus reinit failed", "err", err)
		} else {
			s.Log.Debug("Bus reinitialised")
		}
	}

	// 2. At most one transaction. The dispatcher drops it while the
	// previous tick's reboot is still pending.
	if tx, ok := s.Bus.Poll(); ok {
		s.lastBusy = s.Clock.Now()
		if err := s.Handler.Handle(tx); err != nil {
			return err
		}
	}

	// 3, 4.
	sec := st.Now()
	pending := false
	for id := 0; id < core.NumTimers; id++ {
		if st.Expired(id, sec) {
			pending = true
		}
	}
	st.RebootPending = pending

	// 5.
	s.Beacon.Evaluate(&st.Beacon, sec, st.Timers[0].Enabled)
	s.Beacon.Fire(&st.Beacon, sec, st.FuseBlown())

	// 6.
	if pending {
		expired := st.Expire(sec)
		s.Log.Warn("Watchdog expired, rebooting primary",
			"expired", expired, "primary_faults", st.PrimaryFaults)
		s.Power.RebootPrimary()
		s.reboots++
	}

	if sec != s.lastPublish {
		s.lastPublish = sec
		s.Publisher.PublishState(st, sec)
	}

	// 7. Sleep only once the primary has gone quiet.
	idle := s.Clock.Now()-s.lastBusy >= s.cfg.IdleBeforeSleep
	if s.cfg.PowerSave && idle && !pending && !st.Beacon.Pending {
		s.sleep(sec)
	}
	return nil
}

func (s *Scheduler) sleep(sec int64) {
	st := s.State
	max := time.Duration(st.PowerSave.Seconds()) * time.Second
	max = mathx.Clamp(max, 0, s.cfg.MaxSleep)
	if max <= 0 {
		return
	}
	if r, ok := s.LowPower.(halcore.StateRetainer); ok && r.RetainsState() {
		s.Watchdog.Update()
		s.LowPower.Sleep(max)
		s.Watchdog.Update()
		return
	}
	persisted := st.PrepareSleep(sec)
	s.Watchdog.Update()
	slept := s.LowPower.Sleep(max)
	s.Watchdog.Update()
	if persisted {
		st.Wake(st.Now(), int64(slept/time.Second))
	}
}
