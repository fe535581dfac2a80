//go:build rp2040

package platform

import (
	"device/rp"
	"machine"
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

// selfResetMagic marks a watchdog reset the supervisor asked for. Scratch
// registers survive a watchdog reset.
const selfResetMagic = 0x5E1F0000

// RP2Watchdog is the RP2040 hardware watchdog.
type RP2Watchdog struct {
	cause halcore.ResetCause
}

// NewRP2Watchdog reads and clears the reset reason.
func NewRP2Watchdog() *RP2Watchdog {
	w := &RP2Watchdog{cause: halcore.ResetPowerOn}
	reason := rp.WATCHDOG.REASON.Get()
	switch {
	case rp.WATCHDOG.SCRATCH0.Get() == selfResetMagic:
		w.cause = halcore.ResetOther
	case reason&rp.WATCHDOG_REASON_TIMER != 0:
		w.cause = halcore.ResetWatchdog
	case reason&rp.WATCHDOG_REASON_FORCE != 0:
		w.cause = halcore.ResetOther
	}
	rp.WATCHDOG.SCRATCH0.Set(0)
	return w
}

func (w *RP2Watchdog) Start(timeout time.Duration) error {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: uint32(timeout.Milliseconds())})
	return machine.Watchdog.Start()
}

func (w *RP2Watchdog) Update() { machine.Watchdog.Update() }

// Reset arms the shortest timeout and spins until the watchdog fires.
func (w *RP2Watchdog) Reset() error {
	rp.WATCHDOG.SCRATCH0.Set(selfResetMagic)
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	_ = machine.Watchdog.Start()
	for {
	}
}

func (w *RP2Watchdog) Cause() halcore.ResetCause { return w.cause }

// RP2LowPower idles the core. The running clock keeps counting, so the full
// request is reported.
type RP2LowPower struct{}

func (RP2LowPower) Sleep(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	time.Sleep(max)
	return max
}

func (RP2LowPower) RetainsState() bool { return true }
