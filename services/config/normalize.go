// services/config/normalize.go
package config

import "sentinel-go/x/mathx"

const (
	minTickMs     = 1
	defaultTickMs = 10
	defaultWdgMs  = 4000
	maxWdgMs      = 8300 // RP2040 watchdog counter limit
	defaultPulse  = 50
	defaultSettle = 500
	defaultReinit = 30
	defaultIdleMs = 2000
)

// Normalize fills zero values and clamps ranges. It may mutate cfg and must
// only be called after Validate.
func Normalize(cfg *Config) {
	if cfg.Timing.TickMs == 0 {
		cfg.Timing.TickMs = defaultTickMs
	}
	if cfg.Timing.WatchdogMs == 0 {
		cfg.Timing.WatchdogMs = defaultWdgMs
	}
	cfg.Timing.WatchdogMs = mathx.Clamp(cfg.Timing.WatchdogMs, 100, maxWdgMs)
	cfg.Timing.TickMs = mathx.Clamp(cfg.Timing.TickMs, minTickMs, cfg.Timing.WatchdogMs/2)

	if cfg.Timing.PulseMs == 0 {
		cfg.Timing.PulseMs = defaultPulse
	}
	if cfg.Timing.SettleMs == 0 {
		cfg.Timing.SettleMs = defaultSettle
	}
	if cfg.Bus.ReinitMin == 0 {
		cfg.Bus.ReinitMin = defaultReinit
	}
	if cfg.Bus.QueueDepth == 0 {
		cfg.Bus.QueueDepth = 1
	}

	// A sleep must end well before the self-watchdog bites.
	cfg.PowerSave.MaxSleepMs = mathx.Clamp(cfg.PowerSave.MaxSleepMs, 0, cfg.Timing.WatchdogMs*3/4)
	if cfg.PowerSave.IdleMs == 0 {
		cfg.PowerSave.IdleMs = defaultIdleMs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
