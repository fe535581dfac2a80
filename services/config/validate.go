// services/config/validate.go
package config

import (
	"fmt"
	"time"
)

// Validate performs declarative validation only. It must not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ---- bus ----
	if cfg.Bus.Address < 0x08 || cfg.Bus.Address > 0x77 {
		return fmt.Errorf("bus.address: 0x%02x outside 7-bit user range", cfg.Bus.Address)
	}
	if cfg.Bus.QueueDepth < 0 {
		return fmt.Errorf("bus.queue_depth: must be >= 0")
	}
	if cfg.Bus.ReinitMin < 0 {
		return fmt.Errorf("bus.reinit_min: must be >= 0")
	}

	// ---- pins ----
	pins := map[string]int{
		"power_on":  cfg.Pins.PowerOn,
		"power_off": cfg.Pins.PowerOff,
		"beacon":    cfg.Pins.Beacon,
	}
	seen := make(map[int]string, len(pins))
	for name, n := range pins {
		if n < 0 {
			return fmt.Errorf("pins.%s: must be >= 0", name)
		}
		if other, dup := seen[n]; dup {
			return fmt.Errorf("pins.%s: pin %d already used by pins.%s", name, n, other)
		}
		seen[n] = name
	}

	// ---- timing ----
	if cfg.Timing.TickMs < 0 || cfg.Timing.WatchdogMs < 0 ||
		cfg.Timing.PulseMs < 0 || cfg.Timing.SettleMs < 0 {
		return fmt.Errorf("timing: durations must be >= 0")
	}
	if cfg.Timing.WatchdogMs > 0 && cfg.Timing.TickMs >= cfg.Timing.WatchdogMs {
		return fmt.Errorf("timing.tick_ms: %d must be below watchdog_ms %d",
			cfg.Timing.TickMs, cfg.Timing.WatchdogMs)
	}

	// ---- power save ----
	if cfg.PowerSave.MaxSleepMs < 0 {
		return fmt.Errorf("power_save.max_sleep_ms: must be >= 0")
	}
	if cfg.PowerSave.IdleMs < 0 {
		return fmt.Errorf("power_save.idle_ms: must be >= 0")
	}

	// ---- firmware ----
	if cfg.Firmware.BuildDate != "" {
		d, err := time.Parse(dateLayout, cfg.Firmware.BuildDate)
		if err != nil {
			return fmt.Errorf("firmware.build_date: %w", err)
		}
		if d.Year() < 1980 || d.Year() > 2107 {
			return fmt.Errorf("firmware.build_date: year %d not representable", d.Year())
		}
	}

	// ---- log ----
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}

	return nil
}
