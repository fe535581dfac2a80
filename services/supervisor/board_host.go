//go:build !rp2040 && !rp2350

package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"sentinel-go/services/config"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/services/supervisor/internal/platform"
)

// HostBoard simulates the sentinel hardware on a desktop. The store, pins
// and command bus survive a simulated reset; the clock and watchdog do not.
type HostBoard struct {
	// Primary is the primary's end of the command bus. It satisfies
	// tinygo.org/x/drivers.I2C.
	Primary *platform.Loopback
	Pins    *platform.HostPinFactory

	store halcore.ByteStore
	sql   *platform.SQLiteStore
	log   *slog.Logger

	wd   *platform.HostWatchdog
	last context.Context
}

// NewHostBoard opens the store named by cfg.Store.Path, or an in-memory one
// when the path is empty.
func NewHostBoard(cfg *config.Config, log *slog.Logger) (*HostBoard, error) {
	h := &HostBoard{
		Primary: platform.NewLoopback(cfg.Bus.Address, cfg.Bus.QueueDepth),
		Pins:    platform.DefaultPinFactory(),
		log:     log,
	}
	if cfg.Store.Path == "" {
		h.store = platform.NewMemStore(eeprom.Size)
		return h, nil
	}
	s, err := platform.OpenSQLiteStore(cfg.Store.Path, eeprom.Size)
	if err != nil {
		return nil, fmt.Errorf("host board: %w", err)
	}
	h.sql, h.store = s, s
	return h, nil
}

// PowerUp starts a new boot. The returned context is cancelled when the
// simulated coprocessor resets; the next PowerUp reports the matching reset
// cause.
func (h *HostBoard) PowerUp(ctx context.Context) (Board, context.Context) {
	cause := halcore.ResetPowerOn
	if h.last != nil {
		cause = platform.ResetCauseOf(h.last)
	}
	if h.wd != nil {
		h.wd.Stop()
	}
	wd, wctx := platform.NewHostWatchdog(ctx, h.log.With("component", "watchdog"), cause)
	h.wd, h.last = wd, wctx

	clock := platform.NewSystemClock()
	return Board{
		Store:    h.store,
		Pins:     h.Pins,
		Bus:      h.Primary,
		Watchdog: wd,
		LowPower: platform.HostLowPower{Clock: clock},
		Clock:    clock,
	}, wctx
}

// Close stops the watchdog and closes the store.
func (h *HostBoard) Close() error {
	if h.wd != nil {
		h.wd.Stop()
	}
	if h.sql != nil {
		return h.sql.Close()
	}
	return nil
}
