//go:build rp2040

package supervisor

import (
	"fmt"
	"log/slog"
	"machine"

	"sentinel-go/services/config"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/platform"
)

// NewPicoBoard brings up the RP2040 peripherals named by cfg: the I2C target
// the primary talks to, GPIO, the hardware watchdog and a flash-backed store.
func NewPicoBoard(cfg *config.Config, log *slog.Logger) (Board, error) {
	store, err := platform.NewFlashStore(eeprom.Size)
	if err != nil {
		return Board{}, fmt.Errorf("pico board: store: %w", err)
	}
	i2c := platform.I2CForPins(cfg.Bus.SDA)
	bus, err := platform.NewI2CTarget(i2c,
		machine.Pin(cfg.Bus.SDA), machine.Pin(cfg.Bus.SCL),
		cfg.Bus.Address, cfg.Bus.QueueDepth)
	if err != nil {
		return Board{}, fmt.Errorf("pico board: i2c target: %w", err)
	}
	wd := platform.NewRP2Watchdog()
	log.Debug("Pico board up", "sda", cfg.Bus.SDA, "scl", cfg.Bus.SCL, "address", cfg.Bus.Address)

	return Board{
		Store:    store,
		Pins:     platform.DefaultPinFactory(),
		Bus:      bus,
		Watchdog: wd,
		LowPower: platform.RP2LowPower{},
		Clock:    platform.NewSystemClock(),
	}, nil
}
