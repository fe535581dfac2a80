// services/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Board     string          `yaml:"board"`
	Bus       BusConfig       `yaml:"bus"`
	Pins      PinsConfig      `yaml:"pins"`
	Timing    TimingConfig    `yaml:"timing"`
	PowerSave PowerSaveConfig `yaml:"power_save"`
	Firmware  FirmwareConfig  `yaml:"firmware"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// ---- BUS ----

type BusConfig struct {
	Address    uint16 `yaml:"address"`
	QueueDepth int    `yaml:"queue_depth"`
	ReinitMin  int    `yaml:"reinit_min"`
	SDA        int    `yaml:"sda"`
	SCL        int    `yaml:"scl"`
}

// ---- PINS ----

type PinsConfig struct {
	PowerOn  int `yaml:"power_on"`
	PowerOff int `yaml:"power_off"`
	Beacon   int `yaml:"beacon"`
}

// ---- TIMING ----

type TimingConfig struct {
	TickMs     int `yaml:"tick_ms"`
	WatchdogMs int `yaml:"watchdog_ms"`
	PulseMs    int `yaml:"pulse_ms"`
	SettleMs   int `yaml:"settle_ms"`
}

// ---- POWER SAVE ----

type PowerSaveConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxSleepMs int  `yaml:"max_sleep_ms"`
	IdleMs     int  `yaml:"idle_ms"` // bus silence before the first sleep
}

// ---- FIRMWARE ----

type FirmwareConfig struct {
	Major     uint8  `yaml:"major"`
	Minor     uint8  `yaml:"minor"`
	BuildDate string `yaml:"build_date"` // YYYY-MM-DD
}

// ---- STORE ----

type StoreConfig struct {
	// Path of the sqlite file emulating the EEPROM on hosts. Empty keeps the
	// slot table in memory.
	Path string `yaml:"path"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

const dateLayout = "2006-01-02"

func (c *Config) Tick() time.Duration      { return ms(c.Timing.TickMs) }
func (c *Config) Watchdog() time.Duration  { return ms(c.Timing.WatchdogMs) }
func (c *Config) Pulse() time.Duration     { return ms(c.Timing.PulseMs) }
func (c *Config) Settle() time.Duration    { return ms(c.Timing.SettleMs) }
func (c *Config) MaxSleep() time.Duration  { return ms(c.PowerSave.MaxSleepMs) }
func (c *Config) SleepIdle() time.Duration { return ms(c.PowerSave.IdleMs) }
func (c *Config) BusReinit() time.Duration { return time.Duration(c.Bus.ReinitMin) * time.Minute }

// Version packs the firmware version as major<<8 | minor.
func (c *Config) Version() uint16 {
	return uint16(c.Firmware.Major)<<8 | uint16(c.Firmware.Minor)
}

// BuildDate parses Firmware.BuildDate. An empty value yields the zero time.
func (c *Config) BuildDate() (time.Time, error) {
	if c.Firmware.BuildDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, c.Firmware.BuildDate)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

var ErrUnknownBoard = errors.New("config: unknown board")

// EmbeddedConfigLookup resolves the built-in YAML for a board. Tests may
// replace it.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Parse decodes YAML over base. Unknown keys are rejected.
func Parse(raw []byte, base *Config) (*Config, error) {
	cfg := *base
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Board returns the embedded defaults for board.
func Board(board string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
	cfg, err := Parse(raw, &Config{})
	if err != nil {
		return nil, fmt.Errorf("config: board %q: %w", board, err)
	}
	cfg.Board = board
	return cfg, nil
}

// Load returns the embedded defaults for board with the YAML file at path
// laid over them, then validates and normalises the result. An empty path
// skips the overlay.
func Load(board, path string) (*Config, error) {
	cfg, err := Board(board)
	if err != nil {
		return nil, err
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Parse(raw, cfg); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}
