package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoard_Pico(t *testing.T) {
	cfg, err := Board("pico")
	require.NoError(t, err)
	require.Equal(t, "pico", cfg.Board)
	require.Equal(t, uint16(0x08), cfg.Bus.Address)
	require.Equal(t, 25, cfg.Pins.Beacon)
	require.True(t, cfg.PowerSave.Enabled)
	require.Equal(t, uint16(0x0102), cfg.Version())
	require.Equal(t, 4*time.Second, cfg.Watchdog())
	require.Equal(t, 30*time.Minute, cfg.BusReinit())
	require.NoError(t, Validate(cfg))
}

func TestBoard_Unknown(t *testing.T) {
	_, err := Board("nope")
	require.ErrorIs(t, err, ErrUnknownBoard)
}

func TestEmbeddedConfigLookup_Override(t *testing.T) {
	orig := EmbeddedConfigLookup
	t.Cleanup(func() { EmbeddedConfigLookup = orig })
	EmbeddedConfigLookup = func(string) ([]byte, bool) {
		return []byte("bus:\n  address: 0x21\n"), true
	}
	cfg, err := Board("custom")
	require.NoError(t, err)
	require.Equal(t, uint16(0x21), cfg.Bus.Address)
}

func TestLoad_OverlayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus:
  address: 0x10
power_save:
  enabled: true
  max_sleep_ms: 60000
log:
  level: debug
`), 0o600))

	cfg, err := Load("host", path)
	require.NoError(t, err)
	require.Equal(t, uint16(0x10), cfg.Bus.Address)
	require.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep the board default
	require.Equal(t, 14, cfg.Pins.PowerOn)
	require.Equal(t, "sentinel.db", cfg.Store.Path)
	// clamped to 3/4 of the watchdog timeout
	require.Equal(t, 3*time.Second, cfg.MaxSleep())
	require.Equal(t, 2*time.Second, cfg.SleepIdle())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  adress: 0x10\n"), 0o600))
	_, err := Load("host", path)
	require.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("host", "")
	require.NoError(t, err)
	require.False(t, cfg.PowerSave.Enabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Board("pico")
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(*Config){
		"address low":   func(c *Config) { c.Bus.Address = 0x03 },
		"address high":  func(c *Config) { c.Bus.Address = 0x78 },
		"pin clash":     func(c *Config) { c.Pins.Beacon = c.Pins.PowerOn },
		"negative pin":  func(c *Config) { c.Pins.PowerOff = -1 },
		"tick >= wdg":   func(c *Config) { c.Timing.TickMs = c.Timing.WatchdogMs },
		"bad date":      func(c *Config) { c.Firmware.BuildDate = "14/03/2026" },
		"date too old":  func(c *Config) { c.Firmware.BuildDate = "1970-01-01" },
		"unknown level": func(c *Config) { c.Log.Level = "loud" },
		"negative idle": func(c *Config) { c.PowerSave.IdleMs = -1 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mut(cfg)
			require.Error(t, Validate(cfg))
		})
	}
	require.Error(t, Validate(nil))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := &Config{Bus: BusConfig{Address: 0x08}, Pins: PinsConfig{PowerOn: 1, PowerOff: 2, Beacon: 3}}
	before := *cfg
	require.NoError(t, Validate(cfg))
	require.Equal(t, before, *cfg)
}

func TestNormalize_FillsDefaults(t *testing.T) {
	cfg := &Config{}
	Normalize(cfg)
	require.Equal(t, 10*time.Millisecond, cfg.Tick())
	require.Equal(t, 4*time.Second, cfg.Watchdog())
	require.Equal(t, 50*time.Millisecond, cfg.Pulse())
	require.Equal(t, 500*time.Millisecond, cfg.Settle())
	require.Equal(t, 1, cfg.Bus.QueueDepth)
	require.Equal(t, "info", cfg.Log.Level)

	cfg = &Config{Timing: TimingConfig{WatchdogMs: 20000}}
	Normalize(cfg)
	require.Equal(t, 8300, cfg.Timing.WatchdogMs)
}

func TestBuildDate(t *testing.T) {
	cfg := &Config{Firmware: FirmwareConfig{BuildDate: "2026-03-14"}}
	d, err := cfg.BuildDate()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), d)

	d, err = (&Config{}).BuildDate()
	require.NoError(t, err)
	require.True(t, d.IsZero())
}
