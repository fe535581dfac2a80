// services/config/defaultconfigs.go
package config

var embeddedConfigs = map[string][]byte{
	"pico": []byte(picoYAML),
	"host": []byte(hostYAML),
}

// Raspberry Pi Pico sentinel board. The primary talks to us on I2C0 and
// the power rail is driven through a latching relay pair.
const picoYAML = `
bus:
  address: 0x08
  queue_depth: 1
  reinit_min: 30
  sda: 4
  scl: 5
pins:
  power_on: 14
  power_off: 15
  beacon: 25
timing:
  tick_ms: 10
  watchdog_ms: 4000
  pulse_ms: 50
  settle_ms: 500
power_save:
  enabled: true
  max_sleep_ms: 3000
  idle_ms: 2000
firmware:
  major: 1
  minor: 2
  build_date: "2026-03-14"
log:
  level: info
`

// Desktop simulation. Pins are fakes and the EEPROM lives in sqlite.
const hostYAML = `
bus:
  address: 0x08
  queue_depth: 8
  reinit_min: 30
pins:
  power_on: 14
  power_off: 15
  beacon: 25
timing:
  tick_ms: 10
  watchdog_ms: 4000
  pulse_ms: 50
  settle_ms: 500
power_save:
  enabled: false
  max_sleep_ms: 3000
  idle_ms: 2000
firmware:
  major: 1
  minor: 2
  build_date: "2026-03-14"
store:
  path: sentinel.db
log:
  level: info
`
