// Package types holds the payloads the supervisor publishes on the bus.
package types

// ---- Supervisor state (retained) ----

// Phase is the watchdog state of one timer.
type Phase string

const (
	PhaseDisabled Phase = "disabled"
	PhaseArmed    Phase = "armed"
	PhaseExpired  Phase = "expired"
)

type TimerState struct {
	ID         int    `json:"id"`
	Phase      Phase  `json:"phase"`
	ElapsedS   int64  `json:"elapsed_s"`
	ThresholdS int64  `json:"threshold_s"`
	Base       uint16 `json:"base"`
	Mult       uint16 `json:"mult"`
}

type BeaconState struct {
	Enabled   bool   `json:"enabled"`
	Mode      string `json:"mode"`
	IntervalS int64  `json:"interval_s"`
}

// Retained value: sentinel/state
type State struct {
	Timers          []TimerState `json:"timers"`
	Selected        int          `json:"selected"`
	EditTarget      string       `json:"edit_target"`
	FuseBlown       bool         `json:"fuse_blown"`
	Locked          bool         `json:"locked"`
	AckEnabled      bool         `json:"ack_enabled"`
	PrimaryFaults   uint16       `json:"primary_faults"`
	SecondaryFaults uint16       `json:"secondary_faults"`
	Beacon          BeaconState  `json:"beacon"`
	PowerSaveS      int64        `json:"power_save_s"`
	UptimeS         int64        `json:"uptime_s"`
}

// ---- Events (not retained) ----

// sentinel/event/reboot
type RebootEvent struct {
	Expired       []int  `json:"expired"`
	PrimaryFaults uint16 `json:"primary_faults"`
	UptimeS       int64  `json:"uptime_s"`
}

// sentinel/event/fuse
type FuseEvent struct {
	Blown   bool  `json:"blown"`
	UptimeS int64 `json:"uptime_s"`
}

// sentinel/event/flood
type FloodEvent struct {
	DeltaS  int64 `json:"delta_s"`
	UptimeS int64 `json:"uptime_s"`
}

// sentinel/event/boot
type BootEvent struct {
	Cause     string `json:"cause"`
	Formatted bool   `json:"formatted"`
	Wake      bool   `json:"wake"`
}
