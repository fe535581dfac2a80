// Package protocol decodes single-byte opcodes from the primary and applies
// them to the supervisor state.
package protocol

import "fmt"

// Kind is the decoded meaning of an opcode byte.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPing
	KindUnlock
	KindLock
	KindVersion
	KindBuildDate
	KindRebootAll
	KindRebootSelf
	KindResetFaults
	KindPrimaryFaults
	KindSecondaryFaults
	KindEditTarget
	KindBeaconEnable
	KindBeaconDisable
	KindBeaconPulse
	KindShutdown
	KindAckEnable
	KindAckDisable
	KindFormat
	KindSelfTest
	KindSentinelEnable
	KindSentinelDisable
	KindSentinelKick
	KindSelectTimer
	KindSetFuse
	KindBlowFuse
	KindFuseQuery
	KindIntervalBase
	KindMultiplier
	KindDumpSlot
	KindBeaconMode
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindPing:            "ping",
	KindUnlock:          "unlock",
	KindLock:            "lock",
	KindVersion:         "version",
	KindBuildDate:       "build_date",
	KindRebootAll:       "reboot_all",
	KindRebootSelf:      "reboot_self",
	KindResetFaults:     "reset_faults",
	KindPrimaryFaults:   "primary_faults",
	KindSecondaryFaults: "secondary_faults",
	KindEditTarget:      "edit_target",
	KindBeaconEnable:    "beacon_enable",
	KindBeaconDisable:   "beacon_disable",
	KindBeaconPulse:     "beacon_pulse",
	KindShutdown:        "shutdown",
	KindAckEnable:       "ack_enable",
	KindAckDisable:      "ack_disable",
	KindFormat:          "format",
	KindSelfTest:        "self_test",
	KindSentinelEnable:  "sentinel_enable",
	KindSentinelDisable: "sentinel_disable",
	KindSentinelKick:    "sentinel_kick",
	KindSelectTimer:     "select_timer",
	KindSetFuse:         "set_fuse",
	KindBlowFuse:        "blow_fuse",
	KindFuseQuery:       "fuse_query",
	KindIntervalBase:    "interval_base",
	KindMultiplier:      "multiplier",
	KindDumpSlot:        "dump_slot",
	KindBeaconMode:      "beacon_mode",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Opcode byte values and range starts on the wire.
const (
	OpPing            = 0
	OpUnlock          = 1
	OpLock            = 2
	OpVersion         = 3
	OpBuildDate       = 4
	OpRebootAll       = 6
	OpRebootSelf      = 7
	OpResetFaults     = 8
	OpPrimaryFaults   = 9
	OpSecondaryFaults = 10
	OpEditSentinel    = 12
	OpEditPowerSave   = 13
	OpEditBeacon      = 14
	OpBeaconEnable    = 15
	OpBeaconDisable   = 16
	OpBeaconPulse     = 17
	OpShutdown        = 18
	OpAckEnable       = 19
	OpAckDisable      = 20
	OpFormat          = 21
	OpSelfTest        = 22
	OpSentinelEnable  = 30
	OpSentinelDisable = 31
	OpSentinelKick    = 32
	OpSelectTimer0    = 33
	OpSetFuse         = 37
	OpBlowFuse        = 38
	OpFuseQuery       = 39
	OpIntervalBase0   = 40
	OpMultiplier1     = 50
	OpDumpSlot0       = 70
	OpBeaconMode0     = 100
)

// Opcode is a decoded byte. Arg carries the range offset for ranged kinds
// (timer id, edit target, base selector, multiplier, slot, beacon mode).
type Opcode struct {
	Kind Kind
	Arg  uint8
	Raw  byte
}

func (o Opcode) String() string {
	switch o.Kind {
	case KindEditTarget, KindSelectTimer, KindIntervalBase, KindMultiplier, KindDumpSlot, KindBeaconMode:
		return fmt.Sprintf("%s(%d)", o.Kind, o.Arg)
	}
	return o.Kind.String()
}

// Decode maps b onto its Kind. Bytes outside every range decode to
// KindInvalid.
func Decode(b byte) Opcode {
	op := Opcode{Raw: b}
	switch {
	case b == OpPing:
		op.Kind = KindPing
	case b == OpUnlock:
		op.Kind = KindUnlock
	case b == OpLock:
		op.Kind = KindLock
	case b == OpVersion:
		op.Kind = KindVersion
	case b == OpBuildDate:
		op.Kind = KindBuildDate
	case b == OpRebootAll:
		op.Kind = KindRebootAll
	case b == OpRebootSelf:
		op.Kind = KindRebootSelf
	case b == OpResetFaults:
		op.Kind = KindResetFaults
	case b == OpPrimaryFaults:
		op.Kind = KindPrimaryFaults
	case b == OpSecondaryFaults:
		op.Kind = KindSecondaryFaults
	case b >= OpEditSentinel && b <= OpEditBeacon:
		op.Kind, op.Arg = KindEditTarget, b-OpEditSentinel
	case b == OpBeaconEnable:
		op.Kind = KindBeaconEnable
	case b == OpBeaconDisable:
		op.Kind = KindBeaconDisable
	case b == OpBeaconPulse:
		op.Kind = KindBeaconPulse
	case b == OpShutdown:
		op.Kind = KindShutdown
	case b == OpAckEnable:
		op.Kind = KindAckEnable
	case b == OpAckDisable:
		op.Kind = KindAckDisable
	case b == OpFormat:
		op.Kind = KindFormat
	case b == OpSelfTest:
		op.Kind = KindSelfTest
	case b == OpSentinelEnable:
		op.Kind = KindSentinelEnable
	case b == OpSentinelDisable:
		op.Kind = KindSentinelDisable
	case b == OpSentinelKick:
		op.Kind = KindSentinelKick
	case b >= OpSelectTimer0 && b < OpSelectTimer0+4:
		op.Kind, op.Arg = KindSelectTimer, b-OpSelectTimer0
	case b == OpSetFuse:
		op.Kind = KindSetFuse
	case b == OpBlowFuse:
		op.Kind = KindBlowFuse
	case b == OpFuseQuery:
		op.Kind = KindFuseQuery
	case b >= OpIntervalBase0 && b < OpMultiplier1:
		op.Kind, op.Arg = KindIntervalBase, b-OpIntervalBase0
	case b >= OpMultiplier1 && b < OpDumpSlot0:
		op.Kind, op.Arg = KindMultiplier, b-OpMultiplier1+1
	case b >= OpDumpSlot0 && b < OpBeaconMode0:
		op.Kind, op.Arg = KindDumpSlot, b-OpDumpSlot0
	case b >= OpBeaconMode0 && b < OpBeaconMode0+4:
		op.Kind, op.Arg = KindBeaconMode, b-OpBeaconMode0
	default:
		op.Kind = KindInvalid
	}
	return op
}

// Forced reports whether the opcode is answered even with ack disabled.
func (o Opcode) Forced() bool {
	switch o.Kind {
	case KindPing, KindVersion, KindBuildDate,
		KindPrimaryFaults, KindSecondaryFaults,
		KindFuseQuery, KindDumpSlot:
		return true
	}
	return false
}

// Gated reports whether the opcode needs the config lock open.
func (o Opcode) Gated() bool {
	switch o.Kind {
	case KindRebootAll, KindRebootSelf, KindResetFaults,
		KindBeaconEnable, KindBeaconDisable, KindShutdown,
		KindAckEnable, KindAckDisable, KindFormat, KindSelfTest,
		KindSentinelEnable, KindSentinelDisable, KindSentinelKick,
		KindSetFuse, KindBlowFuse,
		KindIntervalBase, KindMultiplier, KindBeaconMode:
		return true
	}
	return false
}
