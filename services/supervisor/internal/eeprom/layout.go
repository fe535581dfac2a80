package eeprom

// Slot is the index of one 16-bit durable value. Byte address = Slot*2,
// stored little-endian. Indices and widths are part of the compatibility
// surface; append only.
type Slot uint8

const (
	InitFlag Slot = iota
	BusAddress

	Timer0Enabled
	Timer0Start
	Timer0Base
	Timer0Mult

	Timer1Enabled
	Timer1Start
	Timer1Base
	Timer1Mult

	Timer2Enabled
	Timer2Start
	Timer2Base
	Timer2Mult

	Timer3Enabled
	Timer3Start
	Timer3Base
	Timer3Mult

	BeaconEnabled
	BeaconMode
	BeaconBase
	BeaconMult

	AckEnabled
	PrimaryFaults
	SecondaryFaults
	PowerSaveWake
	LastPing
	PowerSaveBase
	PowerSaveMult

	NumSlots
)

// InitMarker is written to InitFlag by Format.
const InitMarker uint16 = 0x5A17

// SlotBytes is the width of one slot.
const SlotBytes = 2

// Size is the number of bytes the layout occupies.
const Size = int(NumSlots) * SlotBytes

// Per-timer field offsets relative to TimerSlots(id).
const (
	fieldEnabled = iota
	fieldStart
	fieldBase
	fieldMult
	timerFields
)

// TimerSlots returns the enabled/start/base/mult slots for timer id.
func TimerSlots(id int) (enabled, start, base, mult Slot) {
	first := Timer0Enabled + Slot(id*timerFields)
	return first + fieldEnabled, first + fieldStart, first + fieldBase, first + fieldMult
}

// Defaults for a freshly formatted store.
const (
	DefaultBusAddress    = 0x08
	DefaultTimerBase     = 60
	DefaultTimerMult     = 10
	DefaultBeaconMode    = 1
	DefaultBeaconBase    = 10
	DefaultBeaconMult    = 1
	DefaultPowerSaveBase = 5
	DefaultPowerSaveMult = 1
)

// Default returns the documented default for s.
func Default(s Slot) uint16 {
	switch s {
	case InitFlag:
		return InitMarker
	case BusAddress:
		return DefaultBusAddress
	case BeaconMode:
		return DefaultBeaconMode
	case BeaconBase:
		return DefaultBeaconBase
	case BeaconMult:
		return DefaultBeaconMult
	case AckEnabled:
		return 1
	case PowerSaveBase:
		return DefaultPowerSaveBase
	case PowerSaveMult:
		return DefaultPowerSaveMult
	}
	if s >= Timer0Enabled && s <= Timer3Mult {
		switch (s - Timer0Enabled) % timerFields {
		case fieldBase:
			return DefaultTimerBase
		case fieldMult:
			return DefaultTimerMult
		}
	}
	return 0
}

var slotNames = [NumSlots]string{
	"init_flag", "bus_address",
	"timer0_enabled", "timer0_start", "timer0_base", "timer0_mult",
	"timer1_enabled", "timer1_start", "timer1_base", "timer1_mult",
	"timer2_enabled", "timer2_start", "timer2_base", "timer2_mult",
	"timer3_enabled", "timer3_start", "timer3_base", "timer3_mult",
	"beacon_enabled", "beacon_mode", "beacon_base", "beacon_mult",
	"ack_enabled", "primary_faults", "secondary_faults",
	"power_save_wake", "last_ping", "power_save_base", "power_save_mult",
}

func (s Slot) String() string {
	if s < NumSlots {
		return slotNames[s]
	}
	return "invalid"
}

// Valid reports whether s names a slot in the layout.
func (s Slot) Valid() bool { return s < NumSlots }
