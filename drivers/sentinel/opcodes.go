package sentinel

// AddressDefault is the factory bus address of the coprocessor.
const AddressDefault = 0x08

// Opcodes. Each byte of a transaction is one opcode and yields one 16-bit
// little-endian word, or none when acks are off and the reply is not forced.
const (
	opPing            = 0
	opUnlock          = 1
	opLock            = 2
	opVersion         = 3
	opBuildDate       = 4
	opRebootAll       = 6
	opRebootSelf      = 7
	opResetFaults     = 8
	opPrimaryFaults   = 9
	opSecondaryFaults = 10
	opEditSentinel    = 12
	opEditPowerSave   = 13
	opEditBeacon      = 14
	opBeaconEnable    = 15
	opBeaconDisable   = 16
	opBeaconPulse     = 17
	opShutdown        = 18
	opAckEnable       = 19
	opAckDisable      = 20
	opFormat          = 21
	opSelfTest        = 22
	opSentinelEnable  = 30
	opSentinelDisable = 31
	opSentinelKick    = 32
	opSelectTimer0    = 33
	opSetFuse         = 37
	opBlowFuse        = 38
	opFuseQuery       = 39
	opIntervalBase0   = 40
	opMultiplier1     = 50
	opDumpSlot0       = 70
	opBeaconMode0     = 100
)

// Response words.
const (
	codeSuccess      = 0x0000
	codePingResponse = 0x00A5
)

const (
	NumTimers = 4
	// FuseTimer is the timer slot that doubles as the anti-flapping fuse.
	FuseTimer = 3
	// NumSlots is the size of the persisted slot table.
	NumSlots = 29
	// NumBases is the number of selectable interval bases.
	NumBases = 7

	MinMultiplier = 1
	MaxMultiplier = 20
)

// ackSlot is the persisted reply toggle.
const ackSlot = 22

// TimerEnabledSlot is the persisted slot holding timer id's enabled flag.
// The start, base and multiplier slots follow it.
func TimerEnabledSlot(id int) int { return 2 + 4*id }

// Bases lists the interval bases in seconds, indexed by selector.
var Bases = [NumBases]uint16{1, 5, 10, 15, 30, 60, 90}

// EditTarget picks which interval SetInterval changes.
type EditTarget uint8

const (
	EditSentinel EditTarget = iota
	EditPowerSave
	EditBeacon
)

type BeaconMode uint8

const (
	BeaconMirror BeaconMode = iota
	BeaconPattern
	BeaconToggle
	BeaconChirp
)
