package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sentinel-go/services/supervisor/internal/protocol"
)

func TestDecode_RangeBoundaries(t *testing.T) {
	cases := []struct {
		b    byte
		kind protocol.Kind
		arg  uint8
	}{
		{0, protocol.KindPing, 0},
		{1, protocol.KindUnlock, 0},
		{2, protocol.KindLock, 0},
		{3, protocol.KindVersion, 0},
		{4, protocol.KindBuildDate, 0},
		{5, protocol.KindInvalid, 0},
		{6, protocol.KindRebootAll, 0},
		{7, protocol.KindRebootSelf, 0},
		{8, protocol.KindResetFaults, 0},
		{9, protocol.KindPrimaryFaults, 0},
		{10, protocol.KindSecondaryFaults, 0},
		{11, protocol.KindInvalid, 0},
		{12, protocol.KindEditTarget, 0},
		{14, protocol.KindEditTarget, 2},
		{15, protocol.KindBeaconEnable, 0},
		{16, protocol.KindBeaconDisable, 0},
		{17, protocol.KindBeaconPulse, 0},
		{18, protocol.KindShutdown, 0},
		{19, protocol.KindAckEnable, 0},
		{20, protocol.KindAckDisable, 0},
		{21, protocol.KindFormat, 0},
		{22, protocol.KindSelfTest, 0},
		{23, protocol.KindInvalid, 0},
		{29, protocol.KindInvalid, 0},
		{30, protocol.KindSentinelEnable, 0},
		{31, protocol.KindSentinelDisable, 0},
		{32, protocol.KindSentinelKick, 0},
		{33, protocol.KindSelectTimer, 0},
		{36, protocol.KindSelectTimer, 3},
		{37, protocol.KindSetFuse, 0},
		{38, protocol.KindBlowFuse, 0},
		{39, protocol.KindFuseQuery, 0},
		{40, protocol.KindIntervalBase, 0},
		{49, protocol.KindIntervalBase, 9},
		{50, protocol.KindMultiplier, 1},
		{69, protocol.KindMultiplier, 20},
		{70, protocol.KindDumpSlot, 0},
		{99, protocol.KindDumpSlot, 29},
		{100, protocol.KindBeaconMode, 0},
		{103, protocol.KindBeaconMode, 3},
		{104, protocol.KindInvalid, 0},
		{150, protocol.KindInvalid, 0},
		{255, protocol.KindInvalid, 0},
	}
	for _, c := range cases {
		op := protocol.Decode(c.b)
		require.Equal(t, c.kind, op.Kind, "byte %d", c.b)
		require.Equal(t, c.arg, op.Arg, "byte %d", c.b)
		require.Equal(t, c.b, op.Raw)
	}
}

func TestForcedAndGated(t *testing.T) {
	forced := map[byte]bool{0: true, 3: true, 4: true, 9: true, 10: true, 39: true}
	for b := 70; b <= 99; b++ {
		forced[byte(b)] = true
	}
	for b := 0; b < 256; b++ {
		op := protocol.Decode(byte(b))
		require.Equal(t, forced[byte(b)], op.Forced(), "byte %d", b)
		if op.Forced() {
			require.False(t, op.Gated(), "byte %d", b)
		}
	}

	for _, b := range []byte{6, 7, 8, 15, 16, 18, 19, 20, 21, 22, 30, 31, 32, 37, 38, 40, 49, 50, 69, 100, 103} {
		require.True(t, protocol.Decode(b).Gated(), "byte %d", b)
	}
	for _, b := range []byte{0, 1, 2, 12, 13, 14, 17, 33, 36, 150} {
		require.False(t, protocol.Decode(b).Gated(), "byte %d", b)
	}
}

func TestOpcode_String(t *testing.T) {
	require.Equal(t, "ping", protocol.Decode(0).String())
	require.Equal(t, "multiplier(8)", protocol.Decode(57).String())
	require.Equal(t, "invalid", protocol.Decode(200).String())
}
