package beacon_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/platform"
)

func newIndicator(t *testing.T) (*beacon.Indicator, *platform.FakePin, *platform.FakeClock) {
	t.Helper()
	pins := platform.DefaultPinFactory()
	pin := pins.Get(25)
	clk := platform.NewFakeClock(0)
	b, err := beacon.New(pin, clk, beacon.Timing{})
	require.NoError(t, err)
	require.True(t, pin.IsOutput())
	pin.ResetHistory()
	return b, pin, clk
}

func TestMirror_FollowsTimer0EvenWhenDisabled(t *testing.T) {
	b, pin, _ := newIndicator(t)
	c := &beacon.Config{Mode: beacon.ModeMirror}

	b.Evaluate(c, 5, true)
	require.True(t, pin.Get())
	b.Evaluate(c, 6, false)
	require.False(t, pin.Get())
	require.False(t, c.Pending)
}

func TestPattern_PendingOnlyAfterInterval(t *testing.T) {
	b, pin, _ := newIndicator(t)
	c := &beacon.Config{Enabled: true, Mode: beacon.ModePattern, Base: 10, Mult: 1}

	b.Evaluate(c, 9, false)
	require.False(t, c.Pending)
	b.Evaluate(c, 10, false)
	require.True(t, c.Pending)

	b.Fire(c, 10, false)
	require.False(t, c.Pending)
	require.Equal(t, int64(10), c.LastTrigger)
	require.Equal(t, 3, pin.RisingEdges())
	require.False(t, pin.Get())
}

func TestPattern_LongPulseWhenFuseBlown(t *testing.T) {
	b, pin, clk := newIndicator(t)
	c := &beacon.Config{Enabled: true, Mode: beacon.ModePattern, Base: 1, Mult: 1, Pending: true}

	b.Fire(c, 1, true)
	require.Equal(t, 4, pin.RisingEdges())
	require.Contains(t, clk.Sleeps(), beacon.DefaultTiming.Long)
}

func TestDisabled_DrivesLowAndClearsPending(t *testing.T) {
	b, pin, _ := newIndicator(t)
	pin.Set(true)
	c := &beacon.Config{Enabled: false, Mode: beacon.ModeChirp, Base: 1, Mult: 1, Pending: true}

	b.Evaluate(c, 100, true)
	require.False(t, pin.Get())
	require.False(t, c.Pending)

	b.Fire(c, 100, false)
	require.Equal(t, 1, pin.RisingEdges(), "only the manual Set above")
}

func TestToggle_FlipsEverySecond(t *testing.T) {
	b, pin, _ := newIndicator(t)
	c := &beacon.Config{Enabled: true, Mode: beacon.ModeToggle}

	b.Evaluate(c, 1, false)
	require.True(t, pin.Get())
	b.Evaluate(c, 2, false)
	require.False(t, pin.Get())
}

func TestChirp_Bursts(t *testing.T) {
	b, pin, _ := newIndicator(t)
	c := &beacon.Config{Enabled: true, Mode: beacon.ModeChirp, Base: 5, Mult: 2}

	b.Evaluate(c, 10, false)
	b.Fire(c, 10, false)
	require.Equal(t, beacon.DefaultTiming.ChirpCycles, pin.RisingEdges())
}

func TestPulse_IgnoresMode(t *testing.T) {
	b, pin, _ := newIndicator(t)
	b.Pulse()
	require.Equal(t, []bool{true, false}, pin.History())
}
