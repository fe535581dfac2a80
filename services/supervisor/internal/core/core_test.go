package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinel-go/errcode"
	"sentinel-go/internal/gtest"
	"sentinel-go/services/supervisor/internal/core"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/platform"
	"sentinel-go/services/supervisor/internal/power"
)

type fixture struct {
	st    *core.SupervisorState
	mem   *platform.MemStore
	store *eeprom.Store
	clk   *platform.FakeClock
	ev    *recordingEvents
}

type recordingEvents struct {
	toggles []bool
	floods  []int64
	reboots [][core.NumTimers]bool
}

func (r *recordingEvents) FuseToggled(blown bool, _ int64) { r.toggles = append(r.toggles, blown) }
func (r *recordingEvents) Flood(delta, _ int64)            { r.floods = append(r.floods, delta) }
func (r *recordingEvents) Rebooting(e [core.NumTimers]bool, _ uint16, _ int64) {
	r.reboots = append(r.reboots, e)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := platform.NewMemStore(eeprom.Size)
	store, err := eeprom.New(mem)
	require.NoError(t, err)
	_, err = store.EnsureFormatted()
	require.NoError(t, err)

	clk := platform.NewFakeClock(1000 * time.Second)
	ev := &recordingEvents{}
	st := core.New(store, clk, gtest.NewLogger(t), ev)
	st.Load()
	return fixture{st: st, mem: mem, store: store, clk: clk, ev: ev}
}

func (f fixture) advance(sec int64) { f.clk.Advance(time.Duration(sec) * time.Second) }

func (f fixture) unlocked(t *testing.T, fn func() errcode.Code) errcode.Code {
	t.Helper()
	f.st.Unlock()
	return fn()
}

func TestEnable_NotExpiredUntilPastThreshold(t *testing.T) {
	for id := 0; id < core.NumTimers; id++ {
		f := newFixture(t)
		require.Equal(t, errcode.Success, f.unlocked(t, func() errcode.Code { return f.st.Enable(id) }))

		threshold := f.st.Timers[id].Threshold()
		require.Equal(t, int64(600), threshold)
		require.False(t, f.st.Expired(id, f.st.Now()))

		f.advance(threshold)
		require.False(t, f.st.Expired(id, f.st.Now()), "exactly at threshold is not expired")
		f.advance(1)
		require.True(t, f.st.Expired(id, f.st.Now()))
		require.Equal(t, core.PhaseExpired, f.st.Timers[id].Phase(f.st.Now()))
	}
}

func TestEnable_AlreadyEnabledKeepsStart(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, errcode.Success, f.unlocked(t, func() errcode.Code { return f.st.Enable(1) }))
	start := f.st.Timers[1].Start

	f.advance(50)
	require.Equal(t, errcode.AlreadyEnabled, f.unlocked(t, func() errcode.Code { return f.st.Enable(1) }))
	require.Equal(t, start, f.st.Timers[1].Start)
	require.False(t, f.st.Locked(), "a failed mutation does not consume the unlock")
}

func TestDisable_AlreadyDisabled(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, errcode.AlreadyDisabled, f.unlocked(t, func() errcode.Code { return f.st.Disable(0) }))
}

func TestGuarded_OneMutationPerUnlock(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.st.Locked())
	require.Equal(t, errcode.ConfigLocked, f.st.Enable(0))

	f.st.Unlock()
	require.Equal(t, errcode.Success, f.st.Enable(0))
	require.True(t, f.st.Locked())
	require.Equal(t, errcode.ConfigLocked, f.st.Kick(0))
	require.Equal(t, errcode.ConfigLocked, f.st.Disable(0))
	require.True(t, f.st.Timers[0].Enabled)
}

func TestKick_DisabledIsInvalidAction(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, errcode.InvalidAction, f.unlocked(t, func() errcode.Code { return f.st.Kick(2) }))
}

func TestKick_RestartsTimer(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(0) })
	f.advance(590)
	require.Equal(t, errcode.Success, f.unlocked(t, func() errcode.Code { return f.st.Kick(0) }))
	f.advance(590)
	require.False(t, f.st.Expired(0, f.st.Now()))
}

func TestSetIntervalBase_LockedLeavesBaseUnchanged(t *testing.T) {
	f := newFixture(t)
	writes := f.mem.Writes()
	require.Equal(t, errcode.ConfigLocked, f.st.SetIntervalBase(2))
	require.Equal(t, uint16(eeprom.DefaultTimerBase), f.st.Timers[0].Base)
	require.Equal(t, writes, f.mem.Writes())
}

func TestSetIntervalBase_SelectorPastTable(t *testing.T) {
	f := newFixture(t)
	f.st.Unlock()
	require.Equal(t, errcode.GenericError, f.st.SetIntervalBase(7))
	require.False(t, f.st.Locked())
}

func TestSetInterval_AppliesToSelectedTimer(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, errcode.Success, f.st.SelectTimer(2))

	require.Equal(t, errcode.Success, f.unlocked(t, func() errcode.Code { return f.st.SetIntervalBase(3) }))
	require.Equal(t, errcode.Success, f.unlocked(t, func() errcode.Code { return f.st.SetIntervalMultiplier(8) }))

	require.Equal(t, core.TimerSlot{Base: 15, Mult: 8}, f.st.Timers[2])
	_, _, base, mult := eeprom.TimerSlots(2)
	require.Equal(t, uint16(15), f.store.Get(base))
	require.Equal(t, uint16(8), f.store.Get(mult))
	require.Equal(t, uint16(eeprom.DefaultTimerBase), f.st.Timers[0].Base)
}

func TestSetInterval_EditTargets(t *testing.T) {
	f := newFixture(t)

	f.st.SetEditTarget(core.EditBeacon)
	f.unlocked(t, func() errcode.Code { return f.st.SetIntervalBase(0) })
	f.unlocked(t, func() errcode.Code { return f.st.SetIntervalMultiplier(20) })
	require.Equal(t, uint16(1), f.st.Beacon.Base)
	require.Equal(t, uint16(20), f.st.Beacon.Mult)
	require.Equal(t, uint16(20), f.store.Get(eeprom.BeaconMult))

	f.st.SetEditTarget(core.EditPowerSave)
	f.unlocked(t, func() errcode.Code { return f.st.SetIntervalBase(6) })
	require.Equal(t, core.Interval{Base: 90, Mult: 1}, f.st.PowerSave)
	require.Equal(t, uint16(90), f.store.Get(eeprom.PowerSaveBase))
}

func TestSetIntervalMultiplier_Range(t *testing.T) {
	f := newFixture(t)
	f.st.Unlock()
	require.Equal(t, errcode.InvalidOption, f.st.SetIntervalMultiplier(0))
	require.Equal(t, errcode.InvalidOption, f.st.SetIntervalMultiplier(21))
}

func TestFuse_InvertedAccessor(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.st.FuseBlown())
	require.Equal(t, errcode.Success, f.unlocked(t, f.st.BlowFuse))
	require.True(t, f.st.FuseBlown())
	require.True(t, f.st.Timers[core.FuseTimer].Enabled)
	require.Equal(t, errcode.AlreadyEnabled, f.unlocked(t, f.st.BlowFuse))
	require.Equal(t, errcode.Success, f.unlocked(t, f.st.SetFuse))
	require.False(t, f.st.FuseBlown())
}

func TestPing_FloodDisablesTimersKeepsBus(t *testing.T) {
	f := newFixture(t)
	for id := 0; id < core.NumTimers; id++ {
		f.unlocked(t, func() errcode.Code { return f.st.Enable(id) })
	}
	var act power.Recorder

	require.Equal(t, core.FuseRecorded, f.st.Ping(&act))
	f.advance(9)
	require.Equal(t, core.FuseFlood, f.st.Ping(&act))

	for id := 0; id < core.NumTimers; id++ {
		require.False(t, f.st.Timers[id].Enabled)
		en, _, _, _ := eeprom.TimerSlots(id)
		require.False(t, f.store.GetBool(en))
	}
	require.Equal(t, []string{"power_off_keep_bus"}, act.Calls())
	require.Equal(t, []int64{9}, f.ev.floods)
	require.Equal(t, f.st.Now(), f.st.LastPing)
}

func TestPing_ToggleWindowFlipsFuseOnce(t *testing.T) {
	f := newFixture(t)
	var act power.Recorder

	f.st.Ping(&act)
	f.advance(15)
	require.Equal(t, core.FuseToggled, f.st.Ping(&act))
	require.True(t, f.st.FuseBlown())
	require.Equal(t, int64(0), f.st.LastPing)
	require.Equal(t, uint16(0), f.store.Get(eeprom.LastPing))
	require.Empty(t, act.Calls())
	require.Equal(t, []bool{true}, f.ev.toggles)

	// History was cleared, so the next ping only records.
	f.advance(15)
	require.Equal(t, core.FuseRecorded, f.st.Ping(&act))
	require.True(t, f.st.FuseBlown())
}

func TestPing_SlowPingsOnlyRecord(t *testing.T) {
	f := newFixture(t)
	var act power.Recorder
	f.st.Ping(&act)
	f.advance(30)
	require.Equal(t, core.FuseRecorded, f.st.Ping(&act))
	require.Equal(t, f.st.Now(), f.st.LastPing)
	require.Equal(t, uint16(f.st.Now()), f.store.Get(eeprom.LastPing))
}

func TestPing_HistoryFromPreviousRunIgnored(t *testing.T) {
	f := newFixture(t)
	f.st.LastPing = f.st.Now() + 5
	var act power.Recorder
	require.Equal(t, core.FuseRecorded, f.st.Ping(&act))
	require.Empty(t, act.Calls())
}

func TestExpire_DisablesTimersRearmsFuse(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(0) })
	f.unlocked(t, f.st.BlowFuse)
	f.advance(601)
	now := f.st.Now()

	expired := f.st.Expire(now)
	require.Equal(t, [core.NumTimers]bool{true, false, false, true}, expired)
	require.False(t, f.st.Timers[0].Enabled)
	require.True(t, f.st.FuseBlown())
	require.Equal(t, now, f.st.Timers[core.FuseTimer].Start)
	require.Equal(t, uint16(1), f.st.PrimaryFaults)
	require.Equal(t, uint16(1), f.store.Get(eeprom.PrimaryFaults))
	require.Len(t, f.ev.reboots, 1)
}

func TestLoad_ReproducesState(t *testing.T) {
	f := newFixture(t)
	f.st.SelectTimer(1)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(1) })
	f.unlocked(t, func() errcode.Code { return f.st.SetIntervalBase(1) })
	f.unlocked(t, func() errcode.Code { return f.st.SetIntervalMultiplier(3) })
	f.unlocked(t, func() errcode.Code { return f.st.SetBeaconEnabled(true) })
	f.unlocked(t, func() errcode.Code { return f.st.SetAck(false) })
	f.st.CountSecondaryFault()
	f.st.Ping(&power.Recorder{})

	reloaded := core.New(f.store, f.clk, gtest.NewLogger(t), nil)
	reloaded.Load()

	require.Equal(t, f.st.Timers, reloaded.Timers)
	require.Equal(t, f.st.Beacon, reloaded.Beacon)
	require.Equal(t, f.st.PowerSave, reloaded.PowerSave)
	require.Equal(t, f.st.AckEnabled, reloaded.AckEnabled)
	require.Equal(t, f.st.LastPing, reloaded.LastPing)
	require.Equal(t, f.st.PrimaryFaults, reloaded.PrimaryFaults)
	require.Equal(t, f.st.SecondaryFaults, reloaded.SecondaryFaults)
	require.Equal(t, f.st.BusAddress, reloaded.BusAddress)
	require.True(t, reloaded.Locked())
	require.Equal(t, 0, reloaded.Selected)
}

func TestRearm_RestartsEnabledTimers(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(0) })
	f.st.Rearm(3)
	require.Equal(t, int64(3), f.st.Timers[0].Start)
	require.Equal(t, int64(0), f.st.Timers[1].Start)
}

func TestSleepWake_ReconcilesElapsed(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(0) })
	f.advance(100)

	f.st.PrepareSleep(f.st.Now())
	require.True(t, f.st.Waking())
	_, start, _, _ := eeprom.TimerSlots(0)
	require.Equal(t, uint16(100), f.store.Get(start))

	// Running clock stopped while asleep: 40 s only seen by the low-power clock.
	f.st.Wake(f.st.Now(), 40)
	require.False(t, f.st.Waking())
	require.Equal(t, int64(140), f.st.Now()-f.st.Timers[0].Start)

	// Running clock kept counting.
	f.st.PrepareSleep(f.st.Now())
	f.advance(40)
	f.st.Wake(f.st.Now(), 40)
	require.Equal(t, int64(180), f.st.Now()-f.st.Timers[0].Start)
}

func TestSleepWake_OneCommitEach(t *testing.T) {
	f := newFixture(t)
	w := f.mem.Writes()
	require.False(t, f.st.PrepareSleep(f.st.Now()))
	require.False(t, f.st.Waking())
	require.Equal(t, w, f.mem.Writes())

	f.unlocked(t, func() errcode.Code { return f.st.Enable(2) })
	f.advance(30)
	w = f.mem.Writes()
	require.True(t, f.st.PrepareSleep(f.st.Now()))
	require.Equal(t, w+1, f.mem.Writes())

	f.st.Wake(f.st.Now(), 3)
	require.Equal(t, w+2, f.mem.Writes())
	require.Equal(t, int64(33), f.st.Now()-f.st.Timers[2].Start)
	require.Equal(t, f.st.Now(), f.st.Timers[0].Start)
}

func TestWake_NoFlagNoChange(t *testing.T) {
	f := newFixture(t)
	before := f.st.Timers
	f.st.Wake(f.st.Now(), 10)
	require.Equal(t, before, f.st.Timers)
}

func TestFormatStore_RestoresDefaults(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t, func() errcode.Code { return f.st.Enable(0) })
	f.st.CountSecondaryFault()

	require.Equal(t, errcode.Success, f.st.FormatStore())
	require.False(t, f.st.Timers[0].Enabled)
	require.Zero(t, f.st.SecondaryFaults)
	require.True(t, f.store.Formatted())
}
