package supervisor

import (
	"sentinel-go/bus"
	"sentinel-go/services/supervisor/internal/core"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/types"
)

var (
	TopicState       = bus.T("sentinel", "state")
	TopicEventReboot = bus.T("sentinel", "event", "reboot")
	TopicEventFuse   = bus.T("sentinel", "event", "fuse")
	TopicEventFlood  = bus.T("sentinel", "event", "flood")
	TopicEventBoot   = bus.T("sentinel", "event", "boot")
)

// telemetry mirrors state and events onto the bus. With a nil connection it
// discards everything.
type telemetry struct {
	conn *bus.Connection
}

func (t telemetry) publish(topic bus.Topic, payload any, retained bool) {
	if t.conn == nil {
		return
	}
	t.conn.Publish(t.conn.NewMessage(topic, payload, retained))
}

func (t telemetry) FuseToggled(blown bool, at int64) {
	t.publish(TopicEventFuse, types.FuseEvent{Blown: blown, UptimeS: at}, false)
}

func (t telemetry) Flood(delta, at int64) {
	t.publish(TopicEventFlood, types.FloodEvent{DeltaS: delta, UptimeS: at}, false)
}

func (t telemetry) Rebooting(expired [core.NumTimers]bool, primaryFaults uint16, at int64) {
	ev := types.RebootEvent{PrimaryFaults: primaryFaults, UptimeS: at}
	for id, e := range expired {
		if e {
			ev.Expired = append(ev.Expired, id)
		}
	}
	t.publish(TopicEventReboot, ev, false)
}

func (t telemetry) Booted(cause halcore.ResetCause, formatted, wake bool) {
	t.publish(TopicEventBoot, types.BootEvent{
		Cause:     causeName(cause),
		Formatted: formatted,
		Wake:      wake,
	}, true)
}

func (t telemetry) PublishState(st *core.SupervisorState, now int64) {
	if t.conn == nil {
		return
	}
	t.publish(TopicState, Snapshot(st, now), true)
}

// Snapshot renders the state as its bus payload.
func Snapshot(st *core.SupervisorState, now int64) types.State {
	out := types.State{
		Timers:          make([]types.TimerState, 0, core.NumTimers),
		Selected:        st.Selected,
		EditTarget:      st.Edit.String(),
		FuseBlown:       st.FuseBlown(),
		Locked:          st.Locked(),
		AckEnabled:      st.AckEnabled,
		PrimaryFaults:   st.PrimaryFaults,
		SecondaryFaults: st.SecondaryFaults,
		Beacon: types.BeaconState{
			Enabled:   st.Beacon.Enabled,
			Mode:      st.Beacon.Mode.String(),
			IntervalS: st.Beacon.Interval(),
		},
		PowerSaveS: st.PowerSave.Seconds(),
		UptimeS:    now,
	}
	for id, t := range st.Timers {
		ts := types.TimerState{
			ID:         id,
			Phase:      types.Phase(t.Phase(now).String()),
			ThresholdS: t.Threshold(),
			Base:       t.Base,
			Mult:       t.Mult,
		}
		if t.Enabled {
			ts.ElapsedS = now - t.Start
		}
		out.Timers = append(out.Timers, ts)
	}
	return out
}

func causeName(c halcore.ResetCause) string {
	switch c {
	case halcore.ResetPowerOn:
		return "power_on"
	case halcore.ResetWatchdog:
		return "watchdog"
	}
	return "other"
}
