package core

import "sentinel-go/services/supervisor/internal/eeprom"

// Ping windows, in seconds since the previous ping.
const (
	FloodWindow  = 10
	ToggleWindow = 30
)

type FuseOutcome uint8

const (
	// FuseRecorded means the ping only updated the ping history.
	FuseRecorded FuseOutcome = iota
	// FuseToggled means timer 3 flipped and the history was cleared.
	FuseToggled
	// FuseFlood means every timer was disabled and primary power was cut.
	FuseFlood
)

func (o FuseOutcome) String() string {
	switch o {
	case FuseRecorded:
		return "recorded"
	case FuseToggled:
		return "toggled"
	case FuseFlood:
		return "flood"
	}
	return "invalid"
}

// PowerCutter is the actuator call made on a ping flood.
type PowerCutter interface {
	PowerOffKeepBus()
}

// Ping feeds the anti-flapping breaker. Pings closer than FloodWindow cut
// power and disable every timer; pings inside ToggleWindow flip the fuse.
// A history entry later than now belongs to a previous run of the clock and
// counts as no history.
func (s *SupervisorState) Ping(act PowerCutter) FuseOutcome {
	now := s.Now()
	last := s.LastPing
	if last > 0 && now >= last {
		delta := now - last
		switch {
		case delta < FloodWindow:
			s.log.Warn("Ping flood", "delta_s", delta)
			for id := range s.Timers {
				s.Timers[id].Enabled = false
				s.persistTimer(id)
			}
			s.setLastPing(now)
			act.PowerOffKeepBus()
			s.events.Flood(delta, now)
			return FuseFlood
		case delta < ToggleWindow:
			t := &s.Timers[FuseTimer]
			t.Enabled = !t.Enabled
			if t.Enabled {
				t.Start = now
			}
			s.persistTimer(FuseTimer)
			s.setLastPing(0)
			s.log.Info("Fuse toggled", "blown", t.Enabled, "delta_s", delta)
			s.events.FuseToggled(t.Enabled, now)
			return FuseToggled
		}
	}
	s.setLastPing(now)
	return FuseRecorded
}

func (s *SupervisorState) setLastPing(v int64) {
	s.LastPing = v
	s.put(eeprom.LastPing, uint16(v))
}
