package core

import (
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/x/mathx"
)

// PrepareSleep stores each enabled timer's elapsed offset in its start slot
// and raises the wake flag, all in one store commit. The low-power clock is
// not the running clock, so only offsets survive the sleep. With no timer
// enabled there is nothing to reconcile and the store is left alone; the
// result reports whether the wake flag was raised.
func (s *SupervisorState) PrepareSleep(now int64) bool {
	ws := make([]eeprom.Write, 0, NumTimers+1)
	for id, t := range s.Timers {
		if !t.Enabled {
			continue
		}
		_, start, _, _ := eeprom.TimerSlots(id)
		off := mathx.Clamp(now-t.Start, 0, 0xFFFF)
		ws = append(ws, eeprom.Write{Slot: start, Value: uint16(off)})
	}
	if len(ws) == 0 {
		return false
	}
	ws = append(ws, eeprom.Write{Slot: eeprom.PowerSaveWake, Value: 1})
	s.commit(ws)
	return true
}

// Waking reports whether the store holds sleep offsets.
func (s *SupervisorState) Waking() bool { return s.store.GetBool(eeprom.PowerSaveWake) }

// Wake turns the stored offsets back into start times. slept is the sleep
// length in seconds measured on the low-power clock; now is read after
// waking, so start = now - offset - slept holds whether or not the running
// clock advanced during the sleep. Disabled timers carry no offset and are
// only rebased in memory. A no-op unless the wake flag is set.
func (s *SupervisorState) Wake(now, slept int64) {
	if !s.Waking() {
		return
	}
	ws := make([]eeprom.Write, 0, NumTimers+1)
	for id := range s.Timers {
		t := &s.Timers[id]
		if !t.Enabled {
			t.Start = now
			continue
		}
		_, start, _, _ := eeprom.TimerSlots(id)
		t.Start = now - int64(s.store.Get(start)) - slept
		ws = append(ws, eeprom.Write{Slot: start, Value: uint16(t.Start)})
	}
	ws = append(ws, eeprom.Write{Slot: eeprom.PowerSaveWake, Value: 0})
	s.commit(ws)
}
