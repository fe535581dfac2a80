package core

import (
	"sentinel-go/errcode"
	"sentinel-go/services/supervisor/internal/eeprom"
)

// ---- config lock ----

func (s *SupervisorState) Unlock()      { s.unlocked = true }
func (s *SupervisorState) Lock()        { s.unlocked = false }
func (s *SupervisorState) Locked() bool { return !s.unlocked }

// Guarded runs fn only while unlocked. A successful fn re-engages the lock,
// so each unlock admits at most one mutation.
func (s *SupervisorState) Guarded(fn func() errcode.Code) errcode.Code {
	if !s.unlocked {
		return errcode.ConfigLocked
	}
	c := fn()
	if c == errcode.Success {
		s.unlocked = false
	}
	return c
}

// ---- timer bank ----

func validTimer(id int) bool { return id >= 0 && id < NumTimers }

// Enable arms timer id at the current time.
func (s *SupervisorState) Enable(id int) errcode.Code {
	return s.Guarded(func() errcode.Code {
		if !validTimer(id) {
			return errcode.InvalidOption
		}
		if s.Timers[id].Enabled {
			return errcode.AlreadyEnabled
		}
		s.Timers[id].Enabled = true
		s.Timers[id].Start = s.Now()
		s.persistTimer(id)
		return errcode.Success
	})
}

func (s *SupervisorState) Disable(id int) errcode.Code {
	return s.Guarded(func() errcode.Code {
		if !validTimer(id) {
			return errcode.InvalidOption
		}
		if !s.Timers[id].Enabled {
			return errcode.AlreadyDisabled
		}
		s.Timers[id].Enabled = false
		s.persistTimer(id)
		return errcode.Success
	})
}

// Kick restarts an enabled timer. Kicking a disabled timer is an
// InvalidAction.
func (s *SupervisorState) Kick(id int) errcode.Code {
	return s.Guarded(func() errcode.Code {
		if !validTimer(id) {
			return errcode.InvalidOption
		}
		if !s.Timers[id].Enabled {
			return errcode.InvalidAction
		}
		s.Timers[id].Start = s.Now()
		s.persistStart(id)
		return errcode.Success
	})
}

// SetIntervalBase picks BaseTable[index] for the current edit target.
func (s *SupervisorState) SetIntervalBase(index int) errcode.Code {
	if index < 0 || index >= len(BaseTable) {
		return errcode.GenericError
	}
	return s.Guarded(func() errcode.Code {
		v := BaseTable[index]
		switch s.Edit {
		case EditSentinel:
			s.Timers[s.Selected].Base = v
			s.persistTimer(s.Selected)
		case EditPowerSave:
			s.PowerSave.Base = v
			s.put(eeprom.PowerSaveBase, v)
		case EditBeacon:
			s.Beacon.Base = v
			s.put(eeprom.BeaconBase, v)
		}
		return errcode.Success
	})
}

// SetIntervalMultiplier sets the multiplier (1..20) of the current edit
// target.
func (s *SupervisorState) SetIntervalMultiplier(v int) errcode.Code {
	if v < MinMultiplier || v > MaxMultiplier {
		return errcode.InvalidOption
	}
	return s.Guarded(func() errcode.Code {
		m := uint16(v)
		switch s.Edit {
		case EditSentinel:
			s.Timers[s.Selected].Mult = m
			s.persistTimer(s.Selected)
		case EditPowerSave:
			s.PowerSave.Mult = m
			s.put(eeprom.PowerSaveMult, m)
		case EditBeacon:
			s.Beacon.Mult = m
			s.put(eeprom.BeaconMult, m)
		}
		return errcode.Success
	})
}

// Expired reports whether timer id is past its threshold at now.
func (s *SupervisorState) Expired(id int, now int64) bool {
	return validTimer(id) && s.Timers[id].Expired(now)
}

// SelectTimer changes which timer the sentinel opcodes address. It is not
// a persisted mutation and needs no unlock.
func (s *SupervisorState) SelectTimer(id int) errcode.Code {
	if !validTimer(id) {
		return errcode.InvalidOption
	}
	s.Selected = id
	return errcode.Success
}

func (s *SupervisorState) SetEditTarget(e EditTarget) errcode.Code {
	if e > EditBeacon {
		return errcode.InvalidOption
	}
	s.Edit = e
	return errcode.Success
}

// SetFuse disengages the fuse (timer 3 disabled).
func (s *SupervisorState) SetFuse() errcode.Code { return s.Disable(FuseTimer) }

// BlowFuse engages the fuse (timer 3 enabled).
func (s *SupervisorState) BlowFuse() errcode.Code { return s.Enable(FuseTimer) }

// Expire handles a pending reboot. Expired timers are disabled, except the
// fuse timer which is re-armed: its expiry power-cycles the primary but
// leaves the fuse blown. The primary fault counter is bumped once.
func (s *SupervisorState) Expire(now int64) [NumTimers]bool {
	var expired [NumTimers]bool
	for id := range s.Timers {
		if !s.Timers[id].Expired(now) {
			continue
		}
		expired[id] = true
		if id == FuseTimer {
			s.Timers[id].Start = now
		} else {
			s.Timers[id].Enabled = false
		}
		s.persistTimer(id)
	}
	s.PrimaryFaults++
	s.put(eeprom.PrimaryFaults, s.PrimaryFaults)
	s.events.Rebooting(expired, s.PrimaryFaults, now)
	return expired
}
