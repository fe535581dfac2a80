package core

import (
	"sentinel-go/errcode"
	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/eeprom"
)

// The setters below do not check the lock themselves; the dispatcher wraps
// them in Guarded.

func (s *SupervisorState) SetBeaconEnabled(on bool) errcode.Code {
	s.Beacon.Enabled = on
	s.Beacon.Pending = false
	s.putBool(eeprom.BeaconEnabled, on)
	return errcode.Success
}

func (s *SupervisorState) SetBeaconMode(m beacon.Mode) errcode.Code {
	if m >= beacon.NumModes {
		return errcode.InvalidOption
	}
	s.Beacon.Mode = m
	s.Beacon.Pending = false
	s.put(eeprom.BeaconMode, uint16(m))
	return errcode.Success
}

func (s *SupervisorState) SetAck(on bool) errcode.Code {
	s.AckEnabled = on
	s.putBool(eeprom.AckEnabled, on)
	return errcode.Success
}

func (s *SupervisorState) ResetFaults() errcode.Code {
	s.PrimaryFaults = 0
	s.SecondaryFaults = 0
	s.put(eeprom.PrimaryFaults, 0)
	s.put(eeprom.SecondaryFaults, 0)
	return errcode.Success
}

// CountSecondaryFault records a coprocessor reset by its own watchdog.
func (s *SupervisorState) CountSecondaryFault() {
	s.SecondaryFaults++
	s.put(eeprom.SecondaryFaults, s.SecondaryFaults)
}

// FormatStore resets the store to defaults and reloads the state from it.
func (s *SupervisorState) FormatStore() errcode.Code {
	if err := s.Format(); err != nil {
		s.log.Error("Format failed", "err", err)
		return errcode.GenericError
	}
	return errcode.Success
}
