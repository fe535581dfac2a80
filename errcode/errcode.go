package errcode

import (
	"errors"
	"strconv"
)

// Code is a stable, bus-facing response identifier.
// It is sent to the primary as a 2-byte little-endian word, is comparable,
// allocation-free, and implements error.
type Code uint16

func (c Code) Error() string { return c.String() }

// Canonical codes. Numeric values are part of the wire contract.
const (
	Success         Code = 0x0000
	GenericError    Code = 0x0001
	InvalidAction   Code = 0x0002
	ConfigLocked    Code = 0x0003
	InvalidOption   Code = 0x0004
	AlreadyEnabled  Code = 0x0005 // INVALID_ACTION_SEN_ON
	AlreadyDisabled Code = 0x0006 // INVALID_ACTION_SEN_OFF
	PingResponse    Code = 0x00A5
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case GenericError:
		return "generic_error"
	case InvalidAction:
		return "invalid_action"
	case ConfigLocked:
		return "config_locked"
	case InvalidOption:
		return "invalid_option"
	case AlreadyEnabled:
		return "already_enabled"
	case AlreadyDisabled:
		return "already_disabled"
	case PingResponse:
		return "ping_response"
	default:
		return "code_" + strconv.Itoa(int(c))
	}
}

// Of extracts a Code from err or anything it wraps. nil maps to Success
// and anything unrecognised to GenericError.
func Of(err error) Code {
	if err == nil {
		return Success
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return GenericError
}
