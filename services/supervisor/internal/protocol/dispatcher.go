package protocol

import (
	"log/slog"
	"time"

	"sentinel-go/errcode"
	"sentinel-go/services/supervisor/internal/beacon"
	"sentinel-go/services/supervisor/internal/core"
	"sentinel-go/services/supervisor/internal/eeprom"
	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/services/supervisor/internal/power"
)

// Pulser emits a one-shot indicator pulse.
type Pulser interface {
	Pulse()
}

// BuildInfo is reported by the version and build date opcodes.
type BuildInfo struct {
	// Version is major<<8 | minor.
	Version uint16
	Date    time.Time
}

// FATDate packs t the way FAT directory entries do:
// (year-1980)<<9 | month<<5 | day.
func FATDate(t time.Time) uint16 {
	if t.IsZero() {
		return 0
	}
	y := t.Year() - 1980
	if y < 0 {
		y = 0
	}
	return uint16(y&0x7F)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
}

// Dispatcher applies one bus transaction at a time to the state. It is
// called from the scheduler goroutine only.
type Dispatcher struct {
	st     *core.SupervisorState
	act    power.Controller
	beacon Pulser
	build  BuildInfo
	log    *slog.Logger
}

func NewDispatcher(st *core.SupervisorState, act power.Controller, b Pulser, build BuildInfo, log *slog.Logger) *Dispatcher {
	return &Dispatcher{st: st, act: act, beacon: b, build: build, log: log}
}

// action is physical work deferred until the reply has been sent.
type action func() error

// Handle drains every byte of tx, replies once with the concatenated
// responses, then performs any power actions the opcodes requested. While a
// primary reboot is pending the whole transaction is dropped. A ping that
// trips the flood cut-off ends execution: the bytes after it are consumed
// without effect or reply. Whether an opcode replies is decided by the ack
// setting in force when it arrives, so the ack toggles answer by the old
// setting. The only error returned is halcore.ErrHalted from a self reset.
func (d *Dispatcher) Handle(tx halcore.Transaction) error {
	if d.st.RebootPending {
		d.log.Debug("Dropping transaction, reboot pending", "len", len(tx.Data))
		tx.Respond(nil)
		return nil
	}

	var (
		out     []byte
		actions []action
	)
	for i, b := range tx.Data {
		op := Decode(b)
		reply := op.Forced() || d.st.AckEnabled
		v, act := d.exec(op)
		if reply {
			out = append(out, byte(v), byte(v>>8))
		}
		d.log.Debug("Opcode", "op", op.String(), "value", v, "replied", reply)
		if act == nil {
			continue
		}
		actions = append(actions, act)
		if op.Kind == KindPing {
			if rest := len(tx.Data) - i - 1; rest > 0 {
				d.log.Warn("Ping flood, refusing rest of transaction", "refused", rest)
			}
			break
		}
	}
	tx.Respond(out)

	for _, a := range actions {
		if err := a(); err != nil {
			return err
		}
	}
	return nil
}

// cutter records a flood cut-off so it runs after the reply.
type cutter struct {
	act     power.Controller
	pending *action
}

func (c cutter) PowerOffKeepBus() {
	act := c.act
	*c.pending = func() error { act.PowerOffKeepBus(); return nil }
}

// exec runs one opcode and returns its reply value and an optional deferred
// action.
func (d *Dispatcher) exec(op Opcode) (uint16, action) {
	st := d.st
	switch op.Kind {
	case KindPing:
		var cut action
		st.Ping(cutter{act: d.act, pending: &cut})
		return uint16(errcode.PingResponse), cut
	case KindUnlock:
		st.Unlock()
		return uint16(errcode.Success), nil
	case KindLock:
		st.Lock()
		return uint16(errcode.Success), nil
	case KindVersion:
		return d.build.Version, nil
	case KindBuildDate:
		return FATDate(d.build.Date), nil
	case KindPrimaryFaults:
		return st.PrimaryFaults, nil
	case KindSecondaryFaults:
		return st.SecondaryFaults, nil
	case KindFuseQuery:
		if st.FuseBlown() {
			return 1, nil
		}
		return 0, nil
	case KindDumpSlot:
		s := eeprom.Slot(op.Arg)
		if !s.Valid() {
			return uint16(errcode.InvalidOption), nil
		}
		return st.Store().Get(s), nil
	case KindEditTarget:
		return uint16(st.SetEditTarget(core.EditTarget(op.Arg))), nil
	case KindSelectTimer:
		return uint16(st.SelectTimer(int(op.Arg))), nil
	case KindBeaconPulse:
		return uint16(errcode.Success), func() error { d.beacon.Pulse(); return nil }

	// Timer bank opcodes check the lock themselves.
	case KindSentinelEnable:
		return uint16(st.Enable(st.Selected)), nil
	case KindSentinelDisable:
		return uint16(st.Disable(st.Selected)), nil
	case KindSentinelKick:
		return uint16(st.Kick(st.Selected)), nil
	case KindSetFuse:
		return uint16(st.SetFuse()), nil
	case KindBlowFuse:
		return uint16(st.BlowFuse()), nil
	case KindIntervalBase:
		return uint16(st.SetIntervalBase(int(op.Arg))), nil
	case KindMultiplier:
		return uint16(st.SetIntervalMultiplier(int(op.Arg))), nil

	case KindRebootAll:
		return d.guarded(nil, func() error {
			d.act.RebootPrimary()
			return d.act.RebootSelf()
		})
	case KindRebootSelf:
		return d.guarded(nil, d.act.RebootSelf)
	case KindResetFaults:
		return d.guarded(st.ResetFaults, nil)
	case KindBeaconEnable:
		return d.guarded(func() errcode.Code { return st.SetBeaconEnabled(true) }, nil)
	case KindBeaconDisable:
		return d.guarded(func() errcode.Code { return st.SetBeaconEnabled(false) }, nil)
	case KindShutdown:
		return d.guarded(nil, func() error { d.act.PowerOff(); return nil })
	case KindAckEnable:
		return d.guarded(func() errcode.Code { return st.SetAck(true) }, nil)
	case KindAckDisable:
		return d.guarded(func() errcode.Code { return st.SetAck(false) }, nil)
	case KindFormat:
		return d.guarded(st.FormatStore, nil)
	case KindSelfTest:
		return d.guarded(nil, func() error {
			d.beacon.Pulse()
			d.act.RebootPrimary()
			return nil
		})
	case KindBeaconMode:
		return d.guarded(func() errcode.Code { return st.SetBeaconMode(beacon.Mode(op.Arg)) }, nil)

	case KindInvalid:
		return uint16(errcode.InvalidOption), nil
	}
	return uint16(errcode.InvalidOption), nil
}

// guarded runs fn under the config lock and schedules then only when the
// mutation succeeded.
func (d *Dispatcher) guarded(fn func() errcode.Code, then action) (uint16, action) {
	if fn == nil {
		fn = func() errcode.Code { return errcode.Success }
	}
	c := d.st.Guarded(fn)
	if c != errcode.Success {
		return uint16(c), nil
	}
	return uint16(c), then
}
