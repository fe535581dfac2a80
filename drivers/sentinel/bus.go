package sentinel

// Transaction helpers. Every response word is little-endian: LOW then HIGH.
// Only opcodes that reply are read back; asking for more bytes than the
// coprocessor sends fails the transaction.

func readWord(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// forced reports whether op is answered even with acks off.
func forced(op byte) bool {
	switch {
	case op == opPing, op == opVersion, op == opBuildDate,
		op == opPrimaryFaults, op == opSecondaryFaults, op == opFuseQuery:
		return true
	case op >= opDumpSlot0 && op < opBeaconMode0:
		return true
	}
	return false
}

// query sends one forced opcode and returns its reply word.
func (d *Device) query(op byte) (uint16, error) {
	d.w[0] = op
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return readWord(d.r[:2]), nil
}

// command sends one ungated opcode and maps its reply to an error. With
// acks off there is no reply and the result is assumed good.
func (d *Device) command(op byte) error {
	d.w[0] = op
	if !d.ack {
		return d.i2c.Tx(d.addr, d.w[:1], nil)
	}
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return err
	}
	return codeErr(readWord(d.r[:2]))
}

// gated sends unlock and op in one transaction. The coprocessor relocks
// after each successful change.
func (d *Device) gated(op byte) error {
	d.w[0] = opUnlock
	d.w[1] = op
	if !d.ack {
		return d.i2c.Tx(d.addr, d.w[:2], nil)
	}
	if err := d.i2c.Tx(d.addr, d.w[:2], d.r[:4]); err != nil {
		return err
	}
	return codeErr(readWord(d.r[2:4]))
}

// words sends ops as one transaction and returns one word per op, zero for
// opcodes that did not reply. An ack toggle right after an unlock applies
// to the opcodes that follow it.
func (d *Device) words(ops []byte) ([]uint16, error) {
	replied := make([]bool, len(ops))
	n := 0
	ack := d.ack
	for i, op := range ops {
		replied[i] = ack || forced(op)
		if replied[i] {
			n++
		}
		if i > 0 && ops[i-1] == opUnlock && (op == opAckEnable || op == opAckDisable) {
			ack = op == opAckEnable
		}
	}
	r := make([]byte, 2*n)
	if err := d.i2c.Tx(d.addr, ops, r); err != nil {
		return nil, err
	}
	d.ack = ack
	out := make([]uint16, len(ops))
	for i, j := 0, 0; i < len(ops); i++ {
		if replied[i] {
			out[i] = readWord(r[2*j:])
			j++
		}
	}
	return out, nil
}
