package z80

// This file implements the CB page (rotate/shift, BIT, RES, SET on an
// 8-bit operand) and its DD CB / FD CB variants, ported from the
// reference core's z80StepIndexCB plus the CB branch of z80Execute.
// Decoding follows the same x/y/z split as the main page: x=0 selects
// one of the 8 rotate/shift ops (rot[y]), x=1 is BIT y,r[z], x=2 is
// RES y,r[z], x=3 is SET y,r[z].

// executeCBPage is entered once the CB prefix byte has been consumed.
// Under idxNone it fetches one more opcode byte and dispatches directly
// against a register or (HL). Under idxIX/idxIY the displacement byte
// precedes the opcode byte (DD CB d op / FD CB d op), the addressed
// operand is always (IX+d)/(IY+d) regardless of the z field, and — the
// real hardware's documented quirk — when z != 6 the result is also
// copied into register r[z] even though the instruction only names a
// memory operand.
func (c *CPU) executeCBPage(im indexMode) error {
	if im == idxNone {
		op := c.fetchOpcode()
		return c.executeCB(op, idxNone, 0, false)
	}

	d := int8(c.fetchByte())
	addr := uint16(int32(c.pairHL(im)) + int32(d))
	c.MEMPTR = addr
	op := c.fetchByte()
	return c.executeCB(op, im, addr, true)
}

// executeCB dispatches one already-fetched CB-page opcode. addr and
// indexed are only meaningful when indexed is true (the DD CB/FD CB
// forms); otherwise the operand address, if any, comes from r[z]==6
// meaning plain (HL).
func (c *CPU) executeCB(op uint8, im indexMode, addr uint16, indexed bool) error {
	x := (op & 0xC0) >> 6
	y := (op & 0x38) >> 3
	z := op & 0x07

	readOperand := func() uint8 {
		if indexed {
			v := c.Mem.PeekTimed(addr, &c.Tstates)
			c.Mem.Contend(addr, 1, 3, &c.Tstates)
			return v
		}
		if z == 6 {
			v := c.Mem.PeekTimed(c.HL, &c.Tstates)
			c.Mem.Contend(c.HL, 1, 1, &c.Tstates)
			return v
		}
		return c.reg8(int(z), im)
	}

	writeResult := func(v uint8) {
		if indexed {
			c.Mem.PokeTimed(addr, v, &c.Tstates)
			if z != 6 {
				c.setReg8(int(z), v, idxNone)
			}
			return
		}
		if z == 6 {
			c.Mem.PokeTimed(c.HL, v, &c.Tstates)
			return
		}
		c.setReg8(int(z), v, im)
	}

	switch x {
	case 0:
		writeResult(c.rotOp(y, readOperand()))
	case 1:
		v := readOperand()
		useMemptr := indexed || z == 6
		c.bitReg8(int(y), v, useMemptr)
	case 2:
		writeResult(resReg8(int(y), readOperand()))
	case 3:
		writeResult(setReg8Bit(int(y), readOperand()))
	}
	return nil
}

// rotOp applies rot[y]: RLC,RRC,RL,RR,SLA,SRA,SLL,SRL.
func (c *CPU) rotOp(y uint8, v uint8) uint8 {
	switch y {
	case 0:
		return c.rlc(v)
	case 1:
		return c.rrc(v)
	case 2:
		return c.rl(v)
	case 3:
		return c.rr(v)
	case 4:
		return c.sla(v)
	case 5:
		return c.sra(v)
	case 6:
		return c.sll(v)
	case 7:
		return c.srl(v)
	}
	panic("z80: invalid rotate/shift index")
}
