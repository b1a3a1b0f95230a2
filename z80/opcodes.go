package z80

// This file is the unprefixed opcode dispatcher, decoded the same way
// the reference core's z80Execute does: every opcode byte splits into
// x=(op&0xC0)>>6, y=(op&0x38)>>3, z=op&0x07, with p=y>>1 and q=y&1
// selecting register-pair tables (z80.info/decoding.htm, matched against
// the reference core's z80DecodeInstruction/z80Execute).
//
// Unlike the reference core, which duplicates most of this table into a
// second z80StepIndex function for the DD/FD pages, execute takes an
// indexMode and threads it through every register/pair lookup and every
// (HL) address computation. Since substituting H/L for IXH/IXL (or
// leaving them alone under idxNone) and computing (HL) vs (IX+d)/(IY+d)
// are both already table-driven lookups (Registers.reg8/reg16/pairHL and
// effAddr below), one dispatcher covers both prefixed and unprefixed
// opcodes without duplicating the table, and reproduces the same
// fall-through behaviour real hardware shows for DD/FD-prefixed opcodes
// that never reference H, L or (HL): the substitution is simply a no-op
// for them.

func (c *CPU) execute(op uint8, im indexMode) error {
	x := (op & 0xC0) >> 6
	y := (op & 0x38) >> 3
	z := op & 0x07
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return c.executeX0(y, z, p, q, im)
	case 1:
		return c.executeX1(y, z, im)
	case 2:
		return c.executeX2(y, z, im)
	default:
		return c.executeX3(op, y, z, p, q, im)
	}
}

// effAddr computes the address an (HL)-shaped operand refers to: HL
// itself when unprefixed, or HL/IX/IY plus a freshly fetched signed
// displacement once a DD/FD prefix is in effect (spec.md §4.3). Must be
// called at most once per instruction: the displacement byte is
// consumed from the instruction stream as a side effect.
func (c *CPU) effAddr(im indexMode) uint16 {
	if im == idxNone {
		c.MEMPTR = c.HL
		return c.HL
	}
	addr := c.displacement(c.pairHL(im))
	c.MEMPTR = addr
	return addr
}

// get8 reads the 8-bit operand selected by idx (the r[z]/r[y] table),
// dispatching to memory through effAddr when idx==6.
func (c *CPU) get8(idx int, im indexMode) uint8 {
	if idx == 6 {
		return c.Mem.PeekTimed(c.effAddr(im), &c.Tstates)
	}
	return c.reg8(idx, im)
}

func (c *CPU) set8(idx int, im indexMode, v uint8) {
	if idx == 6 {
		c.Mem.PokeTimed(c.effAddr(im), v, &c.Tstates)
		return
	}
	c.setReg8(idx, v, im)
}

// condition evaluates the cc[y] table: NZ,Z,NC,C,PO,PE,P,M.
func (c *CPU) condition(y uint8) bool {
	f := c.F()
	switch y {
	case 0:
		return f&FlagZ == 0
	case 1:
		return f&FlagZ != 0
	case 2:
		return f&FlagC == 0
	case 3:
		return f&FlagC != 0
	case 4:
		return f&FlagPV == 0
	case 5:
		return f&FlagPV != 0
	case 6:
		return f&FlagS == 0
	case 7:
		return f&FlagS != 0
	}
	panic("z80: invalid condition index")
}

func (c *CPU) alu(y uint8, v uint8) {
	switch y {
	case 0:
		c.addReg8(v)
	case 1:
		c.adcReg8(v)
	case 2:
		c.subReg8(v)
	case 3:
		c.sbcReg8(v)
	case 4:
		c.andReg8(v)
	case 5:
		c.xorReg8(v)
	case 6:
		c.orReg8(v)
	case 7:
		c.cpReg8(v)
	}
}

func (c *CPU) executeX0(y, z, p, q uint8, im indexMode) error {
	switch z {
	case 0:
		return c.executeX0Z0(y)
	case 1:
		if q == 0 {
			c.setReg16(int(p), c.fetchWord(), im)
		} else {
			c.Mem.Contend(c.IR(), 1, 7, &c.Tstates)
			c.setPairHL(c.addReg16(c.pairHL(im), c.reg16(int(p), im)), im)
		}
		return nil
	case 2:
		return c.executeX0Z2(p, q, im)
	case 3:
		v := c.reg16(int(p), im)
		c.Mem.Contend(c.IR(), 1, 2, &c.Tstates)
		if q == 0 {
			c.setReg16(int(p), v+1, im)
		} else {
			c.setReg16(int(p), v-1, im)
		}
		return nil
	case 4:
		if y == 6 {
			addr := c.effAddr(im)
			v := c.Mem.PeekTimed(addr, &c.Tstates)
			c.Mem.Contend(addr, 1, 1, &c.Tstates)
			c.Mem.PokeTimed(addr, c.incReg8(v), &c.Tstates)
			return nil
		}
		c.set8(int(y), im, c.incReg8(c.get8(int(y), im)))
		return nil
	case 5:
		if y == 6 {
			addr := c.effAddr(im)
			v := c.Mem.PeekTimed(addr, &c.Tstates)
			c.Mem.Contend(addr, 1, 1, &c.Tstates)
			c.Mem.PokeTimed(addr, c.decReg8(v), &c.Tstates)
			return nil
		}
		c.set8(int(y), im, c.decReg8(c.get8(int(y), im)))
		return nil
	case 6:
		if y == 6 {
			if im != idxNone {
				// DD/FD 36 d n: the immediate follows the displacement
				// and is read before the 2 internal T-states.
				d := int8(c.fetchByte())
				n := c.fetchByte()
				c.Mem.Contend(c.PC-1, 1, 2, &c.Tstates)
				addr := uint16(int32(c.pairHL(im)) + int32(d))
				c.MEMPTR = addr
				c.Mem.PokeTimed(addr, n, &c.Tstates)
				return nil
			}
			addr := c.effAddr(im)
			c.Mem.PokeTimed(addr, c.fetchByte(), &c.Tstates)
			return nil
		}
		c.setReg8(int(y), c.fetchByte(), im)
		return nil
	case 7:
		return c.executeX0Z7(y)
	}
	return nil
}

func (c *CPU) executeX0Z0(y uint8) error {
	switch y {
	case 0: // NOP
	case 1: // EX AF,AF'
		c.exAFAF()
	case 2: // DJNZ d
		c.Mem.Contend(c.IR(), 1, 1, &c.Tstates)
		c.SetB(c.B() - 1)
		if c.B() != 0 {
			c.jr()
		} else {
			c.fetchByte()
		}
	case 3: // JR d
		c.jr()
	default: // JR cc,d (y=4..7)
		if c.condition(y - 4) {
			c.jr()
		} else {
			c.fetchByte()
		}
	}
	return nil
}

// jr reads the relative displacement and jumps, updating MEMPTR.
func (c *CPU) jr() {
	d := int8(c.fetchByte())
	c.Mem.Contend(c.PC-1, 1, 5, &c.Tstates)
	c.PC = uint16(int32(c.PC) + int32(d))
	c.MEMPTR = c.PC
}

func (c *CPU) executeX0Z2(p, q uint8, im indexMode) error {
	if q == 0 {
		switch p {
		case 0: // LD (BC),A
			c.Mem.PokeTimed(c.BC, c.A(), &c.Tstates)
			c.MEMPTR = uint16(c.A())<<8 | (c.BC+1)&0xFF
		case 1: // LD (DE),A
			c.Mem.PokeTimed(c.DE, c.A(), &c.Tstates)
			c.MEMPTR = uint16(c.A())<<8 | (c.DE+1)&0xFF
		case 2: // LD (nn),HL
			addr := c.fetchWord()
			c.Mem.Poke16Timed(addr, c.pairHL(im), &c.Tstates)
			c.MEMPTR = addr + 1
		case 3: // LD (nn),A
			addr := c.fetchWord()
			c.Mem.PokeTimed(addr, c.A(), &c.Tstates)
			c.MEMPTR = uint16(c.A())<<8 | (addr+1)&0xFF
		}
		return nil
	}
	switch p {
	case 0: // LD A,(BC)
		c.MEMPTR = c.BC + 1
		c.SetA(c.Mem.PeekTimed(c.BC, &c.Tstates))
	case 1: // LD A,(DE)
		c.MEMPTR = c.DE + 1
		c.SetA(c.Mem.PeekTimed(c.DE, &c.Tstates))
	case 2: // LD HL,(nn)
		addr := c.fetchWord()
		c.setPairHL(c.Mem.Peek16Timed(addr, &c.Tstates), im)
		c.MEMPTR = addr + 1
	case 3: // LD A,(nn)
		addr := c.fetchWord()
		c.SetA(c.Mem.PeekTimed(addr, &c.Tstates))
		c.MEMPTR = addr + 1
	}
	return nil
}

func (c *CPU) executeX0Z7(y uint8) error {
	switch y {
	case 0: // RLCA
		r := c.rlcA(c.A())
		c.SetA(r)
	case 1: // RRCA
		c.SetA(c.rrcA(c.A()))
	case 2: // RLA
		c.SetA(c.rlA(c.A()))
	case 3: // RRA
		c.SetA(c.rrA(c.A()))
	case 4: // DAA
		c.daa()
	case 5: // CPL
		c.SetA(^c.A())
		c.SetF((c.F() & (FlagC | FlagPV | FlagZ | FlagS)) | FlagH | FlagN | (c.A() & (Flag3 | Flag5)))
	case 6: // SCF
		c.SetF((c.F() & (FlagPV | FlagZ | FlagS)) | FlagC | (c.A() & (Flag3 | Flag5)))
	case 7: // CCF
		oldCarry := c.F() & FlagC
		f := (c.F() & (FlagPV | FlagZ | FlagS)) | (c.A() & (Flag3 | Flag5))
		if oldCarry != 0 {
			f |= FlagH
		} else {
			f |= FlagC
		}
		c.SetF(f)
	}
	return nil
}

// rlcA/rrcA/rlA/rrA are the accumulator-only rotate opcodes: unlike the
// CB-page RLC/RRC/RL/RR they preserve S/Z/PV and only touch C/H/N/3/5.
func (c *CPU) rlcA(v uint8) uint8 {
	carry := v >> 7
	r := (v << 1) | carry
	c.SetF((c.F() & (FlagS | FlagZ | FlagPV)) | carry | (r & (Flag3 | Flag5)))
	return r
}

func (c *CPU) rrcA(v uint8) uint8 {
	carry := v & 0x01
	r := (v >> 1) | (carry << 7)
	c.SetF((c.F() & (FlagS | FlagZ | FlagPV)) | carry | (r & (Flag3 | Flag5)))
	return r
}

func (c *CPU) rlA(v uint8) uint8 {
	oldCarry := c.F() & FlagC
	carry := v >> 7
	r := (v << 1) | oldCarry
	c.SetF((c.F() & (FlagS | FlagZ | FlagPV)) | carry | (r & (Flag3 | Flag5)))
	return r
}

func (c *CPU) rrA(v uint8) uint8 {
	oldCarry := c.F() & FlagC
	carry := v & 0x01
	r := (v >> 1) | (oldCarry << 7)
	c.SetF((c.F() & (FlagS | FlagZ | FlagPV)) | carry | (r & (Flag3 | Flag5)))
	return r
}

func (c *CPU) executeX1(y, z uint8, im indexMode) error {
	if y == 6 && z == 6 {
		c.Halted = true
		c.PC--
		return Halted{PC: c.PC}
	}
	c.set8(int(y), im, c.get8(int(z), im))
	return nil
}

func (c *CPU) executeX2(y, z uint8, im indexMode) error {
	c.alu(y, c.get8(int(z), im))
	return nil
}

func (c *CPU) executeX3(op, y, z, p, q uint8, im indexMode) error {
	switch z {
	case 0: // RET cc
		c.Mem.Contend(c.IR(), 1, 1, &c.Tstates)
		if c.condition(y) {
			c.PC = c.pop()
			c.MEMPTR = c.PC
		}
		return nil
	case 1:
		return c.executeX3Z1(y, p, q, im)
	case 2: // JP cc,nn
		addr := c.fetchWord()
		c.MEMPTR = addr
		if c.condition(y) {
			c.PC = addr
		}
		return nil
	case 3:
		return c.executeX3Z3(y, im)
	case 4: // CALL cc,nn
		addr := c.fetchWord()
		c.MEMPTR = addr
		if c.condition(y) {
			c.Mem.Contend(c.PC-1, 1, 1, &c.Tstates)
			c.push(c.PC)
			c.PC = addr
		}
		return nil
	case 5:
		return c.executeX3Z5(p, q, im)
	case 6: // alu a,n
		c.alu(y, c.fetchByte())
		return nil
	case 7: // RST y*8
		c.Mem.Contend(c.IR(), 1, 1, &c.Tstates)
		c.push(c.PC)
		c.PC = uint16(y) * 8
		c.MEMPTR = c.PC
		return nil
	}
	return InvalidOpcode{Opcode: op, PC: c.PC}
}

func (c *CPU) executeX3Z1(y, p, q uint8, im indexMode) error {
	if q == 0 { // POP rp2[p]
		c.setReg16Alt(int(p), c.pop(), im)
		return nil
	}
	switch p {
	case 0: // RET
		c.PC = c.pop()
		c.MEMPTR = c.PC
	case 1: // EXX
		c.exx()
	case 2: // JP (HL)/(IX)/(IY)
		c.PC = c.pairHL(im)
	case 3: // LD SP,HL/IX/IY
		c.Mem.Contend(c.IR(), 1, 2, &c.Tstates)
		c.SP = c.pairHL(im)
	}
	return nil
}

func (c *CPU) executeX3Z3(y uint8, im indexMode) error {
	switch y {
	case 0: // JP nn
		c.PC = c.fetchWord()
		c.MEMPTR = c.PC
	case 1: // CB prefix
		return c.executeCBPage(im)
	case 2: // OUT (n),A
		n := c.fetchByte()
		port := uint16(c.A())<<8 | uint16(n)
		c.IO.Out(port, c.A(), c.Mem, &c.Tstates)
		c.MEMPTR = (uint16(c.A()) << 8) | ((uint16(n) + 1) & 0xFF)
	case 3: // IN A,(n)
		n := c.fetchByte()
		port := uint16(c.A())<<8 | uint16(n)
		c.SetA(c.IO.In(port, c.Mem, &c.Tstates))
		c.MEMPTR = port + 1
	case 4: // EX (SP),HL/IX/IY
		lo := c.Mem.PeekTimed(c.SP, &c.Tstates)
		hi := c.Mem.PeekTimed(c.SP+1, &c.Tstates)
		c.Mem.Contend(c.SP+1, 1, 1, &c.Tstates)
		v := c.pairHL(im)
		c.Mem.PokeTimed(c.SP+1, uint8(v>>8), &c.Tstates)
		c.Mem.PokeTimed(c.SP, uint8(v), &c.Tstates)
		c.Mem.Contend(c.SP, 1, 2, &c.Tstates)
		c.setPairHL(uint16(lo)|uint16(hi)<<8, im)
		c.MEMPTR = c.pairHL(im)
	case 5: // EX DE,HL -- never affected by an index prefix.
		c.DE, c.HL = c.HL, c.DE
	case 6: // DI
		c.IFF1 = false
		c.IFF2 = false
	case 7: // EI
		c.IFF1 = true
		c.IFF2 = true
		c.eiJustExecuted = true
	}
	return nil
}

func (c *CPU) executeX3Z5(p, q uint8, im indexMode) error {
	if q == 0 { // PUSH rp2[p]
		c.Mem.Contend(c.IR(), 1, 1, &c.Tstates)
		c.push(c.reg16Alt(int(p), im))
		return nil
	}
	switch p {
	case 0: // CALL nn
		addr := c.fetchWord()
		c.MEMPTR = addr
		c.Mem.Contend(c.PC-1, 1, 1, &c.Tstates)
		c.push(c.PC)
		c.PC = addr
	case 1: // DD prefix
		op := c.fetchOpcode()
		return c.execute(op, idxIX)
	case 2: // ED prefix
		op := c.fetchOpcode()
		return c.executeED(op)
	case 3: // FD prefix
		op := c.fetchOpcode()
		return c.execute(op, idxIY)
	}
	return nil
}
