// Package disassemble implements a single-instruction Z80 disassembler:
// given a byte stream and a program counter, it returns the mnemonic
// text, the instruction's length in bytes, and whether the instruction
// has a fixed "return address" immediately following it (the CALL/RST/
// DJNZ/LDIR-class instructions breakpoint.StepOver needs to recognise).
// Adapted from the teacher's 6502 `disassemble.Step`, which returns a
// formatted string and byte count from a single large opcode switch;
// here the switch is organised by the same x/y/z field decomposition
// z80/opcodes.go dispatches on, since the Z80's opcode space doesn't fit
// one flat 256-entry table the way 6502's does.
package disassemble

import "fmt"

// Memory is the minimal read contract this package needs: a pure,
// untimed byte read, satisfied by memory.Bank48.Peek without importing
// the memory package's timing machinery.
type Memory interface {
	Peek(addr uint16) uint8
}

// Instruction is the result of disassembling one instruction.
type Instruction struct {
	Text           string
	Length         int
	HasFixedReturn bool
}

var reg8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var reg16Names = [4]string{"BC", "DE", "HL", "SP"}
var reg16AltNames = [4]string{"BC", "DE", "HL", "AF"}
var ccNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var aluNames = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
var rotNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

// Z80At disassembles the instruction starting at pc, reading as many
// bytes as it needs (never more than 4) via mem.
func Z80At(mem Memory, pc uint16) Instruction {
	b0 := mem.Peek(pc)

	switch b0 {
	case 0xCB:
		op := mem.Peek(pc + 1)
		return Instruction{Text: cbMnemonic(op, ""), Length: 2}
	case 0xED:
		return edInstruction(mem, pc)
	case 0xDD, 0xFD:
		return indexedInstruction(mem, pc, b0)
	default:
		return plainInstruction(mem, pc)
	}
}

func indexName(prefix uint8) string {
	if prefix == 0xDD {
		return "IX"
	}
	return "IY"
}

func indexedInstruction(mem Memory, pc uint16, prefix uint8) Instruction {
	b1 := mem.Peek(pc + 1)
	if b1 == 0xCB {
		d := int8(mem.Peek(pc + 2))
		op := mem.Peek(pc + 3)
		text := cbMnemonic(op, fmt.Sprintf("(%s%+d)", indexName(prefix), d))
		return Instruction{Text: text, Length: 4}
	}
	// Every other DD/FD-prefixed opcode is the unprefixed instruction
	// with HL/H/L replaced by IX/IXH/IXL (or IY/...); reusing the plain
	// decode and substituting names keeps this in one place rather than
	// a parallel table, mirroring the unified-dispatcher choice in
	// z80/opcodes.go.
	inner := plainInstructionAt(mem, pc+1, indexName(prefix))
	return Instruction{
		Text:           inner.Text,
		Length:         inner.Length + 1,
		HasFixedReturn: inner.HasFixedReturn,
	}
}

func plainInstruction(mem Memory, pc uint16) Instruction {
	return plainInstructionAt(mem, pc, "HL")
}

// plainInstructionAt decodes the unprefixed opcode table, substituting
// hlName for HL/H/L-shaped operands so the same code serves the DD/FD
// pages (hlName == "IX" or "IY") and the unprefixed page (hlName ==
// "HL"). Displacement bytes for (IX+d)/(IY+d) forms are consumed here
// when hlName names an index register.
func plainInstructionAt(mem Memory, pc uint16, hlName string) Instruction {
	op := mem.Peek(pc)
	x := (op & 0xC0) >> 6
	y := (op & 0x38) >> 3
	z := op & 0x07
	p := y >> 1
	q := y & 1

	indexed := hlName != "HL"
	r8 := func(idx uint8) (string, int) {
		if idx == 6 {
			if indexed {
				d := int8(mem.Peek(pc + 1))
				return fmt.Sprintf("(%s%+d)", hlName, d), 1
			}
			return "(HL)", 0
		}
		name := reg8Names[idx]
		if indexed {
			switch idx {
			case 4:
				return hlName + "H", 0
			case 5:
				return hlName + "L", 0
			}
		}
		return name, 0
	}
	r16 := func(idx uint8) string {
		if idx == 2 {
			return hlName
		}
		return reg16Names[idx]
	}

	switch x {
	case 0:
		switch z {
		case 0:
			switch {
			case y == 0:
				return Instruction{Text: "NOP", Length: 1}
			case y == 1:
				return Instruction{Text: "EX AF,AF'", Length: 1}
			case y == 2:
				return Instruction{Text: fmt.Sprintf("DJNZ %+d", int8(mem.Peek(pc+1))), Length: 2, HasFixedReturn: true}
			case y == 3:
				return Instruction{Text: fmt.Sprintf("JR %+d", int8(mem.Peek(pc+1))), Length: 2}
			default:
				return Instruction{Text: fmt.Sprintf("JR %s,%+d", ccNames[y-4], int8(mem.Peek(pc+1))), Length: 2}
			}
		case 1:
			if q == 0 {
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("LD %s,%#04x", r16(p), uint16(hi)<<8|uint16(lo)), Length: 3}
			}
			return Instruction{Text: fmt.Sprintf("ADD %s,%s", hlName, r16(p)), Length: 1}
		case 2:
			names := map[uint8]string{0: "LD (BC),A", 1: "LD A,(BC)", 2: "LD (DE),A", 3: "LD A,(DE)"}
			switch y {
			case 4:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("LD (%#04x),%s", uint16(hi)<<8|uint16(lo), hlName), Length: 3}
			case 5:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("LD %s,(%#04x)", hlName, uint16(hi)<<8|uint16(lo)), Length: 3}
			case 6:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("LD (%#04x),A", uint16(hi)<<8|uint16(lo)), Length: 3}
			case 7:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("LD A,(%#04x)", uint16(hi)<<8|uint16(lo)), Length: 3}
			default:
				return Instruction{Text: names[y], Length: 1}
			}
		case 3:
			if q == 0 {
				return Instruction{Text: fmt.Sprintf("INC %s", r16(p)), Length: 1}
			}
			return Instruction{Text: fmt.Sprintf("DEC %s", r16(p)), Length: 1}
		case 4:
			name, extra := r8(y)
			return Instruction{Text: fmt.Sprintf("INC %s", name), Length: 1 + extra}
		case 5:
			name, extra := r8(y)
			return Instruction{Text: fmt.Sprintf("DEC %s", name), Length: 1 + extra}
		case 6:
			name, extra := r8(y)
			n := mem.Peek(pc + 1 + uint16(extra))
			return Instruction{Text: fmt.Sprintf("LD %s,%#02x", name, n), Length: 2 + extra}
		default: // z == 7
			names := [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
			return Instruction{Text: names[y], Length: 1}
		}
	case 1:
		if z == 6 && y == 6 {
			return Instruction{Text: "HALT", Length: 1}
		}
		dst, dExtra := r8(y)
		src, sExtra := r8(z)
		return Instruction{Text: fmt.Sprintf("LD %s,%s", dst, src), Length: 1 + dExtra + sExtra}
	case 2:
		src, extra := r8(z)
		return Instruction{Text: fmt.Sprintf("%s %s", aluNames[y], src), Length: 1 + extra}
	default: // x == 3
		switch z {
		case 0:
			return Instruction{Text: fmt.Sprintf("RET %s", ccNames[y]), Length: 1}
		case 1:
			if q == 0 {
				return Instruction{Text: fmt.Sprintf("POP %s", reg16AltOrHL(p, hlName)), Length: 1}
			}
			names := map[uint8]string{0: "RET", 2: "JP " + hlName, 3: "LD SP," + hlName}
			if p == 1 {
				return Instruction{Text: "EXX", Length: 1}
			}
			return Instruction{Text: names[p], Length: 1}
		case 2:
			lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
			return Instruction{Text: fmt.Sprintf("JP %s,%#04x", ccNames[y], uint16(hi)<<8|uint16(lo)), Length: 3}
		case 3:
			switch y {
			case 0:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("JP %#04x", uint16(hi)<<8|uint16(lo)), Length: 3}
			case 1:
				return Instruction{Text: "CB prefix", Length: 1}
			case 2:
				return Instruction{Text: fmt.Sprintf("OUT (%#02x),A", mem.Peek(pc+1)), Length: 2}
			case 3:
				return Instruction{Text: fmt.Sprintf("IN A,(%#02x)", mem.Peek(pc+1)), Length: 2}
			case 4:
				return Instruction{Text: "EX (SP)," + hlName, Length: 1}
			case 5:
				return Instruction{Text: "EX DE,HL", Length: 1}
			case 6:
				return Instruction{Text: "DI", Length: 1}
			default:
				return Instruction{Text: "EI", Length: 1}
			}
		case 4:
			lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
			return Instruction{Text: fmt.Sprintf("CALL %s,%#04x", ccNames[y], uint16(hi)<<8|uint16(lo)), Length: 3, HasFixedReturn: true}
		case 5:
			if q == 0 {
				return Instruction{Text: fmt.Sprintf("PUSH %s", reg16AltOrHL(p, hlName)), Length: 1}
			}
			switch p {
			case 0:
				lo, hi := mem.Peek(pc+1), mem.Peek(pc+2)
				return Instruction{Text: fmt.Sprintf("CALL %#04x", uint16(hi)<<8|uint16(lo)), Length: 3, HasFixedReturn: true}
			case 1:
				return Instruction{Text: "DD prefix", Length: 1}
			case 2:
				return Instruction{Text: "ED prefix", Length: 1}
			default:
				return Instruction{Text: "FD prefix", Length: 1}
			}
		case 6:
			n := mem.Peek(pc + 1)
			return Instruction{Text: fmt.Sprintf("%s %#02x", aluNames[y], n), Length: 2}
		default: // z == 7
			return Instruction{Text: fmt.Sprintf("RST %#02x", y*8), Length: 1, HasFixedReturn: true}
		}
	}
}

func reg16AltOrHL(p uint8, hlName string) string {
	if p == 2 {
		return hlName
	}
	return reg16AltNames[p]
}

func cbMnemonic(op uint8, operand string) string {
	x := (op & 0xC0) >> 6
	y := (op & 0x38) >> 3
	z := op & 0x07

	name := operand
	if name == "" {
		name = reg8Names[z]
	}

	switch x {
	case 0:
		return fmt.Sprintf("%s %s", rotNames[y], name)
	case 1:
		return fmt.Sprintf("BIT %d,%s", y, name)
	case 2:
		return fmt.Sprintf("RES %d,%s", y, name)
	default:
		return fmt.Sprintf("SET %d,%s", y, name)
	}
}

// edInstruction decodes the ED-prefixed page. Length always includes
// the ED byte itself; HasFixedReturn is set for the repeating block
// forms (LDIR/LDDR/CPIR/CPDR/INIR/INDR/OTIR/OTDR), which loop back onto
// themselves until BC (or B) reaches zero the way CALL loops out to a
// subroutine: a step-over needs a breakpoint at the byte past them, not
// a single-instruction step.
func edInstruction(mem Memory, pc uint16) Instruction {
	op := mem.Peek(pc + 1)
	x := (op & 0xC0) >> 6
	y := (op & 0x38) >> 3
	z := op & 0x07
	p := y >> 1
	q := y & 1

	if x == 1 {
		switch z {
		case 0:
			if y == 6 {
				return Instruction{Text: "IN (C)", Length: 2}
			}
			return Instruction{Text: fmt.Sprintf("IN %s,(C)", reg8Names[y]), Length: 2}
		case 1:
			if y == 6 {
				return Instruction{Text: "OUT (C),0", Length: 2}
			}
			return Instruction{Text: fmt.Sprintf("OUT (C),%s", reg8Names[y]), Length: 2}
		case 2:
			if q == 0 {
				return Instruction{Text: fmt.Sprintf("SBC HL,%s", reg16Names[p]), Length: 2}
			}
			return Instruction{Text: fmt.Sprintf("ADC HL,%s", reg16Names[p]), Length: 2}
		case 3:
			lo, hi := mem.Peek(pc+2), mem.Peek(pc+3)
			nn := uint16(hi)<<8 | uint16(lo)
			if q == 0 {
				return Instruction{Text: fmt.Sprintf("LD (%#04x),%s", nn, reg16Names[p]), Length: 4}
			}
			return Instruction{Text: fmt.Sprintf("LD %s,(%#04x)", reg16Names[p], nn), Length: 4}
		case 4:
			return Instruction{Text: "NEG", Length: 2}
		case 5:
			if y == 1 {
				return Instruction{Text: "RETI", Length: 2}
			}
			return Instruction{Text: "RETN", Length: 2}
		case 6:
			return Instruction{Text: fmt.Sprintf("IM %d", [8]int{0, 0, 1, 2, 0, 0, 1, 2}[y]), Length: 2}
		default: // z == 7
			names := [8]string{"LD I,A", "LD R,A", "LD A,I", "LD A,R", "RRD", "RLD", "NOP", "NOP"}
			return Instruction{Text: names[y], Length: 2}
		}
	}

	if x == 2 && z <= 3 && y >= 4 {
		names := [4][4]string{
			{"LDI", "CPI", "INI", "OUTI"},
			{"LDD", "CPD", "IND", "OUTD"},
			{"LDIR", "CPIR", "INIR", "OTIR"},
			{"LDDR", "CPDR", "INDR", "OTDR"},
		}
		row := y - 4
		return Instruction{Text: names[row][z], Length: 2, HasFixedReturn: row >= 2}
	}

	return Instruction{Text: "NOP", Length: 2}
}
