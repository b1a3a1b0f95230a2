// Package z80 implements a cycle-accurate NMOS Z80 interpreter: register
// file, full opcode set including the CB/ED/DD/FD/DDCB/FDCB prefix
// pages, MEMPTR tracking, HALT, and the maskable interrupt sequence.
// Timing is threaded through every memory and I/O access via the same
// *int64 T-state accumulator pattern the memory and io packages already
// use, so the CPU never guesses at cycle counts independently of the
// bus it is wired to.
package z80

import (
	"github.com/gozx/spectrum48/io"
	"github.com/gozx/spectrum48/irq"
	"github.com/gozx/spectrum48/memory"
)

// CPU is a complete Z80 core wired to a 64 KiB memory bank and an I/O
// decoder. It has no notion of frames or scanlines; the caller (the
// spectrum package) drives Step in a loop and stops when the T-state
// budget for the frame is exhausted.
type CPU struct {
	Registers

	Mem *memory.Bank48
	IO  *io.Decoder

	irqSource irq.Sender

	// Tstates is the running T-state count within the current frame,
	// zeroed by ResetTStates and reduced by the frame length by the
	// caller at each frame boundary; threaded by pointer into every timed
	// memory/IO access.
	Tstates int64
}

var _ irq.Receiver = (*CPU)(nil)

// New returns a powered-off CPU wired to mem and iod. Install must be
// called separately to wire the interrupt source, matching the
// irq.Receiver contract the rest of the pack uses.
func New(mem *memory.Bank48, iod *io.Decoder) *CPU {
	return &CPU{Mem: mem, IO: iod}
}

// Install wires the maskable interrupt source (irq.Receiver).
func (c *CPU) Install(s irq.Sender) {
	c.irqSource = s
}

// PowerOn resets the CPU to its post-reset register state: PC=0, SP and
// AF/shadow all 0xFFFF-ish per real hardware's undefined-but-conventional
// power-on values, interrupts disabled, IM 0.
func (c *CPU) PowerOn() {
	c.Registers = Registers{
		AF: 0xFFFF, BC: 0xFFFF, DE: 0xFFFF, HL: 0xFFFF,
		AF2: 0xFFFF, BC2: 0xFFFF, DE2: 0xFFFF, HL2: 0xFFFF,
		IX: 0xFFFF, IY: 0xFFFF,
		SP: 0xFFFF, PC: 0,
		I: 0, R: 0,
	}
}

// Reset performs a Z80 RESET: PC, I, R, IFF1/IFF2, IM, MEMPTR and the
// HALT/EI state all clear; unlike PowerOn the other registers are left
// as-is, matching real hardware's /RESET line behaviour.
func (c *CPU) Reset() {
	c.PC = 0
	c.I = 0
	c.R = 0
	c.IFF1 = false
	c.IFF2 = false
	c.IM = 0
	c.Halted = false
	c.eiJustExecuted = false
	c.MEMPTR = 0
}

// ResetTStates zeroes the running T-state counter. The spectrum package
// calls it on reset; at a frame boundary it subtracts the frame length
// from Tstates instead.
func (c *CPU) ResetTStates() {
	c.Tstates = 0
}

// fetchOpcode performs one M1 opcode fetch cycle: 4 T-states, each of
// which is separately contended (a contended M1 fetch costs more than a
// contended data read because the ULA samples the bus on every one of
// the four cycles), then bumps R and advances PC.
func (c *CPU) fetchOpcode() uint8 {
	c.Mem.Contend(c.PC, 1, 4, &c.Tstates)
	op := c.Mem.Peek(c.PC)
	c.PC++
	c.bumpR()
	return op
}

// fetchByte reads and consumes the byte at PC as an immediate operand or
// displacement, with ordinary 3 T-state contended timing.
func (c *CPU) fetchByte() uint8 {
	v := c.Mem.PeekTimed(c.PC, &c.Tstates)
	c.PC++
	return v
}

func (c *CPU) fetchWord() uint16 {
	v := c.Mem.Peek16Timed(c.PC, &c.Tstates)
	c.PC += 2
	return v
}

func (c *CPU) push(v uint16) {
	c.SP--
	c.Mem.PokeTimed(c.SP, uint8(v>>8), &c.Tstates)
	c.SP--
	c.Mem.PokeTimed(c.SP, uint8(v), &c.Tstates)
}

func (c *CPU) pop() uint16 {
	lo := c.Mem.PeekTimed(c.SP, &c.Tstates)
	c.SP++
	hi := c.Mem.PeekTimed(c.SP, &c.Tstates)
	c.SP++
	return uint16(lo) | uint16(hi)<<8
}

// displacement reads a signed 8-bit index offset and adds it to base,
// consuming 5 extra internal T-states, contended against the
// displacement byte's address, the way DD/FD-prefixed
// (HL)-replacement addressing does.
func (c *CPU) displacement(base uint16) uint16 {
	d := int8(c.fetchByte())
	c.Mem.Contend(c.PC-1, 1, 5, &c.Tstates)
	return uint16(int32(base) + int32(d))
}

// acceptInterrupt reports whether a maskable interrupt should be taken
// before the next instruction: IFF1 set, the line currently raised, and
// not immediately after EI (which guarantees the instruction following
// EI always runs, per the documented Z80 interrupt-latency rule).
func (c *CPU) acceptInterrupt() bool {
	return c.IFF1 && !c.eiJustExecuted && c.irqSource != nil && c.irqSource.Raised()
}

// Step executes exactly one instruction: sampling the interrupt line
// first, then either running the halted-CPU no-op path or fetching and
// dispatching one opcode. The returned error is non-nil for Halted (a
// signal, not a fault) and for genuine decode bugs.
func (c *CPU) Step() error {
	if c.acceptInterrupt() {
		c.maskableInterrupt()
		c.eiJustExecuted = false
		return nil
	}
	c.eiJustExecuted = false

	if c.Halted {
		// A halted CPU keeps refetching (and discarding) the opcode at
		// PC, executing an implicit NOP each time, so R keeps
		// incrementing and refresh-driven contention still applies.
		c.Mem.Contend(c.PC, 1, 4, &c.Tstates)
		c.bumpR()
		return Halted{PC: c.PC}
	}

	op := c.fetchOpcode()
	return c.execute(op, idxNone)
}

// maskableInterrupt runs the interrupt-acknowledge sequence: 7 T-states
// of internal contention (two wasted M1-shaped cycles while /INT is
// serviced) followed by a normal 2-byte PUSH PC, then loads PC according
// to the current interrupt mode.
func (c *CPU) maskableInterrupt() {
	if c.Halted {
		// HALT decrements PC back onto its own opcode so it can keep
		// refetching; undo that here so the pushed return address lands
		// on the instruction after HALT, not HALT itself, or the ISR's
		// RET would walk straight back into an infinite re-halt.
		c.PC++
	}
	c.Halted = false
	c.IFF1 = false
	c.IFF2 = false
	c.Mem.Contend(c.PC, 1, 7, &c.Tstates)
	c.push(c.PC)
	c.bumpR()

	switch c.IM {
	case 0, 1:
		c.PC = 0x0038
	case 2:
		vector := uint16(c.I)<<8 | 0xFF
		c.PC = c.Mem.Peek16Timed(vector, &c.Tstates)
	default:
		panic(InvalidCPUState{Reason: "interrupt mode out of range"})
	}
	c.MEMPTR = c.PC
}

// nonMaskableInterrupt is exposed for completeness (real hardware NMI
// vectors to 0x0066 regardless of IFF1); nothing on this machine drives
// /NMI, so nothing calls this yet.
func (c *CPU) nonMaskableInterrupt() {
	c.Halted = false
	c.IFF2 = c.IFF1
	c.IFF1 = false
	c.Mem.Contend(c.PC, 1, 5, &c.Tstates)
	c.push(c.PC)
	c.bumpR()
	c.PC = 0x0066
	c.MEMPTR = c.PC
}
