package z80

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/gozx/spectrum48/io"
	"github.com/gozx/spectrum48/memory"
)

func newTestCPU() *CPU {
	mem := memory.NewBank48()
	mem.PowerOn()
	mem.SetROMWritable(true)
	iod := io.NewDecoder()
	c := New(mem, iod)
	c.PowerOn()
	c.PC = 0
	c.SP = 0xFFFF
	return c
}

func (c *CPU) load(addr uint16, bytes ...uint8) {
	c.Mem.Load(addr, bytes)
}

func TestLoadAddSequence(t *testing.T) {
	c := newTestCPU()
	// LD A,5 ; ADD A,3 ; HALT
	c.load(0, 0x3E, 0x05, 0xC6, 0x03, 0x76)

	if err := c.Step(); err != nil {
		t.Fatalf("LD A,5: unexpected error %v", err)
	}
	if c.A() != 5 {
		t.Fatalf("A after LD A,5 = %d, want 5", c.A())
	}

	if err := c.Step(); err != nil {
		t.Fatalf("ADD A,3: unexpected error %v", err)
	}
	if c.A() != 8 {
		t.Fatalf("A after ADD A,3 = %d, want 8", c.A())
	}

	if err := c.Step(); err == nil {
		t.Fatalf("HALT: expected Halted error, got nil")
	} else if _, ok := err.(Halted); !ok {
		t.Fatalf("HALT: expected Halted, got %v (%s)", err, spew.Sdump(err))
	}
	if !c.Halted {
		t.Fatalf("Halted flag not set after HALT")
	}
}

func TestLDIRCopiesFourBytes(t *testing.T) {
	c := newTestCPU()
	c.load(0x8000, 0xAA, 0xBB, 0xCC, 0xDD)
	c.HL = 0x8000
	c.DE = 0x9000
	c.BC = 4
	// LDIR
	c.load(0, 0xED, 0xB0)

	for i := 0; i < 3; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("LDIR iteration %d: unexpected error %v", i, err)
		}
		if c.PC != 0 {
			t.Fatalf("LDIR iteration %d: PC = %#04x, want 0 (still repeating)", i, c.PC)
		}
	}
	if err := c.Step(); err != nil {
		t.Fatalf("LDIR final iteration: unexpected error %v", err)
	}
	if c.PC != 2 {
		t.Fatalf("PC after LDIR completes = %#04x, want 2", c.PC)
	}
	if c.BC != 0 {
		t.Fatalf("BC after LDIR = %#04x, want 0", c.BC)
	}

	want := []uint8{0xAA, 0xBB, 0xCC, 0xDD}
	got := make([]uint8, 4)
	for i := range got {
		got[i] = c.Mem.Peek(0x9000 + uint16(i))
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("copied bytes differ: %v", diff)
	}
}

func TestIM2InterruptVectoring(t *testing.T) {
	c := newTestCPU()
	c.I = 0x60
	c.IM = 2
	c.IFF1 = true
	c.PC = 0x1000
	c.SP = 0x8000
	// Vector table entry at I:0xFF -> 0x9000.
	c.load(0x60FF, 0x00, 0x90)

	src := &fakeIRQSource{raised: true}
	c.Install(src)

	if err := c.Step(); err != nil {
		t.Fatalf("interrupt step: unexpected error %v", err)
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC after IM2 interrupt = %#04x, want 0x9000", c.PC)
	}
	if c.IFF1 {
		t.Fatalf("IFF1 still set after interrupt ack")
	}
	ret := c.pop()
	if ret != 0x1000 {
		t.Fatalf("pushed return address = %#04x, want 0x1000", ret)
	}
}

type fakeIRQSource struct{ raised bool }

func (f *fakeIRQSource) Raised() bool { return f.raised }

func TestHaltedInterruptAdvancesPastHalt(t *testing.T) {
	c := newTestCPU()
	c.PC = 0x8000
	c.load(0x8000, 0x76) // HALT
	c.load(0x40FF, 0x00, 0x90)
	c.I = 0x40
	c.IM = 2
	c.IFF1 = true
	c.SP = 0x8000

	if err := c.Step(); err == nil {
		t.Fatalf("HALT: expected Halted error, got nil")
	} else if _, ok := err.(Halted); !ok {
		t.Fatalf("HALT: expected Halted, got %v", err)
	}
	if c.PC != 0x8000 {
		t.Fatalf("PC after HALT = %#04x, want 0x8000", c.PC)
	}

	src := &fakeIRQSource{raised: true}
	c.Install(src)

	if err := c.Step(); err != nil {
		t.Fatalf("interrupt step: unexpected error %v", err)
	}
	if c.Halted {
		t.Fatalf("Halted flag still set after interrupt ack")
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC after interrupt ack = %#04x, want 0x9000", c.PC)
	}
	ret := c.pop()
	if ret != 0x8001 {
		t.Fatalf("pushed return address = %#04x, want 0x8001 (past HALT, not onto it)", ret)
	}
}

func TestBlockINFlagsUseAdjustedC(t *testing.T) {
	c := newTestCPU()
	c.PC = 0
	c.HL = 0x8000
	c.BC = 0x1003 // B=0x10, C=0x03; port value below fed by the test decoder
	c.load(0, 0xED, 0xA2) // INI

	if err := c.Step(); err != nil {
		t.Fatalf("INI: unexpected error %v", err)
	}
	if c.B() != 0x0F {
		t.Fatalf("B after INI = %#02x, want 0x0f", c.B())
	}
	val := c.Mem.Peek(0x8000)
	sum := uint16(c.C()+1) + uint16(val)
	wantHC := sum > 0xFF
	gotHC := c.F()&FlagH != 0
	if gotHC != wantHC {
		t.Fatalf("H flag after INI = %v, want %v (C+1=%#02x, val=%#02x)", gotHC, wantHC, c.C()+1, val)
	}

	c.PC = 0
	c.HL = 0x8001
	c.BC = 0x1003
	c.load(0, 0xED, 0xAA) // IND

	if err := c.Step(); err != nil {
		t.Fatalf("IND: unexpected error %v", err)
	}
	val = c.Mem.Peek(0x8001)
	sum = uint16(c.C()-1) + uint16(val)
	wantHC = sum > 0xFF
	gotHC = c.F()&FlagH != 0
	if gotHC != wantHC {
		t.Fatalf("H flag after IND = %v, want %v (C-1=%#02x, val=%#02x)", gotHC, wantHC, c.C()-1, val)
	}
}

func TestDDCBBitOnIndexedAddress(t *testing.T) {
	c := newTestCPU()
	c.IX = 0x8000
	c.Mem.Poke(0x8005, 0x01) // bit 0 set
	// DD CB 05 46 -> BIT 0,(IX+5)
	c.load(0, 0xDD, 0xCB, 0x05, 0x46)

	if err := c.Step(); err != nil {
		t.Fatalf("DD CB BIT: unexpected error %v", err)
	}
	if c.F()&FlagZ != 0 {
		t.Errorf("Z flag set after BIT 0,(IX+5) with bit set, want clear")
	}
}

func TestOutFEBorderColour(t *testing.T) {
	c := newTestCPU()
	c.SetA(7)
	// OUT (0xFE),A
	c.load(0, 0xD3, 0xFE)

	if err := c.Step(); err != nil {
		t.Fatalf("OUT (0xFE),A: unexpected error %v", err)
	}
	if got := c.IO.BorderColour(); got != 7 {
		t.Errorf("border colour after OUT (0xFE),7 = %d, want 7", got)
	}
}

func TestInAtContendedTState(t *testing.T) {
	c := newTestCPU()
	c.Tstates = 14335
	c.SetA(0x40) // port high byte 0x40 -> contended slot
	c.load(0, 0xDB, 0xFE)

	if err := c.Step(); err != nil {
		t.Fatalf("IN A,(0xFE): unexpected error %v", err)
	}
	if c.Tstates <= 14335+11 {
		t.Errorf("t-states after contended IN A,(n) = %d, want > %d", c.Tstates, 14335+11)
	}
}
