package disassemble

import "testing"

type fakeMem struct {
	data [0x10000]uint8
}

func (m *fakeMem) Peek(addr uint16) uint8 { return m.data[addr] }

func (m *fakeMem) load(addr uint16, bytes ...uint8) {
	copy(m.data[addr:], bytes)
}

func TestNOP(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0x00)
	inst := Z80At(m, 0)
	if inst.Text != "NOP" || inst.Length != 1 || inst.HasFixedReturn {
		t.Fatalf("got %+v", inst)
	}
}

func TestLDRegImmediate(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0x3E, 0x05) // LD A,5
	inst := Z80At(m, 0)
	if inst.Text != "LD A,0x05" || inst.Length != 2 {
		t.Fatalf("got %+v", inst)
	}
}

func TestCallHasFixedReturn(t *testing.T) {
	m := &fakeMem{}
	m.load(0x8000, 0xCD, 0x00, 0x90) // CALL 0x9000
	inst := Z80At(m, 0x8000)
	if inst.Length != 3 || !inst.HasFixedReturn {
		t.Fatalf("got %+v", inst)
	}
}

func TestRSTHasFixedReturn(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0xFF) // RST 0x38
	inst := Z80At(m, 0)
	if !inst.HasFixedReturn || inst.Length != 1 {
		t.Fatalf("got %+v", inst)
	}
}

func TestDJNZHasFixedReturn(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0x10, 0xFE) // DJNZ -2
	inst := Z80At(m, 0)
	if !inst.HasFixedReturn || inst.Length != 2 {
		t.Fatalf("got %+v", inst)
	}
}

func TestLDIRHasFixedReturn(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0xED, 0xB0) // LDIR
	inst := Z80At(m, 0)
	if !inst.HasFixedReturn || inst.Length != 2 {
		t.Fatalf("got %+v", inst)
	}
	if inst.Text != "LDIR" {
		t.Fatalf("got text %q", inst.Text)
	}
}

func TestLDINoFixedReturn(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0xED, 0xA0) // LDI (non-repeating)
	inst := Z80At(m, 0)
	if inst.HasFixedReturn {
		t.Fatalf("LDI should not need step-over help")
	}
}

func TestDDCBIndexedBit(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0xDD, 0xCB, 0x05, 0x46) // BIT 0,(IX+5)
	inst := Z80At(m, 0)
	if inst.Length != 4 {
		t.Fatalf("got %+v", inst)
	}
	if inst.Text != "BIT 0,(IX+5)" {
		t.Fatalf("got text %q", inst.Text)
	}
}

func TestIndexedLoad(t *testing.T) {
	m := &fakeMem{}
	m.load(0, 0xDD, 0x7E, 0x05) // LD A,(IX+5)
	inst := Z80At(m, 0)
	if inst.Length != 3 {
		t.Fatalf("got %+v", inst)
	}
	if inst.Text != "LD A,(IX+5)" {
		t.Fatalf("got text %q", inst.Text)
	}
}
