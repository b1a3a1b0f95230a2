package io

import (
	"testing"

	"github.com/gozx/spectrum48/memory"
)

func TestBorderWrite(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64
	d.Out(0xFE, 0x17, mem, &tstate) // border 7, speaker bit 4 set
	if got := d.BorderColour(); got != 7 {
		t.Errorf("BorderColour() = %d, want 7", got)
	}
	if !d.Speaker() {
		t.Errorf("Speaker() = false, want true (bit 4 set)")
	}
}

func TestKeyboardReadAllReleased(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64
	got := d.In(0xFEFE, mem, &tstate)
	if got&0x1F != 0x1F {
		t.Errorf("In(0xFEFE) low 5 bits = %#02x, want all released (0x1F)", got&0x1F)
	}
}

func TestKeyboardRowPressed(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	// Row 0 (0xFE high byte 0xFE -> bit0 clear) with bit 0 held (CAPS SHIFT on row 0).
	d.SetKeyboardRow(0, 0xFE)
	var tstate int64
	got := d.In(0xFEFE, mem, &tstate)
	if got&0x01 != 0 {
		t.Errorf("In with row 0 pressed: bit0 = %d, want 0", got&0x01)
	}
}

func TestKempstonDisabledByDefault(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	d.SetKempstonState(0x10)
	var tstate int64
	got := d.In(0x1F, mem, &tstate)
	if got != 0xFF {
		t.Errorf("Kempston port read while disabled = %#02x, want 0xFF (falls through to ULA-less float)", got)
	}
}

func TestKempstonEnabled(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	d.SetKempstonEnabled(true)
	d.SetKempstonState(0x10)
	var tstate int64
	got := d.In(0x1F, mem, &tstate)
	if got != 0x10 {
		t.Errorf("Kempston port read = %#02x, want 0x10", got)
	}
}

func TestIOContentionUncontendedLowBitZero(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64
	d.In(0xFE, mem, &tstate) // port 0x00FE, uncontended, low bit 0
	if tstate != 4 {
		t.Errorf("t-state after uncontended/low-bit-0 IN = %d, want 4", tstate)
	}
}

func TestIOContentionUncontendedLowBitOne(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64
	d.In(0x1F, mem, &tstate) // uncontended, low bit 1
	if tstate != 4 {
		t.Errorf("t-state after uncontended/low-bit-1 IN = %d, want 4", tstate)
	}
}

func TestIOContentionContendedLowBitZero(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64 = 14335
	d.Out(0x40FE, 0, mem, &tstate) // port in contended slot 0x4000-0x7FFF, low bit 0
	// C:1 (table[14335]=6, +1 = 7, t -> 14342) then C:3 (table[14342]=0, +3, t -> 14345).
	if want := int64(14345); tstate != want {
		t.Errorf("t-state after contended/low-bit-0 OUT = %d, want %d", tstate, want)
	}
}

func TestIOContentionContendedLowBitOne(t *testing.T) {
	d := NewDecoder()
	mem := memory.NewBank48()
	var tstate int64 = 14335
	d.Out(0x40FF, 0, mem, &tstate) // port in contended slot, low bit 1
	// Four chained C:1 steps, each re-reading the table at the T-state
	// the previous step landed on: 14335(+6+1)->14342(+0+1)->14343(+6+1)->14350(+0+1)->14351.
	if want := int64(14351); tstate != want {
		t.Errorf("t-state after contended/low-bit-1 OUT = %d, want %d", tstate, want)
	}
}
