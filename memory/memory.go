// Package memory implements the 48K ZX Spectrum memory map: a flat 64 KiB
// address space with a write-protected ROM region and a T-state-indexed
// contention table that models the ULA stealing bus cycles from the CPU
// while it is fetching pixel data for the current scanline.
package memory

// Bank is the interface the Z80 core and the ULA use to access memory.
// It deliberately says nothing about contention or timing; that is the
// job of Bank48 below. A future non-48K model could implement Bank with
// a different backing store (e.g. paged RAM) without touching the CPU.
type Bank interface {
	// Peek returns the byte at addr with no timing effect.
	Peek(addr uint16) uint8
	// Poke writes value at addr with no timing effect, subject to the
	// same ROM write-protection rules as PokeTimed.
	Poke(addr uint16, value uint8)
	// PowerOn resets the bank to its post-power-on state. Does not
	// touch ROM contents, only RAM.
	PowerOn()
}

const (
	// romEnd is the first address not covered by ROM.
	romEnd = 0x4000

	// contentionStart is the T-state at which the first contended
	// scanline begins (spec.md table in §3).
	contentionStart = 14335
	// visibleLines is the number of contended (pixel) scanlines per frame.
	visibleLines = 192
	// lineLength is the number of T-states per scanline.
	lineLength = 224
	// contentionTableSize is the number of T-states the contention
	// table must cover; reads past this index are a core bug (spec.md §7).
	contentionTableSize = 70930
)

// Bank48 is the 64 KiB RAM/ROM implementation used by the 48K machine.
type Bank48 struct {
	data [0x10000]byte

	// romWritable gates the ROM write-protection path. Runtime mode,
	// not a type distinction (spec.md §9): snapshot loaders flip this on
	// briefly to materialise ROM contents, then flip it back off.
	romWritable bool

	// contention[t] is the number of extra T-states a contended access
	// costs at T-state t. Built once in NewBank48 and never mutated.
	contention [contentionTableSize]uint8
}

// NewBank48 returns a powered-on 64 KiB bank with the contention table
// precomputed.
func NewBank48() *Bank48 {
	b := &Bank48{}
	b.buildContentionTable()
	return b
}

func (b *Bank48) buildContentionTable() {
	pattern := [8]uint8{6, 5, 4, 3, 2, 1, 0, 0}
	t := contentionStart
	end := contentionStart + visibleLines*lineLength
	for t < end {
		// First 128 T-states of the line are the repeating 8-entry
		// pattern; the remaining 96 (border + retrace) stay zero.
		for pixelT := 0; pixelT < 128; pixelT += len(pattern) {
			for i, v := range pattern {
				b.contention[t+pixelT+i] = v
			}
		}
		t += lineLength
	}
}

// PowerOn fills RAM with a value (real hardware powers on with
// unpredictable, not necessarily zero, RAM contents); zero is used here
// since a deterministic start state is required for snapshot round-trips
// and scenario tests (spec.md §8).
func (b *Bank48) PowerOn() {
	for i := romEnd; i < len(b.data); i++ {
		b.data[i] = 0
	}
}

// SetROMWritable toggles ROM write protection. Used transiently by
// snapshot loaders to materialise ROM contents (spec.md §9).
func (b *Bank48) SetROMWritable(writable bool) {
	b.romWritable = writable
}

// ROMWritable reports the current ROM write-protection mode.
func (b *Bank48) ROMWritable() bool {
	return b.romWritable
}

func (b *Bank48) writable(addr uint16) bool {
	return addr >= romEnd || b.romWritable
}

// Peek is a pure read with no timing effect.
func (b *Bank48) Peek(addr uint16) uint8 {
	return b.data[addr]
}

// Poke is a pure write with no timing effect, still subject to ROM
// write-protection.
func (b *Bank48) Poke(addr uint16, value uint8) {
	if b.writable(addr) {
		b.data[addr] = value
	}
}

// isContended reports whether addr lies in the bank's contended slot:
// bits 15..14 == 01, i.e. 0x4000-0x7FFF.
func isContended(addr uint16) bool {
	return addr&0xC000 == 0x4000
}

// Contend adds contention to *t for a single access to addr: if addr is
// contended, (table[t]+delay) is added n times, each addition re-reading
// the table at the new t; otherwise delay*n is added unconditionally.
func (b *Bank48) Contend(addr uint16, delay int64, n int, t *int64) {
	if isContended(addr) {
		for i := 0; i < n; i++ {
			*t += int64(b.contentionAt(*t)) + delay
		}
		return
	}
	*t += delay * int64(n)
}

// contentionAt returns the contention table entry for T-state t. Per
// spec.md §7 the CPU must never issue a contended access past the frame;
// an out-of-range index is a fatal assertion, surfaced here as a panic
// since it indicates a core bug rather than a recoverable condition.
func (b *Bank48) contentionAt(t int64) uint8 {
	if t < 0 || t >= contentionTableSize {
		panic("memory: contention table index out of range: core bug")
	}
	return b.contention[t]
}

// PeekTimed applies 3 T-states of possibly-contended access then reads addr.
func (b *Bank48) PeekTimed(addr uint16, t *int64) uint8 {
	b.Contend(addr, 3, 1, t)
	return b.data[addr]
}

// Peek16Timed reads a little-endian 16-bit value via two PeekTimed calls.
func (b *Bank48) Peek16Timed(addr uint16, t *int64) uint16 {
	lo := b.PeekTimed(addr, t)
	hi := b.PeekTimed(addr+1, t)
	return uint16(lo) | uint16(hi)<<8
}

// PokeTimed applies 3 contended T-states then writes value to addr,
// subject to ROM write-protection.
func (b *Bank48) PokeTimed(addr uint16, value uint8, t *int64) {
	b.Contend(addr, 3, 1, t)
	if b.writable(addr) {
		b.data[addr] = value
	}
}

// Poke16Timed writes a little-endian 16-bit value, low byte first.
func (b *Bank48) Poke16Timed(addr uint16, value uint16, t *int64) {
	b.PokeTimed(addr, uint8(value), t)
	b.PokeTimed(addr+1, uint8(value>>8), t)
}

// Load bulk-copies bytes into memory starting at addr, bypassing ROM
// write protection. Clamps at 0xFFFF so callers cannot overrun the bank.
func (b *Bank48) Load(addr uint16, bytes []byte) {
	n := len(bytes)
	if int(addr)+n > 0x10000 {
		n = 0x10000 - int(addr)
	}
	copy(b.data[addr:int(addr)+n], bytes[:n])
}

// Data returns the full 64 KiB backing array for snapshotting. Callers
// must not retain the slice across calls that might replace the bank.
func (b *Bank48) Data() []byte {
	return b.data[:]
}

var _ Bank = (*Bank48)(nil)
