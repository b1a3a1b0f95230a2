// Package io implements the ZX Spectrum 48K I/O port decoder: the ULA
// port (0xFE) that carries keyboard/border/MIC/speaker, and the Kempston
// joystick port (0x1F and its aliases). Decoding is by bit pattern on the
// 16-bit port address, not a full-address lookup, matching the real
// hardware's partial decoding.
package io

import "github.com/gozx/spectrum48/memory"

// Port8 is an 8-bit input latch, the same shape the rest of the pack uses
// for simple bidirectional I/O ports.
type Port8 interface {
	// Input returns the current value presented on the port.
	Input() uint8
}

const (
	// borderMask covers the 3 border-colour bits written to port 0xFE.
	borderMask = 0x07
	micBit     = 0x08
	speakerBit = 0x10
)

// Decoder owns the ULA and Kempston port state: border colour, the MIC/
// speaker latch, the 8-row active-low keyboard matrix, and the optional
// Kempston joystick byte.
type Decoder struct {
	border   uint8
	mic      bool
	speaker  bool
	keyboard [8]uint8 // active-low: 0 bit means pressed

	kempstonEnabled bool
	kempstonState   uint8 // bits: right,left,down,up,fire (bit0..bit4)

	// ear is the tape EAR bit level last set through SetEar; folded into
	// ULA reads on bit 6. Nothing in this module calls SetEar (the
	// spectrum package's Machine does not feed the mounted tape's level
	// in), so ULA reads see EAR low unless the host sets it.
	ear uint8
}

// NewDecoder returns a Decoder with keyboard rows all-released (0xFF,
// since active-low) and Kempston disabled.
func NewDecoder() *Decoder {
	d := &Decoder{}
	d.PowerOn()
	return d
}

// PowerOn resets keyboard state to all-released and clears border/mic/
// speaker/Kempston latches.
func (d *Decoder) PowerOn() {
	for i := range d.keyboard {
		d.keyboard[i] = 0xFF
	}
	d.border = 0
	d.mic = false
	d.speaker = false
	d.kempstonState = 0
	d.ear = 0
}

// SetKeyboardRow sets the active-low byte for half-row idx (0..7).
func (d *Decoder) SetKeyboardRow(idx int, value uint8) {
	d.keyboard[idx] = value
}

// SetKeyboardState replaces all 8 half-row bytes at once, as pushed by
// the host before each frame (spec.md §6).
func (d *Decoder) SetKeyboardState(rows [8]uint8) {
	d.keyboard = rows
}

// SetEar sets the tape EAR bit level (0 or non-zero) sampled for the
// current T-state; folded into ULA reads on bit 6.
func (d *Decoder) SetEar(level uint8) {
	d.ear = level
}

// SetKempstonEnabled toggles whether the decoder answers the Kempston
// port pattern. original_source/ shows Kempston as an optional
// peripheral; defaults to disabled until a host opts in.
func (d *Decoder) SetKempstonEnabled(enabled bool) {
	d.kempstonEnabled = enabled
}

// SetKempstonState sets the joystick state byte (bits: right, left,
// down, up, fire).
func (d *Decoder) SetKempstonState(state uint8) {
	d.kempstonState = state
}

// BorderColour returns the 3-bit border colour last latched by a write
// to port 0xFE.
func (d *Decoder) BorderColour() uint8 {
	return d.border
}

// Speaker reports the current state of the speaker bit (port 0xFE bit 4).
func (d *Decoder) Speaker() bool {
	return d.speaker
}

// Mic reports the current state of the MIC bit (port 0xFE bit 3).
func (d *Decoder) Mic() bool {
	return d.mic
}

// isULAPort reports whether the low bit of port selects the ULA.
func isULAPort(port uint16) bool {
	return port&0x01 == 0
}

// isKempstonPort reports whether port matches the Kempston bit pattern:
// bits 7..5 = 000 and bit 0 = 1.
func isKempstonPort(port uint16) bool {
	return port&0xE0 == 0 && port&0x01 == 1
}

// In reads a byte from the decoded port, applying the I/O contention
// pattern to *t along the way (spec.md §4.2).
func (d *Decoder) In(port uint16, mem *memory.Bank48, t *int64) uint8 {
	d.contend(port, mem, t)

	switch {
	case d.kempstonEnabled && isKempstonPort(port):
		return d.kempstonState
	case isULAPort(port):
		return d.readULA(port)
	default:
		// Unmapped/floating port: real hardware returns the floating
		// bus value, explicitly out of scope (spec.md §1). 0xFF is the
		// conventional "nothing pulls this line low" answer.
		return 0xFF
	}
}

// readULA computes the keyboard-matrix response for a ULA port read:
// the high byte of port selects half rows (a zero bit enables that row),
// the result is the bitwise AND of the enabled rows with bits 5 and 7
// forced and bit 6 carrying the tape EAR level.
func (d *Decoder) readULA(port uint16) uint8 {
	hi := uint8(port >> 8)
	result := uint8(0xFF)
	for row := 0; row < 8; row++ {
		if hi&(1<<uint(row)) == 0 {
			result &= d.keyboard[row]
		}
	}
	result |= 0x80 | 0x20
	if d.ear != 0 {
		result |= 0x40
	} else {
		result &^= 0x40
	}
	return result
}

// Out writes value to the decoded port, applying the I/O contention
// pattern to *t along the way.
func (d *Decoder) Out(port uint16, value uint8, mem *memory.Bank48, t *int64) {
	d.contend(port, mem, t)

	if isULAPort(port) {
		d.border = value & borderMask
		d.mic = value&micBit != 0
		d.speaker = value&speakerBit != 0
	}
	// Kempston and other peripherals are read-only on this model; writes
	// to unmapped ports are simply absorbed (matches real float-bus
	// hardware with no write-side effect to emulate).
}

// contend implements the I/O contention rule from spec.md §4.2. Every
// IN/OUT bus cycle costs a flat 4 T-states when the port doesn't lie in
// a contended page (N:1 plus C:3 for a ULA port, N:4 for any other port
// — both degenerate to a flat add since there's no contention to apply).
// A contended page instead spends those same T-states watching the
// contention table: a ULA port (address bit 0 clear) staggers them as
// C:1 then C:3, anything else as C:1 four times over.
func (d *Decoder) contend(port uint16, mem *memory.Bank48, t *int64) {
	if mem == nil || !portContended(port) {
		*t += 4
		return
	}
	if port&0x01 == 0 {
		mem.Contend(port, 1, 1, t)
		mem.Contend(port, 3, 1, t)
		return
	}
	mem.Contend(port, 1, 4, t)
}

// portContended mirrors memory's contended-slot predicate for the
// 16-bit port address (the ULA watches the same A15/A14 bits for I/O
// contention as it does for memory contention).
func portContended(port uint16) bool {
	return port&0xC000 == 0x4000
}
