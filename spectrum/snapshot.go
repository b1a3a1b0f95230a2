package spectrum

import (
	"github.com/pkg/errors"

	"github.com/gozx/spectrum48/breakpoint"
)

// SnapshotError is returned by LoadSnapshot when a Snapshot fails
// validation before being materialised into the machine. The field name
// lets a host report exactly which part of a malformed .sna/.z80/.nx
// file it loaded, without the core knowing anything about those wire
// formats (spec.md §6).
type SnapshotError struct {
	Field  string
	Reason string
}

func (e SnapshotError) Error() string {
	return "spectrum: invalid snapshot field " + e.Field + ": " + e.Reason
}

// Snapshot is the complete serialisable state of a Machine: every byte
// spec.md §6 names (all RAM, all CPU registers including IR/shadow/IX/
// IY/MEMPTR, IFF1/IFF2/IM/halted, T-state within frame, border colour,
// and the full breakpoint set). Parsing an on-disk format into a
// Snapshot, and vice versa, is a host concern; this type is the in-
// memory contract only.
type Snapshot struct {
	RAM []byte // exactly 64 KiB, RAM region only (0x4000..0xFFFF meaningful, ROM included for completeness)

	AF, BC, DE, HL     uint16
	AF2, BC2, DE2, HL2 uint16
	IX, IY             uint16
	SP, PC             uint16
	I, R               uint8
	MEMPTR             uint16

	IFF1, IFF2 bool
	IM         uint8
	Halted     bool

	TStates int64
	Border  uint8

	Breakpoints map[uint16]breakpoint.Kind
}

// Save captures the machine's complete current state into a Snapshot.
// The returned RAM slice is a fresh copy; mutating it afterwards has no
// effect on the machine.
func (m *Machine) Save() *Snapshot {
	ram := make([]byte, 0x10000)
	copy(ram, m.Mem.Data())

	r := &m.CPU.Registers
	return &Snapshot{
		RAM:         ram,
		AF:          r.AF,
		BC:          r.BC,
		DE:          r.DE,
		HL:          r.HL,
		AF2:         r.AF2,
		BC2:         r.BC2,
		DE2:         r.DE2,
		HL2:         r.HL2,
		IX:          r.IX,
		IY:          r.IY,
		SP:          r.SP,
		PC:          r.PC,
		I:           r.I,
		R:           r.R,
		MEMPTR:      r.MEMPTR,
		IFF1:        r.IFF1,
		IFF2:        r.IFF2,
		IM:          r.IM,
		Halted:      r.Halted,
		TStates:     m.CPU.Tstates,
		Border:      m.IO.BorderColour(),
		Breakpoints: m.Breakpoints.Entries(),
	}
}

// validate checks every field that can make materialisation unsafe:
// wrong-sized RAM, an IM value the CPU's interrupt dispatch cannot
// handle, anything else structurally required by spec.md §7's
// "snapshot materialisation errors" category. Register values
// themselves are never invalid (every uint16/uint8 value is a legal Z80
// register state), so only shape, not content, is checked here.
func (s *Snapshot) validate() error {
	if len(s.RAM) != 0x10000 {
		return SnapshotError{Field: "RAM", Reason: "must be exactly 65536 bytes"}
	}
	if s.IM > 2 {
		return SnapshotError{Field: "IM", Reason: "must be 0, 1 or 2"}
	}
	if s.Border > 7 {
		return SnapshotError{Field: "Border", Reason: "must be a 3-bit colour 0..7"}
	}
	return nil
}

// LoadSnapshot materialises snap into the machine: performs a soft
// reset, then targeted setters, exactly as spec.md §6 describes
// ("materialised through reset(hard=false) followed by targeted
// setters"). Validation runs first against snap alone, before any
// machine state is touched, so a bad snapshot leaves the machine
// exactly as it was (the "prior state preserved" choice recorded in
// this module's design notes) rather than partially applied.
func (m *Machine) LoadSnapshot(snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return errors.Wrap(err, "spectrum: snapshot rejected")
	}

	m.reset(false)

	m.Mem.Load(0, snap.RAM)

	r := &m.CPU.Registers
	r.AF, r.BC, r.DE, r.HL = snap.AF, snap.BC, snap.DE, snap.HL
	r.AF2, r.BC2, r.DE2, r.HL2 = snap.AF2, snap.BC2, snap.DE2, snap.HL2
	r.IX, r.IY = snap.IX, snap.IY
	r.SP, r.PC = snap.SP, snap.PC
	r.I, r.R = snap.I, snap.R
	r.MEMPTR = snap.MEMPTR
	r.IFF1, r.IFF2 = snap.IFF1, snap.IFF2
	r.IM = snap.IM
	r.Halted = snap.Halted

	m.CPU.Tstates = snap.TStates
	m.IO.Out(0x00FE, snap.Border, nil, new(int64))
	m.lastBorder = snap.Border
	m.Beam.SetBorder(snap.Border)

	m.Breakpoints.LoadEntries(snap.Breakpoints)

	return nil
}
