// Package breakpoint implements the core's breakpoint set and run-mode
// stepping helper: a set of addresses the machine checks before every
// instruction, and the Stopped/Normal/StepIn/StepOver state machine a
// host debugger drives. Grounded on the reference breakpoint list
// (`breakpoints`/`find`) generalised from a linear active-flag slice to
// a map keyed by address, since lookups happen once per instruction and
// a map avoids the reference's documented "fine for small N" scan.
package breakpoint

import "github.com/gozx/spectrum48/disassemble"

// Kind distinguishes a breakpoint a user placed from one the core
// placed itself to implement StepOver.
type Kind int

const (
	// User breakpoints persist until explicitly removed.
	User Kind = iota
	// Temporary breakpoints self-remove the instant they are hit.
	Temporary
)

// RunMode selects how the host wants the core to proceed on its next
// Update call.
type RunMode int

const (
	// Stopped means Update must not execute any instructions.
	Stopped RunMode = iota
	// Normal runs until a breakpoint hits or the frame's T-state budget
	// is exhausted.
	Normal
	// StepIn executes exactly one instruction then stops.
	StepIn
	// StepOver executes past the instruction at PC, installing a
	// Temporary breakpoint at its return address first if it has one.
	StepOver
)

// Set is the breakpoint table keyed by address.
type Set struct {
	entries map[uint16]Kind
}

// NewSet returns an empty breakpoint set.
func NewSet() *Set {
	return &Set{entries: make(map[uint16]Kind)}
}

// Add installs a breakpoint of the given kind at addr, replacing any
// existing entry there.
func (s *Set) Add(addr uint16, kind Kind) {
	s.entries[addr] = kind
}

// Remove deletes any breakpoint at addr. A no-op if none is set.
func (s *Set) Remove(addr uint16) {
	delete(s.entries, addr)
}

// Toggle adds a User breakpoint at addr if none exists there, or removes
// whatever is there if one does.
func (s *Set) Toggle(addr uint16) {
	if _, ok := s.entries[addr]; ok {
		s.Remove(addr)
		return
	}
	s.Add(addr, User)
}

// Check reports whether addr has a breakpoint and, if so, removes it
// when it was Temporary. Call this once per instruction boundary before
// dispatch.
func (s *Set) Check(addr uint16) bool {
	kind, ok := s.entries[addr]
	if !ok {
		return false
	}
	if kind == Temporary {
		delete(s.entries, addr)
	}
	return true
}

// List returns every breakpoint address currently set, User and
// Temporary alike, for host-side display.
func (s *Set) List() []uint16 {
	out := make([]uint16, 0, len(s.entries))
	for addr := range s.entries {
		out = append(out, addr)
	}
	return out
}

// Entries returns a copy of the full address->kind table, for snapshot
// export.
func (s *Set) Entries() map[uint16]Kind {
	out := make(map[uint16]Kind, len(s.entries))
	for addr, kind := range s.entries {
		out[addr] = kind
	}
	return out
}

// LoadEntries replaces the entire table with a copy of entries, for
// snapshot import.
func (s *Set) LoadEntries(entries map[uint16]Kind) {
	s.entries = make(map[uint16]Kind, len(entries))
	for addr, kind := range entries {
		s.entries[addr] = kind
	}
}

// PrepareStepOver inspects the instruction at pc and, if it has a fixed
// return address (anything other than an unconditional jump or a
// instruction that doesn't alter flow at all, which needs no help — this
// only needs to act on CALL/RST/DJNZ/LDIR-class instructions with a
// loop or call body that might not return to pc+len on the first pass),
// installs a Temporary breakpoint there. Returns the address it armed,
// or false if the instruction at pc has no interesting return point (the
// caller should fall back to StepIn behaviour for that case).
func (s *Set) PrepareStepOver(mem disassemble.Memory, pc uint16) (uint16, bool) {
	inst := disassemble.Z80At(mem, pc)
	if !inst.HasFixedReturn {
		return 0, false
	}
	returnAddr := pc + uint16(inst.Length)
	s.Add(returnAddr, Temporary)
	return returnAddr, true
}
