package z80

import "fmt"

// InvalidOpcode is returned by Step when a prefix/opcode combination
// reaches a decode path that cannot occur on real hardware (every byte
// value is in fact defined, if sometimes as a duplicate or a NOP-like
// fallthrough, so this indicates a bug in the decoder itself rather
// than an illegal instruction).
type InvalidOpcode struct {
	Prefix string
	Opcode uint8
	PC     uint16
}

func (e InvalidOpcode) Error() string {
	return fmt.Sprintf("z80: invalid opcode %s%#02x at PC=%#04x", e.Prefix, e.Opcode, e.PC)
}

// InvalidCPUState is returned when the register file or internal state
// reaches a combination Step cannot continue from (e.g. an IM value
// outside 0..2).
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("z80: invalid cpu state: %s", e.Reason)
}

// Halted is returned by Step to signal the processor executed (or is
// still sitting on) a HALT opcode; the caller is expected to keep
// calling Step — each call burns one NOP-equivalent of T-states — until
// an interrupt is accepted (spec.md §4.4).
type Halted struct {
	PC uint16
}

func (e Halted) Error() string {
	return fmt.Sprintf("z80: halted at PC=%#04x", e.PC)
}
