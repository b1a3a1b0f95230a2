// Package irq defines the interrupt contract between the ULA and the Z80
// core. The ULA raises a maskable interrupt once per completed frame; the
// Z80 polls it between instructions the way real hardware samples /INT.
// NOTE: the Z80 only has one maskable interrupt line (unlike the 6502's
// separate IRQ/NMI), so a single Sender/Receiver pair covers it.
package irq

// Sender is implemented by whatever raises the maskable interrupt line —
// on this machine, the ULA at frame end.
type Sender interface {
	// Raised indicates whether the interrupt line is currently held high.
	Raised() bool
}

// Receiver is implemented by the Z80 core: it installs a Sender once at
// wiring time and polls Raised() between instructions.
type Receiver interface {
	// Install takes the given sender and stores it for later polling.
	Install(s Sender)
}
