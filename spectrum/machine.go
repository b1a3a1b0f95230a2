// Package spectrum wires the memory bank, I/O decoder, Z80 core, ULA
// beam, tape/beeper mixer and breakpoint set into a single machine
// driven one frame (or one instruction) at a time by Update. This is
// the top-level struct the reference core's Spectrum class plays,
// generalised from that class's SFML-owning constructor into a struct
// with no rendering or windowing dependency of its own.
package spectrum

import (
	"log"

	"github.com/gozx/spectrum48/breakpoint"
	"github.com/gozx/spectrum48/io"
	"github.com/gozx/spectrum48/irq"
	"github.com/gozx/spectrum48/memory"
	"github.com/gozx/spectrum48/tape"
	"github.com/gozx/spectrum48/video"
	"github.com/gozx/spectrum48/z80"
)

// frameTStates is the fixed per-frame T-state budget (spec.md §3).
const frameTStates = 69888

// Model enumerates the hardware variants this core can emulate. Only
// the 48K base machine is in scope; the type exists so a host has
// somewhere to select a model without the core inventing a paging
// switch it does not implement.
type Model int

// Model48K is the only supported model.
const Model48K Model = 0

// ula raises the maskable interrupt for the single Step call that
// follows each frame boundary, the way the reference core's
// frame-boundary interrupt request works; installed into the Z80 core
// via irq.Sender.
type ula struct {
	raised bool
}

func (u *ula) Raised() bool { return u.raised }

var _ irq.Sender = (*ula)(nil)

// Machine is the complete emulated 48K Spectrum: memory, I/O, CPU,
// video beam, beeper and breakpoint set, plus the small amount of
// state (run mode, frame counter, pause) that belongs to none of those
// packages individually.
type Machine struct {
	Model Model

	Mem *memory.Bank48
	IO  *io.Decoder
	CPU *z80.CPU

	Beam        *video.Beam
	Beeper      *tape.Beeper
	Breakpoints *breakpoint.Set

	ula *ula

	runMode      breakpoint.RunMode
	frameCounter uint8

	lastBorder uint8
}

// New returns a powered-on Machine with an empty breakpoint set, a
// silent tape mounted, and RunMode Stopped.
func New(sampleRate int) *Machine {
	mem := memory.NewBank48()
	iod := io.NewDecoder()
	cpu := z80.New(mem, iod)

	u := &ula{}
	cpu.Install(u)

	m := &Machine{
		Model:       Model48K,
		Mem:         mem,
		IO:          iod,
		CPU:         cpu,
		Beam:        video.NewBeam(mem),
		Beeper:      tape.NewBeeper(tape.NullTape{}, sampleRate),
		Breakpoints: breakpoint.NewSet(),
		ula:         u,
		runMode:     breakpoint.Stopped,
	}
	m.reset(true)
	return m
}

// reset performs either a hard reset (RAM cleared, I/O latches and CPU
// registers powered on, frame counter zeroed) or a soft reset (RAM and
// I/O latches left intact). Both then apply the CPU's RESET, zero the
// T-state counter and drop the interrupt line; the beeper and the beam
// are left as they are. The split lets a snapshot loader
// reset(hard=false) before materialising targeted state (spec.md §6).
func (m *Machine) reset(hard bool) {
	if hard {
		m.Mem.PowerOn()
		m.IO.PowerOn()
		m.CPU.PowerOn()
		m.frameCounter = 0
	}
	m.CPU.Reset()
	m.CPU.ResetTStates()
	m.ula.raised = false
	m.lastBorder = m.IO.BorderColour()
	m.Beam.SetBorder(m.lastBorder)
}

// Reset exposes reset to the host: hard clears RAM and I/O latches,
// soft only resets the CPU (spec.md §9 "runtime mode, not a type
// distinction" applies equally here — reset is one method, not two
// types).
func (m *Machine) Reset(hard bool) {
	m.reset(hard)
}

// SetRunMode changes how the next Update call proceeds. Changing mode
// while a StepOver is pending temporary breakpoint is in place is the
// host's responsibility to manage; Machine does not second-guess it.
func (m *Machine) SetRunMode(mode breakpoint.RunMode) {
	m.runMode = mode
}

// RunMode reports the current run mode.
func (m *Machine) RunMode() breakpoint.RunMode {
	return m.runMode
}

// TogglePause flips between Stopped and Normal without touching
// breakpoints, the convenience the reference core's togglePause offers
// a host debugger's pause button.
func (m *Machine) TogglePause() {
	if m.runMode == breakpoint.Stopped {
		m.runMode = breakpoint.Normal
	} else {
		m.runMode = breakpoint.Stopped
	}
}

// FrameCounter returns the free-running per-frame counter, useful to
// hosts for animation timing independent of the ULA's own flash-bit
// period.
func (m *Machine) FrameCounter() uint8 {
	return m.frameCounter
}

// SetKeyboardState replaces the 8 keyboard half-row bytes, active-low,
// pushed by the host before each frame.
func (m *Machine) SetKeyboardState(rows [8]uint8) {
	m.IO.SetKeyboardState(rows)
}

// SetKempstonEnabled toggles whether the Kempston joystick port
// responds at all.
func (m *Machine) SetKempstonEnabled(enabled bool) {
	m.IO.SetKempstonEnabled(enabled)
}

// SetKempstonState sets the joystick state byte.
func (m *Machine) SetKempstonState(state uint8) {
	m.IO.SetKempstonState(state)
}

// SetTape swaps the mounted tape, nil restoring silence.
func (m *Machine) SetTape(t tape.Tape) {
	m.Beeper.SetTape(t)
}

// Update runs the machine according to its current run mode until one
// of: a breakpoint hit, the frame's T-state budget is exhausted, or (in
// StepIn/StepOver) exactly one caller-visible instruction has run. It
// returns whether a frame completed and whether a breakpoint stopped
// execution, mirroring the reference core's update(RunMode,
// bool&breakpointHit) signature split into two named returns since Go
// has no reference out-parameters.
func (m *Machine) Update() (frameReady, breakpointHit bool) {
	if m.runMode == breakpoint.Stopped {
		return false, false
	}

	stepOnce := m.runMode == breakpoint.StepIn
	if m.runMode == breakpoint.StepOver {
		if _, armed := m.Breakpoints.PrepareStepOver(m.Mem, m.CPU.PC); armed {
			// Temporary breakpoint armed at the return address: behave
			// like Normal from here on (including across any Update call
			// that returns early at frame end before the breakpoint is
			// hit) so the next call doesn't re-arm against whatever
			// instruction PC has moved to in the meantime.
			m.runMode = breakpoint.Normal
		} else {
			// No fixed return address (e.g. RET, JP, a plain ALU op):
			// StepOver degrades to StepIn for this one instruction.
			stepOnce = true
		}
	}

	for {
		if m.Breakpoints.Check(m.CPU.PC) {
			m.runMode = breakpoint.Stopped
			breakpointHit = true
			return frameReady, breakpointHit
		}

		if err := m.CPU.Step(); err != nil {
			if _, halted := err.(z80.Halted); !halted {
				log.Printf("spectrum: cpu step error: %v", err)
			}
		}
		// The interrupt line is only asserted for the single Step call
		// immediately following frame completion, modelling the real
		// ULA's brief pulse rather than a level held for the whole
		// frame; a Step that finds IFF1 disabled at that instant misses
		// the interrupt until next frame, matching real hardware.
		m.ula.raised = false

		m.syncULA()

		if m.CPU.Tstates >= frameTStates {
			m.completeFrame()
			frameReady = true
		}

		if stepOnce {
			if m.runMode != breakpoint.Stopped {
				m.runMode = breakpoint.Stopped
			}
			return frameReady, breakpointHit
		}
		if frameReady {
			return frameReady, breakpointHit
		}
	}
}

// syncULA draws every T-state up to the CPU's current position under
// the border colour in effect when they were painted, then latches any
// new border colour and records the speaker level for beeper mixing.
// Called once per instruction, which is sufficient granularity since
// an OUT to the ULA port is the only way border/speaker state changes
// and it only ever changes atomically within a single Step call.
func (m *Machine) syncULA() {
	m.Beam.DrawUpTo(m.CPU.Tstates - 1)

	border := m.IO.BorderColour()
	if border != m.lastBorder {
		m.Beam.SetBorder(border)
		m.lastBorder = border
	}

	m.Beeper.RecordSpeaker(m.CPU.Tstates, m.IO.Speaker())
}

// completeFrame finishes the current frame: draws any remaining
// T-states, rewinds the T-state counter by exactly the frame length
// (not to zero, per spec.md §3), raises the interrupt for the CPU to
// accept on its next Step, and bumps the frame counter. Audio is left
// for the host to pull via RenderAudio; completeFrame only advances the
// tape's own clock so EAR sampling stays in step with T-states even if
// the host never asks for audio.
func (m *Machine) completeFrame() {
	m.Beam.DrawUpTo(frameTStates - 1)
	m.Beam.FrameReady()
	m.Beeper.Advance(frameTStates)
	m.CPU.Tstates -= frameTStates
	m.ula.raised = true
	m.frameCounter++
}

// RenderAudio mixes the completed frame's speaker/tape activity down to
// PCM and pushes it to sink, then clears the frame's recorded edges.
// The host calls this at most once per Update call that reports
// frameReady; skipping it on a silent frame is harmless beyond the
// small edge-list growth, since Step never fires between frames without
// an intervening Update call.
func (m *Machine) RenderAudio(sink tape.AudioSink) {
	m.Beeper.Render(frameTStates, sink)
}
