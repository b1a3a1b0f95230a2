// Package tape implements the tape contract and the speaker/EAR mixing
// tap the core exposes to a host-supplied audio sink. Tape file formats
// (.tap, .tzx, .wav) are a host concern; this package only defines the
// per-T-state sampling contract and the PCM mixer that rides on top of
// it, the way the reference cassette controller samples its input level
// every T-state rather than parsing a wire format itself.
package tape

const tstatesPerSecond = 3500000

// Tape is the contract a mounted tape implements: a per-T-state EAR bit
// query and an advance call so the tape can move its read head forward
// by the T-states the core just executed.
type Tape interface {
	// EarAt returns the EAR bit level (0 or 0x40) at T-state t within
	// the tape's own running clock.
	EarAt(t int64) uint8
	// Advance moves the tape's read head forward by deltaT T-states,
	// called once per frame through Beeper.Advance.
	Advance(deltaT int64)
}

// NullTape is mounted when no tape is present: EAR always reads low and
// Advance is a no-op, matching real hardware with nothing plugged in.
type NullTape struct{}

func (NullTape) EarAt(t int64) uint8  { return 0 }
func (NullTape) Advance(deltaT int64) {}

var _ Tape = NullTape{}

// AudioSink is the host-owned destination for mixed PCM samples, one
// call per rendered frame.
type AudioSink interface {
	PushSamples(samples []int16)
}

// speakerEdge records a speaker-bit transition at a given T-state, as
// reported through RecordSpeaker.
type speakerEdge struct {
	t     int64
	level bool
}

// Beeper mixes the speaker latch and the mounted tape's EAR level into a
// single PCM stream, downsampled from the 3.5 MHz T-state clock to the
// host's audio sample rate. Grounded on the reference cassette
// controller's event-driven level tracking (cc.flipFlop/transition)
// rather than that controller's own WAV-reading concerns, which belong
// to the host per this module's tape-format boundary.
type Beeper struct {
	tape       Tape
	sampleRate int

	edges       []speakerEdge
	lastLevel   bool
	sampleAccum float64 // fractional T-states carried across frames
}

// NewBeeper returns a Beeper that mixes tape against the given host
// audio sample rate (e.g. 44100).
func NewBeeper(tape Tape, sampleRate int) *Beeper {
	if tape == nil {
		tape = NullTape{}
	}
	return &Beeper{tape: tape, sampleRate: sampleRate}
}

// Advance moves the mounted tape's read head forward by deltaT
// T-states, called once per completed frame by the machine.
func (b *Beeper) Advance(deltaT int64) {
	b.tape.Advance(deltaT)
}

// SetTape swaps the mounted tape, used when the host ejects/inserts a
// tape between frames.
func (b *Beeper) SetTape(tape Tape) {
	if tape == nil {
		tape = NullTape{}
	}
	b.tape = tape
}

// RecordSpeaker latches a speaker-bit transition at T-state t within the
// current frame; a level equal to the last one recorded is ignored. The
// machine calls this after every instruction with the current speaker bit.
func (b *Beeper) RecordSpeaker(t int64, level bool) {
	if level == b.lastLevel {
		return
	}
	b.edges = append(b.edges, speakerEdge{t: t, level: level})
	b.lastLevel = level
}

// speakerAt returns the speaker level in effect at T-state t, by
// scanning the edges recorded so far this frame (there are rarely more
// than a handful per frame, so a linear scan mirrors the reference
// controller's own small-event-count assumption).
func (b *Beeper) speakerAt(t int64) bool {
	level := false
	for _, e := range b.edges {
		if e.t > t {
			break
		}
		level = e.level
	}
	return level
}

// Render mixes the frame's speaker/EAR levels down to frameTstates worth
// of PCM samples at the configured sample rate and pushes them to sink,
// then clears the frame's recorded edges ready for the next one.
func (b *Beeper) Render(frameTstates int64, sink AudioSink) {
	if sink == nil {
		b.edges = b.edges[:0]
		return
	}

	tstatesPerSample := float64(tstatesPerSecond) / float64(b.sampleRate)

	var samples []int16
	pos := b.sampleAccum
	for pos < float64(frameTstates) {
		t := int64(pos)
		samples = append(samples, mixLevel(b.speakerAt(t), b.tape.EarAt(t)))
		pos += tstatesPerSample
	}
	b.sampleAccum = pos - float64(frameTstates)

	sink.PushSamples(samples)
	b.edges = b.edges[:0]
}

// mixLevel combines the speaker and EAR bits into a signed 16-bit sample:
// both silent is zero; either alone is a half-scale pulse; both together
// is full scale (clamped to the int16 maximum), the simple additive mix
// real beepers perform with two resistor-summed digital lines.
func mixLevel(speaker bool, ear uint8) int16 {
	var level int32
	if speaker {
		level += 0x4000
	}
	if ear != 0 {
		level += 0x4000
	}
	if level > 0x7FFF {
		level = 0x7FFF
	}
	return int16(level)
}
