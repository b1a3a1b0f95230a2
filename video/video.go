// Package video implements the ULA's T-state-synchronous screen
// renderer: the mapping from T-state to screen-memory byte, the frame
// buffer, and the border/flash attribute effects.
package video

import (
	"image"
	"image/color"

	"github.com/gozx/spectrum48/memory"
)

const (
	// Frame geometry: one output pixel per T-state horizontally and one
	// output row per scanline vertically, the same "border either side
	// of the 256x192 pixel area" layout every 48K emulator uses, just
	// without doubling each T-state into 2 output pixels (spec.md §4.4
	// only requires the mapping be deterministic, not a particular
	// output resolution: "352x288 (or equivalent)").
	tstatesPerLine = 224
	linesPerFrame  = 312
	firstPixelLine = 64
	pixelLines     = 192
	leftBorderT    = 24
	pixelAreaT     = 128
	bytesPerRow    = 32

	FrameWidth  = tstatesPerLine
	FrameHeight = linesPerFrame

	screenBase = 0x4000
	attrBase   = 0x5800

	// flashPeriodFrames is the number of frames between FLASH attribute
	// toggles (spec.md §9's "flash attribute" supplement): 16 frames at
	// 50 Hz is the documented ~1.6 Hz Spectrum flash rate.
	flashPeriodFrames = 16
)

// spectrumPalette is the 8 base colours at normal brightness followed by
// the same 8 at full brightness, the standard ULA RGB mapping.
var spectrumPalette = [16]color.RGBA{
	{0, 0, 0, 255}, {0, 0, 0xCD, 255}, {0xCD, 0, 0, 255}, {0xCD, 0, 0xCD, 255},
	{0, 0xCD, 0, 255}, {0, 0xCD, 0xCD, 255}, {0xCD, 0xCD, 0, 255}, {0xCD, 0xCD, 0xCD, 255},
	{0, 0, 0, 255}, {0, 0, 0xFF, 255}, {0xFF, 0, 0, 255}, {0xFF, 0, 0xFF, 255},
	{0, 0xFF, 0, 255}, {0, 0xFF, 0xFF, 255}, {0xFF, 0xFF, 0, 255}, {0xFF, 0xFF, 0xFF, 255},
}

// slot describes what a given T-state within the frame draws: either
// pure border, or one of the 8 source pixels (and its attribute byte)
// of screen byte column/row.
type slot struct {
	border  bool
	col     int // byte column 0..31, valid when !border
	row     int // pixel row 0..191, valid when !border
	bit     int // which of the 8 source pixels this T-state shows
}

// Beam owns the frame buffer and the precomputed T-state->screen-byte
// table (the reference core's videoMap, spec.md §4.4), and walks
// forward through the frame via DrawUpTo the way the reference Go
// Spectrum core (other_examples/guntars-lemps-gospeccy) derives screen
// coordinates from a byte address, except here the beam is driven
// explicitly by T-state rather than by snooping every memory write.
type Beam struct {
	mem *memory.Bank48

	frame *image.RGBA

	videoMap []slot // indexed by T-state within the frame

	lastT  int64
	border uint8

	flashFrame uint32 // incremented once per completed frame
}

// NewBeam returns a Beam with a black frame buffer and border colour 0.
func NewBeam(mem *memory.Bank48) *Beam {
	b := &Beam{
		mem:   mem,
		frame: image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight)),
	}
	b.buildVideoMap()
	return b
}

func (b *Beam) buildVideoMap() {
	total := linesPerFrame * tstatesPerLine
	b.videoMap = make([]slot, total)
	for line := 0; line < linesPerFrame; line++ {
		row := line - firstPixelLine
		visibleRow := row >= 0 && row < pixelLines
		for col := 0; col < tstatesPerLine; col++ {
			t := line*tstatesPerLine + col
			if visibleRow && col >= leftBorderT && col < leftBorderT+pixelAreaT {
				offset := col - leftBorderT
				byteCol := offset / 4
				bit := (offset % 4) * 2
				b.videoMap[t] = slot{border: false, col: byteCol, row: row, bit: bit}
			} else {
				b.videoMap[t] = slot{border: true}
			}
		}
	}
}

// pixelAddr computes the non-linear screen byte address for byte column
// x (0..31) and pixel row y (0..191): the classic interleaved layout
// where the top 2 bits of y select the third of the screen, bits 3..5
// the character row within that third, and the low 3 bits the pixel
// line within the character cell.
func pixelAddr(x, y int) uint16 {
	return uint16(screenBase) |
		uint16(y&0xC0)<<5 |
		uint16(y&0x07)<<8 |
		uint16(y&0x38)<<2 |
		uint16(x)
}

func attrAddr(x, y int) uint16 {
	return uint16(attrBase) + uint16(y/8)*bytesPerRow + uint16(x)
}

// SetBorder latches the current border colour, read by DrawUpTo for any
// T-state painted after this call.
func (b *Beam) SetBorder(colour uint8) {
	b.border = colour & 0x07
}

// DrawUpTo paints every T-state strictly after the last drawn position
// up to and including t, matching spec.md §4.4: called before any state
// change that affects visible pixels, and once more at frame end.
func (b *Beam) DrawUpTo(t int64) {
	if t >= int64(len(b.videoMap)) {
		t = int64(len(b.videoMap)) - 1
	}
	for ; b.lastT <= t; b.lastT++ {
		b.drawOne(b.lastT)
	}
}

func (b *Beam) drawOne(t int64) {
	line := int(t) / tstatesPerLine
	col := int(t) % tstatesPerLine
	s := b.videoMap[t]

	if s.border {
		b.frame.SetRGBA(col, line, spectrumPalette[b.border])
		return
	}

	pAddr := pixelAddr(s.col, s.row)
	aAddr := attrAddr(s.col, s.row)
	pixels := b.mem.Peek(pAddr)
	attr := b.mem.Peek(aAddr)

	ink := attr & 0x07
	paper := (attr >> 3) & 0x07
	bright := (attr >> 6) & 0x01
	flash := attr&0x80 != 0

	if flash && (b.flashFrame/flashPeriodFrames)%2 == 1 {
		ink, paper = paper, ink
	}

	c := spectrumPalette[paper+bright*8]
	if pixels&(0x80>>uint(s.bit)) != 0 {
		c = spectrumPalette[ink+bright*8]
	}
	b.frame.SetRGBA(col, line, c)
}

// FrameReady is called once the frame's T-state budget is exhausted:
// advances the flash counter and rewinds lastT for the next frame.
func (b *Beam) FrameReady() {
	b.flashFrame++
	b.lastT = 0
}

// Frame returns the current frame buffer. The caller must not retain it
// across a FrameReady call if it wants a stable snapshot; copy first.
func (b *Beam) Frame() *image.RGBA {
	return b.frame
}
