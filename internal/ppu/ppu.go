// Package ppu implements the Picture Processing Unit for the NES.
package ppu

// Timing constants
const (
	dotsPerScanline   = 341
	scanlinesPerFrame = 262
	vblankScanline    = 241
	preRenderLine     = 261
	visibleLines      = 240
)

// Bus is the PPU's view of its 14-bit address space
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	bus Bus

	// $2000 PPUCTRL
	flagNameTable       uint8 // 0-3
	flagIncrement       bool  // add 32 instead of 1
	flagSpriteTable     bool  // $1000 for 8x8 sprites
	flagBackgroundTable bool  // $1000 for background
	flagSpriteSize      bool  // 8x16 sprites
	flagMasterSlave     bool

	// $2001 PPUMASK
	flagGrayscale      bool
	flagShowLeftBack   bool
	flagShowLeftSprite bool
	flagShowBack       bool
	flagShowSprite     bool
	flagEmphasis       uint8 // 3 bits, RGB

	// $2002 PPUSTATUS
	flagSpriteZeroHit  bool
	flagSpriteOverflow bool

	// last value written to any register, returned in unused bits
	register uint8

	// Loopy registers
	v uint16 // Current VRAM address (15 bits)
	t uint16 // Temporary VRAM address (15 bits)
	x uint8  // Fine X scroll (3 bits)
	w bool   // Write toggle shared by $2005 and $2006

	readBuffer uint8

	// NMI edge detection
	nmiOutput   bool // PPUCTRL bit 7
	nmiOccurred bool // vblank
	nmiPrevious bool
	nmiDelay    uint8

	scanline int // 0-261
	dot      int // 0-340
	frame    uint64

	oamAddr uint8
	oam     [256]uint8

	// Per-scanline sprite scratch
	secondaryOAM  [32]uint8
	spriteCount   int
	spriteZero    bool // OAM sprite 0 occupies slot 0
	spriteLow     [8]uint8
	spriteHigh    [8]uint8
	spriteLatch   [8]uint8
	spriteCounter [8]uint8

	back  *Frame
	front *Frame

	nmiCallback           func()
	frameCompleteCallback func()
}

// New creates a PPU reading pattern, nametable and palette data through bus
func New(bus Bus) *PPU {
	p := &PPU{
		bus:   bus,
		back:  NewFrame(),
		front: NewFrame(),
	}
	p.Reset()
	return p
}

// Reset resets the PPU to its power-up state
func (p *PPU) Reset() {
	p.writeControl(0)
	p.writeMask(0)
	p.flagSpriteZeroHit = false
	p.flagSpriteOverflow = false
	p.register = 0
	p.v, p.t, p.x, p.w = 0, 0, 0, false
	p.readBuffer = 0
	p.nmiOccurred = false
	p.nmiPrevious = false
	p.nmiDelay = 0
	p.scanline, p.dot, p.frame = 0, 0, 0
	p.oamAddr = 0
	p.oam = [256]uint8{}
	p.clearSprites()
}

// SetNMICallback sets the function that signals NMI to the CPU
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback sets the function run when vblank starts
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// Position returns the current scanline and dot
func (p *PPU) Position() (scanline, dot int) {
	return p.scanline, p.dot
}

// FrameCount returns the number of completed frames
func (p *PPU) FrameCount() uint64 {
	return p.frame
}

// Frame returns the last completed frame
func (p *PPU) Frame() *Frame {
	return p.front
}

// VBlank reports whether the vblank status flag is set
func (p *PPU) VBlank() bool {
	return p.nmiOccurred
}

// OAM returns a copy of sprite memory
func (p *PPU) OAM() [256]uint8 {
	return p.oam
}

// NMIEnabled reports PPUCTRL bit 7
func (p *PPU) NMIEnabled() bool {
	return p.nmiOutput
}

// VRAMAddress returns the current VRAM address
func (p *PPU) VRAMAddress() uint16 {
	return p.v
}

// RenderingEnabled reports whether background or sprites are shown
func (p *PPU) RenderingEnabled() bool {
	return p.flagShowBack || p.flagShowSprite
}

// Tick advances the PPU by one dot
func (p *PPU) Tick() {
	if p.nmiDelay > 0 {
		p.nmiDelay--
		if p.nmiDelay == 0 && p.nmiOutput && p.nmiOccurred && p.nmiCallback != nil {
			p.nmiCallback()
		}
	}

	p.dot++
	if p.dot >= dotsPerScanline {
		p.dot = 0
		p.scanline++
		if p.scanline >= scanlinesPerFrame {
			p.scanline = 0
			p.frame++
		}
	}

	visibleLine := p.scanline < visibleLines
	preLine := p.scanline == preRenderLine

	if p.RenderingEnabled() {
		if visibleLine && p.dot == 257 {
			p.evaluateSprites()
			p.renderScanline()
			p.incrementY()
			p.copyX()
		}
		if preLine {
			if p.dot == 257 {
				p.copyX()
			}
			if p.dot >= 280 && p.dot <= 304 {
				p.copyY()
			}
		}
	} else if visibleLine && p.dot == 257 {
		p.clearSprites()
		p.renderBackdrop()
	}

	switch {
	case p.scanline == vblankScanline && p.dot == 1:
		p.setVerticalBlank()
	case preLine && p.dot == 1:
		p.clearVerticalBlank()
		p.flagSpriteZeroHit = false
		p.flagSpriteOverflow = false
	}
}

func (p *PPU) setVerticalBlank() {
	p.back, p.front = p.front, p.back
	p.nmiOccurred = true
	p.nmiChange()
	if p.frameCompleteCallback != nil {
		p.frameCompleteCallback()
	}
}

func (p *PPU) clearVerticalBlank() {
	p.nmiOccurred = false
	p.nmiChange()
}

// FlushNMI delivers an edge still waiting in the one-tick pipeline. The
// console calls it at the end of a step so the CPU sees the edge on its next
// step whichever dot raised it.
func (p *PPU) FlushNMI() {
	if p.nmiDelay == 0 {
		return
	}
	p.nmiDelay = 0
	if p.nmiOutput && p.nmiOccurred && p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// nmiChange schedules an NMI on a rising edge of nmiOutput && nmiOccurred
func (p *PPU) nmiChange() {
	nmi := p.nmiOutput && p.nmiOccurred
	if nmi && !p.nmiPrevious {
		p.nmiDelay = 1
	}
	p.nmiPrevious = nmi
}

// ReadRegister reads from a PPU register (CPU $2000-$2007)
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch 0x2000 + address%8 {
	case 0x2000:
		return p.readControl()
	case 0x2001:
		return p.readMask()
	case 0x2002:
		return p.readStatus()
	case 0x2003:
		return p.oamAddr
	case 0x2004:
		return p.oam[p.oamAddr]
	case 0x2007:
		return p.readData()
	}
	return p.register
}

// WriteRegister writes to a PPU register (CPU $2000-$2007)
func (p *PPU) WriteRegister(address uint16, value uint8) {
	p.register = value
	switch 0x2000 + address%8 {
	case 0x2000:
		p.writeControl(value)
	case 0x2001:
		p.writeMask(value)
	case 0x2003:
		p.oamAddr = value
	case 0x2004:
		p.WriteOAMData(value)
	case 0x2005:
		p.writeScroll(value)
	case 0x2006:
		p.writeAddress(value)
	case 0x2007:
		p.writeData(value)
	}
}

// WriteOAMData stores value at the OAM cursor and advances it
func (p *PPU) WriteOAMData(value uint8) {
	p.oam[p.oamAddr] = value
	p.oamAddr++
}

// $2000: PPUCTRL
func (p *PPU) writeControl(value uint8) {
	p.flagNameTable = value & 3
	p.flagIncrement = value&0x04 != 0
	p.flagSpriteTable = value&0x08 != 0
	p.flagBackgroundTable = value&0x10 != 0
	p.flagSpriteSize = value&0x20 != 0
	p.flagMasterSlave = value&0x40 != 0
	p.nmiOutput = value&0x80 != 0
	p.nmiChange()
	// t: ...GH.. ........ <- d: ......GH
	p.t = p.t&0xF3FF | uint16(value&0x03)<<10
}

func (p *PPU) readControl() uint8 {
	value := p.flagNameTable
	value |= bit(p.flagIncrement, 2)
	value |= bit(p.flagSpriteTable, 3)
	value |= bit(p.flagBackgroundTable, 4)
	value |= bit(p.flagSpriteSize, 5)
	value |= bit(p.flagMasterSlave, 6)
	value |= bit(p.nmiOutput, 7)
	return value
}

// $2001: PPUMASK
func (p *PPU) writeMask(value uint8) {
	p.flagGrayscale = value&0x01 != 0
	p.flagShowLeftBack = value&0x02 != 0
	p.flagShowLeftSprite = value&0x04 != 0
	p.flagShowBack = value&0x08 != 0
	p.flagShowSprite = value&0x10 != 0
	p.flagEmphasis = value >> 5
}

func (p *PPU) readMask() uint8 {
	value := bit(p.flagGrayscale, 0)
	value |= bit(p.flagShowLeftBack, 1)
	value |= bit(p.flagShowLeftSprite, 2)
	value |= bit(p.flagShowBack, 3)
	value |= bit(p.flagShowSprite, 4)
	value |= p.flagEmphasis << 5
	return value
}

// $2002: PPUSTATUS
func (p *PPU) readStatus() uint8 {
	value := p.register & 0x1F
	value |= bit(p.flagSpriteOverflow, 5)
	value |= bit(p.flagSpriteZeroHit, 6)
	value |= bit(p.nmiOccurred, 7)
	p.nmiOccurred = false
	p.nmiChange()
	p.w = false
	return value
}

// $2005: PPUSCROLL
func (p *PPU) writeScroll(value uint8) {
	if !p.w {
		// t: ........ ...HGFED <- d: HGFED...
		// x:               CBA <- d: .....CBA
		p.t = p.t&0xFFE0 | uint16(value)>>3
		p.x = value & 0x07
	} else {
		// t: .CBA..HG FED..... <- d: HGFEDCBA
		p.t = p.t&0x8FFF | uint16(value&0x07)<<12
		p.t = p.t&0xFC1F | uint16(value&0xF8)<<2
	}
	p.w = !p.w
}

// $2006: PPUADDR
func (p *PPU) writeAddress(value uint8) {
	if !p.w {
		// t: ..FEDCBA ........ <- d: ..FEDCBA, bit 14 cleared
		p.t = p.t&0x80FF | uint16(value&0x3F)<<8
	} else {
		p.t = p.t&0xFF00 | uint16(value)
		p.v = p.t
	}
	p.w = !p.w
}

// $2007: PPUDATA
func (p *PPU) readData() uint8 {
	value := p.bus.Read(p.v)
	if p.v%0x4000 < 0x3F00 {
		value, p.readBuffer = p.readBuffer, value
	} else {
		// palette reads bypass the buffer, which picks up the nametable underneath
		p.readBuffer = p.bus.Read(p.v - 0x1000)
	}
	p.incrementAddress()
	return value
}

func (p *PPU) writeData(value uint8) {
	p.bus.Write(p.v, value)
	p.incrementAddress()
}

func (p *PPU) incrementAddress() {
	if p.flagIncrement {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}

func bit(set bool, n uint) uint8 {
	if set {
		return 1 << n
	}
	return 0
}
