// Package cartridge implements the cartridge store, iNES loading and the
// UxROM bank-switching mapper.
package cartridge

const (
	prgBankSize = 0x4000
	chrBankSize = 0x2000
	sramSize    = 0x2000
)

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreenLow
	MirrorSingleScreenHigh
	MirrorFourScreen
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleScreenLow:
		return "single-screen low"
	case MirrorSingleScreenHigh:
		return "single-screen high"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return "unknown"
	}
}

// Cartridge holds the PRG/CHR buffers, battery-backed SRAM and the header
// fields the rest of the console needs.
type Cartridge struct {
	prg  []uint8
	chr  []uint8
	sram [sramSize]uint8

	mapperID   uint8
	mirror     MirrorMode
	hasBattery bool
	hasCHRRAM  bool
}

// New creates a cartridge from raw buffers. An empty chr allocates 8 KiB of
// zero-filled CHR RAM.
func New(prg, chr []uint8, mapperID uint8, mirror MirrorMode, battery bool) *Cartridge {
	cart := &Cartridge{
		prg:        prg,
		chr:        chr,
		mapperID:   mapperID,
		mirror:     mirror,
		hasBattery: battery,
	}
	if len(chr) == 0 {
		cart.chr = make([]uint8, chrBankSize)
		cart.hasCHRRAM = true
	}
	return cart
}

// ReadPRG returns the PRG byte at offset, or 0 outside the buffer
func (c *Cartridge) ReadPRG(offset int) uint8 {
	if offset < 0 || offset >= len(c.prg) {
		return 0
	}
	return c.prg[offset]
}

// ReadCHR returns the CHR byte at offset, or 0 outside the buffer
func (c *Cartridge) ReadCHR(offset int) uint8 {
	if offset < 0 || offset >= len(c.chr) {
		return 0
	}
	return c.chr[offset]
}

// WriteCHR stores value at offset; writes outside the buffer are dropped
func (c *Cartridge) WriteCHR(offset int, value uint8) {
	if offset < 0 || offset >= len(c.chr) {
		return
	}
	c.chr[offset] = value
}

// ReadSRAM returns the SRAM byte at offset
func (c *Cartridge) ReadSRAM(offset int) uint8 {
	if offset < 0 || offset >= sramSize {
		return 0
	}
	return c.sram[offset]
}

// WriteSRAM stores value at offset
func (c *Cartridge) WriteSRAM(offset int, value uint8) {
	if offset < 0 || offset >= sramSize {
		return
	}
	c.sram[offset] = value
}

// SRAM returns a copy of the battery-backed RAM for persistence
func (c *Cartridge) SRAM() []uint8 {
	out := make([]uint8, sramSize)
	copy(out, c.sram[:])
	return out
}

// LoadSRAM restores battery-backed RAM; short input leaves the tail untouched
func (c *Cartridge) LoadSRAM(data []uint8) {
	copy(c.sram[:], data)
}

// PRGSize returns the PRG buffer length in bytes
func (c *Cartridge) PRGSize() int { return len(c.prg) }

// CHRSize returns the CHR buffer length in bytes
func (c *Cartridge) CHRSize() int { return len(c.chr) }

// MapperID returns the mapper number declared by the header
func (c *Cartridge) MapperID() uint8 { return c.mapperID }

// Mirror returns the nametable mirroring mode
func (c *Cartridge) Mirror() MirrorMode { return c.mirror }

// HasBattery reports whether SRAM should be persisted
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// HasCHRRAM reports whether CHR was allocated as RAM
func (c *Cartridge) HasCHRRAM() bool { return c.hasCHRRAM }
