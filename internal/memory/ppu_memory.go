package memory

import "nescore/internal/cartridge"

// mirrorLookup maps each logical 1 KiB nametable to a physical bank, per mode
var mirrorLookup = [5][4]uint16{
	cartridge.MirrorHorizontal:       {0, 0, 1, 1},
	cartridge.MirrorVertical:         {0, 1, 0, 1},
	cartridge.MirrorSingleScreenLow:  {0, 0, 0, 0},
	cartridge.MirrorSingleScreenHigh: {1, 1, 1, 1},
	cartridge.MirrorFourScreen:       {0, 1, 2, 3},
}

// MirrorAddress folds a $2000-$3EFF address onto the banks used by mode
func MirrorAddress(mode cartridge.MirrorMode, address uint16) uint16 {
	address = (address - 0x2000) % 0x1000
	table := address / 0x0400
	offset := address % 0x0400
	return 0x2000 + mirrorLookup[mode][table]*0x0400 + offset
}

// PaletteIndex applies the palette mirror: entries 16/20/24/28 alias 0/4/8/12
func PaletteIndex(address uint16) uint16 {
	address %= 32
	if address >= 16 && address%4 == 0 {
		address -= 16
	}
	return address
}

// PPUBus represents the PPU's 14-bit address space
type PPUBus struct {
	nametables []uint8
	palette    [32]uint8
	mapper     Mapper
	mirror     cartridge.MirrorMode
}

// NewPPUBus creates a PPU bus. Four-screen carts get 4 KiB of nametable RAM.
func NewPPUBus(mapper Mapper, mirror cartridge.MirrorMode) *PPUBus {
	size := 0x0800
	if mirror == cartridge.MirrorFourScreen {
		size = 0x1000
	}
	return &PPUBus{
		nametables: make([]uint8, size),
		mapper:     mapper,
		mirror:     mirror,
	}
}

// Read reads from PPU memory space ($0000-$3FFF)
func (pm *PPUBus) Read(address uint16) uint8 {
	address %= 0x4000
	switch {
	case address < 0x2000:
		return pm.mapper.Read(address)
	case address < 0x3F00:
		return pm.nametables[pm.nametableIndex(address)]
	default:
		return pm.palette[PaletteIndex(address)]
	}
}

// Write writes to PPU memory space ($0000-$3FFF)
func (pm *PPUBus) Write(address uint16, value uint8) {
	address %= 0x4000
	switch {
	case address < 0x2000:
		pm.mapper.Write(address, value)
	case address < 0x3F00:
		pm.nametables[pm.nametableIndex(address)] = value
	default:
		pm.palette[PaletteIndex(address)] = value
	}
}

// ReadPalette returns palette entry index after mirroring
func (pm *PPUBus) ReadPalette(index uint16) uint8 {
	return pm.palette[PaletteIndex(index)]
}

// Mirror returns the nametable mirroring mode
func (pm *PPUBus) Mirror() cartridge.MirrorMode {
	return pm.mirror
}

func (pm *PPUBus) nametableIndex(address uint16) int {
	return int(MirrorAddress(pm.mirror, address)-0x2000) % len(pm.nametables)
}
