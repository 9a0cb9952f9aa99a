package ppu

// evaluateSprites fills the sprite slots for the current scanline. After the
// eighth match, the overflow scan advances its byte offset m along with n,
// reproducing the hardware's diagonal OAM walk.
func (p *PPU) evaluateSprites() {
	p.clearSprites()

	height := 8
	if p.flagSpriteSize {
		height = 16
	}
	inRange := func(y uint8) bool {
		row := p.scanline - int(y)
		return row >= 0 && row < height
	}

	n := 0
	for ; n < 64 && p.spriteCount < 8; n++ {
		y := p.oam[n*4]
		if !inRange(y) {
			continue
		}
		slot := p.spriteCount
		copy(p.secondaryOAM[slot*4:slot*4+4], p.oam[n*4:n*4+4])
		if n == 0 {
			p.spriteZero = true
		}
		p.loadSprite(slot, p.scanline-int(y))
		p.spriteCount++
	}

	m := 0
	for n < 64 {
		if inRange(p.oam[n*4+m]) {
			p.flagSpriteOverflow = true
			break
		}
		n++
		m = (m + 1) & 3
	}
}

// clearSprites resets all slots to the transparent sentinel
func (p *PPU) clearSprites() {
	p.spriteCount = 0
	p.spriteZero = false
	for i := 0; i < 8; i++ {
		p.spriteLow[i] = 0
		p.spriteHigh[i] = 0
		p.spriteLatch[i] = 0xFF
		p.spriteCounter[i] = 0xFF
	}
	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
}

// loadSprite fetches the pattern row for a slot into its shift registers
func (p *PPU) loadSprite(slot, row int) {
	tile := p.secondaryOAM[slot*4+1]
	attributes := p.secondaryOAM[slot*4+2]

	var address uint16
	if !p.flagSpriteSize {
		if attributes&0x80 != 0 {
			row = 7 - row
		}
		var table uint16
		if p.flagSpriteTable {
			table = 0x1000
		}
		address = table + uint16(tile)*16 + uint16(row)
	} else {
		if attributes&0x80 != 0 {
			row = 15 - row
		}
		table := uint16(tile&1) * 0x1000
		tile &= 0xFE
		if row > 7 {
			tile++
			row -= 8
		}
		address = table + uint16(tile)*16 + uint16(row)
	}

	low := p.bus.Read(address)
	high := p.bus.Read(address + 8)
	if attributes&0x40 != 0 {
		low = reverseByte(low)
		high = reverseByte(high)
	}
	p.spriteLow[slot] = low
	p.spriteHigh[slot] = high
	p.spriteLatch[slot] = attributes
	p.spriteCounter[slot] = p.secondaryOAM[slot*4+3]
}

// spritePixel clocks every slot one dot and returns the first opaque pixel
func (p *PPU) spritePixel() (slot int, color uint8, behind bool) {
	slot = -1
	for i := 0; i < 8; i++ {
		if p.spriteCounter[i] > 0 {
			p.spriteCounter[i]--
			continue
		}
		pixel := (p.spriteLow[i]>>7)&1 | (p.spriteHigh[i]>>7)&1<<1
		p.spriteLow[i] <<= 1
		p.spriteHigh[i] <<= 1
		if pixel == 0 || slot >= 0 {
			continue
		}
		slot = i
		color = 0x10 | (p.spriteLatch[i]&3)<<2 | pixel
		behind = p.spriteLatch[i]&0x20 != 0
	}
	return slot, color, behind
}

// renderScanline composites the current row into the back buffer
func (p *PPU) renderScanline() {
	y := p.scanline
	v := p.v
	fineX := p.x

	var tileLow, tileHigh, quadrant uint8
	fetch := func() {
		tile := p.bus.Read(0x2000 | v&0x0FFF)
		fineY := (v >> 12) & 7
		var table uint16
		if p.flagBackgroundTable {
			table = 0x1000
		}
		address := table + uint16(tile)*16 + fineY
		tileLow = p.bus.Read(address)
		tileHigh = p.bus.Read(address + 8)

		attribute := p.bus.Read(0x23C0 | v&0x0C00 | (v>>4)&0x38 | (v>>2)&0x07)
		shift := ((v >> 4) & 4) | (v & 2)
		quadrant = (attribute >> shift) & 3
	}
	fetch()

	for x := 0; x < 256; x++ {
		var background uint8
		if p.flagShowBack && (x >= 8 || p.flagShowLeftBack) {
			pixel := (tileLow>>(7-fineX))&1 | (tileHigh>>(7-fineX))&1<<1
			if pixel != 0 {
				background = quadrant<<2 | pixel
			}
		}

		slot, sprite, behind := p.spritePixel()
		if !p.flagShowSprite || (x < 8 && !p.flagShowLeftSprite) {
			slot, sprite = -1, 0
		}

		if slot == 0 && p.spriteZero && background != 0 && x != 255 {
			p.flagSpriteZeroHit = true
		}

		color := background
		if sprite != 0 && (background == 0 || !behind) {
			color = sprite
		}
		p.back.Set(x, y, p.paletteColor(color))

		fineX++
		if fineX == 8 {
			fineX = 0
			v = incrementCoarseX(v)
			fetch()
		}
	}
}

// renderBackdrop fills the current row with the backdrop color
func (p *PPU) renderBackdrop() {
	color := p.paletteColor(0)
	for x := 0; x < 256; x++ {
		p.back.Set(x, p.scanline, color)
	}
}

func (p *PPU) paletteColor(index uint8) uint32 {
	entry := p.bus.Read(0x3F00 + uint16(index))
	if p.flagGrayscale {
		entry &= 0x30
	}
	return ColorRGB(entry)
}

func incrementCoarseX(v uint16) uint16 {
	if v&0x001F == 31 {
		v &^= 0x001F
		return v ^ 0x0400
	}
	return v + 1
}

// incrementY advances fine Y, carrying into coarse Y and the vertical nametable
func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = p.v&^0x03E0 | y<<5
}

// copyX copies the horizontal bits of t into v
func (p *PPU) copyX() {
	p.v = p.v&0xFBE0 | p.t&0x041F
}

// copyY copies the vertical bits of t into v
func (p *PPU) copyY() {
	p.v = p.v&0x841F | p.t&0x7BE0
}

// reverseByte mirrors the bit order of b, used for horizontally flipped sprites
func reverseByte(b uint8) uint8 {
	b = b<<4 | b>>4
	b = (b&0x33)<<2 | (b&0xCC)>>2
	b = (b&0x55)<<1 | (b&0xAA)>>1
	return b
}
