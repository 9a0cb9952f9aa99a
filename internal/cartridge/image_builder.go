package cartridge

import (
	"bytes"
	"fmt"
)

// ImageConfig describes a synthetic iNES image
type ImageConfig struct {
	PRGBanks    uint8            // PRG ROM size in 16KB units
	CHRBanks    uint8            // CHR ROM size in 8KB units (0 = CHR RAM)
	MapperID    uint8            // Mapper number
	Mirroring   MirrorMode       // Nametable mirroring (header bits only reach modes 0-3)
	HasBattery  bool             // Battery-backed SRAM
	HasTrainer  bool             // Sets the trainer bit and appends 512 bytes
	Program     map[uint16]uint8 // CPU-space bytes placed in the PRG banks
	ResetVector uint16
	NMIVector   uint16
	IRQVector   uint16
	CHRData     []uint8
}

// ImageBuilder provides a fluent interface for building test images
type ImageBuilder struct {
	config ImageConfig
}

// NewImageBuilder returns a builder for a one-bank UxROM image with CHR RAM
// and every vector pointing at $8000.
func NewImageBuilder() *ImageBuilder {
	return &ImageBuilder{
		config: ImageConfig{
			PRGBanks:    1,
			MapperID:    uint8(UxROM),
			Mirroring:   MirrorHorizontal,
			Program:     make(map[uint16]uint8),
			ResetVector: 0x8000,
			NMIVector:   0x8000,
			IRQVector:   0x8000,
		},
	}
}

// WithPRGBanks sets the PRG ROM size in 16KB units
func (b *ImageBuilder) WithPRGBanks(n uint8) *ImageBuilder {
	b.config.PRGBanks = n
	return b
}

// WithCHRBanks sets the CHR ROM size in 8KB units (0 = CHR RAM)
func (b *ImageBuilder) WithCHRBanks(n uint8) *ImageBuilder {
	b.config.CHRBanks = n
	return b
}

// WithMapper sets the mapper ID
func (b *ImageBuilder) WithMapper(id uint8) *ImageBuilder {
	b.config.MapperID = id
	return b
}

// WithMirroring sets the nametable mirroring mode
func (b *ImageBuilder) WithMirroring(mode MirrorMode) *ImageBuilder {
	b.config.Mirroring = mode
	return b
}

// WithBattery enables battery-backed SRAM
func (b *ImageBuilder) WithBattery() *ImageBuilder {
	b.config.HasBattery = true
	return b
}

// WithTrainer sets the trainer bit
func (b *ImageBuilder) WithTrainer() *ImageBuilder {
	b.config.HasTrainer = true
	return b
}

// WithProgram places code at a CPU address. $C000-$FFFF lands in the last
// bank and $8000-$BFFF in bank 0.
func (b *ImageBuilder) WithProgram(address uint16, code ...uint8) *ImageBuilder {
	for i, value := range code {
		b.config.Program[address+uint16(i)] = value
	}
	return b
}

// WithResetVector sets the reset vector
func (b *ImageBuilder) WithResetVector(address uint16) *ImageBuilder {
	b.config.ResetVector = address
	return b
}

// WithNMIVector sets the NMI vector
func (b *ImageBuilder) WithNMIVector(address uint16) *ImageBuilder {
	b.config.NMIVector = address
	return b
}

// WithIRQVector sets the IRQ/BRK vector
func (b *ImageBuilder) WithIRQVector(address uint16) *ImageBuilder {
	b.config.IRQVector = address
	return b
}

// WithCHRData sets the initial CHR ROM contents
func (b *ImageBuilder) WithCHRData(data []uint8) *ImageBuilder {
	b.config.CHRData = append([]uint8(nil), data...)
	return b
}

// Build generates the image bytes
func (b *ImageBuilder) Build() ([]byte, error) {
	return BuildImage(b.config)
}

// BuildCartridge generates and loads the image as a cartridge
func (b *ImageBuilder) BuildCartridge() (*Cartridge, error) {
	data, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadFromBytes(data)
}

// BuildImage creates an iNES image from config
func BuildImage(config ImageConfig) ([]byte, error) {
	if config.PRGBanks == 0 {
		return nil, fmt.Errorf("PRG ROM size cannot be zero")
	}
	if config.Mirroring > MirrorSingleScreenHigh {
		return nil, fmt.Errorf("mirroring %s has no header encoding", config.Mirroring)
	}

	var buf bytes.Buffer
	buf.Write(imageHeader(config))
	if config.HasTrainer {
		buf.Write(make([]byte, 512))
	}
	buf.Write(imagePRG(config))
	if config.CHRBanks > 0 {
		chr := make([]byte, int(config.CHRBanks)*chrBankSize)
		copy(chr, config.CHRData)
		buf.Write(chr)
	}
	return buf.Bytes(), nil
}

func imageHeader(config ImageConfig) []byte {
	header := make([]byte, inesHeaderSize)
	copy(header[0:4], inesMagic)
	header[4] = config.PRGBanks
	header[5] = config.CHRBanks

	flags6 := (config.MapperID & 0x0F) << 4
	if config.Mirroring&1 != 0 {
		flags6 |= flag6MirrorLow
	}
	if config.HasBattery {
		flags6 |= flag6Battery
	}
	if config.HasTrainer {
		flags6 |= flag6Trainer
	}
	header[6] = flags6

	flags7 := config.MapperID & 0xF0
	if config.Mirroring&2 != 0 {
		flags7 |= flag7MirrorHi
	}
	header[7] = flags7
	return header
}

func imagePRG(config ImageConfig) []byte {
	size := int(config.PRGBanks) * prgBankSize
	prg := make([]byte, size)
	last := size - prgBankSize

	place := func(address uint16, value uint8) {
		switch {
		case address >= 0xC000:
			prg[last+int(address-0xC000)] = value
		case address >= 0x8000:
			prg[int(address-0x8000)] = value
		}
	}

	for address, value := range config.Program {
		place(address, value)
	}
	for i, vector := range []uint16{config.NMIVector, config.ResetVector, config.IRQVector} {
		base := uint16(0xFFFA + 2*i)
		place(base, uint8(vector&0xFF))
		place(base+1, uint8(vector>>8))
	}
	return prg
}
