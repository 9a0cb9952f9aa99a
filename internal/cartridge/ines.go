package cartridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"nescore/internal/fault"
)

const (
	inesMagic      = "NES\x1A"
	inesHeaderSize = 16

	flag6MirrorLow = 0x01
	flag6Battery   = 0x02
	flag6Trainer   = 0x04
	flag7MirrorHi  = 0x08
)

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	Padding    [8]uint8
}

func (h iNESHeader) mapperID() uint8 {
	return (h.Flags6 >> 4) | (h.Flags7 & 0xF0)
}

func (h iNESHeader) mirror() MirrorMode {
	low := h.Flags6 & flag6MirrorLow
	high := (h.Flags7 & flag7MirrorHi) >> 3
	return MirrorMode(low | high<<1)
}

// LoadFromFile loads a cartridge from an iNES file
func LoadFromFile(filename string) (*Cartridge, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read rom %s: %w", filename, err)
	}
	return LoadFromBytes(data)
}

// LoadFromReader loads a cartridge from an io.Reader
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rom: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses an iNES image. Trainer blocks are rejected and any
// mapper other than UxROM fails here rather than at first access.
func LoadFromBytes(data []byte) (*Cartridge, error) {
	if len(data) < inesHeaderSize {
		return nil, fault.InvalidROM("header truncated: %d bytes", len(data))
	}

	var header iNESHeader
	if err := binary.Read(bytes.NewReader(data[:inesHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fault.InvalidROM("header: %v", err)
	}

	if string(header.Magic[:]) != inesMagic {
		return nil, fault.InvalidROM("bad magic % X", header.Magic[:])
	}
	if header.Flags6&flag6Trainer != 0 {
		return nil, fault.InvalidROM("trainer block not supported")
	}

	id := header.mapperID()
	if !supportedMapper(id) {
		return nil, fault.Mapper(id)
	}

	prgSize := int(header.PRGROMSize) * prgBankSize
	if prgSize == 0 {
		return nil, fault.InvalidROM("PRG ROM size is zero")
	}
	chrSize := int(header.CHRROMSize) * chrBankSize

	offset := inesHeaderSize
	if len(data) < offset+prgSize+chrSize {
		return nil, fault.InvalidROM("truncated data: want %d bytes, got %d", offset+prgSize+chrSize, len(data))
	}

	prg := make([]uint8, prgSize)
	copy(prg, data[offset:offset+prgSize])
	offset += prgSize

	var chr []uint8
	if chrSize > 0 {
		chr = make([]uint8, chrSize)
		copy(chr, data[offset:offset+chrSize])
	}

	return New(prg, chr, id, header.mirror(), header.Flags6&flag6Battery != 0), nil
}
