// Package memory implements the CPU and PPU address decoders.
package memory

import "nescore/internal/fault"

// PPURegisters is the PPU's register file as seen from the CPU bus
type PPURegisters interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// ControllerPorts serves the $4016/$4017 shift-register ports
type ControllerPorts interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Mapper is the cartridge side of both buses
type Mapper interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CPUBus represents the CPU memory map
type CPUBus struct {
	// Internal RAM (2KB, mirrored to 8KB)
	ram [0x800]uint8

	ppu    PPURegisters
	input  ControllerPorts
	mapper Mapper

	dmaCallback func(uint8)

	err error
}

// NewCPUBus creates a CPU bus over the given collaborators
func NewCPUBus(ppu PPURegisters, input ControllerPorts, mapper Mapper) *CPUBus {
	return &CPUBus{
		ppu:    ppu,
		input:  input,
		mapper: mapper,
	}
}

// SetDMACallback sets the function run on a $4014 write
func (m *CPUBus) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// Err returns the first decode failure, if any
func (m *CPUBus) Err() error {
	return m.err
}

// Read reads a byte from the given address
func (m *CPUBus) Read(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return m.ram[address&0x07FF]
	case address < 0x4000:
		return m.ppu.ReadRegister(0x2000 + address&0x0007)
	case address == 0x4016 || address == 0x4017:
		return m.input.Read(address)
	case address < 0x4018:
		// APU, status and DMA ports read as zero
		return 0
	case address < 0x6000:
		return 0
	default:
		return m.mapper.Read(address)
	}
}

// Write writes a byte to the given address
func (m *CPUBus) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value
	case address < 0x4000:
		m.ppu.WriteRegister(0x2000+address&0x0007, value)
	case address == 0x4014:
		if m.dmaCallback == nil {
			m.fail(address)
			return
		}
		m.dmaCallback(value)
	case address == 0x4016:
		m.input.Write(address, value)
	case address < 0x4018:
		// APU registers, $4015 and the $4017 frame counter
	case address < 0x6000:
	default:
		m.mapper.Write(address, value)
	}
}

// PeekRAM returns work RAM without side effects
func (m *CPUBus) PeekRAM(address uint16) uint8 {
	return m.ram[address&0x07FF]
}

func (m *CPUBus) fail(address uint16) {
	if m.err == nil {
		m.err = fault.Address("cpu", address)
	}
}
