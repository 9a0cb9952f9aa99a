// Package cpu implements the 6502 CPU emulation for the NES.
package cpu

import (
	"io"

	"nescore/internal/fault"
)

// Addressing modes, numbered to match the opcode tables
type AddressingMode uint8

const (
	_ AddressingMode = iota
	Absolute
	AbsoluteX
	AbsoluteY
	Accumulator
	Immediate
	Implied
	IndexedIndirect // (zp,X)
	Indirect
	IndirectIndexed // (zp),Y
	Relative
	ZeroPage
	ZeroPageX
	ZeroPageY
)

// CPU constants
const (
	// Stack base address
	stackBase = 0x0100
	// Status register bit masks
	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01
	// Interrupt vectors
	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
	// Cycles charged for servicing an interrupt
	interruptCycles = 7
)

// Interrupt is the pending-interrupt latch
type Interrupt uint8

const (
	InterruptNone Interrupt = iota
	InterruptNMI
	InterruptIRQ
	InterruptReset
)

// MemoryInterface defines the interface for CPU memory access
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// stepInfo is the scratch state handed to an instruction handler
type stepInfo struct {
	address uint16
	pc      uint16
	mode    AddressingMode
}

// CPU represents the 6502 processor used in the NES
type CPU struct {
	// Registers
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer
	PC uint16 // Program counter

	// Status register flags
	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal mode (not used in NES)
	B bool // Break
	U bool // Unused
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface

	cycles    uint64
	stall     int
	interrupt Interrupt
	info      stepInfo

	// set once an unmodeled opcode is reached
	halted error

	tracer *tracer
}

// New creates a new CPU instance
func New(memory MemoryInterface) *CPU {
	return &CPU{
		memory: memory,
		SP:     0xFD,
	}
}

// Reset loads the reset vector and puts the registers in their power-up state
func (cpu *CPU) Reset() {
	cpu.A, cpu.X, cpu.Y = 0, 0, 0
	cpu.SP = 0xFD
	cpu.SetFlags(0x24)
	cpu.PC = cpu.read16(resetVector)
	cpu.stall = 0
	cpu.interrupt = InterruptNone
	cpu.halted = nil
	cpu.cycles += interruptCycles
}

// Cycles returns the total number of cycles executed
func (cpu *CPU) Cycles() uint64 {
	return cpu.cycles
}

// Stall adds cycles the CPU must idle before its next instruction
func (cpu *CPU) Stall(cycles int) {
	cpu.stall += cycles
}

// Stalled returns the outstanding stall count
func (cpu *CPU) Stalled() int {
	return cpu.stall
}

// Pending returns the latched interrupt
func (cpu *CPU) Pending() Interrupt {
	return cpu.interrupt
}

// TriggerNMI latches a non-maskable interrupt
func (cpu *CPU) TriggerNMI() {
	cpu.interrupt = InterruptNMI
}

// TriggerIRQ latches an IRQ if interrupts are enabled and no NMI is waiting
func (cpu *CPU) TriggerIRQ() {
	if !cpu.I && cpu.interrupt != InterruptNMI {
		cpu.interrupt = InterruptIRQ
	}
}

// TriggerReset latches a reset to be serviced on the next step
func (cpu *CPU) TriggerReset() {
	cpu.interrupt = InterruptReset
}

// SetTracer writes one trace line per executed instruction to w. position
// reports the PPU scanline and dot for the PPU column and may be nil.
func (cpu *CPU) SetTracer(w io.Writer, position func() (scanline, dot int)) {
	if w == nil {
		cpu.tracer = nil
		return
	}
	cpu.tracer = &tracer{w: w, position: position}
}

// Step executes a single instruction, or one stalled cycle, and returns the
// number of cycles consumed.
func (cpu *CPU) Step() (int, error) {
	if cpu.stall > 0 {
		cpu.stall--
		cpu.cycles++
		return 1, nil
	}
	if cpu.halted != nil {
		return 0, cpu.halted
	}

	switch cpu.interrupt {
	case InterruptNMI:
		cpu.interrupt = InterruptNone
		cpu.serviceInterrupt(nmiVector)
		return interruptCycles, nil
	case InterruptIRQ:
		cpu.interrupt = InterruptNone
		cpu.serviceInterrupt(irqVector)
		return interruptCycles, nil
	case InterruptReset:
		cpu.Reset()
		return interruptCycles, nil
	}

	opcode := cpu.read(cpu.PC)
	mnemonic := instructionMnemonics[opcode]
	if !mnemonic.Implemented() {
		cpu.halted = fault.Opcode(cpu.PC, opcode, mnemonic.String())
		return 0, cpu.halted
	}

	if cpu.tracer != nil {
		cpu.tracer.trace(cpu, opcode)
	}

	start := cpu.cycles
	mode := instructionModes[opcode]
	address, pageCrossed := cpu.operandAddress(mode)

	cpu.PC += uint16(instructionSizes[opcode])
	cpu.cycles += uint64(instructionCycles[opcode])
	if pageCrossed {
		cpu.cycles += uint64(instructionPageCycles[opcode])
	}

	cpu.info = stepInfo{address: address, pc: cpu.PC, mode: mode}
	cpu.execute(mnemonic)

	return int(cpu.cycles - start), nil
}

// operandAddress returns the effective address for the given addressing mode
// and whether an index crossed a page boundary.
func (cpu *CPU) operandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Absolute:
		return cpu.read16(cpu.PC + 1), false
	case AbsoluteX:
		base := cpu.read16(cpu.PC + 1)
		address := base + uint16(cpu.X)
		return address, pagesDiffer(base, address)
	case AbsoluteY:
		base := cpu.read16(cpu.PC + 1)
		address := base + uint16(cpu.Y)
		return address, pagesDiffer(base, address)
	case Accumulator, Implied:
		return 0, false
	case Immediate:
		return cpu.PC + 1, false
	case IndexedIndirect:
		return cpu.read16bug(uint16(cpu.read(cpu.PC+1) + cpu.X)), false
	case Indirect:
		return cpu.read16bug(cpu.read16(cpu.PC + 1)), false
	case IndirectIndexed:
		base := cpu.read16bug(uint16(cpu.read(cpu.PC + 1)))
		address := base + uint16(cpu.Y)
		return address, pagesDiffer(base, address)
	case Relative:
		offset := uint16(cpu.read(cpu.PC + 1))
		if offset < 0x80 {
			return cpu.PC + 2 + offset, false
		}
		return cpu.PC + 2 + offset - 0x100, false
	case ZeroPage:
		return uint16(cpu.read(cpu.PC + 1)), false
	case ZeroPageX:
		return uint16(cpu.read(cpu.PC+1) + cpu.X), false
	case ZeroPageY:
		return uint16(cpu.read(cpu.PC+1) + cpu.Y), false
	}
	return 0, false
}

func (cpu *CPU) read(address uint16) uint8 {
	return cpu.memory.Read(address)
}

func (cpu *CPU) write(address uint16, value uint8) {
	cpu.memory.Write(address, value)
}

func (cpu *CPU) read16(address uint16) uint16 {
	low := uint16(cpu.read(address))
	high := uint16(cpu.read(address + 1))
	return high<<8 | low
}

// read16bug reads a word without carrying into the high byte of the address,
// reproducing the 6502 indirect-addressing page wrap.
func (cpu *CPU) read16bug(address uint16) uint16 {
	next := address&0xFF00 | uint16(uint8(address)+1)
	low := uint16(cpu.read(address))
	high := uint16(cpu.read(next))
	return high<<8 | low
}

func pagesDiffer(a, b uint16) bool {
	return a&0xFF00 != b&0xFF00
}

// Stack operations
func (cpu *CPU) push(value uint8) {
	cpu.write(stackBase|uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pull() uint8 {
	cpu.SP++
	return cpu.read(stackBase | uint16(cpu.SP))
}

func (cpu *CPU) push16(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value & 0xFF))
}

func (cpu *CPU) pull16() uint16 {
	low := uint16(cpu.pull())
	high := uint16(cpu.pull())
	return high<<8 | low
}

// serviceInterrupt pushes PC and flags the way BRK does and jumps through vector
func (cpu *CPU) serviceInterrupt(vector uint16) {
	cpu.push16(cpu.PC)
	cpu.php()
	cpu.I = true
	cpu.PC = cpu.read16(vector)
	cpu.cycles += interruptCycles
}

// Flags packs the status flags into a byte
func (cpu *CPU) Flags() uint8 {
	var flags uint8
	for _, f := range []struct {
		set  bool
		mask uint8
	}{
		{cpu.C, cFlagMask}, {cpu.Z, zFlagMask}, {cpu.I, iFlagMask}, {cpu.D, dFlagMask},
		{cpu.B, bFlagMask}, {cpu.U, unusedMask}, {cpu.V, vFlagMask}, {cpu.N, nFlagMask},
	} {
		if f.set {
			flags |= f.mask
		}
	}
	return flags
}

// SetFlags unpacks a status byte into the individual flags
func (cpu *CPU) SetFlags(flags uint8) {
	cpu.C = flags&cFlagMask != 0
	cpu.Z = flags&zFlagMask != 0
	cpu.I = flags&iFlagMask != 0
	cpu.D = flags&dFlagMask != 0
	cpu.B = flags&bFlagMask != 0
	cpu.U = flags&unusedMask != 0
	cpu.V = flags&vFlagMask != 0
	cpu.N = flags&nFlagMask != 0
}

// setZN sets Zero and Negative flags based on value
func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = value&nFlagMask != 0
}

func (cpu *CPU) compare(a, b uint8) {
	cpu.setZN(a - b)
	cpu.C = a >= b
}

// branch takes the branch to the resolved address, charging one cycle plus
// one more if the target lies on another page.
func (cpu *CPU) branch(taken bool) {
	if !taken {
		return
	}
	cpu.PC = cpu.info.address
	cpu.cycles++
	if pagesDiffer(cpu.info.pc, cpu.info.address) {
		cpu.cycles++
	}
}
