package cpu

import (
	"fmt"
	"io"
	"strings"
)

// tracer renders nestest-style log lines
type tracer struct {
	w        io.Writer
	position func() (scanline, dot int)
}

// traceName maps mnemonics whose log spelling differs from ours
var traceName = map[Mnemonic]string{
	ISC: "ISB",
}

// Unofficial reports whether opcode is outside the documented instruction set
func Unofficial(opcode uint8) bool {
	m := instructionMnemonics[opcode]
	switch m {
	case NOP:
		return opcode != 0xEA
	case SBC:
		return opcode == 0xEB
	case DCP, ISC, LAX, RLA, RRA, SAX, SLO, SRE:
		return true
	}
	return !m.Implemented()
}

func (t *tracer) trace(cpu *CPU, opcode uint8) {
	fmt.Fprintln(t.w, TraceLine(cpu, opcode, t.position))
}

// TraceLine formats the instruction at PC as one log line, before it executes
func TraceLine(cpu *CPU, opcode uint8, position func() (scanline, dot int)) string {
	size := int(instructionSizes[opcode])
	if size == 0 {
		size = 1
	}
	operands := make([]uint8, size)
	raw := make([]string, size)
	for i := range operands {
		operands[i] = cpu.read(cpu.PC + uint16(i))
		raw[i] = fmt.Sprintf("%02X", operands[i])
	}

	marker := ' '
	if Unofficial(opcode) {
		marker = '*'
	}
	m := instructionMnemonics[opcode]
	name, ok := traceName[m]
	if !ok {
		name = m.String()
	}

	scanline, dot := 0, 0
	if position != nil {
		scanline, dot = position()
	}

	return fmt.Sprintf("%04X  %-8s %c%s %-27s A:%02X X:%02X Y:%02X P:%02X SP:%02X PPU:%3d,%3d CYC:%d",
		cpu.PC, strings.Join(raw, " "), marker, name,
		operandText(cpu, instructionModes[opcode], operands),
		cpu.A, cpu.X, cpu.Y, cpu.Flags(), cpu.SP, scanline, dot, cpu.cycles)
}

// operandText disassembles the operand bytes without touching memory
func operandText(cpu *CPU, mode AddressingMode, b []uint8) string {
	word := func() uint16 {
		if len(b) < 3 {
			return 0
		}
		return uint16(b[2])<<8 | uint16(b[1])
	}
	byteOp := func() uint8 {
		if len(b) < 2 {
			return 0
		}
		return b[1]
	}

	switch mode {
	case Absolute:
		return fmt.Sprintf("$%04X", word())
	case AbsoluteX:
		return fmt.Sprintf("$%04X,X", word())
	case AbsoluteY:
		return fmt.Sprintf("$%04X,Y", word())
	case Accumulator:
		return "A"
	case Immediate:
		return fmt.Sprintf("#$%02X", byteOp())
	case IndexedIndirect:
		return fmt.Sprintf("($%02X,X)", byteOp())
	case Indirect:
		return fmt.Sprintf("($%04X)", word())
	case IndirectIndexed:
		return fmt.Sprintf("($%02X),Y", byteOp())
	case Relative:
		offset := uint16(byteOp())
		target := cpu.PC + 2 + offset
		if offset >= 0x80 {
			target -= 0x100
		}
		return fmt.Sprintf("$%04X", target)
	case ZeroPage:
		return fmt.Sprintf("$%02X", byteOp())
	case ZeroPageX:
		return fmt.Sprintf("$%02X,X", byteOp())
	case ZeroPageY:
		return fmt.Sprintf("$%02X,Y", byteOp())
	}
	return ""
}
