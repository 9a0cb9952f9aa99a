package cpu

import (
	"testing"
)

// MockMemory implements MemoryInterface for testing
type MockMemory struct {
	data       [0x10000]uint8
	writeCount map[uint16]int
}

// NewMockMemory creates a new mock memory instance
func NewMockMemory() *MockMemory {
	return &MockMemory{writeCount: make(map[uint16]int)}
}

func (m *MockMemory) Read(address uint16) uint8 {
	return m.data[address]
}

func (m *MockMemory) Write(address uint16, value uint8) {
	m.writeCount[address]++
	m.data[address] = value
}

// SetBytes sets multiple bytes starting at the given address
func (m *MockMemory) SetBytes(address uint16, values ...uint8) {
	for i, value := range values {
		m.data[address+uint16(i)] = value
	}
}

// CPUTestHelper provides common test utilities
type CPUTestHelper struct {
	CPU    *CPU
	Memory *MockMemory
}

// NewCPUTestHelper creates a CPU reset to $8000
func NewCPUTestHelper() *CPUTestHelper {
	return NewCPUTestHelperAt(0x8000)
}

// NewCPUTestHelperAt creates a CPU that has been reset once to address
func NewCPUTestHelperAt(address uint16) *CPUTestHelper {
	memory := NewMockMemory()
	h := &CPUTestHelper{CPU: New(memory), Memory: memory}
	h.SetupResetVector(address)
	return h
}

// SetupResetVector sets the reset vector and performs reset
func (h *CPUTestHelper) SetupResetVector(address uint16) {
	h.Memory.SetBytes(resetVector, uint8(address&0xFF), uint8(address>>8))
	h.CPU.Reset()
}

// LoadProgram loads a program at the current PC
func (h *CPUTestHelper) LoadProgram(program ...uint8) {
	h.Memory.SetBytes(h.CPU.PC, program...)
}

// MustStep executes one instruction and fails the test on error
func (h *CPUTestHelper) MustStep(t *testing.T) int {
	t.Helper()
	cycles, err := h.CPU.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return cycles
}

// AssertRegisters checks if CPU registers match expected values
func (h *CPUTestHelper) AssertRegisters(t *testing.T, testName string, a, x, y uint8) {
	t.Helper()
	if h.CPU.A != a || h.CPU.X != x || h.CPU.Y != y {
		t.Errorf("%s: Expected A=0x%02X X=0x%02X Y=0x%02X, got A=0x%02X X=0x%02X Y=0x%02X",
			testName, a, x, y, h.CPU.A, h.CPU.X, h.CPU.Y)
	}
}

// AssertFlags checks N V Z C
func (h *CPUTestHelper) AssertFlags(t *testing.T, testName string, n, v, z, c bool) {
	t.Helper()
	if h.CPU.N != n || h.CPU.V != v || h.CPU.Z != z || h.CPU.C != c {
		t.Errorf("%s: Expected N=%v V=%v Z=%v C=%v, got N=%v V=%v Z=%v C=%v",
			testName, n, v, z, c, h.CPU.N, h.CPU.V, h.CPU.Z, h.CPU.C)
	}
}

func TestCPUReset(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(resetVector, 0x34, 0x12)
	h.CPU.A, h.CPU.X, h.CPU.SP = 1, 2, 0x10
	before := h.CPU.Cycles()

	h.CPU.Reset()

	if h.CPU.PC != 0x1234 {
		t.Errorf("Expected PC=$1234, got $%04X", h.CPU.PC)
	}
	if h.CPU.SP != 0xFD {
		t.Errorf("Expected SP=0xFD, got 0x%02X", h.CPU.SP)
	}
	if h.CPU.Flags() != 0x24 {
		t.Errorf("Expected P=0x24, got 0x%02X", h.CPU.Flags())
	}
	h.AssertRegisters(t, "reset", 0, 0, 0)
	if h.CPU.Cycles()-before != 7 {
		t.Errorf("Expected reset to take 7 cycles, took %d", h.CPU.Cycles()-before)
	}
}

func TestCPUReset_AccumulatesCycles(t *testing.T) {
	h := NewCPUTestHelper()
	if h.CPU.Cycles() != 7 {
		t.Fatalf("Expected CYC 7 after power-up reset, got %d", h.CPU.Cycles())
	}
	h.CPU.Reset()
	if h.CPU.Cycles() != 14 {
		t.Errorf("Expected a second reset to add 7 cycles, got %d", h.CPU.Cycles())
	}
}

func TestStatusRegister(t *testing.T) {
	cpu := New(NewMockMemory())
	for _, value := range []uint8{0x00, 0xFF, 0x24, 0x81, 0x42} {
		cpu.SetFlags(value)
		if got := cpu.Flags(); got != value {
			t.Errorf("Expected flags 0x%02X to round trip, got 0x%02X", value, got)
		}
	}
}

func TestOpcodeTablesComplete(t *testing.T) {
	for op := 0; op < 256; op++ {
		if instructionModes[op] == 0 {
			t.Errorf("opcode $%02X has no addressing mode", op)
		}
		if instructionMnemonics[op] == 0 {
			t.Errorf("opcode $%02X has no mnemonic", op)
		}
		if instructionMnemonics[op].Implemented() && instructionCycles[op] == 0 {
			t.Errorf("opcode $%02X (%s) has no base cycle count", op, instructionMnemonics[op])
		}
		if instructionSizes[op] == 0 {
			t.Errorf("opcode $%02X has zero size", op)
		}
	}
}

// referenceCycles returns the documented base cost and page-cross penalty
// for an opcode from its operation class and addressing mode.
func referenceCycles(m Mnemonic, mode AddressingMode) (base, page uint8, ok bool) {
	switch m {
	case BRK:
		return 7, 0, true
	case JSR, RTI, RTS:
		return 6, 0, true
	case PHA, PHP:
		return 3, 0, true
	case PLA, PLP:
		return 4, 0, true
	case JMP:
		if mode == Indirect {
			return 5, 0, true
		}
		return 3, 0, true
	case BCC, BCS, BEQ, BMI, BNE, BPL, BVC, BVS:
		return 2, 1, true
	}

	read := map[AddressingMode][2]uint8{
		Immediate: {2, 0}, Implied: {2, 0}, ZeroPage: {3, 0}, ZeroPageX: {4, 0}, ZeroPageY: {4, 0},
		Absolute: {4, 0}, AbsoluteX: {4, 1}, AbsoluteY: {4, 1}, IndexedIndirect: {6, 0}, IndirectIndexed: {5, 1},
	}
	store := map[AddressingMode][2]uint8{
		ZeroPage: {3, 0}, ZeroPageX: {4, 0}, ZeroPageY: {4, 0}, Absolute: {4, 0},
		AbsoluteX: {5, 0}, AbsoluteY: {5, 0}, IndexedIndirect: {6, 0}, IndirectIndexed: {6, 0},
	}
	modify := map[AddressingMode][2]uint8{
		Accumulator: {2, 0}, ZeroPage: {5, 0}, ZeroPageX: {6, 0}, Absolute: {6, 0}, AbsoluteX: {7, 0},
		AbsoluteY: {7, 0}, IndexedIndirect: {8, 0}, IndirectIndexed: {8, 0},
	}

	var table map[AddressingMode][2]uint8
	switch m {
	case ADC, AND, BIT, CMP, CPX, CPY, EOR, LAX, LDA, LDX, LDY, NOP, ORA, SBC:
		table = read
	case STA, STX, STY, SAX:
		table = store
	case ASL, LSR, ROL, ROR, INC, DEC, SLO, RLA, SRE, RRA, DCP, ISC:
		table = modify
	case CLC, CLD, CLI, CLV, SEC, SED, SEI, DEX, DEY, INX, INY, TAX, TAY, TSX, TXA, TXS, TYA:
		return 2, 0, true
	default:
		return 0, 0, false
	}
	cost, found := table[mode]
	return cost[0], cost[1], found
}

func TestOpcodeCyclesMatchReference(t *testing.T) {
	checked := 0
	for op := 0; op < 256; op++ {
		m := instructionMnemonics[op]
		if !m.Implemented() {
			continue
		}
		base, page, ok := referenceCycles(m, instructionModes[op])
		if !ok {
			t.Errorf("opcode $%02X (%s) has no reference cost for mode %d", op, m, instructionModes[op])
			continue
		}
		if instructionCycles[op] != base {
			t.Errorf("opcode $%02X (%s): expected base %d cycles, got %d", op, m, base, instructionCycles[op])
		}
		if instructionPageCycles[op] != page {
			t.Errorf("opcode $%02X (%s): expected page-cross penalty %d, got %d", op, m, page, instructionPageCycles[op])
		}
		checked++
	}
	if checked < 200 {
		t.Errorf("Expected every implemented opcode checked, got %d", checked)
	}
}

func TestPageCrossCycles(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		index   uint8
		want    int
	}{
		{"LDA abs,X same page", []uint8{0xBD, 0xF0, 0x10}, 0x01, 4},
		{"LDA abs,X crossed", []uint8{0xBD, 0xF0, 0x10}, 0x20, 5},
		{"LDA abs,Y crossed", []uint8{0xB9, 0xF0, 0x10}, 0x20, 5},
		{"LDA (zp),Y same page", []uint8{0xB1, 0x80}, 0x01, 5},
		{"LDA (zp),Y crossed", []uint8{0xB1, 0x80}, 0x20, 6},
		{"LAX abs,Y crossed", []uint8{0xBF, 0xF0, 0x10}, 0x20, 5},
		{"NOP abs,X crossed", []uint8{0x1C, 0xF0, 0x10}, 0x20, 5},
		{"STA abs,X same page", []uint8{0x9D, 0xF0, 0x10}, 0x01, 5},
		{"STA abs,X crossed", []uint8{0x9D, 0xF0, 0x10}, 0x20, 5},
		{"STA (zp),Y crossed", []uint8{0x91, 0x80}, 0x20, 6},
		{"INC abs,X crossed", []uint8{0xFE, 0xF0, 0x10}, 0x20, 7},
		{"DCP abs,Y crossed", []uint8{0xDB, 0xF0, 0x10}, 0x20, 7},
		{"ISB (zp),Y crossed", []uint8{0xF3, 0x80}, 0x20, 8},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.Memory.SetBytes(0x0080, 0xF0, 0x10)
		h.CPU.X, h.CPU.Y = test.index, test.index
		h.LoadProgram(test.program...)
		if got := h.MustStep(t); got != test.want {
			t.Errorf("%s: Expected %d cycles, got %d", test.name, test.want, got)
		}
	}
}

func TestStackWrapsAfter256Pushes(t *testing.T) {
	h := NewCPUTestHelper()
	start := h.CPU.SP
	for i := 0; i < 256; i++ {
		h.CPU.push(uint8(i))
	}
	if h.CPU.SP != start {
		t.Errorf("Expected SP to wrap to 0x%02X, got 0x%02X", start, h.CPU.SP)
	}
	if got := h.Memory.data[0x0100|uint16(start+1)]; got != 0xFF {
		t.Errorf("Expected last push at $%04X, got 0x%02X", 0x0100|uint16(start+1), got)
	}
	h.CPU.SP = 0x00
	h.CPU.push(0xAA)
	if h.CPU.SP != 0xFF || h.Memory.data[0x0100] != 0xAA {
		t.Errorf("Expected push at SP=0 to write $0100 and wrap to 0xFF, SP=0x%02X", h.CPU.SP)
	}
}

func TestRead16BugWrapsWithinPage(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0x01FF, 0x34)
	h.Memory.SetBytes(0x0100, 0x12)
	if got := h.CPU.read16bug(0x01FF); got != 0x1234 {
		t.Errorf("Expected $1234, got $%04X", got)
	}

	// JMP ($02FF) takes its high byte from $0200
	h.Memory.SetBytes(0x02FF, 0x00)
	h.Memory.SetBytes(0x0200, 0x90)
	h.Memory.SetBytes(0x0300, 0x80)
	h.LoadProgram(0x6C, 0xFF, 0x02)
	h.MustStep(t)
	if h.CPU.PC != 0x9000 {
		t.Errorf("Expected JMP indirect to $9000, got $%04X", h.CPU.PC)
	}
}

func TestADC(t *testing.T) {
	tests := []struct {
		name       string
		a, operand uint8
		carry      bool
		want       uint8
		n, v, z, c bool
	}{
		{"simple", 0x10, 0x20, false, 0x30, false, false, false, false},
		{"carry in", 0x10, 0x20, true, 0x31, false, false, false, false},
		{"signed overflow", 0x50, 0x50, false, 0xA0, true, true, false, false},
		{"carry out to zero", 0xFF, 0x01, false, 0x00, false, false, true, true},
		{"negative overflow", 0x80, 0xFF, false, 0x7F, false, true, false, true},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.A = test.a
		h.CPU.C = test.carry
		h.LoadProgram(0x69, test.operand)
		h.MustStep(t)
		h.AssertRegisters(t, test.name, test.want, 0, 0)
		h.AssertFlags(t, test.name, test.n, test.v, test.z, test.c)
	}
}

func TestSBC(t *testing.T) {
	tests := []struct {
		name       string
		a, operand uint8
		carry      bool
		want       uint8
		n, v, z, c bool
	}{
		{"no borrow", 0x50, 0x10, true, 0x40, false, false, false, true},
		{"borrow in", 0x50, 0x10, false, 0x3F, false, false, false, true},
		{"equal", 0x42, 0x42, true, 0x00, false, false, true, true},
		{"underflow", 0x00, 0x01, true, 0xFF, true, false, false, false},
		{"signed overflow", 0x80, 0x01, true, 0x7F, false, true, false, true},
		{"borrow makes underflow", 0x00, 0x00, false, 0xFF, true, false, false, false},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.A = test.a
		h.CPU.C = test.carry
		h.LoadProgram(0xE9, test.operand)
		h.MustStep(t)
		h.AssertRegisters(t, test.name, test.want, 0, 0)
		h.AssertFlags(t, test.name, test.n, test.v, test.z, test.c)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		reg, operand uint8
		n, z, c      bool
	}{
		{0x40, 0x30, false, false, true},
		{0x40, 0x40, false, true, true},
		{0x30, 0x40, true, false, false},
		{0x00, 0xFF, false, false, false},
	}

	for _, test := range tests {
		for _, op := range []uint8{0xC9, 0xE0, 0xC0} {
			h := NewCPUTestHelper()
			h.CPU.A, h.CPU.X, h.CPU.Y = test.reg, test.reg, test.reg
			h.LoadProgram(op, test.operand)
			h.MustStep(t)
			if h.CPU.N != test.n || h.CPU.Z != test.z || h.CPU.C != test.c {
				t.Errorf("$%02X %02X vs %02X: Expected N=%v Z=%v C=%v, got N=%v Z=%v C=%v",
					op, test.reg, test.operand, test.n, test.z, test.c, h.CPU.N, h.CPU.Z, h.CPU.C)
			}
		}
	}
}

func TestShiftsAndRotates(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		a       uint8
		carry   bool
		want    uint8
		wantC   bool
	}{
		{"ASL A", []uint8{0x0A}, 0x81, false, 0x02, true},
		{"LSR A", []uint8{0x4A}, 0x01, false, 0x00, true},
		{"ROL A", []uint8{0x2A}, 0x40, true, 0x81, false},
		{"ROR A", []uint8{0x6A}, 0x02, true, 0x81, false},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.A = test.a
		h.CPU.C = test.carry
		h.LoadProgram(test.program...)
		h.MustStep(t)
		if h.CPU.A != test.want || h.CPU.C != test.wantC {
			t.Errorf("%s: Expected A=0x%02X C=%v, got A=0x%02X C=%v", test.name, test.want, test.wantC, h.CPU.A, h.CPU.C)
		}
	}

	h := NewCPUTestHelper()
	h.Memory.SetBytes(0x0010, 0x80)
	h.LoadProgram(0x06, 0x10) // ASL $10
	h.MustStep(t)
	if h.Memory.data[0x0010] != 0x00 || !h.CPU.C || !h.CPU.Z {
		t.Errorf("ASL zp: Expected $10=0 C Z, got 0x%02X C=%v Z=%v", h.Memory.data[0x0010], h.CPU.C, h.CPU.Z)
	}
}

func TestBIT(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.A = 0x01
	h.Memory.SetBytes(0x0020, 0xC0)
	h.LoadProgram(0x24, 0x20)
	h.MustStep(t)
	h.AssertFlags(t, "BIT", true, true, true, false)
}

func TestStackInstructions(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.SetFlags(0xC3)
	h.LoadProgram(
		0x08,       // PHP
		0xA9, 0x00, // LDA #$00
		0x28, // PLP
	)
	h.MustStep(t)
	if got := h.Memory.data[0x01FD]; got != 0xD3 {
		t.Errorf("Expected PHP to push 0xD3 (B set), got 0x%02X", got)
	}
	h.MustStep(t)
	h.MustStep(t)
	if got := h.CPU.Flags(); got != 0xE3 {
		t.Errorf("Expected PLP to clear B and set U, got 0x%02X", got)
	}
}

func TestJSRAndRTS(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0x20, 0x00, 0x90) // JSR $9000
	h.Memory.SetBytes(0x9000, 0x60) // RTS

	if cycles := h.MustStep(t); cycles != 6 {
		t.Errorf("Expected JSR 6 cycles, got %d", cycles)
	}
	if h.CPU.PC != 0x9000 {
		t.Fatalf("Expected PC=$9000, got $%04X", h.CPU.PC)
	}
	if h.Memory.data[0x01FD] != 0x80 || h.Memory.data[0x01FC] != 0x02 {
		t.Errorf("Expected return address $8002 on the stack, got %02X%02X", h.Memory.data[0x01FD], h.Memory.data[0x01FC])
	}
	h.MustStep(t)
	if h.CPU.PC != 0x8003 {
		t.Errorf("Expected RTS to $8003, got $%04X", h.CPU.PC)
	}
}

func TestBranchTiming(t *testing.T) {
	tests := []struct {
		name   string
		pc     uint16
		offset uint8
		zero   bool
		cycles int
		target uint16
	}{
		{"not taken", 0x8000, 0x10, false, 2, 0x8002},
		{"taken same page", 0x8000, 0x10, true, 3, 0x8012},
		{"taken backward same page", 0x8010, 0xFE, true, 3, 0x8010},
		{"taken across page", 0x80F0, 0x20, true, 4, 0x8112},
		{"taken backward across page", 0x8100, 0xF0, true, 4, 0x80F2},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.PC = test.pc
		h.CPU.Z = test.zero
		h.LoadProgram(0xF0, test.offset) // BEQ
		cycles := h.MustStep(t)
		if cycles != test.cycles {
			t.Errorf("%s: Expected %d cycles, got %d", test.name, test.cycles, cycles)
		}
		if h.CPU.PC != test.target {
			t.Errorf("%s: Expected PC=$%04X, got $%04X", test.name, test.target, h.CPU.PC)
		}
	}
}

func TestPageCrossPenalty(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		x       uint8
		cycles  int
	}{
		{"LDA abs,X same page", []uint8{0xBD, 0x00, 0x02}, 0x10, 4},
		{"LDA abs,X crossed", []uint8{0xBD, 0xF0, 0x02}, 0x20, 5},
		{"STA abs,X never pays", []uint8{0x9D, 0xF0, 0x02}, 0x20, 5},
		{"NOP abs,X crossed", []uint8{0x1C, 0xF0, 0x02}, 0x20, 5},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.X = test.x
		h.LoadProgram(test.program...)
		if cycles := h.MustStep(t); cycles != test.cycles {
			t.Errorf("%s: Expected %d cycles, got %d", test.name, test.cycles, cycles)
		}
	}
}

func TestIndirectAddressingWrapsZeroPage(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.X = 0x01
	h.Memory.SetBytes(0x0000, 0x00, 0x03)
	h.Memory.SetBytes(0x0300, 0x05)
	h.LoadProgram(0xA1, 0xFF) // LDA ($FF,X) -> pointer at $00/$01
	h.MustStep(t)
	if h.CPU.A != 0x05 {
		t.Errorf("Expected LDA ($FF,X) to read $0300, got 0x%02X", h.CPU.A)
	}

	h = NewCPUTestHelper()
	h.CPU.Y = 0x02
	h.Memory.SetBytes(0x00FF, 0x00)
	h.Memory.SetBytes(0x0000, 0x03)
	h.Memory.SetBytes(0x0302, 0x77)
	h.LoadProgram(0xB1, 0xFF) // LDA ($FF),Y -> pointer $FF/$00
	h.MustStep(t)
	if h.CPU.A != 0x77 {
		t.Errorf("Expected LDA ($FF),Y to read $0302, got 0x%02X", h.CPU.A)
	}
}

func TestIllegalComposites(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		a, x    uint8
		mem     uint8
		carry   bool
		wantA   uint8
		wantX   uint8
		wantMem uint8
	}{
		{"LAX zp", []uint8{0xA7, 0x10}, 0, 0, 0x5A, false, 0x5A, 0x5A, 0x5A},
		{"SAX zp", []uint8{0x87, 0x10}, 0xF0, 0x3C, 0, false, 0xF0, 0x3C, 0x30},
		{"DCP zp", []uint8{0xC7, 0x10}, 0x40, 0, 0x41, false, 0x40, 0, 0x40},
		{"ISB zp", []uint8{0xE7, 0x10}, 0x10, 0, 0x04, true, 0x0B, 0, 0x05},
		{"SLO zp", []uint8{0x07, 0x10}, 0x01, 0, 0x40, false, 0x81, 0, 0x80},
		{"RLA zp", []uint8{0x27, 0x10}, 0xFF, 0, 0x40, true, 0x81, 0, 0x81},
		{"SRE zp", []uint8{0x47, 0x10}, 0xFF, 0, 0x02, false, 0xFE, 0, 0x01},
		{"RRA zp", []uint8{0x67, 0x10}, 0x10, 0, 0x02, false, 0x11, 0, 0x01},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.CPU.A, h.CPU.X, h.CPU.C = test.a, test.x, test.carry
		h.Memory.SetBytes(0x0010, test.mem)
		h.LoadProgram(test.program...)
		h.MustStep(t)
		if h.CPU.A != test.wantA || h.CPU.X != test.wantX || h.Memory.data[0x0010] != test.wantMem {
			t.Errorf("%s: Expected A=0x%02X X=0x%02X M=0x%02X, got A=0x%02X X=0x%02X M=0x%02X",
				test.name, test.wantA, test.wantX, test.wantMem, h.CPU.A, h.CPU.X, h.Memory.data[0x0010])
		}
	}

	h := NewCPUTestHelper()
	h.CPU.A = 0x40
	h.Memory.SetBytes(0x0010, 0x41)
	h.LoadProgram(0xC7, 0x10)
	h.MustStep(t)
	if !h.CPU.Z || !h.CPU.C {
		t.Errorf("DCP: Expected compare equal after decrement, Z=%v C=%v", h.CPU.Z, h.CPU.C)
	}
}

func TestUnimplementedOpcodeHalts(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0x02) // KIL
	pc := h.CPU.PC

	cycles, err := h.CPU.Step()
	if err == nil {
		t.Fatal("Expected an error for KIL")
	}
	if cycles != 0 {
		t.Errorf("Expected 0 cycles, got %d", cycles)
	}
	if h.CPU.PC != pc {
		t.Errorf("Expected PC to stay at $%04X, got $%04X", pc, h.CPU.PC)
	}
	if _, again := h.CPU.Step(); again != err {
		t.Errorf("Expected the halt to persist, got %v", again)
	}

	for _, op := range []uint8{0x0B, 0x4B, 0x6B, 0xCB, 0x8B, 0xBB, 0x9B, 0x9C, 0x9E, 0x93, 0x9F} {
		if instructionMnemonics[op].Implemented() {
			t.Errorf("Expected $%02X (%s) to be unmodeled", op, instructionMnemonics[op])
		}
	}
}

func TestInterrupts(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(nmiVector, 0x00, 0x90)
	h.Memory.SetBytes(irqVector, 0x00, 0xA0)
	h.CPU.PC = 0x8123
	h.CPU.SetFlags(0x20 | cFlagMask)

	h.CPU.TriggerNMI()
	if cycles := h.MustStep(t); cycles != 7 {
		t.Errorf("Expected NMI to take 7 cycles, got %d", cycles)
	}
	if h.CPU.PC != 0x9000 {
		t.Errorf("Expected PC=$9000, got $%04X", h.CPU.PC)
	}
	if !h.CPU.I {
		t.Error("Expected I set after NMI")
	}
	if h.Memory.data[0x01FD] != 0x81 || h.Memory.data[0x01FC] != 0x23 || h.Memory.data[0x01FB] != 0x31 {
		t.Errorf("Expected stack 81 23 31, got %02X %02X %02X",
			h.Memory.data[0x01FD], h.Memory.data[0x01FC], h.Memory.data[0x01FB])
	}
	if h.CPU.Pending() != InterruptNone {
		t.Error("Expected latch cleared")
	}

	// IRQ is masked while I is set
	h.CPU.TriggerIRQ()
	if h.CPU.Pending() != InterruptNone {
		t.Error("Expected masked IRQ to be ignored")
	}

	h.CPU.I = false
	h.CPU.TriggerIRQ()
	h.MustStep(t)
	if h.CPU.PC != 0xA000 {
		t.Errorf("Expected IRQ to $A000, got $%04X", h.CPU.PC)
	}
}

func TestRTIRestoresState(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(nmiVector, 0x00, 0x90)
	h.Memory.SetBytes(0x9000, 0x40) // RTI
	h.CPU.PC = 0x8050
	h.CPU.SetFlags(0xA1)

	h.CPU.TriggerNMI()
	h.MustStep(t)
	h.MustStep(t)
	if h.CPU.PC != 0x8050 {
		t.Errorf("Expected RTI to $8050, got $%04X", h.CPU.PC)
	}
	if h.CPU.Flags() != 0xA1 {
		t.Errorf("Expected flags 0xA1, got 0x%02X", h.CPU.Flags())
	}
	if h.CPU.SP != 0xFD {
		t.Errorf("Expected SP restored to 0xFD, got 0x%02X", h.CPU.SP)
	}
}

func TestStall(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0xEA)
	h.CPU.Stall(3)
	before := h.CPU.Cycles()
	for i := 0; i < 3; i++ {
		if cycles := h.MustStep(t); cycles != 1 {
			t.Errorf("Expected stalled step to take 1 cycle, got %d", cycles)
		}
	}
	if h.CPU.PC != 0x8000 {
		t.Errorf("Expected PC unchanged while stalled, got $%04X", h.CPU.PC)
	}
	if cycles := h.MustStep(t); cycles != 2 {
		t.Errorf("Expected NOP 2 cycles, got %d", cycles)
	}
	if h.CPU.Cycles()-before != 5 {
		t.Errorf("Expected 5 total cycles, got %d", h.CPU.Cycles()-before)
	}
}

func TestSmallProgram(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(
		0xA2, 0x05, // LDX #$05
		0xA9, 0x00, // LDA #$00
		0x18,       // CLC
		0x69, 0x03, // ADC #$03
		0xCA,       // DEX
		0xD0, 0xFB, // BNE -5
		0x85, 0x40, // STA $40
	)
	for i := 0; i < 3+5*3+1; i++ {
		h.MustStep(t)
	}
	if h.Memory.data[0x0040] != 15 {
		t.Errorf("Expected $40=15, got %d", h.Memory.data[0x0040])
	}
	if h.CPU.PC != 0x800C {
		t.Errorf("Expected PC=$800C, got $%04X", h.CPU.PC)
	}
}
