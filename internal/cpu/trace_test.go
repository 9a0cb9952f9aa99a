package cpu

import (
	"bytes"
	"strings"
	"testing"
)

func TestTraceLineLayout(t *testing.T) {
	h := NewCPUTestHelperAt(0xC000)
	h.LoadProgram(0x4C, 0xF5, 0xC5) // JMP $C5F5

	line := TraceLine(h.CPU, 0x4C, func() (int, int) { return 0, 21 })
	want := "C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD PPU:  0, 21 CYC:7"
	if line != want {
		t.Errorf("Expected\n%q\ngot\n%q", want, line)
	}
	if strings.Index(line, "A:") != 48 {
		t.Errorf("Expected register block at column 48, got %d", strings.Index(line, "A:"))
	}
}

func TestTraceMarksUnofficialOpcodes(t *testing.T) {
	tests := []struct {
		opcode uint8
		name   string
		star   bool
	}{
		{0xEA, "NOP", false},
		{0x04, "NOP", true},
		{0xE9, "SBC", false},
		{0xEB, "SBC", true},
		{0xE7, "ISB", true},
		{0xA7, "LAX", true},
		{0xA9, "LDA", false},
	}

	for _, test := range tests {
		h := NewCPUTestHelper()
		h.LoadProgram(test.opcode, 0x10, 0x00)
		line := TraceLine(h.CPU, test.opcode, nil)
		marker := line[15]
		if (marker == '*') != test.star {
			t.Errorf("$%02X: Expected unofficial=%v, got marker %q", test.opcode, test.star, marker)
		}
		if got := line[16:19]; got != test.name {
			t.Errorf("$%02X: Expected mnemonic %s, got %s", test.opcode, test.name, got)
		}
	}
}

func TestSetTracerWritesEachInstruction(t *testing.T) {
	h := NewCPUTestHelper()
	var buf bytes.Buffer
	h.CPU.SetTracer(&buf, nil)
	h.LoadProgram(0xA9, 0x01, 0xAA, 0xEA) // LDA #$01; TAX; NOP

	for i := 0; i < 3; i++ {
		h.MustStep(t)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 trace lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "8002  AA") || !strings.Contains(lines[1], "A:01 X:00") {
		t.Errorf("Expected TAX line with pre-execution registers, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "CYC:11") {
		t.Errorf("Expected third line at CYC:11, got %q", lines[2])
	}

	h.CPU.SetTracer(nil, nil)
	h.LoadProgram(0xEA)
	h.MustStep(t)
	if strings.Count(buf.String(), "\n") != 3 {
		t.Error("Expected tracing to stop after SetTracer(nil)")
	}
}
