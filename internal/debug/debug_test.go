package debug

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nescore/internal/console"
	"nescore/internal/ppu"
)

func TestFrameHash(t *testing.T) {
	frame := ppu.NewFrame()
	if got := FrameHash(frame); got != 0x644B46ED {
		t.Errorf("Expected black frame hash 644B46ED, got %08X", got)
	}

	frame.Set(0, 0, 0xFF8000)
	if got := FrameHash(frame); got != 0xDC474243 {
		t.Errorf("Expected hash DC474243 after one pixel, got %08X", got)
	}

	if FrameHash(frame.Clone()) != FrameHash(frame) {
		t.Error("Expected identical frames to hash the same")
	}
}

func TestWritePNG_Scales(t *testing.T) {
	frame := ppu.NewFrame()
	frame.Set(1, 0, 0x102030)

	var buf bytes.Buffer
	if err := WritePNG(&buf, frame, 2); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 480 {
		t.Fatalf("Expected 512x480, got %dx%d", b.Dx(), b.Dy())
	}
	for _, p := range [][2]int{{2, 0}, {3, 0}, {2, 1}, {3, 1}} {
		r, g, b, _ := img.At(p[0], p[1]).RGBA()
		if r>>8 != 0x10 || g>>8 != 0x20 || b>>8 != 0x30 {
			t.Errorf("Expected scaled pixel at %v, got %02X%02X%02X", p, r>>8, g>>8, b>>8)
		}
	}
}

func TestWritePPM(t *testing.T) {
	frame := ppu.NewFrame()
	frame.Set(0, 0, 0xAABBCC)

	var buf bytes.Buffer
	if err := WritePPM(&buf, frame); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	header := "P6\n256 240\n255\n"
	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte(header)) {
		t.Fatalf("Expected PPM header, got %q", data[:len(header)])
	}
	if len(data) != len(header)+256*240*3 {
		t.Errorf("Expected %d bytes, got %d", len(header)+256*240*3, len(data))
	}
	if !bytes.Equal(data[len(header):len(header)+3], []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Expected first pixel AABBCC, got % X", data[len(header):len(header)+3])
	}
}

func TestWriteColorReport(t *testing.T) {
	frame := ppu.NewFrame()
	sky := ppu.ColorRGB(0x22)
	for x := 0; x < 10; x++ {
		frame.Set(x, 0, sky)
	}

	var buf bytes.Buffer
	if err := WriteColorReport(&buf, frame, CreateRegionFilter(0, 0, 19, 0)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header plus two colors, got %d lines:\n%s", len(lines), buf.String())
	}
	// ties sort by color, so black comes first
	if !strings.Contains(lines[3], "$22") || !strings.Contains(lines[3], "50.00%") {
		t.Errorf("Expected sky blue at 50%%, got %q", lines[3])
	}
}

func TestFrameDumper_ColorReportFilter(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir)
	if err := fd.Enable(); err != nil {
		t.Fatal(err)
	}
	frame := ppu.NewFrame()
	for x := 0; x < 10; x++ {
		frame.Set(x, 0, ppu.ColorRGB(0x22))
	}
	fd.SetPixelFilter(CreateRegionFilter(0, 0, 9, 0))

	if err := fd.DumpColorReport(frame, 5); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "frame_000005_colors.txt"))
	if err != nil {
		t.Fatalf("Expected color report: %v", err)
	}
	report := string(data)
	if !strings.Contains(report, "Frame Number: 5") {
		t.Errorf("Expected frame number in report:\n%s", report)
	}
	if !strings.Contains(report, "$22") || !strings.Contains(report, "100.00%") {
		t.Errorf("Expected only the filtered region counted:\n%s", report)
	}
}

func TestCreateColorFilter(t *testing.T) {
	filter := CreateColorFilter(0x30)
	if !filter(0, 0, ppu.ColorRGB(0x30)) || filter(0, 0, ppu.ColorRGB(0x0F)) {
		t.Error("Expected filter to match only palette entry $30")
	}
}

func TestFrameDumper_IntervalAndLimit(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir)
	frame := ppu.NewFrame()

	if path, _ := fd.DumpFrame(frame, 0); path != "" {
		t.Error("Expected no dump while disabled")
	}
	if err := fd.Enable(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fd.SetDumpInterval(2)
	fd.SetMaxDumps(2)

	for n := uint64(0); n < 10; n++ {
		if _, err := fd.DumpFrame(frame, n); err != nil {
			t.Fatalf("Frame %d: unexpected error: %v", n, err)
		}
	}
	if fd.Dumps() != 2 {
		t.Errorf("Expected 2 dumps, got %d", fd.Dumps())
	}
	for _, name := range []string{"frame_000000.png", "frame_000002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
}

func TestSaveFrame_PicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	frame := ppu.NewFrame()

	ppmPath := filepath.Join(dir, "out.PPM")
	if err := SaveFrame(ppmPath, frame, 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, _ := os.ReadFile(ppmPath)
	if !bytes.HasPrefix(data, []byte("P6")) {
		t.Error("Expected PPM output for .ppm path")
	}

	pngPath := filepath.Join(dir, "out.png")
	if err := SaveFrame(pngPath, frame, 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, _ = os.ReadFile(pngPath)
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Expected PNG output for .png path")
	}
}

func TestSession(t *testing.T) {
	s := NewSession(t.TempDir())
	if err := s.Stop(); err == nil {
		t.Error("Expected error stopping an inactive session")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Expected error starting twice")
	}

	frame := ppu.NewFrame()
	for n := uint64(0); n < 3; n++ {
		if err := s.ProcessFrame(frame, n); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	report, err := os.ReadFile(filepath.Join(s.OutputDir(), "session.txt"))
	if err != nil {
		t.Fatalf("Expected session report: %v", err)
	}
	if !strings.Contains(string(report), "Frames Recorded: 3") {
		t.Errorf("Expected 3 recorded frames in report:\n%s", report)
	}
	if !strings.Contains(string(report), "644B46ED") {
		t.Errorf("Expected frame hashes in report:\n%s", report)
	}
	if _, err := os.Stat(filepath.Join(s.OutputDir(), "frame_000000_colors.txt")); err != nil {
		t.Errorf("Expected color report for dumped frame: %v", err)
	}
}

func TestWriteStateGraph(t *testing.T) {
	var state console.State
	state.CPU.PC = 0xC000
	state.PPU.Scanline = 241

	var buf bytes.Buffer
	WriteStateGraph(&buf, state)
	out := buf.String()
	if !strings.Contains(out, "digraph") {
		t.Fatalf("Expected Graphviz output, got %q", out)
	}
	if !strings.Contains(out, "49152") && !strings.Contains(out, "0xc000") {
		t.Errorf("Expected PC value in graph, got %q", out)
	}
}
