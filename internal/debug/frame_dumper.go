// Package debug provides frame dumping, hashing and runtime inspection utilities
package debug

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"nescore/internal/ppu"
)

// PixelFilter selects which pixels a color report includes
type PixelFilter func(x, y int, rgb uint32) bool

// FrameDumper writes completed frames to image files
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumpCount    int
	maxDumps     int
	dumpInterval int // Dump every N frames
	scale        int
	pixelFilter  PixelFilter
}

// NewFrameDumper creates a new frame dumper
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		maxDumps:     10,
		dumpInterval: 1,
		scale:        1,
	}
}

// Enable activates frame dumping
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump; 0 means unlimited
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval < 1 {
		interval = 1
	}
	fd.dumpInterval = interval
}

// SetScale sets the integer upscale applied to dumped images
func (fd *FrameDumper) SetScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	fd.scale = scale
}

// SetPixelFilter sets a filter for the color report
func (fd *FrameDumper) SetPixelFilter(filter PixelFilter) {
	fd.pixelFilter = filter
}

// Dumps returns how many frames have been written
func (fd *FrameDumper) Dumps() int {
	return fd.dumpCount
}

// DumpFrame writes frame as a PNG if it falls on the dump interval. It
// returns the written path, or "" when the frame was skipped.
func (fd *FrameDumper) DumpFrame(frame *ppu.Frame, frameNum uint64) (string, error) {
	if !fd.dumpEnabled {
		return "", nil
	}
	if frameNum%uint64(fd.dumpInterval) != 0 {
		return "", nil
	}
	if fd.maxDumps > 0 && fd.dumpCount >= fd.maxDumps {
		return "", nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.png", frameNum))
	if err := SaveFrame(path, frame, fd.scale); err != nil {
		return "", err
	}
	fd.dumpCount++
	return path, nil
}

// DumpColorReport writes a per-color pixel count for frame next to the images
func (fd *FrameDumper) DumpColorReport(frame *ppu.Frame, frameNum uint64) error {
	if !fd.dumpEnabled {
		return nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d_colors.txt", frameNum))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create color report: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(file, "Hash: %08X\n\n", FrameHash(frame))
	return WriteColorReport(file, frame, fd.pixelFilter)
}

// SaveFrame writes frame to path, as PPM if the name ends in .ppm and PNG otherwise
func SaveFrame(path string, frame *ppu.Frame, scale int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".ppm") {
		err = WritePPM(file, frame)
	} else {
		err = WritePNG(file, frame, scale)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes frame as a PNG, upscaled by scale with nearest-neighbour sampling
func WritePNG(w io.Writer, frame *ppu.Frame, scale int) error {
	return png.Encode(w, ScaleFrame(frame, scale))
}

// ScaleFrame returns frame as an image enlarged by an integer factor
func ScaleFrame(frame *ppu.Frame, scale int) image.Image {
	src := frame.RGBA()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, ppu.Width*scale, ppu.Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WritePPM encodes frame as a binary (P6) PPM
func WritePPM(w io.Writer, frame *ppu.Frame) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", ppu.Width, ppu.Height)
	for _, pixel := range frame.Pixels {
		bw.WriteByte(uint8(pixel >> 16))
		bw.WriteByte(uint8(pixel >> 8))
		bw.WriteByte(uint8(pixel))
	}
	return bw.Flush()
}

// WriteColorReport writes one line per distinct color with its pixel count,
// most frequent first.
func WriteColorReport(w io.Writer, frame *ppu.Frame, filter PixelFilter) error {
	freq := make(map[uint32]int)
	total := 0
	for y := 0; y < ppu.Height; y++ {
		for x := 0; x < ppu.Width; x++ {
			pixel := frame.Pixel(x, y)
			if filter != nil && !filter(x, y, pixel) {
				continue
			}
			freq[pixel]++
			total++
		}
	}

	colors := make([]uint32, 0, len(freq))
	for color := range freq {
		colors = append(colors, color)
	}
	sort.Slice(colors, func(i, j int) bool {
		if freq[colors[i]] != freq[colors[j]] {
			return freq[colors[i]] > freq[colors[j]]
		}
		return colors[i] < colors[j]
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Color   | Entry | Count | Percentage\n")
	fmt.Fprintf(bw, "--------|-------|-------|-----------\n")
	for _, color := range colors {
		entry := "  -  "
		if index, ok := PaletteEntry(color); ok {
			entry = fmt.Sprintf(" $%02X ", index)
		}
		fmt.Fprintf(bw, "#%06X | %s | %5d | %6.2f%%\n",
			color, entry, freq[color], float64(freq[color])/float64(total)*100)
	}
	return bw.Flush()
}

// PaletteEntry finds the first system palette index that produces rgb
func PaletteEntry(rgb uint32) (uint8, bool) {
	for i := 0; i < 64; i++ {
		if ppu.ColorRGB(uint8(i)) == rgb {
			return uint8(i), true
		}
	}
	return 0, false
}

// CreateRegionFilter creates a filter for a specific rectangular region
func CreateRegionFilter(x1, y1, x2, y2 int) PixelFilter {
	return func(x, y int, rgb uint32) bool {
		return x >= x1 && x <= x2 && y >= y1 && y <= y2
	}
}

// CreateColorFilter creates a filter matching one palette entry
func CreateColorFilter(entry uint8) PixelFilter {
	want := ppu.ColorRGB(entry)
	return func(x, y int, rgb uint32) bool {
		return rgb == want
	}
}
