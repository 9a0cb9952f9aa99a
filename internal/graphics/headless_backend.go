package graphics

import (
	"fmt"
	"log"

	"nescore/internal/debug"
	"nescore/internal/ppu"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow keeps the last frame and writes it out on Cleanup
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
	outputPath string
	last       *ppu.Frame
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	return &HeadlessWindow{
		title:      title,
		width:      width,
		height:     height,
		running:    true,
		outputPath: b.config.OutputPath,
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns empty events list (no input in headless mode)
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame records the frame
func (w *HeadlessWindow) RenderFrame(frame *ppu.Frame) error {
	w.frameCount++
	if w.last == nil {
		w.last = ppu.NewFrame()
	}
	w.last.Pixels = frame.Pixels
	return nil
}

// Cleanup saves the last frame to the output path, if one is set
func (w *HeadlessWindow) Cleanup() error {
	if !w.running {
		return nil
	}
	w.running = false

	if w.outputPath == "" || w.last == nil {
		return nil
	}
	if err := debug.SaveFrame(w.outputPath, w.last, 1); err != nil {
		return fmt.Errorf("failed to save final frame: %v", err)
	}
	log.Printf("[HEADLESS] Saved frame %d to %s", w.frameCount, w.outputPath)
	return nil
}

// SetOutputPath sets the destination for the final frame
func (w *HeadlessWindow) SetOutputPath(path string) {
	w.outputPath = path
}

// GetFrameCount returns the number of frames rendered
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// LastFrame returns the most recent frame, or nil before the first
func (w *HeadlessWindow) LastFrame() *ppu.Frame {
	return w.last
}
