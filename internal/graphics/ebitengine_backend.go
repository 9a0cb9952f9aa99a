//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"nescore/internal/ppu"
)

// ebitenKeys lists the keys polled each tick
var ebitenKeys = []struct {
	ebiten ebiten.Key
	key    Key
}{
	{ebiten.KeyEscape, KeyEscape},
	{ebiten.KeyEnter, KeyEnter},
	{ebiten.KeySpace, KeySpace},
	{ebiten.KeyArrowUp, KeyUp},
	{ebiten.KeyArrowDown, KeyDown},
	{ebiten.KeyArrowLeft, KeyLeft},
	{ebiten.KeyArrowRight, KeyRight},
	{ebiten.KeyA, KeyA}, {ebiten.KeyB, KeyB}, {ebiten.KeyC, KeyC}, {ebiten.KeyD, KeyD},
	{ebiten.KeyE, KeyE}, {ebiten.KeyF, KeyF}, {ebiten.KeyG, KeyG}, {ebiten.KeyH, KeyH},
	{ebiten.KeyI, KeyI}, {ebiten.KeyJ, KeyJ}, {ebiten.KeyK, KeyK}, {ebiten.KeyL, KeyL},
	{ebiten.KeyM, KeyM}, {ebiten.KeyN, KeyN}, {ebiten.KeyO, KeyO}, {ebiten.KeyP, KeyP},
	{ebiten.KeyQ, KeyQ}, {ebiten.KeyR, KeyR}, {ebiten.KeyS, KeyS}, {ebiten.KeyT, KeyT},
	{ebiten.KeyU, KeyU}, {ebiten.KeyV, KeyV}, {ebiten.KeyW, KeyW}, {ebiten.KeyX, KeyX},
	{ebiten.KeyY, KeyY}, {ebiten.KeyZ, KeyZ},
	{ebiten.KeyF1, KeyF1}, {ebiten.KeyF2, KeyF2}, {ebiten.KeyF3, KeyF3}, {ebiten.KeyF4, KeyF4},
}

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the emulator
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	pixels       []byte
	windowWidth  int
	windowHeight int
	filter       ebiten.Filter
	showFPS      bool
	keyMap       KeyMap
	frames       uint64
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	filter := ebiten.FilterNearest
	if b.config.Filter == "linear" {
		filter = ebiten.FilterLinear
	}

	game := &EbitengineGame{
		frameImage:   ebiten.NewImage(ppu.Width, ppu.Height),
		pixels:       make([]byte, ppu.Width*ppu.Height*4),
		windowWidth:  width,
		windowHeight: height,
		filter:       filter,
		showFPS:      b.config.ShowFPS,
		keyMap:       b.config.KeyMap,
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns the events gathered since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a NES frame to the window texture
func (w *EbitengineWindow) RenderFrame(frame *ppu.Frame) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	pix := w.game.pixels
	for i, rgb := range frame.Pixels {
		pix[i*4+0] = uint8(rgb >> 16)
		pix[i*4+1] = uint8(rgb >> 8)
		pix[i*4+2] = uint8(rgb)
		pix[i*4+3] = 0xFF
	}
	w.game.frameImage.WritePixels(pix)
	w.game.frames++
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop and blocks until the window closes
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the function run on every Ebitengine tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}
	if !g.window.running {
		return ebiten.Termination
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
			return err
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 255})

	scale, offsetX, offsetY := fitScale(g.windowWidth, g.windowHeight)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = g.filter
	screen.DrawImage(g.frameImage, op)

	if g.showFPS {
		g.drawOverlay(screen)
	}
}

// drawOverlay prints FPS and the frame counter in the top-left corner
func (g *EbitengineGame) drawOverlay(screen *ebiten.Image) {
	label := fmt.Sprintf("FPS %5.1f  frame %d", ebiten.ActualFPS(), g.frames)
	face := basicfont.Face7x13
	width := text.BoundString(face, label).Dx()
	ebitenutil.DrawRect(screen, 0, 0, float64(width+12), 20, color.RGBA{0, 0, 0, 180})
	text.Draw(screen, label, face, 6, 14, color.RGBA{0, 220, 90, 255})
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// fitScale returns the largest aspect-preserving scale for a NES frame and
// the offsets that centre it.
func fitScale(width, height int) (scale, offsetX, offsetY float64) {
	scale = float64(width) / ppu.Width
	if sy := float64(height) / ppu.Height; sy < scale {
		scale = sy
	}
	offsetX = (float64(width) - ppu.Width*scale) / 2
	offsetY = (float64(height) - ppu.Height*scale) / 2
	return scale, offsetX, offsetY
}

// processInput turns key edges into events
func (g *EbitengineGame) processInput() {
	var raw []InputEvent
	for _, k := range ebitenKeys {
		switch {
		case inpututil.IsKeyJustPressed(k.ebiten):
			raw = append(raw, InputEvent{Type: InputEventTypeKey, Key: k.key, Pressed: true})
		case inpututil.IsKeyJustReleased(k.ebiten):
			raw = append(raw, InputEvent{Type: InputEventTypeKey, Key: k.key, Pressed: false})
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		raw = append(raw, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	g.window.events = append(g.window.events, mapKeyEvents(raw, g.keyMap)...)
}
