// Package app implements the main NES emulator application with GUI support.
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"nescore/internal/cartridge"
	"nescore/internal/console"
	"nescore/internal/debug"
	"nescore/internal/graphics"
	"nescore/internal/input"
	"nescore/internal/ppu"
)

// Application represents the main NES emulator application
type Application struct {
	console *console.Console

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	// Application state
	config   *Config
	emulator *Emulator
	sram     *SRAMStore

	// Control flags
	running     bool
	paused      bool
	initialized bool
	headless    bool

	startTime time.Time

	// ROM management
	romPath   string
	cartridge *cartridge.Cartridge

	// player 1 buttons currently held
	buttons uint8

	// Debug outputs
	trace     io.WriteCloser
	session   *debug.Session
	stopStats func()
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates a new NES emulator application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new NES emulator application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()

	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			var configErr *ConfigError
			if errors.As(err, &configErr) {
				return nil, err
			}
			log.Printf("[APP] Could not load config from %s, using defaults: %v", configPath, err)
		}
	}

	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates an application around an existing configuration
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	app := &Application{
		config:    config,
		headless:  headless,
		startTime: time.Now(),
		sram:      NewSRAMStore(config.Emulation.SRAMDir),
	}

	if err := app.initializeGraphicsBackend(headless); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "graphics setup",
			Err:       err,
		}
	}

	app.initialized = true
	return app, nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend(headless bool) error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if headless {
		backendType = graphics.BackendHeadless
	}

	keyMap, err := app.config.KeyMap()
	if err != nil {
		return err
	}

	width, height := app.config.GetWindowResolution()
	graphicsConfig := graphics.Config{
		WindowTitle:  "nescore",
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		ShowFPS:      app.config.Video.ShowFPS,
		KeyMap:       keyMap,
		OutputPath:   app.config.Video.Output,
		Headless:     backendType == graphics.BackendHeadless,
	}

	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %v", err)
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %v", err)
		}
		// No display available
		log.Printf("[APP] Ebitengine backend failed (%v), falling back to headless mode", err)
		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %v", err)
		}
	}
	app.headless = app.graphicsBackend.IsHeadless()

	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %v", err)
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)

	return nil
}

// LoadROM loads a ROM file into a fresh console
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	cart, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}

	// the outgoing cartridge's save must land before the new one is read
	app.saveSRAM()

	if restored, err := app.sram.Load(cart, romPath); err != nil {
		log.Printf("[APP] Could not restore SRAM: %v", err)
	} else if restored {
		log.Printf("[APP] Restored SRAM from %s", app.sram.Path(romPath))
	}

	nes, err := console.New(cart)
	if err != nil {
		return &ApplicationError{Component: "console", Operation: "create", Err: err}
	}

	if err := app.closeTrace(); err != nil {
		log.Printf("[APP] Trace close error: %v", err)
	}

	app.cartridge = cart
	app.romPath = romPath
	app.console = nes
	app.buttons = 0

	if err := app.configureDebug(); err != nil {
		return &ApplicationError{Component: "debug", Operation: "configure", Err: err}
	}
	nes.OnFrame(app.onFrame)

	if app.window != nil {
		app.window.SetTitle(fmt.Sprintf("nescore - %s", filepath.Base(romPath)))
	}

	log.Printf("[APP] Loaded %s: mapper %d, %d KiB PRG, %s mirroring, battery %v",
		filepath.Base(romPath), cart.MapperID(), cart.PRGSize()/1024, cart.Mirror(), cart.HasBattery())

	app.emulator = NewEmulator(nes, app.config.Emulation.FrameRate)
	app.emulator.Start()

	return nil
}

// configureDebug opens the trace output and the frame dump session
func (app *Application) configureDebug() error {
	cfg := app.config.Debug

	if cfg.PrintInstruction {
		if cfg.TraceFile == "" {
			app.console.SetTracer(os.Stdout)
		} else {
			f, err := os.Create(cfg.TraceFile)
			if err != nil {
				return fmt.Errorf("failed to create trace file: %v", err)
			}
			app.trace = f
			app.console.SetTracer(f)
		}
	}

	if cfg.DumpDir != "" && app.session == nil {
		app.session = debug.NewSession(cfg.DumpDir)
		app.session.Dumper().SetDumpInterval(cfg.DumpInterval)
		app.session.Dumper().SetScale(app.config.Window.Scale)
		if err := app.session.Start(); err != nil {
			app.session = nil
			return err
		}
	}

	if cfg.StatsView && app.stopStats == nil {
		app.stopStats = debug.StartStatsView()
	}

	return nil
}

// saveSRAM writes the battery RAM of the loaded cartridge, if it has one
func (app *Application) saveSRAM() error {
	if app.cartridge == nil {
		return nil
	}
	saved, err := app.sram.Save(app.cartridge, app.romPath)
	if err != nil {
		log.Printf("[APP] SRAM save error: %v", err)
		return err
	}
	if saved {
		log.Printf("[APP] Saved SRAM to %s", app.sram.Path(app.romPath))
	}
	return nil
}

func (app *Application) closeTrace() error {
	if app.trace == nil {
		return nil
	}
	err := app.trace.Close()
	app.trace = nil
	return err
}

// onFrame receives every completed frame from the console
func (app *Application) onFrame(frame *ppu.Frame) {
	n := app.console.FrameCount()
	if app.config.Debug.PrintFrameHash {
		log.Printf("[APP] Frame %d hash 0x%08X", n, debug.FrameHash(frame))
	}
	if app.session != nil {
		if err := app.session.ProcessFrame(frame, n); err != nil {
			log.Printf("[APP] Frame dump failed: %v", err)
		}
	}
}

// Run starts the main application loop
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.console == nil {
		return errors.New("no ROM loaded")
	}

	app.running = true
	app.startTime = time.Now()
	log.Printf("[APP] Starting emulator with %s backend", app.graphicsBackend.GetName())

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			err := app.tick()
			if !app.running {
				ebitengineWindow.Cleanup()
			}
			return err
		})
		if err := ebitengineWindow.Run(); err != nil {
			var appErr *ApplicationError
			if errors.As(err, &appErr) {
				return err
			}
			return &ApplicationError{Component: "graphics", Operation: "run", Err: err}
		}
		log.Printf("[APP] Emulator main loop ended after %d frames", app.emulator.GetFrameCount())
		return nil
	}

	for app.running {
		if err := app.tick(); err != nil {
			return err
		}
		time.Sleep(app.emulator.UntilNextFrame())
	}

	log.Printf("[APP] Emulator main loop ended after %d frames", app.emulator.GetFrameCount())
	return nil
}

// tick handles input, runs due frames and presents the newest one
func (app *Application) tick() error {
	app.processInput()

	ran, err := app.updateEmulator()
	if err != nil {
		return err
	}
	if ran > 0 {
		if err := app.render(); err != nil {
			return err
		}
	}

	if app.window != nil && app.window.ShouldClose() {
		app.Stop()
	}
	return nil
}

// RunFrames runs n frames as fast as possible and presents each one. Stop
// ends the run early.
func (app *Application) RunFrames(n int) error {
	if app.console == nil {
		return errors.New("no ROM loaded")
	}
	app.running = true
	defer app.Stop()
	for i := 0; i < n && app.running; i++ {
		if err := app.emulator.RunFrame(); err != nil {
			return &ApplicationError{Component: "console", Operation: "step", Err: err}
		}
		if err := app.render(); err != nil {
			return err
		}
	}
	return nil
}

// updateEmulator advances the console by the frames that are due
func (app *Application) updateEmulator() (int, error) {
	if app.paused || app.emulator == nil || !app.emulator.IsRunning() {
		return 0, nil
	}
	ran, err := app.emulator.Update()
	if err != nil {
		log.Printf("[APP] Console halted: %v", err)
		return ran, &ApplicationError{Component: "console", Operation: "step", Err: err}
	}
	return ran, nil
}

// processInput applies window events to the controller and application
func (app *Application) processInput() {
	if app.window == nil {
		return
	}

	changed := false
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return

		case graphics.InputEventTypeButton:
			app.setButton(event.Button, event.Pressed)
			changed = true

		case graphics.InputEventTypeKey:
			app.handleKeyInput(event)
		}
	}

	if changed && app.console != nil {
		app.console.SetButtons(app.buttons, 0)
	}
}

func (app *Application) setButton(button input.Button, pressed bool) {
	if pressed {
		app.buttons |= uint8(button)
	} else {
		app.buttons &^= uint8(button)
	}
}

// handleKeyInput handles unbound keys: F1 resets, F2 pauses
func (app *Application) handleKeyInput(event graphics.InputEvent) {
	if !event.Pressed {
		return
	}
	switch event.Key {
	case graphics.KeyF1:
		log.Printf("[APP] Reset")
		app.Reset()
	case graphics.KeyF2:
		app.TogglePause()
		log.Printf("[APP] Paused: %v", app.paused)
	}
}

// SetControllerButtons sets the player 1 and player 2 masks for the next frame
func (app *Application) SetControllerButtons(player1, player2 uint8) {
	app.buttons = player1
	if app.console != nil {
		app.console.SetButtons(player1, player2)
	}
}

// Console returns the running console
func (app *Application) Console() *console.Console {
	return app.console
}

// render presents the last completed frame
func (app *Application) render() error {
	if app.window == nil || app.console == nil {
		return nil
	}

	frame := app.console.Frame()
	if app.videoProcessor != nil {
		frame = app.videoProcessor.ProcessFrame(frame)
	}
	if err := app.window.RenderFrame(frame); err != nil {
		return fmt.Errorf("failed to render NES frame: %v", err)
	}
	return nil
}

// DumpState writes a graph of the current machine state to path
func (app *Application) DumpState(path string) error {
	if app.console == nil {
		return errors.New("no ROM loaded")
	}
	return debug.DumpState(path, app.console.State())
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
	if app.emulator != nil && app.emulator.IsRunning() {
		app.emulator.Start()
	}
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	if app.paused {
		app.Resume()
	} else {
		app.Pause()
	}
}

// Reset presses the reset button, or power cycles a halted console, and
// restarts pacing
func (app *Application) Reset() {
	if app.console == nil {
		return
	}
	if app.console.Err() != nil {
		app.console.Reset()
	} else {
		app.console.SoftReset()
	}
	app.buttons = 0
	app.emulator.Start()
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// IsHeadless reports whether frames go to a headless window
func (app *Application) IsHeadless() bool {
	return app.headless
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	if app.console == nil {
		return 0
	}
	return app.console.FrameCount()
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	var lastErr error

	if err := app.saveSRAM(); err != nil {
		lastErr = err
	}

	if app.session != nil {
		if err := app.session.Stop(); err != nil {
			lastErr = err
			log.Printf("[APP] Debug session error: %v", err)
		}
		app.session = nil
	}

	if err := app.closeTrace(); err != nil {
		lastErr = err
	}

	if app.stopStats != nil {
		app.stopStats()
		app.stopStats = nil
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] Window cleanup error: %v", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] Graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	return lastErr
}
