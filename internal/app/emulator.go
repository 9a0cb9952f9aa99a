package app

import (
	"fmt"
	"time"

	"nescore/internal/console"
)

// maxCatchUpFrames bounds how many frames one Update may run after a stall
const maxCatchUpFrames = 4

// Emulator paces a console against the wall clock
type Emulator struct {
	console *console.Console

	targetFrameTime time.Duration
	accumulatedTime time.Duration
	lastUpdateTime  time.Time

	frameCount  uint64
	droppedTime time.Duration

	isRunning bool

	// clock source, replaced in tests
	now func() time.Time
}

// NewEmulator creates an emulator that runs frameRate frames per second
func NewEmulator(c *console.Console, frameRate float64) *Emulator {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &Emulator{
		console:         c,
		targetFrameTime: time.Duration(float64(time.Second) / frameRate),
		now:             time.Now,
	}
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
	e.lastUpdateTime = e.now()
	e.accumulatedTime = 0
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// IsRunning reports whether Update advances the console
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// Update runs every frame that is due since the previous call and returns
// how many ran. Time beyond maxCatchUpFrames is dropped.
func (e *Emulator) Update() (int, error) {
	if !e.isRunning {
		return 0, nil
	}

	now := e.now()
	e.accumulatedTime += now.Sub(e.lastUpdateTime)
	e.lastUpdateTime = now

	if limit := maxCatchUpFrames * e.targetFrameTime; e.accumulatedTime > limit {
		e.droppedTime += e.accumulatedTime - limit
		e.accumulatedTime = limit
	}

	frames := 0
	for e.accumulatedTime >= e.targetFrameTime {
		if err := e.RunFrame(); err != nil {
			e.isRunning = false
			return frames, err
		}
		e.accumulatedTime -= e.targetFrameTime
		frames++
	}
	return frames, nil
}

// RunFrame runs one frame immediately
func (e *Emulator) RunFrame() error {
	if err := e.console.StepFrame(); err != nil {
		return fmt.Errorf("frame execution error: %w", err)
	}
	e.frameCount++
	return nil
}

// UntilNextFrame returns the time left before the next frame is due
func (e *Emulator) UntilNextFrame() time.Duration {
	due := e.targetFrameTime - e.accumulatedTime - e.now().Sub(e.lastUpdateTime)
	if due < 0 {
		return 0
	}
	return due
}

// GetFrameCount returns the number of frames run
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetTargetFrameTime returns the duration of one frame
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetDroppedTime returns the wall time skipped to keep up
func (e *Emulator) GetDroppedTime() time.Duration {
	return e.droppedTime
}
