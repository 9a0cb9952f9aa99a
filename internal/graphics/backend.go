// Package graphics provides an abstraction layer for different rendering backends
package graphics

import (
	"fmt"
	"strings"

	"nescore/internal/input"
	"nescore/internal/ppu"
)

// Backend represents a graphics rendering backend (Ebitengine, terminal, headless)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for rendering
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running in headless mode
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a rendering window
type Window interface {
	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// PollEvents returns the input events seen since the last call
	PollEvents() []InputEvent

	// RenderFrame presents a completed NES frame
	RenderFrame(frame *ppu.Frame) error

	// Cleanup releases window resources
	Cleanup() error
}

// Config contains configuration for graphics backends
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	Filter  string // "nearest", "linear"
	ShowFPS bool

	// Player 1 key bindings; nil uses DefaultKeyMap
	KeyMap KeyMap

	// Headless: final frame destination, .png or .ppm
	OutputPath string

	Headless bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     Key
	Button  input.Button
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeButton
	InputEventTypeQuit
)

// Key represents keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeyF1
	KeyF2
	KeyF3
	KeyF4
)

var keyNames = map[string]Key{
	"escape": KeyEscape,
	"esc":    KeyEscape,
	"enter":  KeyEnter,
	"return": KeyEnter,
	"space":  KeySpace,
	"up":     KeyUp,
	"down":   KeyDown,
	"left":   KeyLeft,
	"right":  KeyRight,
	"f1":     KeyF1,
	"f2":     KeyF2,
	"f3":     KeyF3,
	"f4":     KeyF4,
}

// ParseKey resolves a key name such as "N", "Up" or "Enter"
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		return KeyA + Key(name[0]-'a'), nil
	}
	if key, ok := keyNames[name]; ok {
		return key, nil
	}
	return KeyUnknown, fmt.Errorf("unknown key %q", name)
}

// KeyMap binds keys to controller buttons
type KeyMap map[Key]input.Button

// DefaultKeyMap returns the arrows for the d-pad, N for Start, M for Select,
// A for the A button and B for the B button.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		KeyUp:    input.ButtonUp,
		KeyDown:  input.ButtonDown,
		KeyLeft:  input.ButtonLeft,
		KeyRight: input.ButtonRight,
		KeyN:     input.ButtonStart,
		KeyM:     input.ButtonSelect,
		KeyA:     input.ButtonA,
		KeyB:     input.ButtonB,
	}
}

// mapKeyEvents converts bound key events to button events and passes the rest through
func mapKeyEvents(events []InputEvent, keyMap KeyMap) []InputEvent {
	if keyMap == nil {
		keyMap = DefaultKeyMap()
	}
	mapped := make([]InputEvent, 0, len(events))
	for _, event := range events {
		if event.Type == InputEventTypeKey {
			if button, ok := keyMap[event.Key]; ok {
				mapped = append(mapped, InputEvent{
					Type:    InputEventTypeButton,
					Key:     event.Key,
					Button:  button,
					Pressed: event.Pressed,
				})
				continue
			}
		}
		mapped = append(mapped, event)
	}
	return mapped
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	if ebitengineWindow, ok := window.(*EbitengineWindow); ok {
		return ebitengineWindow, true
	}
	return nil, false
}
