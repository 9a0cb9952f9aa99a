// Package app provides configuration management for the NES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"nescore/internal/graphics"
	"nescore/internal/input"
	"nescore/internal/ppu"
)

// NTSC frame rate of the NES
const DefaultFrameRate = 60.098814

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Scale      int  `json:"scale"` // NES resolution multiplier
	Fullscreen bool `json:"fullscreen"`
	Width      int  `json:"width"`  // 0 derives from scale
	Height     int  `json:"height"` // 0 derives from scale
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend    string  `json:"backend"` // "ebitengine", "headless", "terminal"
	VSync      bool    `json:"vsync"`
	Filter     string  `json:"filter"` // "nearest", "linear"
	ShowFPS    bool    `json:"show_fps"`
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`
	Output     string  `json:"output"` // headless final frame, .png or .ppm
}

// InputConfig contains input configuration
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
}

// KeyMapping represents keyboard key mappings for NES controller
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	FrameRate float64 `json:"frame_rate"`
	SRAMDir   string  `json:"sram_dir"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	PrintInstruction bool   `json:"print_instruction"`
	PrintFrameHash   bool   `json:"print_frame_hash"`
	TraceFile        string `json:"trace_file"` // empty traces to stdout
	StatsView        bool   `json:"statsview"`
	DumpDir          string `json:"dump_dir"` // empty disables frame dumps
	DumpInterval     int    `json:"dump_interval"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Scale:      4,
			Fullscreen: false,
		},
		Video: VideoConfig{
			Backend:    "ebitengine",
			VSync:      true,
			Filter:     "nearest",
			ShowFPS:    false,
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
			Output:     "frame.png",
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up:     "Up",
				Down:   "Down",
				Left:   "Left",
				Right:  "Right",
				A:      "A",
				B:      "B",
				Start:  "N",
				Select: "M",
			},
		},
		Emulation: EmulationConfig{
			FrameRate: DefaultFrameRate,
			SRAMDir:   "./saves",
		},
		Debug: DebugConfig{
			DumpInterval: 60,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	// Missing file: write the defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// validate rejects unusable settings and resets out-of-range numbers to defaults
func (c *Config) validate() error {
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return &ConfigError{Field: "window", Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Err: fmt.Errorf("negative window dimensions")}
	}

	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless, graphics.BackendTerminal:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: fmt.Errorf("unknown backend")}
	}

	switch c.Video.Filter {
	case "nearest", "linear":
	case "":
		c.Video.Filter = "nearest"
	default:
		return &ConfigError{Field: "video.filter", Value: c.Video.Filter, Err: fmt.Errorf("unknown filter")}
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = DefaultFrameRate
	}

	if c.Debug.DumpInterval <= 0 {
		c.Debug.DumpInterval = 1
	}

	if _, err := c.KeyMap(); err != nil {
		return err
	}

	return nil
}

// KeyMap resolves the player 1 key names into a key map
func (c *Config) KeyMap() (graphics.KeyMap, error) {
	keys := c.Input.Player1Keys
	bindings := []struct {
		field  string
		name   string
		button input.Button
	}{
		{"up", keys.Up, input.ButtonUp},
		{"down", keys.Down, input.ButtonDown},
		{"left", keys.Left, input.ButtonLeft},
		{"right", keys.Right, input.ButtonRight},
		{"a", keys.A, input.ButtonA},
		{"b", keys.B, input.ButtonB},
		{"start", keys.Start, input.ButtonStart},
		{"select", keys.Select, input.ButtonSelect},
	}

	keyMap := make(graphics.KeyMap, len(bindings))
	for _, binding := range bindings {
		if binding.name == "" {
			continue
		}
		key, err := graphics.ParseKey(binding.name)
		if err != nil {
			return nil, &ConfigError{Field: "input.player1_keys." + binding.field, Value: binding.name, Err: err}
		}
		if _, dup := keyMap[key]; dup {
			return nil, &ConfigError{Field: "input.player1_keys." + binding.field, Value: binding.name,
				Err: fmt.Errorf("key bound twice")}
		}
		keyMap[key] = binding.button
	}
	return keyMap, nil
}

// GetNESResolution returns the native NES resolution
func (c *Config) GetNESResolution() (int, int) {
	return ppu.Width, ppu.Height
}

// GetWindowResolution returns the explicit window size, or the NES
// resolution times the scale.
func (c *Config) GetWindowResolution() (int, int) {
	if c.Window.Width > 0 && c.Window.Height > 0 {
		return c.Window.Width, c.Window.Height
	}
	nesWidth, nesHeight := c.GetNESResolution()
	return nesWidth * c.Window.Scale, nesHeight * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/nescore.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
