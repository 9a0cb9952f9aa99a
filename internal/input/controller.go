// Package input implements controller handling for the NES.
package input

import (
	"fmt"
	"strings"
)

// Button represents NES controller buttons, in shift-register order
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonNames = map[string]Button{
	"a":      ButtonA,
	"b":      ButtonB,
	"select": ButtonSelect,
	"start":  ButtonStart,
	"up":     ButtonUp,
	"down":   ButtonDown,
	"left":   ButtonLeft,
	"right":  ButtonRight,
}

// ParseButton resolves a button name such as "start" or "A"
func ParseButton(name string) (Button, error) {
	b, ok := buttonNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown button %q", name)
	}
	return b, nil
}

// Controller represents a standard NES controller
type Controller struct {
	buttons uint8
	index   uint8
	strobe  bool
}

// New creates a new Controller instance
func New() *Controller {
	return &Controller{}
}

// SetButton sets the state of a single button
func (c *Controller) SetButton(button Button, pressed bool) {
	if pressed {
		c.buttons |= uint8(button)
	} else {
		c.buttons &^= uint8(button)
	}
}

// SetButtons replaces the pressed-button mask
func (c *Controller) SetButtons(mask uint8) {
	c.buttons = mask
}

// Buttons returns the pressed-button mask
func (c *Controller) Buttons() uint8 {
	return c.buttons
}

// IsPressed returns true if the button is currently pressed
func (c *Controller) IsPressed(button Button) bool {
	return c.buttons&uint8(button) != 0
}

// Write handles writes to the strobe bit ($4016)
func (c *Controller) Write(value uint8) {
	c.strobe = value&1 != 0
	if c.strobe {
		c.index = 0
	}
}

// Read shifts out the next button bit. After eight reads it returns 1.
func (c *Controller) Read() uint8 {
	value := uint8(1)
	if c.index < 8 {
		value = (c.buttons >> c.index) & 1
		c.index++
	}
	if c.strobe {
		c.index = 0
	}
	return value
}

// Reset releases all buttons and rewinds the shift register
func (c *Controller) Reset() {
	c.buttons = 0
	c.index = 0
	c.strobe = false
}

// InputState represents both controller ports
type InputState struct {
	Controller1 *Controller
	Controller2 *Controller
}

// NewInputState creates a new input state with two controllers
func NewInputState() *InputState {
	return &InputState{
		Controller1: New(),
		Controller2: New(),
	}
}

// Reset resets all input devices
func (is *InputState) Reset() {
	is.Controller1.Reset()
	is.Controller2.Reset()
}

// SetButtons sets the pressed masks of both controllers
func (is *InputState) SetButtons(player1, player2 uint8) {
	is.Controller1.SetButtons(player1)
	is.Controller2.SetButtons(player2)
}

// Read reads from controller ports
func (is *InputState) Read(address uint16) uint8 {
	switch address {
	case 0x4016:
		return is.Controller1.Read()
	case 0x4017:
		return is.Controller2.Read()
	}
	return 0
}

// Write latches the strobe on both controllers
func (is *InputState) Write(address uint16, value uint8) {
	if address == 0x4016 {
		is.Controller1.Write(value)
		is.Controller2.Write(value)
	}
}
