package autotest

import (
	"fmt"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"nescore/internal/input"
)

// LoadScript builds a case from a Lua script. The script may call:
//
//	name("title")         case name
//	rom("path.nes")       ROM, relative to the script
//	frames(n)             frames to run
//	press(frame, "a")     press a button at the start of frame
//	release(frame, "a")   release it
//	expect(0x8FED0975)    expected final hash, number or hex string
//
// Fields the script leaves unset keep the values from base.
func LoadScript(path string, base Case) (Case, error) {
	c := base
	c.Inputs = append([]Input(nil), base.Inputs...)
	if c.Name == "" {
		c.Name = filepath.Base(path)
	}
	dir := filepath.Dir(path)

	L := lua.NewState()
	defer L.Close()

	schedule := func(pressed bool) lua.LGFunction {
		return func(L *lua.LState) int {
			frame := L.CheckInt(1)
			button := L.CheckString(2)
			if _, err := input.ParseButton(button); err != nil {
				L.ArgError(2, err.Error())
				return 0
			}
			c.Inputs = append(c.Inputs, Input{Frame: frame, Button: button, Pressed: pressed})
			return 0
		}
	}

	L.SetGlobal("name", L.NewFunction(func(L *lua.LState) int {
		c.Name = L.CheckString(1)
		return 0
	}))
	L.SetGlobal("rom", L.NewFunction(func(L *lua.LState) int {
		rom := L.CheckString(1)
		if !filepath.IsAbs(rom) {
			rom = filepath.Join(dir, rom)
		}
		c.ROM = rom
		return 0
	}))
	L.SetGlobal("frames", L.NewFunction(func(L *lua.LState) int {
		c.Frames = L.CheckInt(1)
		return 0
	}))
	L.SetGlobal("press", L.NewFunction(schedule(true)))
	L.SetGlobal("release", L.NewFunction(schedule(false)))
	L.SetGlobal("expect", L.NewFunction(func(L *lua.LState) int {
		switch v := L.Get(1).(type) {
		case lua.LNumber:
			c.Expected = Hash(uint32(v))
		case lua.LString:
			h, err := ParseHash(string(v))
			if err != nil {
				L.ArgError(1, err.Error())
				return 0
			}
			c.Expected = h
		default:
			L.ArgError(1, "hash must be a number or hex string")
		}
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		return Case{}, fmt.Errorf("script %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Case{}, err
	}
	return c, nil
}
