package autotest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "case.lua")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `
name("start menu")
rom("roms/game.nes")
frames(120)
for f = 10, 30, 10 do
  press(f, "start")
  release(f + 1, "start")
end
expect("0x79750CFB")
`)

	c, err := LoadScript(path, Case{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Name != "start menu" || c.Frames != 120 {
		t.Errorf("Unexpected case header: %+v", c)
	}
	if c.ROM != filepath.Join(dir, "roms", "game.nes") {
		t.Errorf("Expected ROM relative to the script, got %s", c.ROM)
	}
	if c.Expected != 0x79750CFB {
		t.Errorf("Expected hash 0x79750CFB, got %s", c.Expected)
	}
	if len(c.Inputs) != 6 {
		t.Fatalf("Expected 6 inputs, got %d", len(c.Inputs))
	}
	if c.Inputs[0] != (Input{Frame: 10, Button: "start", Pressed: true}) ||
		c.Inputs[1] != (Input{Frame: 11, Button: "start", Pressed: false}) {
		t.Errorf("Unexpected first inputs: %+v", c.Inputs[:2])
	}
}

func TestLoadScript_KeepsBaseFields(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `press(0, "a"); expect(255)`)

	base := Case{ROM: "/roms/base.nes", Frames: 5}
	c, err := LoadScript(path, base)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.ROM != base.ROM || c.Frames != 5 || c.Name != "case.lua" {
		t.Errorf("Expected base fields to carry over, got %+v", c)
	}
	if c.Expected != 255 {
		t.Errorf("Expected numeric hash 255, got %d", uint32(c.Expected))
	}
	if len(base.Inputs) != 0 {
		t.Error("Expected base inputs to be left untouched")
	}
}

func TestLoadScript_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown button", `rom("x.nes"); frames(1); press(0, "turbo")`, "turbo"},
		{"bad hash", `rom("x.nes"); frames(1); expect({})`, "hash"},
		{"syntax", `frames(`, "case.lua"},
		{"invalid case", `rom("x.nes")`, "frames"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeScript(t, t.TempDir(), test.body)
			_, err := LoadScript(path, Case{})
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("Expected error mentioning %q, got %v", test.want, err)
			}
		})
	}
}
