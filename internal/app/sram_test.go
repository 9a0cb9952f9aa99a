package app

import (
	"os"
	"path/filepath"
	"testing"

	"nescore/internal/cartridge"
)

func TestSRAMStore_Path(t *testing.T) {
	store := NewSRAMStore("saves")
	tests := []struct {
		rom  string
		want string
	}{
		{"roms/zelda.nes", filepath.Join("saves", "zelda.sav")},
		{"/abs/Mega Man.NES", filepath.Join("saves", "Mega Man.sav")},
		{"noext", filepath.Join("saves", "noext.sav")},
	}
	for _, test := range tests {
		if got := store.Path(test.rom); got != test.want {
			t.Errorf("%s: expected %s, got %s", test.rom, test.want, got)
		}
	}
}

func TestSRAMStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saves")
	store := NewSRAMStore(dir)

	cart := cartridge.New(make([]uint8, 0x4000), nil, 2, cartridge.MirrorVertical, true)
	cart.WriteSRAM(0, 0x11)
	cart.WriteSRAM(0x1FFF, 0x22)

	if loaded, err := store.Load(cart, "game.nes"); loaded || err != nil {
		t.Errorf("Expected missing save to load nothing, got %v %v", loaded, err)
	}

	saved, err := store.Save(cart, "game.nes")
	if err != nil || !saved {
		t.Fatalf("Expected save, got %v %v", saved, err)
	}
	if _, err := os.Stat(store.Path("game.nes") + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary save file left behind")
	}

	fresh := cartridge.New(make([]uint8, 0x4000), nil, 2, cartridge.MirrorVertical, true)
	loaded, err := store.Load(fresh, "game.nes")
	if err != nil || !loaded {
		t.Fatalf("Expected load, got %v %v", loaded, err)
	}
	if fresh.ReadSRAM(0) != 0x11 || fresh.ReadSRAM(0x1FFF) != 0x22 {
		t.Errorf("Expected restored bytes 11/22, got %02X/%02X", fresh.ReadSRAM(0), fresh.ReadSRAM(0x1FFF))
	}
}

func TestSRAMStore_NoBattery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saves")
	store := NewSRAMStore(dir)
	cart := cartridge.New(make([]uint8, 0x4000), nil, 2, cartridge.MirrorVertical, false)

	if saved, err := store.Save(cart, "game.nes"); saved || err != nil {
		t.Errorf("Expected no save for a cartridge without battery, got %v %v", saved, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Save directory should not be created for a cartridge without battery")
	}
	if loaded, err := store.Load(cart, "game.nes"); loaded || err != nil {
		t.Errorf("Expected no load, got %v %v", loaded, err)
	}
}
