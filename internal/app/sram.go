package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nescore/internal/cartridge"
)

// SRAMStore persists battery-backed cartridge RAM as <dir>/<rom base>.sav
type SRAMStore struct {
	dir string
}

// NewSRAMStore creates a store rooted at dir
func NewSRAMStore(dir string) *SRAMStore {
	return &SRAMStore{dir: dir}
}

// Path returns the save file used for romPath
func (s *SRAMStore) Path(romPath string) string {
	base := filepath.Base(romPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.dir, base+".sav")
}

// Load restores SRAM for a battery cartridge. A missing save file is not an
// error; it returns false.
func (s *SRAMStore) Load(cart *cartridge.Cartridge, romPath string) (bool, error) {
	if !cart.HasBattery() {
		return false, nil
	}

	data, err := os.ReadFile(s.Path(romPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read save file: %v", err)
	}

	cart.LoadSRAM(data)
	return true, nil
}

// Save writes SRAM for a battery cartridge; other cartridges are skipped
func (s *SRAMStore) Save(cart *cartridge.Cartridge, romPath string) (bool, error) {
	if !cart.HasBattery() {
		return false, nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create save directory: %v", err)
	}

	path := s.Path(romPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, cart.SRAM(), 0644); err != nil {
		return false, fmt.Errorf("failed to write save file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, fmt.Errorf("failed to replace save file: %v", err)
	}
	return true, nil
}
