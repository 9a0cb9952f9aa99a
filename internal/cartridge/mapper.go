package cartridge

import "nescore/internal/fault"

// MapperKind enumerates the bank-switching schemes the console understands
type MapperKind uint8

const (
	// UxROM switches a 16 KiB window at $8000 and pins the last bank at $C000.
	UxROM MapperKind = 2
)

func supportedMapper(id uint8) bool {
	return MapperKind(id) == UxROM
}

// Mapper translates CPU and PPU addresses into cartridge storage. It is a
// closed variant over MapperKind; each access switches on the kind.
type Mapper struct {
	kind MapperKind
	cart *Cartridge

	// UxROM registers
	prgBanks int
	prgBank1 int
	prgBank2 int

	err error
}

// NewMapper builds the mapper declared by the cartridge header
func NewMapper(cart *Cartridge) (*Mapper, error) {
	switch MapperKind(cart.MapperID()) {
	case UxROM:
		banks := cart.PRGSize() / prgBankSize
		if banks == 0 {
			return nil, fault.InvalidROM("PRG ROM smaller than one bank")
		}
		return &Mapper{
			kind:     UxROM,
			cart:     cart,
			prgBanks: banks,
			prgBank1: 0,
			prgBank2: banks - 1,
		}, nil
	default:
		return nil, fault.Mapper(cart.MapperID())
	}
}

// Kind returns the mapper scheme
func (m *Mapper) Kind() MapperKind { return m.kind }

// Cartridge returns the backing cartridge store
func (m *Mapper) Cartridge() *Cartridge { return m.cart }

// Err returns the first invalid access seen, if any
func (m *Mapper) Err() error { return m.err }

// Read returns the byte mapped at address
func (m *Mapper) Read(address uint16) uint8 {
	switch m.kind {
	case UxROM:
		return m.readUxROM(address)
	}
	return 0
}

// Write stores value at address or updates bank registers
func (m *Mapper) Write(address uint16, value uint8) {
	switch m.kind {
	case UxROM:
		m.writeUxROM(address, value)
	}
}

// Step is ticked once per PPU dot
func (m *Mapper) Step() {
	switch m.kind {
	case UxROM:
		// no scanline counter
	}
}

// Banks returns the switchable and fixed PRG bank indexes
func (m *Mapper) Banks() (low, high int) {
	return m.prgBank1, m.prgBank2
}

func (m *Mapper) readUxROM(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return m.cart.ReadCHR(int(address))
	case address >= 0xC000:
		return m.cart.ReadPRG(m.prgBank2*prgBankSize + int(address-0xC000))
	case address >= 0x8000:
		return m.cart.ReadPRG(m.prgBank1*prgBankSize + int(address-0x8000))
	case address >= 0x6000:
		return m.cart.ReadSRAM(int(address - 0x6000))
	default:
		m.invalid(address)
		return 0
	}
}

func (m *Mapper) writeUxROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.cart.WriteCHR(int(address), value)
	case address >= 0x8000:
		m.prgBank1 = int(value) % m.prgBanks
	case address >= 0x6000:
		m.cart.WriteSRAM(int(address-0x6000), value)
	default:
		m.invalid(address)
	}
}

func (m *Mapper) invalid(address uint16) {
	if m.err == nil {
		m.err = fault.Address("mapper", address)
	}
}
