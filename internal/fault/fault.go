// Package fault defines the fatal error kinds raised by the emulator core.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a class of fatal emulator error
type Kind int

const (
	// InvalidRom is raised at load time for a bad magic number, truncated data
	// or a header asserting a trainer block.
	InvalidRom Kind = iota + 1
	// UnsupportedMapper is raised at load time for any mapper id other than UxROM.
	UnsupportedMapper
	// UnimplementedOpcode is raised when the CPU dispatches an unmodeled illegal opcode.
	UnimplementedOpcode
	// InvalidAddress signals a hole in a bus decoder's range table.
	InvalidAddress
)

func (k Kind) String() string {
	switch k {
	case InvalidRom:
		return "invalid rom"
	case UnsupportedMapper:
		return "unsupported mapper"
	case UnimplementedOpcode:
		return "unimplemented opcode"
	case InvalidAddress:
		return "invalid address"
	default:
		return fmt.Sprintf("fault(%d)", int(k))
	}
}

// Error carries the structured context of a fatal condition
type Error struct {
	Kind    Kind
	Address uint16
	Opcode  uint8
	Value   uint8
	Detail  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnsupportedMapper:
		return fmt.Sprintf("%s: mapper %d", e.Kind, e.Value)
	case UnimplementedOpcode:
		return fmt.Sprintf("%s: $%02X (%s) at $%04X", e.Kind, e.Opcode, e.Detail, e.Address)
	case InvalidAddress:
		return fmt.Sprintf("%s: %s $%04X", e.Kind, e.Detail, e.Address)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}

// Is reports whether any error in err's chain is a fault of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// InvalidROM returns an InvalidRom fault with a formatted detail message
func InvalidROM(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidRom, Detail: fmt.Sprintf(format, args...)}
}

// Mapper returns an UnsupportedMapper fault for the given mapper id
func Mapper(id uint8) *Error {
	return &Error{Kind: UnsupportedMapper, Value: id}
}

// Opcode returns an UnimplementedOpcode fault for the opcode fetched at pc
func Opcode(pc uint16, opcode uint8, name string) *Error {
	return &Error{Kind: UnimplementedOpcode, Address: pc, Opcode: opcode, Detail: name}
}

// Address returns an InvalidAddress fault naming the bus that failed to decode
func Address(bus string, address uint16) *Error {
	return &Error{Kind: InvalidAddress, Address: address, Detail: bus}
}
