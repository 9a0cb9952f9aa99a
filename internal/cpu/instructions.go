package cpu

// execute dispatches a decoded instruction. Addressing has already been
// resolved into cpu.info.
func (cpu *CPU) execute(m Mnemonic) {
	switch m {
	// Load/Store
	case LDA:
		cpu.A = cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case LDX:
		cpu.X = cpu.read(cpu.info.address)
		cpu.setZN(cpu.X)
	case LDY:
		cpu.Y = cpu.read(cpu.info.address)
		cpu.setZN(cpu.Y)
	case STA:
		cpu.write(cpu.info.address, cpu.A)
	case STX:
		cpu.write(cpu.info.address, cpu.X)
	case STY:
		cpu.write(cpu.info.address, cpu.Y)

	// Transfers
	case TAX:
		cpu.X = cpu.A
		cpu.setZN(cpu.X)
	case TAY:
		cpu.Y = cpu.A
		cpu.setZN(cpu.Y)
	case TXA:
		cpu.A = cpu.X
		cpu.setZN(cpu.A)
	case TYA:
		cpu.A = cpu.Y
		cpu.setZN(cpu.A)
	case TSX:
		cpu.X = cpu.SP
		cpu.setZN(cpu.X)
	case TXS:
		cpu.SP = cpu.X

	// Stack
	case PHA:
		cpu.push(cpu.A)
	case PHP:
		cpu.php()
	case PLA:
		cpu.A = cpu.pull()
		cpu.setZN(cpu.A)
	case PLP:
		cpu.plp()

	// Arithmetic and logic
	case ADC:
		cpu.adc(cpu.read(cpu.info.address))
	case SBC:
		cpu.sbc(cpu.read(cpu.info.address))
	case AND:
		cpu.A &= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case ORA:
		cpu.A |= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case EOR:
		cpu.A ^= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case BIT:
		value := cpu.read(cpu.info.address)
		cpu.V = value&vFlagMask != 0
		cpu.N = value&nFlagMask != 0
		cpu.Z = value&cpu.A == 0
	case CMP:
		cpu.compare(cpu.A, cpu.read(cpu.info.address))
	case CPX:
		cpu.compare(cpu.X, cpu.read(cpu.info.address))
	case CPY:
		cpu.compare(cpu.Y, cpu.read(cpu.info.address))

	// Increments and decrements
	case INC:
		cpu.inc()
	case DEC:
		cpu.dec()
	case INX:
		cpu.X++
		cpu.setZN(cpu.X)
	case INY:
		cpu.Y++
		cpu.setZN(cpu.Y)
	case DEX:
		cpu.X--
		cpu.setZN(cpu.X)
	case DEY:
		cpu.Y--
		cpu.setZN(cpu.Y)

	// Shifts
	case ASL:
		cpu.asl()
	case LSR:
		cpu.lsr()
	case ROL:
		cpu.rol()
	case ROR:
		cpu.ror()

	// Jumps and calls
	case JMP:
		cpu.PC = cpu.info.address
	case JSR:
		cpu.push16(cpu.PC - 1)
		cpu.PC = cpu.info.address
	case RTS:
		cpu.PC = cpu.pull16() + 1
	case RTI:
		cpu.plp()
		cpu.PC = cpu.pull16()
	case BRK:
		cpu.push16(cpu.PC)
		cpu.php()
		cpu.I = true
		cpu.PC = cpu.read16(irqVector)

	// Branches
	case BCC:
		cpu.branch(!cpu.C)
	case BCS:
		cpu.branch(cpu.C)
	case BEQ:
		cpu.branch(cpu.Z)
	case BNE:
		cpu.branch(!cpu.Z)
	case BMI:
		cpu.branch(cpu.N)
	case BPL:
		cpu.branch(!cpu.N)
	case BVC:
		cpu.branch(!cpu.V)
	case BVS:
		cpu.branch(cpu.V)

	// Flags
	case CLC:
		cpu.C = false
	case CLD:
		cpu.D = false
	case CLI:
		cpu.I = false
	case CLV:
		cpu.V = false
	case SEC:
		cpu.C = true
	case SED:
		cpu.D = true
	case SEI:
		cpu.I = true

	case NOP:

	// Unofficial read-modify-write composites
	case LAX:
		cpu.A = cpu.read(cpu.info.address)
		cpu.X = cpu.A
		cpu.setZN(cpu.A)
	case SAX:
		cpu.write(cpu.info.address, cpu.A&cpu.X)
	case DCP:
		cpu.dec()
		cpu.compare(cpu.A, cpu.read(cpu.info.address))
	case ISC:
		cpu.inc()
		cpu.sbc(cpu.read(cpu.info.address))
	case SLO:
		cpu.asl()
		cpu.A |= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case RLA:
		cpu.rol()
		cpu.A &= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case SRE:
		cpu.lsr()
		cpu.A ^= cpu.read(cpu.info.address)
		cpu.setZN(cpu.A)
	case RRA:
		cpu.ror()
		cpu.adc(cpu.read(cpu.info.address))
	}
}

func (cpu *CPU) php() {
	cpu.push(cpu.Flags() | bFlagMask)
}

func (cpu *CPU) plp() {
	cpu.SetFlags(cpu.pull()&^bFlagMask | unusedMask)
}

func (cpu *CPU) adc(value uint8) {
	a := cpu.A
	var carry uint8
	if cpu.C {
		carry = 1
	}
	result := uint16(a) + uint16(value) + uint16(carry)
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	cpu.C = result > 0xFF
	cpu.V = (a^value)&0x80 == 0 && (a^cpu.A)&0x80 != 0
}

// sbc subtracts with borrow, where a clear carry means borrow
func (cpu *CPU) sbc(value uint8) {
	a := cpu.A
	var borrow uint8
	if !cpu.C {
		borrow = 1
	}
	cpu.A = a - value - borrow
	cpu.setZN(cpu.A)
	cpu.C = int(a)-int(value)-int(borrow) >= 0
	cpu.V = (a^value)&0x80 != 0 && (a^cpu.A)&0x80 != 0
}

func (cpu *CPU) inc() {
	value := cpu.read(cpu.info.address) + 1
	cpu.write(cpu.info.address, value)
	cpu.setZN(value)
}

func (cpu *CPU) dec() {
	value := cpu.read(cpu.info.address) - 1
	cpu.write(cpu.info.address, value)
	cpu.setZN(value)
}

// shift applies op to the accumulator or to memory depending on the mode
func (cpu *CPU) shift(op func(uint8) uint8) {
	if cpu.info.mode == Accumulator {
		cpu.A = op(cpu.A)
		cpu.setZN(cpu.A)
		return
	}
	value := op(cpu.read(cpu.info.address))
	cpu.write(cpu.info.address, value)
	cpu.setZN(value)
}

func (cpu *CPU) asl() {
	cpu.shift(func(v uint8) uint8 {
		cpu.C = v&0x80 != 0
		return v << 1
	})
}

func (cpu *CPU) lsr() {
	cpu.shift(func(v uint8) uint8 {
		cpu.C = v&0x01 != 0
		return v >> 1
	})
}

func (cpu *CPU) rol() {
	cpu.shift(func(v uint8) uint8 {
		var carry uint8
		if cpu.C {
			carry = 1
		}
		cpu.C = v&0x80 != 0
		return v<<1 | carry
	})
}

func (cpu *CPU) ror() {
	cpu.shift(func(v uint8) uint8 {
		var carry uint8
		if cpu.C {
			carry = 0x80
		}
		cpu.C = v&0x01 != 0
		return v>>1 | carry
	})
}
