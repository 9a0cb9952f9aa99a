package console

// CPUState represents a CPU register snapshot
type CPUState struct {
	PC      uint16
	A, X, Y uint8
	SP      uint8
	P       uint8
	Cycles  uint64
	Stall   int
}

// PPUState represents a PPU timing snapshot
type PPUState struct {
	Scanline    int
	Dot         int
	FrameCount  uint64
	VBlank      bool
	RenderingOn bool
	NMIEnabled  bool
	VRAMAddress uint16
}

// State is a point-in-time view of the console
type State struct {
	CPU      CPUState
	PPU      PPUState
	PRGBanks [2]int
	RAM      [0x800]uint8
	OAM      [256]uint8
}

// State captures the current CPU, PPU, mapper and memory contents
func (c *Console) State() State {
	scanline, dot := c.PPU.Position()
	low, high := c.Mapper.Banks()

	s := State{
		CPU: CPUState{
			PC:     c.CPU.PC,
			A:      c.CPU.A,
			X:      c.CPU.X,
			Y:      c.CPU.Y,
			SP:     c.CPU.SP,
			P:      c.CPU.Flags(),
			Cycles: c.CPU.Cycles(),
			Stall:  c.CPU.Stalled(),
		},
		PPU: PPUState{
			Scanline:    scanline,
			Dot:         dot,
			FrameCount:  c.PPU.FrameCount(),
			VBlank:      c.PPU.VBlank(),
			RenderingOn: c.PPU.RenderingEnabled(),
			NMIEnabled:  c.PPU.NMIEnabled(),
			VRAMAddress: c.PPU.VRAMAddress(),
		},
		PRGBanks: [2]int{low, high},
		OAM:      c.PPU.OAM(),
	}
	for i := range s.RAM {
		s.RAM[i] = c.CPUBus.PeekRAM(uint16(i))
	}
	return s
}
