// Package console wires the CPU, PPU, buses and cartridge into a runnable NES.
package console

import (
	"io"

	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/input"
	"nescore/internal/memory"
	"nescore/internal/ppu"
)

// PPU dots per CPU cycle
const ppuRatio = 3

// Console connects all NES components together
type Console struct {
	CPU       *cpu.CPU
	PPU       *ppu.PPU
	CPUBus    *memory.CPUBus
	PPUBus    *memory.PPUBus
	Mapper    *cartridge.Mapper
	Cartridge *cartridge.Cartridge
	Input     *input.InputState

	// set at vblank, delivered once the current step finishes
	frameReady bool
	onFrame    func(*ppu.Frame)

	// buttons queued for the next frame boundary
	pending    [2]uint8
	hasPending bool

	err error
}

// New builds a console around a loaded cartridge. It fails for cartridges
// whose mapper is not supported.
func New(cart *cartridge.Cartridge) (*Console, error) {
	mapper, err := cartridge.NewMapper(cart)
	if err != nil {
		return nil, err
	}

	c := &Console{
		Mapper:    mapper,
		Cartridge: cart,
		Input:     input.NewInputState(),
	}
	c.PPUBus = memory.NewPPUBus(mapper, cart.Mirror())
	c.PPU = ppu.New(c.PPUBus)
	c.CPUBus = memory.NewCPUBus(c.PPU, c.Input, mapper)
	c.CPU = cpu.New(c.CPUBus)

	c.PPU.SetNMICallback(c.CPU.TriggerNMI)
	c.PPU.SetFrameCompleteCallback(func() { c.frameReady = true })
	c.CPUBus.SetDMACallback(c.oamDMA)

	c.Reset()
	return c, nil
}

// LoadFile reads an iNES file and builds a console for it
func LoadFile(path string) (*Console, error) {
	cart, err := cartridge.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return New(cart)
}

// Reset resets all components to their power-up state. The PPU is advanced
// through the CPU's reset sequence so both clocks start aligned.
func (c *Console) Reset() {
	c.PPU.Reset()
	c.Input.Reset()
	before := c.CPU.Cycles()
	c.CPU.Reset()
	for i := uint64(0); i < (c.CPU.Cycles()-before)*ppuRatio; i++ {
		c.PPU.Tick()
	}
	c.frameReady = false
	c.err = nil
}

// SoftReset presses the reset button. The CPU restarts through the reset
// vector on its next step; RAM, SRAM and the PPU keep running.
func (c *Console) SoftReset() {
	c.CPU.TriggerReset()
}

// OnFrame sets the function that receives each completed frame
func (c *Console) OnFrame(fn func(*ppu.Frame)) {
	c.onFrame = fn
}

// SetTracer logs every executed instruction to w in nestest format
func (c *Console) SetTracer(w io.Writer) {
	c.CPU.SetTracer(w, c.PPU.Position)
}

// SetButtons queues controller masks. They take effect at the next frame boundary.
func (c *Console) SetButtons(player1, player2 uint8) {
	c.pending = [2]uint8{player1, player2}
	c.hasPending = true
}

// Err returns the error that halted the console, if any
func (c *Console) Err() error {
	return c.err
}

// Frame returns the last completed frame
func (c *Console) Frame() *ppu.Frame {
	return c.PPU.Frame()
}

// FrameCount returns the number of frames the PPU has completed
func (c *Console) FrameCount() uint64 {
	return c.PPU.FrameCount()
}

// Step executes one CPU instruction, or one stalled cycle, and advances the
// PPU and mapper three dots per CPU cycle.
func (c *Console) Step() (int, error) {
	if c.err != nil {
		return 0, c.err
	}

	cycles, err := c.CPU.Step()
	if err != nil {
		c.err = err
		return 0, err
	}

	for i := 0; i < cycles*ppuRatio; i++ {
		c.PPU.Tick()
		c.Mapper.Step()
	}
	c.PPU.FlushNMI()

	if err := c.busError(); err != nil {
		c.err = err
		return cycles, err
	}

	if c.frameReady {
		c.frameReady = false
		c.endFrame()
	}
	return cycles, nil
}

// StepFrame runs until the PPU completes the current frame
func (c *Console) StepFrame() error {
	frame := c.PPU.FrameCount()
	for frame == c.PPU.FrameCount() {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// StepCycles runs at least the given number of CPU cycles
func (c *Console) StepCycles(cycles int) error {
	for cycles > 0 {
		n, err := c.Step()
		if err != nil {
			return err
		}
		cycles -= n
	}
	return nil
}

func (c *Console) endFrame() {
	if c.hasPending {
		c.Input.SetButtons(c.pending[0], c.pending[1])
		c.hasPending = false
	}
	if c.onFrame != nil {
		c.onFrame(c.PPU.Frame())
	}
}

func (c *Console) busError() error {
	if err := c.CPUBus.Err(); err != nil {
		return err
	}
	return c.Mapper.Err()
}

// oamDMA copies a CPU page into OAM at the current cursor and stalls the CPU
func (c *Console) oamDMA(page uint8) {
	stall := 513
	if c.CPU.Cycles()%2 == 1 {
		stall++
	}
	address := uint16(page) << 8
	for i := 0; i < 256; i++ {
		c.PPU.WriteOAMData(c.CPUBus.Read(address + uint16(i)))
	}
	c.CPU.Stall(stall)
}
