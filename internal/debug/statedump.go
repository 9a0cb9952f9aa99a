package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"

	"nescore/internal/console"
)

// stateGraph trims the snapshot to the registers; RAM and OAM would swamp the graph
type stateGraph struct {
	CPU      *console.CPUState
	PPU      *console.PPUState
	PRGBanks [2]int
	ZeroPage [16]uint8
}

// WriteStateGraph writes a Graphviz description of the console state to w
func WriteStateGraph(w io.Writer, state console.State) {
	graph := &stateGraph{
		CPU:      &state.CPU,
		PPU:      &state.PPU,
		PRGBanks: state.PRGBanks,
	}
	copy(graph.ZeroPage[:], state.RAM[:16])
	memviz.Map(w, graph)
}

// DumpState writes the state graph to a .dot file at path
func DumpState(path string, state console.State) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state dump: %w", err)
	}
	defer file.Close()

	WriteStateGraph(file, state)
	return nil
}
