package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"nescore/internal/ppu"
)

// terminalHoldFrames is how long a key stays pressed after its last byte;
// terminals report key presses but never releases.
const terminalHoldFrames = 6

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow draws frames with 24-bit colour half blocks and reads keys from raw stdin
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool
	keyMap  KeyMap

	out      io.Writer
	fd       int
	oldState *term.State

	input   chan []byte
	stopped sync.Once
	held    map[Key]int
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow switches stdin to raw mode and starts reading keys
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := newTerminalWindow(title, os.Stdout, b.config.KeyMap)
	w.fd = int(os.Stdin.Fd())
	if term.IsTerminal(w.fd) {
		oldState, err := term.MakeRaw(w.fd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %v", err)
		}
		w.oldState = oldState
		w.width, w.height = terminalCells(w.fd)
		go w.readInput(os.Stdin)
	}

	fmt.Fprint(w.out, "\033[?25l\033[2J")
	w.SetTitle(title)
	return w, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

func newTerminalWindow(title string, out io.Writer, keyMap KeyMap) *TerminalWindow {
	return &TerminalWindow{
		title:   title,
		width:   80,
		height:  24,
		running: true,
		keyMap:  keyMap,
		out:     out,
		fd:      -1,
		input:   make(chan []byte, 64),
		held:    make(map[Key]int),
	}
}

// terminalCells returns the terminal size in cells, defaulting to 80x24
func terminalCells(fd int) (int, int) {
	width, height, err := term.GetSize(fd)
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

// readInput forwards raw stdin chunks until the reader fails
func (w *TerminalWindow) readInput(r io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			w.input <- chunk
		}
		if err != nil {
			return
		}
	}
}

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns the terminal size in cells
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true once Escape or Ctrl-C was read
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents decodes pending input and expires held keys
func (w *TerminalWindow) PollEvents() []InputEvent {
	var data []byte
drain:
	for {
		select {
		case chunk := <-w.input:
			data = append(data, chunk...)
		default:
			break drain
		}
	}

	keys, quit := decodeKeys(data)
	return mapKeyEvents(w.advanceKeys(keys, quit), w.keyMap)
}

// advanceKeys presses newly seen keys and releases keys not repeated for
// terminalHoldFrames polls.
func (w *TerminalWindow) advanceKeys(keys []Key, quit bool) []InputEvent {
	var events []InputEvent
	seen := make(map[Key]bool, len(keys))
	for _, key := range keys {
		seen[key] = true
		if _, ok := w.held[key]; !ok {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true})
		}
		w.held[key] = terminalHoldFrames
	}
	for key, left := range w.held {
		if seen[key] {
			continue
		}
		if left <= 1 {
			delete(w.held, key)
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
			continue
		}
		w.held[key] = left - 1
	}
	if quit {
		w.running = false
		events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}
	return events
}

// decodeKeys parses raw terminal bytes. Arrow keys arrive as ESC [ A..D; a
// lone ESC or Ctrl-C requests quit.
func decodeKeys(data []byte) (keys []Key, quit bool) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == 0x1B:
			if i+2 < len(data) && data[i+1] == '[' {
				switch data[i+2] {
				case 'A':
					keys = append(keys, KeyUp)
				case 'B':
					keys = append(keys, KeyDown)
				case 'C':
					keys = append(keys, KeyRight)
				case 'D':
					keys = append(keys, KeyLeft)
				}
				i += 2
				continue
			}
			quit = true
		case b == 0x03:
			quit = true
		case b == '\r' || b == '\n':
			keys = append(keys, KeyEnter)
		case b == ' ':
			keys = append(keys, KeySpace)
		case b >= 'a' && b <= 'z':
			keys = append(keys, KeyA+Key(b-'a'))
		case b >= 'A' && b <= 'Z':
			keys = append(keys, KeyA+Key(b-'A'))
		}
	}
	return keys, quit
}

// RenderFrame draws the frame scaled to the terminal width
func (w *TerminalWindow) RenderFrame(frame *ppu.Frame) error {
	return renderHalfBlocks(w.out, frame, w.width)
}

// renderHalfBlocks writes the frame as rows of upper half blocks, each cell
// carrying two vertically adjacent samples.
func renderHalfBlocks(out io.Writer, frame *ppu.Frame, columns int) error {
	step := (ppu.Width + columns - 1) / columns
	if step < 1 {
		step = 1
	}

	bw := bufio.NewWriterSize(out, 64*1024)
	bw.WriteString("\033[H")
	for y := 0; y < ppu.Height; y += 2 * step {
		for x := 0; x < ppu.Width; x += step {
			top := frame.Pixel(x, y)
			bottom := top
			if y+step < ppu.Height {
				bottom = frame.Pixel(x, y+step)
			}
			fmt.Fprintf(bw, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				uint8(top>>16), uint8(top>>8), uint8(top),
				uint8(bottom>>16), uint8(bottom>>8), uint8(bottom))
		}
		bw.WriteString("\033[0m\r\n")
	}
	return bw.Flush()
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	var err error
	w.stopped.Do(func() {
		fmt.Fprint(w.out, "\033[0m\033[?25h\r\n")
		if w.oldState != nil {
			err = term.Restore(w.fd, w.oldState)
		}
	})
	return err
}
