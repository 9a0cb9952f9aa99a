// Package autotest runs ROMs for a fixed number of frames with scheduled
// input and checks the hash of the final frame.
package autotest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nescore/internal/console"
	"nescore/internal/debug"
	"nescore/internal/input"
)

// Hash is a frame CRC32. It reads from JSON as a number or a hex string.
type Hash uint32

// UnmarshalJSON accepts 2406287733, "0x8FED0975" or "8FED0975"
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint32
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid hash %s", data)
		}
		*h = Hash(n)
		return nil
	}
	v, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// MarshalJSON writes the hash as a 0x-prefixed hex string
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%08X", uint32(h))
}

// ParseHash parses a hex hash with or without a 0x prefix
func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return Hash(v), nil
}

// Input presses or releases a button at the start of a frame
type Input struct {
	Frame   int    `json:"frame"`
	Button  string `json:"button"`
	Pressed bool   `json:"pressed"`
}

// Case is one ROM run and its expected final frame
type Case struct {
	Name     string  `json:"name"`
	ROM      string  `json:"rom"`
	Frames   int     `json:"frames"`
	Inputs   []Input `json:"inputs,omitempty"`
	Expected Hash    `json:"expected_hash"`
}

// Validate checks the case can be run
func (c *Case) Validate() error {
	if c.ROM == "" {
		return fmt.Errorf("case %q: rom is required", c.Name)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("case %q: frames must be positive, got %d", c.Name, c.Frames)
	}
	for _, in := range c.Inputs {
		if in.Frame < 0 || in.Frame >= c.Frames {
			return fmt.Errorf("case %q: input at frame %d outside 0-%d", c.Name, in.Frame, c.Frames-1)
		}
		if _, err := input.ParseButton(in.Button); err != nil {
			return fmt.Errorf("case %q: %w", c.Name, err)
		}
	}
	return nil
}

type caseFile struct {
	Cases []Case `json:"cases"`
}

// LoadCases reads a JSON case list. Relative ROM paths resolve against the
// file's directory.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}

	var file caseFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range file.Cases {
		c := &file.Cases[i]
		if c.ROM != "" && !filepath.IsAbs(c.ROM) {
			c.ROM = filepath.Join(dir, c.ROM)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Cases, nil
}

// Result is the outcome of one case
type Result struct {
	Case     Case
	Hash     Hash
	Passed   bool
	Err      error
	Duration time.Duration
}

// Runner runs cases in parallel, each on its own console
type Runner struct {
	// Parallel bounds the number of cases in flight; 0 uses GOMAXPROCS
	Parallel int
	// OnFrame, when set, sees every frame of every case
	OnFrame func(c Case, frame int, hash Hash)
}

// Run executes every case and returns results in input order. A case that
// fails to load or halts is reported in its Result; the returned error is
// only set if ctx is cancelled.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))

	limit := r.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range cases {
		i := i
		g.Go(func() error {
			start := time.Now()
			hash, err := r.runCase(ctx, cases[i])
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = Result{
				Case:     cases[i],
				Hash:     hash,
				Passed:   err == nil && hash == cases[i].Expected,
				Err:      err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) (Hash, error) {
	nes, err := console.LoadFile(c.ROM)
	if err != nil {
		return 0, err
	}

	schedule := make(map[int][]Input)
	for _, in := range c.Inputs {
		schedule[in.Frame] = append(schedule[in.Frame], in)
	}

	var buttons uint8
	for frame := 0; frame < c.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if inputs, ok := schedule[frame]; ok {
			for _, in := range inputs {
				b, _ := input.ParseButton(in.Button)
				if in.Pressed {
					buttons |= uint8(b)
				} else {
					buttons &^= uint8(b)
				}
			}
			nes.SetButtons(buttons, 0)
		}
		if err := nes.StepFrame(); err != nil {
			return Hash(debug.FrameHash(nes.Frame())), fmt.Errorf("frame %d: %w", frame, err)
		}
		if r.OnFrame != nil {
			r.OnFrame(c, frame, Hash(debug.FrameHash(nes.Frame())))
		}
	}
	return Hash(debug.FrameHash(nes.Frame())), nil
}

// Summary counts passing and failing results
func Summary(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// WriteReport prints one line per result followed by a summary
func WriteReport(w io.Writer, results []Result) {
	width := 0
	for _, r := range results {
		if len(r.Case.Name) > width {
			width = len(r.Case.Name)
		}
	}

	for _, r := range results {
		status := "PASS"
		detail := fmt.Sprintf("hash %s", r.Hash)
		switch {
		case r.Err != nil:
			status = "FAIL"
			detail = r.Err.Error()
		case !r.Passed:
			status = "FAIL"
			detail = fmt.Sprintf("hash %s, expected %s", r.Hash, r.Case.Expected)
		}
		fmt.Fprintf(w, "%s  %-*s  %s (%v)\n", status, width, r.Case.Name, detail, r.Duration.Round(time.Millisecond))
	}

	passed, failed := Summary(results)
	fmt.Fprintf(w, "%d passed, %d failed\n", passed, failed)
}

// LogFailures logs each failing case with the [AUTOTEST] prefix
func LogFailures(results []Result) {
	failing := make([]Result, 0)
	for _, r := range results {
		if !r.Passed {
			failing = append(failing, r)
		}
	}
	sort.Slice(failing, func(i, j int) bool { return failing[i].Case.Name < failing[j].Case.Name })
	for _, r := range failing {
		if r.Err != nil {
			log.Printf("[AUTOTEST] %s: %v", r.Case.Name, r.Err)
		} else {
			log.Printf("[AUTOTEST] %s: got %s, expected %s", r.Case.Name, r.Hash, r.Case.Expected)
		}
	}
}
