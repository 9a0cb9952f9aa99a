package autotest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// traceFields are compared in this order; the first that differs is reported
var traceFields = []string{"PC", "opcode", "mnemonic", "A", "X", "Y", "P", "SP", "CYC"}

// registerLabels locate the register columns by their prefix
var registerLabels = map[string]string{
	"A":   " A:",
	"X":   " X:",
	"Y":   " Y:",
	"P":   " P:",
	"SP":  " SP:",
	"CYC": " CYC:",
}

// Mismatch describes the first differing trace line
type Mismatch struct {
	Line  int // 1-based
	Field string
	Mine  string
	Good  string

	MineLine string
	GoodLine string

	// up to five lines either side, as "mine | good" pairs
	Context []string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("trace mismatch on line %d: %s is %q, expected %q", m.Line, m.Field, m.Mine, m.Good)
}

// WriteTo prints the mismatch with its surrounding lines
func (m *Mismatch) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Disagreement on line %d (%s)\n\n", m.Line, m.Field)
	for _, line := range m.Context {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nMine: %s\nGood: %s\n", m.MineLine, m.GoodLine)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// CompareTraces compares a produced trace with a reference log line by line
// over the lines both contain. It returns the number of lines compared and
// the first mismatch, or nil if they agree.
func CompareTraces(mine, good io.Reader) (int, *Mismatch, error) {
	mineLines, err := readLines(mine)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read trace: %w", err)
	}
	goodLines, err := readLines(good)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read reference: %w", err)
	}

	n := len(mineLines)
	if len(goodLines) < n {
		n = len(goodLines)
	}

	for i := 0; i < n; i++ {
		a := traceValues(mineLines[i])
		b := traceValues(goodLines[i])
		for _, field := range traceFields {
			if a[field] == b[field] {
				continue
			}
			return i + 1, &Mismatch{
				Line:     i + 1,
				Field:    field,
				Mine:     a[field],
				Good:     b[field],
				MineLine: mineLines[i],
				GoodLine: goodLines[i],
				Context:  contextLines(mineLines, goodLines, i, n),
			}, nil
		}
	}
	return n, nil, nil
}

// traceValues extracts the compared fields from one nestest-format line
func traceValues(line string) map[string]string {
	values := map[string]string{
		"PC":       column(line, 0, 4),
		"opcode":   column(line, 6, 8),
		"mnemonic": column(line, 16, 19),
	}
	for field, label := range registerLabels {
		values[field] = labelled(line, label)
	}
	return values
}

func column(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}

func labelled(line, label string) string {
	i := strings.Index(line, label)
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(line[i+len(label):], " ")
	if j := strings.IndexByte(rest, ' '); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func contextLines(mine, good []string, at, n int) []string {
	start, end := at-5, at+6
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	lines := make([]string, 0, end-start)
	for j := start; j < end; j++ {
		marker := "    "
		if j == at {
			marker = " >> "
		}
		lines = append(lines, marker+mine[j]+"   |   "+good[j])
	}
	return lines
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 1<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r "))
	}
	return lines, scanner.Err()
}
