package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nescore/internal/ppu"
)

// Session collects frame dumps and frame hashes for one run under its own directory
type Session struct {
	outputDir string
	dumper    *FrameDumper
	sessionID string
	startTime time.Time
	enabled   bool
	hashes    []frameRecord
}

type frameRecord struct {
	frame uint64
	hash  uint32
}

// NewSession creates a session writing into a timestamped directory under outputDir
func NewSession(outputDir string) *Session {
	sessionID := fmt.Sprintf("session_%s", time.Now().Format("20060102_150405"))
	sessionDir := filepath.Join(outputDir, sessionID)
	return &Session{
		outputDir: sessionDir,
		dumper:    NewFrameDumper(sessionDir),
		sessionID: sessionID,
	}
}

// Dumper exposes the session's frame dumper for configuration
func (s *Session) Dumper() *FrameDumper {
	return s.dumper
}

// OutputDir returns the directory this session writes to
func (s *Session) OutputDir() string {
	return s.outputDir
}

// Enabled reports whether the session is recording
func (s *Session) Enabled() bool {
	return s.enabled
}

// Start begins recording
func (s *Session) Start() error {
	if s.enabled {
		return fmt.Errorf("debug session already active")
	}
	if err := s.dumper.Enable(); err != nil {
		return err
	}
	s.startTime = time.Now()
	s.hashes = s.hashes[:0]
	s.enabled = true
	return nil
}

// ProcessFrame records the frame's hash and dumps it when due
func (s *Session) ProcessFrame(frame *ppu.Frame, frameNum uint64) error {
	if !s.enabled {
		return nil
	}
	s.hashes = append(s.hashes, frameRecord{frame: frameNum, hash: FrameHash(frame)})

	path, err := s.dumper.DumpFrame(frame, frameNum)
	if err != nil {
		return fmt.Errorf("failed to dump frame %d: %w", frameNum, err)
	}
	if path != "" {
		return s.dumper.DumpColorReport(frame, frameNum)
	}
	return nil
}

// Stop ends recording and writes the session report
func (s *Session) Stop() error {
	if !s.enabled {
		return fmt.Errorf("debug session not active")
	}
	s.enabled = false
	s.dumper.Disable()
	return s.writeReport()
}

func (s *Session) writeReport() error {
	file, err := os.Create(filepath.Join(s.outputDir, "session.txt"))
	if err != nil {
		return fmt.Errorf("failed to create session report: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "Session ID: %s\n", s.sessionID)
	fmt.Fprintf(file, "Start Time: %s\n", s.startTime.Format(time.RFC3339))
	fmt.Fprintf(file, "Duration: %v\n", time.Since(s.startTime).Round(time.Millisecond))
	fmt.Fprintf(file, "Frames Recorded: %d\n", len(s.hashes))
	fmt.Fprintf(file, "Frames Dumped: %d\n\n", s.dumper.Dumps())

	for _, record := range s.hashes {
		fmt.Fprintf(file, "frame %6d  %08X\n", record.frame, record.hash)
	}
	return nil
}
