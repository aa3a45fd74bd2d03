package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	traceFile = "trace.jsonl"

	// traceBufferSize is the write buffer, and the initial read buffer
	traceBufferSize = 64 * 1024
	// maxTraceLine bounds one encoded point; 9-D layouts use a few hundred bytes
	maxTraceLine = 1024 * 1024
)

// TraceEntry is one step of a descent trajectory, stored as one JSON line.
type TraceEntry struct {
	// Iteration is the 1-based iteration that produced Point
	Iteration int `json:"iteration"`

	// Cost is the caller's cost at Point
	Cost float64 `json:"cost"`

	// Timestamp is when the step was recorded
	Timestamp time.Time `json:"timestamp"`

	// Point is the position after the step
	Point []float64 `json:"point"`
}

// finite reports whether JSON can represent the entry
func (e TraceEntry) finite() bool {
	if math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) {
		return false
	}
	for _, v := range e.Point {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// tracePath is <baseDir>/runs/<runID>/trace.jsonl
func tracePath(baseDir, runID string) string {
	return filepath.Join(RunDir(baseDir, runID), traceFile)
}

// TraceWriter records a run's trajectory as JSON lines. Steps are buffered
// until Flush or Close. Safe for concurrent use.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	path string
}

// NewTraceWriter opens the trajectory trace of runID under baseDir,
// creating the run directory. With keep set, steps are added after the
// existing ones; otherwise the trace starts empty.
func NewTraceWriter(baseDir, runID string, keep bool) (*TraceWriter, error) {
	if err := os.MkdirAll(RunDir(baseDir, runID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory for trajectory: %w", err)
	}

	path := tracePath(baseDir, runID)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if keep {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory trace: %w", err)
	}

	buf := bufio.NewWriterSize(file, traceBufferSize)
	return &TraceWriter{
		file: file,
		buf:  buf,
		enc:  json.NewEncoder(buf),
		path: path,
	}, nil
}

// Write buffers one trajectory step. Steps holding NaN or Inf are refused,
// since JSON has no encoding for them.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	if !entry.finite() {
		return fmt.Errorf("trajectory step %d is not finite", entry.Iteration)
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	// Encode terminates each step with a newline
	if err := tw.enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to record trajectory step %d: %w", entry.Iteration, err)
	}
	return nil
}

// Flush pushes buffered steps to disk so readers see them.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush trajectory trace: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trajectory trace: %w", err)
	}
	return nil
}

// Close flushes outstanding steps and closes the trace.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	flushErr := tw.buf.Flush()
	closeErr := tw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush trajectory trace on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trajectory trace: %w", closeErr)
	}
	return nil
}

// Path returns the trace file location.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader replays a trajectory trace one step at a time.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewTraceReader opens the trajectory trace of runID. It returns
// ErrNotFound when the run never wrote one.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	file, err := os.Open(tracePath(baseDir, runID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open trajectory trace: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, traceBufferSize), maxTraceLine)

	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next step, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read trajectory line %d: %w", tr.line+1, err)
		}
		return nil, io.EOF
	}
	tr.line++

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("malformed trajectory line %d: %w", tr.line, err)
	}
	return &entry, nil
}

// ReadAll returns every remaining step in order.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close releases the trace file.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}

// ReadTrace loads a run's whole trajectory.
func ReadTrace(baseDir, runID string) ([]TraceEntry, error) {
	reader, err := NewTraceReader(baseDir, runID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return reader.ReadAll()
}

// DeleteTrace removes a run's trajectory trace. A missing trace is not an
// error.
func DeleteTrace(baseDir, runID string) error {
	if err := os.Remove(tracePath(baseDir, runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete trajectory trace: %w", err)
	}
	return nil
}
