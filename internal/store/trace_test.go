package store

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTraceWriter_Basic(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-run-123"

	writer, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "trace.jsonl")
	if writer.Path() != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, writer.Path())
	}

	entries := []TraceEntry{
		{Iteration: 1, Cost: 50.5, Timestamp: time.Now(), Point: []float64{0.1, 0.2}},
		{Iteration: 2, Cost: 40.25, Timestamp: time.Now(), Point: []float64{0.3, 0.4}},
		{Iteration: 3, Cost: 30.125, Timestamp: time.Now(), Point: []float64{0.5, 0.6}},
	}

	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatal("Trace file was not created")
	}

	got, err := ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}

	for i, entry := range got {
		if entry.Iteration != entries[i].Iteration {
			t.Errorf("Entry %d: expected iteration %d, got %d", i, entries[i].Iteration, entry.Iteration)
		}
		if entry.Cost != entries[i].Cost {
			t.Errorf("Entry %d: expected cost %f, got %f", i, entries[i].Cost, entry.Cost)
		}
		if len(entry.Point) != 2 || entry.Point[1] != entries[i].Point[1] {
			t.Errorf("Entry %d: expected point %v, got %v", i, entries[i].Point, entry.Point)
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-append"

	writer1, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create first writer: %v", err)
	}
	writer1.Write(TraceEntry{Iteration: 1, Cost: 10, Point: []float64{1}})
	writer1.Close()

	writer2, err := NewTraceWriter(tempDir, runID, true)
	if err != nil {
		t.Fatalf("Failed to create append writer: %v", err)
	}
	writer2.Write(TraceEntry{Iteration: 2, Cost: 9, Point: []float64{0.9}})
	writer2.Close()

	got, err := ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(got))
	}
	if got[0].Iteration != 1 || got[1].Iteration != 2 {
		t.Errorf("Entries out of order: %d, %d", got[0].Iteration, got[1].Iteration)
	}

	// Truncating mode discards earlier entries
	writer3, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create truncating writer: %v", err)
	}
	writer3.Close()

	got, err = ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty trace after truncation, got %d entries", len(got))
	}
}

func TestTraceWriter_Concurrent(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-concurrent"

	writer, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 5; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				entry := TraceEntry{Iteration: g*20 + i, Cost: float64(i), Point: []float64{float64(g), float64(i)}}
				if err := writer.Write(entry); err != nil {
					t.Errorf("Write failed: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 100 {
		t.Errorf("Expected 100 entries, got %d", len(got))
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-flush"

	writer, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	writer.Write(TraceEntry{Iteration: 1, Cost: 1, Point: []float64{1, 1}})
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Readable before Close
	got, err := ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 flushed entry, got %d", len(got))
	}
}

func TestTraceReader_Incremental(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-incremental"

	writer, _ := NewTraceWriter(tempDir, runID, false)
	for i := 1; i <= 3; i++ {
		writer.Write(TraceEntry{Iteration: i, Point: []float64{float64(i)}})
	}
	writer.Close()

	reader, err := NewTraceReader(tempDir, runID)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer reader.Close()

	for i := 1; i <= 3; i++ {
		entry, err := reader.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if entry.Iteration != i {
			t.Errorf("Expected iteration %d, got %d", i, entry.Iteration)
		}
	}

	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_Malformed(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-malformed"

	runDir := RunDir(tempDir, runID)
	os.MkdirAll(runDir, 0755)
	content := `{"iteration":1,"cost":1,"point":[1]}` + "\nnot-json\n"
	if err := os.WriteFile(filepath.Join(runDir, "trace.jsonl"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write trace: %v", err)
	}

	_, err := ReadTrace(tempDir, runID)
	if err == nil {
		t.Fatal("Expected error for malformed trace line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error to name line 2, got %v", err)
	}
}

func TestTraceWriter_RefusesNonFinite(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-nonfinite"

	writer, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	bad := []TraceEntry{
		{Iteration: 2, Cost: math.NaN(), Point: []float64{1}},
		{Iteration: 3, Cost: 1, Point: []float64{math.Inf(-1)}},
	}
	for _, entry := range bad {
		if err := writer.Write(entry); err == nil {
			t.Errorf("Expected step %d to be refused", entry.Iteration)
		}
	}

	// The trace stays readable around refused steps
	if err := writer.Write(TraceEntry{Iteration: 4, Cost: 1, Point: []float64{2}}); err != nil {
		t.Fatalf("Failed to write finite step: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries, err := ReadTrace(tempDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Iteration != 4 {
		t.Errorf("Expected only step 4, got %+v", entries)
	}
}

func TestDeleteTrace(t *testing.T) {
	tempDir := t.TempDir()
	runID := "test-delete"

	writer, _ := NewTraceWriter(tempDir, runID, false)
	writer.Write(TraceEntry{Iteration: 1})
	writer.Close()

	if err := DeleteTrace(tempDir, runID); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(writer.Path()); !os.IsNotExist(err) {
		t.Error("Trace file should be deleted")
	}

	// Missing traces are not an error
	if err := DeleteTrace(tempDir, runID); err != nil {
		t.Errorf("DeleteTrace on missing file should succeed: %v", err)
	}
}

func BenchmarkTraceWriter(b *testing.B) {
	tempDir := b.TempDir()
	writer, err := NewTraceWriter(tempDir, "bench", false)
	if err != nil {
		b.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	point := make([]float64, 9)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := writer.Write(TraceEntry{Iteration: i, Cost: float64(i), Point: point}); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}
