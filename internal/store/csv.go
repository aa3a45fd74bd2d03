package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const trajectoryFile = "trajectory.csv"

// WriteTrajectoryCSV writes one comma-delimited row per trace entry holding
// the coordinates of its point. This is the format the animation tooling reads.
func WriteTrajectoryCSV(w io.Writer, entries []TraceEntry) error {
	cw := csv.NewWriter(w)

	for _, entry := range entries {
		row := make([]string, len(entry.Point))
		for i, v := range entry.Point {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write trajectory row %d: %w", entry.Iteration, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush trajectory: %w", err)
	}
	return nil
}

// ReadTrajectoryCSV parses a trajectory written by WriteTrajectoryCSV.
// Every row must have the same number of coordinates.
func ReadTrajectoryCSV(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)

	var points [][]float64
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read trajectory line %d: %w", line, err)
		}

		point := make([]float64, len(row))
		for i, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid coordinate on line %d: %w", line, err)
			}
			point[i] = v
		}
		points = append(points, point)
	}

	return points, nil
}

// SaveTrajectoryCSV writes <baseDir>/runs/<runID>/trajectory.csv and returns its path.
func SaveTrajectoryCSV(baseDir, runID string, entries []TraceEntry) (string, error) {
	runDir := RunDir(baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(runDir, trajectoryFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create trajectory file: %w", err)
	}

	if err := WriteTrajectoryCSV(f, entries); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close trajectory file: %w", err)
	}

	return path, nil
}
