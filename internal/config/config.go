// Package config loads YAML run files for the gdprocgen CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/gdprocgen/internal/opt"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/cwbudde/gdprocgen/internal/store"
)

// DefaultAddr is the listen address of the HTTP server when none is configured
const DefaultAddr = ":8080"

// DefaultDataDir is where run artifacts are written when none is configured
const DefaultDataDir = "./data"

// ServerConfig configures `gdprocgen serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// File is the on-disk run configuration.
type File struct {
	Problem          string                `yaml:"problem"`
	Strategy         string                `yaml:"strategy"`
	MaxIters         int                   `yaml:"max_iters"`
	StepSize         float64               `yaml:"step_size"`
	Seed             *int64                `yaml:"seed,omitempty"`
	Maximize         bool                  `yaml:"maximize"`
	X0               []float64             `yaml:"x0,omitempty"`
	Convergence      opt.ConvergenceConfig `yaml:"convergence"`
	AbortOnNonFinite bool                  `yaml:"abort_on_non_finite"`

	DataDir string       `yaml:"data_dir"`
	Store   string       `yaml:"store"`
	Server  ServerConfig `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	// Early stopping is off, but enabling it in a file keeps these tunings
	convergence := opt.DefaultConvergenceConfig()
	convergence.Enabled = false

	return &File{
		Problem:     problem.BowlName,
		Strategy:    string(opt.Batch),
		MaxIters:    opt.DefaultMaxIters,
		StepSize:    opt.DefaultStepSize,
		Convergence: convergence,
		DataDir:     DefaultDataDir,
		Store:       store.KindFS,
		Server:      ServerConfig{Addr: DefaultAddr},
	}
}

// Load reads the file at path on top of Default and validates the result.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error loading config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error parsing YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values without touching the filesystem.
func (c *File) Validate() error {
	if c.Problem == "" {
		return &opt.ConfigError{Field: "problem", Reason: "is required"}
	}
	if !isKnownProblem(c.Problem) {
		return &opt.ConfigError{Field: "problem", Reason: fmt.Sprintf("unknown problem %q", c.Problem)}
	}
	if c.Strategy != "" {
		if _, err := opt.ParseStrategy(c.Strategy); err != nil {
			return err
		}
	}
	if c.MaxIters < 0 {
		return &opt.ConfigError{Field: "max_iters", Reason: "cannot be negative"}
	}
	if c.StepSize < 0 {
		return &opt.ConfigError{Field: "step_size", Reason: "cannot be negative"}
	}
	switch c.Store {
	case "", store.KindFS, store.KindSQLite:
	default:
		return &opt.ConfigError{Field: "store", Reason: fmt.Sprintf("must be %s or %s", store.KindFS, store.KindSQLite)}
	}
	if c.Convergence.Enabled && c.Convergence.Patience <= 0 {
		return &opt.ConfigError{Field: "convergence.patience", Reason: "must be positive when enabled"}
	}
	return nil
}

// RunConfig returns the run portion of the file.
func (c *File) RunConfig() store.RunConfig {
	rc := store.RunConfig{
		Problem:          c.Problem,
		Strategy:         c.Strategy,
		MaxIters:         c.MaxIters,
		StepSize:         c.StepSize,
		Maximize:         c.Maximize,
		Convergence:      c.Convergence,
		AbortOnNonFinite: c.AbortOnNonFinite,
	}
	if c.Seed != nil {
		seed := *c.Seed
		rc.Seed = &seed
	}
	if len(c.X0) > 0 {
		rc.X0 = append([]float64(nil), c.X0...)
	}
	return rc
}

func isKnownProblem(name string) bool {
	for _, n := range problem.Names() {
		if n == name {
			return true
		}
	}
	return false
}
