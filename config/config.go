package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure so callers can test for the
// class without matching message text.
var ErrInvalid = errors.New("invalid config")

// Sweep is the inclusive unit-count range to benchmark.
type Sweep struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	Step  int `yaml:"step"`
}

type Monitor struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
	WarmupSeconds   float64 `yaml:"warmup_seconds"`
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
}

type Output struct {
	Root string `yaml:"root"`
}

type Workload struct {
	Type         string         `yaml:"type"`
	BytesPerUnit int            `yaml:"bytes_per_unit"`
	MemoryBudget string         `yaml:"memory_budget"`
	BackingStore string         `yaml:"backing_store"`
	Input        map[string]any `yaml:"input"`
}

type Config struct {
	Sweep    Sweep    `yaml:"sweep"`
	Monitor  Monitor  `yaml:"monitor"`
	Output   Output   `yaml:"output"`
	Workload Workload `yaml:"workload"`
}

func Default() *Config {
	return &Config{
		Sweep: Sweep{Start: 20, End: 26, Step: 2},
		Monitor: Monitor{
			IntervalSeconds: 0.5,
			WarmupSeconds:   1,
			CooldownSeconds: 1,
		},
		Output: Output{Root: "results"},
		Workload: Workload{
			Type:         "engine",
			BytesPerUnit: 16,
		},
	}
}

// Load reads a YAML config file. Keys absent from the file keep their
// Default() values.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := Default()
	err = yaml.Unmarshal(buf, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Sweep.Start < 1 {
		return fmt.Errorf("%w: sweep start must be at least 1, got %d", ErrInvalid, c.Sweep.Start)
	}
	if c.Sweep.End < c.Sweep.Start {
		return fmt.Errorf("%w: sweep end %d is below start %d", ErrInvalid, c.Sweep.End, c.Sweep.Start)
	}
	if c.Sweep.Step < 1 {
		return fmt.Errorf("%w: sweep step must be positive, got %d", ErrInvalid, c.Sweep.Step)
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: monitor interval must be positive, got %v", ErrInvalid, c.Monitor.IntervalSeconds)
	}
	if c.Monitor.WarmupSeconds < 0 {
		return fmt.Errorf("%w: warmup must not be negative, got %v", ErrInvalid, c.Monitor.WarmupSeconds)
	}
	if c.Monitor.CooldownSeconds < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %v", ErrInvalid, c.Monitor.CooldownSeconds)
	}
	if c.Output.Root == "" {
		return fmt.Errorf("%w: output root must be set", ErrInvalid)
	}
	if c.Workload.Type == "" {
		return fmt.Errorf("%w: workload type must be set", ErrInvalid)
	}
	if c.Workload.BytesPerUnit < 1 {
		return fmt.Errorf("%w: bytes per unit must be positive, got %d", ErrInvalid, c.Workload.BytesPerUnit)
	}
	return nil
}

// UnitCounts expands the sweep into the unit counts to run, in order.
func (s *Sweep) UnitCounts() []int {
	counts := []int{}
	for n := s.Start; n <= s.End; n += s.Step {
		counts = append(counts, n)
	}
	return counts
}

func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds * float64(time.Second))
}

func (m *Monitor) Warmup() time.Duration {
	return time.Duration(m.WarmupSeconds * float64(time.Second))
}

func (m *Monitor) Cooldown() time.Duration {
	return time.Duration(m.CooldownSeconds * float64(time.Second))
}
