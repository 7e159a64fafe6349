package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/metrics"
)

const (
	DefaultFullResolution = 2000
	DefaultDecimateEvery  = 5
)

type Config struct {
	Model                 dynamo.ModelKind   `yaml:"model"`
	StepSize              float64            `yaml:"step_size"`
	TickInterval          time.Duration      `yaml:"tick_interval"`
	ExtinctionFloor       float64            `yaml:"extinction_floor"`
	ConservationTolerance float64            `yaml:"conservation_tolerance"`
	History               HistoryConfig      `yaml:"history"`
	Thresholds            metrics.Thresholds `yaml:"thresholds"`
	Competition           CompetitionConfig  `yaml:"competition"`
	PredatorPrey          PredatorPreyConfig `yaml:"predator_prey"`
}

// HistoryConfig controls trajectory decimation: the first FullResolution
// ticks are all kept, later ticks only when their index is a multiple of
// DecimateEvery.
type HistoryConfig struct {
	FullResolution int `yaml:"full_resolution"`
	DecimateEvery  int `yaml:"decimate_every"`
}

type CompetitionConfig struct {
	R1  float64 `yaml:"r1"`
	R2  float64 `yaml:"r2"`
	K1  float64 `yaml:"K1"`
	K2  float64 `yaml:"K2"`
	A12 float64 `yaml:"a12"`
	A21 float64 `yaml:"a21"`
	N10 float64 `yaml:"N1_0"`
	N20 float64 `yaml:"N2_0"`
}

type PredatorPreyConfig struct {
	R1  float64 `yaml:"r1"`
	R2  float64 `yaml:"r2"`
	A   float64 `yaml:"a"`
	B   float64 `yaml:"b"`
	N10 float64 `yaml:"N1_0"`
	N20 float64 `yaml:"N2_0"`
}

func DefaultConfig() *Config {
	c := ecology.DefaultCompetition()
	p := ecology.DefaultPredatorPrey()
	return &Config{
		Model:                 dynamo.PredatorPrey,
		StepSize:              dynamo.DefaultStepSize,
		TickInterval:          dynamo.DefaultTickInterval,
		ExtinctionFloor:       dynamo.ExtinctionFloor,
		ConservationTolerance: dynamo.ConservationTolerance,
		History: HistoryConfig{
			FullResolution: DefaultFullResolution,
			DecimateEvery:  DefaultDecimateEvery,
		},
		Thresholds: metrics.DefaultThresholds(),
		Competition: CompetitionConfig{
			R1: c.R1, R2: c.R2, K1: c.K1, K2: c.K2, A12: c.A12, A21: c.A21, N10: c.N10, N20: c.N20,
		},
		PredatorPrey: PredatorPreyConfig{
			R1: p.R1, R2: p.R2, A: p.A, B: p.B, N10: p.N10, N20: p.N20,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !(c.StepSize > 0) || !dynamo.IsFinite(c.StepSize) {
		return fmt.Errorf("step_size must be positive, got %g", c.StepSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if !(c.ExtinctionFloor > 0) {
		return fmt.Errorf("extinction_floor must be positive, got %g", c.ExtinctionFloor)
	}
	if !(c.ConservationTolerance > 0) {
		return fmt.Errorf("conservation_tolerance must be positive, got %g", c.ConservationTolerance)
	}
	if c.History.FullResolution < 1 {
		return fmt.Errorf("history.full_resolution must be at least 1, got %d", c.History.FullResolution)
	}
	if c.History.DecimateEvery < 1 {
		return fmt.Errorf("history.decimate_every must be at least 1, got %d", c.History.DecimateEvery)
	}
	for _, kind := range []dynamo.ModelKind{dynamo.Competition, dynamo.PredatorPrey} {
		if err := ecology.Validate(c.Params(kind)); err != nil {
			return err
		}
	}
	return nil
}

// Params builds the configured parameter set for kind.
func (c *Config) Params(kind dynamo.ModelKind) ecology.Params {
	if kind == dynamo.Competition {
		m := c.Competition
		return ecology.NewCompetition(m.R1, m.R2, m.K1, m.K2, m.A12, m.A21, m.N10, m.N20)
	}
	m := c.PredatorPrey
	return ecology.NewPredatorPrey(m.R1, m.R2, m.A, m.B, m.N10, m.N20)
}

// SetParams stores p as the configured defaults for its model.
func (c *Config) SetParams(p ecology.Params) {
	switch m := p.(type) {
	case *ecology.Competition:
		c.Competition = CompetitionConfig{R1: m.R1, R2: m.R2, K1: m.K1, K2: m.K2, A12: m.A12, A21: m.A21, N10: m.N10, N20: m.N20}
	case *ecology.PredatorPrey:
		c.PredatorPrey = PredatorPreyConfig{R1: m.R1, R2: m.R2, A: m.A, B: m.B, N10: m.N10, N20: m.N20}
	}
}
