package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/swimmer"
)

const (
	DefaultIntegrator     = "rk45"
	DefaultFieldMagnitude = 1.0
	DefaultRolloutDt      = 0.1
	DefaultDuration       = 100.0
	DefaultOmega          = 1.0
	DefaultLedger         = "memory"
	DefaultKp             = 0.5
	DefaultKi             = 0.0
	DefaultKd             = 0.1
)

type Config struct {
	Integrator     string          `yaml:"integrator"`
	Seed           int64           `yaml:"seed"`
	FieldMagnitude float64         `yaml:"field_magnitude"`
	Swimmers       []SwimmerConfig `yaml:"swimmers"`
	Env            env.Config      `yaml:"env"`
	Rollout        RolloutConfig   `yaml:"rollout"`
	Serve          ServeConfig     `yaml:"serve"`
}

// SwimmerConfig describes one swimmer either by its reduced coefficients
// or by its magnetic moment and the diagonals of the propulsion matrix
// blocks. File names a line-based swimmer file, resolved relative to the
// config file.
type SwimmerConfig struct {
	Bmb    float64    `yaml:"bmb,omitempty"`
	Cmb    float64    `yaml:"cmb,omitempty"`
	File   string     `yaml:"file,omitempty"`
	Moment [3]float64 `yaml:"moment,omitempty,flow"`
	A      [3]float64 `yaml:"A,omitempty,flow"`
	B      [3]float64 `yaml:"B,omitempty,flow"`
	C      [3]float64 `yaml:"C,omitempty,flow"`
}

type RolloutConfig struct {
	Controller string         `yaml:"controller"`
	Omega      float64        `yaml:"omega"`
	Schedule   []ScheduleStep `yaml:"schedule,omitempty"`
	Dt         float64        `yaml:"dt"`
	Duration   float64        `yaml:"duration"`
	Positions  []float64      `yaml:"positions,omitempty,flow"`
	PID        PIDConfig      `yaml:"pid,omitempty"`
}

// PIDConfig steers swimmer Swimmer toward Target.
type PIDConfig struct {
	Kp      float64 `yaml:"kp"`
	Ki      float64 `yaml:"ki"`
	Kd      float64 `yaml:"kd"`
	Target  float64 `yaml:"target"`
	Swimmer int     `yaml:"swimmer"`
}

// ScheduleStep holds Omega until time Until.
type ScheduleStep struct {
	Until float64 `yaml:"until"`
	Omega float64 `yaml:"omega"`
}

type ServeConfig struct {
	Ledger      string `yaml:"ledger"`
	LedgerPath  string `yaml:"ledger_path,omitempty"`
	MaxEpisodes int    `yaml:"max_episodes,omitempty"`
	Listen      string `yaml:"listen,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator:     DefaultIntegrator,
		FieldMagnitude: DefaultFieldMagnitude,
		Swimmers: []SwimmerConfig{
			{Bmb: 1, Cmb: 1},
			{Bmb: 1, Cmb: 2},
		},
		Env: env.DefaultConfig(),
		Rollout: RolloutConfig{
			Controller: "constant",
			Omega:      DefaultOmega,
			Dt:         DefaultRolloutDt,
			Duration:   DefaultDuration,
			PID:        PIDConfig{Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd},
		},
		Serve: ServeConfig{Ledger: DefaultLedger},
	}
}

// Load reads a YAML config on top of DefaultConfig. Swimmer files are
// resolved relative to the config's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Swimmers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Swimmers) == 0 {
		cfg.Swimmers = DefaultConfig().Swimmers
	}

	dir := filepath.Dir(path)
	for i, s := range cfg.Swimmers {
		if s.File == "" {
			continue
		}
		f := s.File
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		parsed, err := LoadSwimmerFile(f)
		if err != nil {
			return nil, fmt.Errorf("swimmer %d: %w", i, err)
		}
		parsed.File = s.File
		cfg.Swimmers[i] = parsed
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
	if len(c.Swimmers) == 0 {
		return dynamo.Configf("no swimmers configured")
	}
	for i, sw := range c.Swimmers {
		if _, cmb := sw.Reduced(c.FieldMagnitude); !(cmb > 0) || math.IsInf(cmb, 0) {
			return dynamo.Configf("swimmer %d: cmb must be positive and finite, got %g", i, cmb)
		}
	}
	if err := c.Env.Validate(); err != nil {
		return err
	}
	if _, err := integrators.NewSolver(c.Integrator); err != nil {
		return dynamo.Configf("%v", err)
	}
	if len(c.Rollout.Positions) > 0 && len(c.Rollout.Positions) != len(c.Swimmers) {
		return dynamo.Configf("rollout has %d positions for %d swimmers", len(c.Rollout.Positions), len(c.Swimmers))
	}
	if !(c.Rollout.Dt > 0) || !(c.Rollout.Duration > 0) {
		return dynamo.Configf("rollout dt and duration must be positive, got %g and %g", c.Rollout.Dt, c.Rollout.Duration)
	}
	return nil
}

// Coefficients resolves every swimmer to its (bmb, cmb) pair.
func (c *Config) Coefficients() (*swimmer.Coefficients, error) {
	bmb := make([]float64, len(c.Swimmers))
	cmb := make([]float64, len(c.Swimmers))
	for i, s := range c.Swimmers {
		bmb[i], cmb[i] = s.Reduced(c.FieldMagnitude)
	}
	return swimmer.NewCoefficients(bmb, cmb)
}

// Reduced returns the swimmer's coefficients under a field of magnitude
// field. A non-zero moment takes precedence over direct values:
// bmb = |m|*field*B[0], cmb = |m|*field*C[0].
func (s SwimmerConfig) Reduced(field float64) (bmb, cmb float64) {
	if s.Moment == [3]float64{} {
		return s.Bmb, s.Cmb
	}
	m := math.Sqrt(s.Moment[0]*s.Moment[0] + s.Moment[1]*s.Moment[1] + s.Moment[2]*s.Moment[2])
	return m * field * s.B[0], m * field * s.C[0]
}

// InitialPositions returns the configured rollout start, or every swimmer
// at distance 1 from the origin when none is set.
func (c *Config) InitialPositions() []float64 {
	x := make([]float64, len(c.Swimmers))
	if len(c.Rollout.Positions) == len(x) {
		copy(x, c.Rollout.Positions)
		return x
	}
	for i := range x {
		x[i] = 1
	}
	return x
}

func (c *Config) Clone() *Config {
	out := *c
	out.Swimmers = append([]SwimmerConfig(nil), c.Swimmers...)
	out.Rollout.Schedule = append([]ScheduleStep(nil), c.Rollout.Schedule...)
	out.Rollout.Positions = append([]float64(nil), c.Rollout.Positions...)
	return &out
}
