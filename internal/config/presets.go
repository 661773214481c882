package config

import (
	"sort"

	"github.com/san-kum/abfsim/internal/env"
)

func presetEnv(dt float64, maxSteps int) env.Config {
	cfg := env.DefaultConfig()
	cfg.Dt = dt
	cfg.MaxSteps = maxSteps
	return cfg
}

var Presets = map[string]*Config{
	"single": {
		Integrator: "rk45", FieldMagnitude: 1,
		Swimmers: []SwimmerConfig{{Bmb: 1, Cmb: 2}},
		Env:      presetEnv(1, 500),
		Rollout:  RolloutConfig{Controller: "constant", Omega: 1, Dt: 0.1, Duration: 100},
	},
	"pair": {
		Integrator: "rk45", FieldMagnitude: 1,
		Swimmers: []SwimmerConfig{{Bmb: 1, Cmb: 1}, {Bmb: 1, Cmb: 2}},
		Env:      presetEnv(1, 500),
		Rollout:  RolloutConfig{Controller: "constant", Omega: 10, Dt: 0.1, Duration: 100},
	},
	"separable": {
		Integrator: "rk45", FieldMagnitude: 1,
		Swimmers: []SwimmerConfig{{Bmb: 1, Cmb: 1}, {Bmb: 1, Cmb: 2}, {Bmb: 1, Cmb: 3}},
		Env:      presetEnv(1, 1000),
		Rollout: RolloutConfig{
			Controller: "schedule", Dt: 0.1, Duration: 120,
			Schedule: []ScheduleStep{{Until: 40, Omega: 0.8}, {Until: 80, Omega: 1.8}, {Until: 120, Omega: 2.8}},
		},
	},
	"calibrated": {
		Integrator: "rk45", FieldMagnitude: 1,
		Swimmers: []SwimmerConfig{{Bmb: 10, Cmb: 8}, {Bmb: 12, Cmb: 11}},
		Env:      presetEnv(0.5, 500),
		Rollout:  RolloutConfig{Controller: "constant", Omega: 9, Dt: 0.05, Duration: 50},
	},
	"fixed-step": {
		Integrator: "rk4", FieldMagnitude: 1,
		Swimmers: []SwimmerConfig{{Bmb: 1, Cmb: 2}},
		Env:      presetEnv(0.1, 500),
		Rollout:  RolloutConfig{Controller: "constant", Omega: 0, Dt: 0.1, Duration: 10},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.Serve.Ledger == "" {
		out.Serve.Ledger = DefaultLedger
	}
	return out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
