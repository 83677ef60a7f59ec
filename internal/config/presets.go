package config

import (
	"maps"
	"slices"

	"github.com/san-kum/detprop/internal/detector"
)

// Presets are complete configurations selectable by name. GetPreset returns
// a copy, so callers may modify it.
var Presets = map[string]func() *Config{
	// straight: neutral rays through four plain volumes
	"straight": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "straight"
		cfg.Detector = DetectorConfig{Radii: []float64{0, 10, 20, 30, 40}, HalfLength: 100}
		cfg.Field.Tesla = [3]float64{}
		cfg.Track.Charge = 0
		cfg.Stepper.Kind = "line"
		cfg.Stepper.Policy = "default"
		return cfg
	},
	// barrel: the default silicon barrel in a 2 T field
	"barrel": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "barrel"
		return cfg
	},
	// lowpt: curling 100 MeV tracks in a barrel with many thin layers
	"lowpt": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "lowpt"
		cfg.Detector = DetectorConfig{
			Radii:      []float64{0, 40, 80},
			HalfLength: 300,
			Layers:     []float64{10, 20, 30, 50, 60, 70},
			Rings:      []detector.ModuleRing{},
		}
		cfg.Track.Momentum = 0.1
		cfg.Track.ThetaSteps = 5
		cfg.Track.PhiSteps = 12
		cfg.Propagation.PathLimit = 0
		cfg.Propagation.AccuracyStep = 5
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
