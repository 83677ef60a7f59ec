package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/field"
	"github.com/san-kum/detprop/internal/logger"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/propagator"
	"github.com/san-kum/detprop/internal/stepper"
	"github.com/san-kum/detprop/internal/track"
	"github.com/san-kum/detprop/internal/units"
)

const (
	DefaultMomentum     = 10 * units.GeV
	DefaultCharge       = -1.0
	DefaultFieldTesla   = 2.0
	DefaultPathLimit    = 60 * units.Centimeter
	DefaultAccuracyStep = 30 * units.Centimeter
	DefaultThetaSteps   = 10
	DefaultPhiSteps     = 10
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Name        string            `yaml:"name"`
	Detector    DetectorConfig    `yaml:"detector"`
	Field       FieldConfig       `yaml:"field"`
	Track       TrackConfig       `yaml:"track"`
	Stepper     StepperConfig     `yaml:"stepper"`
	Navigation  navigation.Config `yaml:"navigation"`
	Propagation PropagationConfig `yaml:"propagation"`
	Log         logger.Options    `yaml:"log"`
}

// DetectorConfig describes a toy cylinder stack. Radii are the volume
// boundaries; layers, rings and discs add modules inside the volumes.
type DetectorConfig struct {
	Radii      []float64             `yaml:"radii" validate:"min=2,increasing,dive,gte=0"`
	HalfLength float64               `yaml:"half_length" validate:"gt=0"`
	Layers     []float64             `yaml:"layers,omitempty" validate:"dive,gt=0"`
	Rings      []detector.ModuleRing `yaml:"rings,omitempty" validate:"dive"`
	Discs      []detector.EndcapDisc `yaml:"discs,omitempty" validate:"dive"`
}

type FieldConfig struct {
	Kind  string     `yaml:"kind" validate:"oneof=constant solenoid"`
	// Tesla is the field vector; a solenoid uses only its z component.
	Tesla [3]float64 `yaml:"tesla"`
	// Radius of the solenoid; the field is zero outside.
	Radius float64 `yaml:"radius,omitempty" validate:"gte=0"`
}

type TrackConfig struct {
	Origin     [3]float64 `yaml:"origin"`
	Momentum   float64    `yaml:"momentum" validate:"gt=0"`
	Charge     float64    `yaml:"charge" validate:"gte=-1,lte=1"`
	ThetaSteps int        `yaml:"theta_steps" validate:"gte=1"`
	PhiSteps   int        `yaml:"phi_steps" validate:"gte=1"`
}

type StepperConfig struct {
	stepper.Config `yaml:",inline"`

	Kind     string                 `yaml:"kind" validate:"oneof=rk line"`
	Policy   string                 `yaml:"policy" validate:"oneof=default approach"`
	Approach stepper.ApproachPolicy `yaml:"approach"`
}

type PropagationConfig struct {
	propagator.Config `yaml:",inline"`

	// PathLimit aborts tracks after this distance, 0 disables it.
	PathLimit float64 `yaml:"path_limit" validate:"gte=0"`
	// AccuracyStep bounds every step, 0 disables it.
	AccuracyStep float64  `yaml:"accuracy_step" validate:"gte=0"`
	Actors       []string `yaml:"actors"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "default",
		Detector: DetectorConfig{
			Radii:      []float64{0, 50, 100, 150, 200},
			HalfLength: 500,
			Layers:     []float64{125, 175},
			Rings: []detector.ModuleRing{
				{Radius: 30, Staves: 10, HalfLength: 450},
				{Radius: 75, Staves: 16, HalfLength: 450},
			},
			Discs: []detector.EndcapDisc{
				{Z: 470, RMin: 2, RMax: 45},
				{Z: 470, RMin: 55, RMax: 95, Petals: 12},
			},
		},
		Field: FieldConfig{Kind: "constant", Tesla: [3]float64{0, 0, DefaultFieldTesla}},
		Track: TrackConfig{
			Momentum:   DefaultMomentum,
			Charge:     DefaultCharge,
			ThetaSteps: DefaultThetaSteps,
			PhiSteps:   DefaultPhiSteps,
		},
		Stepper: StepperConfig{
			Kind:     "rk",
			Config:   stepper.DefaultConfig(),
			Policy:   "approach",
			Approach: stepper.ApproachPolicy{Window: 1 * units.Millimeter, Factor: 0.5},
		},
		Navigation: navigation.DefaultConfig(),
		Propagation: PropagationConfig{
			Config:       propagator.DefaultConfig(),
			PathLimit:    DefaultPathLimit,
			AccuracyStep: DefaultAccuracyStep,
			Actors:       []string{"tracer", "steps"},
		},
		Log: logger.DefaultOptions(),
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Overlay(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay reads path on top of cfg; keys missing from the file keep their
// current values.
func Overlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("increasing", validateIncreasing)
}

func validateIncreasing(fl validator.FieldLevel) bool {
	radii, ok := fl.Field().Interface().([]float64)
	if !ok {
		return false
	}
	for i := 1; i < len(radii); i++ {
		if radii[i] <= radii[i-1] {
			return false
		}
	}
	return true
}

// Validate checks the struct tags and reports every violation in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
}

func (c *Config) BuildDetector() (*detector.Detector, error) {
	d := c.Detector
	return detector.NewCylinderStack(d.Radii, d.HalfLength,
		detector.WithName(c.Name),
		detector.WithCylinderLayers(d.Layers...),
		detector.WithModuleRings(d.Rings...),
		detector.WithEndcapDiscs(d.Discs...),
	)
}

func (c *Config) BuildField() field.Field {
	if c.Field.Kind == "solenoid" {
		return field.Solenoid{B0: c.Field.Tesla[2], Radius: c.Field.Radius}
	}
	return field.NewConstant(mgl64.Vec3(c.Field.Tesla))
}

// ConstantField reports the field vector in internal units when it is the
// same everywhere, which is what the helix ground truth needs.
func (c *Config) ConstantField() (mgl64.Vec3, bool) {
	if c.Field.Kind != "constant" {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3(c.Field.Tesla).Mul(units.Tesla), true
}

func (c *Config) BuildStepper(f field.Field) stepper.Stepper {
	if c.Stepper.Kind == "line" {
		return stepper.Line{Mass: c.Stepper.Mass}
	}
	return stepper.NewRungeKutta(f, c.Stepper.Config)
}

func (c *Config) BuildPolicy() stepper.Policy {
	if c.Stepper.Policy == "approach" {
		return c.Stepper.Approach
	}
	return stepper.DefaultPolicy{}
}

// Constraints are the caller step constraints every track starts with.
func (c *Config) Constraints() stepper.Constraints {
	var cs stepper.Constraints
	if c.Propagation.AccuracyStep > 0 {
		cs.Set(stepper.Accuracy, c.Propagation.AccuracyStep)
	}
	return cs
}

func (c *Config) Generator() track.Generator {
	return track.Generator{
		ThetaSteps: c.Track.ThetaSteps,
		PhiSteps:   c.Track.PhiSteps,
		Origin:     mgl64.Vec3(c.Track.Origin),
		Momentum:   c.Track.Momentum,
		Charge:     c.Track.Charge,
	}
}
