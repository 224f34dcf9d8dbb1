// Package config provides configuration loading and access for the soil-bin engine.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Particles  ParticlesConfig  `yaml:"particles"`
	Simulation SimulationParams `yaml:"simulation"`
	Host       HostConfig       `yaml:"host"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EngineConfig holds the integrator constants and soil-bin geometry.
// Lengths are millimetres, time is seconds.
type EngineConfig struct {
	DT                 float64   `yaml:"dt"`
	Gravity            float64   `yaml:"gravity"` // mm/s^2
	Box                BoxConfig `yaml:"box"`
	StiffnessScale     float64   `yaml:"stiffness_scale"` // shear modulus scale for stability
	GridCellSize       float64   `yaml:"grid_cell_size"`
	VelocityDamping    float64   `yaml:"velocity_damping"`  // multiplicative per tick
	MaxContactForce    float64   `yaml:"max_contact_force"` // per-contact cap, 0 = off
	StrawSegmentLength float64   `yaml:"straw_segment_length"`
	StrawCoverHeight   float64   `yaml:"straw_cover_height"` // shroud above the surface
	BreakageScale      float64   `yaml:"breakage_scale"`     // bond force per breakage threshold unit
	Workers            int       `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold  int       `yaml:"parallel_threshold"` // below this, contacts run single-threaded
}

// BoxConfig is the rectangular soil bin. The surface is y=0, the floor is y=-Height.
type BoxConfig struct {
	Width  float64 `yaml:"width"`
	Depth  float64 `yaml:"depth"`
	Height float64 `yaml:"height"`
}

// ParticlesConfig holds population parameters.
type ParticlesConfig struct {
	Count       int    `yaml:"count"`
	Seed        uint32 `yaml:"seed"`
	StrawChains bool   `yaml:"straw_chains"`
}

// SimulationParams is the externally supplied parameter set the engine consumes each tick.
type SimulationParams struct {
	ToolType      ToolType     `yaml:"tool_type"`
	Depth         float64      `yaml:"depth"`         // cm
	ForwardSpeed  float64      `yaml:"forward_speed"` // m/s
	RotarySpeed   float64      `yaml:"rotary_speed"`  // rpm
	StrawDensity  float64      `yaml:"straw_density"` // kg/m^3, drives straw ratio
	SoilMoisture  float64      `yaml:"soil_moisture"` // %
	SoilType      SoilType     `yaml:"soil_type"`
	StrawType     StrawType    `yaml:"straw_type"`
	ContactModel  ContactModel `yaml:"contact_model"`
	InterFriction float64      `yaml:"inter_particle_friction"`

	// Rotary tiller geometry
	RotorRadius    float64 `yaml:"rotor_radius"` // mm
	BladeCount     int     `yaml:"blade_count"`
	BladeAngle     float64 `yaml:"blade_angle"`     // degrees
	BladeClearance float64 `yaml:"blade_clearance"` // mm

	SoilProps    MaterialProperties    `yaml:"soil_props"`
	StrawProps   MaterialProperties    `yaml:"straw_props"`
	Interactions InteractionProperties `yaml:"interactions"`

	// Soil mechanics
	EnableBreakage        bool    `yaml:"enable_breakage"`
	CohesionStrength      float64 `yaml:"cohesion_strength"` // kPa
	InternalFrictionAngle float64 `yaml:"internal_friction_angle"`
	BreakageThreshold     float64 `yaml:"breakage_threshold"`
}

// MaterialProperties holds elastic properties of a material.
type MaterialProperties struct {
	PoissonRatio float64 `yaml:"poisson_ratio"`
	ShearModulus float64 `yaml:"shear_modulus"` // Pa
	Density      float64 `yaml:"density"`       // kg/m^3
}

// InteractionProperties holds pairwise interaction coefficients.
type InteractionProperties struct {
	RestitutionCoeff         float64 `yaml:"restitution_coeff"` // soil-soil
	StaticFrictionSoilStraw  float64 `yaml:"static_friction_soil_straw"`
	StaticFrictionSoilTool   float64 `yaml:"static_friction_soil_tool"`
	RollingFrictionStrawTool float64 `yaml:"rolling_friction_straw_tool"`
}

// HostConfig drives the tool sweep the way the visualization host does.
type HostConfig struct {
	FrameDT    float64 `yaml:"frame_dt"`    // seconds of tool travel per tick
	SweepStart float64 `yaml:"sweep_start"` // mm
	SweepEnd   float64 `yaml:"sweep_end"`   // mm
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Omega      float64 // rotary speed in rad/s
	DepthMM    float64 // tillage depth in mm
	StrawRatio float64 // straw density / 200
	HalfWidth  float64
	HalfDepth  float64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Clone returns a deep copy. Config holds no reference types, so a value copy suffices.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ComputeDerived calculates values derived from loaded config.
// Call again after mutating Simulation or Engine fields.
func (c *Config) ComputeDerived() {
	c.Derived = c.Simulation.derive()
	c.Derived.HalfWidth = c.Engine.Box.Width / 2
	c.Derived.HalfDepth = c.Engine.Box.Depth / 2
}

func (s SimulationParams) derive() DerivedConfig {
	return DerivedConfig{
		Omega:      s.Omega(),
		DepthMM:    s.DepthMM(),
		StrawRatio: s.StrawDensity / 200,
	}
}

// Omega returns the rotary speed in rad/s.
func (s SimulationParams) Omega() float64 {
	return s.RotarySpeed * 2 * math.Pi / 60
}

// DepthMM returns the tillage depth in millimetres.
func (s SimulationParams) DepthMM() float64 {
	return s.Depth * 10
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
