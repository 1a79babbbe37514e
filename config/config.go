package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/plus3/objectlab/scene"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDensity      = 1000.0
	DefaultMaterialTag  = "default"
	DefaultFixedStep    = time.Second / 60
	DefaultMaxSubSteps  = 3
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 720
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the full host configuration. Zero sections fall back to DefaultConfig when loaded from YAML.
type Config struct {
	Physics     PhysicsConfig                       `yaml:"physics"`
	Scene       SceneConfig                         `yaml:"scene"`
	Loop        LoopConfig                          `yaml:"loop"`
	Interaction InteractionConfig                   `yaml:"interaction"`
	Camera      CameraConfig                        `yaml:"camera"`
	Window      WindowConfig                        `yaml:"window"`
	Materials   map[string]physics.ContactMaterial `yaml:"materials"`
	Pairs       []PairConfig                        `yaml:"pairs,omitempty"`
}

type PhysicsConfig struct {
	Gravity          mgl64.Vec3              `yaml:"gravity"`
	SolverIterations int                     `yaml:"solver_iterations"`
	GroundTag        string                  `yaml:"ground_tag"`
	GroundHeight     float64                 `yaml:"ground_height"`
	DefaultMaterial  physics.ContactMaterial `yaml:"default_material"`
	LinearDamping    float64                 `yaml:"linear_damping"`
	AngularDamping   float64                 `yaml:"angular_damping"`
	RestingSpeed     float64                 `yaml:"resting_speed"`
}

type SceneConfig struct {
	DefaultDensity  float64 `yaml:"default_density"`
	DefaultMaterial string  `yaml:"default_material"`
}

type LoopConfig struct {
	FixedStep   time.Duration `yaml:"fixed_step"`
	MaxSubSteps int           `yaml:"max_sub_steps"`
}

type InteractionConfig struct {
	Release         scene.ReleaseMode `yaml:"release"`
	VelocitySamples int               `yaml:"velocity_samples"`
	MaxThrowSpeed   float64           `yaml:"max_throw_speed"`
	VolumeMin       mgl64.Vec3        `yaml:"volume_min"`
	VolumeMax       mgl64.Vec3        `yaml:"volume_max"`
}

type CameraConfig struct {
	Eye    mgl64.Vec3 `yaml:"eye"`
	Target mgl64.Vec3 `yaml:"target"`
	// FovDegrees is the vertical field of view.
	FovDegrees float64 `yaml:"fov"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// PairConfig is an explicit contact table row between two tags.
type PairConfig struct {
	A           string  `yaml:"a"`
	B           string  `yaml:"b"`
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
}

func DefaultConfig() *Config {
	world := physics.DefaultConfig()
	interaction := scene.DefaultInteractionConfig()
	cam := scene.DefaultCamera(DefaultWindowWidth, DefaultWindowHeight)
	return &Config{
		Physics: PhysicsConfig{
			Gravity:          world.Gravity,
			SolverIterations: world.SolverIterations,
			GroundTag:        world.GroundTag,
			GroundHeight:     world.GroundHeight,
			DefaultMaterial:  world.DefaultMaterial,
			LinearDamping:    world.LinearDamping,
			AngularDamping:   world.AngularDamping,
			RestingSpeed:     world.RestingSpeed,
		},
		Scene: SceneConfig{
			DefaultDensity:  DefaultDensity,
			DefaultMaterial: DefaultMaterialTag,
		},
		Loop: LoopConfig{
			FixedStep:   DefaultFixedStep,
			MaxSubSteps: DefaultMaxSubSteps,
		},
		Interaction: InteractionConfig{
			Release:         interaction.Release,
			VelocitySamples: interaction.VelocitySamples,
			MaxThrowSpeed:   interaction.MaxThrowSpeed,
			VolumeMin:       interaction.Volume.Min,
			VolumeMax:       interaction.Volume.Max,
		},
		Camera: CameraConfig{
			Eye:        cam.Eye,
			Target:     cam.Target,
			FovDegrees: mgl64.RadToDeg(cam.FovY),
		},
		Window: WindowConfig{
			Width:  DefaultWindowWidth,
			Height: DefaultWindowHeight,
			Title:  "objectlab",
		},
		Materials: Presets(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
	switch {
	case c.Loop.FixedStep <= 0:
		return fmt.Errorf("%w: loop.fixed_step must be positive, got %v", ErrInvalidConfig, c.Loop.FixedStep)
	case c.Loop.MaxSubSteps <= 0:
		return fmt.Errorf("%w: loop.max_sub_steps must be positive, got %d", ErrInvalidConfig, c.Loop.MaxSubSteps)
	case c.Physics.SolverIterations <= 0:
		return fmt.Errorf("%w: physics.solver_iterations must be positive, got %d", ErrInvalidConfig, c.Physics.SolverIterations)
	case c.Scene.DefaultDensity <= 0:
		return fmt.Errorf("%w: scene.default_density must be positive, got %v", ErrInvalidConfig, c.Scene.DefaultDensity)
	case c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180:
		return fmt.Errorf("%w: camera.fov must be in (0, 180), got %v", ErrInvalidConfig, c.Camera.FovDegrees)
	}
	for k := range 3 {
		if c.Interaction.VolumeMin[k] > c.Interaction.VolumeMax[k] {
			return fmt.Errorf("%w: interaction volume is inverted on axis %d", ErrInvalidConfig, k)
		}
	}
	for tag, m := range c.Materials {
		if err := checkMaterial(tag, m.Restitution, m.Friction); err != nil {
			return err
		}
	}
	for _, p := range c.Pairs {
		if p.A == "" || p.B == "" {
			return fmt.Errorf("%w: pair needs both tags", ErrInvalidConfig)
		}
		if err := checkMaterial(p.A+"/"+p.B, p.Restitution, p.Friction); err != nil {
			return err
		}
	}
	return nil
}

func checkMaterial(name string, restitution, friction float64) error {
	if restitution < 0 || friction < 0 {
		return fmt.Errorf("%w: material %s has negative coefficients", ErrInvalidConfig, name)
	}
	return nil
}

func (c *Config) WorldConfig() physics.Config {
	return physics.Config{
		Gravity:          c.Physics.Gravity,
		SolverIterations: c.Physics.SolverIterations,
		GroundTag:        c.Physics.GroundTag,
		GroundHeight:     c.Physics.GroundHeight,
		DefaultMaterial:  c.Physics.DefaultMaterial,
		LinearDamping:    c.Physics.LinearDamping,
		AngularDamping:   c.Physics.AngularDamping,
		RestingSpeed:     c.Physics.RestingSpeed,
	}
}

// NewWorld builds a physics world and seeds its contact table from the materials and pairs.
func (c *Config) NewWorld() *physics.World {
	world := physics.NewWorld(c.WorldConfig())
	c.SeedMaterials(world)
	return world
}

// SeedMaterials writes one (tag, ground) row per material and one row per explicit pair.
func (c *Config) SeedMaterials(world *physics.World) {
	table := world.Materials()
	ground := world.Ground().Tag
	for tag, m := range c.Materials {
		table.Set(tag, ground, m)
	}
	for _, p := range c.Pairs {
		table.Set(p.A, p.B, physics.ContactMaterial{Restitution: p.Restitution, Friction: p.Friction})
	}
}

func (c *Config) RegistryConfig() scene.RegistryConfig {
	return scene.RegistryConfig{
		DefaultDensity:  c.Scene.DefaultDensity,
		DefaultMaterial: c.Scene.DefaultMaterial,
	}
}

func (c *Config) LoopConfig() scene.LoopConfig {
	return scene.LoopConfig{
		FixedStep:   c.Loop.FixedStep,
		MaxSubSteps: c.Loop.MaxSubSteps,
	}
}

func (c *Config) InteractionConfig() scene.InteractionConfig {
	return scene.InteractionConfig{
		Volume:          scene.WorkingVolume{Min: c.Interaction.VolumeMin, Max: c.Interaction.VolumeMax},
		Release:         c.Interaction.Release,
		VelocitySamples: c.Interaction.VelocitySamples,
		MaxThrowSpeed:   c.Interaction.MaxThrowSpeed,
	}
}

// NewCamera returns a camera for a viewport of the given pixel size.
func (c *Config) NewCamera(width, height float64) *scene.Camera {
	cam := scene.DefaultCamera(width, height)
	cam.Eye = c.Camera.Eye
	cam.Target = c.Camera.Target
	cam.FovY = mgl64.DegToRad(c.Camera.FovDegrees)
	return cam
}
