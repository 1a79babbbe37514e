package physics

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kamstrup/intmap"
)

var (
	ErrUnknownBody = errors.New("physics: unknown body")
	ErrInvalidBody = errors.New("physics: invalid body definition")
)

// Config holds the global simulation parameters of a World.
type Config struct {
	Gravity          mgl64.Vec3
	SolverIterations int
	GroundTag        string
	GroundHeight     float64
	// DefaultMaterial is used for any pair of tags missing from the contact table.
	DefaultMaterial ContactMaterial
	// LinearDamping and AngularDamping are the fraction of velocity lost per second.
	LinearDamping  float64
	AngularDamping float64
	// RestingSpeed is the approach speed below which contacts stop bouncing.
	RestingSpeed float64
}

func DefaultConfig() Config {
	return Config{
		Gravity:          mgl64.Vec3{0, -9.81, 0},
		SolverIterations: 10,
		GroundTag:        "ground",
		GroundHeight:     0,
		DefaultMaterial:  ContactMaterial{Restitution: 0.3, Friction: 0.3},
		LinearDamping:    0.01,
		AngularDamping:   0.05,
		RestingSpeed:     0.25,
	}
}

// Ground is the static infinite plane every body rests on.
type Ground struct {
	Tag    string
	Height float64
	Normal mgl64.Vec3
}

// StepStats describes the most recent call to Step.
type StepStats struct {
	Steps         int64
	BroadPairs    int
	GroundHits    int
	BodyContacts  int
	IntegratedDyn int
}

// World owns every rigid body, the ground plane and the contact material table.
// It is not safe for concurrent use.
type World struct {
	cfg       Config
	ground    Ground
	bodies    *intmap.Map[BodyID, *Body]
	order     []*Body
	nextID    BodyID
	materials *ContactMaterialTable
	stats     StepStats
}

func NewWorld(cfg Config) *World {
	if cfg.SolverIterations <= 0 {
		cfg.SolverIterations = 1
	}
	if cfg.GroundTag == "" {
		cfg.GroundTag = "ground"
	}
	return &World{
		cfg: cfg,
		ground: Ground{
			Tag:    cfg.GroundTag,
			Height: cfg.GroundHeight,
			Normal: mgl64.Vec3{0, 1, 0},
		},
		bodies:    intmap.New[BodyID, *Body](64),
		materials: NewContactMaterialTable(),
	}
}

func (w *World) Config() Config                       { return w.cfg }
func (w *World) Gravity() mgl64.Vec3                  { return w.cfg.Gravity }
func (w *World) SetGravity(g mgl64.Vec3)              { w.cfg.Gravity = g }
func (w *World) Ground() Ground                       { return w.ground }
func (w *World) Materials() *ContactMaterialTable     { return w.materials }
func (w *World) Stats() StepStats                     { return w.stats }
func (w *World) Len() int                             { return len(w.order) }
func (w *World) DefaultMaterial() ContactMaterial     { return w.cfg.DefaultMaterial }
func (w *World) SetDefaultMaterial(m ContactMaterial) { w.cfg.DefaultMaterial = m }

// ContactMaterial returns the response for tags a and b. A derived tag ("rubber#7") that has no entry of its
// own inherits the entries of its base tag ("rubber"); pairs with no entry at all use the default material.
func (w *World) ContactMaterial(a, b string) ContactMaterial {
	for _, pair := range [][2]string{{a, b}, {BaseTag(a), b}, {a, BaseTag(b)}, {BaseTag(a), BaseTag(b)}} {
		if m, ok := w.materials.Get(pair[0], pair[1]); ok {
			return m
		}
	}
	return w.cfg.DefaultMaterial
}

// BaseTag strips a derived suffix introduced by '#' from a material tag.
func BaseTag(tag string) string {
	if i := strings.IndexByte(tag, '#'); i >= 0 {
		return tag[:i]
	}
	return tag
}

// AddBody inserts a body built from def and returns its handle.
func (w *World) AddBody(def BodyDef) (BodyID, error) {
	if !def.Shape.Valid() {
		return 0, fmt.Errorf("%w: %s shape has non-positive dimensions", ErrInvalidBody, def.Shape.Kind)
	}
	if !positive(def.Mass) {
		return 0, fmt.Errorf("%w: mass %v", ErrInvalidBody, def.Mass)
	}
	orientation := def.Orientation
	if orientation.Len() == 0 {
		orientation = mgl64.QuatIdent()
	}

	w.nextID++
	body := &Body{
		id:          w.nextID,
		Shape:       def.Shape,
		Type:        def.Type,
		Material:    def.Material,
		Position:    def.Position,
		Orientation: orientation.Normalize(),
		mass:        def.Mass,
		invMass:     1 / def.Mass,
	}
	w.bodies.Put(body.id, body)
	w.order = append(w.order, body)
	return body.id, nil
}

// RemoveBody deletes a body. It reports false if the body does not exist.
func (w *World) RemoveBody(id BodyID) bool {
	body, ok := w.bodies.Get(id)
	if !ok {
		return false
	}
	w.bodies.Del(id)
	w.order = slices.DeleteFunc(w.order, func(b *Body) bool { return b == body })
	return true
}

// Body returns the body for id.
func (w *World) Body(id BodyID) (*Body, bool) {
	return w.bodies.Get(id)
}

// Bodies iterates bodies in insertion order.
func (w *World) Bodies() iter.Seq[*Body] {
	return func(yield func(*Body) bool) {
		for _, b := range w.order {
			if !yield(b) {
				return
			}
		}
	}
}

func (w *World) mustBody(id BodyID) (*Body, error) {
	body, ok := w.bodies.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return body, nil
}

// ApplyImpulse changes the body's linear momentum by impulse at its centre of mass.
func (w *World) ApplyImpulse(id BodyID, impulse mgl64.Vec3) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.LinearVelocity = body.LinearVelocity.Add(impulse.Mul(body.effectiveInvMass()))
	return nil
}

// ApplyForce accumulates a force that acts during the next Step only.
func (w *World) ApplyForce(id BodyID, force mgl64.Vec3) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.force = body.force.Add(force)
	return nil
}

// SetPose teleports a body. Kinematic bodies are moved exclusively this way.
func (w *World) SetPose(id BodyID, position mgl64.Vec3, orientation mgl64.Quat) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.Position = position
	if orientation.Len() > 0 {
		body.Orientation = orientation.Normalize()
	}
	return nil
}

// SetVelocity overwrites a body's linear and angular velocity.
func (w *World) SetVelocity(id BodyID, linear, angular mgl64.Vec3) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.LinearVelocity = linear
	body.AngularVelocity = angular
	return nil
}

// SetType switches a body between dynamic and kinematic. Becoming kinematic clears velocity and forces.
func (w *World) SetType(id BodyID, t BodyType) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.Type = t
	if t == BodyKinematic {
		body.LinearVelocity = mgl64.Vec3{}
		body.AngularVelocity = mgl64.Vec3{}
		body.force = mgl64.Vec3{}
	}
	return nil
}

// SetMaterial changes the material tag of a body's shape.
func (w *World) SetMaterial(id BodyID, tag string) error {
	body, err := w.mustBody(id)
	if err != nil {
		return err
	}
	body.Material = tag
	return nil
}

// Step advances the simulation by dt seconds.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.stats = StepStats{Steps: w.stats.Steps + 1}

	linDamp := math.Pow(1-clamp01(w.cfg.LinearDamping), dt)
	angDamp := math.Pow(1-clamp01(w.cfg.AngularDamping), dt)

	for _, b := range w.order {
		if b.Type != BodyDynamic {
			b.force = mgl64.Vec3{}
			continue
		}
		w.stats.IntegratedDyn++

		accel := w.cfg.Gravity.Add(b.force.Mul(b.invMass))
		b.LinearVelocity = b.LinearVelocity.Add(accel.Mul(dt)).Mul(linDamp)
		b.AngularVelocity = b.AngularVelocity.Mul(angDamp)
		b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
		b.Orientation = integrateOrientation(b.Orientation, b.AngularVelocity, dt)
		b.force = mgl64.Vec3{}
	}

	pairs := w.broadphase()
	w.stats.BroadPairs = len(pairs)

	bounced := make(map[BodyID]bool, len(w.order))
	for range w.cfg.SolverIterations {
		for _, b := range w.order {
			if b.Type != BodyDynamic {
				continue
			}
			if w.resolveGround(b, !bounced[b.id]) {
				bounced[b.id] = true
			}
		}
		for _, p := range pairs {
			w.resolvePair(p[0], p[1])
		}
	}
	w.stats.GroundHits = len(bounced)
}

func integrateOrientation(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	if omega.Len() == 0 {
		return q
	}
	spin := mgl64.Quat{W: 0, V: omega}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
