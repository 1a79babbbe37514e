package scene

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
)

// Kind is the geometric primitive of a scene object.
type Kind uint8

const (
	KindSphere Kind = iota
	KindBox
	KindCylinder
)

var kindNames = [...]string{"sphere", "box", "cylinder"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: object kind %q", ErrInvalidGeometry, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Dimensions of a primitive in metres. Spheres use Radius, boxes use Width, Height and Depth,
// cylinders use Radius and Height.
type Dimensions struct {
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Width  float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Depth  float64 `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// ObjectSpec describes an object to create.
type ObjectSpec struct {
	// ID is an optional external name the object can be targeted by.
	ID          string     `json:"id,omitempty" yaml:"id,omitempty"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Dimensions  Dimensions `json:"dimensions" yaml:"dimensions"`
	MaterialTag string     `json:"material,omitempty" yaml:"material,omitempty"`
	// Mass wins over Density when both are set. With neither, the registry's default density is used.
	Mass     float64    `json:"mass,omitempty" yaml:"mass,omitempty"`
	Density  float64    `json:"density,omitempty" yaml:"density,omitempty"`
	Position mgl64.Vec3 `json:"position" yaml:"position"`
	// Rotation holds XYZ Euler angles in radians.
	Rotation  mgl64.Vec3 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Draggable *bool      `json:"draggable,omitempty" yaml:"draggable,omitempty"`
	Color     string     `json:"color,omitempty" yaml:"color,omitempty"`
}

func (s ObjectSpec) validate() error {
	d := s.Dimensions
	var dims []float64
	switch s.Kind {
	case KindSphere:
		dims = []float64{d.Radius}
	case KindBox:
		dims = []float64{d.Width, d.Height, d.Depth}
	case KindCylinder:
		dims = []float64{d.Radius, d.Height}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidGeometry, s.Kind)
	}
	for _, v := range dims {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s dimension %v must be positive and finite", ErrInvalidGeometry, s.Kind, v)
		}
	}
	if s.Mass < 0 || math.IsNaN(s.Mass) || math.IsInf(s.Mass, 0) {
		return fmt.Errorf("%w: mass %v", ErrInvalidGeometry, s.Mass)
	}
	if s.Density < 0 || math.IsNaN(s.Density) || math.IsInf(s.Density, 0) {
		return fmt.Errorf("%w: density %v", ErrInvalidGeometry, s.Density)
	}
	if !finite(s.Position) || !finite(s.Rotation) {
		return fmt.Errorf("%w: non-finite pose", ErrInvalidGeometry)
	}
	if s.Color != "" {
		if _, err := ParseColor(s.Color); err != nil {
			return err
		}
	}
	return nil
}

// volume is the volume of the visual primitive, which for cylinders differs from its collision shape.
func (s ObjectSpec) volume() float64 {
	d := s.Dimensions
	switch s.Kind {
	case KindSphere:
		return 4.0 / 3.0 * math.Pi * d.Radius * d.Radius * d.Radius
	case KindBox:
		return d.Width * d.Height * d.Depth
	case KindCylinder:
		return math.Pi * d.Radius * d.Radius * d.Height
	}
	return 0
}

func (s ObjectSpec) shape() physics.Shape {
	d := s.Dimensions
	switch s.Kind {
	case KindBox:
		return physics.Box(mgl64.Vec3{d.Width / 2, d.Height / 2, d.Depth / 2})
	case KindCylinder:
		return physics.Box(mgl64.Vec3{d.Radius, d.Height / 2, d.Radius})
	default:
		return physics.Sphere(d.Radius)
	}
}

func (s ObjectSpec) orientation() mgl64.Quat {
	if s.Rotation == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return mgl64.AnglesToQuat(s.Rotation[0], s.Rotation[1], s.Rotation[2], mgl64.XYZ).Normalize()
}

func (s ObjectSpec) signature() string {
	return fmt.Sprintf("%s|%g,%g,%g,%g|%s|%g|%g|%g,%g,%g",
		s.Kind, s.Dimensions.Radius, s.Dimensions.Width, s.Dimensions.Height, s.Dimensions.Depth,
		s.MaterialTag, s.Mass, s.Density, s.Position[0], s.Position[1], s.Position[2])
}

// Authority names who currently owns an object's pose.
type Authority uint8

const (
	// Dynamic objects are driven by the physics world; their visual pose follows.
	Dynamic Authority = iota
	// Kinematic objects are placed directly, typically by a drag.
	Kinematic
)

func (a Authority) String() string {
	if a == Kinematic {
		return "kinematic"
	}
	return "dynamic"
}

// VisualPose is the transform a renderer draws an object with.
type VisualPose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    float64
}

type Appearance struct {
	Color   color.NRGBA
	Opacity float64
}

// PhysicsPose is a snapshot of an object's rigid body state.
type PhysicsPose struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// SceneObject pairs a visual with the rigid body that drives it. Both halves share one lifetime.
type SceneObject struct {
	id          ObjectID
	spec        ObjectSpec
	mass        float64
	baseTag     string
	materialTag string
	body        *physics.Body
	authority   Authority
	draggable   bool
	behaviors   [behaviorKindCount]Behavior
	// synced is the rotation last copied from the body, before any visual-only spin.
	synced mgl64.Quat

	Visual     VisualPose
	Appearance Appearance
}

func (o *SceneObject) ID() ObjectID               { return o.id }
func (o *SceneObject) ExternalID() string         { return o.spec.ID }
func (o *SceneObject) Kind() Kind                 { return o.spec.Kind }
func (o *SceneObject) Dimensions() Dimensions     { return o.spec.Dimensions }
func (o *SceneObject) Spec() ObjectSpec           { return o.spec }
func (o *SceneObject) Mass() float64              { return o.mass }
func (o *SceneObject) MaterialTag() string        { return o.materialTag }
func (o *SceneObject) BaseTag() string            { return o.baseTag }
func (o *SceneObject) Authority() Authority       { return o.authority }
func (o *SceneObject) Draggable() bool            { return o.draggable }
func (o *SceneObject) SetDraggable(v bool)        { o.draggable = v }
func (o *SceneObject) Body() *physics.Body        { return o.body }
func (o *SceneObject) SyncedRotation() mgl64.Quat { return o.synced }

// OwnedTag is the material tag reserved for this object's private contact pairs.
func (o *SceneObject) OwnedTag() string {
	return o.baseTag + "#" + o.id.String()
}

// PhysicsPose returns the current state of the object's body.
func (o *SceneObject) PhysicsPose() PhysicsPose {
	return PhysicsPose{
		Position:        o.body.Position,
		Orientation:     o.body.Orientation,
		LinearVelocity:  o.body.LinearVelocity,
		AngularVelocity: o.body.AngularVelocity,
	}
}

// HalfExtents are the unscaled half sizes of the visual along its local axes.
func (o *SceneObject) HalfExtents() mgl64.Vec3 {
	d := o.spec.Dimensions
	switch o.spec.Kind {
	case KindSphere:
		return mgl64.Vec3{d.Radius, d.Radius, d.Radius}
	case KindBox:
		return mgl64.Vec3{d.Width / 2, d.Height / 2, d.Depth / 2}
	default:
		return mgl64.Vec3{d.Radius, d.Height / 2, d.Radius}
	}
}

// VisualShape is the object's primitive scaled by its visual scale, used for picking and bounds.
func (o *SceneObject) VisualShape() physics.Shape {
	scale := o.Visual.Scale
	if o.spec.Kind == KindSphere {
		return physics.Sphere(o.spec.Dimensions.Radius * scale)
	}
	return physics.Box(o.HalfExtents().Mul(scale))
}

// Bounds returns the world-space axis aligned bounds of the visual.
func (o *SceneObject) Bounds() (lo, hi mgl64.Vec3) {
	return o.VisualShape().AABB(o.Visual.Position, o.Visual.Rotation)
}

// Behavior returns the behavior registered for kind, if any.
func (o *SceneObject) Behavior(kind BehaviorKind) (Behavior, bool) {
	if kind >= behaviorKindCount || o.behaviors[kind] == nil {
		return nil, false
	}
	return o.behaviors[kind], true
}

// Behaviors returns the registered behaviors in kind order.
func (o *SceneObject) Behaviors() []Behavior {
	var out []Behavior
	for _, b := range o.behaviors {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// SetBehavior registers b, replacing any behavior of the same kind.
func (o *SceneObject) SetBehavior(b Behavior) {
	o.behaviors[b.Kind()] = b
}

// ClearBehavior removes the behavior of kind and reports whether one was registered.
func (o *SceneObject) ClearBehavior(kind BehaviorKind) bool {
	if kind >= behaviorKindCount || o.behaviors[kind] == nil {
		return false
	}
	o.behaviors[kind] = nil
	return true
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
