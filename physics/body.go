package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID is the world-local handle of a rigid body. Zero is never issued.
type BodyID uint32

// BodyType decides who moves a body.
type BodyType uint8

const (
	// BodyDynamic bodies are integrated under gravity, forces and contacts.
	BodyDynamic BodyType = iota
	// BodyKinematic bodies are moved only by direct pose assignment and push dynamic bodies with infinite mass.
	BodyKinematic
)

func (t BodyType) String() string {
	if t == BodyKinematic {
		return "kinematic"
	}
	return "dynamic"
}

// BodyDef describes a body to add to a World.
type BodyDef struct {
	Shape       Shape
	Mass        float64
	Material    string
	Type        BodyType
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Body is a rigid body owned by a World. Callers read its state freely but mutate it only through World methods.
type Body struct {
	id BodyID

	Shape    Shape
	Type     BodyType
	Material string

	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3

	mass    float64
	invMass float64
	force   mgl64.Vec3
}

func (b *Body) ID() BodyID       { return b.id }
func (b *Body) Mass() float64    { return b.mass }
func (b *Body) InvMass() float64 { return b.effectiveInvMass() }

// Force returns the force accumulated for the next step.
func (b *Body) Force() mgl64.Vec3 { return b.force }

// Finite reports whether every component of the body's pose and velocity is a finite number.
func (b *Body) Finite() bool {
	return finiteVec(b.Position) && finiteVec(b.LinearVelocity) && finiteVec(b.AngularVelocity) &&
		finiteVec(b.Orientation.V) && !math.IsNaN(b.Orientation.W) && !math.IsInf(b.Orientation.W, 0)
}

// Bottom returns the lowest point of the body along the world up axis.
func (b *Body) Bottom(up mgl64.Vec3) float64 {
	return b.Position.Dot(up) - b.Shape.Support(b.Orientation, up)
}

func (b *Body) effectiveInvMass() float64 {
	if b.Type == BodyKinematic {
		return 0
	}
	return b.invMass
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
