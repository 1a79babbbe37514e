package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind identifies a collision primitive.
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	default:
		return "unknown"
	}
}

// Shape is a collision primitive centred on its body's position.
// Spheres use Radius, boxes use HalfExtents.
type Shape struct {
	Kind        ShapeKind
	Radius      float64
	HalfExtents mgl64.Vec3
}

// Sphere returns a sphere shape.
func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

// Box returns a box shape with the given half extents.
func Box(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

// Valid reports whether every dimension of the shape is positive and finite.
func (s Shape) Valid() bool {
	switch s.Kind {
	case ShapeSphere:
		return positive(s.Radius)
	case ShapeBox:
		return positive(s.HalfExtents[0]) && positive(s.HalfExtents[1]) && positive(s.HalfExtents[2])
	default:
		return false
	}
}

// Volume of the shape in cubic metres.
func (s Shape) Volume() float64 {
	switch s.Kind {
	case ShapeSphere:
		return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
	case ShapeBox:
		return 8 * s.HalfExtents[0] * s.HalfExtents[1] * s.HalfExtents[2]
	default:
		return 0
	}
}

// BoundingRadius is the radius of the smallest sphere around the shape's centre that contains it.
func (s Shape) BoundingRadius() float64 {
	if s.Kind == ShapeSphere {
		return s.Radius
	}
	return s.HalfExtents.Len()
}

// Support returns how far the shape, rotated by q, extends from its centre along the unit direction dir.
func (s Shape) Support(q mgl64.Quat, dir mgl64.Vec3) float64 {
	if s.Kind == ShapeSphere {
		return s.Radius
	}
	local := q.Inverse().Rotate(dir)
	return math.Abs(local[0])*s.HalfExtents[0] +
		math.Abs(local[1])*s.HalfExtents[1] +
		math.Abs(local[2])*s.HalfExtents[2]
}

// AABB returns the world-space axis aligned bounds of the shape placed at pos with orientation q.
func (s Shape) AABB(pos mgl64.Vec3, q mgl64.Quat) (lo, hi mgl64.Vec3) {
	ext := mgl64.Vec3{
		s.Support(q, mgl64.Vec3{1, 0, 0}),
		s.Support(q, mgl64.Vec3{0, 1, 0}),
		s.Support(q, mgl64.Vec3{0, 0, 1}),
	}
	return pos.Sub(ext), pos.Add(ext)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
