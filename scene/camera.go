package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera in world units. Screen coordinates are pixels with the origin at the top left.
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3
	// FovY is the vertical field of view in radians.
	FovY          float64
	Near, Far     float64
	Width, Height float64
}

func DefaultCamera(width, height float64) *Camera {
	return &Camera{
		Eye:    mgl64.Vec3{0, 3, 8},
		Target: mgl64.Vec3{0, 0.5, 0},
		Up:     mgl64.Vec3{0, 1, 0},
		FovY:   mgl64.DegToRad(50),
		Near:   0.05,
		Far:    200,
		Width:  width,
		Height: height,
	}
}

// Forward is the unit view direction.
func (c *Camera) Forward() mgl64.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

func (c *Camera) basis() (fwd, right, up mgl64.Vec3) {
	fwd = c.Forward()
	right = fwd.Cross(c.Up).Normalize()
	up = right.Cross(fwd)
	return fwd, right, up
}

func (c *Camera) aspect() float64 {
	if c.Height <= 0 {
		return 1
	}
	return c.Width / c.Height
}

// Resize updates the viewport size in pixels.
func (c *Camera) Resize(width, height float64) {
	c.Width, c.Height = width, height
}

// ViewProjection returns the combined view and projection matrix.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	view := mgl64.LookAtV(c.Eye, c.Target, c.Up)
	proj := mgl64.Perspective(c.FovY, c.aspect(), c.Near, c.Far)
	return proj.Mul4(view)
}

// Ray returns the ray leaving the eye through the pixel (x, y).
func (c *Camera) Ray(x, y float64) Ray {
	fwd, right, up := c.basis()
	tanHalf := math.Tan(c.FovY / 2)
	ndcX := 2*x/c.Width - 1
	ndcY := 1 - 2*y/c.Height
	dir := fwd.
		Add(right.Mul(ndcX * tanHalf * c.aspect())).
		Add(up.Mul(ndcY * tanHalf))
	return Ray{Origin: c.Eye, Dir: dir.Normalize()}
}

// Project maps a world point to pixel coordinates and its depth along the view direction.
// ok is false when the point lies behind the near plane.
func (c *Camera) Project(p mgl64.Vec3) (screen mgl64.Vec2, depth float64, ok bool) {
	fwd, right, up := c.basis()
	d := p.Sub(c.Eye)
	depth = d.Dot(fwd)
	if depth < c.Near {
		return mgl64.Vec2{}, depth, false
	}
	tanHalf := math.Tan(c.FovY / 2)
	x := d.Dot(right) / (depth * tanHalf * c.aspect())
	y := d.Dot(up) / (depth * tanHalf)
	return mgl64.Vec2{(x + 1) / 2 * c.Width, (1 - y) / 2 * c.Height}, depth, true
}

// PixelsPerUnit is the on-screen size of one world unit at the given view depth.
func (c *Camera) PixelsPerUnit(depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return c.Height / (2 * depth * math.Tan(c.FovY/2))
}

// Ray is a half line with a unit direction.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectPlane returns the distance to the plane through point with the given normal.
func (r Ray) IntersectPlane(point, normal mgl64.Vec3) (float64, bool) {
	denom := r.Dir.Dot(normal)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	return t, t >= 0
}

// IntersectSphere returns the distance to the nearest surface point in front of the origin.
func (r Ray) IntersectSphere(center mgl64.Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	return t, t >= 0
}

// IntersectBox intersects an oriented box given by its centre, rotation and half extents.
func (r Ray) IntersectBox(center mgl64.Vec3, rotation mgl64.Quat, half mgl64.Vec3) (float64, bool) {
	inv := rotation.Inverse()
	o := inv.Rotate(r.Origin.Sub(center))
	d := inv.Rotate(r.Dir)

	tmin, tmax := math.Inf(-1), math.Inf(1)
	for k := range 3 {
		if math.Abs(d[k]) < 1e-12 {
			if o[k] < -half[k] || o[k] > half[k] {
				return 0, false
			}
			continue
		}
		t1 := (-half[k] - o[k]) / d[k]
		t2 := (half[k] - o[k]) / d[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
