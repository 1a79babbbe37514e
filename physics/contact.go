package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

type bounds struct {
	body   *Body
	lo, hi mgl64.Vec3
}

// broadphase returns candidate pairs whose bounds overlap, found by sorting on the x axis and sweeping.
// Pairs with no dynamic member are skipped.
func (w *World) broadphase() [][2]*Body {
	if len(w.order) < 2 {
		return nil
	}
	boxes := make([]bounds, len(w.order))
	for i, b := range w.order {
		lo, hi := b.Shape.AABB(b.Position, b.Orientation)
		boxes[i] = bounds{body: b, lo: lo, hi: hi}
	}
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].lo[0] < boxes[j].lo[0] })

	var pairs [][2]*Body
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[j].lo[0] > boxes[i].hi[0] {
				break
			}
			a, b := boxes[i], boxes[j]
			if a.body.Type != BodyDynamic && b.body.Type != BodyDynamic {
				continue
			}
			if !a.body.Finite() || !b.body.Finite() {
				continue
			}
			if a.lo[1] > b.hi[1] || b.lo[1] > a.hi[1] || a.lo[2] > b.hi[2] || b.lo[2] > a.hi[2] {
				continue
			}
			pairs = append(pairs, [2]*Body{a.body, b.body})
		}
	}
	return pairs
}

// resolveGround pushes b out of the ground plane and reflects its approach velocity.
// Restitution is only honoured when bounce is true so a body bounces at most once per step.
func (w *World) resolveGround(b *Body, bounce bool) bool {
	up := w.ground.Normal
	depth := w.ground.Height - b.Bottom(up)
	if !(depth > 0) {
		return false
	}
	b.Position = b.Position.Add(up.Mul(depth))

	vn := b.LinearVelocity.Dot(up)
	if vn >= 0 {
		return true
	}

	m := w.ContactMaterial(b.Material, w.ground.Tag)
	e := m.Restitution
	if !bounce || -vn < w.cfg.RestingSpeed {
		e = 0
	}
	tangent := b.LinearVelocity.Sub(up.Mul(vn))
	tangent = applyFriction(tangent, (1+e)*-vn, m.Friction)
	b.LinearVelocity = tangent.Add(up.Mul(-e * vn))
	return true
}

// resolvePair separates two overlapping bodies and exchanges an impulse along the contact normal.
func (w *World) resolvePair(a, b *Body) {
	invA, invB := a.effectiveInvMass(), b.effectiveInvMass()
	total := invA + invB
	if total == 0 {
		return
	}

	normal, depth, ok := penetration(a, b)
	if !ok {
		return
	}
	a.Position = a.Position.Sub(normal.Mul(depth * invA / total))
	b.Position = b.Position.Add(normal.Mul(depth * invB / total))

	rel := b.LinearVelocity.Sub(a.LinearVelocity)
	vn := rel.Dot(normal)
	if vn >= 0 {
		return
	}

	m := w.ContactMaterial(a.Material, b.Material)
	e := m.Restitution
	if -vn < w.cfg.RestingSpeed {
		e = 0
	}
	j := -(1 + e) * vn / total
	impulse := normal.Mul(j)
	a.LinearVelocity = a.LinearVelocity.Sub(impulse.Mul(invA))
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Mul(invB))

	rel = b.LinearVelocity.Sub(a.LinearVelocity)
	tangent := rel.Sub(normal.Mul(rel.Dot(normal)))
	if speed := tangent.Len(); speed > 0 && m.Friction > 0 {
		jt := math.Min(speed/total, m.Friction*j)
		dir := tangent.Mul(1 / speed)
		a.LinearVelocity = a.LinearVelocity.Add(dir.Mul(jt * invA))
		b.LinearVelocity = b.LinearVelocity.Sub(dir.Mul(jt * invB))
	}
	w.stats.BodyContacts++
}

// penetration returns the contact normal pointing from a to b and the overlap depth.
// Sphere pairs are exact; any pair involving a box falls back to axis aligned bounds.
func penetration(a, b *Body) (mgl64.Vec3, float64, bool) {
	if a.Shape.Kind == ShapeSphere && b.Shape.Kind == ShapeSphere {
		d := b.Position.Sub(a.Position)
		dist := d.Len()
		depth := a.Shape.Radius + b.Shape.Radius - dist
		if !(depth > 0) {
			return mgl64.Vec3{}, 0, false
		}
		if dist == 0 {
			return mgl64.Vec3{0, 1, 0}, depth, true
		}
		return d.Mul(1 / dist), depth, true
	}

	loA, hiA := a.Shape.AABB(a.Position, a.Orientation)
	loB, hiB := b.Shape.AABB(b.Position, b.Orientation)
	axis, depth := -1, math.Inf(1)
	for k := range 3 {
		overlap := math.Min(hiA[k], hiB[k]) - math.Max(loA[k], loB[k])
		if !(overlap > 0) {
			return mgl64.Vec3{}, 0, false
		}
		if overlap < depth {
			axis, depth = k, overlap
		}
	}
	var normal mgl64.Vec3
	normal[axis] = 1
	if b.Position[axis] < a.Position[axis] {
		normal[axis] = -1
	}
	return normal, depth, true
}

// applyFriction reduces a tangential velocity by the Coulomb limit mu * normalImpulse (per unit mass).
func applyFriction(tangent mgl64.Vec3, normalImpulse, mu float64) mgl64.Vec3 {
	speed := tangent.Len()
	if speed == 0 || mu <= 0 {
		return tangent
	}
	drop := math.Min(speed, mu*normalImpulse)
	return tangent.Mul((speed - drop) / speed)
}
