package physics_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroundReboundUsesPairRestitution(t *testing.T) {
	w := undampedWorld()
	w.Materials().Set("rubber", "ground", physics.ContactMaterial{Restitution: 0.85, Friction: 0.5})
	id := addSphere(t, w, 0.06, 1.0857, mgl64.Vec3{0, 1, 0})
	body, _ := w.Body(id)

	impact := 0.0
	rebound := 0.0
	for range 240 {
		before := body.LinearVelocity[1]
		w.Step(step)
		after := body.LinearVelocity[1]
		if before < 0 && after > 0 {
			// The approach speed is the velocity integrated into the ground on this step.
			impact = -(before - 9.81*step)
			rebound = after
			break
		}
	}

	require.NotZero(t, impact, "sphere never touched the ground")
	assert.InDelta(t, 0.85, rebound/impact, 0.01)
	assert.GreaterOrEqual(t, body.Bottom(mgl64.Vec3{0, 1, 0}), -1e-9)
}

func TestBodyComesToRestOnGround(t *testing.T) {
	w := undampedWorld()
	id, err := w.AddBody(physics.BodyDef{
		Shape:    physics.Box(mgl64.Vec3{0.5, 0.25, 0.5}),
		Mass:     3,
		Material: "wood",
		Position: mgl64.Vec3{0, 2, 0},
	})
	require.NoError(t, err)

	for range 600 {
		w.Step(step)
	}

	body, _ := w.Body(id)
	assert.InDelta(t, 0.25, body.Position[1], 1e-6)
	assert.InDelta(t, 0, body.LinearVelocity[1], 0.2)
}

func TestGroundFrictionSlowsSliding(t *testing.T) {
	w := undampedWorld()
	w.Materials().Set("ice", "ground", physics.ContactMaterial{Restitution: 0, Friction: 0.02})
	w.Materials().Set("wood", "ground", physics.ContactMaterial{Restitution: 0, Friction: 0.6})

	slide := func(tag string) physics.BodyID {
		id, err := w.AddBody(physics.BodyDef{
			Shape:    physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}),
			Mass:     1,
			Material: tag,
			Position: mgl64.Vec3{0, 0.5, float64(w.Len()) * 10},
		})
		require.NoError(t, err)
		require.NoError(t, w.SetVelocity(id, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{}))
		return id
	}
	iceID := slide("ice")
	woodID := slide("wood")

	for range 60 {
		w.Step(step)
	}

	ice, _ := w.Body(iceID)
	wood, _ := w.Body(woodID)
	assert.Greater(t, ice.LinearVelocity[0], wood.LinearVelocity[0])
	assert.Greater(t, ice.LinearVelocity[0], 3.5)
	assert.Less(t, wood.LinearVelocity[0], 0.5)
}

func TestSphereCollisionExchangesMomentum(t *testing.T) {
	w := undampedWorld()
	w.SetGravity(mgl64.Vec3{})
	w.Materials().Set("rubber", "rubber", physics.ContactMaterial{Restitution: 1, Friction: 0})

	a := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 5, 0})
	b := addSphere(t, w, 0.5, 1, mgl64.Vec3{1.05, 5, 0})
	require.NoError(t, w.SetVelocity(a, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}))

	for range 10 {
		w.Step(step)
	}

	bodyA, _ := w.Body(a)
	bodyB, _ := w.Body(b)
	assert.InDelta(t, 0, bodyA.LinearVelocity[0], 1e-9)
	assert.InDelta(t, 2, bodyB.LinearVelocity[0], 1e-9)
	assert.Positive(t, w.Stats().Steps)
}

func TestKinematicBodyPushesDynamicBody(t *testing.T) {
	w := undampedWorld()
	w.SetGravity(mgl64.Vec3{})

	pusher, err := w.AddBody(physics.BodyDef{
		Shape:    physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}),
		Mass:     1,
		Type:     physics.BodyKinematic,
		Position: mgl64.Vec3{0, 5, 0},
	})
	require.NoError(t, err)
	ball := addSphere(t, w, 0.5, 1, mgl64.Vec3{1.2, 5, 0})

	require.NoError(t, w.SetPose(pusher, mgl64.Vec3{0.5, 5, 0}, mgl64.QuatIdent()))
	w.Step(step)

	p, _ := w.Body(pusher)
	d, _ := w.Body(ball)
	assert.Equal(t, mgl64.Vec3{0.5, 5, 0}, p.Position)
	assert.GreaterOrEqual(t, d.Position[0], 1.5-1e-9)
}
