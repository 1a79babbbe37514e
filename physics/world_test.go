package physics_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = 1.0 / 60.0

func undampedWorld() *physics.World {
	cfg := physics.DefaultConfig()
	cfg.LinearDamping = 0
	cfg.AngularDamping = 0
	return physics.NewWorld(cfg)
}

func addSphere(t *testing.T, w *physics.World, radius, mass float64, pos mgl64.Vec3) physics.BodyID {
	t.Helper()
	id, err := w.AddBody(physics.BodyDef{
		Shape:    physics.Sphere(radius),
		Mass:     mass,
		Material: "rubber",
		Position: pos,
	})
	require.NoError(t, err)
	return id
}

func TestAddBodyValidation(t *testing.T) {
	w := physics.NewWorld(physics.DefaultConfig())

	tests := []struct {
		name string
		def  physics.BodyDef
	}{
		{"zero radius", physics.BodyDef{Shape: physics.Sphere(0), Mass: 1}},
		{"negative half extent", physics.BodyDef{Shape: physics.Box(mgl64.Vec3{1, -1, 1}), Mass: 1}},
		{"zero mass", physics.BodyDef{Shape: physics.Sphere(1), Mass: 0}},
		{"nan mass", physics.BodyDef{Shape: physics.Sphere(1), Mass: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.AddBody(tt.def)
			assert.ErrorIs(t, err, physics.ErrInvalidBody)
		})
	}
	assert.Equal(t, 0, w.Len())
}

func TestFreeFallVelocity(t *testing.T) {
	w := undampedWorld()
	id := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 100, 0})

	const steps = 60
	for range steps {
		w.Step(step)
	}

	body, ok := w.Body(id)
	require.True(t, ok)
	g := -w.Gravity()[1]
	assert.InDelta(t, -g*steps*step, body.LinearVelocity[1], 1e-9)
	assert.InDelta(t, 0, body.LinearVelocity[0], 1e-12)
}

func TestApplyImpulseChangesVelocityByImpulseOverMass(t *testing.T) {
	w := undampedWorld()
	id := addSphere(t, w, 0.5, 2, mgl64.Vec3{0, 10, 0})

	require.NoError(t, w.ApplyImpulse(id, mgl64.Vec3{4, 0, 0}))

	body, _ := w.Body(id)
	assert.InDelta(t, 2.0, body.LinearVelocity[0], 1e-12)

	assert.ErrorIs(t, w.ApplyImpulse(physics.BodyID(999), mgl64.Vec3{1, 0, 0}), physics.ErrUnknownBody)
}

func TestApplyForceLastsOneStep(t *testing.T) {
	w := undampedWorld()
	w.SetGravity(mgl64.Vec3{})
	id := addSphere(t, w, 0.5, 2, mgl64.Vec3{0, 10, 0})

	require.NoError(t, w.ApplyForce(id, mgl64.Vec3{6, 0, 0}))
	w.Step(step)
	w.Step(step)

	body, _ := w.Body(id)
	assert.InDelta(t, 3*step, body.LinearVelocity[0], 1e-12)
	assert.Equal(t, mgl64.Vec3{}, body.Force())
}

func TestKinematicBodiesIgnoreGravity(t *testing.T) {
	w := undampedWorld()
	id := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 5, 0})
	require.NoError(t, w.ApplyImpulse(id, mgl64.Vec3{0, 3, 0}))

	require.NoError(t, w.SetType(id, physics.BodyKinematic))
	body, _ := w.Body(id)
	assert.Equal(t, mgl64.Vec3{}, body.LinearVelocity)

	for range 30 {
		w.Step(step)
	}
	assert.Equal(t, mgl64.Vec3{0, 5, 0}, body.Position)

	require.NoError(t, w.SetPose(id, mgl64.Vec3{1, 2, 3}, mgl64.QuatIdent()))
	require.NoError(t, w.SetType(id, physics.BodyDynamic))
	w.Step(step)
	assert.Less(t, body.LinearVelocity[1], 0.0)
	assert.Less(t, body.Position[1], 2.0)
}

func TestRemoveBody(t *testing.T) {
	w := undampedWorld()
	a := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 5, 0})
	b := addSphere(t, w, 0.5, 1, mgl64.Vec3{3, 5, 0})

	assert.True(t, w.RemoveBody(a))
	assert.False(t, w.RemoveBody(a))
	assert.Equal(t, 1, w.Len())

	_, ok := w.Body(a)
	assert.False(t, ok)

	var ids []physics.BodyID
	for body := range w.Bodies() {
		ids = append(ids, body.ID())
	}
	assert.Equal(t, []physics.BodyID{b}, ids)
}

func TestFiniteDetectsDivergence(t *testing.T) {
	w := undampedWorld()
	id := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 5, 0})
	body, _ := w.Body(id)
	assert.True(t, body.Finite())

	require.NoError(t, w.SetVelocity(id, mgl64.Vec3{math.Inf(1), 0, 0}, mgl64.Vec3{}))
	w.Step(step)
	assert.False(t, body.Finite())
}

func TestAngularVelocityRotatesBody(t *testing.T) {
	w := undampedWorld()
	w.SetGravity(mgl64.Vec3{})
	id := addSphere(t, w, 0.5, 1, mgl64.Vec3{0, 5, 0})
	require.NoError(t, w.SetVelocity(id, mgl64.Vec3{}, mgl64.Vec3{0, math.Pi, 0}))

	for range 60 {
		w.Step(step)
	}

	body, _ := w.Body(id)
	rotated := body.Orientation.Rotate(mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, -1, rotated[0], 0.01)
	assert.InDelta(t, 1, body.Orientation.Len(), 1e-9)
}
