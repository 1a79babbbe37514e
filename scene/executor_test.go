package scene_test

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/plus3/objectlab/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateObjectIsAllOrNothing(t *testing.T) {
	s := newScene(t)
	s.create(t, sphereSpec("existing", 0.5, mgl64.Vec3{0, 1, 0}))

	res := s.exec.Execute(scene.CreateObject{Objects: []scene.ObjectSpec{
		sphereSpec("fine", 0.5, mgl64.Vec3{2, 1, 0}),
		sphereSpec("broken", -1, mgl64.Vec3{4, 1, 0}),
	}})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidGeometry)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, s.registry.Len())
	assert.Equal(t, 1, s.world.Len())

	res = s.exec.Execute(scene.CreateObject{Objects: []scene.ObjectSpec{
		sphereSpec("twin", 0.5, mgl64.Vec3{2, 1, 0}),
		sphereSpec("twin", 0.5, mgl64.Vec3{4, 1, 0}),
	}})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	assert.Equal(t, 1, s.registry.Len())
}

func TestCreateObjectReplace(t *testing.T) {
	s := newScene(t)
	specs := []scene.ObjectSpec{
		sphereSpec("a", 0.5, mgl64.Vec3{0, 1, 0}),
		boxSpec("b", 1, 1, 1, mgl64.Vec3{2, 1, 0}),
	}
	first := s.exec.Execute(scene.CreateObject{Objects: specs, Replace: true})
	require.NoError(t, first.Err)

	t.Run("same set in another order is not rebuilt", func(t *testing.T) {
		again := s.exec.Execute(scene.CreateObject{Objects: []scene.ObjectSpec{specs[1], specs[0]}, Replace: true})
		require.NoError(t, again.Err)
		assert.Equal(t, first.Created, again.Created)
		assert.Equal(t, 2, s.registry.Len())
	})

	t.Run("a different set replaces everything", func(t *testing.T) {
		moved := specs[0]
		moved.Position = mgl64.Vec3{0, 3, 0}
		res := s.exec.Execute(scene.CreateObject{Objects: []scene.ObjectSpec{moved}, Replace: true})
		require.NoError(t, res.Err)
		require.Len(t, res.Created, 1)
		assert.Equal(t, 1, s.registry.Len())
		assert.Equal(t, 1, s.world.Len())
		for _, old := range first.Created {
			_, ok := s.registry.Get(old)
			assert.False(t, ok)
		}
	})

	t.Run("without replace objects accumulate", func(t *testing.T) {
		ids := s.create(t, sphereSpec("", 0.3, mgl64.Vec3{5, 1, 0}))
		assert.Equal(t, 2, s.registry.Len())
		assert.NotEmpty(t, ids)
	})
}

func TestFailedReplaceKeepsLiveScene(t *testing.T) {
	s := newScene(t)
	live := s.create(t, sphereSpec("live", 0.5, mgl64.Vec3{0, 1, 0}))

	for name, broken := range map[string]scene.ObjectSpec{
		"mass overflows":      sphereSpec("huge", 1e200, mgl64.Vec3{2, 1, 0}),
		"mass underflows":     sphereSpec("tiny", 1e-120, mgl64.Vec3{2, 1, 0}),
		"half extent is zero": boxSpec("flat", 5e-324, 1, 1, mgl64.Vec3{2, 1, 0}),
	} {
		t.Run(name, func(t *testing.T) {
			res := s.exec.Execute(scene.CreateObject{Replace: true, Objects: []scene.ObjectSpec{
				sphereSpec("fine", 0.5, mgl64.Vec3{-2, 1, 0}),
				broken,
			}})
			assert.ErrorIs(t, res.Err, scene.ErrInvalidGeometry)
			assert.Empty(t, res.Created)
			assert.Equal(t, 1, s.registry.Len())
			assert.Equal(t, 1, s.world.Len())
			_, ok := s.registry.Get(live[0])
			assert.True(t, ok)
		})
	}
}

func TestSetRestitutionKeepsOnePairPerObject(t *testing.T) {
	s := newScene(t)
	table := s.world.Materials()
	table.Set("rubber", "ground", physics.ContactMaterial{Restitution: 0.8, Friction: 0.9})
	ids := s.create(t,
		sphereSpec("a", 0.5, mgl64.Vec3{0, 1, 0}),
		sphereSpec("b", 0.5, mgl64.Vec3{2, 1, 0}),
	)
	a := s.object(t, ids[0])

	for _, v := range []float64{0.2, 0.5, 0.85} {
		res := s.exec.Execute(scene.SetRestitution{Target: "a", Value: v})
		require.NoError(t, res.Err)
	}

	assert.Equal(t, a.OwnedTag(), a.MaterialTag())
	assert.Equal(t, a.OwnedTag(), a.Body().Material)
	assert.Equal(t, 1, table.CountTag(a.OwnedTag()))
	m, ok := table.Get(a.OwnedTag(), "ground")
	require.True(t, ok)
	assert.Equal(t, physics.ContactMaterial{Restitution: 0.85, Friction: 0.9}, m)

	// the shared base pair still serves the other rubber ball
	assert.Equal(t, 0.8, s.world.ContactMaterial(s.object(t, ids[1]).MaterialTag(), "ground").Restitution)

	require.NoError(t, s.exec.Execute(scene.SetFriction{Target: "a", Value: 0.1}).Err)
	m, _ = table.Get(a.OwnedTag(), "ground")
	assert.Equal(t, physics.ContactMaterial{Restitution: 0.85, Friction: 0.1}, m)
	assert.Equal(t, 1, table.CountTag(a.OwnedTag()))

	res := s.exec.Execute(scene.SetRestitution{Target: "a", Value: -0.5})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	res = s.exec.Execute(scene.SetFriction{Target: "a", Value: math.NaN()})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)

	require.True(t, s.registry.Destroy(ids[0]))
	assert.Equal(t, 0, table.CountTag(a.OwnedTag()))
}

func TestUnknownTargetMutatesNothing(t *testing.T) {
	s := newScene(t)
	ids := s.create(t, sphereSpec("ball", 0.5, mgl64.Vec3{0, 1, 0}))
	before := s.object(t, ids[0]).PhysicsPose()
	entries := s.world.Materials().Len()

	commands := []scene.Command{
		scene.ApplyImpulse{Target: "nope", Vector: mgl64.Vec3{0, 5, 0}},
		scene.ApplyForce{Target: "nope", Vector: mgl64.Vec3{0, 5, 0}},
		scene.SetRestitution{Target: "nope", Value: 0.5},
		scene.SetFriction{Target: "nope", Value: 0.5},
		scene.KeepBouncing{Target: "nope", Speed: 2},
		scene.Animate{Target: "nope", Rotation: &scene.RotationParams{Speed: 1}},
		scene.ModifyProperty{Target: "nope", Property: scene.PropertyOpacity, Value: 0.5},
		scene.ClearBehavior{Target: "nope", Kind: scene.BehaviorForce},
		scene.RemoveObject{Target: "nope"},
		scene.ApplyImpulse{Target: scene.NewObjectID(1, 99).String(), Vector: mgl64.Vec3{0, 5, 0}},
	}
	for _, cmd := range commands {
		t.Run(cmd.CommandType(), func(t *testing.T) {
			res := s.exec.Execute(cmd)
			assert.ErrorIs(t, res.Err, scene.ErrUnknownTarget)
			var objErr *scene.ObjectError
			require.True(t, errors.As(res.Err, &objErr))
			assert.Equal(t, scene.ObjectID(0), objErr.ID)
		})
	}

	assert.Equal(t, before, s.object(t, ids[0]).PhysicsPose())
	assert.Equal(t, entries, s.world.Materials().Len())
	assert.Empty(t, s.object(t, ids[0]).Behaviors())
	assert.Equal(t, 1, s.registry.Len())
}

func TestApplyImpulseAndForce(t *testing.T) {
	s := newScene(t)
	spec := sphereSpec("ball", 0.5, mgl64.Vec3{0, 5, 0})
	spec.Mass = 2
	ids := s.create(t, spec)
	ball := s.object(t, ids[0])

	require.NoError(t, s.exec.Execute(scene.ApplyImpulse{Target: "ball", Vector: mgl64.Vec3{4, 0, 0}}).Err)
	assert.InDelta(t, 2, ball.PhysicsPose().LinearVelocity[0], 1e-12)

	res := s.exec.Execute(scene.ApplyImpulse{Target: "ball", Vector: mgl64.Vec3{math.Inf(1), 0, 0}})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	assert.InDelta(t, 2, ball.PhysicsPose().LinearVelocity[0], 1e-12)

	require.NoError(t, s.exec.Execute(scene.ApplyForce{Target: "ball", Vector: mgl64.Vec3{0, 0, 1}}).Err)
	b, ok := ball.Behavior(scene.BehaviorForce)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, b.(*scene.Force).Vector)

	require.NoError(t, s.exec.Execute(scene.ApplyForce{Target: "ball", Vector: mgl64.Vec3{0, 0, 3}}).Err)
	assert.Len(t, ball.Behaviors(), 1)

	require.NoError(t, s.exec.Execute(scene.ClearBehavior{Target: "ball", Kind: scene.BehaviorForce}).Err)
	assert.Empty(t, ball.Behaviors())
}

func TestModifyProperty(t *testing.T) {
	s := newScene(t)
	ids := s.create(t, sphereSpec("ball", 0.5, mgl64.Vec3{0, 5, 0}))
	ball := s.object(t, ids[0])
	shape := ball.Body().Shape

	t.Run("scale is visual only", func(t *testing.T) {
		require.NoError(t, s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: scene.PropertyScale, Value: 2.0}).Err)
		assert.Equal(t, 2.0, ball.Visual.Scale)
		assert.Equal(t, shape, ball.Body().Shape)
		assert.Equal(t, 1.0, ball.VisualShape().Radius)
	})

	t.Run("color", func(t *testing.T) {
		require.NoError(t, s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: scene.PropertyColor, Value: "#00ff00"}).Err)
		assert.Equal(t, "#00ff00", scene.FormatColor(ball.Appearance.Color))
		res := s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: scene.PropertyColor, Value: "chartreuse-ish"})
		assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
		assert.Equal(t, "#00ff00", scene.FormatColor(ball.Appearance.Color))
	})

	t.Run("opacity range", func(t *testing.T) {
		require.NoError(t, s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: scene.PropertyOpacity, Value: 0}).Err)
		assert.Equal(t, 0.0, ball.Appearance.Opacity)
		for _, bad := range []any{1.5, -0.1, "half", math.NaN()} {
			res := s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: scene.PropertyOpacity, Value: bad})
			assert.ErrorIs(t, res.Err, scene.ErrInvalidValue, "%v", bad)
		}
		assert.Equal(t, 0.0, ball.Appearance.Opacity)
	})

	t.Run("unknown property", func(t *testing.T) {
		res := s.exec.Execute(scene.ModifyProperty{Target: "ball", Property: "mass", Value: 3.0})
		assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	})
}

func TestAnimateNeedsExactlyOneAnimation(t *testing.T) {
	s := newScene(t)
	ids := s.create(t, sphereSpec("ball", 0.5, mgl64.Vec3{0, 5, 0}))
	ball := s.object(t, ids[0])

	res := s.exec.Execute(scene.Animate{Target: "ball"})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	res = s.exec.Execute(scene.Animate{
		Target:    "ball",
		Rotation:  &scene.RotationParams{Speed: 1},
		Oscillate: &scene.OscillationParams{Amplitude: 1, Frequency: 1},
	})
	assert.ErrorIs(t, res.Err, scene.ErrInvalidValue)
	assert.Empty(t, ball.Behaviors())

	require.NoError(t, s.exec.Execute(scene.Animate{Target: "ball", Rotation: &scene.RotationParams{Speed: 1}}).Err)
	require.NoError(t, s.exec.Execute(scene.Animate{Target: "ball", Oscillate: &scene.OscillationParams{Amplitude: 0.5, Frequency: 2}}).Err)
	assert.Len(t, ball.Behaviors(), 2)

	rot, _ := ball.Behavior(scene.BehaviorRotate)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, rot.(*scene.Rotate).Axis)
}

func TestRemoveAndClearScene(t *testing.T) {
	s := newScene(t)
	s.create(t, sphereSpec("a", 0.5, mgl64.Vec3{0, 1, 0}), sphereSpec("b", 0.5, mgl64.Vec3{2, 1, 0}))

	require.NoError(t, s.exec.Execute(scene.RemoveObject{Target: "a"}).Err)
	assert.Equal(t, 1, s.registry.Len())
	require.NoError(t, s.exec.Execute(scene.ClearScene{}).Err)
	assert.Equal(t, 0, s.registry.Len())
	assert.Equal(t, 0, s.world.Len())
}

func TestExecuteUnknownCommand(t *testing.T) {
	s := newScene(t)
	assert.ErrorIs(t, s.exec.Execute(nil).Err, scene.ErrUnknownCommand)
	assert.ErrorIs(t, s.exec.Execute(bogusCommand{}).Err, scene.ErrUnknownCommand)
}

type bogusCommand struct{}

func (bogusCommand) CommandType() string { return "bogus" }

// TestBouncingBallEndToEnd follows a small rubber ball from rest through one kick and one bounce.
func TestBouncingBallEndToEnd(t *testing.T) {
	s := newScene(t)
	spec := sphereSpec("ball", 0.06, mgl64.Vec3{0, 0.06, 0})
	spec.Density = 1200
	ids := s.create(t, spec)
	ball := s.object(t, ids[0])
	assert.InDelta(t, 1.0857, ball.Mass(), 1e-4)

	require.NoError(t, s.exec.Execute(scene.SetRestitution{Target: "ball", Value: 0.85}).Err)
	require.NoError(t, s.exec.Execute(scene.ApplyImpulse{Target: "ball", Vector: mgl64.Vec3{0, 5 * ball.Mass(), 0}}).Err)
	assert.InDelta(t, 5, ball.PhysicsPose().LinearVelocity[1], 1e-9)

	loop := scene.NewLoop(s.exec, nil, scene.DefaultLoopConfig())
	dt := fixedStep.Seconds()
	var impact, rebound float64
	for range 240 {
		before := ball.PhysicsPose().LinearVelocity[1]
		loop.Frame(fixedStep)
		after := ball.PhysicsPose().LinearVelocity[1]
		if before < 0 && after > 0 {
			impact = -(before - 9.81*dt)
			rebound = after
			break
		}
	}
	require.NotZero(t, impact, "ball never bounced")
	assert.InDelta(t, 5, impact, 0.2)
	assert.InDelta(t, 0.85, rebound/impact, 0.01)
	assert.Equal(t, ball.PhysicsPose().Position, ball.Visual.Position)
}
