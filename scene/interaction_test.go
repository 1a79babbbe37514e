package scene_test

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	screenW = 800.0
	screenH = 600.0
)

// frontCamera looks down -z at the point (0, 2, 0) from ten metres away.
func frontCamera() *scene.Camera {
	cam := scene.DefaultCamera(screenW, screenH)
	cam.Eye = mgl64.Vec3{0, 2, 10}
	cam.Target = mgl64.Vec3{0, 2, 0}
	return cam
}

func newDragScene(t *testing.T, cfg scene.InteractionConfig, opts ...scene.Option) (*testScene, *scene.Interaction, *scene.SceneObject) {
	t.Helper()
	s := newScene(t)
	ids := s.create(t, sphereSpec("ball", 0.5, mgl64.Vec3{0, 2, 0}))
	ctl := scene.NewInteraction(s.registry, frontCamera(), cfg, opts...)
	return s, ctl, s.object(t, ids[0])
}

// worldX is the x coordinate the pixel column px maps to on the plane z = 0.
func worldX(px float64) float64 {
	return (2*px/screenW - 1) * math.Tan(mgl64.DegToRad(25)) * screenW / screenH * 10
}

func TestDragLifecycle(t *testing.T) {
	s, ctl, ball := newDragScene(t, scene.DefaultInteractionConfig())
	require.NoError(t, s.world.ApplyImpulse(ball.Body().ID(), mgl64.Vec3{0, 0, 3}))

	t.Run("hover", func(t *testing.T) {
		ctl.PointerMove(10, 10)
		assert.Equal(t, scene.Idle, ctl.State())
		ctl.PointerMove(screenW/2, screenH/2)
		assert.Equal(t, scene.Hovering, ctl.State())
		id, ok := ctl.Hovered()
		assert.True(t, ok)
		assert.Equal(t, ball.ID(), id)
		assert.Equal(t, scene.Dynamic, ball.Authority())
	})

	t.Run("grab", func(t *testing.T) {
		id, ok := ctl.PointerDown(screenW/2, screenH/2)
		require.True(t, ok)
		assert.Equal(t, ball.ID(), id)
		assert.Equal(t, scene.Dragging, ctl.State())
		assert.Equal(t, scene.Kinematic, ball.Authority())
		assert.Equal(t, mgl64.Vec3{}, ball.PhysicsPose().LinearVelocity)
	})

	t.Run("move keeps depth", func(t *testing.T) {
		ctl.PointerMove(500, screenH/2)
		pos := ball.PhysicsPose().Position
		assert.InDelta(t, worldX(500), pos[0], 1e-9)
		assert.InDelta(t, 2, pos[1], 1e-9)
		assert.InDelta(t, 0, pos[2], 1e-9)
		assert.Equal(t, pos, ball.Visual.Position)

		// physics does not move a kinematic body
		s.world.Step(fixedStep.Seconds())
		assert.Equal(t, pos, ball.PhysicsPose().Position)
	})

	t.Run("release hands back to gravity", func(t *testing.T) {
		ctl.PointerUp()
		assert.Equal(t, scene.Dynamic, ball.Authority())
		assert.NotEqual(t, scene.Dragging, ctl.State())
		assert.Equal(t, mgl64.Vec3{}, ball.PhysicsPose().LinearVelocity)

		y := ball.PhysicsPose().Position[1]
		s.world.Step(fixedStep.Seconds())
		assert.Less(t, ball.PhysicsPose().LinearVelocity[1], 0.0)
		assert.Less(t, ball.PhysicsPose().Position[1], y)
	})
}

func TestPointerDownMissStaysIdle(t *testing.T) {
	_, ctl, ball := newDragScene(t, scene.DefaultInteractionConfig())
	_, ok := ctl.PointerDown(5, 5)
	assert.False(t, ok)
	assert.Equal(t, scene.Idle, ctl.State())
	assert.Equal(t, scene.Dynamic, ball.Authority())
}

func TestNonDraggableObjectsAreIgnored(t *testing.T) {
	s := newScene(t)
	pinned := false
	spec := boxSpec("wall", 2, 2, 0.2, mgl64.Vec3{0, 2, 1})
	spec.Draggable = &pinned
	ids := s.create(t, spec, sphereSpec("ball", 0.5, mgl64.Vec3{0, 2, 0}))
	ctl := scene.NewInteraction(s.registry, frontCamera(), scene.DefaultInteractionConfig())

	id, ok := ctl.PointerDown(screenW/2, screenH/2)
	require.True(t, ok)
	assert.Equal(t, ids[1], id, "the pinned wall in front must not take the pick")
}

func TestDragClampsToWorkingVolume(t *testing.T) {
	cfg := scene.DefaultInteractionConfig()
	cfg.Volume.Max[0] = 1
	_, ctl, ball := newDragScene(t, cfg)

	_, ok := ctl.PointerDown(screenW/2, screenH/2)
	require.True(t, ok)
	ctl.PointerMove(screenW, screenH/2)
	assert.InDelta(t, 1, ball.Visual.Position[0], 1e-9)

	// dragging below the floor keeps the ball resting on it
	ctl.PointerMove(screenW/2, screenH)
	assert.InDelta(t, 0.5, ball.Visual.Position[1], 1e-9)
}

func TestThrowRelease(t *testing.T) {
	cfg := scene.DefaultInteractionConfig()
	cfg.Release = scene.ReleaseThrow
	cfg.MaxThrowSpeed = 20
	_, ctl, ball := newDragScene(t, cfg, scene.WithClock(stepClock(100*time.Millisecond)))

	_, ok := ctl.PointerDown(screenW/2, screenH/2)
	require.True(t, ok)
	ctl.PointerMove(450, screenH/2)
	ctl.PointerMove(500, screenH/2)
	ctl.PointerUp()

	// three samples spanning 200ms
	v := ball.PhysicsPose().LinearVelocity
	assert.InDelta(t, worldX(500)/0.2, v[0], 1e-6)
	assert.InDelta(t, 0, v[2], 1e-9)

	t.Run("capped", func(t *testing.T) {
		ctl.SetRelease(scene.ReleaseThrow)
		_, ok := ctl.PointerDown(500, screenH/2)
		require.True(t, ok)
		ctl.PointerMove(screenW, screenH/2)
		ctl.PointerUp()
		assert.InDelta(t, 20, ball.PhysicsPose().LinearVelocity.Len(), 1e-9)
	})
}

func TestDestroyedWhileDragging(t *testing.T) {
	s, ctl, ball := newDragScene(t, scene.DefaultInteractionConfig())
	_, ok := ctl.PointerDown(screenW/2, screenH/2)
	require.True(t, ok)

	require.NoError(t, s.exec.Execute(scene.RemoveObject{Target: "ball"}).Err)
	assert.Equal(t, scene.Idle, ctl.State())
	_, dragging := ctl.Dragged()
	assert.False(t, dragging)

	ctl.PointerMove(500, 300)
	ctl.PointerUp()
	assert.Equal(t, scene.Idle, ctl.State())
	_, live := s.registry.Get(ball.ID())
	assert.False(t, live)
}

func TestAbandonKeepsLastPose(t *testing.T) {
	_, ctl, ball := newDragScene(t, scene.DefaultInteractionConfig())
	_, ok := ctl.PointerDown(screenW/2, screenH/2)
	require.True(t, ok)
	ctl.PointerMove(500, screenH/2)
	pos := ball.Visual.Position

	ctl.Abandon()
	assert.Equal(t, scene.Idle, ctl.State())
	assert.Equal(t, scene.Dynamic, ball.Authority())
	assert.Equal(t, pos, ball.PhysicsPose().Position)
}

func TestOffCentreGrabDoesNotJump(t *testing.T) {
	_, ctl, ball := newDragScene(t, scene.DefaultInteractionConfig())
	before := ball.Visual.Position

	x, y := screenW/2+18, screenH/2-18
	_, ok := ctl.PointerDown(x, y)
	require.True(t, ok)
	ctl.PointerMove(x, y)
	after := ball.PhysicsPose().Position
	assert.InDelta(t, 0, after.Sub(before).Len(), 1e-9)

	t.Run("follows the pointer from the grab point", func(t *testing.T) {
		ctl.PointerMove(x+50, y)
		pos := ball.PhysicsPose().Position
		assert.InDelta(t, worldX(screenW/2+50), pos[0], 1e-9)
		assert.InDelta(t, 2, pos[1], 1e-9)
		assert.InDelta(t, 0, pos[2], 1e-9)
	})
}
