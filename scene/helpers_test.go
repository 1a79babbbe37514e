package scene_test

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/plus3/objectlab/scene"
	"github.com/stretchr/testify/require"
)

const fixedStep = time.Second / 60

type testScene struct {
	world    *physics.World
	registry *scene.Registry
	exec     *scene.Executor
}

func newScene(t *testing.T) *testScene {
	t.Helper()
	cfg := physics.DefaultConfig()
	cfg.LinearDamping = 0
	cfg.AngularDamping = 0
	world := physics.NewWorld(cfg)
	registry := scene.NewRegistry(world, scene.DefaultRegistryConfig())
	return &testScene{
		world:    world,
		registry: registry,
		exec:     scene.NewExecutor(registry),
	}
}

func (s *testScene) create(t *testing.T, specs ...scene.ObjectSpec) []scene.ObjectID {
	t.Helper()
	res := s.exec.Execute(scene.CreateObject{Objects: specs})
	require.NoError(t, res.Err)
	require.Len(t, res.Created, len(specs))
	return res.Created
}

func (s *testScene) object(t *testing.T, id scene.ObjectID) *scene.SceneObject {
	t.Helper()
	obj, ok := s.registry.Get(id)
	require.True(t, ok, "object %s is not live", id)
	return obj
}

func sphereSpec(id string, radius float64, pos mgl64.Vec3) scene.ObjectSpec {
	return scene.ObjectSpec{
		ID:          id,
		Kind:        scene.KindSphere,
		Dimensions:  scene.Dimensions{Radius: radius},
		MaterialTag: "rubber",
		Position:    pos,
	}
}

func boxSpec(id string, w, h, d float64, pos mgl64.Vec3) scene.ObjectSpec {
	return scene.ObjectSpec{
		ID:          id,
		Kind:        scene.KindBox,
		Dimensions:  scene.Dimensions{Width: w, Height: h, Depth: d},
		MaterialTag: "wood",
		Position:    pos,
	}
}

// stepClock returns a clock that advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}
