package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/config"
	"github.com/plus3/objectlab/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := config.LoadScenario(filepath.Join("testdata", "bouncing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "bouncing", s.Name)
	assert.Equal(t, 4*time.Second, s.End())
	require.Len(t, s.Commands, 2)

	create, ok := s.Commands[0].Command.(scene.CreateObject)
	require.True(t, ok)
	assert.True(t, create.Replace)
	require.Len(t, create.Objects, 2)
	assert.Equal(t, scene.KindSphere, create.Objects[0].Kind)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, create.Objects[0].Position)
	require.NotNil(t, create.Objects[1].Draggable)
	assert.False(t, *create.Objects[1].Draggable)

	t.Run("timeline is ordered", func(t *testing.T) {
		require.Len(t, s.Timeline, 3)
		assert.Equal(t, 500*time.Millisecond, s.Timeline[0].At)
		assert.Equal(t, scene.ApplyImpulse{Target: "ball", Vector: mgl64.Vec3{0.2, 0.5, 0}}, s.Timeline[0].Command.Command)
		assert.Equal(t, scene.TypeAnimate, s.Timeline[1].Command.CommandType())
		assert.Equal(t, scene.TypeKeepBouncing, s.Timeline[2].Command.CommandType())
	})
}

func TestParseScenarioErrors(t *testing.T) {
	t.Run("unknown command", func(t *testing.T) {
		_, err := config.ParseScenario([]byte("commands:\n  - type: detonate\n"))
		assert.ErrorIs(t, err, scene.ErrUnknownCommand)
		assert.ErrorContains(t, err, "line 2")
	})

	t.Run("cue without command", func(t *testing.T) {
		_, err := config.ParseScenario([]byte("timeline:\n  - at: 1s\n"))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestScenarioSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	s := &config.Scenario{
		Name: "saved",
		Commands: []config.Command{
			{Command: scene.CreateObject{Objects: []scene.ObjectSpec{{
				ID:         "ball",
				Kind:       scene.KindSphere,
				Dimensions: scene.Dimensions{Radius: 0.5},
				Position:   mgl64.Vec3{0, 2, 0},
			}}}},
		},
		Timeline: []config.Cue{
			{At: time.Second, Command: config.Command{Command: scene.ClearBehavior{Target: "ball", Kind: scene.BehaviorForce}}},
		},
	}
	require.NoError(t, config.SaveScenario(path, s))

	loaded, err := config.LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestPlayerRunsScenario(t *testing.T) {
	s, err := config.LoadScenario(filepath.Join("testdata", "bouncing.yaml"))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	registry := scene.NewRegistry(cfg.NewWorld(), cfg.RegistryConfig())
	loop := scene.NewLoop(scene.NewExecutor(registry), nil, cfg.LoopConfig())

	var failed []error
	player := config.NewPlayer(s, loop.Queue(), func(res scene.Result) {
		if res.Err != nil {
			failed = append(failed, res.Err)
		}
	})

	assert.Equal(t, 2, player.Advance(loop.SimTime()))
	for loop.SimTime() < s.End() {
		player.Advance(loop.SimTime())
		loop.Frame(cfg.Loop.FixedStep)
	}
	assert.True(t, player.Done())
	assert.Empty(t, failed)

	ball, ok := registry.Lookup("ball")
	require.True(t, ok)
	assert.Equal(t, ball.OwnedTag(), ball.MaterialTag())
	_, bouncing := ball.Behavior(scene.BehaviorKeepBouncing)
	assert.True(t, bouncing)
	crate, ok := registry.Lookup("crate")
	require.True(t, ok)
	_, rotating := crate.Behavior(scene.BehaviorRotate)
	assert.True(t, rotating)
}
