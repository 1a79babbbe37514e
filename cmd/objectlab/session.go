package main

import (
	"log/slog"

	"github.com/plus3/objectlab/config"
	"github.com/plus3/objectlab/physics"
	"github.com/plus3/objectlab/scene"
)

// session is one scene wired from a config: world, registry, executor and loop.
type session struct {
	cfg      *config.Config
	world    *physics.World
	registry *scene.Registry
	exec     *scene.Executor
	loop     *scene.Loop
	log      *slog.Logger
}

func newSession(cfg *config.Config, log *slog.Logger) *session {
	world := cfg.NewWorld()
	registry := scene.NewRegistry(world, cfg.RegistryConfig(), scene.WithLogger(log))
	exec := scene.NewExecutor(registry, scene.WithLogger(log))
	loop := scene.NewLoop(exec, scene.NewQueue(), cfg.LoopConfig(), scene.WithLogger(log))
	log.Debug("session ready",
		"fixed_step", cfg.Loop.FixedStep,
		"max_sub_steps", cfg.Loop.MaxSubSteps,
		"materials", world.Materials().Len())
	return &session{
		cfg:      cfg,
		world:    world,
		registry: registry,
		exec:     exec,
		loop:     loop,
		log:      log,
	}
}

// logFailures reports a frame's failed commands and removed behaviors.
func (s *session) logFailures(report scene.FrameReport) {
	for _, err := range report.Failures {
		s.log.Warn("frame failure", "sim_time", s.loop.SimTime(), "error", err)
	}
	if report.Dropped > 0 {
		s.log.Debug("dropped simulation time", "dropped", report.Dropped)
	}
}
