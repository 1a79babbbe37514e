package scene

import (
	"context"
	"log/slog"
	"time"
)

// LoopConfig controls the fixed-step accumulator.
type LoopConfig struct {
	FixedStep time.Duration
	// MaxSubSteps caps the steps run in one frame; leftover time beyond the cap is dropped.
	MaxSubSteps int
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		FixedStep:   time.Second / 60,
		MaxSubSteps: 3,
	}
}

// Renderer draws the scene at the end of each frame.
type Renderer interface {
	Render(r *Registry)
}

// FrameReport describes what one call to Frame did.
type FrameReport struct {
	SubSteps int
	Commands int
	Dropped  time.Duration
	Failures []error
}

// LoopStats provides statistics about loop execution.
type LoopStats struct {
	Frames        int64
	Steps         int64
	Commands      int64
	Failures      int64
	Destroyed     int64
	DroppedTime   time.Duration
	SimTime       time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration
	LastDuration  time.Duration
	TotalDuration time.Duration
	LastError     string
}

// Loop drives the registry: it drains the command queue, runs the step systems at a fixed rate, then the
// present systems (sync, behavior present, render) once. Frame and everything it calls must stay on one goroutine.
type Loop struct {
	cfg      LoopConfig
	registry *Registry
	exec     *Executor
	queue    *Queue

	// step runs once per fixed sub-step, present once per frame.
	step    *Scheduler
	present *Scheduler
	render  *RenderSystem

	acc     time.Duration
	simTime time.Duration
	stats   LoopStats
	onStop  []func()

	now func() time.Time
	log *slog.Logger
}

func NewLoop(exec *Executor, queue *Queue, cfg LoopConfig, opts ...Option) *Loop {
	o := buildOptions(opts)
	def := DefaultLoopConfig()
	if cfg.FixedStep <= 0 {
		cfg.FixedStep = def.FixedStep
	}
	if cfg.MaxSubSteps <= 0 {
		cfg.MaxSubSteps = def.MaxSubSteps
	}
	if queue == nil {
		queue = NewQueue()
	}
	registry := exec.Registry()
	l := &Loop{
		cfg:      cfg,
		registry: registry,
		exec:     exec,
		queue:    queue,
		step:     NewScheduler(registry),
		present:  NewScheduler(registry),
		render:   &RenderSystem{},
		stats:    LoopStats{MinDuration: time.Duration(1<<63 - 1)},
		now:      o.now,
		log:      o.logger,
	}
	l.step.now = o.now
	l.present.now = o.now

	l.step.Register(TickSystem{})
	l.step.Register(StepSystem{})
	l.step.Register(ContainSystem{})

	l.present.Register(SyncSystem{})
	l.present.Register(PresentSystem{})
	l.present.Register(l.render)
	return l
}

func (l *Loop) Config() LoopConfig         { return l.cfg }
func (l *Loop) Queue() *Queue              { return l.queue }
func (l *Loop) Registry() *Registry        { return l.registry }
func (l *Loop) SimTime() time.Duration     { return l.simTime }
func (l *Loop) SetRenderer(r Renderer)     { l.render.Renderer = r }
func (l *Loop) Accumulated() time.Duration { return l.acc }

// OnStop registers fn to run when Run returns, e.g. to abandon a drag in flight.
func (l *Loop) OnStop(fn func()) {
	l.onStop = append(l.onStop, fn)
}

// StepStats reports the per-system timings of the fixed sub-step pass.
func (l *Loop) StepStats() SchedulerStats { return l.step.Stats() }

// PresentStats reports the per-system timings of the once-per-frame pass.
func (l *Loop) PresentStats() SchedulerStats { return l.present.Stats() }

// Stats returns a copy of the loop statistics.
func (l *Loop) Stats() LoopStats {
	s := l.stats
	if s.Frames == 0 {
		s.MinDuration = 0
	} else {
		s.AvgDuration = s.TotalDuration / time.Duration(s.Frames)
	}
	s.SimTime = l.simTime
	return s
}

// Frame runs one display refresh with elapsed wall time since the previous one.
func (l *Loop) Frame(elapsed time.Duration) FrameReport {
	start := l.now()
	var report FrameReport

	commands, failed := l.queue.Flush(l.exec)
	report.Commands = commands
	for _, res := range failed {
		report.Failures = append(report.Failures, res.Err)
	}

	if elapsed > 0 {
		l.acc += elapsed
	}
	dt := l.cfg.FixedStep.Seconds()
	for l.acc >= l.cfg.FixedStep && report.SubSteps < l.cfg.MaxSubSteps {
		l.absorb(&report, l.step.Once(dt, l.simTime.Seconds()))
		l.acc -= l.cfg.FixedStep
		l.simTime += l.cfg.FixedStep
		report.SubSteps++
	}
	if l.acc >= l.cfg.FixedStep {
		report.Dropped = l.acc - l.acc%l.cfg.FixedStep
		l.acc -= report.Dropped
	}

	l.absorb(&report, l.present.Once(0, l.simTime.Seconds()))
	l.record(report, l.now().Sub(start))
	return report
}

// Run calls Frame on every tick of interval until ctx is cancelled, then runs the OnStop hooks.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer func() {
		for _, fn := range l.onStop {
			fn()
		}
	}()

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.now()
			l.Frame(now.Sub(last))
			last = now
		}
	}
}

func (l *Loop) absorb(report *FrameReport, pass PassResult) {
	report.Failures = append(report.Failures, pass.Failures...)
	l.stats.Destroyed += int64(pass.Destroyed)
}

func (l *Loop) record(report FrameReport, d time.Duration) {
	s := &l.stats
	s.Frames++
	s.Steps += int64(report.SubSteps)
	s.Commands += int64(report.Commands)
	s.DroppedTime += report.Dropped
	s.LastDuration = d
	s.TotalDuration += d
	if d < s.MinDuration {
		s.MinDuration = d
	}
	if d > s.MaxDuration {
		s.MaxDuration = d
	}
	for _, err := range report.Failures {
		s.Failures++
		s.LastError = err.Error()
		l.log.Warn("frame failure", "error", err)
	}
}
