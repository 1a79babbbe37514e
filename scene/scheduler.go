package scene

import (
	"reflect"
	"time"

	"github.com/plus3/objectlab/physics"
)

// System is one ordered phase of a Scheduler pass.
type System interface {
	Execute(frame *UpdateFrame)
}

// SystemFunc adapts a function to System.
type SystemFunc func(frame *UpdateFrame)

func (f SystemFunc) Execute(frame *UpdateFrame) { f(frame) }

// UpdateFrame is what every system of one pass sees.
type UpdateFrame struct {
	// DeltaTime is the fixed step in seconds for a step pass, zero for a present pass.
	DeltaTime float64
	// Time is the simulated time in seconds at the start of the pass.
	Time     float64
	Registry *Registry
	World    *physics.World
	Edits    *Edits

	failures []error
}

// Fail records errs against the pass. Failures never stop later systems.
func (f *UpdateFrame) Fail(errs ...error) {
	f.failures = append(f.failures, errs...)
}

// Edits buffers structural changes requested while systems iterate the registry. They apply after the last
// system of the pass, destroys first.
type Edits struct {
	destroys []ObjectID
	clears   []behaviorClear
	defers   []func()
}

type behaviorClear struct {
	id   ObjectID
	kind BehaviorKind
}

func (e *Edits) Destroy(id ObjectID) {
	e.destroys = append(e.destroys, id)
}

func (e *Edits) ClearBehavior(id ObjectID, kind BehaviorKind) {
	e.clears = append(e.clears, behaviorClear{id: id, kind: kind})
}

// Defer queues fn to run after the buffered destroys and behavior removals.
func (e *Edits) Defer(fn func()) {
	e.defers = append(e.defers, fn)
}

// Flush applies the buffered edits to r and returns how many objects it destroyed.
func (e *Edits) Flush(r *Registry) int {
	var destroyed int
	for _, id := range e.destroys {
		if r.Destroy(id) {
			destroyed++
		}
	}
	for _, c := range e.clears {
		if obj, ok := r.Get(c.id); ok {
			obj.ClearBehavior(c.kind)
		}
	}
	for _, fn := range e.defers {
		fn()
	}

	e.destroys = e.destroys[:0]
	e.clears = e.clears[:0]
	e.defers = e.defers[:0]
	return destroyed
}

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// PassResult is what one Once call did.
type PassResult struct {
	Destroyed int
	Failures  []error
}

// Scheduler runs its systems in registration order against a registry.
type Scheduler struct {
	registry    *Registry
	systems     []System
	systemStats []*systemStatsInternal
	edits       Edits

	now func() time.Time
}

func NewScheduler(registry *Registry) *Scheduler {
	return &Scheduler{
		registry: registry,
		systems:  make([]System, 0),
		now:      time.Now,
	}
}

// Register appends system to the pass. Stats are kept under its type name.
func (s *Scheduler) Register(system System) {
	s.RegisterNamed(systemName(system), system)
}

// RegisterNamed is Register with an explicit stats name, for SystemFunc values.
func (s *Scheduler) RegisterNamed(name string, system System) {
	s.systems = append(s.systems, system)
	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        name,
		minDuration: time.Duration(1<<63 - 1),
	})
}

func systemName(system System) string {
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Once executes every registered system once, then flushes the edits they buffered.
func (s *Scheduler) Once(dt, simTime float64) PassResult {
	frame := &UpdateFrame{
		DeltaTime: dt,
		Time:      simTime,
		Registry:  s.registry,
		World:     s.registry.World(),
		Edits:     &s.edits,
	}

	for i, system := range s.systems {
		start := s.now()
		system.Execute(frame)
		duration := s.now().Sub(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	return PassResult{
		Destroyed: s.edits.Flush(s.registry),
		Failures:  frame.failures,
	}
}

// Stats returns statistics about system execution.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		} else {
			minDuration = 0
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
