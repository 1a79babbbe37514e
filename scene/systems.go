package scene

import "fmt"

// TickSystem runs the per-step phase of every behavior. A behavior that fails or panics is removed.
type TickSystem struct{}

func (TickSystem) Execute(frame *UpdateFrame) {
	ctx := &TickContext{World: frame.World, Dt: frame.DeltaTime, Time: frame.Time}
	for _, obj := range frame.Registry.snapshot() {
		for _, b := range obj.Behaviors() {
			if err := recovered(func() error { return b.Tick(ctx, obj) }); err != nil {
				frame.Edits.ClearBehavior(obj.id, b.Kind())
				frame.Fail(&ObjectError{Op: "tick " + b.Kind().String(), ID: obj.id, Err: err})
			}
		}
	}
}

// StepSystem advances the physics world by one fixed step.
type StepSystem struct{}

func (StepSystem) Execute(frame *UpdateFrame) {
	frame.World.Step(frame.DeltaTime)
}

// ContainSystem destroys every object whose body diverged to a non-finite state.
type ContainSystem struct{}

func (ContainSystem) Execute(frame *UpdateFrame) {
	for _, obj := range frame.Registry.snapshot() {
		if obj.body.Finite() {
			continue
		}
		frame.Edits.Destroy(obj.id)
		frame.Fail(&ObjectError{Op: "step", ID: obj.id, Err: ErrNonFinitePose})
	}
}

// SyncSystem copies physics poses onto the visuals they own.
type SyncSystem struct{}

func (SyncSystem) Execute(frame *UpdateFrame) {
	frame.Registry.Sync()
}

// PresentSystem runs the per-frame phase of every behavior, after sync.
type PresentSystem struct{}

func (PresentSystem) Execute(frame *UpdateFrame) {
	for _, obj := range frame.Registry.snapshot() {
		for _, b := range obj.Behaviors() {
			if err := recovered(func() error { b.Present(obj); return nil }); err != nil {
				frame.Edits.ClearBehavior(obj.id, b.Kind())
				frame.Fail(&ObjectError{Op: "present " + b.Kind().String(), ID: obj.id, Err: err})
			}
		}
	}
}

// RenderSystem hands the registry to Renderer, if one is set.
type RenderSystem struct {
	Renderer Renderer
}

func (s *RenderSystem) Execute(frame *UpdateFrame) {
	if s.Renderer == nil {
		return
	}
	if err := recovered(func() error { s.Renderer.Render(frame.Registry); return nil }); err != nil {
		frame.Fail(fmt.Errorf("render %w", err))
	}
}

func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
