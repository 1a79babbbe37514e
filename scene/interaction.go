package scene

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// InteractionState is the state of the pointer manipulation state machine.
type InteractionState uint8

const (
	Idle InteractionState = iota
	Hovering
	Dragging
)

func (s InteractionState) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// ReleaseMode decides the velocity a dragged object leaves the pointer with.
type ReleaseMode uint8

const (
	// ReleaseZero drops the object at rest.
	ReleaseZero ReleaseMode = iota
	// ReleaseThrow keeps the velocity the pointer moved the object with.
	ReleaseThrow
)

func (m ReleaseMode) String() string {
	if m == ReleaseThrow {
		return "throw"
	}
	return "zero"
}

func ParseReleaseMode(s string) (ReleaseMode, error) {
	switch strings.ToLower(s) {
	case "zero", "":
		return ReleaseZero, nil
	case "throw":
		return ReleaseThrow, nil
	}
	return 0, fmt.Errorf("%w: release mode %q", ErrInvalidValue, s)
}

func (m ReleaseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ReleaseMode) UnmarshalText(text []byte) error {
	parsed, err := ParseReleaseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// WorkingVolume bounds where a drag may place an object's centre.
type WorkingVolume struct {
	Min, Max mgl64.Vec3
}

func (v WorkingVolume) Clamp(p mgl64.Vec3) mgl64.Vec3 {
	for k := range 3 {
		p[k] = math.Max(v.Min[k], math.Min(v.Max[k], p[k]))
	}
	return p
}

type InteractionConfig struct {
	Volume  WorkingVolume
	Release ReleaseMode
	// VelocitySamples is how many recent drag poses the throw velocity is estimated from.
	VelocitySamples int
	MaxThrowSpeed   float64
}

func DefaultInteractionConfig() InteractionConfig {
	return InteractionConfig{
		Volume: WorkingVolume{
			Min: mgl64.Vec3{-10, 0, -10},
			Max: mgl64.Vec3{10, 10, 10},
		},
		Release:         ReleaseZero,
		VelocitySamples: 5,
		MaxThrowSpeed:   20,
	}
}

type poseSample struct {
	position mgl64.Vec3
	at       time.Time
}

type dragState struct {
	id          ObjectID
	planePoint  mgl64.Vec3
	planeNormal mgl64.Vec3
	eye         mgl64.Vec3
	forward     mgl64.Vec3
	offset      mgl64.Vec3
	lockedDepth float64
	samples     []poseSample
}

// Interaction turns pointer events into object manipulation. While an object is dragged its authority is
// Kinematic and the pointer writes its pose; releasing it hands the pose back to the physics world.
type Interaction struct {
	registry *Registry
	camera   *Camera
	cfg      InteractionConfig
	state    InteractionState
	hovered  ObjectID
	drag     *dragState
	lastX    float64
	lastY    float64
	now      func() time.Time
	log      *slog.Logger
}

// NewInteraction creates a controller and subscribes it to the registry so a dragged object that is
// destroyed returns the controller to Idle.
func NewInteraction(registry *Registry, camera *Camera, cfg InteractionConfig, opts ...Option) *Interaction {
	o := buildOptions(opts)
	if cfg.VelocitySamples < 2 {
		cfg.VelocitySamples = 2
	}
	i := &Interaction{
		registry: registry,
		camera:   camera,
		cfg:      cfg,
		now:      o.now,
		log:      o.logger,
	}
	registry.Observe(i)
	return i
}

func (i *Interaction) State() InteractionState     { return i.state }
func (i *Interaction) Camera() *Camera             { return i.camera }
func (i *Interaction) Config() InteractionConfig   { return i.cfg }
func (i *Interaction) SetRelease(mode ReleaseMode) { i.cfg.Release = mode }

// Hovered returns the object under the pointer while Hovering.
func (i *Interaction) Hovered() (ObjectID, bool) {
	return i.hovered, i.state == Hovering
}

// Dragged returns the object being dragged.
func (i *Interaction) Dragged() (ObjectID, bool) {
	if i.drag == nil {
		return 0, false
	}
	return i.drag.id, true
}

// Pick returns the nearest draggable object under the pixel (x, y) and the hit point on its visual.
func (i *Interaction) Pick(x, y float64) (*SceneObject, mgl64.Vec3, bool) {
	ray := i.camera.Ray(x, y)
	var (
		best  *SceneObject
		bestT = math.Inf(1)
	)
	for obj := range i.registry.All() {
		if !obj.draggable {
			continue
		}
		var (
			t   float64
			hit bool
		)
		shape := obj.VisualShape()
		if obj.Kind() == KindSphere {
			t, hit = ray.IntersectSphere(obj.Visual.Position, shape.Radius)
		} else {
			t, hit = ray.IntersectBox(obj.Visual.Position, obj.Visual.Rotation, shape.HalfExtents)
		}
		if hit && t < bestT {
			best, bestT = obj, t
		}
	}
	if best == nil {
		return nil, mgl64.Vec3{}, false
	}
	return best, ray.At(bestT), true
}

// PointerDown starts a drag when the pointer is over a draggable object.
func (i *Interaction) PointerDown(x, y float64) (ObjectID, bool) {
	i.lastX, i.lastY = x, y
	if i.drag != nil {
		return i.drag.id, true
	}
	obj, _, ok := i.Pick(x, y)
	if !ok {
		i.state = Idle
		return 0, false
	}
	if err := i.registry.SetAuthority(obj, Kinematic); err != nil {
		i.log.Warn("drag start failed", "id", obj.id, "error", err)
		return 0, false
	}

	fwd := i.camera.Forward()
	pos := obj.Visual.Position
	// The grab offset lives on the drag plane, not on the picked surface, so the object does not move until the
	// pointer does.
	var offset mgl64.Vec3
	ray := i.camera.Ray(x, y)
	if t, ok := ray.IntersectPlane(pos, fwd); ok {
		offset = ray.At(t).Sub(pos)
	}
	i.drag = &dragState{
		id:          obj.id,
		planePoint:  pos,
		planeNormal: fwd,
		eye:         i.camera.Eye,
		forward:     fwd,
		offset:      offset,
		lockedDepth: pos.Sub(i.camera.Eye).Dot(fwd),
	}
	i.record(pos)
	i.state = Dragging
	i.hovered = obj.id
	i.log.Debug("drag started", "id", obj.id, "depth", i.drag.lockedDepth)
	return obj.id, true
}

// PointerMove moves the dragged object, or updates hover state when nothing is dragged.
func (i *Interaction) PointerMove(x, y float64) {
	i.lastX, i.lastY = x, y
	if i.drag == nil {
		i.updateHover(x, y)
		return
	}
	obj, ok := i.registry.Get(i.drag.id)
	if !ok {
		i.reset()
		return
	}

	ray := i.camera.Ray(x, y)
	t, ok := ray.IntersectPlane(i.drag.planePoint, i.drag.planeNormal)
	if !ok {
		return
	}
	target := ray.At(t).Sub(i.drag.offset)
	depth := target.Sub(i.drag.eye).Dot(i.drag.forward)
	target = target.Add(i.drag.forward.Mul(i.drag.lockedDepth - depth))
	target = i.clamp(obj, target)

	if err := i.registry.SetKinematicPose(obj, target, obj.body.Orientation); err != nil {
		i.log.Warn("drag move rejected", "id", obj.id, "error", err)
		return
	}
	i.record(target)
}

// PointerUp releases the dragged object back to the physics world from its last kinematic pose.
func (i *Interaction) PointerUp() {
	if i.drag == nil {
		return
	}
	d := i.drag
	obj, ok := i.registry.Get(d.id)
	if !ok {
		i.reset()
		return
	}
	if err := i.registry.SetAuthority(obj, Dynamic); err != nil {
		i.log.Warn("drag release failed", "id", obj.id, "error", err)
	}
	if i.cfg.Release == ReleaseThrow {
		v := i.throwVelocity(d.samples)
		if err := i.registry.World().SetVelocity(obj.body.ID(), v, obj.body.AngularVelocity); err != nil {
			i.log.Warn("throw failed", "id", obj.id, "error", err)
		}
	}
	i.log.Debug("drag released", "id", obj.id, "position", obj.body.Position)
	i.drag = nil
	i.updateHover(i.lastX, i.lastY)
}

// Abandon ends any drag in flight, leaving the object where it was last placed.
func (i *Interaction) Abandon() {
	if i.drag == nil {
		return
	}
	if obj, ok := i.registry.Get(i.drag.id); ok {
		if err := i.registry.SetAuthority(obj, Dynamic); err != nil {
			i.log.Warn("drag abandon failed", "id", obj.id, "error", err)
		}
	}
	i.reset()
}

func (i *Interaction) ObjectCreated(*SceneObject) {}

func (i *Interaction) ObjectDestroyed(obj *SceneObject) {
	switch {
	case i.drag != nil && i.drag.id == obj.id:
		i.reset()
	case i.drag == nil && i.hovered == obj.id:
		i.hovered = 0
		i.state = Idle
	}
}

func (i *Interaction) reset() {
	i.drag = nil
	i.hovered = 0
	i.state = Idle
}

func (i *Interaction) updateHover(x, y float64) {
	if obj, _, ok := i.Pick(x, y); ok {
		i.hovered = obj.id
		i.state = Hovering
		return
	}
	i.hovered = 0
	i.state = Idle
}

// clamp keeps target inside the working volume and the object's lowest point above the ground.
func (i *Interaction) clamp(obj *SceneObject, target mgl64.Vec3) mgl64.Vec3 {
	target = i.cfg.Volume.Clamp(target)
	ground := i.registry.World().Ground()
	lowest := ground.Height + obj.body.Shape.Support(obj.body.Orientation, ground.Normal)
	if h := target.Dot(ground.Normal); h < lowest {
		target = target.Add(ground.Normal.Mul(lowest - h))
	}
	return target
}

func (i *Interaction) record(p mgl64.Vec3) {
	d := i.drag
	d.samples = append(d.samples, poseSample{position: p, at: i.now()})
	if n := len(d.samples); n > i.cfg.VelocitySamples {
		d.samples = d.samples[n-i.cfg.VelocitySamples:]
	}
}

func (i *Interaction) throwVelocity(samples []poseSample) mgl64.Vec3 {
	if len(samples) < 2 {
		return mgl64.Vec3{}
	}
	first, last := samples[0], samples[len(samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		return mgl64.Vec3{}
	}
	v := last.position.Sub(first.position).Mul(1 / dt)
	if speed := v.Len(); i.cfg.MaxThrowSpeed > 0 && speed > i.cfg.MaxThrowSpeed {
		v = v.Mul(i.cfg.MaxThrowSpeed / speed)
	}
	return v
}
