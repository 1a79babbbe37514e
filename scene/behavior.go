package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
)

// BehaviorKind identifies a behavior slot. An object holds at most one behavior per kind.
type BehaviorKind uint8

const (
	BehaviorRotate BehaviorKind = iota
	BehaviorOscillate
	BehaviorForce
	BehaviorKeepBouncing
	behaviorKindCount
)

var behaviorNames = [...]string{"rotate", "oscillate", "force", "keep_bouncing"}

func (k BehaviorKind) String() string {
	if k < behaviorKindCount {
		return behaviorNames[k]
	}
	return fmt.Sprintf("behavior(%d)", k)
}

func ParseBehaviorKind(s string) (BehaviorKind, error) {
	for i, name := range behaviorNames {
		if strings.EqualFold(s, name) {
			return BehaviorKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: behavior %q", ErrInvalidValue, s)
}

func (k BehaviorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BehaviorKind) UnmarshalText(text []byte) error {
	parsed, err := ParseBehaviorKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TickContext is passed to every behavior once per fixed step, before the world steps.
type TickContext struct {
	World *physics.World
	// Dt is the fixed step in seconds.
	Dt float64
	// Time is the simulated time in seconds at the start of this step.
	Time float64
}

// Behavior is a per-object effect with two phases. Tick runs once per fixed step and may touch the body.
// Present runs once per rendered frame after the physics pose was synced and may only touch the visual.
type Behavior interface {
	Kind() BehaviorKind
	Tick(ctx *TickContext, obj *SceneObject) error
	Present(obj *SceneObject)
}

var worldUp = mgl64.Vec3{0, 1, 0}

func unitAxis(axis mgl64.Vec3) (mgl64.Vec3, error) {
	if axis == (mgl64.Vec3{}) {
		return worldUp, nil
	}
	l := axis.Len()
	if !(l > 0) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, fmt.Errorf("%w: axis %v", ErrInvalidValue, axis)
	}
	return axis.Mul(1 / l), nil
}

// Rotate spins the visual about an axis. The body is untouched.
type Rotate struct {
	Axis  mgl64.Vec3
	Speed float64 // rad/s
	Angle float64
}

func NewRotate(axis mgl64.Vec3, speed float64) (*Rotate, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("%w: rotation speed %v", ErrInvalidValue, speed)
	}
	return &Rotate{Axis: a, Speed: speed}, nil
}

func (r *Rotate) Kind() BehaviorKind { return BehaviorRotate }

func (r *Rotate) Tick(ctx *TickContext, _ *SceneObject) error {
	r.Angle = math.Mod(r.Angle+r.Speed*ctx.Dt, 2*math.Pi)
	return nil
}

func (r *Rotate) Present(obj *SceneObject) {
	obj.Visual.Rotation = obj.synced.Mul(mgl64.QuatRotate(r.Angle, r.Axis)).Normalize()
}

// Oscillate moves an object sinusoidally along one axis around the point it held when the first tick ran.
// The axis component of the pose is written directly, so physics never moves the object along it.
type Oscillate struct {
	Amplitude float64
	Frequency float64 // Hz
	Axis      mgl64.Vec3

	anchored bool
	origin   float64
	elapsed  float64
	offset   float64
}

func NewOscillate(amplitude, frequency float64, axis mgl64.Vec3) (*Oscillate, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return nil, fmt.Errorf("%w: amplitude %v", ErrInvalidValue, amplitude)
	}
	if frequency < 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("%w: frequency %v", ErrInvalidValue, frequency)
	}
	return &Oscillate{Amplitude: amplitude, Frequency: frequency, Axis: a}, nil
}

func (o *Oscillate) Kind() BehaviorKind { return BehaviorOscillate }

// Position returns the axis coordinate the object is held at.
func (o *Oscillate) Position() float64 { return o.origin + o.offset }

func (o *Oscillate) Tick(ctx *TickContext, obj *SceneObject) error {
	if obj.authority != Dynamic {
		// a drag owns the pose; re-anchor where it is released
		o.anchored = false
		return nil
	}
	body := obj.body
	if !o.anchored {
		o.origin = body.Position.Dot(o.Axis)
		o.elapsed = 0
		o.anchored = true
	}
	o.elapsed += ctx.Dt
	o.offset = o.Amplitude * math.Sin(2*math.Pi*o.Frequency*o.elapsed)

	pos := body.Position.Add(o.Axis.Mul(o.Position() - body.Position.Dot(o.Axis)))
	if err := ctx.World.SetPose(body.ID(), pos, body.Orientation); err != nil {
		return err
	}
	vel := body.LinearVelocity.Sub(o.Axis.Mul(body.LinearVelocity.Dot(o.Axis)))
	if err := ctx.World.SetVelocity(body.ID(), vel, body.AngularVelocity); err != nil {
		return err
	}
	// cancel gravity along the axis so the step does not drift off the written coordinate
	counter := o.Axis.Mul(-ctx.World.Gravity().Dot(o.Axis) * body.Mass())
	return ctx.World.ApplyForce(body.ID(), counter)
}

func (o *Oscillate) Present(obj *SceneObject) {
	if !o.anchored || obj.authority != Dynamic {
		return
	}
	p := obj.Visual.Position
	obj.Visual.Position = p.Add(o.Axis.Mul(o.Position() - p.Dot(o.Axis)))
}

// Force pushes a body with a constant force on every tick until it is cleared.
type Force struct {
	Vector mgl64.Vec3
}

func (f *Force) Kind() BehaviorKind { return BehaviorForce }

func (f *Force) Tick(ctx *TickContext, obj *SceneObject) error {
	if obj.authority != Dynamic {
		return nil
	}
	return ctx.World.ApplyForce(obj.body.ID(), f.Vector)
}

func (f *Force) Present(*SceneObject) {}

// Bouncer polls an object every tick and kicks it upwards again whenever it is resting near the ground.
type Bouncer struct {
	// Speed is the upward speed each kick gives, applied as an impulse of mass times Speed.
	Speed float64
	// GroundThreshold is how close the lowest point must be to the ground plane.
	GroundThreshold float64
	// VelocityThreshold is the largest vertical speed still considered resting.
	VelocityThreshold float64
	Bounces           int
}

func NewBouncer(speed float64) (*Bouncer, error) {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("%w: bounce speed %v", ErrInvalidValue, speed)
	}
	return &Bouncer{Speed: speed, GroundThreshold: 0.02, VelocityThreshold: 0.5}, nil
}

func (k *Bouncer) Kind() BehaviorKind { return BehaviorKeepBouncing }

func (k *Bouncer) Tick(ctx *TickContext, obj *SceneObject) error {
	if obj.authority != Dynamic {
		return nil
	}
	ground := ctx.World.Ground()
	body := obj.body
	clearance := body.Bottom(ground.Normal) - ground.Height
	if clearance >= k.GroundThreshold || math.Abs(body.LinearVelocity.Dot(ground.Normal)) >= k.VelocityThreshold {
		return nil
	}
	k.Bounces++
	return ctx.World.ApplyImpulse(body.ID(), ground.Normal.Mul(body.Mass()*k.Speed))
}

func (k *Bouncer) Present(*SceneObject) {}
