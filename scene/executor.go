package scene

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"slices"

	"github.com/plus3/objectlab/physics"
)

// Executor applies commands to a Registry and its physics world.
// Execute never panics; every failure is returned in Result.Err and leaves the scene unchanged.
type Executor struct {
	registry *Registry
	world    *physics.World
	log      *slog.Logger
}

func NewExecutor(registry *Registry, opts ...Option) *Executor {
	o := buildOptions(opts)
	return &Executor{
		registry: registry,
		world:    registry.World(),
		log:      o.logger,
	}
}

func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs one command.
func (e *Executor) Execute(cmd Command) (res Result) {
	if cmd == nil {
		return Result{Err: fmt.Errorf("%w: nil command", ErrUnknownCommand)}
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s: panic: %v", res.Type, r)
		}
		if res.Err != nil {
			e.log.Warn("command failed", "type", res.Type, "error", res.Err)
		} else {
			e.log.Debug("command executed", "type", res.Type, "created", len(res.Created))
		}
	}()
	cmd = deref(cmd)
	res.Type = cmd.CommandType()

	switch c := cmd.(type) {
	case CreateObject:
		res.Created, res.Err = e.createObjects(c)
	case RemoveObject:
		res.Err = e.removeObject(c)
	case ClearScene:
		e.registry.Clear()
	case SetRestitution:
		res.Err = e.setContact("set_restitution", c.Target, c.Value, func(m *physics.ContactMaterial, v float64) { m.Restitution = v })
	case SetFriction:
		res.Err = e.setContact("set_friction", c.Target, c.Value, func(m *physics.ContactMaterial, v float64) { m.Friction = v })
	case ApplyImpulse:
		res.Err = e.applyImpulse(c)
	case ApplyForce:
		res.Err = e.applyForce(c)
	case KeepBouncing:
		res.Err = e.keepBouncing(c)
	case Animate:
		res.Err = e.animate(c)
	case ModifyProperty:
		res.Err = e.modifyProperty(c)
	case ClearBehavior:
		res.Err = e.clearBehavior(c)
	default:
		res.Err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return res
}

func (e *Executor) resolve(op, ref string) (*SceneObject, error) {
	obj, ok := e.registry.Resolve(ref)
	if !ok {
		return nil, &ObjectError{Op: op, Ref: ref, Err: ErrUnknownTarget}
	}
	return obj, nil
}

func (e *Executor) createObjects(c CreateObject) ([]ObjectID, error) {
	seen := make(map[string]bool, len(c.Objects))
	for _, spec := range c.Objects {
		if err := e.registry.buildable(spec); err != nil {
			return nil, &ObjectError{Op: "create", Ref: spec.ID, Err: err}
		}
		if spec.ID == "" {
			continue
		}
		if seen[spec.ID] {
			return nil, &ObjectError{Op: "create", Ref: spec.ID, Err: fmt.Errorf("%w: duplicate external id", ErrInvalidValue)}
		}
		seen[spec.ID] = true
		if _, live := e.registry.Lookup(spec.ID); live && !c.Replace {
			return nil, &ObjectError{Op: "create", Ref: spec.ID, Err: fmt.Errorf("%w: external id already in use", ErrInvalidValue)}
		}
	}

	if c.Replace {
		if sameObjectSet(e.registry, c.Objects) {
			return e.registry.IDs(), nil
		}
		e.registry.Clear()
	}

	created := make([]ObjectID, 0, len(c.Objects))
	for _, spec := range c.Objects {
		id, err := e.registry.Create(spec)
		if err != nil {
			for _, done := range created {
				e.registry.Destroy(done)
			}
			return nil, err
		}
		created = append(created, id)
	}
	return created, nil
}

// sameObjectSet reports whether the live objects were built from exactly the given specs, in any order.
func sameObjectSet(r *Registry, specs []ObjectSpec) bool {
	if r.Len() != len(specs) || len(specs) == 0 {
		return false
	}
	live := make([]string, 0, r.Len())
	for obj := range r.All() {
		live = append(live, obj.spec.signature())
	}
	want := make([]string, len(specs))
	for i, spec := range specs {
		want[i] = spec.signature()
	}
	slices.Sort(live)
	slices.Sort(want)
	return slices.Equal(live, want)
}

func (e *Executor) removeObject(c RemoveObject) error {
	obj, err := e.resolve("remove", c.Target)
	if err != nil {
		return err
	}
	e.registry.Destroy(obj.id)
	return nil
}

// setContact moves the target onto its owned material tag and replaces the owned tag's ground pair,
// taking the other field of the pair from whatever the object touched the ground with before.
func (e *Executor) setContact(op, ref string, v float64, set func(*physics.ContactMaterial, float64)) error {
	obj, err := e.resolve(op, ref)
	if err != nil {
		return err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &ObjectError{Op: op, Ref: ref, ID: obj.id, Err: fmt.Errorf("%w: %v", ErrInvalidValue, v)}
	}

	ground := e.world.Ground().Tag
	owned := obj.OwnedTag()
	m := e.world.ContactMaterial(obj.materialTag, ground)
	set(&m, v)

	table := e.world.Materials()
	table.Remove(owned, ground)
	table.Set(owned, ground, m)
	if obj.materialTag != owned {
		if err := e.registry.SetMaterialTag(obj, owned); err != nil {
			table.Remove(owned, ground)
			return err
		}
	}
	return nil
}

func (e *Executor) applyImpulse(c ApplyImpulse) error {
	obj, err := e.resolve("apply_impulse", c.Target)
	if err != nil {
		return err
	}
	if !finite(c.Vector) {
		return &ObjectError{Op: "apply_impulse", Ref: c.Target, ID: obj.id, Err: fmt.Errorf("%w: impulse %v", ErrInvalidValue, c.Vector)}
	}
	return e.world.ApplyImpulse(obj.body.ID(), c.Vector)
}

func (e *Executor) applyForce(c ApplyForce) error {
	obj, err := e.resolve("apply_force", c.Target)
	if err != nil {
		return err
	}
	if !finite(c.Vector) {
		return &ObjectError{Op: "apply_force", Ref: c.Target, ID: obj.id, Err: fmt.Errorf("%w: force %v", ErrInvalidValue, c.Vector)}
	}
	obj.SetBehavior(&Force{Vector: c.Vector})
	return nil
}

func (e *Executor) keepBouncing(c KeepBouncing) error {
	obj, err := e.resolve("keep_bouncing", c.Target)
	if err != nil {
		return err
	}
	b, err := NewBouncer(c.Speed)
	if err != nil {
		return &ObjectError{Op: "keep_bouncing", Ref: c.Target, ID: obj.id, Err: err}
	}
	obj.SetBehavior(b)
	return nil
}

func (e *Executor) animate(c Animate) error {
	obj, err := e.resolve("animate", c.Target)
	if err != nil {
		return err
	}
	var b Behavior
	switch {
	case c.Rotation != nil && c.Oscillate == nil:
		b, err = NewRotate(c.Rotation.Axis, c.Rotation.Speed)
	case c.Oscillate != nil && c.Rotation == nil:
		b, err = NewOscillate(c.Oscillate.Amplitude, c.Oscillate.Frequency, c.Oscillate.Axis)
	default:
		err = fmt.Errorf("%w: animate needs exactly one of rotation or oscillate", ErrInvalidValue)
	}
	if err != nil {
		return &ObjectError{Op: "animate", Ref: c.Target, ID: obj.id, Err: err}
	}
	obj.SetBehavior(b)
	return nil
}

func (e *Executor) modifyProperty(c ModifyProperty) error {
	obj, err := e.resolve("modify_property", c.Target)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		return &ObjectError{Op: "modify_property", Ref: c.Target, ID: obj.id, Err: err}
	}

	switch c.Property {
	case PropertyColor:
		col, err := colorValue(c.Value)
		if err != nil {
			return fail(err)
		}
		obj.Appearance.Color = col
	case PropertyScale:
		v, err := numberValue(c.Value)
		if err != nil {
			return fail(err)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return fail(fmt.Errorf("%w: scale %v", ErrInvalidValue, v))
		}
		obj.Visual.Scale = v
	case PropertyOpacity:
		v, err := numberValue(c.Value)
		if err != nil {
			return fail(err)
		}
		if !(v >= 0 && v <= 1) {
			return fail(fmt.Errorf("%w: opacity %v", ErrInvalidValue, v))
		}
		obj.Appearance.Opacity = v
	default:
		return fail(fmt.Errorf("%w: property %q", ErrInvalidValue, c.Property))
	}
	return nil
}

func (e *Executor) clearBehavior(c ClearBehavior) error {
	obj, err := e.resolve("clear_behavior", c.Target)
	if err != nil {
		return err
	}
	if c.Kind >= behaviorKindCount {
		return &ObjectError{Op: "clear_behavior", Ref: c.Target, ID: obj.id, Err: fmt.Errorf("%w: behavior %d", ErrInvalidValue, c.Kind)}
	}
	if obj.ClearBehavior(c.Kind) && c.Kind == BehaviorRotate {
		obj.Visual.Rotation = obj.synced
	}
	return nil
}

var errNotNumber = errors.New("value is not a number")

func numberValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: %w: %v", ErrInvalidValue, errNotNumber, v)
}

func colorValue(v any) (color.NRGBA, error) {
	switch c := v.(type) {
	case string:
		return ParseColor(c)
	case color.NRGBA:
		return c, nil
	case color.Color:
		return color.NRGBAModel.Convert(c).(color.NRGBA), nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: color %v", ErrInvalidValue, v)
}

