package scene

import (
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kamstrup/intmap"
	"github.com/plus3/objectlab/physics"
)

// RegistryConfig holds the defaults applied to object specs that leave fields empty.
type RegistryConfig struct {
	// DefaultDensity in kg/m³ derives a mass when a spec gives neither mass nor density.
	DefaultDensity  float64
	DefaultMaterial string
}

func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		DefaultDensity:  1000,
		DefaultMaterial: "default",
	}
}

// Lifecycle observes objects entering and leaving a Registry, e.g. to allocate and free render resources.
type Lifecycle interface {
	ObjectCreated(obj *SceneObject)
	ObjectDestroyed(obj *SceneObject)
}

// Registry owns every SceneObject and keeps each one paired with its rigid body.
type Registry struct {
	world      *physics.World
	cfg        RegistryConfig
	objects    *intmap.Map[ObjectID, *SceneObject]
	order      []*SceneObject
	byExternal map[string]ObjectID
	epoch      uint32
	seq        uint32
	observers  []Lifecycle
	log        *slog.Logger
}

func NewRegistry(world *physics.World, cfg RegistryConfig, opts ...Option) *Registry {
	o := buildOptions(opts)
	if !(cfg.DefaultDensity > 0) {
		cfg.DefaultDensity = DefaultRegistryConfig().DefaultDensity
	}
	if cfg.DefaultMaterial == "" {
		cfg.DefaultMaterial = DefaultRegistryConfig().DefaultMaterial
	}
	return &Registry{
		world:      world,
		cfg:        cfg,
		objects:    intmap.New[ObjectID, *SceneObject](64),
		byExternal: make(map[string]ObjectID),
		epoch:      1,
		log:        o.logger,
	}
}

func (r *Registry) World() *physics.World  { return r.world }
func (r *Registry) Config() RegistryConfig { return r.cfg }
func (r *Registry) Len() int               { return len(r.order) }

// Observe registers a lifecycle observer. Observers are notified in registration order; registering one twice has
// no effect.
func (r *Registry) Observe(l Lifecycle) {
	if slices.Contains(r.observers, l) {
		return
	}
	r.observers = append(r.observers, l)
}

// Validate checks a spec without creating anything.
func (r *Registry) Validate(spec ObjectSpec) error {
	if err := r.buildable(spec); err != nil {
		return &ObjectError{Op: "create", Ref: spec.ID, Err: err}
	}
	if spec.ID != "" {
		if _, taken := r.byExternal[spec.ID]; taken {
			return &ObjectError{Op: "create", Ref: spec.ID, Err: fmt.Errorf("%w: external id already in use", ErrInvalidValue)}
		}
	}
	return nil
}

// buildable reports whether spec turns into a valid body. Finite dimensions can still overflow or underflow once
// turned into a collision shape and a mass.
func (r *Registry) buildable(spec ObjectSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	if !spec.shape().Valid() {
		return fmt.Errorf("%w: %s collision shape is degenerate", ErrInvalidGeometry, spec.Kind)
	}
	if mass := r.MassFor(spec); !(mass > 0) || math.IsInf(mass, 0) {
		return fmt.Errorf("%w: mass %v", ErrInvalidGeometry, mass)
	}
	return nil
}

// MassFor returns the mass an object built from spec would get.
func (r *Registry) MassFor(spec ObjectSpec) float64 {
	switch {
	case spec.Mass > 0:
		return spec.Mass
	case spec.Density > 0:
		return spec.Density * spec.volume()
	default:
		return r.cfg.DefaultDensity * spec.volume()
	}
}

// Create builds the visual and the rigid body for spec together.
func (r *Registry) Create(spec ObjectSpec) (ObjectID, error) {
	if err := r.Validate(spec); err != nil {
		return 0, err
	}
	tag := spec.MaterialTag
	if tag == "" {
		tag = r.cfg.DefaultMaterial
	}
	mass := r.MassFor(spec)
	orientation := spec.orientation()

	bodyID, err := r.world.AddBody(physics.BodyDef{
		Shape:       spec.shape(),
		Mass:        mass,
		Material:    tag,
		Type:        physics.BodyDynamic,
		Position:    spec.Position,
		Orientation: orientation,
	})
	if err != nil {
		return 0, &ObjectError{Op: "create", Ref: spec.ID, Err: fmt.Errorf("%w: %v", ErrInvalidGeometry, err)}
	}
	body, _ := r.world.Body(bodyID)

	appearance := Appearance{Color: kindColors[spec.Kind], Opacity: 1}
	if spec.Color != "" {
		appearance.Color, _ = ParseColor(spec.Color)
	}

	r.seq++
	obj := &SceneObject{
		id:          NewObjectID(r.epoch, r.seq),
		spec:        spec,
		mass:        mass,
		baseTag:     physics.BaseTag(tag),
		materialTag: tag,
		body:        body,
		authority:   Dynamic,
		draggable:   spec.Draggable == nil || *spec.Draggable,
		synced:      body.Orientation,
		Visual: VisualPose{
			Position: body.Position,
			Rotation: body.Orientation,
			Scale:    1,
		},
		Appearance: appearance,
	}
	r.objects.Put(obj.id, obj)
	r.order = append(r.order, obj)
	if spec.ID != "" {
		r.byExternal[spec.ID] = obj.id
	}

	for _, o := range r.observers {
		o.ObjectCreated(obj)
	}
	r.log.Debug("object created", "id", obj.id, "kind", spec.Kind, "mass", mass, "material", tag)
	return obj.id, nil
}

// Destroy removes an object's body and visual in one call. It reports false when id is not live.
func (r *Registry) Destroy(id ObjectID) bool {
	obj, ok := r.objects.Get(id)
	if !ok {
		return false
	}
	r.world.RemoveBody(obj.body.ID())
	if obj.materialTag == obj.OwnedTag() {
		r.world.Materials().RemoveTag(obj.materialTag)
	}
	r.objects.Del(id)
	r.order = slices.DeleteFunc(r.order, func(o *SceneObject) bool { return o == obj })
	if obj.spec.ID != "" {
		delete(r.byExternal, obj.spec.ID)
	}
	obj.behaviors = [behaviorKindCount]Behavior{}

	for _, o := range r.observers {
		o.ObjectDestroyed(obj)
	}
	r.log.Debug("object destroyed", "id", id)
	return true
}

// Clear destroys every object and starts a new id epoch.
func (r *Registry) Clear() int {
	ids := r.IDs()
	for _, id := range slices.Backward(ids) {
		r.Destroy(id)
	}
	r.epoch++
	r.seq = 0
	return len(ids)
}

func (r *Registry) Get(id ObjectID) (*SceneObject, bool) {
	return r.objects.Get(id)
}

// Lookup resolves an external id given in an ObjectSpec.
func (r *Registry) Lookup(externalID string) (*SceneObject, bool) {
	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, false
	}
	return r.objects.Get(id)
}

// Resolve finds an object by external id first and then by its "epoch:seq" form.
func (r *Registry) Resolve(ref string) (*SceneObject, bool) {
	if obj, ok := r.Lookup(ref); ok {
		return obj, true
	}
	id, err := ParseObjectID(ref)
	if err != nil {
		return nil, false
	}
	return r.objects.Get(id)
}

// All iterates live objects in insertion order.
func (r *Registry) All() iter.Seq[*SceneObject] {
	return func(yield func(*SceneObject) bool) {
		for _, obj := range r.order {
			if !yield(obj) {
				return
			}
		}
	}
}

// IDs returns the ids of live objects in insertion order.
func (r *Registry) IDs() []ObjectID {
	ids := make([]ObjectID, len(r.order))
	for i, obj := range r.order {
		ids[i] = obj.id
	}
	return ids
}

func (r *Registry) snapshot() []*SceneObject {
	return slices.Clone(r.order)
}

// PhysicsPose returns the body state of a live object.
func (r *Registry) PhysicsPose(id ObjectID) (PhysicsPose, bool) {
	obj, ok := r.objects.Get(id)
	if !ok {
		return PhysicsPose{}, false
	}
	return obj.PhysicsPose(), true
}

// Bounds returns the visual bounds of a live object.
func (r *Registry) Bounds(id ObjectID) (lo, hi mgl64.Vec3, ok bool) {
	obj, ok := r.objects.Get(id)
	if !ok {
		return lo, hi, false
	}
	lo, hi = obj.Bounds()
	return lo, hi, true
}

// SetAuthority hands an object's pose to the physics world or takes it away.
// Becoming kinematic zeroes the body's velocity.
func (r *Registry) SetAuthority(obj *SceneObject, a Authority) error {
	t := physics.BodyDynamic
	if a == Kinematic {
		t = physics.BodyKinematic
	}
	if err := r.world.SetType(obj.body.ID(), t); err != nil {
		return &ObjectError{Op: "authority", ID: obj.id, Err: err}
	}
	obj.authority = a
	return nil
}

// SetKinematicPose writes a pose into both the visual and the body of an object.
func (r *Registry) SetKinematicPose(obj *SceneObject, position mgl64.Vec3, rotation mgl64.Quat) error {
	if !finite(position) {
		return &ObjectError{Op: "pose", ID: obj.id, Err: ErrNonFinitePose}
	}
	if err := r.world.SetPose(obj.body.ID(), position, rotation); err != nil {
		return &ObjectError{Op: "pose", ID: obj.id, Err: err}
	}
	obj.Visual.Position = obj.body.Position
	obj.Visual.Rotation = obj.body.Orientation
	obj.synced = obj.body.Orientation
	return nil
}

// SetMaterialTag moves an object onto another contact material tag.
func (r *Registry) SetMaterialTag(obj *SceneObject, tag string) error {
	if err := r.world.SetMaterial(obj.body.ID(), tag); err != nil {
		return &ObjectError{Op: "material", ID: obj.id, Err: err}
	}
	obj.materialTag = tag
	return nil
}

// Sync copies the physics pose of every dynamic object into its visual pose.
func (r *Registry) Sync() {
	for _, obj := range r.order {
		if obj.authority != Dynamic {
			continue
		}
		obj.Visual.Position = obj.body.Position
		obj.Visual.Rotation = obj.body.Orientation
		obj.synced = obj.body.Orientation
	}
}
