package scene

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Command is a request for the Executor. Every command serialises as a JSON object carrying a "type" field.
type Command interface {
	CommandType() string
}

const (
	TypeCreateObject   = "create_object"
	TypeRemoveObject   = "remove_object"
	TypeClearScene     = "clear_scene"
	TypeSetRestitution = "set_restitution"
	TypeSetFriction    = "set_friction"
	TypeApplyImpulse   = "apply_impulse"
	TypeApplyForce     = "apply_force"
	TypeKeepBouncing   = "keep_bouncing"
	TypeAnimate        = "animate"
	TypeModifyProperty = "modify_property"
	TypeClearBehavior  = "clear_behavior"
)

// CreateObject adds objects, or with Replace swaps the whole scene for them.
type CreateObject struct {
	Objects []ObjectSpec `json:"objects" yaml:"objects"`
	Replace bool         `json:"replace,omitempty" yaml:"replace,omitempty"`
}

type RemoveObject struct {
	Target string `json:"target" yaml:"target"`
}

type ClearScene struct{}

type SetRestitution struct {
	Target string  `json:"target" yaml:"target"`
	Value  float64 `json:"value" yaml:"value"`
}

type SetFriction struct {
	Target string  `json:"target" yaml:"target"`
	Value  float64 `json:"value" yaml:"value"`
}

// ApplyImpulse changes the target's velocity once by Vector divided by its mass.
type ApplyImpulse struct {
	Target string     `json:"target" yaml:"target"`
	Vector mgl64.Vec3 `json:"vector" yaml:"vector"`
}

// ApplyForce pushes the target on every step until a ClearBehavior for the force kind.
type ApplyForce struct {
	Target string     `json:"target" yaml:"target"`
	Vector mgl64.Vec3 `json:"vector" yaml:"vector"`
}

// KeepBouncing kicks the target upwards at Speed whenever it comes to rest on the ground.
type KeepBouncing struct {
	Target string  `json:"target" yaml:"target"`
	Speed  float64 `json:"speed" yaml:"speed"`
}

type RotationParams struct {
	Axis  mgl64.Vec3 `json:"axis,omitempty" yaml:"axis,omitempty"`
	Speed float64    `json:"speed" yaml:"speed"`
}

type OscillationParams struct {
	Amplitude float64    `json:"amplitude" yaml:"amplitude"`
	Frequency float64    `json:"frequency" yaml:"frequency"`
	Axis      mgl64.Vec3 `json:"axis,omitempty" yaml:"axis,omitempty"`
}

// Animate attaches exactly one of a rotation or an oscillation to the target.
type Animate struct {
	Target    string             `json:"target" yaml:"target"`
	Rotation  *RotationParams    `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Oscillate *OscillationParams `json:"oscillate,omitempty" yaml:"oscillate,omitempty"`
}

// Property names a visual property ModifyProperty can change.
type Property string

const (
	PropertyColor   Property = "color"
	PropertyScale   Property = "scale"
	PropertyOpacity Property = "opacity"
)

// ModifyProperty changes one visual property. Value is a color string for PropertyColor and a number otherwise.
type ModifyProperty struct {
	Target   string   `json:"target" yaml:"target"`
	Property Property `json:"property" yaml:"property"`
	Value    any      `json:"value" yaml:"value"`
}

type ClearBehavior struct {
	Target string       `json:"target" yaml:"target"`
	Kind   BehaviorKind `json:"kind" yaml:"kind"`
}

func (CreateObject) CommandType() string   { return TypeCreateObject }
func (RemoveObject) CommandType() string   { return TypeRemoveObject }
func (ClearScene) CommandType() string     { return TypeClearScene }
func (SetRestitution) CommandType() string { return TypeSetRestitution }
func (SetFriction) CommandType() string    { return TypeSetFriction }
func (ApplyImpulse) CommandType() string   { return TypeApplyImpulse }
func (ApplyForce) CommandType() string     { return TypeApplyForce }
func (KeepBouncing) CommandType() string   { return TypeKeepBouncing }
func (Animate) CommandType() string        { return TypeAnimate }
func (ModifyProperty) CommandType() string { return TypeModifyProperty }
func (ClearBehavior) CommandType() string  { return TypeClearBehavior }

var commandFactories = map[string]func() Command{
	TypeCreateObject:   func() Command { return &CreateObject{} },
	TypeRemoveObject:   func() Command { return &RemoveObject{} },
	TypeClearScene:     func() Command { return &ClearScene{} },
	TypeSetRestitution: func() Command { return &SetRestitution{} },
	TypeSetFriction:    func() Command { return &SetFriction{} },
	TypeApplyImpulse:   func() Command { return &ApplyImpulse{} },
	TypeApplyForce:     func() Command { return &ApplyForce{} },
	TypeKeepBouncing:   func() Command { return &KeepBouncing{} },
	TypeAnimate:        func() Command { return &Animate{} },
	TypeModifyProperty: func() Command { return &ModifyProperty{} },
	TypeClearBehavior:  func() Command { return &ClearBehavior{} },
}

// EncodeCommand serialises cmd as a JSON object with its type in the "type" field.
func EncodeCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.CommandType(), err)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	typ, _ := json.Marshal(cmd.CommandType())
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// DecodeCommand parses a JSON command envelope. Unknown fields are ignored.
// The returned command is a value, not a pointer.
func DecodeCommand(data []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	factory, ok := commandFactories[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, envelope.Type)
	}
	cmd := factory()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, envelope.Type, err)
	}
	return deref(cmd), nil
}

func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *CreateObject:
		return *c
	case *RemoveObject:
		return *c
	case *ClearScene:
		return *c
	case *SetRestitution:
		return *c
	case *SetFriction:
		return *c
	case *ApplyImpulse:
		return *c
	case *ApplyForce:
		return *c
	case *KeepBouncing:
		return *c
	case *Animate:
		return *c
	case *ModifyProperty:
		return *c
	case *ClearBehavior:
		return *c
	}
	return cmd
}

// Result is the outcome of one executed command.
type Result struct {
	Type    string
	Created []ObjectID
	Err     error
}

func (r Result) OK() bool { return r.Err == nil }

func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string     `json:"type"`
		OK      bool       `json:"ok"`
		Created []ObjectID `json:"created,omitempty"`
		Error   string     `json:"error,omitempty"`
	}{Type: r.Type, OK: r.OK(), Created: r.Created}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
