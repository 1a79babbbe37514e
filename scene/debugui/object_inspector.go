package debugui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/scene"
)

func NewObjectInspectorWindow() ObjectInspectorWindow {
	return ObjectInspectorWindow{kick: 3}
}

func (oi *ObjectInspectorWindow) Render(registry *scene.Registry, queue *scene.Queue, selected scene.ObjectID) {
	if !imgui.BeginV("Object Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	obj, ok := registry.Get(selected)
	if !ok {
		oi.selected = 0
		imgui.Text("No object selected")
		imgui.End()
		return
	}
	if oi.selected != selected {
		oi.load(registry, obj)
	}
	target := obj.ID().String()
	pose := obj.PhysicsPose()

	imgui.Text(fmt.Sprintf("Object: %s %q", obj.ID(), obj.ExternalID()))
	imgui.Text(fmt.Sprintf("Kind: %s  Mass: %.4f kg", obj.Kind(), obj.Mass()))
	imgui.Text(fmt.Sprintf("Material: %s (base %s)", obj.MaterialTag(), obj.BaseTag()))
	imgui.Text(fmt.Sprintf("Authority: %s", obj.Authority()))
	imgui.Separator()

	if imgui.TreeNodeStr("Physics Pose") {
		imgui.Text("Position: " + formatVec(pose.Position))
		imgui.Text("Velocity: " + formatVec(pose.LinearVelocity))
		imgui.Text("Angular: " + formatVec(pose.AngularVelocity))
		imgui.Text(fmt.Sprintf("Orientation: %.3f %s", pose.Orientation.W, formatVec(pose.Orientation.V)))
		imgui.TreePop()
	}
	if imgui.TreeNodeStr("Visual Pose") {
		imgui.Text("Position: " + formatVec(obj.Visual.Position))
		imgui.Text(fmt.Sprintf("Scale: %.3f", obj.Visual.Scale))
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Appearance") {
		imgui.SetNextItemWidth(150)
		imgui.InputTextWithHint("##color", "#rrggbb or name", &oi.color, imgui.InputTextFlagsNone, nil)
		imgui.SameLine()
		if imgui.Button("Apply Color") {
			queue.Submit(scene.ModifyProperty{Target: target, Property: scene.PropertyColor, Value: oi.color}, nil)
		}
		if floatInput("Scale", &oi.scale) {
			queue.Submit(scene.ModifyProperty{Target: target, Property: scene.PropertyScale, Value: float64(oi.scale)}, nil)
		}
		if floatInput("Opacity", &oi.opacity) {
			queue.Submit(scene.ModifyProperty{Target: target, Property: scene.PropertyOpacity, Value: float64(oi.opacity)}, nil)
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Ground Contact") {
		if floatInput("Restitution", &oi.restitution) {
			queue.Submit(scene.SetRestitution{Target: target, Value: float64(oi.restitution)}, nil)
		}
		if floatInput("Friction", &oi.friction) {
			queue.Submit(scene.SetFriction{Target: target, Value: float64(oi.friction)}, nil)
		}
		imgui.TreePop()
	}

	imgui.Separator()
	floatInput("Kick Speed", &oi.kick)
	if imgui.Button("Kick") {
		up := mgl64.Vec3{0, 1, 0}.Mul(obj.Mass() * float64(oi.kick))
		queue.Submit(scene.ApplyImpulse{Target: target, Vector: up}, nil)
	}
	imgui.SameLine()
	if imgui.Button("Keep Bouncing") {
		queue.Submit(scene.KeepBouncing{Target: target, Speed: float64(oi.kick)}, nil)
	}
	imgui.SameLine()
	if imgui.Button("Remove") {
		queue.Submit(scene.RemoveObject{Target: target}, nil)
	}

	behaviors := obj.Behaviors()
	if imgui.TreeNodeStr(fmt.Sprintf("Behaviors (%d)", len(behaviors))) {
		for _, b := range behaviors {
			kind := b.Kind()
			if imgui.TreeNodeStr(kind.String()) {
				renderFields(b)
				if imgui.Button("Clear##" + kind.String()) {
					queue.Submit(scene.ClearBehavior{Target: target, Kind: kind}, nil)
				}
				imgui.TreePop()
			}
		}
		imgui.TreePop()
	}

	imgui.End()
}

// load refreshes the edit buffers from obj.
func (oi *ObjectInspectorWindow) load(registry *scene.Registry, obj *scene.SceneObject) {
	world := registry.World()
	m := world.ContactMaterial(obj.MaterialTag(), world.Ground().Tag)
	oi.selected = obj.ID()
	oi.color = scene.FormatColor(obj.Appearance.Color)
	oi.scale = float32(obj.Visual.Scale)
	oi.opacity = float32(obj.Appearance.Opacity)
	oi.restitution = float32(m.Restitution)
	oi.friction = float32(m.Friction)
}

func floatInput(label string, v *float32) bool {
	imgui.Text(label + ":")
	imgui.SameLine()
	imgui.SetNextItemWidth(150)
	return imgui.InputFloat("##"+label, v)
}

// renderFields shows the exported fields of a behavior read-only.
func renderFields(b scene.Behavior) {
	for _, f := range describeFields(b) {
		imgui.Text(f.Name + ": " + f.Value)
	}
}
