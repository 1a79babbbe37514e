// Package debugui provides Dear ImGui inspector windows for a running scene.
// Every edit goes through the loop's command queue, so the windows are safe to draw from ebiten's Update.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/objectlab/scene"
)

// ImguiInputState tracks whether Dear ImGui is consuming mouse or keyboard input.
// Hosts check it before forwarding pointer events to the interaction controller.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// Inspector bundles the debug windows of one scene.
type Inspector struct {
	loop  *scene.Loop
	timer *FrameTimer
	input ImguiInputState

	Browser     ObjectBrowserWindow
	Object      ObjectInspectorWindow
	Contacts    ContactTableWindow
	Performance PerformanceStatsWindow
}

func New(loop *scene.Loop) *Inspector {
	return &Inspector{
		loop:        loop,
		timer:       NewFrameTimer(),
		Browser:     NewObjectBrowserWindow(100),
		Object:      NewObjectInspectorWindow(),
		Contacts:    NewContactTableWindow(),
		Performance: NewPerformanceStatsWindow(120),
	}
}

// Render draws every window. Call it between the backend's BeginFrame and EndFrame.
func (in *Inspector) Render() {
	io := imgui.CurrentIO()
	in.input.WantCaptureMouse = io.WantCaptureMouse()
	in.input.WantCaptureKeyboard = io.WantCaptureKeyboard()

	registry := in.loop.Registry()
	in.Browser.Render(registry)
	in.Object.Render(registry, in.loop.Queue(), in.Browser.Selected())
	in.Contacts.Render(registry.World())
	in.Performance.Render(in.loop, in.timer.GetDeltaTime())
}

// Select focuses the browser and the inspector on id, for example after a click in the viewport.
func (in *Inspector) Select(id scene.ObjectID) {
	in.Browser.selected = id
}

func (in *Inspector) InputState() ImguiInputState { return in.input }
