// Package ebiten provides the Dear ImGui backend the debug windows draw through when the host runs on Ebiten.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/objectlab/scene/debugui"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend and the inspector it draws.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
	Inspector *debugui.Inspector
}

// NewImguiBackend creates the backend window. The imgui.ini file is disabled.
func NewImguiBackend(title string, width, height int, inspector *debugui.Inspector) *ImguiBackend {
	backend := ebitenbackend.NewEbitenBackend()
	backend.CreateWindow(title, width, height)
	imgui.CurrentIO().SetIniFilename("")
	return &ImguiBackend{EbitenBackend: backend, Inspector: inspector}
}

// Frame runs one ImGui frame around the inspector windows. Call it from ebiten's Update.
func (b *ImguiBackend) Frame() {
	b.BeginFrame()
	b.Inspector.Render()
	b.EndFrame()
}

// WantsPointer reports whether the last frame's windows captured the mouse.
func (b *ImguiBackend) WantsPointer() bool {
	return b.Inspector.InputState().WantCaptureMouse
}
