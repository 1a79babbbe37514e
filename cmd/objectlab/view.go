package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/objectlab/config"
	"github.com/plus3/objectlab/render"
	"github.com/plus3/objectlab/scene"
	"github.com/plus3/objectlab/scene/debugui"
	debugui_ebiten "github.com/plus3/objectlab/scene/debugui/ebiten"
	"github.com/spf13/cobra"
)

type viewOptions struct {
	debug  bool
	listen string
}

func newViewCommand(g *globalOptions) *cobra.Command {
	opts := &viewOptions{}
	cmd := &cobra.Command{
		Use:   "view [scenario.yaml]",
		Short: "open the interactive viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenario *config.Scenario
			if len(args) == 1 {
				s, err := config.LoadScenario(args[0])
				if err != nil {
					return err
				}
				scenario = s
			}
			return runViewer(cmd.Context(), g, opts, scenario)
		},
	}
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "show the ImGui inspector")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve the websocket command intake on this address")
	return cmd
}

// viewer is the ebiten.Game driving a session from the display refresh.
type viewer struct {
	session     *session
	interaction *scene.Interaction
	renderer    *render.Renderer
	player      *config.Player
	inspector   *debugui.Inspector
	imgui       *debugui_ebiten.ImguiBackend

	last     time.Time
	dragging bool
}

func runViewer(ctx context.Context, g *globalOptions, opts *viewOptions, scenario *config.Scenario) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	log := g.logger()
	s := newSession(cfg, log)

	w, h := cfg.Window.Width, cfg.Window.Height
	cam := cfg.NewCamera(float64(w), float64(h))
	v := &viewer{
		session:     s,
		interaction: scene.NewInteraction(s.registry, cam, cfg.InteractionConfig(), scene.WithLogger(log)),
		renderer:    render.New(cam, cfg.Physics.GroundHeight),
	}
	s.registry.Observe(v.renderer)
	s.loop.SetRenderer(v.renderer)

	if scenario != nil {
		v.player = config.NewPlayer(scenario, s.loop.Queue(), nil)
	}
	if opts.debug {
		v.inspector = debugui.New(s.loop)
		v.imgui = debugui_ebiten.NewImguiBackend(cfg.Window.Title, w, h, v.inspector)
	} else {
		ebiten.SetWindowSize(w, h)
		ebiten.SetWindowTitle(cfg.Window.Title)
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.listen != "" {
		intake := NewIntake(s.loop.Queue(), log)
		go func() {
			if err := intake.Listen(ctx, opts.listen); err != nil {
				log.Error("command intake stopped", "error", err)
			}
		}()
	}

	log.Info("viewer started", "width", w, "height", h, "debug", opts.debug)
	err = ebiten.RunGame(v)
	v.interaction.Abandon()
	return err
}

func (v *viewer) Update() error {
	now := time.Now()
	elapsed := time.Second / time.Duration(ebiten.TPS())
	if !v.last.IsZero() {
		elapsed = now.Sub(v.last)
	}
	v.last = now

	if v.imgui != nil {
		v.imgui.Frame()
	}
	v.handleKeys()
	v.handlePointer()

	if v.player != nil {
		v.player.Advance(v.session.loop.SimTime())
	}
	report := v.session.loop.Frame(elapsed)
	v.session.logFailures(report)

	id, ok := v.interaction.Hovered()
	v.renderer.SetHighlight(id, ok)
	return nil
}

func (v *viewer) handlePointer() {
	// The inspector keeps the pointer while it is over an ImGui window, except to finish a drag.
	if v.imgui != nil && v.imgui.WantsPointer() && !v.dragging {
		return
	}
	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx), float64(cy)

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		if id, ok := v.interaction.PointerDown(x, y); ok {
			v.dragging = true
			if v.inspector != nil {
				v.inspector.Select(id)
			}
		}
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		v.interaction.PointerUp()
		v.dragging = false
	default:
		v.interaction.PointerMove(x, y)
	}
}

func (v *viewer) handleKeys() {
	if v.imgui != nil && v.inspector.InputState().WantCaptureKeyboard {
		return
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		v.interaction.Abandon()
		v.dragging = false
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		if v.interaction.Config().Release == scene.ReleaseThrow {
			v.interaction.SetRelease(scene.ReleaseZero)
		} else {
			v.interaction.SetRelease(scene.ReleaseThrow)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		v.session.loop.Queue().Submit(scene.ClearScene{}, nil)
	}
}

func (v *viewer) Draw(screen *ebiten.Image) {
	v.renderer.Draw(screen)
	if v.imgui != nil {
		v.imgui.Draw(screen)
		return
	}
	stats := v.session.loop.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("objects %d  sim %s  TPS %.0f  release %s  [T] toggle throw",
		v.session.registry.Len(), stats.SimTime.Round(time.Millisecond), ebiten.ActualTPS(), v.interaction.Config().Release))
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	v.interaction.Camera().Resize(float64(outsideWidth), float64(outsideHeight))
	if v.imgui != nil {
		v.imgui.Layout(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
