package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/objectlab/scene"
)

func NewPerformanceStatsWindow(historyFrames int) PerformanceStatsWindow {
	return PerformanceStatsWindow{
		historyFrames: historyFrames,
		frameHistory:  make([]float32, historyFrames),
		frameIndex:    0,
	}
}

func (ps *PerformanceStatsWindow) Render(loop *scene.Loop, deltaTime float32) {
	if !imgui.BeginV("Loop Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ps.record(deltaTime)

	stats := loop.Stats()
	world := loop.Registry().World()
	step := world.Stats()

	imgui.Text(fmt.Sprintf("Objects: %d  Bodies: %d", loop.Registry().Len(), world.Len()))
	imgui.Text(fmt.Sprintf("Sim Time: %s", stats.SimTime.Round(time.Millisecond)))
	imgui.Text(fmt.Sprintf("Frames: %d  Steps: %d", stats.Frames, stats.Steps))
	imgui.Text(fmt.Sprintf("Commands: %d  Failures: %d  Destroyed: %d", stats.Commands, stats.Failures, stats.Destroyed))
	imgui.Text(fmt.Sprintf("Dropped Time: %s", stats.DroppedTime.Round(time.Millisecond)))
	imgui.Text(fmt.Sprintf("Frame Cost: last %s avg %s max %s", stats.LastDuration, stats.AvgDuration, stats.MaxDuration))
	if stats.LastError != "" {
		imgui.Text("Last Error: " + stats.LastError)
	}

	avg := ps.average()
	if avg > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avg, 1000.0/avg))
	}

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##frametime", &ps.frameHistory[0], int32(len(ps.frameHistory)))

	if imgui.TreeNodeStr("Last Step") {
		imgui.BulletText(fmt.Sprintf("Dynamic bodies integrated: %d", step.IntegratedDyn))
		imgui.BulletText(fmt.Sprintf("Broadphase pairs: %d", step.BroadPairs))
		imgui.BulletText(fmt.Sprintf("Ground hits: %d", step.GroundHits))
		imgui.BulletText(fmt.Sprintf("Body contacts: %d", step.BodyContacts))
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Systems") {
		systemTable("StepSystemsTable", loop.StepStats())
		systemTable("PresentSystemsTable", loop.PresentStats())
		imgui.TreePop()
	}

	imgui.End()
}

func systemTable(id string, stats scene.SchedulerStats) {
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV(id, 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("System")
		imgui.TableSetupColumn("Runs")
		imgui.TableSetupColumn("Last")
		imgui.TableSetupColumn("Avg")
		imgui.TableSetupColumn("Max")
		imgui.TableHeadersRow()

		for _, sys := range stats.Systems {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(sys.Name)
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", sys.ExecutionCount))
			imgui.TableNextColumn()
			imgui.Text(sys.LastDuration.String())
			imgui.TableNextColumn()
			imgui.Text(sys.AvgDuration.String())
			imgui.TableNextColumn()
			imgui.Text(sys.MaxDuration.String())
		}

		imgui.EndTable()
	}
}

func (ps *PerformanceStatsWindow) record(deltaTime float32) {
	ps.frameHistory[ps.frameIndex] = deltaTime * 1000.0
	ps.frameIndex = (ps.frameIndex + 1) % ps.historyFrames
}

func (ps *PerformanceStatsWindow) average() float32 {
	var sum float32
	for _, ft := range ps.frameHistory {
		sum += ft
	}
	return sum / float32(ps.historyFrames)
}

type FrameTimer struct {
	lastFrameTime time.Time
	now           func() time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
		now:           time.Now,
	}
}

func (ft *FrameTimer) GetDeltaTime() float32 {
	now := ft.now()
	delta := float32(now.Sub(ft.lastFrameTime).Seconds())
	ft.lastFrameTime = now
	return delta
}
