package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/plus3/objectlab/scene"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
)

// Report summarises one headless run.
type Report struct {
	// Configuration
	Scenario  string
	Duration  time.Duration
	FixedStep time.Duration

	// Results
	Frames    int64
	Steps     int64
	Commands  int64
	Failures  []string
	Objects   int
	WallTime  time.Duration
	FrameTime Stats

	// Track is the height trace of one object, sampled every frame.
	Track       string
	TrackHeight []float64
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Add(d time.Duration) {
	s.Samples = append(s.Samples, d)
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = slices.Min(s.Samples)
	s.Max = slices.Max(s.Samples)
	for _, sample := range s.Samples {
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

// Absorb copies the loop counters into the report.
func (r *Report) Absorb(stats scene.LoopStats, objects int) {
	r.Frames = stats.Frames
	r.Steps = stats.Steps
	r.Commands = stats.Commands
	r.Objects = objects
}

// Generate writes the styled report to w. plotWidth of zero leaves the height trace out.
func (r *Report) Generate(w io.Writer, plotWidth int) error {
	const reportTemplate = `{{label "scenario"}} {{.Scenario}}
{{label "sim time"}} {{.Duration}} in {{.Steps}} steps of {{.FixedStep}}
{{label "frames"}} {{.Frames}} ({{.WallTime | round}} wall)
{{label "frame time"}} avg {{.FrameTime.Avg}} min {{.FrameTime.Min}} max {{.FrameTime.Max}}
{{label "commands"}} {{.Commands}} executed, {{len .Failures}} failed
{{label "objects"}} {{.Objects}}`

	fm := template.FuncMap{
		"label": func(s string) string {
			return dimStyle.Render(fmt.Sprintf("%-11s", s))
		},
		"round": func(d time.Duration) time.Duration {
			return d.Round(time.Millisecond)
		},
	}
	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}
	var body strings.Builder
	if err := tmpl.Execute(&body, r); err != nil {
		return err
	}

	status := okStyle.Render("OK")
	if len(r.Failures) > 0 {
		status = failStyle.Render(fmt.Sprintf("%d FAILURES", len(r.Failures)))
	}

	sections := []string{
		titleStyle.Render("objectlab run") + "  " + status,
		panelStyle.Render(body.String()),
	}
	if len(r.Failures) > 0 {
		lines := make([]string, len(r.Failures))
		for i, f := range r.Failures {
			lines[i] = failStyle.Render("✗ ") + f
		}
		sections = append(sections, panelStyle.Render(strings.Join(lines, "\n")))
	}
	if plotWidth > 0 && len(r.TrackHeight) > 1 {
		chart := asciigraph.Plot(downsample(r.TrackHeight, plotWidth),
			asciigraph.Height(10),
			asciigraph.Caption(fmt.Sprintf("height of %s (m)", r.Track)),
			asciigraph.SeriesColors(asciigraph.Aqua),
		)
		sections = append(sections, chart)
	}

	_, err = fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, sections...))
	return err
}

// downsample keeps the peak of each bucket so bounces stay visible.
func downsample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := range width {
		lo := i * len(values) / width
		hi := max((i+1)*len(values)/width, lo+1)
		out[i] = slices.Max(values[lo:hi])
	}
	return out
}
