package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/plus3/objectlab/config"
	"github.com/plus3/objectlab/scene"
	"github.com/spf13/cobra"
)

type runOptions struct {
	duration time.Duration
	track    string
	plot     int
	listen   string
	realtime bool
}

func newRunCommand(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a scenario headless and print a report",
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
			return runHeadless(cmd.Context(), g, opts, scenario)
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "time", 0, "simulated duration (default: the scenario's)")
	cmd.Flags().StringVar(&opts.track, "track", "", "object id whose height is traced")
	cmd.Flags().IntVar(&opts.plot, "plot", 0, "plot width of the height trace, 0 for none")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve the websocket command intake on this address")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "pace frames to wall time")
	return cmd
}

func runHeadless(ctx context.Context, g *globalOptions, opts *runOptions, scenario *config.Scenario) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	log := g.logger()
	s := newSession(cfg, log)

	report := &Report{Scenario: "(none)", FixedStep: cfg.Loop.FixedStep, Track: opts.track}
	var player *config.Player
	if scenario != nil {
		report.Scenario = scenario.Name
		player = config.NewPlayer(scenario, s.loop.Queue(), func(res scene.Result) {
			if res.Err != nil {
				report.Failures = append(report.Failures, res.Err.Error())
			}
		})
	}

	end := opts.duration
	if end <= 0 && scenario != nil {
		end = scenario.End()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if opts.listen != "" {
		intake := NewIntake(s.loop.Queue(), log)
		go func() {
			if err := intake.Listen(ctx, opts.listen); err != nil {
				log.Error("command intake stopped", "error", err)
			}
		}()
		// With an intake the run lasts until interrupted unless a duration was given.
		if opts.duration <= 0 {
			end = 0
		}
		opts.realtime = true
	} else if end <= 0 {
		return fmt.Errorf("%w: nothing to run, give a scenario or --time", config.ErrInvalidConfig)
	}

	step := cfg.Loop.FixedStep
	var ticker *time.Ticker
	if opts.realtime {
		ticker = time.NewTicker(step)
		defer ticker.Stop()
	}

	log.Info("run started", "scenario", report.Scenario, "until", end, "realtime", opts.realtime)
	start := time.Now()
	for end <= 0 || s.loop.SimTime() < end {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return finish(s, report, opts, start)
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			break
		}

		if player != nil {
			player.Advance(s.loop.SimTime())
		}
		frameStart := time.Now()
		frame := s.loop.Frame(step)
		report.FrameTime.Add(time.Since(frameStart))
		s.logFailures(frame)
		for _, err := range frame.Failures {
			report.Failures = appendUnique(report.Failures, err.Error())
		}

		if opts.track != "" {
			if obj, ok := s.registry.Resolve(opts.track); ok {
				report.TrackHeight = append(report.TrackHeight, obj.Visual.Position[1])
			}
		}
	}
	return finish(s, report, opts, start)
}

func finish(s *session, report *Report, opts *runOptions, start time.Time) error {
	report.WallTime = time.Since(start)
	report.Duration = s.loop.SimTime()
	report.FrameTime.Finalize()
	report.Absorb(s.loop.Stats(), s.registry.Len())
	s.log.Info("run finished", "sim_time", report.Duration, "frames", report.Frames, "failures", len(report.Failures))

	if err := report.Generate(os.Stdout, opts.plot); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d command failures", len(report.Failures))
	}
	return nil
}

// appendUnique skips a failure already reported by a command reply.
func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
