// Command objectlab hosts the object engine: an interactive viewer, a headless scenario runner and a validator
// for configuration and scenario files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/plus3/objectlab/config"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configFile string
	logLevel   string
}

func (g *globalOptions) loadConfig() (*config.Config, error) {
	if g.configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(g.configFile)
}

func (g *globalOptions) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(g.logLevel))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "objectlab",
		Short:         "real-time physics object lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(
		newViewCommand(g),
		newRunCommand(g),
		newValidateCommand(g),
		newPresetsCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newValidateCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario.yaml...]",
		Short: "check the config and scenario files without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.loadConfig(); err != nil {
				return err
			}
			if g.configFile != "" {
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ ")+g.configFile)
			}
			var failed int
			for _, path := range args {
				s, err := config.LoadScenario(path)
				if err != nil {
					failed++
					fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("✗ ")+err.Error())
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s %s\n", okStyle.Render("✓ "), path,
					dimStyle.Render(fmt.Sprintf("(%d commands, %d cues, ends %s)", len(s.Commands), len(s.Timeline), s.End())))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list the built-in contact material presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			presets := config.Presets()
			for _, name := range config.PresetNames() {
				m := presets[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name,
					dimStyle.Render(fmt.Sprintf("restitution %.2f  friction %.2f", m.Restitution, m.Friction)))
			}
		},
	}
}
