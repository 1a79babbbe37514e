package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/plus3/objectlab/scene"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted scene: commands applied up front and a timeline of commands keyed by simulated time.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`
	Commands    []Command     `yaml:"commands"`
	Timeline    []Cue         `yaml:"timeline,omitempty"`
}

// Cue fires Command once the simulation clock reaches At.
type Cue struct {
	At      time.Duration `yaml:"at"`
	Command Command       `yaml:"command"`
}

// Command carries a scene command through YAML using the same envelope as the JSON wire form.
type Command struct {
	scene.Command
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	cmd, err := scene.DecodeCommand(data)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	c.Command = cmd
	return nil
}

func (c Command) MarshalYAML() (any, error) {
	if c.Command == nil {
		return nil, fmt.Errorf("%w: empty command", scene.ErrUnknownCommand)
	}
	data, err := scene.EncodeCommand(c.Command)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes a scenario and orders its timeline by cue time.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	for i, cue := range s.Timeline {
		if cue.At < 0 {
			return nil, fmt.Errorf("%w: timeline[%d] at %v", ErrInvalidConfig, i, cue.At)
		}
		if cue.Command.Command == nil {
			return nil, fmt.Errorf("%w: timeline[%d] has no command", ErrInvalidConfig, i)
		}
	}
	slices.SortStableFunc(s.Timeline, func(a, b Cue) int {
		return cmp.Compare(a.At, b.At)
	})
	return &s, nil
}

func SaveScenario(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// End is when the scenario is over: its duration, or the last cue when no duration is set.
func (s *Scenario) End() time.Duration {
	if s.Duration > 0 {
		return s.Duration
	}
	if n := len(s.Timeline); n > 0 {
		return s.Timeline[n-1].At
	}
	return 0
}

// Player feeds a scenario into a command queue as simulated time advances.
type Player struct {
	scenario *Scenario
	queue    *scene.Queue
	reply    func(scene.Result)
	started  bool
	next     int
}

// NewPlayer returns a player submitting to queue. reply, if not nil, receives every result.
func NewPlayer(s *Scenario, queue *scene.Queue, reply func(scene.Result)) *Player {
	return &Player{scenario: s, queue: queue, reply: reply}
}

// Advance submits the initial commands on the first call and every cue due at simTime.
// It returns how many commands were submitted.
func (p *Player) Advance(simTime time.Duration) int {
	n := 0
	if !p.started {
		p.started = true
		for _, c := range p.scenario.Commands {
			p.queue.Submit(c.Command, p.reply)
			n++
		}
	}
	for p.next < len(p.scenario.Timeline) && p.scenario.Timeline[p.next].At <= simTime {
		p.queue.Submit(p.scenario.Timeline[p.next].Command.Command, p.reply)
		p.next++
		n++
	}
	return n
}

// Done reports whether every command has been submitted.
func (p *Player) Done() bool {
	return p.started && p.next == len(p.scenario.Timeline)
}
