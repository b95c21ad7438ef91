package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/shobhitka/procmond/internal/supervisor"
)

// ToProgramSpecs converts the roster into the shape internal/supervisor
// consumes, in deterministic (name-sorted) order so boot-up logs and the
// TUI's initial roster are reproducible across runs of the same config.
func (c *Config) ToProgramSpecs() ([]supervisor.ProgramSpec, error) {
	names := make([]string, 0, len(c.Programs))
	for name := range c.Programs {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]supervisor.ProgramSpec, 0, len(names))
	for _, name := range names {
		prog := c.Programs[name]
		sig, err := resolveSignal(prog.TerminateSignal)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", name, err)
		}

		spec := supervisor.ProgramSpec{
			Name:             name,
			Policy:           supervisor.Policy(prog.Policy),
			Env:              prog.Env,
			ShutdownDeadline: time.Duration(prog.ShutdownDeadline) * time.Second,
			TerminateSignal:  int(sig),
		}
		if len(prog.Command) > 0 {
			spec.Command = prog.Command[0]
			spec.Argv = prog.Command[1:]
		}
		specs = append(specs, spec)
	}

	return specs, nil
}
