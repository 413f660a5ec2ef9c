package actions

import (
	"context"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/ports"
)

// ShellOption configures a shell action.
type ShellOption func(*shell)

// SaveTo stores the trimmed stdout of the command under key.
func SaveTo(key string) ShellOption {
	return func(s *shell) {
		s.saveTo = key
	}
}

// WithEnv exports the values of the given context keys to the command.
func WithEnv(keys ...string) ShellOption {
	return func(s *shell) {
		s.env = append(s.env, keys...)
	}
}

type shell struct {
	runner ports.CommandRunner
	name   string
	line   string
	saveTo string
	env    []string
}

// Shell runs line through runner. A non-zero exit status is an abort-class failure;
// a command that cannot be started fails the run.
func Shell(runner ports.CommandRunner, name, line string, opts ...ShellOption) graph.Action {
	s := &shell{runner: runner, name: name, line: line}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *shell) Name() string { return s.name }

func (s *shell) Execute(ctx context.Context, c *domain.Context) error {
	cmd := ports.Command{Name: s.name, Line: s.line}
	if len(s.env) > 0 {
		cmd.Env = make(map[string]any, len(s.env))
		for _, k := range s.env {
			cmd.Env[k] = c.Get(k)
		}
	}
	return run(ctx, s.runner, cmd, c, s.saveTo)
}

func (s *shell) BypassExperiment(*graph.Experiment) {}

func run(ctx context.Context, runner ports.CommandRunner, cmd ports.Command, c *domain.Context, saveTo string) error {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() == nil && res.ExitCode > 0 {
			return domain.Abort(err)
		}
		return err
	}
	if saveTo != "" {
		c.Set(saveTo, res.Stdout)
	}
	return nil
}
