package ports

import (
	"context"
	"time"
)

// Command is a shell command line to execute.
type Command struct {
	// Name labels the command in logs and errors.
	Name string
	Line string
	// Env is exported to the command, keys upper-cased and prefixed by the runner.
	Env map[string]any
}

// CommandResult is the outcome of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	// DryRun is set when the command was only logged.
	DryRun bool
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	// Run executes cmd and waits for it. A command exiting with a non-zero status
	// returns an error together with its result.
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}
