package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/continuity/pkg/ports"
)

// EnvPrefix prefixes every variable exported from ports.Command.Env.
const EnvPrefix = "CONTINUITY_ARG_"

const waitDelay = time.Second

// ErrCommandFailed is wrapped by errors of commands exiting with a non-zero status.
var ErrCommandFailed = errors.New("command failed")

// Runner implements ports.CommandRunner by handing command lines to a shell.
type Runner struct {
	shell   string
	baseDir string
	dryRun  bool
	logger  *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithShell sets the shell invoked as "<shell> -c <line>" (default: sh).
func WithShell(shell string) RunnerOption {
	return func(r *Runner) {
		r.shell = shell
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithDryRun makes the runner log commands instead of executing them.
func WithDryRun(dryRun bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithLogger sets the logger used to report executed commands.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		shell:  "sh",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd.Line through the shell and captures its output.
func (r *Runner) Run(ctx context.Context, cmd ports.Command) (ports.CommandResult, error) {
	if strings.TrimSpace(cmd.Line) == "" {
		return ports.CommandResult{}, fmt.Errorf("%s: empty command line", cmd.Name)
	}

	if r.dryRun {
		r.logger.Info("dry run: command skipped", "command", cmd.Name, "line", cmd.Line)
		return ports.CommandResult{DryRun: true}, nil
	}

	c := exec.CommandContext(ctx, r.shell, "-c", cmd.Line)
	c.Dir = r.baseDir
	// Children of the shell may keep the output pipes open after a kill.
	c.WaitDelay = waitDelay
	c.Env = append(c.Environ(), environ(cmd.Env)...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	started := time.Now()
	err := c.Run()
	result := ports.CommandResult{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(started),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Warn("command failed", "command", cmd.Name, "exit_code", result.ExitCode, "stderr", result.Stderr)
			return result, fmt.Errorf("%s: %w: exit status %d: %s", cmd.Name, ErrCommandFailed, result.ExitCode, result.Stderr)
		}
		return result, fmt.Errorf("%s: failed to start: %w", cmd.Name, err)
	}

	r.logger.Debug("command finished", "command", cmd.Name, "duration", result.Duration)
	return result, nil
}

// environ serializes args as KEY=value pairs: primitives verbatim, anything else as JSON.
func environ(args map[string]any) []string {
	env := make([]string, 0, len(args))
	for k, v := range args {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if raw, err := json.Marshal(v); err == nil {
				val = string(raw)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+val)
	}
	return env
}
