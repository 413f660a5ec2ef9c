package actions

import (
	"context"
	"fmt"

	"github.com/aretw0/continuity/pkg/catalogue"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/ports"
)

// RestartKey is the context key under which a restart action publishes its command.
func RestartKey(app string) string {
	return "app." + app + ".restart"
}

// CheckoutKey is the context key under which a checkout action publishes its command.
func CheckoutKey(app string) string {
	return "app." + app + ".checkout"
}

type operation int

const (
	opRestart operation = iota
	opCheckout
)

func (o operation) String() string {
	if o == opCheckout {
		return "checkout"
	}
	return "restart"
}

// application restarts a catalogue application or checks out one of its versions.
// The command is resolved once, when the experiment is built.
type application struct {
	apps    *catalogue.Catalogue
	runner  ports.CommandRunner
	key     string
	op      operation
	version string

	line string
	err  error
}

// Restart restarts the application registered under key.
func Restart(apps *catalogue.Catalogue, runner ports.CommandRunner, key string) graph.Action {
	return &application{apps: apps, runner: runner, key: key, op: opRestart}
}

// Checkout checks out version of the application registered under key. The version
// is exported to the command as CONTINUITY_ARG_VERSION.
func Checkout(apps *catalogue.Catalogue, runner ports.CommandRunner, key, version string) graph.Action {
	return &application{apps: apps, runner: runner, key: key, op: opCheckout, version: version}
}

func (a *application) Name() string {
	if a.op == opCheckout {
		return fmt.Sprintf("checkout %s@%s", a.key, a.version)
	}
	return "restart " + a.key
}

// BypassExperiment resolves the command and publishes it in the experiment's Context,
// so that other actions and reports can see what will be run.
func (a *application) BypassExperiment(exp *graph.Experiment) {
	a.line, a.err = a.resolve()
	if a.err != nil {
		return
	}
	if a.op == opCheckout {
		exp.Context().Set(CheckoutKey(a.key), a.line)
	} else {
		exp.Context().Set(RestartKey(a.key), a.line)
	}
}

func (a *application) resolve() (string, error) {
	app, err := a.apps.Get(a.key)
	if err != nil {
		return "", err
	}
	if a.op == opCheckout {
		return app.Checkout()
	}
	return app.Restart()
}

// Execute fails the run when the application or its command is unknown, since no
// amount of retrying can fix the catalogue.
func (a *application) Execute(ctx context.Context, c *domain.Context) error {
	line, err := a.line, a.err
	if line == "" && err == nil {
		line, err = a.resolve()
	}
	if err != nil {
		return err
	}

	cmd := ports.Command{Name: a.Name(), Line: line}
	if a.op == opCheckout {
		cmd.Env = map[string]any{"version": a.version, "app": a.key}
	} else {
		cmd.Env = map[string]any{"app": a.key}
	}
	return run(ctx, a.runner, cmd, c, "")
}
