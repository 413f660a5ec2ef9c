/*
Package continuity is a lightweight workflow engine for scripted experiments.

An experiment is a graph of elements built with a fluent builder: action leaves
executed in sequence, bounded loops, conditional branches and concurrent threads that
reconverge at a join. Every element shares one ordered key/value Context. A run walks
the graph from its first element until it reaches END on every thread of control.

# Aborts

An action that gives up returns an error built with Abort. The engine offers it to the
failing element first and then to every enclosing construct: a loop abandons the
current iteration, a leaf may skip or retry itself. An abort nobody handles, any other
error and context cancellation end the run with a *RunError.

# Usage

	exp, err := continuity.New("load-test").
		Append(prepare).
		Loop(3).
		Append(continuity.ActionFunc(measure)).
		Close().
		NewThread().
		Append(restartDatabase).
		NewThread().
		Append(restartFrontend).
		Close().
		Build()
	if err != nil {
		log.Fatal(err)
	}

	report, err := continuity.NewEngine(continuity.WithLogger(logger)).Execute(ctx, exp)

Concrete actions for applications of the catalogue (restart, version checkout, shell
commands, exclusive locks) live in package actions.
*/
package continuity
