/*
Package dsl provides the fluent builder used to assemble experiments.

A Builder keeps a stack of open scopes. Append adds an action after the current cursor
of the innermost scope; Loop, IfThen, NewThread and Fork open nested scopes that Close
wires back into the graph (loop-back, branch merge, concurrent join). Build seals the
chain with END and hands every action the finished Experiment before anything runs.

Example usage:

	exp, err := dsl.New("restart-and-measure").
		Append(actions.Restart(cat, runner, "dvdstore")).
		Loop(3).
			Append(actions.Sleep(10 * time.Second)).
			IfThen("warm", isWarm).
				Append(measure).
			Else().
				Append(warmUp).
			Close().
		Close().
		NewThread().Append(probeA).
		NewThread().Append(probeB).
		Close().
		Build()

Errors are sticky: the first misuse is remembered, later calls become no-ops and Build
returns the error.
*/
package dsl
