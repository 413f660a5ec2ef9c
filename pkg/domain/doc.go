/*
Package domain contains the shared vocabulary of the continuity engine.

It defines the values that cross every layer of the system: the experiment Context
threaded through every visited element, the error taxonomy of construction and
execution, and the lifecycle events emitted while an experiment runs. The package is
kept free of graph and I/O concerns so that graph, builder, runtime and adapters can
all depend on it.

# Key Entities

  - Context: Ordered key/value store shared by every element of one experiment.
  - AbortError: Abort-class failure raised by an action and offered to the graph for recovery.
  - RunError: Unhandled failure surfaced to the caller of a run.
  - LifecycleHooks: Callbacks for logging, metrics and auditing of a run.
*/
package domain
