/*
Package graph defines the control-flow graph of an experiment.

An experiment is a chain of elements. Every element has exactly one successor once the
graph is sealed; the chain always ends in the END sentinel. Structured constructs are
represented by a head element whose Next decision is taken at visit time:

  - Leaf: holds an Action; its successor is fixed.
  - Loop: routes into its body a bounded number of times; the body's tail points back at the head.
  - Branch: follows the first arm whose Condition holds, or falls through to its Merge element.
  - Concurrent: forks one logical thread per entry point; all threads reconverge at a join Merge.
  - Merge: action-less element where branch arms or concurrent threads reconverge.
  - End: the unique terminal sentinel.

Decisions that change between visits (remaining loop iterations, the arm chosen by a branch,
retry attempts) live in a per-run State rather than in the elements, so a sealed Experiment is
read-only and can be executed more than once.

Graphs are normally assembled with package dsl and executed by the runtime engine.
*/
package graph
