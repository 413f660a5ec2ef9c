/*
Package ports defines the driven ports (interfaces) used by concrete actions.

These interfaces decouple actions from the infrastructure they touch, so an experiment
can restart a real service, run in dry-run mode or coordinate through Redis without
changing its graph.

# Key Interfaces

  - CommandRunner: Runs shell command lines, such as the restart command of an application.
  - Locker: Serializes work on one key, such as an application, either between the
    threads of one process or between hosts sharing a Redis server.
*/
package ports
