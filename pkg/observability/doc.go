/*
Package observability exports Prometheus metrics for experiment runs.

Metrics turns the engine's lifecycle events into counters, histograms and a gauge of
concurrent threads in flight. Register it on a prometheus.Registerer, pass Hooks() to the
engine and ObserveRun the outcome of every run.
*/
package observability
