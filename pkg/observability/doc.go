/*
Package observability provides tools for monitoring the rewind engine.

Metrics turns history movements into Prometheus series and plugs into a
machine through domain.LifecycleHooks. LogHooks does the same for a
structured logger.
*/
package observability
