// Package stage provides runnable plan-stage implementations of the
// engine.PlanRoot contract: an in-memory collection scan, a blocking sort, a
// limit wrapper, and a scripted queued stage for exercising the executor
// with predetermined outcome sequences.
package stage
