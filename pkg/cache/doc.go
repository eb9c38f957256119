// Package cache provides plan cache implementations of the engine.PlanCache
// contract: a bounded in-memory LRU cache for per-process reuse, and a
// SQLite-backed store for plan decisions that must survive restarts. Both
// are safe for concurrent use; the plan cache is the only state shared
// across query executions.
package cache
