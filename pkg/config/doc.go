// Package config provides YAML configuration loading, validation, and live
// reload for the plan arena.
//
// # Overview
//
// Configuration is read from a single YAML file and validated with struct
// tags. Every knob has a default, so an empty file (or no file at all) yields
// a working configuration.
//
// # Components
//
// Config: The root configuration structure covering trial budgets, caching,
// logging, metrics, and tracing.
//
// Load: Reads and validates a YAML file, applying defaults for omitted fields.
//
// Watcher: Watches the configuration file with fsnotify and delivers validated
// reloads over a channel. Invalid edits are reported and the previous
// configuration stays in effect.
//
// # Usage Example
//
//	cfg, err := config.Load("arena.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := config.NewWatcher("arena.yaml", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	go func() {
//	    for cfg := range w.Updates() {
//	        applyTrialKnobs(cfg.Trial)
//	    }
//	}()
package config
