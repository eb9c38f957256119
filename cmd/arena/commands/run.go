package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/planarena/planarena/pkg/config"
	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/scorer"
	"github.com/planarena/planarena/pkg/stage"
	"github.com/planarena/planarena/pkg/telemetry"
	"github.com/planarena/planarena/pkg/workspace"
)

// scenario is the YAML description of one plan competition: a record set,
// a query shape, and the candidate plans to race.
type scenario struct {
	// Shape is the canonical query shape key.
	Shape string `yaml:"shape" validate:"required"`

	// Hinted marks the query as carrying an explicit plan hint, which
	// bypasses the plan cache.
	Hinted bool `yaml:"hinted"`

	// Limit is the query's result limit; zero means absent.
	Limit int64 `yaml:"limit"`

	// CachingMode overrides the configured commit policy for this run.
	CachingMode string `yaml:"caching_mode" validate:"omitempty,oneof=always sometimes never"`

	// Records is the in-memory record set the candidates scan.
	Records []stage.Record `yaml:"records"`

	// Generate synthesizes records instead of (or in addition to) Records.
	Generate *generateSpec `yaml:"generate"`

	// Candidates are the plans to race. At least one is required; a
	// competition needs two or more to be interesting.
	Candidates []candidateSpec `yaml:"candidates" validate:"required,min=1,dive"`
}

// generateSpec synthesizes a record set: Count records with a sequential
// "seq" field and a "group" field cycling through Cardinality values.
type generateSpec struct {
	Count       int `yaml:"count" validate:"gt=0"`
	Cardinality int `yaml:"cardinality" validate:"gt=0"`
}

// candidateSpec describes one candidate plan as a scan with an optional
// predicate, sort, and limit.
type candidateSpec struct {
	// Name is the plan summary shown in output and stored in the cache.
	Name string `yaml:"name" validate:"required"`

	// Field and Equals form the scan predicate; an empty Field matches
	// every record.
	Field  string      `yaml:"field"`
	Equals interface{} `yaml:"equals"`

	// Index names the access path for cache metadata; empty means a
	// collection scan.
	Index string `yaml:"index"`

	// SortField, when set, wraps the scan in a blocking sort on that field.
	SortField string `yaml:"sort_field"`

	// Limit, when positive, caps this plan's output.
	Limit int `yaml:"limit"`
}

func newRunCommand() *cobra.Command {
	var cachingMode string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Race candidate plans for a scenario",
		Long: `Load a competition scenario, run the trial round-robin until the work
or result budget is hit, rank the candidates, optionally commit the winner
to the plan cache, and stream the winner's results.`,
		Example: `  # Race the plans in a scenario
  arena run scenarios/status-query.yaml

  # Force a commit policy for this run
  arena run scenarios/status-query.yaml --caching-mode always

  # Machine-readable output
  arena run scenarios/status-query.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cachingMode != "" {
				cfg.Trial.CachingMode = cachingMode
			}
			return runScenario(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&cachingMode, "caching-mode", "", "override cache commit policy (always, sometimes, never)")

	return cmd
}

func runScenario(ctx context.Context, cfg *config.Config, path string) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}
	if sc.CachingMode != "" {
		cfg.Trial.CachingMode = sc.CachingMode
	}

	tel, err := telemetry.NewTelemetry(telemetryConfig(cfg))
	if err != nil {
		return err
	}
	defer tel.Shutdown(context.Background())
	if err := tel.StartMetricsServer(); err != nil {
		return err
	}
	ctx = tel.WithContext(ctx)

	planCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	records := sc.records()
	shape := engine.NewQueryShape(sc.Shape)
	shape.Hinted = sc.Hinted

	mp := engine.New(engine.Options{
		Shape:              shape,
		Mode:               engine.CachingMode(cfg.Trial.CachingMode),
		WorkFloor:          cfg.Trial.WorkFloor,
		CollectionFraction: cfg.Trial.CollectionFraction,
		MaxResults:         cfg.Trial.MaxResults,
		CollectionRecords:  int64(len(records)),
		Limit:              sc.Limit,
		Scorer:             scorer.New(),
		Cache:              planCache,
		Logger:             log.Logger,
	})
	defer mp.Close()

	workspaces := make([]*workspace.Workspace, 0, len(sc.Candidates))
	for _, spec := range sc.Candidates {
		ws := workspace.New()
		workspaces = append(workspaces, ws)
		mp.AddCandidate(spec.solution(), spec.buildRoot(ws, records), ws)
	}

	ctx = telemetry.WithTrialContext(ctx, mp.Snapshot().TrialID, shape.Key,
		cfg.Trial.CachingMode, len(sc.Candidates))

	trialErr := mp.PickBest(ctx, engine.NoopYieldPolicy{})
	snapshot := mp.Snapshot()

	if trialErr != nil {
		recordTrialError(tel, trialErr)
		telemetry.EndTrialContext(ctx, snapshot.TrialID, "", "failed",
			int(snapshot.TotalWorks), trialErr)
		printOutcome(snapshot, nil, trialErr)
		return trialErr
	}

	winner := snapshot.Candidates[snapshot.WinnerIndex]
	results, dispatchErr := drainResults(ctx, mp, workspaces)
	snapshot = mp.Snapshot()

	tel.Metrics.RecordResultsEmitted(len(results))
	if snapshot.State == engine.StateUsingBackup {
		tel.Metrics.RecordBackupSwitch()
	}

	outcome := "winner_chosen"
	if dispatchErr != nil {
		outcome = "failed"
		recordTrialError(tel, dispatchErr)
	}
	telemetry.EndTrialContext(ctx, snapshot.TrialID, winner.PlanSummary, outcome,
		int(snapshot.TotalWorks), dispatchErr)

	printOutcome(snapshot, results, dispatchErr)
	return dispatchErr
}

// drainResults pulls every remaining result from the winner (and its backup,
// if a failover happens) and resolves the workspace members to values.
func drainResults(ctx context.Context, mp *engine.MultiPlan, workspaces []*workspace.Workspace) ([]interface{}, error) {
	var results []interface{}
	for !mp.EOF() {
		status, id := mp.Work(ctx)
		switch status {
		case engine.StatusAdvanced:
			ws := workspaces[mp.BestIdx()]
			if value, ok := ws.Get(id); ok {
				results = append(results, value)
				ws.Free(id)
			}
		case engine.StatusFailure:
			return results, mp.FailureStatus()
		case engine.StatusEOF:
			return results, nil
		case engine.StatusNeedYield:
			// No yield policy in CLI runs; treat as a unit of waiting.
		case engine.StatusNeedTime:
			// Keep working.
		}
	}
	return results, nil
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := validator.New().Struct(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	if len(sc.Records) == 0 && sc.Generate == nil {
		return nil, fmt.Errorf("scenario %s has no records and no generate block", path)
	}

	return &sc, nil
}

// records returns the scenario's record set, synthesizing records when a
// generate block is present.
func (s *scenario) records() []stage.Record {
	records := append([]stage.Record(nil), s.Records...)
	if s.Generate != nil {
		for i := 0; i < s.Generate.Count; i++ {
			records = append(records, stage.Record{
				"seq":   i,
				"group": i % s.Generate.Cardinality,
			})
		}
	}
	return records
}

func (c *candidateSpec) solution() *engine.Solution {
	return &engine.Solution{
		PlanSummary: c.Name,
		Blocking:    c.SortField != "",
		CacheData: &engine.SolutionCacheData{
			PlanID:    c.Name,
			IndexName: c.Index,
		},
	}
}

func (c *candidateSpec) buildRoot(ws *workspace.Workspace, records []stage.Record) engine.PlanRoot {
	var filter stage.Filter
	if c.Field != "" {
		field, want := c.Field, fmt.Sprint(c.Equals)
		filter = func(r stage.Record) bool {
			return fmt.Sprint(r[field]) == want
		}
	}

	var root engine.PlanRoot = stage.NewScan(ws, records, filter)
	if c.SortField != "" {
		root = stage.NewSort(ws, root, lessOnField(c.SortField))
	}
	if c.Limit > 0 {
		root = stage.NewLimit(root, c.Limit)
	}
	return root
}

// lessOnField orders records numerically on field when both values are
// numbers, falling back to string comparison.
func lessOnField(field string) stage.Less {
	return func(a, b interface{}) bool {
		ra, aok := a.(stage.Record)
		rb, bok := b.(stage.Record)
		if !aok || !bok {
			return false
		}
		fa, faOK := toFloat(ra[field])
		fb, fbOK := toFloat(rb[field])
		if faOK && fbOK {
			return fa < fb
		}
		return fmt.Sprint(ra[field]) < fmt.Sprint(rb[field])
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func recordTrialError(tel *telemetry.Telemetry, err error) {
	var engErr *engine.EngineError
	if errors.As(err, &engErr) {
		tel.Metrics.RecordError(string(engErr.Class), engErr.Code)
		return
	}
	tel.Metrics.RecordError("internal", "")
}

// printOutcome renders the trial result as a table or JSON.
func printOutcome(snapshot engine.TrialStats, results []interface{}, runErr error) {
	if jsonOutput {
		out := struct {
			Snapshot engine.TrialStats `json:"snapshot"`
			Results  []interface{}     `json:"results"`
			Error    string            `json:"error,omitempty"`
		}{Snapshot: snapshot, Results: results}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Printf("encoding output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	if runErr != nil {
		fmt.Printf("Trial %s failed: %v\n", snapshot.TrialID, runErr)
	} else {
		winner := snapshot.Candidates[snapshot.WinnerIndex]
		fmt.Printf("Winner: %s (score %.4f)\n", winner.PlanSummary, winner.Score)
	}

	fmt.Printf("\nShape:    %s\n", snapshot.Shape)
	fmt.Printf("State:    %s\n", snapshot.State)
	fmt.Printf("Budget:   %d work units, %d results\n",
		snapshot.Budget.MaxWorkUnits, snapshot.Budget.MaxResults)
	fmt.Printf("Spent:    %d work units in %s\n", snapshot.TotalWorks, snapshot.TrialDuration)

	fmt.Printf("\n%-4s %-30s %-8s %-9s %-9s %-5s %-8s %s\n",
		"IDX", "PLAN", "SCORE", "WORKS", "ADVANCES", "EOF", "FAILED", "NOTE")
	for _, c := range snapshot.Candidates {
		note := ""
		if c.Index == snapshot.WinnerIndex {
			note = "winner"
		} else if c.Index == snapshot.BackupIndex {
			note = "backup"
		}
		fmt.Printf("%-4d %-30s %-8.4f %-9d %-9d %-5v %-8v %s\n",
			c.Index, c.PlanSummary, c.Score, c.Stats.Works, c.Stats.Advances,
			c.Stats.ReachedEOF, c.Failed, note)
	}

	if runErr == nil {
		fmt.Printf("\nResults: %d\n", len(results))
		if verbose {
			for _, r := range results {
				fmt.Printf("  %v\n", r)
			}
		}
	}
}
