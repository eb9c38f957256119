package engine

// Default trial knobs. Callers normally supply these through configuration;
// the values match the long-standing server defaults.
const (
	// DefaultWorkFloor is the minimum number of work units every trial gets.
	DefaultWorkFloor = 10000

	// DefaultCollectionFraction scales the work budget with collection size:
	// large collections get fraction*records units instead of the floor.
	DefaultCollectionFraction = 0.3

	// DefaultMaxResults is the ceiling on results a candidate may buffer
	// before the trial stops early.
	DefaultMaxResults = 101
)

// TrialBudget is the immutable budget for one trial period.
type TrialBudget struct {
	// MaxWorkUnits is the total number of round-robin rounds.
	MaxWorkUnits int `json:"max_work_units"`

	// MaxResults is the per-candidate buffered-result cap.
	MaxResults int `json:"max_results"`
}

// TrialWorkBudget derives the round budget for a trial. Each plan is worked
// at least floor times; for large collections the budget grows to
// fraction*records. A missing or empty collection yields the floor.
func TrialWorkBudget(floor int, fraction float64, records int64) int {
	works := floor
	if records > 0 {
		if scaled := int(fraction * float64(records)); scaled > works {
			works = scaled
		}
	}
	return works
}

// TrialResultBudget derives how many results a candidate may produce before
// the trial stops. The query's limit (or ntoreturn) caps the configured
// ceiling; zero means no limit was specified.
func TrialResultBudget(ceiling int, limit int64) int {
	if limit > 0 && limit < int64(ceiling) {
		return int(limit)
	}
	return ceiling
}
