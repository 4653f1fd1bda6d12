package pipeline

import "time"

// Stage identifies where in the run a city succeeded or was dropped.
type Stage string

const (
	StageIngest         Stage = "ingest"
	StageRawWrite       Stage = "raw_write"
	StageRawRead        Stage = "raw_read"
	StageTransform      Stage = "transform"
	StageProcessedWrite Stage = "processed_write"
)

// HoursPerDay is the nominal hourly row count for one city and day.
const HoursPerDay = 24

// CityFailure records the stage at which a city was dropped from the run.
// A stage failure is terminal for that city for the remainder of the run.
type CityFailure struct {
	City   string `json:"city"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// Outcome summarizes one pipeline execution. It is built incrementally
// during the run and retained only in memory (and logs).
type Outcome struct {
	RunID      string        `json:"run_id"`
	TargetDate string        `json:"target_date"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`

	// Succeeded lists cities whose processed artifact was written.
	Succeeded []string      `json:"succeeded"`
	Failures  []CityFailure `json:"failures,omitempty"`

	TotalRows int `json:"total_rows"`
}

// FailedCities returns the names of all dropped cities, in drop order.
func (o *Outcome) FailedCities() []string {
	names := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		names = append(names, f.City)
	}
	return names
}

// ExpectedRows is the nominal row count for the cities that completed.
// Deviation is reported, not treated as an error; upstream data gaps and
// DST days legitimately produce other counts.
func (o *Outcome) ExpectedRows() int {
	return HoursPerDay * len(o.Succeeded)
}

// Status classifies the run for reporting: success when every city
// completed, partial when some did, failure when none did.
func (o *Outcome) Status() string {
	switch {
	case len(o.Failures) == 0:
		return "success"
	case len(o.Succeeded) > 0:
		return "partial"
	default:
		return "failure"
	}
}
