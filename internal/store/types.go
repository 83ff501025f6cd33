package store

import "time"

// #region run-record
// RunRecord is one generation request as it passed through the pipeline.
type RunRecord struct {
	RunID        string
	EID          string
	LID          string
	Category     string
	Size         int
	PlannerInput string
	RawPlan      string
	Plan         string
	Template     string
	Output       string
	Error        string
	Stage        string // stage that failed, empty on success
	DurationMS   int64
	CreatedAt    time.Time
}

// Failed reports whether the run aborted.
func (r RunRecord) Failed() bool {
	return r.Error != ""
}

// #endregion run-record

// #region run-with-repair
// RunWithRepair pairs a run with its repair_log decision.
type RunWithRepair struct {
	RunRecord
	Decision    string
	Reason      string
	ExtraJSON   string
	MissingJSON string
}

// #endregion run-with-repair

// #region stats
// RepairStats aggregates repair_log decisions.
type RepairStats struct {
	Total  int
	Accept int
	Repair int
	Reject int
}

// #endregion stats
