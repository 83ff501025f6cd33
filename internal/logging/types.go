package logging

import "time"

// #region repair-entry
// RepairEntry is a single row in the repair_log table.
type RepairEntry struct {
	RunID       string
	EID         string
	RawPlan     string
	Plan        string
	ExtraJSON   string
	MissingJSON string
	Decision    string // "accept" | "repair" | "reject"
	Reason      string
	CreatedAt   time.Time
}

// #endregion repair-entry

// #region decisions
const (
	DecisionAccept = "accept"
	DecisionRepair = "repair"
	DecisionReject = "reject"
)

// #endregion decisions

// #region repair-record
// RepairRecord captures the inputs and outcome of one plan repair.
// Serialized as JSON by fixture export for deterministic replay.
type RepairRecord struct {
	RunID   string   `json:"run_id"`
	EID     string   `json:"eid,omitempty"`
	Size    int      `json:"size"`
	RawPlan string   `json:"raw_plan"`
	Plan    string   `json:"plan,omitempty"`
	Extra   []string `json:"extra,omitempty"`
	Missing []int    `json:"missing,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// #endregion repair-record
