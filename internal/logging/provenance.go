package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region schema
// Schema creates the repair_log table. The store runs it on open.
const Schema = `
CREATE TABLE IF NOT EXISTS repair_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	eid           TEXT,
	raw_plan      TEXT NOT NULL,
	plan          TEXT,
	extra_json    TEXT,
	missing_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_repair_run ON repair_log(run_id);
`

// #endregion schema

// #region log-repair
// LogRepair writes a repair entry to the repair_log table.
func LogRepair(db *sql.DB, entry RepairEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO repair_log (run_id, eid, raw_plan, plan, extra_json, missing_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.EID),
		entry.RawPlan,
		nullIfEmpty(entry.Plan),
		nullIfEmpty(entry.ExtraJSON),
		nullIfEmpty(entry.MissingJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log repair: %w", err)
	}
	return nil
}

// EntryFromRecord converts a repair record to a repair_log row, deriving the decision.
func EntryFromRecord(rec RepairRecord) RepairEntry {
	entry := RepairEntry{
		RunID:   rec.RunID,
		EID:     rec.EID,
		RawPlan: rec.RawPlan,
		Plan:    rec.Plan,
	}
	if len(rec.Extra) > 0 {
		b, _ := json.Marshal(rec.Extra)
		entry.ExtraJSON = string(b)
	}
	if len(rec.Missing) > 0 {
		b, _ := json.Marshal(rec.Missing)
		entry.MissingJSON = string(b)
	}

	switch {
	case rec.Error != "":
		entry.Decision = DecisionReject
		entry.Reason = rec.Error
	case len(rec.Extra) > 0 || len(rec.Missing) > 0 || rec.Plan != rec.RawPlan:
		entry.Decision = DecisionRepair
		entry.Reason = fmt.Sprintf("removed %d extra, appended %d missing", len(rec.Extra), len(rec.Missing))
	default:
		entry.Decision = DecisionAccept
	}
	return entry
}

// #endregion log-repair

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
