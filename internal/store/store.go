package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/flownlg/internal/logging"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS generation_runs (
	run_id        TEXT PRIMARY KEY,
	eid           TEXT,
	lid           TEXT,
	category      TEXT,
	size          INTEGER NOT NULL,
	planner_input TEXT NOT NULL,
	raw_plan      TEXT,
	plan          TEXT,
	template      TEXT,
	output        TEXT,
	error         TEXT,
	stage         TEXT,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_eid ON generation_runs(eid);
`

const runColumns = `run_id, eid, lid, category, size, planner_input, raw_plan, plan, template, output, error, stage, duration_ms, created_at`

const selectWithRepair = `
SELECT r.run_id, r.eid, r.lid, r.category, r.size, r.planner_input, r.raw_plan, r.plan,
       r.template, r.output, r.error, r.stage, r.duration_ms, r.created_at,
       l.decision, l.reason, l.extra_json, l.missing_json
FROM generation_runs r
LEFT JOIN repair_log l ON l.id = (
    SELECT MAX(id) FROM repair_log WHERE run_id = r.run_id
)`

// #endregion schema

// #region store-struct
// Store persists generation runs and their repair provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(logging.Schema); err != nil {
		return nil, fmt.Errorf("migrate repair_log: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-run
// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// SaveRun inserts a run, assigning an ID and timestamp when missing.
// Returns the stored record.
func (s *Store) SaveRun(rec RunRecord) (RunRecord, error) {
	if rec.RunID == "" {
		rec.RunID = NewRunID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO generation_runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, nullIfEmpty(rec.EID), nullIfEmpty(rec.LID), nullIfEmpty(rec.Category),
		rec.Size, rec.PlannerInput,
		nullIfEmpty(rec.RawPlan), nullIfEmpty(rec.Plan), nullIfEmpty(rec.Template),
		nullIfEmpty(rec.Output), nullIfEmpty(rec.Error), nullIfEmpty(rec.Stage),
		rec.DurationMS, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion save-run

// #region get-run
// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs WHERE run_id = ?`, id)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM generation_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRunsWithRepairs returns the most recent runs joined with their latest
// repair_log row. Runs that failed before repair have an empty decision.
func (s *Store) ListRunsWithRepairs(limit int) ([]RunWithRepair, error) {
	rows, err := s.db.Query(selectWithRepair+` ORDER BY r.created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs with repairs: %w", err)
	}
	defer rows.Close()

	var out []RunWithRepair
	for rows.Next() {
		rr, err := scanRunWithRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// GetRunWithRepair retrieves one run with its latest repair_log row.
func (s *Store) GetRunWithRepair(id string) (RunWithRepair, error) {
	row := s.db.QueryRow(selectWithRepair+` WHERE r.run_id = ?`, id)
	rr, err := scanRunWithRepair(row)
	if err != nil {
		return RunWithRepair{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rr, nil
}

// #endregion list-runs

// #region repair-stats
// RepairStats counts repair_log decisions.
func (s *Store) RepairStats() (RepairStats, error) {
	rows, err := s.db.Query(`SELECT decision, COUNT(*) FROM repair_log GROUP BY decision`)
	if err != nil {
		return RepairStats{}, fmt.Errorf("repair stats: %w", err)
	}
	defer rows.Close()

	var st RepairStats
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return RepairStats{}, fmt.Errorf("scan row: %w", err)
		}
		st.Total += n
		switch decision {
		case logging.DecisionAccept:
			st.Accept = n
		case logging.DecisionRepair:
			st.Repair = n
		case logging.DecisionReject:
			st.Reject = n
		}
	}
	return st, rows.Err()
}

// #endregion repair-stats

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner, extra ...any) (RunRecord, error) {
	var rec RunRecord
	var eid, lid, category, rawPlan, plan, template, output, errText, stage sql.NullString
	var createdStr string

	dest := []any{
		&rec.RunID, &eid, &lid, &category, &rec.Size, &rec.PlannerInput,
		&rawPlan, &plan, &template, &output, &errText, &stage, &rec.DurationMS, &createdStr,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return RunRecord{}, err
	}

	rec.EID = eid.String
	rec.LID = lid.String
	rec.Category = category.String
	rec.RawPlan = rawPlan.String
	rec.Plan = plan.String
	rec.Template = template.String
	rec.Output = output.String
	rec.Error = errText.String
	rec.Stage = stage.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func scanRunWithRepair(sc scanner) (RunWithRepair, error) {
	var decision, reason, extra, missing sql.NullString
	rec, err := scanRun(sc, &decision, &reason, &extra, &missing)
	if err != nil {
		return RunWithRepair{}, err
	}
	return RunWithRepair{
		RunRecord:   rec,
		Decision:    decision.String,
		Reason:      reason.String,
		ExtraJSON:   extra.String,
		MissingJSON: missing.String,
	}, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
