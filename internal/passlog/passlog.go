// Package passlog keeps a local history of verification passes in an
// SQLite database. The history is informational; writing it never
// changes a pass disposition.
package passlog

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS verification_pass (
    pass_id TEXT PRIMARY KEY,
    dataset TEXT NOT NULL,
    disposition TEXT NOT NULL,
    match_count INTEGER NOT NULL,
    mismatch_count INTEGER NOT NULL,
    transaction_id INTEGER NOT NULL,
    message TEXT NOT NULL,
    started_at TEXT NOT NULL,  -- RFC3339
    finished_at TEXT NOT NULL  -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_pass_dataset ON verification_pass(dataset);
CREATE INDEX IF NOT EXISTS idx_pass_finished ON verification_pass(finished_at);
`

// PassRecord is one row of pass history.
type PassRecord struct {
	PassID        string    `db:"pass_id"`
	Dataset       string    `db:"dataset"`
	Disposition   string    `db:"disposition"`
	MatchCount    int       `db:"match_count"`
	MismatchCount int       `db:"mismatch_count"`
	TransactionID int64     `db:"transaction_id"`
	Message       string    `db:"message"`
	StartedAt     time.Time `db:"-"`
	FinishedAt    time.Time `db:"-"`
}

// Journal is the pass-history store.
type Journal struct {
	db *sqlx.DB
}

// Open creates or opens the pass journal at dbPath.
func Open(dbPath string) (*Journal, error) {
	if err := utils.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open pass journal %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // SQLite best practice for WAL mode

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pass journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Append records one finished pass.
func (j *Journal) Append(rec *PassRecord) error {
	_, err := j.db.Exec(
		`INSERT OR REPLACE INTO verification_pass
		 (pass_id, dataset, disposition, match_count, mismatch_count, transaction_id, message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PassID, rec.Dataset, rec.Disposition, rec.MatchCount, rec.MismatchCount,
		rec.TransactionID, rec.Message,
		rec.StartedAt.UTC().Format(time.RFC3339), rec.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append pass record: %w", err)
	}
	return nil
}

// History returns the recorded passes for a dataset, most recent first.
func (j *Journal) History(dataset string) ([]PassRecord, error) {
	rows, err := j.db.Queryx(
		`SELECT pass_id, dataset, disposition, match_count, mismatch_count, transaction_id, message, started_at, finished_at
		 FROM verification_pass WHERE dataset = ? ORDER BY finished_at DESC`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query pass history: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		var rec PassRecord
		var started, finished string
		if err := rows.Scan(&rec.PassID, &rec.Dataset, &rec.Disposition, &rec.MatchCount,
			&rec.MismatchCount, &rec.TransactionID, &rec.Message, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan pass record: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass history: %w", err)
	}
	return records, nil
}
