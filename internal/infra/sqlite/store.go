// Package sqlite is the single-node storage driver: results and delivery
// attempts in one SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"applicant-assessment-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS test_results (
    id                TEXT PRIMARY KEY,
    applicant_name    TEXT NOT NULL,
    applicant_email   TEXT NOT NULL DEFAULT '',
    branch            TEXT NOT NULL DEFAULT '',
    percentage        INTEGER NOT NULL,
    performance_level TEXT NOT NULL,
    passed            INTEGER NOT NULL DEFAULT 0,
    payload           TEXT NOT NULL,
    created_at        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS delivery_attempts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id    TEXT NOT NULL REFERENCES test_results (id) ON DELETE CASCADE,
    recipient    TEXT NOT NULL,
    status       TEXT NOT NULL,
    error        TEXT NOT NULL DEFAULT '',
    attempted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS delivery_attempts_record_idx ON delivery_attempts (record_id);
`

// Store implements the result store and attempt log on SQLite.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn, applies pragmas and creates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "file:assessment.db?cache=shared&mode=rwc"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, record domain.StoredResult) error {
	r := record.Result
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO test_results (id, applicant_name, applicant_email, branch, percentage, performance_level, passed, payload, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RecordID,
		r.Applicant.Name,
		r.Applicant.Email,
		r.Branch,
		r.Percentage,
		string(r.MeasuredLevel),
		r.Passed,
		string(payload),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, recordID string) (domain.StoredResult, error) {
	var payload, created string
	err := s.db.QueryRowContext(ctx, `SELECT payload, created_at FROM test_results WHERE id = ?`, recordID).
		Scan(&payload, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoredResult{}, domain.ErrRecordNotFound
		}
		return domain.StoredResult{}, fmt.Errorf("load test result: %w", err)
	}
	record := domain.StoredResult{RecordID: recordID}
	if err := json.Unmarshal([]byte(payload), &record.Result); err != nil {
		return domain.StoredResult{}, fmt.Errorf("unmarshal test result: %w", err)
	}
	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return domain.StoredResult{}, fmt.Errorf("parse created_at: %w", err)
	}
	return record, nil
}

func (s *Store) RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO delivery_attempts (record_id, recipient, status, error, attempted_at) VALUES (?, ?, ?, ?, ?)`,
		attempt.RecordID,
		attempt.Recipient,
		string(attempt.Status),
		attempt.Error,
		attempt.AttemptedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert delivery attempt: %w", err)
	}
	return nil
}

// Attempts lists the recorded outcomes for one record, oldest first.
func (s *Store) Attempts(ctx context.Context, recordID string) ([]domain.DeliveryAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT recipient, status, error, attempted_at FROM delivery_attempts WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list delivery attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryAttempt
	for rows.Next() {
		var (
			a         = domain.DeliveryAttempt{RecordID: recordID}
			status    string
			attempted string
		)
		if err := rows.Scan(&a.Recipient, &status, &a.Error, &attempted); err != nil {
			return nil, err
		}
		a.Status = domain.DeliveryStatus(status)
		if a.AttemptedAt, err = time.Parse(time.RFC3339Nano, attempted); err != nil {
			return nil, fmt.Errorf("parse attempted_at: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
