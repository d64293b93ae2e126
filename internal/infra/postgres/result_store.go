package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"applicant-assessment-service/internal/domain"
)

// ResultStore persists stored results in the test_results table. The scored
// result is kept whole in payload; the flat columns exist for reporting.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

const insertResultSQL = `
INSERT INTO test_results (
    id, applicant_name, applicant_email, applicant_phone, branch, skill_level,
    test_date, score, total_questions, percentage, performance_level,
    self_evaluation, assessment, passed, hints_consumed, question_bank_id,
    detailed_results, payload, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

func (s *ResultStore) Save(ctx context.Context, record domain.StoredResult) error {
	r := record.Result
	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.pool.Exec(ctx, insertResultSQL,
		record.RecordID,
		r.Applicant.Name,
		r.Applicant.Email,
		r.Applicant.Phone,
		r.Branch,
		string(r.SelfDeclaredLevel),
		r.Timestamp,
		r.AdjustedScore,
		r.TotalQuestions,
		r.Percentage,
		string(r.MeasuredLevel),
		string(r.SelfDeclaredLevel),
		r.Verdict.Describe(r.SelfDeclaredLevel, r.MeasuredLevel),
		r.Passed,
		r.HintsConsumed,
		r.QuestionBankID,
		breakdown,
		payload,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, recordID string) (domain.StoredResult, error) {
	var (
		raw    []byte
		record = domain.StoredResult{RecordID: recordID}
	)
	err := s.pool.QueryRow(ctx, `SELECT payload, created_at FROM test_results WHERE id=$1`, recordID).
		Scan(&raw, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredResult{}, domain.ErrRecordNotFound
		}
		return domain.StoredResult{}, fmt.Errorf("load test result: %w", err)
	}
	if err := json.Unmarshal(raw, &record.Result); err != nil {
		return domain.StoredResult{}, fmt.Errorf("unmarshal test result: %w", err)
	}
	return record, nil
}
