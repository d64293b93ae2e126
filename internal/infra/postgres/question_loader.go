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

// QuestionLoader loads question bank JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE id=$1`, bankID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrQuestionBankNotFound, bankID)
		}
		return domain.QuestionBank{}, fmt.Errorf("load question bank: %w", err)
	}
	bank, err := domain.DecodeQuestionBank(raw)
	if err != nil {
		return domain.QuestionBank{}, err
	}
	bank.ID = bankID
	return bank, nil
}

// SaveBank upserts a bank, used by seeding and tests.
func (l *QuestionLoader) SaveBank(ctx context.Context, bank domain.QuestionBank) error {
	raw, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
INSERT INTO question_banks (id, data, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, bank.ID, raw)
	if err != nil {
		return fmt.Errorf("save question bank: %w", err)
	}
	return nil
}
