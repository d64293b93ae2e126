package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"applicant-assessment-service/internal/domain"
)

type deliveryAttemptRow struct {
	bun.BaseModel `bun:"table:delivery_attempts"`

	ID          int64     `bun:"id,pk,autoincrement"`
	RecordID    string    `bun:"record_id,notnull"`
	Recipient   string    `bun:"recipient,notnull"`
	Status      string    `bun:"status,notnull"`
	Error       string    `bun:"error,notnull"`
	AttemptedAt time.Time `bun:"attempted_at,notnull"`
}

// DeliveryLog records notification outcomes through bun.
type DeliveryLog struct {
	db *bun.DB
}

func NewDeliveryLog(db *bun.DB) *DeliveryLog {
	return &DeliveryLog{db: db}
}

func (l *DeliveryLog) RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	row := deliveryAttemptRow{
		RecordID:    attempt.RecordID,
		Recipient:   attempt.Recipient,
		Status:      string(attempt.Status),
		Error:       attempt.Error,
		AttemptedAt: attempt.AttemptedAt,
	}
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert delivery attempt: %w", err)
	}
	return nil
}

// Attempts lists the recorded outcomes for one record, oldest first.
func (l *DeliveryLog) Attempts(ctx context.Context, recordID string) ([]domain.DeliveryAttempt, error) {
	var rows []deliveryAttemptRow
	err := l.db.NewSelect().
		Model(&rows).
		Where("record_id = ?", recordID).
		Order("attempted_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivery attempts: %w", err)
	}
	out := make([]domain.DeliveryAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DeliveryAttempt{
			RecordID:    row.RecordID,
			Recipient:   row.Recipient,
			Status:      domain.DeliveryStatus(row.Status),
			Error:       row.Error,
			AttemptedAt: row.AttemptedAt,
		})
	}
	return out, nil
}
