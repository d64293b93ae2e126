package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS delivery_attempts (
    id           BIGSERIAL PRIMARY KEY,
    record_id    TEXT NOT NULL REFERENCES test_results (id) ON DELETE CASCADE,
    recipient    TEXT NOT NULL,
    status       TEXT NOT NULL,
    error        TEXT NOT NULL DEFAULT '',
    attempted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS delivery_attempts_record_idx ON delivery_attempts (record_id)`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS delivery_attempts`)
			return err
		},
	)
}
