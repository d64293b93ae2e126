package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicant-assessment-service/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	store, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord() domain.StoredResult {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return domain.StoredResult{
		RecordID: "rec-1",
		Result: domain.Result{
			Applicant:         domain.Applicant{Name: "Ada", Email: "ada@example.com"},
			Branch:            "Austin, TX",
			RawCorrectCount:   8,
			TotalQuestions:    10,
			AdjustedScore:     8,
			Percentage:        80,
			MeasuredLevel:     domain.LevelPro,
			SelfDeclaredLevel: domain.LevelIntermediate,
			Verdict:           domain.VerdictUnderestimated,
			Passed:            true,
			Answers:           map[int]string{0: "A", 1: "C"},
			Timestamp:         ts,
		},
		CreatedAt: ts.Add(time.Second),
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	record := sampleRecord()

	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, record.RecordID, got.RecordID)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 80, got.Result.Percentage)
	assert.Equal(t, domain.LevelPro, got.Result.MeasuredLevel)
	assert.Equal(t, "C", got.Result.Answers[1])

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))
}

func TestStoreRejectsDuplicateRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleRecord()))
	assert.Error(t, store.Save(ctx, sampleRecord()))
}

func TestStoreRecordsAttempts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleRecord()))

	now := time.Now().UTC()
	require.NoError(t, store.RecordAttempt(ctx, domain.DeliveryAttempt{
		RecordID: "rec-1", Recipient: "jbrown@generatorsource.com", Status: domain.DeliverySent, AttemptedAt: now,
	}))
	require.NoError(t, store.RecordAttempt(ctx, domain.DeliveryAttempt{
		RecordID: "rec-1", Recipient: "ada@example.com", Status: domain.DeliveryFailed, Error: "mailbox full", AttemptedAt: now,
	}))

	attempts, err := store.Attempts(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.DeliverySent, attempts[0].Status)
	assert.Equal(t, "mailbox full", attempts[1].Error)
}
