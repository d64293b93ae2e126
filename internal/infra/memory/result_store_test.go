package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"applicant-assessment-service/internal/domain"
)

func TestResultStoreRoundTrip(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	record := domain.StoredResult{
		RecordID:  "rec-1",
		Result:    domain.Result{Applicant: domain.Applicant{Name: "Lee"}, Percentage: 82},
		CreatedAt: time.Now(),
	}

	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Result.Percentage != 82 {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, err := store.Get(ctx, "nope"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_ = store.RecordAttempt(ctx, domain.DeliveryAttempt{RecordID: "rec-1", Recipient: "a@example.com", Status: domain.DeliverySent})
	if n := len(store.Attempts("rec-1")); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}
