package memory

import (
	"context"
	"sort"
	"sync"

	"applicant-assessment-service/internal/domain"
)

// ResultStore keeps stored results in memory. It backs the "memory" storage
// driver and pipeline tests.
type ResultStore struct {
	mu       sync.RWMutex
	records  map[string]domain.StoredResult
	attempts map[string][]domain.DeliveryAttempt
	// FailSave, when set, is returned by every Save.
	FailSave error
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		records:  make(map[string]domain.StoredResult),
		attempts: make(map[string][]domain.DeliveryAttempt),
	}
}

func (s *ResultStore) Save(_ context.Context, record domain.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.records[record.RecordID] = record
	return nil
}

func (s *ResultStore) Get(_ context.Context, recordID string) (domain.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return domain.StoredResult{}, domain.ErrRecordNotFound
	}
	return record, nil
}

// All returns every record ordered by creation time.
func (s *ResultStore) All() []domain.StoredResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredResult, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RecordAttempt appends a notification outcome for a record.
func (s *ResultStore) RecordAttempt(_ context.Context, attempt domain.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.RecordID] = append(s.attempts[attempt.RecordID], attempt)
	return nil
}

// Attempts returns the notification outcomes recorded for a record.
func (s *ResultStore) Attempts(recordID string) []domain.DeliveryAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DeliveryAttempt(nil), s.attempts[recordID]...)
}
