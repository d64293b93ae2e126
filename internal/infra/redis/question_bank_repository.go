package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/infra/memory"
)

// QuestionBankRepository caches whole question banks in Redis as JSON and falls
// back to a loader on a miss. Keys: assessment:bank:{bankID}.
type QuestionBankRepository struct {
	client *redis.Client
	loader memory.QuestionBankLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBankRepository(client *redis.Client, loader memory.QuestionBankLoader, ttl time.Duration) *QuestionBankRepository {
	return &QuestionBankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionBankRepository) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(ctx, bankID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// re-check in case another instance filled it
		if bank, ok := r.cached(ctx, bankID); ok {
			return bank, nil
		}
		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if bank.ID == "" {
			bank.ID = bankID
		}
		payload, err := json.Marshal(bank)
		if err == nil {
			if err := r.client.Set(ctx, r.key(bankID), payload, r.ttlWithJitter()).Err(); err != nil {
				log.Printf("redis: cache bank %s: %v", bankID, err)
			}
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Invalidate removes a cached bank.
func (r *QuestionBankRepository) Invalidate(ctx context.Context, bankID string) error {
	return r.client.Del(ctx, r.key(bankID)).Err()
}

func (r *QuestionBankRepository) cached(ctx context.Context, bankID string) (domain.QuestionBank, bool) {
	raw, err := r.client.Get(ctx, r.key(bankID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis: read bank %s: %v", bankID, err)
		}
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		log.Printf("redis: decode bank %s: %v", bankID, err)
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func (r *QuestionBankRepository) key(bankID string) string {
	return "assessment:bank:" + bankID
}

func (r *QuestionBankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
