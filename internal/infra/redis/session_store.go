package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"applicant-assessment-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions (with their timers and subscribers) live in-process; Redis holds a
// liveness key per session so other instances and operators can see which
// attempts are running. The key is refreshed on every read.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), "1", s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// DeleteIf evicts matching sessions with their liveness keys and re-arms the
// keys of the sessions that stay, so the keys mirror the in-process map.
func (s *SessionStore) DeleteIf(evict func(*app.Session) bool) []*app.Session {
	var removed []*app.Session
	var kept []string
	s.mu.Lock()
	for id, session := range s.sessions {
		if evict(session) {
			delete(s.sessions, id)
			removed = append(removed, session)
			continue
		}
		kept = append(kept, id)
	}
	s.mu.Unlock()

	ctx := context.Background()
	pipe := s.client.Pipeline()
	for _, session := range removed {
		pipe.Del(ctx, s.key(session.ID()))
	}
	for _, id := range kept {
		pipe.Set(ctx, s.key(id), "1", s.ttl)
	}
	if len(removed)+len(kept) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("redis session sweep: %v", err)
		}
	}
	return removed
}

// Live counts liveness keys across every instance sharing the Redis database.
func (s *SessionStore) Live(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "assessment:session:*", 100).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func (s *SessionStore) key(id string) string {
	return "assessment:session:" + id
}
