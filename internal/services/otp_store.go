package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPEntry is one live code for an (email, purpose) pair.
type OTPEntry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
}

// CodeStore is the injectable TTL key-value collaborator behind the OTP
// verifier. The in-process implementation is the default; a shared store can
// be swapped in for horizontally scaled deployments without touching the
// verifier logic.
type CodeStore interface {
	Put(key string, entry OTPEntry) error
	Get(key string) (OTPEntry, bool)
	MarkVerified(key string) error
	Delete(key string)
}

// MemoryCodeStore keeps codes in process memory. State is lost on restart and
// not shared across instances; last writer wins on concurrent overwrites.
type MemoryCodeStore struct {
	mu      sync.Mutex
	entries map[string]OTPEntry
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{entries: make(map[string]OTPEntry)}
}

func (s *MemoryCodeStore) Put(key string, entry OTPEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryCodeStore) Get(key string) (OTPEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return OTPEntry{}, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(s.entries, key)
		return OTPEntry{}, false
	}
	return entry, true
}

func (s *MemoryCodeStore) MarkVerified(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	entry.Verified = true
	s.entries[key] = entry
	return nil
}

func (s *MemoryCodeStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// RedisCodeStore keeps codes in Redis so multiple instances share OTP state.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(addr, password string) *RedisCodeStore {
	return &RedisCodeStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}
}

func (s *RedisCodeStore) Put(key string, entry OTPEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(context.Background(), "otp:"+key, payload, ttl).Err()
}

func (s *RedisCodeStore) Get(key string) (OTPEntry, bool) {
	payload, err := s.client.Get(context.Background(), "otp:"+key).Bytes()
	if err != nil {
		return OTPEntry{}, false
	}
	var entry OTPEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return OTPEntry{}, false
	}
	if time.Now().After(entry.ExpiresAt) {
		s.Delete(key)
		return OTPEntry{}, false
	}
	return entry, true
}

func (s *RedisCodeStore) MarkVerified(key string) error {
	entry, ok := s.Get(key)
	if !ok {
		return nil
	}
	entry.Verified = true
	return s.Put(key, entry)
}

func (s *RedisCodeStore) Delete(key string) {
	s.client.Del(context.Background(), "otp:"+key)
}
