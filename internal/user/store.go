package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists accounts keyed by email.
type Store interface {
	Get(ctx context.Context, email string) (Account, error)
	Put(ctx context.Context, account Account) error
	// Insert stores account only when the email is free; otherwise ErrEmailTaken.
	Insert(ctx context.Context, account Account) error
	List(ctx context.Context) ([]Account, error)
}

// MemoryStore keeps accounts for the lifetime of the process.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]Account{}}
}

func (s *MemoryStore) Get(ctx context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Put(ctx context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.Email] = account
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Email]; ok {
		return ErrEmailTaken
	}
	s.accounts[account.Email] = account
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

const redisKeyPrefix = "user:"

// RedisStore keeps accounts as JSON strings under user:<email>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, email string) (Account, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to get user %s: %w", email, err)
	}

	var a Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return Account{}, fmt.Errorf("failed to unmarshal user %s: %w", email, err)
	}
	return a, nil
}

func (s *RedisStore) Put(ctx context.Context, account Account) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+account.Email, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store user %s: %w", account.Email, err)
	}
	return nil
}

func (s *RedisStore) Insert(ctx context.Context, account Account) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+account.Email, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", account.Email, err)
	}
	if !ok {
		return ErrEmailTaken
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Account, error) {
	var out []Account
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", iter.Val(), err)
		}
		var a Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", iter.Val(), err)
		}
		out = append(out, a)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
