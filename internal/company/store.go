package company

import (
	"context"
	"errors"
	"sync"
)

// ErrConfigNotFound is returned when no company config record exists.
var ErrConfigNotFound = errors.New("company: config not found")

// Store provides access to the company config record.
type Store interface {
	Get(ctx context.Context) (*Config, error)
}

// InMemoryStore holds a single config record in memory. Used in tests and
// when running without a database.
type InMemoryStore struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewInMemoryStore creates an in-memory store, optionally pre-seeded.
func NewInMemoryStore(cfg *Config) *InMemoryStore {
	return &InMemoryStore{cfg: cfg}
}

// Get returns the stored config or ErrConfigNotFound.
func (s *InMemoryStore) Get(ctx context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, ErrConfigNotFound
	}
	out := *s.cfg
	return &out, nil
}

// Set replaces the stored config.
func (s *InMemoryStore) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
