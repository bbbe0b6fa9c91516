package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	baselines map[string]domain.Roster          // key: group id
	history   map[string][]*domain.HistoryEntry // key: group id
	apiKeys   map[string]*domain.APIKey         // key: key id
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		baselines: make(map[string]domain.Roster),
		history:   make(map[string][]*domain.HistoryEntry),
		apiKeys:   make(map[string]*domain.APIKey),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) LoadBaseline(ctx context.Context, groupID string) (domain.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roster := s.baselines[groupID]
	out := make(domain.Roster, len(roster))
	copy(out, roster)
	return out, nil
}

func (s *Store) SaveBaseline(ctx context.Context, groupID string, roster domain.Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(domain.Roster, len(roster))
	copy(stored, roster)
	s.baselines[groupID] = stored
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, groupID string) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[groupID]
	out := make([]*domain.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = copyEntry(e)
	}
	return out, nil
}

func (s *Store) AppendHistory(ctx context.Context, groupID string, entry *domain.HistoryEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[groupID] = append(s.history[groupID], copyEntry(entry))
	return nil
}

// HasBaseline reports whether a baseline was ever saved for the group.
func (s *Store) HasBaseline(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.baselines[groupID]
	return ok
}

func copyEntry(e *domain.HistoryEntry) *domain.HistoryEntry {
	c := *e
	c.Added = append([]domain.Member{}, e.Added...)
	c.Removed = append([]domain.Member{}, e.Removed...)
	c.AdminChanges = append([]domain.AdminChange{}, e.AdminChanges...)
	return &c
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, k := range s.apiKeys {
		if k.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	s.apiKeys[key.ID] = copyKey(key)
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			return copyKey(key), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		keys = append(keys, copyKey(key))
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

func copyKey(k *domain.APIKey) *domain.APIKey {
	c := *k
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}
