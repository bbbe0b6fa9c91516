// Package file stores baselines and history as JSON documents on disk.
//
// Layout:
//
//	<dataDir>/<group>.json              baseline roster
//	<reportsDir>/<group>-history.json   history entries, oldest first
//	<reportsDir>/<group>-report.txt     text report, one block per run
//	<dataDir>/auth/api-keys.json        hashed API keys
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/storage"
	"github.com/bcnelson/roster-monitor/internal/validation"
)

// Store implements storage.Storage on the local filesystem.
type Store struct {
	dataDir    string
	reportsDir string

	mu sync.Mutex
}

var (
	_ storage.Storage      = (*Store)(nil)
	_ storage.ReportWriter = (*Store)(nil)
)

// New creates a file store, creating both directories if needed.
func New(dataDir, reportsDir string) (*Store, error) {
	for _, dir := range []string{dataDir, reportsDir, filepath.Join(dataDir, "auth")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return &Store{dataDir: dataDir, reportsDir: reportsDir}, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// fileKey rejects group ids that cannot be used as a file name.
func fileKey(groupID string) (string, error) {
	if err := validation.ValidateGroupID(groupID); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return groupID, nil
}

func (s *Store) baselinePath(key string) string {
	return filepath.Join(s.dataDir, key+".json")
}

func (s *Store) historyPath(key string) string {
	return filepath.Join(s.reportsDir, key+"-history.json")
}

func (s *Store) reportPath(key string) string {
	return filepath.Join(s.reportsDir, key+"-report.txt")
}

// LoadBaseline reads the baseline of a group.
// A missing or unreadable file is an empty baseline.
func (s *Store) LoadBaseline(ctx context.Context, groupID string) (domain.Roster, error) {
	key, err := fileKey(groupID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var roster domain.Roster
	if !readJSON(s.baselinePath(key), &roster) || roster == nil {
		return domain.Roster{}, nil
	}
	return roster, nil
}

// SaveBaseline overwrites the baseline of a group.
func (s *Store) SaveBaseline(ctx context.Context, groupID string, roster domain.Roster) error {
	key, err := fileKey(groupID)
	if err != nil {
		return err
	}
	if roster == nil {
		roster = domain.Roster{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(s.baselinePath(key), roster)
}

// LoadHistory reads the history of a group.
// A missing, unreadable or non-array file is an empty history.
func (s *Store) LoadHistory(ctx context.Context, groupID string) ([]*domain.HistoryEntry, error) {
	key, err := fileKey(groupID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadHistory(key), nil
}

func (s *Store) loadHistory(key string) []*domain.HistoryEntry {
	var entries []*domain.HistoryEntry
	if !readJSON(s.historyPath(key), &entries) {
		return []*domain.HistoryEntry{}
	}
	out := make([]*domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// AppendHistory loads the history of a group, appends the entry and rewrites the file.
func (s *Store) AppendHistory(ctx context.Context, groupID string, entry *domain.HistoryEntry) error {
	key, err := fileKey(groupID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.loadHistory(key), entry)
	return writeJSON(s.historyPath(key), entries)
}

// AppendReport appends a text block to the report file of a group.
func (s *Store) AppendReport(ctx context.Context, groupID string, text string) error {
	key, err := fileKey(groupID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.reportPath(key), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("writing report file: %w", err)
	}
	return f.Close()
}

// readJSON decodes path into v and reports whether it succeeded.
func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("unreadable store file, starting fresh", "path", path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("corrupt store file, starting fresh", "path", path, "error", err)
		return false
	}
	return true
}

// writeJSON replaces path with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ============================================
// API Keys
// ============================================

// apiKeyRecord is the on-disk form of domain.APIKey, which hides its hash from JSON.
type apiKeyRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"keyHash"`
	KeyPrefix  string     `json:"keyPrefix"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

func (r *apiKeyRecord) toDomain() *domain.APIKey {
	return &domain.APIKey{
		ID:         r.ID,
		Name:       r.Name,
		KeyHash:    r.KeyHash,
		KeyPrefix:  r.KeyPrefix,
		CreatedAt:  r.CreatedAt,
		LastUsedAt: r.LastUsedAt,
	}
}

func (s *Store) apiKeysPath() string {
	return filepath.Join(s.dataDir, "auth", "api-keys.json")
}

// loadAPIKeys reads the key file. Unlike baselines, a corrupt key file is an
// error: reading it as empty would re-enable the bootstrap key.
func (s *Store) loadAPIKeys() ([]apiKeyRecord, error) {
	data, err := os.ReadFile(s.apiKeysPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading api keys: %w", err)
	}
	var records []apiKeyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding api keys: %w", err)
	}
	return records, nil
}

func (s *Store) saveAPIKeys(records []apiKeyRecord) error {
	if records == nil {
		records = []apiKeyRecord{}
	}
	if err := writeJSON(s.apiKeysPath(), records); err != nil {
		return err
	}
	return os.Chmod(s.apiKeysPath(), 0600)
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == key.ID || r.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	records = append(records, apiKeyRecord{
		ID:         key.ID,
		Name:       key.Name,
		KeyHash:    key.KeyHash,
		KeyPrefix:  key.KeyPrefix,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
	})
	return s.saveAPIKeys(records)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].KeyHash == keyHash {
			return records[i].toDomain(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return nil, err
	}
	keys := make([]*domain.APIKey, 0, len(records))
	for i := range records {
		keys = append(keys, records[i].toDomain())
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			return s.saveAPIKeys(append(records[:i], records[i+1:]...))
		}
	}
	return domain.ErrNotFound
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			now := time.Now().UTC()
			records[i].LastUsedAt = &now
			return s.saveAPIKeys(records)
		}
	}
	return domain.ErrNotFound
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAPIKeys()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
