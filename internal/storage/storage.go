package storage

import (
	"context"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

// BaselineStore holds the most recent roster of each group.
type BaselineStore interface {
	// LoadBaseline returns the stored roster of a group.
	// A group that was never saved yields an empty roster and no error.
	LoadBaseline(ctx context.Context, groupID string) (domain.Roster, error)
	// SaveBaseline replaces the stored roster of a group.
	SaveBaseline(ctx context.Context, groupID string, roster domain.Roster) error
}

// HistoryStore holds the append-only history of each group.
type HistoryStore interface {
	// LoadHistory returns the entries of a group, oldest first.
	LoadHistory(ctx context.Context, groupID string) ([]*domain.HistoryEntry, error)
	// AppendHistory adds an entry after all existing entries of the group.
	AppendHistory(ctx context.Context, groupID string, entry *domain.HistoryEntry) error
}

// APIKeyStore holds the hashed credentials accepted by the HTTP API.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	// GetAPIKeyByHash returns domain.ErrNotFound for an unknown hash.
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	// ListAPIKeys returns all keys, newest first.
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)
}

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	BaselineStore
	HistoryStore
	APIKeyStore

	// Close closes the storage connection.
	Close() error
}

// ReportWriter is implemented by stores that keep a human-readable report
// next to the structured history.
type ReportWriter interface {
	AppendReport(ctx context.Context, groupID string, text string) error
}
