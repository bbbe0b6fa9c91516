package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and runs pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================
// Baselines
// ============================================

type baselineRow struct {
	GroupID   string    `db:"group_id"`
	Members   string    `db:"members"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LoadBaseline returns the stored roster of a group.
// A missing row or an undecodable members column yields an empty roster.
func (s *Store) LoadBaseline(ctx context.Context, groupID string) (domain.Roster, error) {
	var row baselineRow
	err := s.db.GetContext(ctx, &row,
		`SELECT group_id, members, updated_at FROM baselines WHERE group_id = $1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Roster{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}

	var roster domain.Roster
	if err := json.Unmarshal([]byte(row.Members), &roster); err != nil || roster == nil {
		if err != nil {
			slog.Warn("corrupt baseline row, starting fresh", "group_id", groupID, "error", err)
		}
		return domain.Roster{}, nil
	}
	return roster, nil
}

// SaveBaseline replaces the stored roster of a group.
func (s *Store) SaveBaseline(ctx context.Context, groupID string, roster domain.Roster) error {
	if roster == nil {
		roster = domain.Roster{}
	}
	members, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("marshaling baseline: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO baselines (group_id, members, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (group_id) DO UPDATE SET members = excluded.members, updated_at = excluded.updated_at`,
		groupID, string(members), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving baseline: %w", err)
	}
	return nil
}

// ============================================
// History
// ============================================

type historyRow struct {
	ID           string    `db:"id"`
	GroupID      string    `db:"group_id"`
	Seq          int       `db:"seq"`
	RecordedAt   time.Time `db:"recorded_at"`
	Added        string    `db:"added"`
	Removed      string    `db:"removed"`
	AdminChanges string    `db:"admin_changes"`
}

func (r *historyRow) toDomain() *domain.HistoryEntry {
	entry := &domain.HistoryEntry{
		ID:           r.ID,
		GroupID:      r.GroupID,
		Timestamp:    r.RecordedAt,
		Added:        []domain.Member{},
		Removed:      []domain.Member{},
		AdminChanges: []domain.AdminChange{},
	}
	decodeColumn(r, "added", r.Added, &entry.Added)
	decodeColumn(r, "removed", r.Removed, &entry.Removed)
	decodeColumn(r, "admin_changes", r.AdminChanges, &entry.AdminChanges)
	return entry
}

// decodeColumn leaves dest untouched when the column does not decode.
func decodeColumn[T any](r *historyRow, column, raw string, dest *[]T) {
	var v []T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		slog.Warn("corrupt history column", "id", r.ID, "column", column, "error", err)
		return
	}
	if v != nil {
		*dest = v
	}
}

// LoadHistory returns the entries of a group, oldest first.
func (s *Store) LoadHistory(ctx context.Context, groupID string) ([]*domain.HistoryEntry, error) {
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, group_id, seq, recorded_at, added, removed, admin_changes
		 FROM history_entries WHERE group_id = $1 ORDER BY seq ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	entries := make([]*domain.HistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toDomain())
	}
	return entries, nil
}

// AppendHistory inserts an entry after the last entry of the group.
func (s *Store) AppendHistory(ctx context.Context, groupID string, entry *domain.HistoryEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}

	added, err := json.Marshal(nonNil(entry.Added))
	if err != nil {
		return fmt.Errorf("marshaling added: %w", err)
	}
	removed, err := json.Marshal(nonNil(entry.Removed))
	if err != nil {
		return fmt.Errorf("marshaling removed: %w", err)
	}
	changes, err := json.Marshal(nonNil(entry.AdminChanges))
	if err != nil {
		return fmt.Errorf("marshaling admin changes: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM history_entries WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("computing history sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history_entries (id, group_id, seq, recorded_at, added, removed, admin_changes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, groupID, next, entry.Timestamp.UTC(), string(added), string(removed), string(changes))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("history entry %s: %w", entry.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("appending history: %w", err)
	}

	return tx.Commit()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt.UTC(), key.LastUsedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.GetContext(ctx, &key,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys WHERE key_hash = $1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	err := s.db.SelectContext(ctx, &keys,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`)
	return count, err
}
