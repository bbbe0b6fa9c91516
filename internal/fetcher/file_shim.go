package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

// FileShim is a testing implementation that reads rosters from a directory.
// The roster of group <id> is read from <dir>/<id>.json.
type FileShim struct {
	dir string
}

// Ensure FileShim implements RosterClient.
var _ RosterClient = (*FileShim)(nil)

// NewFileShim creates a new file-based shim for testing.
func NewFileShim(dir string) *FileShim {
	return &FileShim{dir: dir}
}

// FetchRoster reads the roster of a group from its file.
func (f *FileShim) FetchRoster(ctx context.Context, groupID string) (domain.Roster, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group id is required: %w", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.dir, filepath.Base(groupID)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading roster file: %v", domain.ErrTransport, err)
	}

	roster, err := DecodeRoster(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("file shim roster loaded", "path", path, "members", len(roster))
	return roster, nil
}
