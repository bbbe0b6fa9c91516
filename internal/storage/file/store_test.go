package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/storage/file"
)

func newStore(t *testing.T) (*file.Store, string, string) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	reportsDir := filepath.Join(root, "reports")
	store, err := file.New(dataDir, reportsDir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return store, dataDir, reportsDir
}

func TestNew_CreatesDirectories(t *testing.T) {
	_, dataDir, reportsDir := newStore(t)
	for _, dir := range []string{dataDir, reportsDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}

func TestBaseline_RoundTripAndOverwrite(t *testing.T) {
	store, dataDir, _ := newStore(t)
	ctx := context.Background()

	roster, err := store.LoadBaseline(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadBaseline failed: %v", err)
	}
	if roster == nil || len(roster) != 0 {
		t.Errorf("Expected empty baseline for unknown group, got %#v", roster)
	}

	first := domain.Roster{{UniqueID: "a", Name: "Ann", IsAdmin: true}, {UniqueID: "b", Name: "Bob"}}
	if err := store.SaveBaseline(ctx, "g1", first); err != nil {
		t.Fatalf("SaveBaseline failed: %v", err)
	}
	second := domain.Roster{{UniqueID: "c", Name: "Cid"}}
	if err := store.SaveBaseline(ctx, "g1", second); err != nil {
		t.Fatalf("SaveBaseline failed: %v", err)
	}

	got, err := store.LoadBaseline(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadBaseline failed: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Errorf("Expected baseline to be overwritten with %+v, got %+v", second, got)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "g1.json"))
	if err != nil {
		t.Fatalf("reading baseline file: %v", err)
	}
	if !strings.Contains(string(data), "\n  {") || !strings.Contains(string(data), `"uniqueId": "c"`) {
		t.Errorf("Expected pretty-printed baseline, got %s", data)
	}
}

func TestBaseline_CorruptFileIsEmpty(t *testing.T) {
	store, dataDir, _ := newStore(t)

	for _, content := range []string{"{not json", `{"members":[]}`, "null"} {
		if err := os.WriteFile(filepath.Join(dataDir, "g1.json"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		roster, err := store.LoadBaseline(context.Background(), "g1")
		if err != nil {
			t.Fatalf("LoadBaseline(%q) failed: %v", content, err)
		}
		if roster == nil || len(roster) != 0 {
			t.Errorf("Expected empty baseline for %q, got %#v", content, roster)
		}
	}
}

func TestHistory_AppendPreservesOrder(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		entry := &domain.HistoryEntry{
			ID:           string(rune('a' + i)),
			GroupID:      "g1",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			Added:        []domain.Member{{UniqueID: "m", Name: "M"}},
			Removed:      []domain.Member{},
			AdminChanges: []domain.AdminChange{},
		}
		if err := store.AppendHistory(ctx, "g1", entry); err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	entries, err := store.LoadHistory(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID != string(rune('a'+i)) {
			t.Errorf("entry %d: expected id %c, got %s", i, 'a'+i, e.ID)
		}
		if !e.Timestamp.Equal(base.Add(time.Duration(i) * time.Hour)) {
			t.Errorf("entry %d: unexpected timestamp %v", i, e.Timestamp)
		}
	}

	other, _ := store.LoadHistory(ctx, "g2")
	if len(other) != 0 {
		t.Errorf("Expected groups to have separate histories, got %d entries", len(other))
	}
}

func TestHistory_CorruptFileStartsFresh(t *testing.T) {
	store, _, reportsDir := newStore(t)
	ctx := context.Background()

	path := filepath.Join(reportsDir, "g1-history.json")
	if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.AppendHistory(ctx, "g1", &domain.HistoryEntry{ID: "fresh", GroupID: "g1"}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	entries, _ := store.LoadHistory(ctx, "g1")
	if len(entries) != 1 || entries[0].ID != "fresh" {
		t.Errorf("Expected history to restart with one entry, got %+v", entries)
	}
}

func TestAppendReport(t *testing.T) {
	store, _, reportsDir := newStore(t)
	ctx := context.Background()

	_ = store.AppendReport(ctx, "g1", "first\n")
	_ = store.AppendReport(ctx, "g1", "second\n")

	data, err := os.ReadFile(filepath.Join(reportsDir, "g1-report.txt"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("Expected appended report, got %q", data)
	}
}

func TestInvalidGroupID(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		if _, err := store.LoadBaseline(ctx, id); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("LoadBaseline(%q): expected ErrInvalidInput, got %v", id, err)
		}
		if err := store.SaveBaseline(ctx, id, nil); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("SaveBaseline(%q): expected ErrInvalidInput, got %v", id, err)
		}
	}
}

func TestAPIKeys_PersistHash(t *testing.T) {
	store, dataDir, reportsDir := newStore(t)
	ctx := context.Background()

	key := &domain.APIKey{
		ID:        "k1",
		Name:      "ops",
		KeyHash:   domain.HashAPIKey("secret"),
		KeyPrefix: "rm_12345678",
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if err := store.CreateAPIKey(ctx, key); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	// A fresh store over the same directories finds the key by hash
	reopened, err := file.New(dataDir, reportsDir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.GetAPIKeyByHash(ctx, domain.HashAPIKey("secret"))
	if err != nil || got.ID != "k1" || got.Name != "ops" {
		t.Fatalf("Unexpected lookup result %+v, %v", got, err)
	}

	if err := reopened.UpdateAPIKeyLastUsed(ctx, "k1"); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed failed: %v", err)
	}
	keys, _ := reopened.ListAPIKeys(ctx)
	if len(keys) != 1 || keys[0].LastUsedAt == nil {
		t.Errorf("Expected one key with last use set, got %+v", keys)
	}

	info, err := os.Stat(filepath.Join(dataDir, "auth", "api-keys.json"))
	if err != nil {
		t.Fatalf("Expected key file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected key file mode 0600, got %v", info.Mode().Perm())
	}

	if err := reopened.DeleteAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}
	if n, _ := reopened.CountAPIKeys(ctx); n != 0 {
		t.Errorf("Expected no keys after delete, got %d", n)
	}
	if err := reopened.DeleteAPIKey(ctx, "k1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAPIKeys_CorruptFileIsAnError(t *testing.T) {
	store, dataDir, _ := newStore(t)
	if err := os.WriteFile(filepath.Join(dataDir, "auth", "api-keys.json"), []byte("{oops"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.CountAPIKeys(context.Background()); err == nil {
		t.Error("Expected corrupt key file to fail instead of reading as no keys")
	}
}
