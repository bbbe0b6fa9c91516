package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/storage/memory"
)

func TestBaselineIsCopied(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	roster := domain.Roster{{UniqueID: "a", Name: "Ann"}}
	_ = store.SaveBaseline(ctx, "g1", roster)
	roster[0].Name = "mutated"

	got, _ := store.LoadBaseline(ctx, "g1")
	if got[0].Name != "Ann" {
		t.Errorf("Expected stored baseline to be isolated from caller, got %q", got[0].Name)
	}
	if !store.HasBaseline("g1") || store.HasBaseline("g2") {
		t.Error("HasBaseline reported the wrong groups")
	}
}

func TestHistoryAppend(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	_ = store.AppendHistory(ctx, "g1", &domain.HistoryEntry{ID: "1"})
	_ = store.AppendHistory(ctx, "g1", &domain.HistoryEntry{ID: "2"})

	entries, _ := store.LoadHistory(ctx, "g1")
	if len(entries) != 2 || entries[0].ID != "1" || entries[1].ID != "2" {
		t.Errorf("Expected entries [1 2], got %+v", entries)
	}

	entries[0].ID = "changed"
	again, _ := store.LoadHistory(ctx, "g1")
	if again[0].ID != "1" {
		t.Error("Expected stored entries to be immutable from the outside")
	}

	if err := store.AppendHistory(ctx, "g1", nil); err == nil {
		t.Error("Expected nil entry to be rejected")
	}
}

func TestAPIKeys(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	key := &domain.APIKey{ID: "k1", Name: "ops", KeyHash: domain.HashAPIKey("secret")}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if err := store.CreateAPIKey(ctx, &domain.APIKey{ID: "k2", KeyHash: key.KeyHash}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists for duplicate hash, got %v", err)
	}

	got, err := store.GetAPIKeyByHash(ctx, domain.HashAPIKey("secret"))
	if err != nil || got.ID != "k1" {
		t.Fatalf("Unexpected lookup result %+v, %v", got, err)
	}
	got.Name = "mutated"

	if err := store.UpdateAPIKeyLastUsed(ctx, "k1"); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed failed: %v", err)
	}
	keys, _ := store.ListAPIKeys(ctx)
	if len(keys) != 1 || keys[0].Name != "ops" || keys[0].LastUsedAt == nil {
		t.Errorf("Unexpected keys %+v", keys)
	}

	if err := store.DeleteAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}
	if _, err := store.GetAPIKeyByHash(ctx, key.KeyHash); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
