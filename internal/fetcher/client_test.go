package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/fetcher"
)

func TestNew_RequiresPlaceholder(t *testing.T) {
	_, err := fetcher.New("https://example.com/groups/members", time.Second, "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_URL(t *testing.T) {
	c, err := fetcher.New("https://example.com/api/groups/{id}/members", time.Second, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := c.URL("g-hhit-abc"); got != "https://example.com/api/groups/g-hhit-abc/members" {
		t.Errorf("Unexpected URL %s", got)
	}
	if got := c.URL("a/b"); got != "https://example.com/api/groups/a%2Fb/members" {
		t.Errorf("Expected escaped group id, got %s", got)
	}
}

func TestClient_FetchRoster(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"members":[{"uniqueId":"u1","name":"Ann","isAdmin":false},{"uniqueId":"u2","name":"Bob","isAdmin":true}]}`))
	}))
	defer srv.Close()

	c, err := fetcher.New(srv.URL+"/groups/{id}/members", time.Second, "roster-monitor-test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	roster, err := c.FetchRoster(context.Background(), "g1")
	if err != nil {
		t.Fatalf("FetchRoster failed: %v", err)
	}
	if gotPath != "/groups/g1/members" {
		t.Errorf("Expected path /groups/g1/members, got %s", gotPath)
	}
	if gotUA != "roster-monitor-test" {
		t.Errorf("Expected user agent to be sent, got %q", gotUA)
	}
	if len(roster) != 2 || roster[0].UniqueID != "u2" || !roster[0].IsAdmin {
		t.Errorf("Expected admin u2 first, got %+v", roster)
	}
}

func TestClient_FetchRoster_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `[]`, domain.ErrTransport},
		{"not found", http.StatusNotFound, `{"error":"missing"}`, domain.ErrTransport},
		{"html body", http.StatusOK, `<html></html>`, domain.ErrMalformedRoster},
		{"wrong shape", http.StatusOK, `{"data":[]}`, domain.ErrMalformedRoster},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := fetcher.New(srv.URL+"/{id}", time.Second, "")
			_, err := c.FetchRoster(context.Background(), "g1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_FetchRoster_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := fetcher.New(srv.URL+"/{id}", 50*time.Millisecond, "")
	_, err := c.FetchRoster(context.Background(), "g1")
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("Expected ErrTransport on timeout, got %v", err)
	}
}

func TestClient_FetchRoster_EmptyID(t *testing.T) {
	c, _ := fetcher.New("http://127.0.0.1/{id}", time.Second, "")
	_, err := c.FetchRoster(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestFileShim(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "g1.json"), []byte(`[{"uniqueId":"a","name":"A"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	shim := fetcher.NewFileShim(dir)

	roster, err := shim.FetchRoster(context.Background(), "g1")
	if err != nil {
		t.Fatalf("FetchRoster failed: %v", err)
	}
	if len(roster) != 1 || roster[0].UniqueID != "a" {
		t.Errorf("Unexpected roster %+v", roster)
	}

	_, err = shim.FetchRoster(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("Expected ErrTransport for missing file, got %v", err)
	}
}
