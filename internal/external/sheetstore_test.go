package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fleetcore/internal/types"
)

func newTestSheetStore(t *testing.T, serverURL string) *SheetStore {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-sheet-bridge",
		DefaultRetryPolicy(),
		"FleetCore-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	store, err := NewSheetStore(base, serverURL)
	if err != nil {
		t.Fatalf("creating sheet store: %v", err)
	}
	return store
}

func TestGetMemberRecord_ServesRepeatReadsFromCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(types.MemberRecord{
			MemberID: "member-1",
			Fields:   map[string]any{"rank": "Lieutenant"},
		})
	}))
	defer server.Close()

	store := newTestSheetStore(t, server.URL)
	ctx := context.Background()

	first, err := store.GetMemberRecord(ctx, "member-1")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := store.GetMemberRecord(ctx, "member-1")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (second read should be cached)", hits.Load())
	}
	if first != second {
		t.Error("cached read should return the same record")
	}
	if first.Fields["rank"] != "Lieutenant" {
		t.Errorf("rank = %v", first.Fields["rank"])
	}
}

func TestGetMemberRecord_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newTestSheetStore(t, server.URL)

	_, err := store.GetMemberRecord(context.Background(), "ghost")
	if !types.IsCode(err, types.ErrCodeInvariantNotFound) {
		t.Errorf("error = %v, want code %s", err, types.ErrCodeInvariantNotFound)
	}
}

func TestWriteFields_SendsMergedMapAndInvalidatesCache(t *testing.T) {
	var reads atomic.Int32
	var written map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /members/member-1", func(w http.ResponseWriter, r *http.Request) {
		reads.Add(1)
		json.NewEncoder(w).Encode(types.MemberRecord{
			MemberID: "member-1",
			Fields:   map[string]any{"rank": "Lieutenant"},
		})
	})
	mux.HandleFunc("PATCH /members/member-1/fields", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&written); err != nil {
			t.Errorf("decoding write body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := newTestSheetStore(t, server.URL)
	ctx := context.Background()

	if _, err := store.GetMemberRecord(ctx, "member-1"); err != nil {
		t.Fatalf("priming read: %v", err)
	}

	err := store.WriteFields(ctx, "member-1", map[string]any{
		"rank":        "Captain",
		"rank_reason": "promotion board",
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if written["rank"] != "Captain" || written["rank_reason"] != "promotion board" {
		t.Errorf("written fields = %v", written)
	}

	// The write must evict the cached record so the next read refetches.
	if _, err := store.GetMemberRecord(ctx, "member-1"); err != nil {
		t.Fatalf("post-write read: %v", err)
	}
	if reads.Load() != 2 {
		t.Errorf("server reads = %d, want 2 after invalidation", reads.Load())
	}
}

func TestWriteFields_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	store := newTestSheetStore(t, server.URL)

	err := store.WriteFields(context.Background(), "member-1", map[string]any{"rank": "Captain"})
	if !types.IsCode(err, types.ErrCodeUpstreamSheetStore) {
		t.Errorf("error = %v, want code %s", err, types.ErrCodeUpstreamSheetStore)
	}
}

func TestSyncRoles(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	store := newTestSheetStore(t, server.URL)

	if err := store.SyncRoles(context.Background(), "member-1"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if gotPath != "/members/member-1/roles/sync" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSyncRoles_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	store := newTestSheetStore(t, server.URL)

	err := store.SyncRoles(context.Background(), "member-1")
	if !types.IsCode(err, types.ErrCodeUpstreamSheetStore) {
		t.Errorf("error = %v, want code %s", err, types.ErrCodeUpstreamSheetStore)
	}
}
