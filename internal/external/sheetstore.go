package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"fleetcore/internal/types"
)

// memberCacheSize bounds the read cache. Reads vastly outnumber writes on
// the member sheet, and a stale entry is only wrong until the next write
// for that member invalidates it.
const memberCacheSize = 256

// SheetStore talks to the spreadsheet-bridge service over its row-by-member
// HTTP API. The core never sees the sheet's column mapping or query syntax;
// that lives on the other side of the bridge.
type SheetStore struct {
	base    *BaseClient
	baseURL string
	cache   *lru.Cache[string, *types.MemberRecord]
}

// NewSheetStore creates a SheetStore against the given bridge base URL.
func NewSheetStore(base *BaseClient, baseURL string) (*SheetStore, error) {
	cache, err := lru.New[string, *types.MemberRecord](memberCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating member record cache: %w", err)
	}
	return &SheetStore{
		base:    base,
		baseURL: baseURL,
		cache:   cache,
	}, nil
}

// GetMemberRecord fetches one member's row, serving repeated reads from the
// LRU cache.
func (s *SheetStore) GetMemberRecord(ctx context.Context, memberID string) (*types.MemberRecord, error) {
	if rec, ok := s.cache.Get(memberID); ok {
		return rec, nil
	}

	url := fmt.Sprintf("%s/members/%s", s.baseURL, memberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building member record request: %w", err)
	}

	resp, err := s.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.NewAppError(types.ErrCodeInvariantNotFound,
			fmt.Sprintf("member %s has no sheet record", memberID), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(types.ErrCodeUpstreamSheetStore,
			fmt.Sprintf("member record fetch returned %d", resp.StatusCode), nil)
	}

	var rec types.MemberRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSheetStore,
			"decoding member record response", err)
	}

	s.cache.Add(memberID, &rec)
	return &rec, nil
}

// WriteFields writes a merged field map to one member's row and invalidates
// any cached record for that member.
func (s *SheetStore) WriteFields(ctx context.Context, memberID string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshaling field map for %s: %w", memberID, err)
	}

	url := fmt.Sprintf("%s/members/%s/fields", s.baseURL, memberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building field write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return types.NewAppError(types.ErrCodeUpstreamSheetStore,
			fmt.Sprintf("field write for %s returned %d", memberID, resp.StatusCode), nil)
	}

	s.cache.Remove(memberID)
	return nil
}

// SyncRoles asks the bridge to reconcile a member's chat-platform roles with
// their current sheet record.
func (s *SheetStore) SyncRoles(ctx context.Context, memberID string) error {
	url := fmt.Sprintf("%s/members/%s/roles/sync", s.baseURL, memberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("building role sync request: %w", err)
	}

	resp, err := s.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return types.NewAppError(types.ErrCodeUpstreamSheetStore,
			fmt.Sprintf("role sync for %s returned %d", memberID, resp.StatusCode), nil)
	}
	return nil
}
