package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"fleetcore/internal/types"
)

// archiveFile holds expired orders removed from the active collection, as
// gzip-compressed JSON lines. Each cleanup pass appends one gzip member, so
// the file stays a valid multistream archive.
const archiveFile = "orders_archive.jsonl.gz"

// ArchiveExpiredOrders removes EXPIRED orders older than olderThan from the
// given collection, appending their records to the compressed archive. The
// caller is responsible for persisting the pruned collection afterwards.
// Returns the ids of the archived orders.
//
// Archived orders stay referenced by the monthly cycle's id lists; monthly
// evaluation counts an archived division order as completed.
func (s *Store) ArchiveExpiredOrders(orders map[string]*types.Order, olderThan time.Duration, now time.Time) ([]string, error) {
	cutoff := now.UTC().Add(-olderThan)

	var expired []*types.Order
	for _, o := range orders {
		if o.Status != types.OrderExpired {
			continue
		}
		reference := o.ModifiedAt
		if o.Completion != nil {
			reference = o.Completion.CompletedAt
		}
		if reference.Before(cutoff) {
			expired = append(expired, o)
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, archiveFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageWrite,
			fmt.Sprintf("opening archive %s", archiveFile), err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	ids := make([]string, 0, len(expired))
	for _, o := range expired {
		if err := enc.Encode(o.ToRecord()); err != nil {
			zw.Close()
			return nil, types.NewAppError(types.ErrCodeStorageWrite,
				fmt.Sprintf("encoding order %s into archive", o.ID), err)
		}
		ids = append(ids, o.ID)
	}
	if err := zw.Close(); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageWrite,
			"flushing archive gzip stream", err)
	}

	for _, id := range ids {
		delete(orders, id)
	}

	s.logger.Info("archived expired orders",
		"count", len(ids),
		"older_than", olderThan.String(),
	)
	return ids, nil
}

// ReadArchivedOrders decodes every record from the compressed archive.
// Used by operator tooling and tests; the hot path never reads the archive.
func (s *Store) ReadArchivedOrders() ([]types.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, archiveFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			fmt.Sprintf("opening archive %s", archiveFile), err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			"opening archive gzip stream", err)
	}
	zr.Multistream(true)
	defer zr.Close()

	var records []types.OrderRecord
	dec := json.NewDecoder(zr)
	for dec.More() {
		var rec types.OrderRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, types.NewAppError(types.ErrCodeStorageRead,
				"decoding archived order record", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
