// Package store owns the on-disk system of record: one JSON document per
// collection, UTF-8, pretty-printed, keyed by entity id. All other
// components access the collections only through Load/Save, never by direct
// file access.
//
// The adapter is deliberately availability-over-durability: a file that
// fails to parse is quarantined (renamed to a timestamped backup) and load
// proceeds with an empty collection. Data loss is logged for operator
// follow-up rather than surfaced as a hard failure.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fleetcore/internal/types"
)

const (
	missionsFile = "missions.json"
	ordersFile   = "orders.json"
	cycleFile    = "monthly_cycle.json"
)

// Store is the persistence adapter for the mission, order, and cycle
// collections. Load and Save are serialized by a single mutex so overlapping
// goroutine suspension points never interleave partial writes.
type Store struct {
	dir    string
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time // injectable for backup-name determinism in tests
}

// New creates a Store rooted at dir, creating the directory if needed.
// An uncreatable directory is a fatal startup error: the core must not run
// in a partially-initialized state.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewAppError(types.ErrCodeStartupDataDir,
			fmt.Sprintf("creating data directory %s", dir), err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoadMissions reads the mission collection. A missing file initializes and
// persists an empty collection; a corrupt file is quarantined.
func (s *Store) LoadMissions() (map[string]*types.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]types.MissionRecord)
	fresh, err := s.loadCollection(missionsFile, &records)
	if err != nil {
		return nil, err
	}

	missions := make(map[string]*types.Mission, len(records))
	for id, rec := range records {
		m, err := types.MissionFromRecord(rec)
		if err != nil {
			// One bad record poisons the whole file: quarantine and restart
			// from empty rather than serve a partially-valid collection.
			s.quarantine(missionsFile, err)
			if saveErr := s.saveLocked(missionsFile, map[string]types.MissionRecord{}); saveErr != nil {
				return nil, saveErr
			}
			return make(map[string]*types.Mission), nil
		}
		missions[id] = m
	}

	if fresh {
		if err := s.saveLocked(missionsFile, records); err != nil {
			return nil, err
		}
	}
	return missions, nil
}

// SaveMissions writes the full mission collection atomically.
func (s *Store) SaveMissions(missions map[string]*types.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]types.MissionRecord, len(missions))
	for id, m := range missions {
		records[id] = m.ToRecord()
	}
	return s.saveLocked(missionsFile, records)
}

// LoadOrders reads the order collection with the same recovery semantics as
// LoadMissions.
func (s *Store) LoadOrders() (map[string]*types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]types.OrderRecord)
	fresh, err := s.loadCollection(ordersFile, &records)
	if err != nil {
		return nil, err
	}

	orders := make(map[string]*types.Order, len(records))
	for id, rec := range records {
		o, err := types.OrderFromRecord(rec)
		if err != nil {
			s.quarantine(ordersFile, err)
			if saveErr := s.saveLocked(ordersFile, map[string]types.OrderRecord{}); saveErr != nil {
				return nil, saveErr
			}
			return make(map[string]*types.Order), nil
		}
		orders[id] = o
	}

	if fresh {
		if err := s.saveLocked(ordersFile, records); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// SaveOrders writes the full order collection atomically.
func (s *Store) SaveOrders(orders map[string]*types.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]types.OrderRecord, len(orders))
	for id, o := range orders {
		records[id] = o.ToRecord()
	}
	return s.saveLocked(ordersFile, records)
}

// LoadCycle reads the monthly cycle state. A missing or quarantined file
// yields an inactive zero-value cycle, which the order engine treats as
// "start a new month".
func (s *Store) LoadCycle() (*types.MonthlyCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, cycleFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := &types.MonthlyCycle{}
		if err := s.saveLocked(cycleFile, c.ToRecord()); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			fmt.Sprintf("reading %s", cycleFile), err)
	}

	var rec types.CycleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.quarantine(cycleFile, err)
		return &types.MonthlyCycle{}, nil
	}
	cycle, err := types.CycleFromRecord(rec)
	if err != nil {
		s.quarantine(cycleFile, err)
		return &types.MonthlyCycle{}, nil
	}
	return cycle, nil
}

// SaveCycle writes the monthly cycle state atomically.
func (s *Store) SaveCycle(c *types.MonthlyCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cycleFile, c.ToRecord())
}

// loadCollection reads and unmarshals one collection file into dst.
// Returns fresh=true when the file did not exist and the caller should
// persist the (empty) collection so subsequent loads see a valid file.
// A file that fails to parse is quarantined and dst is left empty.
func (s *Store) loadCollection(name string, dst any) (fresh bool, err error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, types.NewAppError(types.ErrCodeStorageRead,
			fmt.Sprintf("reading %s", name), err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		s.quarantine(name, err)
		return true, nil
	}
	return false, nil
}

// quarantine renames a corrupt collection file to a timestamped backup path
// and logs the data-loss event.
func (s *Store) quarantine(name string, cause error) {
	path := filepath.Join(s.dir, name)
	backup := fmt.Sprintf("%s.backup.%d", path, s.now().Unix())
	if err := os.Rename(path, backup); err != nil {
		s.logger.Error("failed to quarantine corrupt collection file",
			"file", name,
			"error", err,
		)
		return
	}
	s.logger.Error("collection file corrupt, quarantined and restarting from empty",
		"file", name,
		"backup", backup,
		"cause", cause,
	)
}

// saveLocked marshals v as pretty-printed JSON and writes it atomically via
// a temp file rename. On write failure it attempts one best-effort emergency
// dump to a distinctly-named path before returning the error.
// Caller must hold s.mu.
func (s *Store) saveLocked(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite,
			fmt.Sprintf("marshaling %s", name), err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.emergencyDump(name, data)
		return types.NewAppError(types.ErrCodeStorageWrite,
			fmt.Sprintf("writing %s", name), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		s.emergencyDump(name, data)
		return types.NewAppError(types.ErrCodeStorageWrite,
			fmt.Sprintf("renaming %s into place", name), err)
	}
	return nil
}

// emergencyDump writes the serialized collection to a distinctly-named path
// so the data is recoverable even when the primary write path fails.
func (s *Store) emergencyDump(name string, data []byte) {
	dump := filepath.Join(s.dir, fmt.Sprintf("%s.emergency.%d", name, s.now().Unix()))
	if err := os.WriteFile(dump, data, 0o644); err != nil {
		s.logger.Error("emergency dump failed",
			"file", name,
			"dump_path", dump,
			"error", err,
		)
		return
	}
	s.logger.Warn("primary save failed, wrote emergency dump",
		"file", name,
		"dump_path", dump,
	)
}
