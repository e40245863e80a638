// Package profilesync implements the profile update batching queue. Event
// sources enqueue profile events; the queue coalesces them per member and
// writes one merged field map per member per drain cycle to the external
// store, pacing chunks to bound burst load.
//
// High-priority events bypass the drain timer: their batch is flushed
// synchronously so the triggering handler observes its own write.
package profilesync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fleetcore/internal/types"
)

// FieldWriter is the narrow write contract against the external store.
type FieldWriter interface {
	WriteFields(ctx context.Context, memberID string, fields map[string]any) error
}

// RoleSyncer reconciles a member's chat-platform roles after their profile
// fields change.
type RoleSyncer interface {
	SyncRoles(ctx context.Context, memberID string) error
}

// Handler receives the events of a flushed batch, one call per event of a
// subscribed kind.
type Handler func(ctx context.Context, event types.ProfileEvent)

// Batch is the coalesced set of pending field updates for one member.
// At most one batch per member is in flight at any time.
type Batch struct {
	MemberID         string
	Fields           map[string]any
	Events           []types.ProfileEvent
	RequiresRoleSync bool
	CreatedAt        time.Time
}

// priority orders batches within a drain pass. Higher flushes first.
func (b *Batch) priority() int {
	p := 0
	for _, ev := range b.Events {
		w := 1
		if ev.Kind.HighPriority() {
			w = 10
		}
		if w > p {
			p = w
		}
	}
	if b.RequiresRoleSync {
		p++
	}
	return p
}

// Config holds the dependencies and tunables for creating a Queue.
type Config struct {
	Writer FieldWriter
	Roles  RoleSyncer // optional
	Logger *slog.Logger

	FlushInterval time.Duration // periodic drain cadence; default 30s
	ChunkSize     int           // batches flushed per chunk; default 5
	ChunkPacing   time.Duration // minimum spacing between chunks; default 2s

	Clock func() time.Time
}

// Queue owns the pending batch map. Producers only call Enqueue; nothing
// else mutates the map.
type Queue struct {
	writer FieldWriter
	roles  RoleSyncer
	logger *slog.Logger

	flushInterval time.Duration
	chunkSize     int
	limiter       *rate.Limiter
	clock         func() time.Time

	mu      sync.Mutex
	pending map[string]*Batch
	subs    map[types.EventKind][]Handler
}

// New creates a Queue.
func New(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 5
	}
	pacing := cfg.ChunkPacing
	if pacing <= 0 {
		pacing = 2 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Queue{
		writer:        cfg.Writer,
		roles:         cfg.Roles,
		logger:        logger,
		flushInterval: flushInterval,
		chunkSize:     chunkSize,
		limiter:       rate.NewLimiter(rate.Every(pacing), 1),
		clock:         clock,
		pending:       make(map[string]*Batch),
		subs:          make(map[types.EventKind][]Handler),
	}
}

// Subscribe registers a handler for events of the given kind. The
// registration table is built once at startup; Subscribe is not safe to
// call once Run has started.
func (q *Queue) Subscribe(kind types.EventKind, h Handler) {
	q.subs[kind] = append(q.subs[kind], h)
}

// Enqueue merges the event's derived field updates into the member's pending
// batch, last writer wins per field. High-priority events flush the batch
// synchronously before returning, so the caller has read-your-writes against
// the external store.
func (q *Queue) Enqueue(ctx context.Context, ev types.ProfileEvent) error {
	if ev.MemberID == "" {
		return types.NewAppError(types.ErrCodeDataMissingField, "profile event has no member id", nil)
	}
	fields := DeriveFields(ev)

	q.mu.Lock()
	b, ok := q.pending[ev.MemberID]
	if !ok {
		b = &Batch{
			MemberID:  ev.MemberID,
			Fields:    make(map[string]any),
			CreatedAt: q.clock(),
		}
		q.pending[ev.MemberID] = b
	}
	for k, v := range fields {
		b.Fields[k] = v
	}
	b.Events = append(b.Events, ev)
	if ev.Kind.RequiresRoleSync() {
		b.RequiresRoleSync = true
	}

	if !ev.Kind.HighPriority() {
		q.mu.Unlock()
		return nil
	}

	// Synchronous path: claim the batch so the periodic drain cannot race
	// on it, then flush outside the lock.
	delete(q.pending, ev.MemberID)
	q.mu.Unlock()

	if err := q.flushBatch(ctx, b); err != nil {
		return fmt.Errorf("high-priority flush for %s: %w", ev.MemberID, err)
	}
	return nil
}

// Run drains the queue on a fixed cadence until ctx is cancelled. A final
// drain on shutdown flushes whatever is still pending.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	q.logger.Info("profile sync queue started",
		"flush_interval", q.flushInterval.String(),
		"chunk_size", q.chunkSize,
	)

	for {
		select {
		case <-ctx.Done():
			// Best-effort final drain; the batches are transient and lost
			// otherwise.
			q.Drain(context.WithoutCancel(ctx))
			q.logger.Info("profile sync queue stopped")
			return nil
		case <-ticker.C:
			q.Drain(ctx)
		}
	}
}

// Drain snapshots and clears the pending map, then flushes the batches in
// priority order, in fixed-size chunks with pacing between chunks. One
// batch's failure never blocks the others.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	snapshot := make([]*Batch, 0, len(q.pending))
	for _, b := range q.pending {
		snapshot = append(snapshot, b)
	}
	q.pending = make(map[string]*Batch)
	q.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		pi, pj := snapshot[i].priority(), snapshot[j].priority()
		if pi != pj {
			return pi > pj
		}
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})

	flushed, failed := 0, 0
	for start := 0; start < len(snapshot); start += q.chunkSize {
		if start > 0 {
			if err := q.limiter.Wait(ctx); err != nil {
				q.logger.Warn("drain pacing interrupted", "error", err)
				// Keep flushing without pacing; losing the batches would be
				// worse than a burst during shutdown.
			}
		}
		end := min(start+q.chunkSize, len(snapshot))
		for _, b := range snapshot[start:end] {
			if err := q.flushBatch(ctx, b); err != nil {
				failed++
				q.logger.Error("batch flush failed",
					"member_id", b.MemberID,
					"events", len(b.Events),
					"error", err,
				)
				continue
			}
			flushed++
		}
	}

	q.logger.Info("drain pass complete",
		"flushed", flushed,
		"failed", failed,
	)
}

// PendingCount returns the number of members with an in-flight batch.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// flushBatch performs one external-store write for the batch, an optional
// role reconciliation, and the subscriber fan-out.
func (q *Queue) flushBatch(ctx context.Context, b *Batch) error {
	if err := q.writer.WriteFields(ctx, b.MemberID, b.Fields); err != nil {
		return err
	}

	if b.RequiresRoleSync && q.roles != nil {
		if err := q.roles.SyncRoles(ctx, b.MemberID); err != nil {
			// The field write is already durable; a failed role sync is
			// logged and picked up by the next event for this member.
			q.logger.Warn("role sync failed",
				"member_id", b.MemberID,
				"error", err,
			)
		}
	}

	for _, ev := range b.Events {
		for _, h := range q.subs[ev.Kind] {
			q.dispatch(ctx, h, ev)
		}
	}
	return nil
}

// dispatch invokes one subscriber, containing panics so a misbehaving
// handler cannot poison the drain pass.
func (q *Queue) dispatch(ctx context.Context, h Handler, ev types.ProfileEvent) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("event subscriber panicked",
				"kind", string(ev.Kind),
				"member_id", ev.MemberID,
				"panic", r,
			)
		}
	}()
	h(ctx, ev)
}
