// Package scheduler implements the mission reminder and auto-start loop.
//
// A single sweep runs once per tick over every non-terminal mission:
//   - Missions approaching their start time get reminders at fixed
//     minutes-before-start offsets, each fired at most once.
//   - Ready missions reaching their start time are transitioned to
//     in-progress, their participants are pulled into the mission voice
//     channel, and the start is announced.
//
// Missions are independent: one mission's failure never aborts the sweep
// for the others. Notification failures are logged, never retried here; the
// next tick provides natural retry for anything still relevant.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fleetcore/internal/types"
)

// MissionStore abstracts the persistence operations the loop needs.
type MissionStore interface {
	LoadMissions() (map[string]*types.Mission, error)
	SaveMissions(map[string]*types.Mission) error
}

// Notifier delivers formatted announcements to the configured channel.
// Callers treat delivery as fire-and-forget: failures are logged and the
// triggering state transition stands.
type Notifier interface {
	AnnounceReminder(ctx context.Context, m *types.Mission, minutesLeft int) error
	AnnounceStart(ctx context.Context, m *types.Mission) error
}

// VoiceMover pulls a mission's connected participants into its voice
// channel, when the mission created one.
type VoiceMover interface {
	MoveToMissionChannel(ctx context.Context, m *types.Mission) error
}

// EventSink receives profile events emitted when missions complete.
// Satisfied by the profile sync queue.
type EventSink interface {
	Enqueue(ctx context.Context, ev types.ProfileEvent) error
}

// Config holds the dependencies for creating a Loop.
type Config struct {
	Store    MissionStore
	Notifier Notifier
	Voice    VoiceMover // optional
	Events   EventSink  // optional
	Logger   *slog.Logger

	TickInterval time.Duration    // default 1 minute
	Clock        func() time.Time // injectable for tests; defaults to time.Now UTC
}

// Loop owns the in-memory mission collection and runs the periodic sweep.
// Mutating operations persist the collection before returning. The mutex
// serializes the sweep against the command-handler mutation surface.
type Loop struct {
	store    MissionStore
	notifier Notifier
	voice    VoiceMover
	events   EventSink
	logger   *slog.Logger
	tick     time.Duration
	clock    func() time.Time

	mu       sync.Mutex
	missions map[string]*types.Mission
}

// New creates a Loop and loads the mission collection. A load failure is a
// fatal startup error.
func New(cfg Config) (*Loop, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	missions, err := cfg.Store.LoadMissions()
	if err != nil {
		return nil, fmt.Errorf("scheduler: loading missions: %w", err)
	}

	return &Loop{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		voice:    cfg.Voice,
		events:   cfg.Events,
		logger:   logger,
		tick:     tick,
		clock:    clock,
		missions: missions,
	}, nil
}

// Run executes the sweep on a fixed cadence until ctx is cancelled, then
// persists current state and exits cleanly.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.logger.Info("mission scheduler started", "tick", l.tick.String())

	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			err := l.store.SaveMissions(l.missions)
			l.mu.Unlock()
			if err != nil {
				l.logger.Error("final mission save on shutdown failed", "error", err)
			}
			l.logger.Info("mission scheduler stopped")
			return nil
		case <-ticker.C:
			l.Sweep(ctx, l.clock())
		}
	}
}

// Sweep runs one pass over all non-terminal missions. Exported so tests and
// operator tooling can drive the loop with a simulated clock.
func (l *Loop) Sweep(ctx context.Context, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, m := range l.missions {
		if m.Status.Terminal() {
			continue
		}
		mutated := l.processMission(ctx, m, now)
		changed = changed || mutated
	}
	if changed {
		if err := l.store.SaveMissions(l.missions); err != nil {
			l.logger.Error("persisting missions after sweep failed", "error", err)
		}
	}
}

// processMission handles reminders and auto-start for one mission. Panics
// and errors are contained here so the sweep continues for other missions.
// Returns whether the mission was mutated.
func (l *Loop) processMission(ctx context.Context, m *types.Mission, now time.Time) (mutated bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic while processing mission",
				"mission_id", m.ID,
				"panic", r,
			)
		}
	}()

	minutes := m.MinutesUntilStart(now)

	// Auto-start window: the mission is due within the current tick.
	if minutes >= 0 && minutes <= 1 && m.Status == types.MissionReady {
		return l.autoStart(ctx, m)
	}

	if minutes > 1 && (m.Status == types.MissionRecruiting || m.Status == types.MissionReady) {
		return l.fireReminders(ctx, m, minutes)
	}

	return false
}

// fireReminders applies first-crossing semantics: every unfired offset the
// clock has passed is marked fired, and a single reminder is emitted for the
// closest one. Tick jitter around an offset boundary therefore still yields
// exactly one reminder per offset.
func (l *Loop) fireReminders(ctx context.Context, m *types.Mission, minutes int) (mutated bool) {
	var crossed []int
	for _, offset := range types.ReminderOffsets {
		if minutes <= offset && !m.HasFiredReminder(offset) {
			crossed = append(crossed, offset)
		}
	}
	if len(crossed) == 0 {
		return false
	}

	sort.Ints(crossed)
	for _, offset := range crossed {
		m.RecordReminder(offset)
	}

	// Announce only the nearest mark; the larger offsets were skipped over
	// (late creation or missed ticks) and announcing them now would be noise.
	nearest := crossed[0]
	if err := l.notifier.AnnounceReminder(ctx, m, minutes); err != nil {
		l.logger.Warn("reminder announcement failed",
			"mission_id", m.ID,
			"offset_minutes", nearest,
			"error", err,
		)
	} else {
		l.logger.Info("mission reminder sent",
			"mission_id", m.ID,
			"offset_minutes", nearest,
			"minutes_until_start", minutes,
		)
	}
	return true
}

// autoStart transitions a ready mission to in-progress at its start time,
// moves connected members into the mission voice channel, and announces.
func (l *Loop) autoStart(ctx context.Context, m *types.Mission) (mutated bool) {
	if err := m.Transition(types.MissionInProgress, ""); err != nil {
		l.logger.Error("auto-start transition rejected",
			"mission_id", m.ID,
			"error", err,
		)
		return false
	}
	l.logger.Info("mission auto-started",
		"mission_id", m.ID,
		"name", m.Name,
		"participants", len(m.Participants),
	)

	if l.voice != nil && m.VoiceChannelID != "" {
		if err := l.voice.MoveToMissionChannel(ctx, m); err != nil {
			l.logger.Warn("moving participants to voice channel failed",
				"mission_id", m.ID,
				"voice_channel_id", m.VoiceChannelID,
				"error", err,
			)
		}
	}

	if err := l.notifier.AnnounceStart(ctx, m); err != nil {
		l.logger.Warn("start announcement failed",
			"mission_id", m.ID,
			"error", err,
		)
	}
	return true
}
