package scheduler

import (
	"context"
	"fmt"
	"time"

	"fleetcore/internal/types"
)

// The methods in this file are the mutation surface consumed by the command
// handler layer. Every mutation persists the collection before returning, so
// a crash never loses an acknowledged change.
//
// Handlers call in from their own goroutines while the sweep runs on
// another; l.mu serializes all access to the mission map.

// CreateMission registers a new mission and persists it.
func (l *Loop) CreateMission(m *types.Mission) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.missions[m.ID]; exists {
		return types.NewAppError(types.ErrCodeInvariantDuplicate,
			fmt.Sprintf("mission %s already exists", m.ID), nil)
	}
	l.missions[m.ID] = m
	if err := l.store.SaveMissions(l.missions); err != nil {
		delete(l.missions, m.ID)
		return err
	}
	l.logger.Info("mission created",
		"mission_id", m.ID,
		"name", m.Name,
		"start_time", m.StartTime.Format(time.RFC3339),
	)
	return nil
}

// Mission returns the mission with the given id.
func (l *Loop) Mission(id string) (*types.Mission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.missionLocked(id)
}

func (l *Loop) missionLocked(id string) (*types.Mission, error) {
	m, ok := l.missions[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInvariantNotFound,
			fmt.Sprintf("mission %s not found", id), nil)
	}
	return m, nil
}

// ActiveMissions returns every non-terminal mission.
func (l *Loop) ActiveMissions() []*types.Mission {
	l.mu.Lock()
	defer l.mu.Unlock()

	var active []*types.Mission
	for _, m := range l.missions {
		if !m.Status.Terminal() {
			active = append(active, m)
		}
	}
	return active
}

// Join signs a member up for a mission and persists the change.
func (l *Loop) Join(missionID, memberID, ship, role string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.missionLocked(missionID)
	if err != nil {
		return err
	}
	if err := m.AddParticipant(memberID, ship, role); err != nil {
		return err
	}
	return l.store.SaveMissions(l.missions)
}

// Leave withdraws a member from a mission and persists the change.
func (l *Loop) Leave(missionID, memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.missionLocked(missionID)
	if err != nil {
		return err
	}
	if err := m.RemoveParticipant(memberID); err != nil {
		return err
	}
	return l.store.SaveMissions(l.missions)
}

// Transition applies an explicit status change (cancel, complete) and
// persists it. Completing a mission emits a profile event for every
// participant so their sheet records pick up the credit.
func (l *Loop) Transition(ctx context.Context, missionID string, to types.MissionStatus, actor string) error {
	l.mu.Lock()
	m, err := l.missionLocked(missionID)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if err := m.Transition(to, actor); err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.store.SaveMissions(l.missions); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	if to == types.MissionCompleted && l.events != nil {
		for memberID := range m.Participants {
			ev := types.NewProfileEvent(types.EventMissionComplete, memberID, map[string]any{
				"mission_name": m.Name,
				"mission_type": string(m.Type),
			})
			ev.ActorID = actor
			if err := l.events.Enqueue(ctx, ev); err != nil {
				l.logger.Warn("enqueueing mission completion event failed",
					"mission_id", m.ID,
					"member_id", memberID,
					"error", err,
				)
			}
		}
	}
	return nil
}

// Reschedule moves a mission's start time and persists it. The reminder
// schedule resets for the new time.
func (l *Loop) Reschedule(missionID string, startTime time.Time, actor string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.missionLocked(missionID)
	if err != nil {
		return err
	}
	if err := m.Reschedule(startTime, actor); err != nil {
		return err
	}
	return l.store.SaveMissions(l.missions)
}
