package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fleetcore/internal/types"
)

func TestCreateMission_DuplicateRejected(t *testing.T) {
	store := &mockMissionStore{missions: map[string]*types.Mission{}}
	l := newTestLoop(t, store, &mockNotifier{})

	m := scheduledMission(time.Now().UTC().Add(time.Hour), 1, 4)
	if err := l.CreateMission(m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := l.CreateMission(m); !types.IsCode(err, types.ErrCodeInvariantDuplicate) {
		t.Errorf("duplicate create = %v, want code %s", err, types.ErrCodeInvariantDuplicate)
	}
}

func TestCreateMission_RollbackOnSaveFailure(t *testing.T) {
	store := &mockMissionStore{missions: map[string]*types.Mission{}, saveErr: fmt.Errorf("disk full")}
	l := newTestLoop(t, store, &mockNotifier{})

	m := scheduledMission(time.Now().UTC().Add(time.Hour), 1, 4)
	if err := l.CreateMission(m); err == nil {
		t.Fatal("expected save failure to surface")
	}
	if _, err := l.Mission(m.ID); !types.IsCode(err, types.ErrCodeInvariantNotFound) {
		t.Error("failed create left the mission registered")
	}
}

func TestActiveMissions_ExcludesTerminal(t *testing.T) {
	live := scheduledMission(time.Now().UTC().Add(time.Hour), 1, 4)
	done := scheduledMission(time.Now().UTC().Add(time.Hour), 1, 4)
	done.Status = types.MissionCompleted

	store := &mockMissionStore{missions: map[string]*types.Mission{
		live.ID: live,
		done.ID: done,
	}}
	l := newTestLoop(t, store, &mockNotifier{})

	active := l.ActiveMissions()
	if len(active) != 1 || active[0].ID != live.ID {
		t.Errorf("active missions = %v, want only the live one", active)
	}
}

func TestJoinLeave_Persisted(t *testing.T) {
	m := scheduledMission(time.Now().UTC().Add(time.Hour), 2, 4)
	store := &mockMissionStore{missions: map[string]*types.Mission{m.ID: m}}
	l := newTestLoop(t, store, &mockNotifier{})

	if err := l.Join(m.ID, "member-1", "Prospector", "miner"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := l.Leave(m.ID, "member-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if store.saveCalls != 2 {
		t.Errorf("save calls = %d, want 2", store.saveCalls)
	}

	if err := l.Join("missing", "member-1", "", ""); !types.IsCode(err, types.ErrCodeInvariantNotFound) {
		t.Errorf("join on unknown mission = %v, want code %s", err, types.ErrCodeInvariantNotFound)
	}
}

func TestTransition_CompletionEmitsEventsPerParticipant(t *testing.T) {
	m := scheduledMission(time.Now().UTC().Add(-time.Hour), 1, 4)
	_ = m.AddParticipant("member-1", "", "")
	_ = m.AddParticipant("member-2", "", "")
	m.Status = types.MissionInProgress

	store := &mockMissionStore{missions: map[string]*types.Mission{m.ID: m}}
	sink := &mockEventSink{}
	l, err := New(Config{Store: store, Notifier: &mockNotifier{}, Events: sink, Logger: testLogger()})
	if err != nil {
		t.Fatalf("creating loop: %v", err)
	}

	if err := l.Transition(context.Background(), m.ID, types.MissionCompleted, "leader-1"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want one per participant", len(sink.events))
	}
	for _, ev := range sink.events {
		if ev.Kind != types.EventMissionComplete {
			t.Errorf("event kind = %s, want %s", ev.Kind, types.EventMissionComplete)
		}
		if ev.Payload["mission_name"] != m.Name {
			t.Errorf("payload = %v", ev.Payload)
		}
		if ev.ActorID != "leader-1" {
			t.Errorf("actor = %s, want leader-1", ev.ActorID)
		}
	}
}

func TestTransition_CancellationEmitsNoEvents(t *testing.T) {
	m := scheduledMission(time.Now().UTC().Add(time.Hour), 1, 4)
	_ = m.AddParticipant("member-1", "", "")

	store := &mockMissionStore{missions: map[string]*types.Mission{m.ID: m}}
	sink := &mockEventSink{}
	l, err := New(Config{Store: store, Notifier: &mockNotifier{}, Events: sink, Logger: testLogger()})
	if err != nil {
		t.Fatalf("creating loop: %v", err)
	}

	if err := l.Transition(context.Background(), m.ID, types.MissionCancelled, "leader-1"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("cancellation enqueued %d events, want 0", len(sink.events))
	}
}

func TestTransition_SinkFailureDoesNotFailCompletion(t *testing.T) {
	m := scheduledMission(time.Now().UTC().Add(-time.Hour), 1, 4)
	_ = m.AddParticipant("member-1", "", "")
	m.Status = types.MissionInProgress

	store := &mockMissionStore{missions: map[string]*types.Mission{m.ID: m}}
	sink := &mockEventSink{err: fmt.Errorf("queue unavailable")}
	l, err := New(Config{Store: store, Notifier: &mockNotifier{}, Events: sink, Logger: testLogger()})
	if err != nil {
		t.Fatalf("creating loop: %v", err)
	}

	if err := l.Transition(context.Background(), m.ID, types.MissionCompleted, ""); err != nil {
		t.Fatalf("transition should succeed despite sink failure, got %v", err)
	}
	if m.Status != types.MissionCompleted {
		t.Errorf("status = %s, want %s", m.Status, types.MissionCompleted)
	}
}

func TestReschedule_PersistsAndResets(t *testing.T) {
	m := scheduledMission(time.Now().UTC().Add(30*time.Minute), 1, 4)
	m.FiredReminders = []int{30}

	store := &mockMissionStore{missions: map[string]*types.Mission{m.ID: m}}
	l := newTestLoop(t, store, &mockNotifier{})

	newStart := m.StartTime.Add(2 * time.Hour)
	if err := l.Reschedule(m.ID, newStart, "leader-1"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if len(m.FiredReminders) != 0 {
		t.Errorf("fired reminders = %v, want reset", m.FiredReminders)
	}
	if store.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1", store.saveCalls)
	}
}
