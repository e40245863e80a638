package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ReminderOffsets are the minutes-before-start marks at which a scheduled
// mission reminder is emitted. Each offset fires at most once per mission.
var ReminderOffsets = []int{30, 15, 5}

// Participant is a member signed up for a mission, with the ship they are
// bringing and the role they will fill.
type Participant struct {
	MemberID string    `json:"member_id"`
	Ship     string    `json:"ship,omitempty"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// HistoryEntry is one append-only audit record on a mission.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

// Mission is the core domain entity representing a scheduled cooperative
// activity. All timestamps are UTC instants.
type Mission struct {
	ID          string
	Name        string
	LeaderID    string
	Type        MissionType
	Description string

	StartTime       time.Time
	MinParticipants int
	MaxParticipants int
	RequiredShips   []string

	Status       MissionStatus
	Tags         []string
	Difficulty   Difficulty
	DurationMins int // estimated duration in minutes; 0 means unspecified
	Requirements []string

	CreatedAt time.Time

	// Participants is keyed by member identity.
	Participants map[string]Participant

	// FiredReminders records which reminder offsets have already fired, in
	// ascending order. An offset present here must never fire again.
	FiredReminders []int

	// History is append-only and observed in append order.
	History []HistoryEntry

	// Optional references to externally owned chat-platform objects.
	ChannelID      string
	MessageID      string
	VoiceChannelID string
}

// NewMission creates a mission in the recruiting state with a generated id.
// The start time is normalized to UTC.
func NewMission(name, leaderID string, mtype MissionType, startTime time.Time, minP, maxP int) *Mission {
	now := time.Now().UTC()
	m := &Mission{
		ID:              uuid.New().String(),
		Name:            name,
		LeaderID:        leaderID,
		Type:            mtype,
		StartTime:       startTime.UTC(),
		MinParticipants: minP,
		MaxParticipants: maxP,
		Status:          MissionRecruiting,
		Difficulty:      DifficultyMedium,
		CreatedAt:       now,
		Participants:    make(map[string]Participant),
	}
	m.appendHistory(leaderID, "created", "")
	return m
}

// appendHistory adds an audit entry. History is never truncated or reordered.
func (m *Mission) appendHistory(actor, action, detail string) {
	m.History = append(m.History, HistoryEntry{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
	})
}

// AddParticipant signs a member up. Crossing MinParticipants promotes the
// mission from recruiting to ready as a side effect.
func (m *Mission) AddParticipant(memberID, ship, role string) error {
	if m.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("mission %s is %s and cannot be modified", m.ID, m.Status), nil)
	}
	if _, exists := m.Participants[memberID]; exists {
		return NewAppError(ErrCodeInvariantDuplicate,
			fmt.Sprintf("member %s already joined mission %s", memberID, m.ID), nil)
	}
	if m.MaxParticipants > 0 && len(m.Participants) >= m.MaxParticipants {
		return NewAppError(ErrCodeInvariantCapacity,
			fmt.Sprintf("mission %s is full (%d/%d)", m.ID, len(m.Participants), m.MaxParticipants), nil)
	}

	m.Participants[memberID] = Participant{
		MemberID: memberID,
		Ship:     ship,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	m.appendHistory(memberID, "joined", ship)

	if m.Status == MissionRecruiting && len(m.Participants) >= m.MinParticipants {
		m.Status = MissionReady
		m.appendHistory("", "status", string(MissionReady))
	}
	return nil
}

// RemoveParticipant withdraws a member. Dropping below MinParticipants
// demotes a ready mission back to recruiting.
func (m *Mission) RemoveParticipant(memberID string) error {
	if m.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("mission %s is %s and cannot be modified", m.ID, m.Status), nil)
	}
	if _, exists := m.Participants[memberID]; !exists {
		return NewAppError(ErrCodeInvariantNotFound,
			fmt.Sprintf("member %s is not on mission %s", memberID, m.ID), nil)
	}

	delete(m.Participants, memberID)
	m.appendHistory(memberID, "left", "")

	if m.Status == MissionReady && len(m.Participants) < m.MinParticipants {
		m.Status = MissionRecruiting
		m.appendHistory("", "status", string(MissionRecruiting))
	}
	return nil
}

// validMissionTransitions enumerates the allowed explicit status moves.
// Recruiting⇄ready toggling happens only as a join/leave side effect;
// cancellation is reachable from any non-terminal state.
var validMissionTransitions = map[MissionStatus][]MissionStatus{
	MissionRecruiting: {MissionCancelled},
	MissionReady:      {MissionInProgress, MissionCancelled},
	MissionInProgress: {MissionCompleted, MissionCancelled},
}

// Transition moves the mission to a new status via an explicit actor call.
func (m *Mission) Transition(to MissionStatus, actor string) error {
	if m.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("mission %s is already %s", m.ID, m.Status), nil)
	}
	for _, allowed := range validMissionTransitions[m.Status] {
		if allowed == to {
			m.Status = to
			m.appendHistory(actor, "status", string(to))
			return nil
		}
	}
	return NewAppError(ErrCodeInvariantTransition,
		fmt.Sprintf("mission %s cannot go from %s to %s", m.ID, m.Status, to), nil)
}

// Reschedule updates the start time. Rejected once the mission is terminal
// or already underway.
func (m *Mission) Reschedule(startTime time.Time, actor string) error {
	if m.Status.Terminal() || m.Status == MissionInProgress {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("mission %s is %s and cannot be rescheduled", m.ID, m.Status), nil)
	}
	m.StartTime = startTime.UTC()
	// A new start time resets the reminder schedule.
	m.FiredReminders = nil
	m.appendHistory(actor, "rescheduled", startTime.UTC().Format(time.RFC3339))
	return nil
}

// MinutesUntilStart returns whole minutes from now until the start time.
// Negative once the start time has passed.
func (m *Mission) MinutesUntilStart(now time.Time) int {
	return int(m.StartTime.Sub(now).Minutes())
}

// HasFiredReminder reports whether the given offset already fired.
func (m *Mission) HasFiredReminder(offset int) bool {
	for _, f := range m.FiredReminders {
		if f == offset {
			return true
		}
	}
	return false
}

// RecordReminder marks an offset as fired. Returns false if it had already
// fired, guaranteeing at-most-once semantics for each offset.
func (m *Mission) RecordReminder(offset int) bool {
	if m.HasFiredReminder(offset) {
		return false
	}
	m.FiredReminders = append(m.FiredReminders, offset)
	sort.Ints(m.FiredReminders)
	return true
}

// MissionRecord is the flat persistence representation of a Mission.
// Timestamps serialize as RFC 3339 and are normalized back to UTC on parse.
type MissionRecord struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	LeaderID       string                 `json:"leader_id"`
	Type           string                 `json:"mission_type"`
	Description    string                 `json:"description,omitempty"`
	StartTime      time.Time              `json:"start_time"`
	MinPart        int                    `json:"min_participants"`
	MaxPart        int                    `json:"max_participants"`
	RequiredShips  []string               `json:"required_ships,omitempty"`
	Status         string                 `json:"status"`
	Tags           []string               `json:"tags,omitempty"`
	Difficulty     string                 `json:"difficulty"`
	DurationMins   int                    `json:"duration_minutes,omitempty"`
	Requirements   []string               `json:"requirements,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	Participants   map[string]Participant `json:"participants"`
	FiredReminders []int                  `json:"fired_reminders,omitempty"`
	History        []HistoryEntry         `json:"history,omitempty"`
	ChannelID      string                 `json:"channel_id,omitempty"`
	MessageID      string                 `json:"message_id,omitempty"`
	VoiceChannelID string                 `json:"voice_channel_id,omitempty"`
}

// ToRecord maps the mission to its persistence representation.
func (m *Mission) ToRecord() MissionRecord {
	return MissionRecord{
		ID:             m.ID,
		Name:           m.Name,
		LeaderID:       m.LeaderID,
		Type:           string(m.Type),
		Description:    m.Description,
		StartTime:      m.StartTime.UTC(),
		MinPart:        m.MinParticipants,
		MaxPart:        m.MaxParticipants,
		RequiredShips:  m.RequiredShips,
		Status:         string(m.Status),
		Tags:           m.Tags,
		Difficulty:     string(m.Difficulty),
		DurationMins:   m.DurationMins,
		Requirements:   m.Requirements,
		CreatedAt:      m.CreatedAt.UTC(),
		Participants:   m.Participants,
		FiredReminders: m.FiredReminders,
		History:        m.History,
		ChannelID:      m.ChannelID,
		MessageID:      m.MessageID,
		VoiceChannelID: m.VoiceChannelID,
	}
}

// MissionFromRecord reconstructs a Mission from its persistence
// representation, validating enum tags and required fields.
func MissionFromRecord(r MissionRecord) (*Mission, error) {
	if r.ID == "" || r.Name == "" {
		return nil, NewAppError(ErrCodeDataMissingField, "mission record missing id or name", nil)
	}
	status, err := ParseMissionStatus(r.Status)
	if err != nil {
		return nil, err
	}
	mtype, err := ParseMissionType(r.Type)
	if err != nil {
		return nil, err
	}
	difficulty := DifficultyMedium
	if r.Difficulty != "" {
		if difficulty, err = ParseDifficulty(r.Difficulty); err != nil {
			return nil, err
		}
	}

	participants := make(map[string]Participant, len(r.Participants))
	for id, p := range r.Participants {
		p.JoinedAt = p.JoinedAt.UTC()
		participants[id] = p
	}
	history := make([]HistoryEntry, len(r.History))
	for i, h := range r.History {
		h.Timestamp = h.Timestamp.UTC()
		history[i] = h
	}
	if len(history) == 0 {
		history = nil
	}

	return &Mission{
		ID:              r.ID,
		Name:            r.Name,
		LeaderID:        r.LeaderID,
		Type:            mtype,
		Description:     r.Description,
		StartTime:       r.StartTime.UTC(),
		MinParticipants: r.MinPart,
		MaxParticipants: r.MaxPart,
		RequiredShips:   r.RequiredShips,
		Status:          status,
		Tags:            r.Tags,
		Difficulty:      difficulty,
		DurationMins:    r.DurationMins,
		Requirements:    r.Requirements,
		CreatedAt:       r.CreatedAt.UTC(),
		Participants:    participants,
		FiredReminders:  r.FiredReminders,
		History:         history,
		ChannelID:       r.ChannelID,
		MessageID:       r.MessageID,
		VoiceChannelID:  r.VoiceChannelID,
	}, nil
}
