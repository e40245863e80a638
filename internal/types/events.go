package types

import "time"

// ProfileEvent is one event-driven update to a member's profile, consumed by
// the batching queue. Events are produced by command handlers and other
// subsystems; the queue derives the actual field updates from the kind and
// payload.
type ProfileEvent struct {
	Kind      EventKind      `json:"kind"`
	MemberID  string         `json:"member_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// NewProfileEvent creates an event stamped with the current UTC time.
func NewProfileEvent(kind EventKind, memberID string, payload map[string]any) ProfileEvent {
	return ProfileEvent{
		Kind:      kind,
		MemberID:  memberID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// MemberRecord is the narrow view of a member's row in the external store
// that this core consumes. Column-name mapping and query syntax belong to
// the store adapter, not to this type.
type MemberRecord struct {
	MemberID string         `json:"member_id"`
	Fields   map[string]any `json:"fields"`
}
