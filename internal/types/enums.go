package types

import "fmt"

// MissionStatus represents the lifecycle state of a Mission.
type MissionStatus string

const (
	MissionRecruiting MissionStatus = "recruiting"
	MissionReady      MissionStatus = "ready"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionCancelled  MissionStatus = "cancelled"
)

// Terminal reports whether the status permits no further mutation.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionCancelled
}

// ParseMissionStatus validates a persisted status tag. Unknown tags are a
// data-integrity failure, never silently defaulted.
func ParseMissionStatus(s string) (MissionStatus, error) {
	switch MissionStatus(s) {
	case MissionRecruiting, MissionReady, MissionInProgress, MissionCompleted, MissionCancelled:
		return MissionStatus(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown mission status %q", s), nil)
}

// MissionType categorizes the kind of cooperative activity.
type MissionType string

const (
	MissionTypeCombat      MissionType = "combat"
	MissionTypeCargo       MissionType = "cargo"
	MissionTypeMining      MissionType = "mining"
	MissionTypeSalvage     MissionType = "salvage"
	MissionTypeExploration MissionType = "exploration"
	MissionTypeMedical     MissionType = "medical"
	MissionTypeTraining    MissionType = "training"
	MissionTypeSocial      MissionType = "social"
)

// ParseMissionType validates a persisted mission-type tag.
func ParseMissionType(s string) (MissionType, error) {
	switch MissionType(s) {
	case MissionTypeCombat, MissionTypeCargo, MissionTypeMining, MissionTypeSalvage,
		MissionTypeExploration, MissionTypeMedical, MissionTypeTraining, MissionTypeSocial:
		return MissionType(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown mission type %q", s), nil)
}

// Difficulty rates the expected challenge of a mission.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// ParseDifficulty validates a persisted difficulty tag.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExtreme:
		return Difficulty(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown difficulty %q", s), nil)
}

// OrderStatus represents the lifecycle state of an Order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderActive    OrderStatus = "active"
	OrderCompleted OrderStatus = "completed"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status is final. Completed, expired, and
// cancelled are mutually exclusive and permit no further transition.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderExpired || s == OrderCancelled
}

// ParseOrderStatus validates a persisted order status tag.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderPending, OrderActive, OrderCompleted, OrderExpired, OrderCancelled:
		return OrderStatus(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown order status %q", s), nil)
}

// OrderKind distinguishes the order variants.
type OrderKind string

const (
	OrderKindMission  OrderKind = "mission"
	OrderKindMajor    OrderKind = "major"
	OrderKindDivision OrderKind = "division"
)

// ParseOrderKind validates a persisted order-kind tag.
func ParseOrderKind(s string) (OrderKind, error) {
	switch OrderKind(s) {
	case OrderKindMission, OrderKindMajor, OrderKindDivision:
		return OrderKind(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown order kind %q", s), nil)
}

// OrderPriority determines ordering and display weight for orders.
type OrderPriority string

const (
	PriorityLow      OrderPriority = "low"
	PriorityNormal   OrderPriority = "normal"
	PriorityHigh     OrderPriority = "high"
	PriorityCritical OrderPriority = "critical"
)

// ParseOrderPriority validates a persisted priority tag.
func ParseOrderPriority(s string) (OrderPriority, error) {
	switch OrderPriority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return OrderPriority(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown order priority %q", s), nil)
}

// Weight maps a priority to a sortable integer. Higher sorts first.
func (p OrderPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

// EventKind identifies the kind of profile update event flowing into the
// batching queue.
type EventKind string

const (
	EventOnboardingComplete EventKind = "onboarding_complete"
	EventMissionComplete    EventKind = "mission_complete"
	EventCertificationGrant EventKind = "certification_granted"
	EventEvaluationComplete EventKind = "evaluation_complete"
	EventRankUpdated        EventKind = "rank_updated"
	EventPromotionApproved  EventKind = "promotion_approved"
	EventAwardGranted       EventKind = "award_granted"
	EventDivisionReassigned EventKind = "division_reassigned"
)

// ParseEventKind validates an event-kind tag.
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case EventOnboardingComplete, EventMissionComplete, EventCertificationGrant,
		EventEvaluationComplete, EventRankUpdated, EventPromotionApproved,
		EventAwardGranted, EventDivisionReassigned:
		return EventKind(s), nil
	}
	return "", NewAppError(ErrCodeDataUnknownEnum, fmt.Sprintf("unknown event kind %q", s), nil)
}

// HighPriority reports whether events of this kind must be flushed
// synchronously rather than waiting for the periodic drain. The triggering
// handler needs read-your-writes for these.
func (k EventKind) HighPriority() bool {
	return k == EventRankUpdated || k == EventOnboardingComplete
}

// RequiresRoleSync reports whether events of this kind require a role
// reconciliation pass after the profile fields are written.
func (k EventKind) RequiresRoleSync() bool {
	switch k {
	case EventRankUpdated, EventPromotionApproved, EventOnboardingComplete, EventDivisionReassigned:
		return true
	}
	return false
}
