package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetcore/internal/fleet"
)

// ProgressUpdate is one append-only progress entry on an order.
type ProgressUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
}

// CompletionData is recorded once when an order reaches a terminal outcome.
type CompletionData struct {
	CompletedAt time.Time `json:"completed_at"`
	CompletedBy string    `json:"completed_by,omitempty"`
	Note        string    `json:"note,omitempty"`
}

// Order is a directive issued to the organization. The Kind tag selects
// which variant payload is populated.
type Order struct {
	ID          string
	Title       string
	Description string
	Kind        OrderKind
	StartTime   time.Time
	EndTime     time.Time
	AuthorID    string
	Priority    OrderPriority
	Status      OrderStatus
	CreatedAt   time.Time
	ModifiedAt  time.Time

	Completion   *CompletionData
	Participants []string
	Progress     []ProgressUpdate

	// Mission order payload.
	MissionType   MissionType
	RequiredRoles []string
	Objectives    []string

	// Major order payload.
	StrategicObjectives  []string
	ResourceRequirements []string
	DivisionOrderIDs     []string

	// Division order payload.
	Division          fleet.Division
	RequiredPersonnel int
	ParentOrderID     string
}

// NewOrder creates a pending order with a generated id. Start and end times
// are normalized to UTC.
func NewOrder(kind OrderKind, title, authorID string, start, end time.Time) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:         uuid.New().String(),
		Title:      title,
		Kind:       kind,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		AuthorID:   authorID,
		Priority:   PriorityNormal,
		Status:     OrderPending,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// AddProgressUpdate appends a progress entry. Terminal orders reject updates.
func (o *Order) AddProgressUpdate(author, text string) error {
	if o.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("order %s is %s and cannot be updated", o.ID, o.Status), nil)
	}
	o.Progress = append(o.Progress, ProgressUpdate{
		Timestamp: time.Now().UTC(),
		Author:    author,
		Text:      text,
	})
	o.ModifiedAt = time.Now().UTC()
	return nil
}

// AddParticipant records a member as working the order. Idempotent.
func (o *Order) AddParticipant(memberID string) error {
	if o.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("order %s is %s and cannot be joined", o.ID, o.Status), nil)
	}
	for _, id := range o.Participants {
		if id == memberID {
			return nil
		}
	}
	o.Participants = append(o.Participants, memberID)
	o.ModifiedAt = time.Now().UTC()
	return nil
}

// validOrderTransitions enumerates the allowed status moves. Transitions are
// monotonic; the three terminal outcomes are mutually exclusive.
var validOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderActive, OrderCancelled},
	OrderActive:  {OrderCompleted, OrderExpired, OrderCancelled},
}

// SetStatus transitions the order, recording completion data when the new
// status is terminal.
func (o *Order) SetStatus(to OrderStatus, actor, note string) error {
	if o.Status.Terminal() {
		return NewAppError(ErrCodeInvariantTerminal,
			fmt.Sprintf("order %s is already %s", o.ID, o.Status), nil)
	}
	allowed := false
	for _, next := range validOrderTransitions[o.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return NewAppError(ErrCodeInvariantTransition,
			fmt.Sprintf("order %s cannot go from %s to %s", o.ID, o.Status, to), nil)
	}

	o.Status = to
	o.ModifiedAt = time.Now().UTC()
	if to.Terminal() {
		o.Completion = &CompletionData{
			CompletedAt: time.Now().UTC(),
			CompletedBy: actor,
			Note:        note,
		}
	}
	return nil
}

// OrderRecord is the flat persistence representation of an Order.
type OrderRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Kind        string    `json:"kind"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AuthorID    string    `json:"author_id"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`

	Completion   *CompletionData  `json:"completion,omitempty"`
	Participants []string         `json:"participants,omitempty"`
	Progress     []ProgressUpdate `json:"progress,omitempty"`

	MissionType   string   `json:"mission_type,omitempty"`
	RequiredRoles []string `json:"required_roles,omitempty"`
	Objectives    []string `json:"objectives,omitempty"`

	StrategicObjectives  []string `json:"strategic_objectives,omitempty"`
	ResourceRequirements []string `json:"resource_requirements,omitempty"`
	DivisionOrderIDs     []string `json:"division_order_ids,omitempty"`

	Division          string `json:"division,omitempty"`
	RequiredPersonnel int    `json:"required_personnel,omitempty"`
	ParentOrderID     string `json:"parent_order_id,omitempty"`
}

// ToRecord maps the order to its persistence representation.
func (o *Order) ToRecord() OrderRecord {
	r := OrderRecord{
		ID:                   o.ID,
		Title:                o.Title,
		Description:          o.Description,
		Kind:                 string(o.Kind),
		StartTime:            o.StartTime.UTC(),
		EndTime:              o.EndTime.UTC(),
		AuthorID:             o.AuthorID,
		Priority:             string(o.Priority),
		Status:               string(o.Status),
		CreatedAt:            o.CreatedAt.UTC(),
		ModifiedAt:           o.ModifiedAt.UTC(),
		Completion:           o.Completion,
		Participants:         o.Participants,
		Progress:             o.Progress,
		MissionType:          string(o.MissionType),
		RequiredRoles:        o.RequiredRoles,
		Objectives:           o.Objectives,
		StrategicObjectives:  o.StrategicObjectives,
		ResourceRequirements: o.ResourceRequirements,
		DivisionOrderIDs:     o.DivisionOrderIDs,
		RequiredPersonnel:    o.RequiredPersonnel,
		ParentOrderID:        o.ParentOrderID,
	}
	if o.Division != "" {
		r.Division = string(o.Division)
	}
	return r
}

// OrderFromRecord reconstructs an Order from its persistence representation,
// validating enum tags and required fields.
func OrderFromRecord(r OrderRecord) (*Order, error) {
	if r.ID == "" || r.Title == "" {
		return nil, NewAppError(ErrCodeDataMissingField, "order record missing id or title", nil)
	}
	kind, err := ParseOrderKind(r.Kind)
	if err != nil {
		return nil, err
	}
	status, err := ParseOrderStatus(r.Status)
	if err != nil {
		return nil, err
	}
	priority := PriorityNormal
	if r.Priority != "" {
		if priority, err = ParseOrderPriority(r.Priority); err != nil {
			return nil, err
		}
	}

	o := &Order{
		ID:                   r.ID,
		Title:                r.Title,
		Description:          r.Description,
		Kind:                 kind,
		StartTime:            r.StartTime.UTC(),
		EndTime:              r.EndTime.UTC(),
		AuthorID:             r.AuthorID,
		Priority:             priority,
		Status:               status,
		CreatedAt:            r.CreatedAt.UTC(),
		ModifiedAt:           r.ModifiedAt.UTC(),
		Completion:           r.Completion,
		Participants:         r.Participants,
		RequiredRoles:        r.RequiredRoles,
		Objectives:           r.Objectives,
		StrategicObjectives:  r.StrategicObjectives,
		ResourceRequirements: r.ResourceRequirements,
		DivisionOrderIDs:     r.DivisionOrderIDs,
		RequiredPersonnel:    r.RequiredPersonnel,
		ParentOrderID:        r.ParentOrderID,
	}

	if r.MissionType != "" {
		if o.MissionType, err = ParseMissionType(r.MissionType); err != nil {
			return nil, err
		}
	}
	if r.Division != "" {
		if o.Division, err = fleet.ParseDivision(r.Division); err != nil {
			return nil, NewAppError(ErrCodeDataUnknownEnum,
				fmt.Sprintf("order %s has unknown division %q", r.ID, r.Division), err)
		}
	}
	if o.Completion != nil {
		c := *o.Completion
		c.CompletedAt = c.CompletedAt.UTC()
		o.Completion = &c
	}
	if len(r.Progress) > 0 {
		o.Progress = make([]ProgressUpdate, len(r.Progress))
		for i, p := range r.Progress {
			p.Timestamp = p.Timestamp.UTC()
			o.Progress[i] = p
		}
	}

	return o, nil
}
