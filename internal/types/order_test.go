package types

import (
	"testing"
	"time"

	"fleetcore/internal/fleet"
)

func testOrder(kind OrderKind) *Order {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return NewOrder(kind, "Secure the Trade Lanes", "author-1", start, start.Add(7*24*time.Hour))
}

func TestNewOrder_InitialState(t *testing.T) {
	o := testOrder(OrderKindMission)

	if o.ID == "" {
		t.Fatal("expected generated id")
	}
	if o.Status != OrderPending {
		t.Errorf("status = %s, want %s", o.Status, OrderPending)
	}
	if o.Priority != PriorityNormal {
		t.Errorf("priority = %s, want %s", o.Priority, PriorityNormal)
	}
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		wantErr ErrorCode
	}{
		{"pending to active", OrderPending, OrderActive, ""},
		{"pending to cancelled", OrderPending, OrderCancelled, ""},
		{"active to completed", OrderActive, OrderCompleted, ""},
		{"active to expired", OrderActive, OrderExpired, ""},
		{"active to cancelled", OrderActive, OrderCancelled, ""},
		{"pending to completed", OrderPending, OrderCompleted, ErrCodeInvariantTransition},
		{"pending to expired", OrderPending, OrderExpired, ErrCodeInvariantTransition},
		{"completed is terminal", OrderCompleted, OrderActive, ErrCodeInvariantTerminal},
		{"expired is terminal", OrderExpired, OrderCompleted, ErrCodeInvariantTerminal},
		{"cancelled is terminal", OrderCancelled, OrderActive, ErrCodeInvariantTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder(OrderKindMission)
			o.Status = tt.from

			err := o.SetStatus(tt.to, "actor", "")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if o.Status != tt.to {
					t.Errorf("status = %s, want %s", o.Status, tt.to)
				}
				return
			}
			if !IsCode(err, tt.wantErr) {
				t.Errorf("error = %v, want code %s", err, tt.wantErr)
			}
		})
	}
}

func TestSetStatus_RecordsCompletionData(t *testing.T) {
	o := testOrder(OrderKindDivision)
	o.Status = OrderActive

	if err := o.SetStatus(OrderCompleted, "officer-7", "all objectives met"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if o.Completion == nil {
		t.Fatal("expected completion data on terminal transition")
	}
	if o.Completion.CompletedBy != "officer-7" || o.Completion.Note != "all objectives met" {
		t.Errorf("completion data = %+v", o.Completion)
	}
	if o.Completion.CompletedAt.IsZero() {
		t.Error("completion timestamp not set")
	}
}

func TestAddProgressUpdate(t *testing.T) {
	o := testOrder(OrderKindMajor)

	if err := o.AddProgressUpdate("officer-1", "phase one underway"); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(o.Progress) != 1 || o.Progress[0].Text != "phase one underway" {
		t.Errorf("progress = %+v", o.Progress)
	}

	o.Status = OrderCancelled
	if err := o.AddProgressUpdate("officer-1", "too late"); !IsCode(err, ErrCodeInvariantTerminal) {
		t.Errorf("progress on terminal = %v, want code %s", err, ErrCodeInvariantTerminal)
	}
}

func TestAddParticipant_Idempotent(t *testing.T) {
	o := testOrder(OrderKindMission)

	if err := o.AddParticipant("member-1"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := o.AddParticipant("member-1"); err != nil {
		t.Fatalf("repeat add should be a no-op, got %v", err)
	}
	if len(o.Participants) != 1 {
		t.Errorf("participants = %v, want one entry", o.Participants)
	}
}

func TestOrderRecordRoundTrip_DivisionVariant(t *testing.T) {
	o := testOrder(OrderKindDivision)
	o.Division = fleet.DivisionSecurity
	o.RequiredPersonnel = 5
	o.ParentOrderID = "major-1"
	o.Objectives = []string{"patrol lane A", "escort convoys"}
	o.Status = OrderActive
	_ = o.AddProgressUpdate("member-2", "first patrol done")

	got, err := OrderFromRecord(o.ToRecord())
	if err != nil {
		t.Fatalf("from record: %v", err)
	}

	if got.Kind != OrderKindDivision || got.Division != fleet.DivisionSecurity {
		t.Errorf("variant fields lost: kind=%s division=%s", got.Kind, got.Division)
	}
	if got.RequiredPersonnel != 5 || got.ParentOrderID != "major-1" {
		t.Errorf("division payload lost: %+v", got)
	}
	if len(got.Progress) != 1 || got.Progress[0].Timestamp.Location() != time.UTC {
		t.Errorf("progress lost or not UTC: %+v", got.Progress)
	}
}

func TestOrderRecordRoundTrip_MajorVariant(t *testing.T) {
	o := testOrder(OrderKindMajor)
	o.Priority = PriorityHigh
	o.StrategicObjectives = []string{"expand mining output"}
	o.DivisionOrderIDs = []string{"d1", "d2"}
	o.Status = OrderActive
	_ = o.SetStatus(OrderCompleted, "", "goal met")

	got, err := OrderFromRecord(o.ToRecord())
	if err != nil {
		t.Fatalf("from record: %v", err)
	}

	if got.Priority != PriorityHigh {
		t.Errorf("priority = %s, want %s", got.Priority, PriorityHigh)
	}
	if len(got.DivisionOrderIDs) != 2 {
		t.Errorf("division order ids lost: %v", got.DivisionOrderIDs)
	}
	if got.Completion == nil || got.Completion.Note != "goal met" {
		t.Errorf("completion lost: %+v", got.Completion)
	}
}

func TestOrderFromRecord_Validation(t *testing.T) {
	valid := testOrder(OrderKindMission).ToRecord()

	tests := []struct {
		name    string
		mutate  func(*OrderRecord)
		wantErr ErrorCode
	}{
		{"missing id", func(r *OrderRecord) { r.ID = "" }, ErrCodeDataMissingField},
		{"missing title", func(r *OrderRecord) { r.Title = "" }, ErrCodeDataMissingField},
		{"unknown kind", func(r *OrderRecord) { r.Kind = "sortie" }, ErrCodeDataUnknownEnum},
		{"unknown status", func(r *OrderRecord) { r.Status = "halted" }, ErrCodeDataUnknownEnum},
		{"unknown priority", func(r *OrderRecord) { r.Priority = "urgent" }, ErrCodeDataUnknownEnum},
		{"unknown division", func(r *OrderRecord) { r.Division = "marines" }, ErrCodeDataUnknownEnum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			_, err := OrderFromRecord(rec)
			if !IsCode(err, tt.wantErr) {
				t.Errorf("error = %v, want code %s", err, tt.wantErr)
			}
		})
	}
}

func TestPriorityWeightOrdering(t *testing.T) {
	if !(PriorityCritical.Weight() > PriorityHigh.Weight() &&
		PriorityHigh.Weight() > PriorityNormal.Weight() &&
		PriorityNormal.Weight() > PriorityLow.Weight()) {
		t.Error("priority weights do not order critical > high > normal > low")
	}
}
