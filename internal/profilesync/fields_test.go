package profilesync

import (
	"testing"
	"time"

	"fleetcore/internal/types"
)

func TestDeriveFields(t *testing.T) {
	ts := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rfc := ts.Format(time.RFC3339)

	tests := []struct {
		name string
		ev   types.ProfileEvent
		want map[string]any
	}{
		{
			name: "onboarding complete",
			ev:   types.ProfileEvent{Kind: types.EventOnboardingComplete, MemberID: "m1", Timestamp: ts},
			want: map[string]any{"status": "active", "onboarded_at": rfc},
		},
		{
			name: "mission complete",
			ev: types.ProfileEvent{
				Kind: types.EventMissionComplete, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"mission_name": "Convoy Escort", "missions_completed": 7},
			},
			want: map[string]any{
				"last_mission_at":    rfc,
				"last_mission_name":  "Convoy Escort",
				"missions_completed": 7,
			},
		},
		{
			name: "certification",
			ev: types.ProfileEvent{
				Kind: types.EventCertificationGrant, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"certification": "Capital Helm"},
			},
			want: map[string]any{"last_certification": "Capital Helm", "last_certification_at": rfc},
		},
		{
			name: "rank update",
			ev: types.ProfileEvent{
				Kind: types.EventRankUpdated, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"rank": "Commander"},
			},
			want: map[string]any{"rank": "Commander", "rank_updated_at": rfc},
		},
		{
			name: "promotion records actor",
			ev: types.ProfileEvent{
				Kind: types.EventPromotionApproved, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"new_rank": "Captain"}, ActorID: "admiral-1",
			},
			want: map[string]any{"rank": "Captain", "last_promotion_at": rfc, "promoted_by": "admiral-1"},
		},
		{
			name: "division reassignment",
			ev: types.ProfileEvent{
				Kind: types.EventDivisionReassigned, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"division": "security"},
			},
			want: map[string]any{"division": "security", "division_updated_at": rfc},
		},
		{
			name: "reason annotated",
			ev: types.ProfileEvent{
				Kind: types.EventAwardGranted, MemberID: "m1", Timestamp: ts,
				Payload: map[string]any{"award": "Distinguished Service"},
				Reason:  "fleet week standout",
			},
			want: map[string]any{
				"last_award":         "Distinguished Service",
				"last_award_at":      rfc,
				"last_update_reason": "fleet week standout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveFields(tt.ev)
			if len(got) != len(tt.want) {
				t.Fatalf("fields = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %q = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
