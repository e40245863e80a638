package profilesync

import (
	"time"

	"fleetcore/internal/types"
)

// DeriveFields maps a profile event to the external-store field updates it
// implies. Column-name mapping to the spreadsheet lives in the store
// adapter; the names here are the adapter's logical field keys.
func DeriveFields(ev types.ProfileEvent) map[string]any {
	ts := ev.Timestamp.UTC().Format(time.RFC3339)
	fields := make(map[string]any)

	switch ev.Kind {
	case types.EventOnboardingComplete:
		fields["status"] = "active"
		fields["onboarded_at"] = ts

	case types.EventMissionComplete:
		fields["last_mission_at"] = ts
		if name, ok := ev.Payload["mission_name"]; ok {
			fields["last_mission_name"] = name
		}
		if count, ok := ev.Payload["missions_completed"]; ok {
			fields["missions_completed"] = count
		}

	case types.EventCertificationGrant:
		if cert, ok := ev.Payload["certification"]; ok {
			fields["last_certification"] = cert
		}
		fields["last_certification_at"] = ts

	case types.EventEvaluationComplete:
		if score, ok := ev.Payload["score"]; ok {
			fields["last_evaluation_score"] = score
		}
		fields["last_evaluation_at"] = ts

	case types.EventRankUpdated:
		if rank, ok := ev.Payload["rank"]; ok {
			fields["rank"] = rank
		}
		fields["rank_updated_at"] = ts

	case types.EventPromotionApproved:
		if rank, ok := ev.Payload["new_rank"]; ok {
			fields["rank"] = rank
		}
		fields["last_promotion_at"] = ts
		if ev.ActorID != "" {
			fields["promoted_by"] = ev.ActorID
		}

	case types.EventAwardGranted:
		if award, ok := ev.Payload["award"]; ok {
			fields["last_award"] = award
		}
		fields["last_award_at"] = ts

	case types.EventDivisionReassigned:
		if div, ok := ev.Payload["division"]; ok {
			fields["division"] = div
		}
		fields["division_updated_at"] = ts
	}

	if ev.Reason != "" {
		fields["last_update_reason"] = ev.Reason
	}
	return fields
}
