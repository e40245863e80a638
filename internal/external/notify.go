package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleetcore/internal/cycle"
	"fleetcore/internal/types"
)

// Embed colors, matching the chat platform's integer color encoding.
const (
	colorInfo    = 0x3498db
	colorStart   = 0x2ecc71
	colorOrder   = 0xe67e22
	colorSuccess = 0xf1c40f
	colorFailure = 0x992d22
)

// embed is the chat platform's rich message payload.
type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// WebhookNotifier delivers formatted announcements to per-purpose webhook
// URLs. Callers treat it as fire-and-forget: a failed send is logged by the
// caller and never retried by this core.
type WebhookNotifier struct {
	base *BaseClient

	missionURL string
	orderURL   string
}

// NewWebhookNotifier creates a notifier. Either URL may be empty, in which
// case sends for that purpose are silently skipped (useful in test
// environments without configured channels).
func NewWebhookNotifier(base *BaseClient, missionURL, orderURL string) *WebhookNotifier {
	return &WebhookNotifier{
		base:       base,
		missionURL: missionURL,
		orderURL:   orderURL,
	}
}

// AnnounceReminder posts a start-time reminder for a mission.
func (n *WebhookNotifier) AnnounceReminder(ctx context.Context, m *types.Mission, minutesLeft int) error {
	e := embed{
		Title:       fmt.Sprintf("Mission starting in %d minutes", minutesLeft),
		Description: m.Name,
		Color:       colorInfo,
		Timestamp:   m.StartTime.Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Leader", Value: mention(m.LeaderID), Inline: true},
			{Name: "Participants", Value: fmt.Sprintf("%d/%d", len(m.Participants), m.MaxParticipants), Inline: true},
			{Name: "Type", Value: string(m.Type), Inline: true},
		},
	}
	return n.send(ctx, n.missionURL, e)
}

// AnnounceStart posts the start-of-mission announcement.
func (n *WebhookNotifier) AnnounceStart(ctx context.Context, m *types.Mission) error {
	e := embed{
		Title:       "Mission underway",
		Description: m.Name,
		Color:       colorStart,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Leader", Value: mention(m.LeaderID), Inline: true},
			{Name: "Participants", Value: fmt.Sprintf("%d", len(m.Participants)), Inline: true},
		},
	}
	return n.send(ctx, n.missionURL, e)
}

// AnnounceOrder posts a newly issued order.
func (n *WebhookNotifier) AnnounceOrder(ctx context.Context, o *types.Order) error {
	e := embed{
		Title:       fmt.Sprintf("New %s order: %s", o.Kind, o.Title),
		Description: o.Description,
		Color:       colorOrder,
		Timestamp:   o.StartTime.Format(time.RFC3339),
	}
	if o.Division != "" {
		e.Fields = append(e.Fields, embedField{Name: "Division", Value: o.Division.DisplayName(), Inline: true})
	}
	if len(o.Objectives) > 0 {
		e.Fields = append(e.Fields, embedField{Name: "Objectives", Value: bulletList(o.Objectives)})
	}
	if len(o.StrategicObjectives) > 0 {
		e.Fields = append(e.Fields, embedField{Name: "Strategic Objectives", Value: bulletList(o.StrategicObjectives)})
	}
	e.Fields = append(e.Fields, embedField{
		Name:   "Deadline",
		Value:  o.EndTime.Format("2006-01-02 15:04 MST"),
		Inline: true,
	})
	return n.send(ctx, n.orderURL, e)
}

// AnnounceMonthlyResult posts the monthly cycle outcome.
func (n *WebhookNotifier) AnnounceMonthlyResult(ctx context.Context, result cycle.MonthlyResult) error {
	e := embed{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Division Orders Completed", Value: fmt.Sprintf("%d of %d", result.Completed, result.Total), Inline: true},
			{Name: "Completion", Value: fmt.Sprintf("%.1f%%", result.CompletionPct), Inline: true},
		},
	}
	if result.GoalMet {
		e.Title = "Monthly operation: SUCCESS"
		e.Color = colorSuccess
	} else {
		e.Title = "Monthly operation: objectives not met"
		e.Color = colorFailure
	}
	return n.send(ctx, n.orderURL, e)
}

// send posts one embed to the given webhook URL.
func (n *WebhookNotifier) send(ctx context.Context, url string, e embed) error {
	if url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.base.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamNotifier, "webhook send failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return types.NewAppError(types.ErrCodeUpstreamNotifier,
			fmt.Sprintf("webhook returned %d", resp.StatusCode), nil)
	}
	return nil
}

func mention(memberID string) string {
	if memberID == "" {
		return "-"
	}
	return fmt.Sprintf("<@%s>", memberID)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("• ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
