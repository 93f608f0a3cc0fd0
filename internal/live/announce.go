package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/callboard/internal/correlator"
	"github.com/sweeney/callboard/internal/phone"
)

// callPayload is the JSON published for each call state change.
type callPayload struct {
	Event            string              `json:"event"`
	Description      string              `json:"description"`
	SessionID        string              `json:"session_id"`
	Incoming         bool                `json:"incoming"`
	From             correlator.Endpoint `json:"from"`
	To               correlator.Endpoint `json:"to"`
	Agent            string              `json:"agent,omitempty"`
	Timestamp        string              `json:"timestamp"`
	RingDuration     *float64            `json:"ring_duration_seconds,omitempty"`
	Cause            string              `json:"cause,omitempty"`
	CauseDescription string              `json:"cause_description,omitempty"`
	TalkDuration     *float64            `json:"talk_duration_seconds,omitempty"`
	TotalDuration    *float64            `json:"total_duration_seconds,omitempty"`
	Duration         string              `json:"duration,omitempty"`
}

var stateDescriptions = map[correlator.CallState]string{
	correlator.StateRinging:  "A call is ringing and waiting to be answered",
	correlator.StateAnswered: "The call has been answered and parties are now connected",
	correlator.StateHungUp:   "The call has ended",
}

// CallTopic is where a session's state change is published.
func (p *Pusher) CallTopic(id string, state correlator.CallState) string {
	return fmt.Sprintf("%s/call/%s/%s", p.prefix, id, state)
}

func (p *Pusher) announce(ctx context.Context, change correlator.CallStateChange) error {
	payload := callPayload{
		Event:       string(change.State),
		Description: stateDescriptions[change.State],
		SessionID:   change.SessionID,
		Incoming:    change.Incoming,
		From:        change.From,
		To:          change.To,
		Agent:       change.Agent,
		Timestamp:   change.Timestamp.UTC().Format(time.RFC3339),
	}

	switch change.State {
	case correlator.StateAnswered:
		payload.RingDuration = &change.RingDuration
	case correlator.StateHungUp:
		payload.Cause = change.Cause
		payload.CauseDescription = change.CauseDescription
		payload.TalkDuration = &change.TalkDuration
		payload.TotalDuration = &change.TotalDuration
		payload.Duration = phone.FormatDuration(change.TotalDuration)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	topic := p.CallTopic(change.SessionID, change.State)
	slog.Info("publishing call state", "topic", topic)
	return p.pub.Publish(ctx, topic, data)
}
