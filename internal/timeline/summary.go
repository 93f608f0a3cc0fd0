package timeline

import (
	"fmt"
	"math"

	"github.com/sweeney/callboard/internal/phone"
	"github.com/sweeney/callboard/internal/record"
)

// Summary is the one-line description of a session shown in call lists.
type Summary struct {
	SessionID         string    `json:"id"`
	StartTimestamp    float64   `json:"timestamp"`
	FromNumber        int64     `json:"from_no,omitempty"`
	FromDisplay       string    `json:"from_descr"`
	ToNumber          int64     `json:"to_no,omitempty"`
	ToDisplay         string    `json:"to_descr"`
	Incoming          *bool     `json:"incoming"`
	Answered          bool      `json:"answered"`
	Active            bool      `json:"active"`
	AgentDisplay      string    `json:"agent_info,omitempty"`
	ServiceDisplay    string    `json:"service_info,omitempty"`
	ErrorCode         string    `json:"error,omitempty"`
	UnansweredSeconds int       `json:"no_answer_time,omitempty"`
	Details           *Timeline `json:"details"`
}

// Summarize derives the session summary, including its timeline, from the
// session's channels ordered by call timestamp. It returns nil when there
// are no channels.
func Summarize(sessionID string, channels []record.Channel, resolve ResolveFunc) (*Summary, error) {
	return defaultSettings().summarize(sessionID, channels, resolve)
}

func (s settings) summarize(sessionID string, channels []record.Channel, resolve ResolveFunc) (*Summary, error) {
	if len(channels) == 0 {
		return nil, nil
	}
	resolve = memoize(resolve)
	first := channels[0]

	sum := &Summary{
		SessionID:      sessionID,
		StartTimestamp: first.CallTimestamp,
		Active:         first.Active,
	}

	var unanswered float64
	switch {
	case first.ToAgent():
		sum.Incoming = boolPtr(false)
		sum.AgentDisplay = agentDescription(first)
		if len(channels) >= 2 {
			sum.FromNumber = channels[1].FromNumber
			sum.ToNumber = channels[1].ToNumber
			sum.Answered = channels[1].Answered
		}
	case first.Incoming():
		sum.Incoming = boolPtr(true)
		sum.FromNumber = first.FromNumber
		sum.ToNumber = first.ToNumber
		sum.ServiceDisplay = first.ServiceNumberDescription
		if sum.ServiceDisplay == "" {
			sum.ServiceDisplay = "Unknown service number"
		}
		for _, c := range channels[1:] {
			if c.ToAgent() && c.Answered {
				sum.AgentDisplay = agentDescription(c)
				sum.Answered = true
				break
			}
		}
		if !sum.Answered && first.CallState == record.CallStateTerminated && first.HangupTimestamp != nil {
			unanswered = *first.HangupTimestamp - first.CallTimestamp
		}
	}

	if first.HangupReason.IsError() {
		name, err := first.HangupReason.Name()
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		sum.ErrorCode = name
	}
	if unanswered > s.unansweredThreshold {
		sum.UnansweredSeconds = int(math.Ceil(unanswered))
	}

	sum.FromDisplay = resolve(sum.FromNumber)
	sum.ToDisplay = resolve(sum.ToNumber)

	details, err := s.build(channels, resolve)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	sum.Details = details
	return sum, nil
}

func boolPtr(b bool) *bool { return &b }

func agentName(c record.Channel) string {
	switch {
	case c.AgentFirstName != "" && c.AgentLastName != "":
		return c.AgentFirstName + " " + c.AgentLastName
	case c.AgentFirstName != "":
		return c.AgentFirstName
	case c.AgentLastName != "":
		return c.AgentLastName
	case c.AgentEmail != "":
		return c.AgentEmail
	}
	return "Unknown agent"
}

// agentDescription renders the agent and phone a channel rang, e.g.
// «Kari Nordmann», Reception (+47 900 00 000).
func agentDescription(c record.Channel) string {
	location := c.LocationName
	if location == "" {
		location = c.LocationDescription
	}
	if location == "" {
		location = "Unknown internal phone"
	}
	number := "unknown number"
	if c.ToNumber != 0 {
		number = phone.Pretty(c.ToNumber, phone.NoBreakSpace)
	}
	return fmt.Sprintf("«%s», %s (%s)", agentName(c), location, number)
}
