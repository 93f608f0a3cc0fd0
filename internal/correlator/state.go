package correlator

import "time"

// CallState represents the lifecycle state of a call.
type CallState string

const (
	StateRinging  CallState = "ringing"
	StateAnswered CallState = "answered"
	StateHungUp   CallState = "hungup"
)

// Endpoint is one party of a call: the number and what it resolved to.
type Endpoint struct {
	Number  string `json:"number"`
	Display string `json:"name,omitempty"`
}

// CallStateChange is emitted by the correlator when a session transitions
// state.
type CallStateChange struct {
	State     CallState `json:"event"`
	SessionID string    `json:"session_id"`
	Incoming  bool      `json:"incoming"`
	From      Endpoint  `json:"from"`
	To        Endpoint  `json:"to"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Ringing -> Answered
	RingDuration float64 `json:"ring_duration_seconds,omitempty"`

	// HungUp fields
	Cause            string  `json:"cause,omitempty"`
	CauseDescription string  `json:"cause_description,omitempty"`
	TalkDuration     float64 `json:"talk_duration_seconds,omitempty"`
	TotalDuration    float64 `json:"total_duration_seconds,omitempty"`
}

// HangupCause maps hangup reason names to descriptions. A session without
// a reported reason counts as normal.
var HangupCause = map[string]string{
	"normal":        "The call was hung up normally by one of the parties",
	"canceled":      "The call was cancelled by the caller before being answered",
	"busy":          "The destination was busy",
	"redirected":    "The call was redirected elsewhere",
	"invalidnumber": "The dialled number does not exist",
	"declined":      "The call was rejected by the destination",
	"timeout":       "The destination did not answer within the timeout",
	"failed":        "The call could not be connected",
}
