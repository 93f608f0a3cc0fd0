// Package correlator turns successive snapshots of a session into
// lifecycle transitions: ringing, answered and hung up.
package correlator

import (
	"math"
	"time"

	"github.com/sweeney/callboard/internal/phone"
	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/timeline"
)

// callState tracks what has been emitted for a session.
type callState struct {
	rung     bool
	answered bool
	hungUp   bool
}

// Correlator remembers each session's last emitted state and emits a
// CallStateChange for every step a new snapshot has moved past. It is not
// safe for concurrent use.
type Correlator struct {
	calls map[string]*callState // keyed by session id
}

// New creates a new Correlator.
func New() *Correlator {
	return &Correlator{calls: make(map[string]*callState)}
}

// Prime records a snapshot's state without emitting anything, so sessions
// already in progress at startup do not replay their history.
func (c *Correlator) Prime(sum *timeline.Summary) {
	c.calls[sum.SessionID] = &callState{
		rung:     true,
		answered: sum.Answered,
		hungUp:   !sum.Active,
	}
}

// Process compares a session snapshot with what was seen before and returns
// the transitions in lifecycle order. channels are the session's records
// ordered by call timestamp and supply the timings.
func (c *Correlator) Process(sum *timeline.Summary, channels []record.Channel) []CallStateChange {
	if sum == nil || len(channels) == 0 {
		return nil
	}
	cs := c.calls[sum.SessionID]
	if cs == nil {
		cs = &callState{}
		c.calls[sum.SessionID] = cs
	}
	if cs.hungUp {
		return nil
	}

	first := channels[0]
	base := CallStateChange{
		SessionID: sum.SessionID,
		Incoming:  sum.Incoming != nil && *sum.Incoming,
		From:      Endpoint{Number: phone.E164(sum.FromNumber), Display: sum.FromDisplay},
		To:        Endpoint{Number: phone.E164(sum.ToNumber), Display: sum.ToDisplay},
		Agent:     sum.AgentDisplay,
	}
	answerAt, hasAnswer := answeredAt(channels)

	var changes []CallStateChange
	if !cs.rung {
		cs.rung = true
		change := base
		change.State = StateRinging
		change.Timestamp = epoch(first.CallTimestamp)
		changes = append(changes, change)
	}

	if sum.Answered && !cs.answered {
		cs.answered = true
		change := base
		change.State = StateAnswered
		if hasAnswer {
			change.Timestamp = epoch(answerAt)
			change.RingDuration = answerAt - first.CallTimestamp
		}
		changes = append(changes, change)
	}

	if !sum.Active {
		cs.hungUp = true
		change := base
		change.State = StateHungUp
		change.Cause = "normal"
		if sum.ErrorCode != "" {
			change.Cause = sum.ErrorCode
		}
		change.CauseDescription = HangupCause[change.Cause]
		if end, ok := hungUpAt(channels); ok {
			change.Timestamp = epoch(end)
			change.TotalDuration = end - first.CallTimestamp
			if sum.Answered && hasAnswer {
				change.TalkDuration = end - answerAt
			}
		}
		changes = append(changes, change)
	}

	return changes
}

// Retain forgets every session not in ids. Sessions that drop out of the
// live window no longer need tracking.
func (c *Correlator) Retain(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for id := range c.calls {
		if !keep[id] {
			delete(c.calls, id)
		}
	}
}

// ActiveCalls returns the number of sessions currently being tracked.
func (c *Correlator) ActiveCalls() int {
	return len(c.calls)
}

// answeredAt finds when the deciding leg was answered: the second leg of a
// call placed from an agent phone, otherwise the first agent leg that
// answered, otherwise the first leg.
func answeredAt(channels []record.Channel) (float64, bool) {
	first := channels[0]
	if first.ToAgent() {
		if len(channels) >= 2 && channels[1].AnswerTimestamp != nil {
			return *channels[1].AnswerTimestamp, true
		}
		return 0, false
	}
	for _, c := range channels[1:] {
		if c.ToAgent() && c.Answered && c.AnswerTimestamp != nil {
			return *c.AnswerTimestamp, true
		}
	}
	if first.AnswerTimestamp != nil {
		return *first.AnswerTimestamp, true
	}
	return 0, false
}

// hungUpAt is when the first leg ended, or the latest hangup of any leg if
// it did not report one.
func hungUpAt(channels []record.Channel) (float64, bool) {
	if ts := channels[0].HangupTimestamp; ts != nil {
		return *ts, true
	}
	latest, found := 0.0, false
	for _, c := range channels {
		if c.HangupTimestamp != nil && *c.HangupTimestamp > latest {
			latest, found = *c.HangupTimestamp, true
		}
	}
	return latest, found
}

func epoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}
