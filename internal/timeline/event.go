package timeline

import (
	"math"
	"strconv"
)

// Instant is a point on a session timeline in epoch seconds. The zero value
// carries no timestamp (continuation cells); Never sorts after every finite
// instant and marks a channel that has not ended yet.
type Instant struct {
	sec float64
	set bool
}

// At returns the instant sec seconds after the epoch.
func At(sec float64) Instant { return Instant{sec: sec, set: true} }

// Never returns the open-ended instant used for unfinished channels.
func Never() Instant { return Instant{sec: math.Inf(1), set: true} }

// IsZero reports whether the instant carries no timestamp.
func (i Instant) IsZero() bool { return !i.set }

// IsNever reports whether the instant is the open-ended marker.
func (i Instant) IsNever() bool { return i.set && math.IsInf(i.sec, 1) }

// Seconds returns the epoch seconds; +Inf for Never and 0 for the zero value.
func (i Instant) Seconds() float64 { return i.sec }

func (i Instant) within(start Instant, window float64) bool {
	return start.sec <= i.sec && i.sec <= start.sec+window
}

// MarshalJSON renders finite instants as numbers and both the zero value and
// Never as null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.set || math.IsInf(i.sec, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, i.sec, 'f', -1, 64), nil
}

// Category classifies what a timeline cell shows.
type Category string

const (
	CategoryCall       Category = "call"
	CategoryWait       Category = "wait"
	CategoryAnswer     Category = "answer"
	CategoryTalk       Category = "talk"
	CategoryHangup     Category = "hangup"
	CategoryUnfinished Category = "unfinished"
)

// continuation returns the category an idle cell inherits from the cell
// above it. Terminal categories do not propagate.
func (c Category) continuation() (Category, bool) {
	switch c {
	case CategoryCall, CategoryWait:
		return CategoryWait, true
	case CategoryAnswer, CategoryTalk:
		return CategoryTalk, true
	default:
		return "", false
	}
}

// Event is one thing that happened on a channel, placed in a column of the
// timeline.
type Event struct {
	Timestamp    Instant  `json:"timestamp"`
	Category     Category `json:"category"`
	Incoming     bool     `json:"incoming"`
	ToAgent      bool     `json:"to_agent"`
	ToService    bool     `json:"to_service"`
	Answered     bool     `json:"answered"`
	Active       bool     `json:"active"`
	Error        string   `json:"error,omitempty"`
	FromNumber   int64    `json:"from_no,omitempty"`
	ToNumber     int64    `json:"to_no,omitempty"`
	FromDisplay  string   `json:"from_descr,omitempty"`
	ToDisplay    string   `json:"to_descr,omitempty"`
	ChannelIndex int      `json:"channel"`
	Column       int      `json:"column"`
}

// Continuation reports whether the event was synthesized to fill an idle
// cell rather than reported by the provider.
func (e Event) Continuation() bool {
	return e.Timestamp.IsZero()
}

// Row is one line of the timeline. Cells has one entry per column; nil
// means nothing to show.
type Row struct {
	Timestamp Instant  `json:"timestamp"`
	Cells     []*Event `json:"cells"`
}

// Timeline is the rendered event table of a session.
type Timeline struct {
	ColumnsCount int   `json:"columns_count"`
	Rows         []Row `json:"rows"`
}
