package timeline

import (
	"fmt"

	"github.com/sweeney/callboard/internal/record"
)

// ResolveFunc maps a phone number to a short display string, or "" when
// the number is unknown.
type ResolveFunc func(number int64) string

// channelFlags is the role information shared by every event a single
// channel produces.
type channelFlags struct {
	incoming  bool
	toAgent   bool
	toService bool
	answered  bool
	active    bool
	err       string
	from      int64
	to        int64
	channel   int
}

func flagsFor(index int, c record.Channel) (channelFlags, error) {
	f := channelFlags{
		incoming:  c.Incoming(),
		toAgent:   c.ToAgent(),
		toService: c.ToService(),
		answered:  c.Answered,
		active:    c.Active,
		from:      c.FromNumber,
		to:        c.ToNumber,
		channel:   index,
	}
	if !c.Active && c.HangupReason.IsError() {
		name, err := c.HangupReason.Name()
		if err != nil {
			return f, fmt.Errorf("channel %s: %w", c.ChannelID, err)
		}
		f.err = name
	}
	return f, nil
}

func (f channelFlags) event(category Category, at Instant) Event {
	return Event{
		Timestamp:    at,
		Category:     category,
		Incoming:     f.incoming,
		ToAgent:      f.toAgent,
		ToService:    f.toService,
		Answered:     f.answered,
		Active:       f.active,
		Error:        f.err,
		FromNumber:   f.from,
		ToNumber:     f.to,
		ChannelIndex: f.channel,
	}
}

// Expand turns each channel into its call, answer and end events, in
// channel order. A channel's index is its position in channels.
func Expand(channels []record.Channel, resolve ResolveFunc) ([]Event, error) {
	resolve = memoize(resolve)
	events := make([]Event, 0, len(channels)*3)

	for i, c := range channels {
		f, err := flagsFor(i, c)
		if err != nil {
			return nil, err
		}

		events = append(events, f.event(CategoryCall, At(c.CallTimestamp)))

		if c.Answered {
			if c.AnswerTimestamp == nil {
				return nil, fmt.Errorf("%w: channel %s answered without answer timestamp", record.ErrMalformedRecord, c.ChannelID)
			}
			events = append(events, f.event(CategoryAnswer, At(*c.AnswerTimestamp)))
		}

		if c.Active {
			events = append(events, f.event(CategoryUnfinished, Never()))
		} else {
			if c.HangupTimestamp == nil {
				return nil, fmt.Errorf("%w: channel %s inactive without hangup timestamp", record.ErrMalformedRecord, c.ChannelID)
			}
			events = append(events, f.event(CategoryHangup, At(*c.HangupTimestamp)))
		}
	}

	for i := range events {
		events[i].FromDisplay = resolve(events[i].FromNumber)
		events[i].ToDisplay = resolve(events[i].ToNumber)
	}
	return events, nil
}

// memoize wraps resolve so each distinct number is looked up once. Zero is
// never looked up.
func memoize(resolve ResolveFunc) ResolveFunc {
	seen := make(map[int64]string)
	return func(number int64) string {
		if number == 0 || resolve == nil {
			return ""
		}
		if s, ok := seen[number]; ok {
			return s
		}
		s := resolve(number)
		seen[number] = s
		return s
	}
}
