package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/callboard/internal/record"
)

// RecordSupplier returns the channels of a session ordered by call
// timestamp. An unknown session yields an empty slice, not an error.
type RecordSupplier interface {
	ChannelRecords(ctx context.Context, sessionID string) ([]record.Channel, error)
}

// NumberResolver maps a phone number to a display string. It never fails:
// unknown numbers and lookup errors both yield "".
type NumberResolver interface {
	ResolveNumber(ctx context.Context, number int64) string
}

// View answers summary and timeline questions for the duration of one
// request. It remembers channel records per session and display strings per
// number, so a View must not outlive the request or be shared between
// goroutines.
type View struct {
	records  RecordSupplier
	numbers  NumberResolver
	settings settings

	channels map[string][]record.Channel
	names    map[int64]string
}

// Option configures a View.
type Option func(*View)

// WithUnansweredThreshold sets how long an incoming call may ring unanswered
// before the summary reports it.
func WithUnansweredThreshold(d time.Duration) Option {
	return func(v *View) { v.settings.unansweredThreshold = d.Seconds() }
}

// WithMergeWindow sets how close in time events must be to share a row.
func WithMergeWindow(d time.Duration) Option {
	return func(v *View) { v.settings.mergeWindow = d.Seconds() }
}

// NewView creates a View reading through records and numbers.
func NewView(records RecordSupplier, numbers NumberResolver, opts ...Option) *View {
	v := &View{
		records:  records,
		numbers:  numbers,
		settings: defaultSettings(),
		channels: make(map[string][]record.Channel),
		names:    make(map[int64]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Summarize returns the summary of a session, or nil if it has no channels.
func (v *View) Summarize(ctx context.Context, sessionID string) (*Summary, error) {
	channels, err := v.channelsFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return v.settings.summarize(sessionID, channels, v.resolver(ctx))
}

// Timeline returns the event table of a session, or nil if it has no
// channels.
func (v *View) Timeline(ctx context.Context, sessionID string) (*Timeline, error) {
	channels, err := v.channelsFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return v.settings.build(channels, v.resolver(ctx))
}

// Channels returns the session's channel records ordered by call timestamp.
func (v *View) Channels(ctx context.Context, sessionID string) ([]record.Channel, error) {
	return v.channelsFor(ctx, sessionID)
}

func (v *View) channelsFor(ctx context.Context, sessionID string) ([]record.Channel, error) {
	if channels, ok := v.channels[sessionID]; ok {
		return channels, nil
	}
	channels, err := v.records.ChannelRecords(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading channels of session %s: %w", sessionID, err)
	}
	v.channels[sessionID] = channels
	return channels, nil
}

func (v *View) resolver(ctx context.Context) ResolveFunc {
	return func(number int64) string {
		if s, ok := v.names[number]; ok {
			return s
		}
		s := v.numbers.ResolveNumber(ctx, number)
		v.names[number] = s
		return s
	}
}
