// Package timeline reconstructs what happened in a call session from the
// provider's per-channel records: a one-line summary and a multi-column
// event table where each channel gets a lane, lanes are reused once a
// channel has finished, and near-simultaneous events share a row.
package timeline

import (
	"github.com/sweeney/callboard/internal/record"
)

const (
	// DefaultMergeWindow is how many seconds after a row's start an event
	// may still join that row.
	DefaultMergeWindow = 0.5

	// DefaultUnansweredThreshold is how many seconds an incoming call may go
	// unanswered before its summary reports it.
	DefaultUnansweredThreshold = 30.0
)

type settings struct {
	mergeWindow         float64
	unansweredThreshold float64
}

func defaultSettings() settings {
	return settings{
		mergeWindow:         DefaultMergeWindow,
		unansweredThreshold: DefaultUnansweredThreshold,
	}
}

// Build assembles the timeline of a session from its channels ordered by
// call timestamp. It returns nil when there are no channels.
func Build(channels []record.Channel, resolve ResolveFunc) (*Timeline, error) {
	return defaultSettings().build(channels, resolve)
}

func (s settings) build(channels []record.Channel, resolve ResolveFunc) (*Timeline, error) {
	if len(channels) == 0 {
		return nil, nil
	}
	events, err := Expand(channels, resolve)
	if err != nil {
		return nil, err
	}
	sorted, columns := PackColumns(events)
	return &Timeline{
		ColumnsCount: columns,
		Rows:         BuildRows(sorted, columns, s.mergeWindow),
	}, nil
}
