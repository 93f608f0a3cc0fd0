package timeline

import (
	"cmp"
	"slices"
)

// PackColumns returns a copy of events sorted by timestamp, with every event
// assigned the column of its channel, and the number of columns used.
//
// A channel gets a column when its first event is reached. Before that, any
// column whose channel has no events left is released, and the new channel
// takes the lowest free column. Ties in timestamp keep their input order.
func PackColumns(events []Event) ([]Event, int) {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		return cmp.Compare(a.Timestamp.sec, b.Timestamp.sec)
	})

	columnOf := make(map[int]int) // channel -> column
	owner := make(map[int]int)    // column in use -> channel
	columns := 0

	for i := range sorted {
		channel := sorted[i].ChannelIndex
		column, seen := columnOf[channel]
		if !seen {
			for c, ch := range owner {
				if !hasChannel(sorted[i:], ch) {
					delete(owner, c)
				}
			}
			column = lowestFree(owner)
			owner[column] = channel
			columnOf[channel] = column
			columns = max(columns, column+1)
		}
		sorted[i].Column = column
	}
	return sorted, columns
}

func hasChannel(events []Event, channel int) bool {
	for _, e := range events {
		if e.ChannelIndex == channel {
			return true
		}
	}
	return false
}

// lowestFree returns the smallest non-negative column not in used.
func lowestFree(used map[int]int) int {
	for c := 0; ; c++ {
		if _, taken := used[c]; !taken {
			return c
		}
	}
}
