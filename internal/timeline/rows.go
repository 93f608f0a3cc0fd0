package timeline

// BuildRows lays out column-tagged events, sorted by timestamp, as rows of
// the given width. An event joins the latest row when its cell there is free
// and it happened no more than window seconds after the row started;
// otherwise it starts a new row. Idle cells are then filled with wait and
// talk continuations.
func BuildRows(events []Event, columns int, window float64) []Row {
	var rows []Row
	for i := range events {
		ev := events[i]
		if n := len(rows); n > 0 {
			last := &rows[n-1]
			if last.Cells[ev.Column] == nil && ev.Timestamp.within(last.Timestamp, window) {
				last.Cells[ev.Column] = &ev
				continue
			}
		}
		row := Row{Timestamp: ev.Timestamp, Cells: make([]*Event, columns)}
		row.Cells[ev.Column] = &ev
		rows = append(rows, row)
	}

	fillGaps(rows, columns)
	return rows
}

// fillGaps walks each column top to bottom and continues the state of a
// calling or talking channel into the empty cells below it.
func fillGaps(rows []Row, columns int) {
	for col := 0; col < columns; col++ {
		for r := 1; r < len(rows); r++ {
			if rows[r].Cells[col] != nil {
				continue
			}
			prev := rows[r-1].Cells[col]
			if prev == nil {
				continue
			}
			category, ok := prev.Category.continuation()
			if !ok {
				continue
			}
			rows[r].Cells[col] = &Event{
				Category:     category,
				Incoming:     prev.Incoming,
				Answered:     prev.Answered,
				Active:       prev.Active,
				Error:        prev.Error,
				ChannelIndex: prev.ChannelIndex,
				Column:       col,
			}
		}
	}
}
