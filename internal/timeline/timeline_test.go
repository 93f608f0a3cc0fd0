package timeline_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/timeline"
)

func at(v float64) *float64 { return &v }

// inbound is a terminated call from the PSTN that nobody answered.
func inbound(call, hangup float64) record.Channel {
	return record.Channel{
		ChannelID:       "in",
		Direction:       record.DirectionIncoming,
		EndPointClass:   record.EndPointExternal,
		CallState:       record.CallStateTerminated,
		FromNumber:      4722334455,
		ToNumber:        4781500000,
		HangupReason:    record.HangupNormal,
		CallTimestamp:   call,
		HangupTimestamp: at(hangup),
	}
}

// leg is a finished, unanswered channel between call and hangup.
func leg(id string, call, hangup float64) record.Channel {
	return record.Channel{
		ChannelID:       id,
		Direction:       record.DirectionOutgoing,
		EndPointClass:   record.EndPointInternal,
		CallState:       record.CallStateTerminated,
		CallTimestamp:   call,
		HangupTimestamp: at(hangup),
	}
}

// openLeg is a channel that is still up.
func openLeg(id string, call float64) record.Channel {
	return record.Channel{
		ChannelID:     id,
		Direction:     record.DirectionOutgoing,
		EndPointClass: record.EndPointInternal,
		CallState:     record.CallStateRinging,
		Active:        true,
		CallTimestamp: call,
	}
}

func noNames(int64) string { return "" }

func mustBuild(t *testing.T, channels []record.Channel) *timeline.Timeline {
	t.Helper()
	tl, err := timeline.Build(channels, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl == nil {
		t.Fatal("expected a timeline")
	}
	assertShape(t, tl)
	return tl
}

// assertShape checks that every row is exactly ColumnsCount wide and that
// ColumnsCount is one more than the highest column used.
func assertShape(t *testing.T, tl *timeline.Timeline) {
	t.Helper()
	maxColumn := -1
	for i, row := range tl.Rows {
		if len(row.Cells) != tl.ColumnsCount {
			t.Errorf("row %d has %d cells, expected %d", i, len(row.Cells), tl.ColumnsCount)
		}
		for _, cell := range row.Cells {
			if cell != nil && cell.Column > maxColumn {
				maxColumn = cell.Column
			}
		}
	}
	if tl.ColumnsCount != maxColumn+1 {
		t.Errorf("expected columns_count=%d, got %d", maxColumn+1, tl.ColumnsCount)
	}
}

func assertCell(t *testing.T, tl *timeline.Timeline, row, col int, want timeline.Category) {
	t.Helper()
	if row >= len(tl.Rows) {
		t.Fatalf("row %d out of range (%d rows)", row, len(tl.Rows))
	}
	cell := tl.Rows[row].Cells[col]
	if want == "" {
		if cell != nil {
			t.Errorf("row %d col %d: expected empty, got %s", row, col, cell.Category)
		}
		return
	}
	if cell == nil {
		t.Errorf("row %d col %d: expected %s, got empty", row, col, want)
		return
	}
	if cell.Category != want {
		t.Errorf("row %d col %d: expected %s, got %s", row, col, want, cell.Category)
	}
}

// --- Single unanswered incoming call ---

func TestSingleUnansweredIncoming(t *testing.T) {
	channels := []record.Channel{inbound(1000, 1050)}

	sum, err := timeline.Summarize("s1", channels, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Incoming == nil || !*sum.Incoming {
		t.Errorf("expected incoming=true, got %v", sum.Incoming)
	}
	if sum.AgentDisplay != "" {
		t.Errorf("expected no agent, got %q", sum.AgentDisplay)
	}
	if sum.ErrorCode != "" {
		t.Errorf("expected no error for normal hangup, got %q", sum.ErrorCode)
	}
	if sum.UnansweredSeconds != 50 {
		t.Errorf("expected unanswered_seconds=50, got %d", sum.UnansweredSeconds)
	}
	if sum.ServiceDisplay != "Unknown service number" {
		t.Errorf("expected unknown service number, got %q", sum.ServiceDisplay)
	}

	tl := mustBuild(t, channels)
	if tl.ColumnsCount != 1 {
		t.Fatalf("expected 1 column, got %d", tl.ColumnsCount)
	}
	if len(tl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tl.Rows))
	}
	if tl.Rows[0].Timestamp.Seconds() != 1000 || tl.Rows[1].Timestamp.Seconds() != 1050 {
		t.Errorf("unexpected row timestamps %v, %v", tl.Rows[0].Timestamp.Seconds(), tl.Rows[1].Timestamp.Seconds())
	}
	assertCell(t, tl, 0, 0, timeline.CategoryCall)
	assertCell(t, tl, 1, 0, timeline.CategoryHangup)
}

func TestUnansweredThreshold(t *testing.T) {
	tests := []struct {
		name   string
		hangup float64
		want   int
	}{
		{"under threshold", 1020, 0},
		{"exactly threshold", 1030, 0},
		{"just over rounds up", 1030.2, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := timeline.Summarize("s", []record.Channel{inbound(1000, tt.hangup)}, noNames)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sum.UnansweredSeconds != tt.want {
				t.Errorf("expected %d, got %d", tt.want, sum.UnansweredSeconds)
			}
		})
	}
}

// --- Incoming call answered by an agent ---

func answeredByAgent(agentCall float64) []record.Channel {
	in := inbound(1000, 1100)
	in.ServiceNumberID = 5
	in.ServiceNumberDescription = "Support"
	in.Answered = true
	in.AnswerTimestamp = at(1010)

	agent := leg("agent", agentCall, 1100)
	agent.FromNumber = in.FromNumber
	agent.ToNumber = 4790000000
	agent.Answered = true
	agent.AnswerTimestamp = at(1010)
	agent.AgentFirstName = "Kari"
	agent.AgentLastName = "Nordmann"
	agent.LocationName = "Reception"

	return []record.Channel{in, agent}
}

func TestIncomingAnsweredByAgent(t *testing.T) {
	sum, err := timeline.Summarize("s2", answeredByAgent(1000.2), noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Answered {
		t.Error("expected answered")
	}
	want := "«Kari Nordmann», Reception (+47\u00a0900\u00a000\u00a0000)"
	if sum.AgentDisplay != want {
		t.Errorf("expected agent %q, got %q", want, sum.AgentDisplay)
	}
	if sum.ServiceDisplay != "Support" {
		t.Errorf("expected service Support, got %q", sum.ServiceDisplay)
	}
	if sum.UnansweredSeconds != 0 {
		t.Errorf("expected no unanswered warning, got %d", sum.UnansweredSeconds)
	}
	if sum.Details == nil || sum.Details.ColumnsCount != 2 {
		t.Fatalf("expected details with 2 columns, got %+v", sum.Details)
	}
}

func TestRowMergingWithinWindow(t *testing.T) {
	tl := mustBuild(t, answeredByAgent(1000.2))

	if len(tl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tl.Rows))
	}
	for col := 0; col < 2; col++ {
		assertCell(t, tl, 0, col, timeline.CategoryCall)
		assertCell(t, tl, 1, col, timeline.CategoryAnswer)
		assertCell(t, tl, 2, col, timeline.CategoryHangup)
	}
}

func TestRowMergingOutsideWindow(t *testing.T) {
	tl := mustBuild(t, answeredByAgent(1000.6))

	if len(tl.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(tl.Rows))
	}
	assertCell(t, tl, 0, 0, timeline.CategoryCall)
	assertCell(t, tl, 0, 1, "")
	assertCell(t, tl, 1, 0, timeline.CategoryWait)
	assertCell(t, tl, 1, 1, timeline.CategoryCall)

	wait := tl.Rows[1].Cells[0]
	if !wait.Continuation() {
		t.Error("expected synthesized wait cell")
	}
	if !wait.Incoming || !wait.Answered {
		t.Errorf("expected wait cell to carry the caller's flags, got %+v", wait)
	}
}

func TestEventsInSameColumnDoNotMerge(t *testing.T) {
	// hangup 0.3s after the call lands in the same column: new row
	tl := mustBuild(t, []record.Channel{inbound(1000, 1000.3)})
	if len(tl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tl.Rows))
	}
}

// --- Column packing ---

func TestColumnReuseAfterChannelFinishes(t *testing.T) {
	tl := mustBuild(t, []record.Channel{
		leg("a", 0, 10),
		leg("b", 20, 30),
	})
	if tl.ColumnsCount != 1 {
		t.Fatalf("expected b to reuse a's column, got %d columns", tl.ColumnsCount)
	}
}

func TestColumnHeldByUnfinishedChannel(t *testing.T) {
	channels := []record.Channel{
		leg("a", 0, 10),
		openLeg("b", 5),
		leg("c", 20, 25),
	}
	events, err := timeline.Expand(channels, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sorted, columns := timeline.PackColumns(events)
	if columns != 2 {
		t.Fatalf("expected 2 columns, got %d", columns)
	}

	columnOf := map[int]int{}
	for _, e := range sorted {
		if c, ok := columnOf[e.ChannelIndex]; ok && c != e.Column {
			t.Errorf("channel %d split across columns %d and %d", e.ChannelIndex, c, e.Column)
		}
		columnOf[e.ChannelIndex] = e.Column
	}
	if columnOf[0] != 0 || columnOf[1] != 1 {
		t.Errorf("expected a=0 b=1, got a=%d b=%d", columnOf[0], columnOf[1])
	}
	if columnOf[2] != 0 {
		t.Errorf("expected c to reuse a's column 0, got %d", columnOf[2])
	}
}

func TestPackColumnsStableOnTies(t *testing.T) {
	events := []timeline.Event{
		{Timestamp: timeline.At(5), ChannelIndex: 1, Category: timeline.CategoryCall},
		{Timestamp: timeline.At(5), ChannelIndex: 0, Category: timeline.CategoryCall},
		{Timestamp: timeline.At(1), ChannelIndex: 2, Category: timeline.CategoryCall},
		{Timestamp: timeline.Never(), ChannelIndex: 0, Category: timeline.CategoryUnfinished},
		{Timestamp: timeline.Never(), ChannelIndex: 1, Category: timeline.CategoryUnfinished},
		{Timestamp: timeline.Never(), ChannelIndex: 2, Category: timeline.CategoryUnfinished},
	}
	sorted, columns := timeline.PackColumns(events)
	if columns != 3 {
		t.Fatalf("expected 3 columns, got %d", columns)
	}
	order := []int{sorted[0].ChannelIndex, sorted[1].ChannelIndex, sorted[2].ChannelIndex}
	if !reflect.DeepEqual(order, []int{2, 1, 0}) {
		t.Errorf("expected stable order [2 1 0], got %v", order)
	}
	if sorted[1].Column != 1 || sorted[2].Column != 2 {
		t.Errorf("expected tie order to decide columns, got %d and %d", sorted[1].Column, sorted[2].Column)
	}
	if events[0].Column != 0 || events[1].Column != 0 {
		t.Error("input events must not be modified")
	}
}

func TestPackColumnsEmpty(t *testing.T) {
	sorted, columns := timeline.PackColumns(nil)
	if len(sorted) != 0 || columns != 0 {
		t.Errorf("expected nothing, got %d events and %d columns", len(sorted), columns)
	}
}

// --- Gap filling ---

func TestGapFillPropagatesUntilRealEvent(t *testing.T) {
	tl := mustBuild(t, []record.Channel{
		leg("a", 0, 10),
		openLeg("b", 5),
		leg("c", 20, 25),
	})

	// rows: 0 a-call, 5 b-call, 10 a-hangup, 20 c-call, 25 c-hangup, +inf b-unfinished
	if len(tl.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(tl.Rows))
	}
	assertCell(t, tl, 1, 0, timeline.CategoryWait)
	for r := 2; r <= 4; r++ {
		assertCell(t, tl, r, 1, timeline.CategoryWait)
	}
	assertCell(t, tl, 5, 1, timeline.CategoryUnfinished)
	// a hangup-terminated lane stays empty
	assertCell(t, tl, 5, 0, "")

	if !tl.Rows[5].Timestamp.IsNever() {
		t.Error("expected last row to be open-ended")
	}
}

func TestGapFillTalk(t *testing.T) {
	caller := inbound(0, 100)
	caller.Answered = true
	caller.AnswerTimestamp = at(10)

	tl := mustBuild(t, []record.Channel{caller, leg("x", 50, 60)})

	if len(tl.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(tl.Rows))
	}
	assertCell(t, tl, 2, 0, timeline.CategoryTalk)
	assertCell(t, tl, 3, 0, timeline.CategoryTalk)
	assertCell(t, tl, 4, 0, timeline.CategoryHangup)
	assertCell(t, tl, 4, 1, "")

	talk := tl.Rows[3].Cells[0]
	if !talk.Continuation() || !talk.Answered {
		t.Errorf("unexpected talk cell %+v", talk)
	}
}

func TestUnfinishedChannelsShareLastRow(t *testing.T) {
	tl := mustBuild(t, []record.Channel{openLeg("a", 0), openLeg("b", 1)})

	last := tl.Rows[len(tl.Rows)-1]
	if last.Cells[0] == nil || last.Cells[1] == nil {
		t.Fatalf("expected both unfinished events in the last row, got %+v", last.Cells)
	}
	data, err := json.Marshal(last)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["timestamp"] != nil {
		t.Errorf("expected null timestamp for open-ended row, got %v", decoded["timestamp"])
	}
}

// --- Properties ---

func TestBuildIsIdempotent(t *testing.T) {
	channels := []record.Channel{
		leg("a", 0, 10),
		openLeg("b", 5),
		leg("c", 20, 25),
	}
	names := func(n int64) string {
		if n == 4722334455 {
			return "Ola"
		}
		return ""
	}
	first, err := timeline.Build(channels, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := timeline.Build(channels, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical timelines")
	}
}

func TestBuildEmpty(t *testing.T) {
	tl, err := timeline.Build(nil, noNames)
	if err != nil || tl != nil {
		t.Errorf("expected nil, nil for no channels, got %v, %v", tl, err)
	}
	sum, err := timeline.Summarize("s", nil, noNames)
	if err != nil || sum != nil {
		t.Errorf("expected nil, nil for no channels, got %v, %v", sum, err)
	}
}

// --- Summaries ---

func TestOutgoingCall(t *testing.T) {
	agent := leg("agent", 100, 200)
	agent.ToNumber = 4790000000
	agent.AgentEmail = "ola@example.com"
	agent.LocationDescription = "Desk 4"

	out := record.Channel{
		ChannelID:       "out",
		Direction:       record.DirectionOutgoing,
		EndPointClass:   record.EndPointExternal,
		CallState:       record.CallStateTerminated,
		FromNumber:      4781500000,
		ToNumber:        4722334455,
		Answered:        true,
		CallTimestamp:   100.1,
		AnswerTimestamp: at(110),
		HangupTimestamp: at(200),
	}

	names := map[int64]string{4722334455: "Acme AS"}
	sum, err := timeline.Summarize("s3", []record.Channel{agent, out}, func(n int64) string { return names[n] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Incoming == nil || *sum.Incoming {
		t.Errorf("expected incoming=false, got %v", sum.Incoming)
	}
	if sum.FromNumber != 4781500000 || sum.ToNumber != 4722334455 {
		t.Errorf("expected numbers from second channel, got %d -> %d", sum.FromNumber, sum.ToNumber)
	}
	if sum.ToDisplay != "Acme AS" {
		t.Errorf("expected to_display=Acme AS, got %q", sum.ToDisplay)
	}
	if !sum.Answered {
		t.Error("expected answered from second channel")
	}
	if sum.AgentDisplay != "«ola@example.com», Desk 4 (+47\u00a0900\u00a000\u00a0000)" {
		t.Errorf("unexpected agent display %q", sum.AgentDisplay)
	}
	if sum.ServiceDisplay != "" {
		t.Errorf("expected no service display for outgoing call, got %q", sum.ServiceDisplay)
	}
}

func TestSummaryErrorCode(t *testing.T) {
	in := inbound(1000, 1005)
	in.HangupReason = record.HangupBusy

	sum, err := timeline.Summarize("s", []record.Channel{in}, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.ErrorCode != "busy" {
		t.Errorf("expected error=busy, got %q", sum.ErrorCode)
	}
}

func TestSummaryUnknownShape(t *testing.T) {
	external := record.Channel{
		Direction:       record.DirectionOutgoing,
		EndPointClass:   record.EndPointExternal,
		CallState:       record.CallStateTerminated,
		CallTimestamp:   1,
		HangupTimestamp: at(2),
	}
	sum, err := timeline.Summarize("s", []record.Channel{external}, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Incoming != nil {
		t.Errorf("expected incoming=null, got %v", *sum.Incoming)
	}
}

// --- Expansion ---

func TestExpandSharesFlags(t *testing.T) {
	in := inbound(0, 100)
	in.Answered = true
	in.AnswerTimestamp = at(10)
	in.ServiceNumberID = 3

	events, err := timeline.Expand([]record.Channel{in}, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []timeline.Category{timeline.CategoryCall, timeline.CategoryAnswer, timeline.CategoryHangup}
	for i, e := range events {
		if e.Category != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Category)
		}
		if !e.Incoming || e.ToAgent || !e.ToService || !e.Answered || e.Active {
			t.Errorf("event %d: unexpected flags %+v", i, e)
		}
		if e.FromNumber != 4722334455 || e.ToNumber != 4781500000 {
			t.Errorf("event %d: unexpected numbers %+v", i, e)
		}
	}
}

func TestExpandUnfinished(t *testing.T) {
	events, err := timeline.Expand([]record.Channel{openLeg("a", 3)}, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Category != timeline.CategoryUnfinished || !events[1].Timestamp.IsNever() {
		t.Errorf("expected open-ended unfinished event, got %+v", events[1])
	}
	if !events[0].ToAgent {
		t.Error("expected internal outgoing leg to be marked to_agent")
	}
}

func TestExpandErrorOnlyWhenEnded(t *testing.T) {
	ended := leg("a", 0, 5)
	ended.HangupReason = record.HangupDeclined
	open := openLeg("b", 0)
	open.HangupReason = record.HangupDeclined

	events, err := timeline.Expand([]record.Channel{ended, open}, noNames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range events {
		switch e.ChannelIndex {
		case 0:
			if e.Error != "declined" {
				t.Errorf("expected declined on ended channel, got %q", e.Error)
			}
		case 1:
			if e.Error != "" {
				t.Errorf("expected no error on active channel, got %q", e.Error)
			}
		}
	}
}

func TestExpandResolvesEachNumberOnce(t *testing.T) {
	calls := map[int64]int{}
	resolve := func(n int64) string {
		calls[n]++
		return "name"
	}
	in := inbound(0, 100)
	in.Answered = true
	in.AnswerTimestamp = at(10)

	events, err := timeline.Expand([]record.Channel{in, leg("x", 1, 2)}, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events[0].FromDisplay != "name" {
		t.Errorf("expected resolved display, got %q", events[0].FromDisplay)
	}
	for n, c := range calls {
		if c != 1 {
			t.Errorf("number %d resolved %d times", n, c)
		}
	}
	if _, ok := calls[0]; ok {
		t.Error("absent number must not be resolved")
	}
}

func TestExpandMalformed(t *testing.T) {
	bad := leg("a", 0, 5)
	bad.HangupReason = record.HangupReason("z")
	if _, err := timeline.Expand([]record.Channel{bad}, noNames); !errors.Is(err, record.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord for unknown reason, got %v", err)
	}

	noAnswer := leg("b", 0, 5)
	noAnswer.Answered = true
	if _, err := timeline.Expand([]record.Channel{noAnswer}, noNames); !errors.Is(err, record.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord for missing answer timestamp, got %v", err)
	}
}

func TestInstantJSON(t *testing.T) {
	tests := []struct {
		name string
		in   timeline.Instant
		want string
	}{
		{"finite", timeline.At(1000.5), "1000.5"},
		{"never", timeline.Never(), "null"},
		{"zero", timeline.Instant{}, "null"},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.name, err)
		}
		if string(data) != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, data)
		}
	}
}
