package timeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/timeline"
)

type fakeSupplier struct {
	sessions map[string][]record.Channel
	calls    map[string]int
	err      error
}

func (f *fakeSupplier) ChannelRecords(_ context.Context, sessionID string) ([]record.Channel, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[sessionID]++
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[sessionID], nil
}

type fakeResolver struct {
	names map[int64]string
	calls map[int64]int
}

func (f *fakeResolver) ResolveNumber(_ context.Context, number int64) string {
	if f.calls == nil {
		f.calls = map[int64]int{}
	}
	f.calls[number]++
	return f.names[number]
}

func TestViewMemoizesPerRequest(t *testing.T) {
	supplier := &fakeSupplier{sessions: map[string][]record.Channel{
		"s1": answeredByAgent(1000.2),
	}}
	resolver := &fakeResolver{names: map[int64]string{4722334455: "Ola Nordmann"}}
	view := timeline.NewView(supplier, resolver)
	ctx := context.Background()

	sum, err := view.Summarize(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.FromDisplay != "Ola Nordmann" {
		t.Errorf("expected from_display=Ola Nordmann, got %q", sum.FromDisplay)
	}

	tl, err := view.Timeline(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.ColumnsCount != 2 {
		t.Errorf("expected 2 columns, got %d", tl.ColumnsCount)
	}

	channels, err := view.Channels(ctx, "s1")
	if err != nil || len(channels) != 2 {
		t.Errorf("expected 2 channels, got %d (%v)", len(channels), err)
	}

	if supplier.calls["s1"] != 1 {
		t.Errorf("expected channels loaded once, got %d", supplier.calls["s1"])
	}
	for n, c := range resolver.calls {
		if c != 1 {
			t.Errorf("number %d resolved %d times", n, c)
		}
	}
}

func TestViewNoData(t *testing.T) {
	view := timeline.NewView(&fakeSupplier{}, &fakeResolver{})

	sum, err := view.Summarize(context.Background(), "missing")
	if err != nil || sum != nil {
		t.Errorf("expected nil, nil, got %v, %v", sum, err)
	}
	tl, err := view.Timeline(context.Background(), "missing")
	if err != nil || tl != nil {
		t.Errorf("expected nil, nil, got %v, %v", tl, err)
	}
}

func TestViewSupplierError(t *testing.T) {
	storeDown := errors.New("database is locked")
	view := timeline.NewView(&fakeSupplier{err: storeDown}, &fakeResolver{})

	_, err := view.Summarize(context.Background(), "s1")
	if !errors.Is(err, storeDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestViewOptions(t *testing.T) {
	supplier := &fakeSupplier{sessions: map[string][]record.Channel{
		"s1": {inbound(1000, 1050)},
		"s2": answeredByAgent(1000.6),
	}}
	view := timeline.NewView(supplier, &fakeResolver{},
		timeline.WithUnansweredThreshold(time.Minute),
		timeline.WithMergeWindow(time.Second),
	)

	sum, err := view.Summarize(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.UnansweredSeconds != 0 {
		t.Errorf("expected 50s to stay under a 60s threshold, got %d", sum.UnansweredSeconds)
	}

	tl, err := view.Timeline(context.Background(), "s2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.Rows) != 3 {
		t.Errorf("expected a 1s window to merge the 0.6s gap, got %d rows", len(tl.Rows))
	}
}
