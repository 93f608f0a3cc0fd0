// Package live publishes the newest sessions to subscribed boards whenever
// call data changes.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/callboard/internal/correlator"
	"github.com/sweeney/callboard/internal/publisher"
	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/timeline"
)

// Source supplies the sessions to push and the records to summarize them.
type Source interface {
	timeline.RecordSupplier
	timeline.NumberResolver
	NewestSessions(ctx context.Context, now time.Time, window time.Duration) ([]string, error)
}

// Pusher summarizes the sessions of the live window and publishes them:
// the list to {prefix}/sessions and each session with its timeline to
// {prefix}/session/{id}. Sessions that moved on since the previous push
// also get a state change on {prefix}/call/{id}/{state}; the first push
// only records where each session stands.
type Pusher struct {
	src     Source
	pub     publisher.Publisher
	prefix  string
	window  time.Duration
	opts    []timeline.Option
	workers int
	now     func() time.Time

	mu     sync.Mutex
	calls  *correlator.Correlator
	primed bool
}

// snapshot is one session as seen by a push.
type snapshot struct {
	summary  *timeline.Summary
	channels []record.Channel
}

// NewPusher creates a Pusher. opts configure the views it summarizes with.
func NewPusher(src Source, pub publisher.Publisher, prefix string, window time.Duration, opts ...timeline.Option) *Pusher {
	return &Pusher{
		src:     src,
		pub:     pub,
		prefix:  prefix,
		window:  window,
		opts:    opts,
		workers: 4,
		now:     time.Now,
		calls:   correlator.New(),
	}
}

// ListTopic is where the session list is published.
func (p *Pusher) ListTopic() string { return p.prefix + "/sessions" }

// SessionTopic is where a single session is published.
func (p *Pusher) SessionTopic(id string) string { return p.prefix + "/session/" + id }

// Push publishes the current live window. Concurrent calls run one at a
// time so the list topic always ends on the latest state.
func (p *Pusher) Push(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids, err := p.src.NewestSessions(ctx, p.now(), p.window)
	if err != nil {
		return fmt.Errorf("listing newest sessions: %w", err)
	}

	snapshots, err := p.summarize(ctx, ids)
	if err != nil {
		return err
	}

	list := make([]timeline.Summary, 0, len(snapshots))
	for _, snap := range snapshots {
		s := snap.summary
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding session %s: %w", s.SessionID, err)
		}
		if err := p.pub.Publish(ctx, p.SessionTopic(s.SessionID), payload); err != nil {
			return fmt.Errorf("publishing session %s: %w", s.SessionID, err)
		}
		brief := *s
		brief.Details = nil
		list = append(list, brief)
	}

	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding session list: %w", err)
	}
	if err := p.pub.Publish(ctx, p.ListTopic(), payload); err != nil {
		return fmt.Errorf("publishing session list: %w", err)
	}
	slog.Debug("pushed live sessions", "count", len(list))

	p.track(ctx, ids, snapshots)
	return nil
}

// track feeds the snapshots to the correlator and announces what changed.
// Announce failures are logged; the next push will not repeat them.
func (p *Pusher) track(ctx context.Context, ids []string, snapshots []snapshot) {
	defer p.calls.Retain(ids)
	if !p.primed {
		for _, snap := range snapshots {
			p.calls.Prime(snap.summary)
		}
		p.primed = true
		return
	}
	announced := 0
	for _, snap := range snapshots {
		for _, change := range p.calls.Process(snap.summary, snap.channels) {
			if err := p.announce(ctx, change); err != nil {
				slog.Error("publish error", "session", change.SessionID, "state", change.State, "error", err)
				continue
			}
			announced++
		}
	}
	slog.Debug("call states announced", "count", announced, "tracked", p.calls.ActiveCalls())
}

// summarize builds summaries in parallel, one View per worker since views
// are not safe for concurrent use. Sessions without channels or with
// malformed records are dropped; order follows ids.
func (p *Pusher) summarize(ctx context.Context, ids []string) ([]snapshot, error) {
	results := make([]snapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, id := range ids {
		g.Go(func() error {
			view := timeline.NewView(p.src, p.src, p.opts...)
			s, err := view.Summarize(gctx, id)
			if errors.Is(err, record.ErrMalformedRecord) {
				slog.Warn("skipping malformed session", "session", id, "error", err)
				return nil
			}
			if err != nil {
				return err
			}
			channels, err := view.Channels(gctx, id)
			if err != nil {
				return err
			}
			results[i] = snapshot{summary: s, channels: channels}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, snap := range results {
		if snap.summary != nil {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Notify pushes and logs failures. It fits the poller and inbox callbacks.
func (p *Pusher) Notify(ctx context.Context) {
	if err := p.Push(ctx); err != nil {
		slog.Error("live push failed", "error", err)
	}
}
