// Package httpapi serves session summaries and timelines over HTTP and
// accepts call data pushed by the provider.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/timeline"
	"github.com/sweeney/callboard/internal/xmlexport"
)

// maxPushBytes caps a pushed call data document.
const maxPushBytes = 16 << 20

// Backend is the storage the router reads and writes.
type Backend interface {
	timeline.RecordSupplier
	timeline.NumberResolver
	SessionsBetween(ctx context.Context, from, to float64) ([]string, error)
	NewestSessions(ctx context.Context, now time.Time, window time.Duration) ([]string, error)
	SaveCallData(ctx context.Context, sessions []record.Session, channels []record.Channel) error
	Agents(ctx context.Context) ([]record.Agent, error)
	InternalPhones(ctx context.Context) ([]record.InternalPhone, error)
	ServiceNumbers(ctx context.Context) ([]record.ServiceNumber, error)
	Contacts(ctx context.Context) ([]record.Contact, error)
	Health(ctx context.Context) error
}

// Options configures a Router.
type Options struct {
	// PushToken must match the X-Push-Token header of a push or a master
	// data refresh. Both are disabled when empty.
	PushToken string
	// LiveWindow is how far back the session list reaches by default.
	LiveWindow time.Duration
	// ViewOptions configure every per-request view.
	ViewOptions []timeline.Option
	// Notify is called after pushed data has been saved. May be nil.
	Notify func(ctx context.Context)
	// RefreshCustomerData and RefreshContacts fetch master data from the
	// provider on POST. The POST routes answer 503 when they are nil.
	RefreshCustomerData func(ctx context.Context) error
	RefreshContacts     func(ctx context.Context) error
}

// Router builds HTTP handlers for /api and /health.
type Router struct {
	backend Backend
	opts    Options
	now     func() time.Time
}

func NewRouter(backend Backend, opts Options) *Router {
	return &Router{backend: backend, opts: opts, now: time.Now}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", r.sessions)
	mux.HandleFunc("GET /api/sessions/{id}", r.session)
	mux.HandleFunc("GET /api/sessions/{id}/timeline", r.sessionTimeline)
	mux.HandleFunc("POST /api/push", r.push)
	mux.HandleFunc("GET /api/customer-data", r.customerData)
	mux.HandleFunc("POST /api/customer-data", r.refresh(r.opts.RefreshCustomerData, r.customerData))
	mux.HandleFunc("GET /api/contacts", r.contacts)
	mux.HandleFunc("POST /api/contacts", r.refresh(r.opts.RefreshContacts, r.contacts))
	mux.HandleFunc("GET /health", r.health)
}

// view returns a fresh view; its caches live as long as the request.
func (r *Router) view() *timeline.View {
	return timeline.NewView(r.backend, r.backend, r.opts.ViewOptions...)
}

func (r *Router) sessions(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	q := req.URL.Query()

	var ids []string
	var err error
	if q.Get("from") == "" && q.Get("to") == "" {
		ids, err = r.backend.NewestSessions(ctx, r.now(), r.opts.LiveWindow)
	} else {
		from, ok := parseEpoch(q.Get("from"), 0)
		if !ok {
			http.Error(w, "bad from", http.StatusBadRequest)
			return
		}
		to, ok := parseEpoch(q.Get("to"), math.MaxFloat64)
		if !ok {
			http.Error(w, "bad to", http.StatusBadRequest)
			return
		}
		ids, err = r.backend.SessionsBetween(ctx, from, to)
	}
	if err != nil {
		slog.Error("listing sessions", "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	view := r.view()
	list := make([]timeline.Summary, 0, len(ids))
	for _, id := range ids {
		s, err := view.Summarize(ctx, id)
		if errors.Is(err, record.ErrMalformedRecord) {
			slog.Warn("skipping malformed session", "session", id, "error", err)
			continue
		}
		if err != nil {
			slog.Error("summarizing session", "session", id, "error", err)
			http.Error(w, "summary error", http.StatusInternalServerError)
			return
		}
		if s == nil {
			continue
		}
		brief := *s
		brief.Details = nil
		list = append(list, brief)
	}
	respondJSON(w, list)
}

func (r *Router) session(w http.ResponseWriter, req *http.Request) {
	id, ok := sessionID(w, req)
	if !ok {
		return
	}
	s, err := r.view().Summarize(req.Context(), id)
	if err != nil {
		slog.Error("summarizing session", "session", id, "error", err)
		http.Error(w, "summary error", http.StatusInternalServerError)
		return
	}
	if s == nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, s)
}

func (r *Router) sessionTimeline(w http.ResponseWriter, req *http.Request) {
	id, ok := sessionID(w, req)
	if !ok {
		return
	}
	tl, err := r.view().Timeline(req.Context(), id)
	if err != nil {
		slog.Error("building timeline", "session", id, "error", err)
		http.Error(w, "timeline error", http.StatusInternalServerError)
		return
	}
	if tl == nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, tl)
}

func (r *Router) push(w http.ResponseWriter, req *http.Request) {
	if r.opts.PushToken == "" {
		http.Error(w, "push disabled", http.StatusServiceUnavailable)
		return
	}
	if !r.authorized(req) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body := http.MaxBytesReader(w, req.Body, maxPushBytes)
	sessions, channels, err := xmlexport.ParseCallData(body)
	if err != nil {
		if errors.Is(err, xmlexport.ErrMalformed) {
			slog.Warn("push message is malformed", "error", err)
			http.Error(w, "malformed data", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := req.Context()
	if err := r.backend.SaveCallData(ctx, sessions, channels); err != nil {
		slog.Error("saving pushed call data", "error", err)
		http.Error(w, "save error", http.StatusInternalServerError)
		return
	}
	slog.Info("received pushed call data", "sessions", len(sessions), "channels", len(channels))
	if r.opts.Notify != nil {
		r.opts.Notify(context.WithoutCancel(ctx))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.backend.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorized reports whether req carries the push token. No request is
// authorized while the token is unset.
func (r *Router) authorized(req *http.Request) bool {
	if r.opts.PushToken == "" {
		return false
	}
	token := req.Header.Get("X-Push-Token")
	return subtle.ConstantTimeCompare([]byte(token), []byte(r.opts.PushToken)) == 1
}

// sessionID reads the {id} path value in canonical form, answering 400
// itself when it is not a UUID.
func sessionID(w http.ResponseWriter, req *http.Request) (string, bool) {
	id, err := uuid.Parse(req.PathValue("id"))
	if err != nil {
		http.Error(w, "bad session id", http.StatusBadRequest)
		return "", false
	}
	return id.String(), true
}

func parseEpoch(s string, fallback float64) (float64, bool) {
	if s == "" {
		return fallback, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write json", "error", err)
	}
}
