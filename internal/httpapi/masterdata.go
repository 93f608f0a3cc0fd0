package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sweeney/callboard/internal/record"
)

// customerData is the body of /api/customer-data.
type customerData struct {
	Agents         []record.Agent         `json:"agents"`
	InternalPhones []record.InternalPhone `json:"internal_phones"`
	ServiceNumbers []record.ServiceNumber `json:"service_numbers"`
}

func (r *Router) customerData(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var data customerData
	var err error
	if data.Agents, err = r.backend.Agents(ctx); err == nil {
		if data.InternalPhones, err = r.backend.InternalPhones(ctx); err == nil {
			data.ServiceNumbers, err = r.backend.ServiceNumbers(ctx)
		}
	}
	if err != nil {
		slog.Error("listing customer data", "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	data.Agents = nonNil(data.Agents)
	data.InternalPhones = nonNil(data.InternalPhones)
	data.ServiceNumbers = nonNil(data.ServiceNumbers)
	respondJSON(w, data)
}

func (r *Router) contacts(w http.ResponseWriter, req *http.Request) {
	contacts, err := r.backend.Contacts(req.Context())
	if err != nil {
		slog.Error("listing contacts", "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, nonNil(contacts))
}

// refresh runs fetch and then serves the refreshed data with show. It
// answers 503 when fetch is nil, i.e. provider polling is disabled.
func (r *Router) refresh(fetch func(ctx context.Context) error, show http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if fetch == nil {
			http.Error(w, "provider polling disabled", http.StatusServiceUnavailable)
			return
		}
		if !r.authorized(req) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := fetch(req.Context()); err != nil {
			slog.Error("refreshing from provider", "path", req.URL.Path, "error", err)
			http.Error(w, "provider error", http.StatusBadGateway)
			return
		}
		show(w, req)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
