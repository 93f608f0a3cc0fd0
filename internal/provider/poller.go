package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/store"
	"github.com/sweeney/callboard/internal/xmlexport"
)

// CursorKey is the keyvalue entry holding the id of the last imported
// session.
const CursorKey = "last_call_session_id"

// recentBatch stops the call data loop once the newest session in a batch
// started this close to now; the provider is caught up.
const recentBatch = 5 * time.Minute

// Store is the persistence the poller writes to.
type Store interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	SaveCallData(ctx context.Context, sessions []record.Session, channels []record.Channel) error
	SaveCustomerData(ctx context.Context, agents []record.Agent, phones []record.InternalPhone, services []record.ServiceNumber) error
	SaveContacts(ctx context.Context, contacts []record.Contact) error
}

// Poller imports provider exports into the store and calls notify after
// anything changed.
type Poller struct {
	client *Client
	store  Store
	notify func(ctx context.Context)
	now    func() time.Time
}

// NewPoller creates a Poller. notify may be nil.
func NewPoller(client *Client, st Store, notify func(ctx context.Context)) *Poller {
	return &Poller{client: client, store: st, notify: notify, now: time.Now}
}

// FetchCallData pulls new sessions batch by batch, advancing the stored
// cursor after each saved batch. It reports whether anything was imported.
func (p *Poller) FetchCallData(ctx context.Context) (bool, error) {
	cursor, err := p.store.GetValue(ctx, CursorKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("reading cursor: %w", err)
	}

	updated := false
	defer func() {
		if updated {
			p.changed(ctx)
		}
	}()

	for {
		params := url.Values{}
		if cursor != "" {
			params.Set("LastCallSessionId", cursor)
		}
		body, err := p.client.Get(ctx, "XmlExport", params)
		if err != nil {
			return updated, err
		}
		sessions, channels, err := xmlexport.ParseCallDataBytes(body)
		if err != nil {
			return updated, err
		}
		if len(sessions) == 0 {
			return updated, nil
		}
		if err := p.store.SaveCallData(ctx, sessions, channels); err != nil {
			return updated, fmt.Errorf("saving call data: %w", err)
		}
		updated = true

		last := sessions[len(sessions)-1]
		slog.Info("imported call sessions", "count", len(sessions), "last", last.SessionID)
		if last.SessionID == cursor {
			return updated, nil
		}
		cursor = last.SessionID
		if err := p.store.SetValue(ctx, CursorKey, cursor); err != nil {
			return updated, fmt.Errorf("saving cursor: %w", err)
		}

		age := p.now().Sub(time.Unix(0, int64(last.StartTimestamp*1e9)))
		if age <= recentBatch {
			return updated, nil
		}
	}
}

// FetchCustomerData replaces agents, internal phones and service numbers
// with the provider's current export.
func (p *Poller) FetchCustomerData(ctx context.Context) error {
	body, err := p.client.Get(ctx, "CustomerExport", nil)
	if err != nil {
		return err
	}
	data, err := xmlexport.ParseCustomerData(bytes.NewReader(body), p.now())
	if err != nil {
		return err
	}
	if err := p.store.SaveCustomerData(ctx, data.Agents, data.InternalPhones, data.ServiceNumbers); err != nil {
		return fmt.Errorf("saving customer data: %w", err)
	}
	slog.Info("customer data updated",
		"agents", len(data.Agents),
		"internal_phones", len(data.InternalPhones),
		"service_numbers", len(data.ServiceNumbers))
	p.changed(ctx)
	return nil
}

// FetchContacts refreshes the shared phone book.
func (p *Poller) FetchContacts(ctx context.Context) error {
	body, err := p.client.Get(ctx, "GetContacts", nil)
	if err != nil {
		return err
	}
	contacts, err := xmlexport.ParseContacts(bytes.NewReader(body), p.now())
	if err != nil {
		return err
	}
	if err := p.store.SaveContacts(ctx, contacts); err != nil {
		return fmt.Errorf("saving contacts: %w", err)
	}
	slog.Info("contacts updated", "count", len(contacts))
	p.changed(ctx)
	return nil
}

func (p *Poller) changed(ctx context.Context) {
	if p.notify != nil {
		p.notify(ctx)
	}
}
