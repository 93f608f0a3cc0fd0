package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweeney/callboard/internal/record"
)

// SaveCustomerData upserts agents, internal phones and service numbers in
// one transaction.
func (s *Store) SaveCustomerData(ctx context.Context, agents []record.Agent, phones []record.InternalPhone, services []record.ServiceNumber) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range agents {
			if _, err := tx.ExecContext(ctx, `INSERT INTO agents(
					agent_id, agent_first_name, agent_last_name, agent_email, agent_last_updated)
				VALUES(?, ?, ?, ?, ?)
				ON CONFLICT(agent_id) DO UPDATE SET
					agent_first_name = excluded.agent_first_name,
					agent_last_name = excluded.agent_last_name,
					agent_email = excluded.agent_email,
					agent_last_updated = excluded.agent_last_updated`,
				a.AgentID, nullable(a.FirstName), nullable(a.LastName), nullable(a.Email), a.LastUpdated); err != nil {
				return fmt.Errorf("saving agent %d: %w", a.AgentID, err)
			}
		}
		for _, p := range phones {
			if _, err := tx.ExecContext(ctx, `INSERT INTO internal_phones(
					location_id, location_number, location_name, location_description, location_last_updated)
				VALUES(?, ?, ?, ?, ?)
				ON CONFLICT(location_id) DO UPDATE SET
					location_number = excluded.location_number,
					location_name = excluded.location_name,
					location_description = excluded.location_description,
					location_last_updated = excluded.location_last_updated`,
				p.LocationID, nullable(p.Number), nullable(p.Name), nullable(p.Description), p.LastUpdated); err != nil {
				return fmt.Errorf("saving internal phone %d: %w", p.LocationID, err)
			}
		}
		for _, sn := range services {
			if _, err := tx.ExecContext(ctx, `INSERT INTO service_numbers(
					service_number_id, service_number, service_number_description, service_number_last_updated)
				VALUES(?, ?, ?, ?)
				ON CONFLICT(service_number_id) DO UPDATE SET
					service_number = excluded.service_number,
					service_number_description = excluded.service_number_description,
					service_number_last_updated = excluded.service_number_last_updated`,
				sn.ServiceNumberID, nullable(sn.Number), nullable(sn.Description), sn.LastUpdated); err != nil {
				return fmt.Errorf("saving service number %d: %w", sn.ServiceNumberID, err)
			}
		}
		return nil
	})
}

// SaveContacts upserts phone book entries in one transaction.
func (s *Store) SaveContacts(ctx context.Context, contacts []record.Contact) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range contacts {
			if _, err := tx.ExecContext(ctx, `INSERT INTO contacts(
					contact_id, first_name, last_name, email, pstn_number, gsm_number,
					company, comments, title, department, address, editable, contact_last_updated)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(contact_id) DO UPDATE SET
					first_name = excluded.first_name,
					last_name = excluded.last_name,
					email = excluded.email,
					pstn_number = excluded.pstn_number,
					gsm_number = excluded.gsm_number,
					company = excluded.company,
					comments = excluded.comments,
					title = excluded.title,
					department = excluded.department,
					address = excluded.address,
					editable = excluded.editable,
					contact_last_updated = excluded.contact_last_updated`,
				c.ContactID, nullable(c.FirstName), nullable(c.LastName), nullable(c.Email),
				nullable(c.PSTNNumber), nullable(c.GSMNumber),
				nullable(c.Company), nullable(c.Comments), nullable(c.Title),
				nullable(c.Department), nullable(c.Address), c.Editable, c.LastUpdated); err != nil {
				return fmt.Errorf("saving contact %d: %w", c.ContactID, err)
			}
		}
		return nil
	})
}

// ResolveNumber maps a number to a display name. Service numbers win over
// internal phones, which win over phone book contacts. Unknown numbers and
// lookup failures both yield "".
func (s *Store) ResolveNumber(ctx context.Context, number int64) string {
	if number == 0 {
		return ""
	}
	name, err := s.lookupNumber(ctx, number)
	if err != nil {
		slog.Warn("number lookup failed", "number", number, "error", err)
		return ""
	}
	return name
}

func (s *Store) lookupNumber(ctx context.Context, number int64) (string, error) {
	var descr sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT service_number_description FROM service_numbers
		WHERE service_number = ? LIMIT 1`, number).Scan(&descr)
	switch {
	case err == nil:
		return descr.String, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}

	var name sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT location_name, location_description FROM internal_phones
		WHERE location_number = ? LIMIT 1`, number).Scan(&name, &descr)
	switch {
	case err == nil:
		if name.String != "" {
			return name.String, nil
		}
		if descr.String != "" {
			return descr.String, nil
		}
		return "Agent phone", nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}

	var first, last sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT first_name, last_name FROM contacts
		WHERE pstn_number = ? OR gsm_number = ? LIMIT 1`, number, number).Scan(&first, &last)
	switch {
	case err == nil:
		return strings.TrimSpace(first.String + " " + last.String), nil
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	default:
		return "", err
	}
}

// Agents returns every known login ordered by id.
func (s *Store) Agents(ctx context.Context) ([]record.Agent, error) {
	return queryAll(ctx, s.db, `SELECT agent_id, agent_first_name, agent_last_name, agent_email,
			agent_last_updated
		FROM agents ORDER BY agent_id`,
		func(rows *sql.Rows) (record.Agent, error) {
			var a record.Agent
			var first, last, email sql.NullString
			var updated sql.NullFloat64
			err := rows.Scan(&a.AgentID, &first, &last, &email, &updated)
			a.FirstName, a.LastName, a.Email, a.LastUpdated = first.String, last.String, email.String, updated.Float64
			return a, err
		})
}

// InternalPhones returns every location ordered by id.
func (s *Store) InternalPhones(ctx context.Context) ([]record.InternalPhone, error) {
	return queryAll(ctx, s.db, `SELECT location_id, location_number, location_name, location_description,
			location_last_updated
		FROM internal_phones ORDER BY location_id`,
		func(rows *sql.Rows) (record.InternalPhone, error) {
			var p record.InternalPhone
			var number sql.NullInt64
			var name, descr sql.NullString
			var updated sql.NullFloat64
			err := rows.Scan(&p.LocationID, &number, &name, &descr, &updated)
			p.Number, p.Name, p.Description, p.LastUpdated = number.Int64, name.String, descr.String, updated.Float64
			return p, err
		})
}

// ServiceNumbers returns every service number ordered by id.
func (s *Store) ServiceNumbers(ctx context.Context) ([]record.ServiceNumber, error) {
	return queryAll(ctx, s.db, `SELECT service_number_id, service_number, service_number_description,
			service_number_last_updated
		FROM service_numbers ORDER BY service_number_id`,
		func(rows *sql.Rows) (record.ServiceNumber, error) {
			var sn record.ServiceNumber
			var number sql.NullInt64
			var descr sql.NullString
			var updated sql.NullFloat64
			err := rows.Scan(&sn.ServiceNumberID, &number, &descr, &updated)
			sn.Number, sn.Description, sn.LastUpdated = number.Int64, descr.String, updated.Float64
			return sn, err
		})
}

// Contacts returns the phone book ordered by last then first name.
func (s *Store) Contacts(ctx context.Context) ([]record.Contact, error) {
	return queryAll(ctx, s.db, `SELECT contact_id, first_name, last_name, email, pstn_number, gsm_number,
			company, comments, title, department, address, editable, contact_last_updated
		FROM contacts ORDER BY last_name, first_name, contact_id`,
		func(rows *sql.Rows) (record.Contact, error) {
			var c record.Contact
			var first, last, email, company, comments, title, department, address sql.NullString
			var pstn, gsm sql.NullInt64
			var editable sql.NullBool
			var updated sql.NullFloat64
			err := rows.Scan(&c.ContactID, &first, &last, &email, &pstn, &gsm,
				&company, &comments, &title, &department, &address, &editable, &updated)
			c.FirstName, c.LastName, c.Email = first.String, last.String, email.String
			c.PSTNNumber, c.GSMNumber = pstn.Int64, gsm.Int64
			c.Company, c.Comments, c.Title = company.String, comments.String, title.String
			c.Department, c.Address = department.String, address.String
			c.Editable, c.LastUpdated = editable.Bool, updated.Float64
			return c, err
		})
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
