package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sweeney/callboard/internal/record"
)

const upsertSession = `INSERT INTO call_sessions(call_session_id, start_timestamp, end_timestamp)
	VALUES(?, ?, ?)
	ON CONFLICT(call_session_id) DO UPDATE SET
		start_timestamp = excluded.start_timestamp,
		end_timestamp = excluded.end_timestamp`

const upsertChannel = `INSERT INTO call_channels(
		call_channel_id, call_session_id, call_direction, a_number, b_number,
		end_point_class, call_state, active, answered, hangup_by, hangup_reason,
		call_timestamp, ringing_timestamp, answer_timestamp, hangup_timestamp,
		login_id, location_id, device_id, service_number_id)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(call_channel_id) DO UPDATE SET
		call_session_id = excluded.call_session_id,
		call_direction = excluded.call_direction,
		a_number = excluded.a_number,
		b_number = excluded.b_number,
		end_point_class = excluded.end_point_class,
		call_state = excluded.call_state,
		active = excluded.active,
		answered = excluded.answered,
		hangup_by = excluded.hangup_by,
		hangup_reason = excluded.hangup_reason,
		call_timestamp = excluded.call_timestamp,
		ringing_timestamp = excluded.ringing_timestamp,
		answer_timestamp = excluded.answer_timestamp,
		hangup_timestamp = excluded.hangup_timestamp,
		login_id = excluded.login_id,
		location_id = excluded.location_id,
		device_id = excluded.device_id,
		service_number_id = excluded.service_number_id`

// SaveCallData upserts sessions and their channels in one transaction.
// Sessions must be saved before (or with) their channels.
func (s *Store) SaveCallData(ctx context.Context, sessions []record.Session, channels []record.Channel) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, sess := range sessions {
			if _, err := tx.ExecContext(ctx, upsertSession,
				sess.SessionID, sess.StartTimestamp, sess.EndTimestamp); err != nil {
				return fmt.Errorf("saving session %s: %w", sess.SessionID, err)
			}
		}
		for _, c := range channels {
			if _, err := tx.ExecContext(ctx, upsertChannel,
				c.ChannelID, c.SessionID, string(c.Direction),
				nullable(c.FromNumber), nullable(c.ToNumber),
				string(c.EndPointClass), string(c.CallState), c.Active, c.Answered,
				nullable(string(c.HangupBy)), nullable(string(c.HangupReason)),
				c.CallTimestamp, c.RingingTimestamp, c.AnswerTimestamp, c.HangupTimestamp,
				nullable(c.LoginID), nullable(c.LocationID), nullable(c.DeviceID),
				nullable(c.ServiceNumberID)); err != nil {
				return fmt.Errorf("saving channel %s: %w", c.ChannelID, err)
			}
		}
		return nil
	})
}

const selectChannels = `SELECT
		c.call_channel_id, c.call_session_id, c.call_direction, c.a_number, c.b_number,
		c.end_point_class, c.call_state, c.active, c.answered, c.hangup_by, c.hangup_reason,
		c.call_timestamp, c.ringing_timestamp, c.answer_timestamp, c.hangup_timestamp,
		c.login_id, c.location_id, c.device_id, c.service_number_id,
		a.agent_first_name, a.agent_last_name, a.agent_email,
		p.location_name, p.location_description,
		sn.service_number_description
	FROM call_channels c
	LEFT OUTER JOIN agents a ON a.agent_id = c.login_id
	LEFT OUTER JOIN internal_phones p ON p.location_id = c.location_id
	LEFT OUTER JOIN service_numbers sn ON sn.service_number_id = c.service_number_id
	WHERE c.call_session_id = ?
	ORDER BY c.call_timestamp, c.rowid`

// ChannelRecords returns the channels of a session ordered by call
// timestamp, with agent, location and service number details joined in.
// An unknown session yields no channels and no error.
func (s *Store) ChannelRecords(ctx context.Context, sessionID string) ([]record.Channel, error) {
	rows, err := s.db.QueryContext(ctx, selectChannels, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []record.Channel
	for rows.Next() {
		var c record.Channel
		var from, to, login, location, device, service sql.NullInt64
		var hangupBy, hangupReason sql.NullString
		var ringing, answer, hangup sql.NullFloat64
		var first, last, email, locName, locDescr, serviceDescr sql.NullString
		if err := rows.Scan(
			&c.ChannelID, &c.SessionID, &c.Direction, &from, &to,
			&c.EndPointClass, &c.CallState, &c.Active, &c.Answered, &hangupBy, &hangupReason,
			&c.CallTimestamp, &ringing, &answer, &hangup,
			&login, &location, &device, &service,
			&first, &last, &email, &locName, &locDescr, &serviceDescr,
		); err != nil {
			return nil, err
		}
		c.FromNumber, c.ToNumber = from.Int64, to.Int64
		c.LoginID, c.LocationID, c.DeviceID, c.ServiceNumberID = login.Int64, location.Int64, device.Int64, service.Int64
		c.HangupBy = record.HangupBy(hangupBy.String)
		c.HangupReason = record.HangupReason(hangupReason.String)
		c.RingingTimestamp = floatPtr(ringing)
		c.AnswerTimestamp = floatPtr(answer)
		c.HangupTimestamp = floatPtr(hangup)
		c.AgentFirstName, c.AgentLastName, c.AgentEmail = first.String, last.String, email.String
		c.LocationName, c.LocationDescription = locName.String, locDescr.String
		c.ServiceNumberDescription = serviceDescr.String
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// SessionsBetween returns the ids of sessions that started in [from, to),
// newest first. Bounds are epoch seconds.
func (s *Store) SessionsBetween(ctx context.Context, from, to float64) ([]string, error) {
	return s.sessionIDs(ctx, `SELECT call_session_id FROM call_sessions
		WHERE start_timestamp >= ? AND start_timestamp < ?
		ORDER BY start_timestamp DESC`, from, to)
}

// NewestSessions returns the ids of sessions that started within window
// before now, newest first.
func (s *Store) NewestSessions(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	since := float64(now.Add(-window).UnixNano()) / 1e9
	return s.sessionIDs(ctx, `SELECT call_session_id FROM call_sessions
		WHERE start_timestamp >= ?
		ORDER BY start_timestamp DESC`, since)
}

func (s *Store) sessionIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
