// Package xmlexport reads the provider's XML exports: call data telegrams,
// customer master data and the shared phone book.
package xmlexport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/callboard/internal/record"
)

// ErrMalformed is returned when an export cannot be read or carries values
// outside their format.
var ErrMalformed = errors.New("malformed export")

// SessionData is one CallSession element with its channels.
type SessionData struct {
	Session  record.Session
	Channels []record.Channel
}

// Parser reads CallSession elements from a call data export stream.
type Parser struct {
	dec *xml.Decoder
}

// NewParser creates a Parser that reads from the given reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{dec: xml.NewDecoder(r)}
}

// Next reads the next session from the stream. It returns io.EOF once the
// stream holds no more sessions.
func (p *Parser) Next() (SessionData, error) {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return SessionData{}, io.EOF
		}
		if err != nil {
			return SessionData{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "CallSession" {
			continue
		}

		var raw xmlCallSession
		if err := p.dec.DecodeElement(&raw, &start); err != nil {
			return SessionData{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return raw.convert()
	}
}

// ParseAll reads all sessions from the stream.
func (p *Parser) ParseAll() ([]SessionData, error) {
	var sessions []SessionData
	for {
		s, err := p.Next()
		if err == io.EOF {
			return sessions, nil
		}
		if err != nil {
			return sessions, err
		}
		sessions = append(sessions, s)
	}
}

// ParseCallData reads a whole call data export and flattens it into
// session and channel records.
func ParseCallData(r io.Reader) ([]record.Session, []record.Channel, error) {
	data, err := NewParser(r).ParseAll()
	if err != nil {
		return nil, nil, err
	}
	var sessions []record.Session
	var channels []record.Channel
	for _, d := range data {
		sessions = append(sessions, d.Session)
		channels = append(channels, d.Channels...)
	}
	return sessions, channels, nil
}

// ParseCallDataBytes is a convenience wrapper around ParseCallData.
func ParseCallDataBytes(data []byte) ([]record.Session, []record.Channel, error) {
	return ParseCallData(bytes.NewReader(data))
}

type xmlCallSession struct {
	CallSessionID  string              `xml:"CallSessionId"`
	StartTimestamp string              `xml:"StartTimestamp"`
	EndTimestamp   string              `xml:"EndTimestamp"`
	Channels       []xmlCallChannel    `xml:"CallChannels>CallChannel"`
	ServiceNumbers []xmlSessionService `xml:"ServiceNumbers>ServiceNumber"`
}

type xmlCallChannel struct {
	CallChannelID    string `xml:"CallChannelId"`
	CallDirection    string `xml:"CallDirection"`
	ANumber          string `xml:"ANumber"`
	BNumber          string `xml:"BNumber"`
	EndPointClass    string `xml:"EndPointClass"`
	CallState        string `xml:"CallState"`
	Active           string `xml:"Active"`
	Answered         string `xml:"Answered"`
	HangupBy         string `xml:"HangupBy"`
	HangupReason     string `xml:"HangupReason"`
	CallTimestamp    string `xml:"CallTimestamp"`
	RingingTimestamp string `xml:"RingingTimestamp"`
	AnswerTimestamp  string `xml:"AnswerTimestamp"`
	HangupTimestamp  string `xml:"HangupTimestamp"`
	LoginID          string `xml:"LoginId"`
	LocationID       string `xml:"LocationId"`
	DeviceID         string `xml:"DeviceId"`
}

// xmlSessionService links a channel to the service number it reached.
type xmlSessionService struct {
	ServiceNumberID string `xml:"ServiceNumberId"`
	CallChannelID   string `xml:"CallChannelId"`
	Number          string `xml:"Number"`
}

func (raw xmlCallSession) convert() (SessionData, error) {
	var out SessionData
	var f fields

	out.Session.SessionID = f.uuid("CallSessionId", raw.CallSessionID)
	out.Session.StartTimestamp = f.requiredTime("StartTimestamp", raw.StartTimestamp)
	out.Session.EndTimestamp = f.optionalTime("EndTimestamp", raw.EndTimestamp)
	if f.err != nil {
		return out, f.wrap("call session")
	}

	for _, rc := range raw.Channels {
		c, err := rc.convert(out.Session.SessionID)
		if err != nil {
			return out, fmt.Errorf("call session %s: %w", out.Session.SessionID, err)
		}
		c.ServiceNumberID = raw.serviceNumberFor(c)
		out.Channels = append(out.Channels, c)
	}
	return out, nil
}

func (rc xmlCallChannel) convert(sessionID string) (record.Channel, error) {
	var f fields
	c := record.Channel{
		ChannelID:        f.uuid("CallChannelId", rc.CallChannelID),
		SessionID:        sessionID,
		FromNumber:       f.phone("ANumber", rc.ANumber),
		ToNumber:         f.phone("BNumber", rc.BNumber),
		Active:           f.boolean("Active", rc.Active),
		Answered:         f.boolean("Answered", rc.Answered),
		CallTimestamp:    f.requiredTime("CallTimestamp", rc.CallTimestamp),
		RingingTimestamp: f.optionalTime("RingingTimestamp", rc.RingingTimestamp),
		AnswerTimestamp:  f.optionalTime("AnswerTimestamp", rc.AnswerTimestamp),
		HangupTimestamp:  f.optionalTime("HangupTimestamp", rc.HangupTimestamp),
		LoginID:          f.integer("LoginId", rc.LoginID),
		LocationID:       f.integer("LocationId", rc.LocationID),
		DeviceID:         f.integer("DeviceId", rc.DeviceID),
	}
	c.Direction = required(&f, "CallDirection", rc.CallDirection, record.ParseDirection)
	c.EndPointClass = required(&f, "EndPointClass", rc.EndPointClass, record.ParseEndPointClass)
	c.CallState = required(&f, "CallState", rc.CallState, record.ParseCallState)
	c.HangupBy = optional(&f, "HangupBy", rc.HangupBy, record.ParseHangupBy)
	c.HangupReason = optional(&f, "HangupReason", rc.HangupReason, record.ParseHangupReason)

	switch {
	case !c.Active && c.HangupTimestamp == nil:
		f.fail("HangupTimestamp", errInactiveNoHangup)
	case c.Active && c.HangupTimestamp != nil:
		f.fail("HangupTimestamp", errActiveHungUp)
	}
	if c.Answered && c.AnswerTimestamp == nil {
		f.fail("AnswerTimestamp", errAnsweredNoAnswer)
	}

	if f.err != nil {
		return c, f.wrap("call channel " + rc.CallChannelID)
	}
	return c, nil
}

// serviceNumberFor finds the service number whose channel and number match
// the channel's B number. Zero means none.
func (raw xmlCallSession) serviceNumberFor(c record.Channel) int64 {
	if c.ToNumber == 0 {
		return 0
	}
	for _, sn := range raw.ServiceNumbers {
		var f fields
		channelID := f.uuid("CallChannelId", sn.CallChannelID)
		number := f.phone("Number", sn.Number)
		id := f.integer("ServiceNumberId", sn.ServiceNumberID)
		if f.err != nil {
			continue
		}
		if channelID == c.ChannelID && number == c.ToNumber {
			return id
		}
	}
	return 0
}
