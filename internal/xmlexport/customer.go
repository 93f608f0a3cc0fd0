package xmlexport

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sweeney/callboard/internal/record"
)

// CustomerData is the master data from a customer export.
type CustomerData struct {
	Agents         []record.Agent
	InternalPhones []record.InternalPhone
	ServiceNumbers []record.ServiceNumber
}

type xmlCustomerExport struct {
	Logins []struct {
		LoginID   string `xml:"LoginId"`
		FirstName string `xml:"Firstname"`
		LastName  string `xml:"LastName"`
		Email     string `xml:"Email"`
	} `xml:"Logins>Login"`
	Locations []struct {
		LocationID   string `xml:"LocationId"`
		FixedNumber  string `xml:"FixedNumber"`
		PSTNNumber   string `xml:"PstnNumber"`
		GSMNumber    string `xml:"GsmNumber"`
		LocationName string `xml:"LocationName"`
		Description  string `xml:"Description"`
	} `xml:"Locations>Location"`
	ServiceNumbers []struct {
		ServiceNumberID string `xml:"ServiceNumberId"`
		Number          string `xml:"Number"`
		Description     string `xml:"Description"`
	} `xml:"ServiceNumbers>ServiceNumber"`
}

// ParseCustomerData reads a customer export. Entries without an id are
// skipped. now is recorded as the entries' last update time.
func ParseCustomerData(r io.Reader, now time.Time) (CustomerData, error) {
	var raw xmlCustomerExport
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return CustomerData{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	updated := float64(now.Unix())

	var out CustomerData
	var f fields
	for _, l := range raw.Logins {
		id := f.integer("LoginId", l.LoginID)
		if id == 0 {
			continue
		}
		out.Agents = append(out.Agents, record.Agent{
			AgentID:     id,
			FirstName:   strings.TrimSpace(l.FirstName),
			LastName:    strings.TrimSpace(l.LastName),
			Email:       strings.TrimSpace(l.Email),
			LastUpdated: updated,
		})
	}
	for _, l := range raw.Locations {
		id := f.integer("LocationId", l.LocationID)
		if id == 0 {
			continue
		}
		number := f.phone("FixedNumber", l.FixedNumber)
		if number == 0 {
			number = f.phone("PstnNumber", l.PSTNNumber)
		}
		if number == 0 {
			number = f.phone("GsmNumber", l.GSMNumber)
		}
		out.InternalPhones = append(out.InternalPhones, record.InternalPhone{
			LocationID:  id,
			Number:      number,
			Name:        strings.TrimSpace(l.LocationName),
			Description: strings.TrimSpace(l.Description),
			LastUpdated: updated,
		})
	}
	for _, s := range raw.ServiceNumbers {
		id := f.integer("ServiceNumberId", s.ServiceNumberID)
		if id == 0 {
			continue
		}
		out.ServiceNumbers = append(out.ServiceNumbers, record.ServiceNumber{
			ServiceNumberID: id,
			Number:          f.phone("Number", s.Number),
			Description:     strings.TrimSpace(s.Description),
			LastUpdated:     updated,
		})
	}
	if f.err != nil {
		return CustomerData{}, f.wrap("customer export")
	}
	return out, nil
}

type xmlContacts struct {
	Contacts []struct {
		ContactID  string `xml:"ContactId"`
		FirstName  string `xml:"FirstName"`
		LastName   string `xml:"LastName"`
		Email      string `xml:"Email"`
		Number     string `xml:"Number"`
		GSMNumber  string `xml:"GsmNumber"`
		Company    string `xml:"Company"`
		Comments   string `xml:"Comments"`
		Title      string `xml:"Title"`
		Department string `xml:"Department"`
		Address    string `xml:"Address"`
		Editable   string `xml:"Editable"`
	} `xml:"Contacts>Contact"`
}

// ParseContacts reads a phone book export. Entries without an id are
// skipped.
func ParseContacts(r io.Reader, now time.Time) ([]record.Contact, error) {
	var raw xmlContacts
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	updated := float64(now.Unix())

	var contacts []record.Contact
	var f fields
	for _, c := range raw.Contacts {
		id := f.integer("ContactId", c.ContactID)
		if id == 0 {
			continue
		}
		contacts = append(contacts, record.Contact{
			ContactID:   id,
			FirstName:   strings.TrimSpace(c.FirstName),
			LastName:    strings.TrimSpace(c.LastName),
			Email:       strings.TrimSpace(c.Email),
			PSTNNumber:  f.phone("Number", c.Number),
			GSMNumber:   f.phone("GsmNumber", c.GSMNumber),
			Company:     strings.TrimSpace(c.Company),
			Comments:    strings.TrimSpace(c.Comments),
			Title:       strings.TrimSpace(c.Title),
			Department:  strings.TrimSpace(c.Department),
			Address:     strings.TrimSpace(c.Address),
			Editable:    f.boolean("Editable", c.Editable),
			LastUpdated: updated,
		})
	}
	if f.err != nil {
		return nil, f.wrap("contacts export")
	}
	return contacts, nil
}
