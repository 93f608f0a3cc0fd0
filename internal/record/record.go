package record

// Session is one logical phone call as reported by the provider.
type Session struct {
	SessionID      string
	StartTimestamp float64
	EndTimestamp   *float64
}

// Channel is one leg of a session. Timestamps are epoch seconds; numbers are
// E.164 digits without the leading plus, with 0 meaning "not reported".
//
// CallTimestamp is always set and orders channels within a session.
// HangupTimestamp is set iff Active is false.
type Channel struct {
	ChannelID     string
	SessionID     string
	Direction     Direction
	FromNumber    int64
	ToNumber      int64
	EndPointClass EndPointClass
	CallState     CallState
	Active        bool
	Answered      bool
	HangupBy      HangupBy
	HangupReason  HangupReason

	CallTimestamp    float64
	RingingTimestamp *float64
	AnswerTimestamp  *float64
	HangupTimestamp  *float64

	LoginID         int64
	LocationID      int64
	DeviceID        int64
	ServiceNumberID int64

	// Display context joined in by the store.
	AgentFirstName           string
	AgentLastName            string
	AgentEmail               string
	LocationName             string
	LocationDescription      string
	ServiceNumberDescription string
}

// Incoming reports whether the channel was placed towards the exchange.
func (c Channel) Incoming() bool {
	return c.Direction == DirectionIncoming
}

// ToAgent reports whether the channel rings an internal phone.
func (c Channel) ToAgent() bool {
	return c.EndPointClass == EndPointInternal && c.Direction == DirectionOutgoing
}

// ToService reports whether the channel's B number is a service number.
func (c Channel) ToService() bool {
	return c.ServiceNumberID != 0
}

// Agent is a login known to the provider.
type Agent struct {
	AgentID     int64   `json:"agent_id"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	Email       string  `json:"email,omitempty"`
	LastUpdated float64 `json:"last_updated"`
}

// InternalPhone is a location (desk phone, softphone or mobile) an agent
// can log in at.
type InternalPhone struct {
	LocationID  int64   `json:"location_id"`
	Number      int64   `json:"number,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	LastUpdated float64 `json:"last_updated"`
}

// ServiceNumber is a public number routed into the exchange.
type ServiceNumber struct {
	ServiceNumberID int64   `json:"service_number_id"`
	Number          int64   `json:"number,omitempty"`
	Description     string  `json:"description,omitempty"`
	LastUpdated     float64 `json:"last_updated"`
}

// Contact is an entry in the shared phone book.
type Contact struct {
	ContactID   int64   `json:"contact_id"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	Email       string  `json:"email,omitempty"`
	PSTNNumber  int64   `json:"pstn_number,omitempty"`
	GSMNumber   int64   `json:"gsm_number,omitempty"`
	Company     string  `json:"company,omitempty"`
	Comments    string  `json:"comments,omitempty"`
	Title       string  `json:"title,omitempty"`
	Department  string  `json:"department,omitempty"`
	Address     string  `json:"address,omitempty"`
	Editable    bool    `json:"editable"`
	LastUpdated float64 `json:"last_updated"`
}
