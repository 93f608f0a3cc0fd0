package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRecord is returned when a record carries a code that is not
// part of its enum's table.
var ErrMalformedRecord = errors.New("malformed record")

// Direction is the provider's call direction code for a channel.
type Direction string

const (
	DirectionIncoming Direction = "i"
	DirectionOutgoing Direction = "o"
)

// EndPointClass tells whether a channel terminates at an internal phone
// (agent) or outside the exchange (PSTN or service number).
type EndPointClass string

const (
	EndPointInternal EndPointClass = "i"
	EndPointExternal EndPointClass = "e"
)

// CallState is the last reported state of a channel.
type CallState string

const (
	CallStateProceeding  CallState = "p"
	CallStateRinging     CallState = "r"
	CallStateEstablished CallState = "e"
	CallStateTerminated  CallState = "t"
)

// HangupBy records which party ended the channel.
type HangupBy string

const (
	HangupByCaller HangupBy = "c"
	HangupByCallee HangupBy = "r"
)

// HangupReason is why a channel ended. The empty value means no reason was
// reported.
type HangupReason string

const (
	HangupNormal        HangupReason = "n"
	HangupCanceled      HangupReason = "c"
	HangupBusy          HangupReason = "b"
	HangupRedirected    HangupReason = "r"
	HangupInvalidNumber HangupReason = "i"
	HangupDeclined      HangupReason = "d"
	HangupTimeout       HangupReason = "t"
	HangupFailed        HangupReason = "f"
)

// codeTable maps single-character wire codes to the enum names used in the
// provider's XML export.
type codeTable[T ~string] struct {
	kind  string
	names map[T]string
}

func (t codeTable[T]) name(code T) (string, error) {
	n, ok := t.names[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown %s code %q", ErrMalformedRecord, t.kind, string(code))
	}
	return n, nil
}

func (t codeTable[T]) parse(name string) (T, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for code, n := range t.names {
		if n == want {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: unknown %s %q", ErrMalformedRecord, t.kind, name)
}

var directions = codeTable[Direction]{"call direction", map[Direction]string{
	DirectionIncoming: "incoming",
	DirectionOutgoing: "outgoing",
}}

var endPointClasses = codeTable[EndPointClass]{"end point class", map[EndPointClass]string{
	EndPointInternal: "internal",
	EndPointExternal: "external",
}}

var callStates = codeTable[CallState]{"call state", map[CallState]string{
	CallStateProceeding:  "proceeding",
	CallStateRinging:     "ringing",
	CallStateEstablished: "established",
	CallStateTerminated:  "terminated",
}}

var hangupBys = codeTable[HangupBy]{"hangup by", map[HangupBy]string{
	HangupByCaller: "caller",
	HangupByCallee: "callee",
}}

var hangupReasons = codeTable[HangupReason]{"hangup reason", map[HangupReason]string{
	HangupNormal:        "normal",
	HangupCanceled:      "canceled",
	HangupBusy:          "busy",
	HangupRedirected:    "redirected",
	HangupInvalidNumber: "invalidnumber",
	HangupDeclined:      "declined",
	HangupTimeout:       "timeout",
	HangupFailed:        "failed",
}}

// ParseDirection maps an enum name such as "Incoming" to its code.
func ParseDirection(name string) (Direction, error) { return directions.parse(name) }

// ParseEndPointClass maps an enum name such as "Internal" to its code.
func ParseEndPointClass(name string) (EndPointClass, error) { return endPointClasses.parse(name) }

// ParseCallState maps an enum name such as "Terminated" to its code.
func ParseCallState(name string) (CallState, error) { return callStates.parse(name) }

// ParseHangupBy maps an enum name such as "Caller" to its code.
func ParseHangupBy(name string) (HangupBy, error) { return hangupBys.parse(name) }

// ParseHangupReason maps an enum name such as "Busy" to its code.
func ParseHangupReason(name string) (HangupReason, error) { return hangupReasons.parse(name) }

func (d Direction) Name() (string, error)     { return directions.name(d) }
func (c EndPointClass) Name() (string, error) { return endPointClasses.name(c) }
func (s CallState) Name() (string, error)     { return callStates.name(s) }
func (h HangupBy) Name() (string, error)      { return hangupBys.name(h) }

// Name returns the enum name of the reason, e.g. "busy" for HangupBusy.
func (r HangupReason) Name() (string, error) { return hangupReasons.name(r) }

// IsError reports whether the reason is present and is not a normal hangup.
func (r HangupReason) IsError() bool {
	return r != "" && r != HangupNormal
}
