package xmlexport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/callboard/internal/phone"
)

var (
	errMissing          = errors.New("missing")
	errInactiveNoHangup = errors.New("missing on an inactive channel")
	errActiveHungUp     = errors.New("set on an active channel")
	errAnsweredNoAnswer = errors.New("missing on an answered channel")
)

// fields converts element text to typed values, keeping the first error so
// a whole element can be converted before checking.
type fields struct {
	err error
}

func (f *fields) fail(name string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("%s: %w", name, err)
	}
}

func (f *fields) wrap(what string) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformed, what, f.err)
}

func (f *fields) uuid(name, text string) string {
	id, err := uuid.Parse(strings.TrimSpace(text))
	if err != nil {
		f.fail(name, err)
		return ""
	}
	return id.String()
}

func (f *fields) phone(name, text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n, err := phone.ParseE164(text)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) integer(name, text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) boolean(name, text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		return true
	case "false", "":
		return false
	default:
		f.fail(name, fmt.Errorf("%q is not True or False", text))
		return false
	}
}

func (f *fields) requiredTime(name, text string) float64 {
	if strings.TrimSpace(text) == "" {
		f.fail(name, errMissing)
		return 0
	}
	t := f.optionalTime(name, text)
	if t == nil {
		return 0
	}
	return *t
}

func (f *fields) optionalTime(name, text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	t, err := parseTimestamp(text)
	if err != nil {
		f.fail(name, err)
		return nil
	}
	epoch := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return &epoch
}

// Timestamps without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(text string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 timestamp", text)
}

func required[T ~string](f *fields, name, text string, parse func(string) (T, error)) T {
	if strings.TrimSpace(text) == "" {
		f.fail(name, errMissing)
		return ""
	}
	v, err := parse(text)
	if err != nil {
		f.fail(name, err)
	}
	return v
}

func optional[T ~string](f *fields, name, text string, parse func(string) (T, error)) T {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	v, err := parse(text)
	if err != nil {
		f.fail(name, err)
	}
	return v
}
