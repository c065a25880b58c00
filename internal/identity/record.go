package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Text is a string field decoded leniently from the lookup service.
// Strings decode as-is, numbers keep their decimal form, booleans become
// "true"/"false" and null becomes "".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		n, err := formatNumber(string(data))
		if err != nil {
			return fmt.Errorf("decode text field: %w", err)
		}
		*t = Text(n)
	}
	return nil
}

// formatNumber renders a JSON number literal the way a phone or jersey
// number is displayed: integers verbatim, other values without exponent
// or trailing zeros.
func formatNumber(lit string) (string, error) {
	if _, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return lit, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Falsy reports whether a JSON value is absent, null, false, a zero
// number or the empty string. Server fields with a fallback use the
// fallback exactly when the value is falsy.
func Falsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("false")), bytes.Equal(raw, []byte(`""`)):
		return true
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f == 0
	}
	return false
}

// TextOf returns the text of a truthy scalar and "" for a falsy value or
// an object or array.
func TextOf(raw json.RawMessage) string {
	if Falsy(raw) {
		return ""
	}
	var t Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return string(t)
}

// Candidate is one possible identity match returned by the lookup service.
type Candidate struct {
	Name         Text `json:"name"`
	Phone        Text `json:"phone"`
	JerseyName   Text `json:"jerseyName"`
	JerseyNumber Text `json:"jerseyNumber"`
}

// Record is the single identity a session has committed to.
type Record struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	JerseyName   string `json:"jerseyName"`
	JerseyNumber string `json:"jerseyNumber"`
}

// Project turns a candidate into a resolved record, applying the jersey
// name and number fallbacks.
func Project(c Candidate) Record {
	jerseyName := string(c.JerseyName)
	if jerseyName == "" {
		jerseyName = string(c.Name)
	}
	return Record{
		Name:         string(c.Name),
		Phone:        string(c.Phone),
		JerseyName:   jerseyName,
		JerseyNumber: string(c.JerseyNumber),
	}
}

// Label is the one-line rendering used in candidate lists: only the name
// and phone are shown, jersey fields are kept for autofill. The text is
// NFC-composed for display; Project still copies fields verbatim.
func (c Candidate) Label() string {
	return norm.NFC.String(fmt.Sprintf("%s  %s", c.Name, c.Phone))
}
