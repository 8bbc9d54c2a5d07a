package pass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ticket is the loosely structured ticket object received from the
// ticketing backend. Field names vary between snake and camel case.
type Ticket map[string]interface{}

// Record is a row returned by a RecordFinder
type Record map[string]interface{}

// DecodeTicket parses a JSON ticket object, keeping numbers as
// json.Number so ids and amounts render exactly as sent
func DecodeTicket(data []byte) (Ticket, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var t Ticket
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("pass: failed to decode ticket: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("pass: ticket is not a JSON object")
	}
	return t, nil
}

// dateLayouts are tried in order when parsing dates of tickets and events
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// lookup returns the first non-empty value among keys
func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if stringify(v) == "" {
			if _, isMap := v.(map[string]interface{}); !isMap {
				continue
			}
		}
		return v, true
	}
	return nil, false
}

// stringField returns the first non-empty value among keys as text
func stringField(m map[string]interface{}, keys ...string) string {
	v, ok := lookup(m, keys...)
	if !ok {
		return ""
	}
	return stringify(v)
}

// objectField returns the first nested object among keys
func objectField(m map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]interface{}:
			return v
		case Record:
			return v
		case Ticket:
			return v
		}
	}
	return nil
}

// stringify renders scalar values the way they appear in JSON. Objects
// and arrays render as empty strings.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// number returns v as a float64 when it is numeric or numeric text
func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// parseDate parses the date formats seen in ticket and event records
func parseDate(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s := stringify(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
