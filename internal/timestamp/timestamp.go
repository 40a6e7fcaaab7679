// Package timestamp reads the date formats found in hand-edited and older
// data files and writes RFC 3339.
package timestamp

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
)

// Zoneless layouts are read in the local time zone, which is how the older
// tooling wrote them.
var layouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02 15:04:05.999999999Z07:00", true},
	{"2006-01-02 15:04:05.999999999", false},
	{"2006-01-02", false},
}

// Time is a time.Time with lenient JSON decoding.
type Time struct {
	time.Time
}

func From(t time.Time) Time { return Time{t} }

// Parse accepts RFC 3339, ISO 8601 without a zone (with or without a
// fractional second, "T" or space separated) and a bare date.
func Parse(s string) (Time, error) {
	for _, l := range layouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, time.Local)
		}
		if err == nil {
			return Time{t}, nil
		}
	}
	return Time{}, fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339Nano))), nil
}

// UnmarshalJSON leaves t zero for null and "".
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp: not a JSON string: %s", data)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (Time) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Format: "date-time"}
}
