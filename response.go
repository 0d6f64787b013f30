package hook

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// Response is the outcome of a successful request.
type Response struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Raw is the unprocessed response body.
	Raw []byte

	// Data is the decoded JSON body with ISO 8601 date strings revived as
	// time.Time. Nil when the body was empty or not valid JSON.
	Data any

	// Total is the collection size reported by the X-Total-Count header on
	// paginated listings, or -1 when the header is absent.
	Total int64
}

// Decode unmarshals the raw response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Raw) == 0 {
		return errors.New("response has no body")
	}
	return json.Unmarshal(r.Raw, v)
}

// decodeBody parses a response body as JSON and revives date strings. The
// second result reports whether the body decoded at all; malformed bodies
// are not an error, just absent data.
func decodeBody(raw []byte) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return reviveDates(v), true
}

// reviveDates walks a decoded JSON tree replacing ISO 8601 date strings with
// time.Time values, in place where possible.
func reviveDates(v any) any {
	switch t := v.(type) {
	case string:
		if ts, ok := parseDateString(t); ok {
			return ts
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = reviveDates(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = reviveDates(val)
		}
		return t
	default:
		return v
	}
}

// datePattern matches the ISO 8601 timestamp shape the backend emits. The
// cheap shape check keeps ordinary strings off the time parser.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // no zone, taken as UTC
}

func parseDateString(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// totalCount extracts the X-Total-Count header, -1 when absent or invalid.
func totalCount(h http.Header) int64 {
	s := h.Get("X-Total-Count")
	if s == "" {
		return -1
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
