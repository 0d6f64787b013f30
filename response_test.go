package hook

import (
	"net/http"
	"testing"
	"time"
)

func TestDecodeBody(t *testing.T) {
	v, ok := decodeBody([]byte(`{"a":1}`))
	if !ok {
		t.Fatal("decodeBody() should decode a JSON object")
	}
	if m := v.(map[string]any); m["a"] != float64(1) {
		t.Errorf("decoded = %v", v)
	}

	if _, ok := decodeBody(nil); ok {
		t.Error("empty body should not decode")
	}
	if _, ok := decodeBody([]byte("<html>")); ok {
		t.Error("malformed body should not decode")
	}

	v, ok = decodeBody([]byte(`null`))
	if !ok || v != nil {
		t.Errorf("decodeBody(null) = %v, %v; want nil, true", v, ok)
	}
}

func TestReviveDates_Nested(t *testing.T) {
	v, ok := decodeBody([]byte(`{
		"title": "Dune",
		"created_at": "2024-03-01T10:30:00Z",
		"meta": {"updated_at": "2024-04-02T08:00:00.5+02:00"},
		"history": ["2024-05-01T00:00:00Z", "plain string"]
	}`))
	if !ok {
		t.Fatal("decodeBody() failed")
	}
	m := v.(map[string]any)

	if _, ok := m["created_at"].(time.Time); !ok {
		t.Errorf("created_at = %T, want time.Time", m["created_at"])
	}
	if m["title"] != "Dune" {
		t.Errorf("title = %v, want untouched string", m["title"])
	}

	meta := m["meta"].(map[string]any)
	ts, ok := meta["updated_at"].(time.Time)
	if !ok {
		t.Fatalf("meta.updated_at = %T, want time.Time", meta["updated_at"])
	}
	want := time.Date(2024, 4, 2, 8, 0, 0, 500000000, time.FixedZone("", 2*3600))
	if !ts.Equal(want) {
		t.Errorf("meta.updated_at = %v, want %v", ts, want)
	}

	history := m["history"].([]any)
	if _, ok := history[0].(time.Time); !ok {
		t.Errorf("history[0] = %T, want time.Time", history[0])
	}
	if history[1] != "plain string" {
		t.Errorf("history[1] = %v, want untouched", history[1])
	}
}

func TestParseDateString(t *testing.T) {
	accepted := []string{
		"2024-03-01T10:30:00Z",
		"2024-03-01T10:30:00.123Z",
		"2024-03-01T10:30:00+02:00",
		"2024-03-01T10:30:00",
		"2024-03-01T10:30:00.999999999",
	}
	for _, s := range accepted {
		if _, ok := parseDateString(s); !ok {
			t.Errorf("parseDateString(%q) should parse", s)
		}
	}

	rejected := []string{
		"",
		"Dune",
		"2024-03-01",
		"10:30:00",
		"2024-03-01 10:30:00",
		"not2024-03-01T10:30:00Z",
		"2024-03-01T10:30:00Ztrailing",
	}
	for _, s := range rejected {
		if _, ok := parseDateString(s); ok {
			t.Errorf("parseDateString(%q) should be rejected", s)
		}
	}
}

func TestParseDateString_NoZoneIsUTC(t *testing.T) {
	ts, ok := parseDateString("2024-03-01T10:30:00")
	if !ok {
		t.Fatal("parseDateString() should parse a zoneless timestamp")
	}
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("parsed = %v, want %v", ts, want)
	}
}

func TestTotalCount(t *testing.T) {
	h := http.Header{}
	if got := totalCount(h); got != -1 {
		t.Errorf("totalCount() = %d, want -1 when absent", got)
	}

	h.Set("X-Total-Count", "37")
	if got := totalCount(h); got != 37 {
		t.Errorf("totalCount() = %d, want 37", got)
	}

	h.Set("X-Total-Count", "many")
	if got := totalCount(h); got != -1 {
		t.Errorf("totalCount() = %d, want -1 when invalid", got)
	}
}
