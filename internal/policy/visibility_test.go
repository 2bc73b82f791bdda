package policy

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"
)

// Property: every valid visibility survives a String/Parse round trip,
// and the JSON form is the same string name.
func testVisibility_RoundTrip(t *rapid.T) {
	v := rapid.SampledFrom([]Visibility{VisibilityPrivate, VisibilityPublic, VisibilityPassword}).Draw(t, "visibility")

	parsed, err := ParseVisibility(v.String())
	if err != nil {
		t.Fatalf("parse %q: %v", v.String(), err)
	}
	if parsed != v {
		t.Fatalf("round trip %v -> %v", v, parsed)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	var back Visibility
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if back != v {
		t.Fatalf("json round trip %v -> %v", v, back)
	}
}

func TestVisibility_RoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testVisibility_RoundTrip)
}

func TestParseVisibility_Unknown(t *testing.T) {
	t.Parallel()
	if _, err := ParseVisibility("friends-only"); err == nil {
		t.Fatalf("expected error for unknown visibility")
	}
	var v Visibility
	if err := json.Unmarshal([]byte(`"hidden"`), &v); err == nil {
		t.Fatalf("expected error for unknown JSON visibility")
	}
	if err := json.Unmarshal([]byte(`2`), &v); err == nil {
		t.Fatalf("expected error for numeric JSON visibility")
	}
}
