package internal_test

import (
	"encoding/xml"
	"testing"

	"github.com/caldav-core/caldav/internal"
)

func TestStatusTextRoundTrip(t *testing.T) {
	s := &internal.Status{Code: 200, Text: "OK"}
	b, err := s.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got internal.Status
	if err := got.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got.Code != 200 || got.Text != "OK" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStatusErr(t *testing.T) {
	ok := &internal.Status{Code: 200}
	if err := ok.Err(); err != nil {
		t.Fatalf("a 2xx status should not produce an error, got %v", err)
	}

	fail := &internal.Status{Code: 404}
	if err := fail.Err(); err == nil {
		t.Fatal("a non-2xx status should produce an error")
	}

	var nilStatus *internal.Status
	if err := nilStatus.Err(); err != nil {
		t.Fatalf("a nil status should not produce an error, got %v", err)
	}
}

func TestHrefRoundTrip(t *testing.T) {
	var h internal.Href
	if err := h.UnmarshalText([]byte("/calendars/alice/home/event1.ics")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	b, err := h.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(b) != "/calendars/alice/home/event1.ics" {
		t.Fatalf("round trip mismatch: %q", b)
	}
}

func TestETagUnquotedTolerance(t *testing.T) {
	var quoted internal.ETag
	if err := quoted.UnmarshalText([]byte(`"abc123"`)); err != nil {
		t.Fatalf("UnmarshalText (quoted): %v", err)
	}
	if quoted != "abc123" {
		t.Fatalf("quoted ETag = %q, want %q", quoted, "abc123")
	}

	var unquoted internal.ETag
	if err := unquoted.UnmarshalText([]byte("abc123")); err != nil {
		t.Fatalf("UnmarshalText (unquoted) should tolerate a bare value, got error: %v", err)
	}
	if unquoted != "abc123" {
		t.Fatalf("unquoted ETag = %q, want %q", unquoted, "abc123")
	}
}

func TestMultistatusGet(t *testing.T) {
	ms := internal.NewMultistatus(
		*internal.NewOKResponse("/calendars/alice/home/"),
	)
	resp, err := ms.Get("/calendars/alice/home/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Hrefs) != 1 {
		t.Fatalf("expected one href, got %d", len(resp.Hrefs))
	}

	if _, err := ms.Get("/nowhere/"); err == nil {
		t.Fatal("Get on a missing path should fail")
	}
}

func TestRawXMLValueDecode(t *testing.T) {
	raw, err := internal.EncodeRawXMLElement(&internal.DisplayName{Name: "Home"})
	if err != nil {
		t.Fatalf("EncodeRawXMLElement: %v", err)
	}

	name, ok := raw.XMLName()
	if !ok || name != (xml.Name{Space: "DAV:", Local: "displayname"}) {
		t.Fatalf("XMLName() = %v, %v", name, ok)
	}

	var dn internal.DisplayName
	if err := raw.Decode(&dn); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dn.Name != "Home" {
		t.Fatalf("Name = %q, want %q", dn.Name, "Home")
	}
}

func TestPropGet(t *testing.T) {
	prop, err := internal.EncodeProp(&internal.DisplayName{Name: "Home"})
	if err != nil {
		t.Fatalf("EncodeProp: %v", err)
	}

	var dn internal.DisplayName
	if err := prop.Decode(&dn); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dn.Name != "Home" {
		t.Fatalf("Name = %q, want %q", dn.Name, "Home")
	}
}
