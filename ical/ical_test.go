package ical

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	const src = "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:event-1@example.com\r\n" +
		"DTSTAMP:20260101T000000Z\r\n" +
		"DTSTART:20260115T090000Z\r\n" +
		"DTEND:20260115T100000Z\r\n" +
		"SUMMARY:Team sync\r\n" +
		"DESCRIPTION:Line one\\nLine two\\, still one field\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	cal, err := NewDecoder(strings.NewReader(src)).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 VEVENT, got %d", len(events))
	}
	ev := events[0]

	if got := ev.UID(); got != "event-1@example.com" {
		t.Errorf("UID = %q", got)
	}
	if got := ev.Summary(); got != "Team sync" {
		t.Errorf("Summary = %q", got)
	}
	if got, want := ev.Description(), "Line one\nLine two, still one field"; got != want {
		t.Errorf("Description = %q, want %q", got, want)
	}

	var buf strings.Builder
	if err := NewEncoder(&buf).Encode(cal); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cal2, err := NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, buf.String())
	}
	if got := cal2.Events()[0].Summary(); got != "Team sync" {
		t.Errorf("round-tripped Summary = %q", got)
	}
}

func TestLineFolding(t *testing.T) {
	long := strings.Repeat("x", 200)
	cal := NewCalendar()
	ev := NewEvent("fold@example.com")
	ev.SetSummary(long)
	cal.Component.Children = append(cal.Component.Children, ev.Component)

	var buf strings.Builder
	if err := NewEncoder(&buf).Encode(cal); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, line := range strings.Split(buf.String(), "\r\n") {
		if len([]byte(line)) > 75 {
			t.Errorf("unfolded line exceeds 75 octets: %d: %q", len(line), line)
		}
	}

	cal2, err := NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if got := cal2.Events()[0].Summary(); got != long {
		t.Errorf("folded round-trip mismatch: got len %d, want %d", len(got), len(long))
	}
}

func TestEscapeSymmetry(t *testing.T) {
	cases := []string{
		"plain",
		"a; b, c\\d",
		"multi\nline\ntext",
		"",
	}
	for _, c := range cases {
		escaped := escapeText(c)
		if got := unescapeText(escaped); got != c {
			t.Errorf("escape/unescape(%q): got %q", c, got)
		}
	}
}

func TestAllDayDateRoundTrip(t *testing.T) {
	ev := NewEvent("allday@example.com")
	dt := DateTime{Kind: Date, Time: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	ev.SetStart(dt)

	p := ev.Component.Props.Get(PropDtstart)
	if p.Params.Get(ParamValue) != "DATE" {
		t.Fatalf("expected VALUE=DATE parameter, got %q", p.Params.Get(ParamValue))
	}
	if p.Value != "20260315" {
		t.Fatalf("expected DATE value 20260315, got %q", p.Value)
	}

	got, err := ParseDateTime(p.Value, p.Params, nil)
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	if got.Kind != Date || !got.Time.Equal(dt.Time) {
		t.Errorf("round-tripped DATE mismatch: %+v", got)
	}
}

func TestEmptyCalendar(t *testing.T) {
	const src = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//x//EN\r\nEND:VCALENDAR\r\n"
	cal, err := NewDecoder(strings.NewReader(src)).Decode()
	if err != nil {
		t.Fatalf("Decode empty calendar: %v", err)
	}
	if len(cal.Events()) != 0 {
		t.Errorf("expected no events in empty calendar")
	}
}

func TestRruleCountOneBoundary(t *testing.T) {
	ev := NewEvent("rrule-count1@example.com")
	ev.SetStart(DateTime{Kind: UTC, Time: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)})
	ev.SetEnd(DateTime{Kind: UTC, Time: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)})
	ev.SetRecurrenceRule("FREQ=DAILY;COUNT=1")

	instances, err := ExpandInstances(ev, nil,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		nil)
	if err != nil {
		t.Fatalf("ExpandInstances: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("COUNT=1 should yield exactly one instance, got %d", len(instances))
	}
}

func TestDurationRoundTrip(t *testing.T) {
	cases := []time.Duration{
		time.Hour + 30*time.Minute,
		24 * time.Hour,
		-7 * 24 * time.Hour,
		0,
	}
	for _, d := range cases {
		s := FormatDuration(d)
		got, err := ParseDuration(s)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", s, err)
		}
		if got != d {
			t.Errorf("duration round-trip: %v -> %q -> %v", d, s, got)
		}
	}
}
