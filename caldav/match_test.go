package caldav

import (
	"strings"
	"testing"
	"time"

	"github.com/caldav-core/caldav/ical"
)

func toDate(t *testing.T, date string) time.Time {
	res, err := time.ParseInLocation("20060102T150405Z", date, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// Test data adapted from https://datatracker.ietf.org/doc/html/rfc4791#appendix-B
func TestFilter(t *testing.T) {
	newCO := func(str string) CalendarObject {
		cal, err := ical.NewDecoder(strings.NewReader(str)).Decode()
		if err != nil {
			t.Fatal(err)
		}
		return CalendarObject{Data: cal}
	}

	event1 := newCO(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example Corp.//CalDAV Client//EN
BEGIN:VEVENT
DTSTAMP:20060206T001102Z
DTSTART:20060102T150000Z
DURATION:PT1H
SUMMARY:Event #1
UID:74855313FA803DA593CD579A@example.com
END:VEVENT
END:VCALENDAR`)

	event2 := newCO(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example Corp.//CalDAV Client//EN
BEGIN:VEVENT
DTSTAMP:20060206T001121Z
DTSTART:20060102T170000Z
DURATION:PT1H
RRULE:FREQ=DAILY;COUNT=5
SUMMARY:Event #2
UID:00959BC664CA650E933C892C@example.com
END:VEVENT
END:VCALENDAR`)

	event3 := newCO(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example Corp.//CalDAV Client//EN
BEGIN:VEVENT
ATTENDEE;PARTSTAT=ACCEPTED;ROLE=CHAIR:mailto:cyrus@example.com
ATTENDEE;PARTSTAT=NEEDS-ACTION:mailto:lisa@example.com
DTSTAMP:20060206T001220Z
DTSTART:20060104T150000Z
DURATION:PT1H
STATUS:TENTATIVE
SUMMARY:Event #3
UID:DC6C50A017428C5216A2F1CD@example.com
END:VEVENT
END:VCALENDAR`)

	todo1 := newCO(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example Corp.//CalDAV Client//EN
BEGIN:VTODO
DTSTAMP:20060205T235335Z
DUE;VALUE=DATE:20060104
STATUS:NEEDS-ACTION
SUMMARY:Task #1
UID:DDDEEB7915FA61233B861457@example.com
END:VTODO
END:VCALENDAR`)

	for _, tc := range []struct {
		name  string
		query *CalendarQuery
		addrs []CalendarObject
		want  []CalendarObject
	}{
		{
			name:  "nil-query",
			query: nil,
			addrs: []CalendarObject{event1, event2, event3, todo1},
			want:  []CalendarObject{event1, event2, event3, todo1},
		},
		{
			name: "time-range-matches-single",
			query: &CalendarQuery{CompFilter: CompFilter{
				Name: ical.CompCalendar,
				Comps: []CompFilter{{
					Name:  ical.CompEvent,
					Start: toDate(t, "20060102T000000Z"),
					End:   toDate(t, "20060103T000000Z"),
				}},
			}},
			addrs: []CalendarObject{event1, event2, event3},
			want:  []CalendarObject{event1, event2},
		},
		{
			name: "time-range-excludes-all",
			query: &CalendarQuery{CompFilter: CompFilter{
				Name: ical.CompCalendar,
				Comps: []CompFilter{{
					Name:  ical.CompEvent,
					Start: toDate(t, "20070101T000000Z"),
					End:   toDate(t, "20070102T000000Z"),
				}},
			}},
			addrs: []CalendarObject{event1, event2, event3},
			want:  nil,
		},
		{
			name: "summary-text-match",
			query: &CalendarQuery{CompFilter: CompFilter{
				Name: ical.CompCalendar,
				Comps: []CompFilter{{
					Name:  ical.CompEvent,
					Props: []PropFilter{{Name: ical.PropSummary, TextMatch: &TextMatch{Text: "Event #3"}}},
				}},
			}},
			addrs: []CalendarObject{event1, event2, event3},
			want:  []CalendarObject{event3},
		},
		{
			name: "param-filter-partstat",
			query: &CalendarQuery{CompFilter: CompFilter{
				Name: ical.CompCalendar,
				Comps: []CompFilter{{
					Name: ical.CompEvent,
					Props: []PropFilter{{
						Name:        ical.PropAttendee,
						ParamFilter: []ParamFilter{{Name: ical.ParamPartstat, TextMatch: &TextMatch{Text: "ACCEPTED"}}},
					}},
				}},
			}},
			addrs: []CalendarObject{event1, event3},
			want:  []CalendarObject{event3},
		},
		{
			name: "vtodo-without-due-filter-matches",
			query: &CalendarQuery{CompFilter: CompFilter{
				Name:  ical.CompCalendar,
				Comps: []CompFilter{{Name: ical.CompTodo}},
			}},
			addrs: []CalendarObject{event1, todo1},
			want:  []CalendarObject{todo1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Filter(tc.query, tc.addrs)
			if err != nil {
				t.Fatalf("Filter() = %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Filter() returned %d objects, want %d", len(got), len(tc.want))
			}
			for i := range got {
				gotUID, wantUID := got[i].Data.Events(), tc.want[i].Data.Events()
				if len(gotUID) == 0 && len(tc.want[i].Data.Todos()) == 0 {
					continue
				}
				var gu, wu string
				if len(gotUID) > 0 {
					gu = gotUID[0].UID()
				} else {
					gu = got[i].Data.Todos()[0].UID()
				}
				if len(wantUID) > 0 {
					wu = wantUID[0].UID()
				} else {
					wu = tc.want[i].Data.Todos()[0].UID()
				}
				if gu != wu {
					t.Errorf("Filter()[%d] UID = %q, want %q", i, gu, wu)
				}
			}
		})
	}
}

func TestMatchTextMatchNegate(t *testing.T) {
	if !matchTextMatch(TextMatch{Text: "foo", NegateCondition: true}, "bar") {
		t.Error("negated text-match should match when substring absent")
	}
	if matchTextMatch(TextMatch{Text: "foo"}, "bar") {
		t.Error("text-match should not match when substring absent")
	}
}
