package caldav_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caldav-core/caldav/caldav"
	"github.com/caldav-core/caldav/ical"
)

// newTestServer wires up just enough of a CalDAV server to exercise
// discovery, listing, and object CRUD against a real *caldav.Client.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "PROPFIND" && r.URL.Path == "/":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0"?>
<multistatus xmlns="DAV:">
 <response>
  <href>/</href>
  <propstat>
   <prop><current-user-principal><href>/principals/alice/</href></current-user-principal></prop>
   <status>HTTP/1.1 200 OK</status>
  </propstat>
 </response>
</multistatus>`)
		case r.Method == "PROPFIND" && r.URL.Path == "/principals/alice/":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0"?>
<multistatus xmlns="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
 <response>
  <href>/principals/alice/</href>
  <propstat>
   <prop><C:calendar-home-set><href>/calendars/alice/</href></C:calendar-home-set></prop>
   <status>HTTP/1.1 200 OK</status>
  </propstat>
 </response>
</multistatus>`)
		case r.Method == "PROPFIND" && r.URL.Path == "/calendars/alice/":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0"?>
<multistatus xmlns="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
 <response>
  <href>/calendars/alice/home/</href>
  <propstat>
   <prop>
    <resourcetype><collection/><C:calendar/></resourcetype>
    <displayname>Home</displayname>
    <C:supported-calendar-component-set><C:comp name="VEVENT"/></C:supported-calendar-component-set>
   </prop>
   <status>HTTP/1.1 200 OK</status>
  </propstat>
 </response>
 <response>
  <href>/calendars/alice/tasks/</href>
  <propstat>
   <prop>
    <resourcetype><collection/><C:calendar/></resourcetype>
    <displayname>Tasks</displayname>
    <C:supported-calendar-component-set><C:comp name="VTODO"/></C:supported-calendar-component-set>
   </prop>
   <status>HTTP/1.1 200 OK</status>
  </propstat>
 </response>
</multistatus>`)
		case r.Method == http.MethodPut && r.URL.Path == "/calendars/alice/home/event1.ics":
			if r.Header.Get("If-Match") == `"wrong-etag"` {
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			w.Header().Set("ETag", `"new-etag"`)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet && r.URL.Path == "/calendars/alice/home/event1.ics":
			w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
			w.Header().Set("ETag", `"new-etag"`)
			fmt.Fprint(w, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//t//EN\r\nBEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20260101T000000Z\r\nDTSTART:20260101T090000Z\r\nSUMMARY:Hi\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")
		case r.Method == http.MethodDelete && r.URL.Path == "/calendars/alice/home/gone.ics":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(mux)
}

func TestClientDiscoveryAndListing(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, err := caldav.NewClient(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	principal, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		t.Fatalf("FindCurrentUserPrincipal: %v", err)
	}
	if principal != "/principals/alice/" {
		t.Fatalf("principal = %q", principal)
	}

	home, err := c.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		t.Fatalf("FindCalendarHomeSet: %v", err)
	}
	if home != "/calendars/alice/" {
		t.Fatalf("home = %q", home)
	}

	cals, err := c.FindCalendars(ctx, home)
	if err != nil {
		t.Fatalf("FindCalendars: %v", err)
	}
	if len(cals) != 1 || cals[0].Name != "Home" {
		t.Fatalf("FindCalendars should exclude the VTODO-only collection, got %+v", cals)
	}
}

func TestClientPutConflictAndGet(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, err := caldav.NewClient(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	cal := ical.NewCalendar()
	ev := ical.NewEvent("e1")
	ev.SetSummary("Hi")
	cal.Component.Children = append(cal.Component.Children, ev.Component)

	if _, err := c.PutCalendarObject(ctx, "/calendars/alice/home/event1.ics", cal, "wrong-etag", false); err == nil {
		t.Fatal("expected a conflict error for a stale If-Match")
	} else if _, ok := err.(*caldav.ConflictError); !ok {
		t.Fatalf("expected *caldav.ConflictError, got %T: %v", err, err)
	}

	co, err := c.PutCalendarObject(ctx, "/calendars/alice/home/event1.ics", cal, "", false)
	if err != nil {
		t.Fatalf("PutCalendarObject: %v", err)
	}
	if co.ETag != "new-etag" {
		t.Fatalf("ETag = %q", co.ETag)
	}

	got, err := c.GetCalendarObject(ctx, "/calendars/alice/home/event1.ics")
	if err != nil {
		t.Fatalf("GetCalendarObject: %v", err)
	}
	if len(got.Data.Events()) != 1 || got.Data.Events()[0].Summary() != "Hi" {
		t.Fatalf("unexpected decoded event: %+v", got.Data.Events())
	}
}

func TestClientDeleteIdempotent(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, err := caldav.NewClient(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.DeleteCalendarObject(context.Background(), "/calendars/alice/home/gone.ics", ""); err != nil {
		t.Fatalf("DeleteCalendarObject on an already-gone resource should succeed, got %v", err)
	}
}
