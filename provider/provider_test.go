package provider_test

import (
	"testing"
	"time"

	"github.com/caldav-core/caldav/provider"
)

func TestForServer(t *testing.T) {
	cases := []struct {
		endpoint string
		want     provider.Name
	}{
		{"https://caldav.icloud.com/123456/calendars/", provider.ICloud},
		{"https://p01-caldav.icloud.com/", provider.ICloud},
		{"https://apidata.googleusercontent.com/caldav/v2/", provider.Generic},
		{"https://www.google.com/calendar/dav/", provider.Google},
		{"https://caldav.fastmail.com/dav/calendars/user/", provider.Fastmail},
		{"https://caldav.fastmail.fm/dav/calendars/user/", provider.Fastmail},
		{"https://my.selfhosted.example/radicale/", provider.Generic},
		{"not a url at all", provider.Generic},
	}

	for _, tc := range cases {
		got := provider.ForServer(tc.endpoint)
		if got.Name != tc.want {
			t.Errorf("ForServer(%q) = %q, want %q", tc.endpoint, got.Name, tc.want)
		}
	}
}

func TestForName(t *testing.T) {
	if got := provider.ForName(provider.Radicale); got.Name != provider.Radicale {
		t.Fatalf("ForName(Radicale) = %q", got.Name)
	}
	if got := provider.ForName(provider.Name("made-up")); got.Name != provider.Generic {
		t.Fatalf("ForName(unknown) should fall back to Generic, got %q", got.Name)
	}
}

func TestShouldSkipCalendar(t *testing.T) {
	c := provider.ForName(provider.ICloud)

	cases := []struct {
		name       string
		components []string
		want       bool
	}{
		{"vtodo only", []string{"VTODO"}, true},
		{"vevent only", []string{"VEVENT"}, false},
		{"both", []string{"VEVENT", "VTODO"}, false},
		{"vjournal only", []string{"VJOURNAL"}, false},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		if got := c.ShouldSkipCalendar(tc.components); got != tc.want {
			t.Errorf("%s: ShouldSkipCalendar(%v) = %v, want %v", tc.name, tc.components, got, tc.want)
		}
	}

	generic := provider.ForName(provider.Generic)
	if generic.ShouldSkipCalendar([]string{"VTODO"}) != true {
		t.Fatalf("generic provider should still apply TreatVTodoOnlyAsList")
	}
}

func TestIsInvalidSyncToken(t *testing.T) {
	icloud := provider.ForName(provider.ICloud)
	if !icloud.IsInvalidSyncToken(403) {
		t.Error("403 should always be treated as an invalid sync-token per RFC 6578")
	}
	if icloud.IsInvalidSyncToken(412) {
		t.Error("iCloud never reports a stale sync-token as 412, only 403")
	}
	if icloud.IsInvalidSyncToken(200) {
		t.Error("200 is not an invalid sync-token signal")
	}

	google := provider.ForName(provider.Google)
	if !google.IsInvalidSyncToken(403) {
		t.Error("403 should always be treated as an invalid sync-token per RFC 6578")
	}
	if !google.IsInvalidSyncToken(412) {
		t.Error("Google should treat 412 as an invalid sync-token like the rest of the default set")
	}
	if google.IsInvalidSyncToken(400) {
		t.Error("400 is not a documented invalid-sync-token signal")
	}

	generic := provider.ForName(provider.Generic)
	if !generic.IsInvalidSyncToken(403) {
		t.Error("Generic should treat 403 as an invalid sync-token")
	}
	if !generic.IsInvalidSyncToken(412) {
		t.Error("Generic should treat 412 as an invalid sync-token")
	}
}

func TestFormatDateForQuery(t *testing.T) {
	tm := time.Date(2026, 7, 30, 12, 34, 56, 789000000, time.FixedZone("EST", -5*3600))
	got := provider.FormatDateForQuery(tm)
	want := "20260730T173456Z"
	if got != want {
		t.Fatalf("FormatDateForQuery = %q, want %q", got, want)
	}
}
