// Package caldav implements a CalDAV client (RFC 4791) built on top of the
// in-module ical package for iCalendar encoding/decoding and the provider
// package for per-server quirks.
package caldav

import (
	"time"

	"github.com/caldav-core/caldav/ical"
)

// Calendar describes a single calendar collection discovered under a
// principal's calendar-home-set.
type Calendar struct {
	Path                  string
	Name                  string
	Description           string
	SupportedComponentSet []string
	// CTag is the CalendarServer getctag: an opaque token that changes
	// whenever anything in the collection changes. Used by syncViaCTag as
	// a resync signal on servers that don't implement RFC 6578.
	CTag string
	// Color is the Apple calendar-color property, a "#RRGGBB"/"#RRGGBBAA"
	// string, or "" if the server doesn't expose one.
	Color string
	// SyncToken is the collection's current RFC 6578 sync-token, suitable
	// as the SyncQuery.SyncToken for the next incremental SyncCollection
	// call.
	SyncToken string
}

// CompFilter is the client-side mirror of RFC 4791 section 9.7.1's
// CALDAV:comp-filter.
type CompFilter struct {
	Name         string
	IsNotDefined bool
	Start, End   time.Time
	Props        []PropFilter
	Comps        []CompFilter
}

// ParamFilter is the client-side mirror of RFC 4791 section 9.7.3's
// CALDAV:param-filter.
type ParamFilter struct {
	Name         string
	IsNotDefined bool
	TextMatch    *TextMatch
}

// PropFilter is the client-side mirror of RFC 4791 section 9.7.2's
// CALDAV:prop-filter.
type PropFilter struct {
	Name         string
	IsNotDefined bool
	Start, End   time.Time
	TextMatch    *TextMatch
	ParamFilter  []ParamFilter
}

// TextMatch is RFC 4791 section 9.7.5's CALDAV:text-match.
type TextMatch struct {
	Text            string
	NegateCondition bool
}

// CalendarQuery is the client-side mirror of a calendar-query REPORT body.
type CalendarQuery struct {
	CompFilter CompFilter
}

// CalendarMultiGet is the client-side mirror of a calendar-multiget REPORT
// body: a batch fetch of specific object paths.
type CalendarMultiGet struct {
	Paths []string
}

// CalendarObject is one calendar resource (a single .ics file): its
// collection-relative path, HTTP caching metadata, and decoded body.
type CalendarObject struct {
	Path          string
	ModTime       time.Time
	ETag          string
	ContentLength int64
	Data          *ical.Calendar
}

// SyncQuery drives a sync-collection REPORT, RFC 6578 section 3.2. An empty
// SyncToken requests an initial full sync.
type SyncQuery struct {
	SyncToken string
	Limit     int
}

// SyncResponse is the outcome of a SyncCollection call: the objects that
// changed since SyncToken, the paths that were deleted, and the new
// SyncToken to persist for the next incremental sync.
type SyncResponse struct {
	SyncToken string
	Updated   []CalendarObject
	Deleted   []string
}
