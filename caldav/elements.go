package caldav

import (
	"encoding/xml"
	"time"

	"github.com/caldav-core/caldav/internal"
)

const namespace = "urn:ietf:params:xml:ns:caldav"

// calendarserverNamespace and appleNamespace back two widely deployed
// vendor extensions neither RFC 4791 nor RFC 4918 define: CalendarServer's
// getctag (a collection-level change token distinct from DAV:getetag) and
// Apple's calendar-color, both used by iCloud, Fastmail, Radicale and
// Nextcloud alike.
const (
	calendarserverNamespace = "http://calendarserver.org/ns/"
	appleNamespace          = "http://apple.com/ns/ical/"
)

var (
	calendarHomeSetName               = xml.Name{namespace, "calendar-home-set"}
	calendarDescriptionName           = xml.Name{namespace, "calendar-description"}
	supportedCalendarComponentSetName = xml.Name{namespace, "supported-calendar-component-set"}
	calendarName                      = xml.Name{namespace, "calendar"}
	getctagName                       = xml.Name{calendarserverNamespace, "getctag"}
	calendarColorName                 = xml.Name{appleNamespace, "calendar-color"}
)

// getctag is the CalendarServer collection change-token property:
// http://calendarserver.org/ns/getctag. Unlike DAV:getetag, which
// identifies one resource's content, getctag changes whenever anything in
// the collection changes, making it a cheap substitute for a sync-token on
// servers that don't implement RFC 6578.
type getctag struct {
	XMLName xml.Name `xml:"http://calendarserver.org/ns/ getctag"`
	CTag    string   `xml:",chardata"`
}

// calendarColor is the Apple calendar-color property:
// http://apple.com/ns/ical/calendar-color. Value is a "#RRGGBB" or
// "#RRGGBBAA" string; absent on servers that don't support per-calendar
// color.
type calendarColor struct {
	XMLName xml.Name `xml:"http://apple.com/ns/ical/ calendar-color"`
	Color   string   `xml:",chardata"`
}

// syncTokenProp decodes the DAV:sync-token property off a collection's own
// PROPFIND response, RFC 6578 section 3.1 - distinct from the sync-token
// carried at the top of a sync-collection REPORT's multistatus.
type syncTokenProp struct {
	XMLName xml.Name `xml:"DAV: sync-token"`
	Token   string   `xml:",chardata"`
}

// calendarHomeSet is RFC 4791 section 6.2.1.
type calendarHomeSet struct {
	XMLName xml.Name      `xml:"urn:ietf:params:xml:ns:caldav calendar-home-set"`
	Href    internal.Href `xml:"DAV: href"`
}

// calendarDescription is RFC 4791 section 5.2.1.
type calendarDescription struct {
	XMLName     xml.Name `xml:"urn:ietf:params:xml:ns:caldav calendar-description"`
	Description string   `xml:",chardata"`
}

// supportedCalendarComponentSet is RFC 4791 section 5.2.3.
type supportedCalendarComponentSet struct {
	XMLName xml.Name          `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-component-set"`
	Comp    []calendarCompRef `xml:"comp"`
}

type calendarCompRef struct {
	Name string `xml:"name,attr"`
}

// calendarQuery is RFC 4791 section 9.5.
type calendarQuery struct {
	XMLName xml.Name       `xml:"urn:ietf:params:xml:ns:caldav calendar-query"`
	Prop    *internal.Prop `xml:"DAV: prop,omitempty"`
	Filter  filter         `xml:"filter"`
}

// calendarMultiget is RFC 4791 section 9.10.
type calendarMultiget struct {
	XMLName xml.Name        `xml:"urn:ietf:params:xml:ns:caldav calendar-multiget"`
	Prop    *internal.Prop  `xml:"DAV: prop,omitempty"`
	Hrefs   []internal.Href `xml:"DAV: href"`
}

// filter is RFC 4791 section 9.7.
type filter struct {
	XMLName    xml.Name   `xml:"urn:ietf:params:xml:ns:caldav filter"`
	CompFilter compFilter `xml:"comp-filter"`
}

// compFilter is RFC 4791 section 9.7.1.
type compFilter struct {
	XMLName      xml.Name     `xml:"urn:ietf:params:xml:ns:caldav comp-filter"`
	Name         string       `xml:"name,attr"`
	IsNotDefined *struct{}    `xml:"is-not-defined,omitempty"`
	TimeRange    *timeRange   `xml:"time-range,omitempty"`
	PropFilters  []propFilter `xml:"prop-filter,omitempty"`
	CompFilters  []compFilter `xml:"comp-filter,omitempty"`
}

// propFilter is RFC 4791 section 9.7.2.
type propFilter struct {
	XMLName      xml.Name      `xml:"urn:ietf:params:xml:ns:caldav prop-filter"`
	Name         string        `xml:"name,attr"`
	IsNotDefined *struct{}     `xml:"is-not-defined,omitempty"`
	TimeRange    *timeRange    `xml:"time-range,omitempty"`
	TextMatch    *textMatch    `xml:"text-match,omitempty"`
	ParamFilters []paramFilter `xml:"param-filter,omitempty"`
}

// paramFilter is RFC 4791 section 9.7.3.
type paramFilter struct {
	XMLName      xml.Name   `xml:"urn:ietf:params:xml:ns:caldav param-filter"`
	Name         string     `xml:"name,attr"`
	IsNotDefined *struct{}  `xml:"is-not-defined,omitempty"`
	TextMatch    *textMatch `xml:"text-match,omitempty"`
}

// textMatch is RFC 4791 section 9.7.5.
type textMatch struct {
	XMLName         xml.Name `xml:"urn:ietf:params:xml:ns:caldav text-match"`
	Text            string   `xml:",chardata"`
	NegateCondition string   `xml:"negate-condition,attr,omitempty"`
}

// timeRange is RFC 4791 section 9.9.
type timeRange struct {
	XMLName xml.Name        `xml:"urn:ietf:params:xml:ns:caldav time-range"`
	Start   dateWithUTCTime `xml:"start,attr,omitempty"`
	End     dateWithUTCTime `xml:"end,attr,omitempty"`
}

const dateWithUTCTimeLayout = "20060102T150405Z"

// dateWithUTCTime is the "date with UTC time" form used by time-range
// filters, RFC 5545 page 34.
type dateWithUTCTime time.Time

func (t *dateWithUTCTime) UnmarshalText(b []byte) error {
	tt, err := time.Parse(dateWithUTCTimeLayout, string(b))
	if err != nil {
		return err
	}
	*t = dateWithUTCTime(tt)
	return nil
}

func (t dateWithUTCTime) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(dateWithUTCTimeLayout)), nil
}

// calendarDataReq is the request-side variant of RFC 4791 section 9.6: an
// empty calendar-data element requests the full object body.
type calendarDataReq struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
}

// calendarDataResp is the response-side variant of RFC 4791 section 9.6.
type calendarDataResp struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
	Data    []byte   `xml:",chardata"`
}

func encodeCalendarReq() (*internal.Prop, error) {
	getLastModReq := internal.NewRawXMLElement(internal.GetLastModifiedName, nil, nil)
	getETagReq := internal.NewRawXMLElement(internal.GetETagName, nil, nil)
	return internal.EncodeProp(&calendarDataReq{}, getLastModReq, getETagReq)
}
