// Package ical implements a reader and writer for the iCalendar format
// defined in RFC 5545, along with the recurrence and timezone handling
// needed to expand a VEVENT/VTODO into concrete occurrences.
package ical

import "fmt"

// Property names used throughout VEVENT/VTODO/VJOURNAL/VALARM/VTIMEZONE
// components. Named the way RFC 5545 names them, not the way any single
// Go field happens to be called.
const (
	PropCalscale     = "CALSCALE"
	PropMethod       = "METHOD"
	PropProductID    = "PRODID"
	PropVersion      = "VERSION"
	PropUID          = "UID"
	PropDtstamp      = "DTSTAMP"
	PropDtstart      = "DTSTART"
	PropDtend        = "DTEND"
	PropDuration     = "DURATION"
	PropDue          = "DUE"
	PropCompleted    = "COMPLETED"
	PropSummary      = "SUMMARY"
	PropDescription  = "DESCRIPTION"
	PropLocation     = "LOCATION"
	PropStatus       = "STATUS"
	PropTransp       = "TRANSP"
	PropClass        = "CLASS"
	PropPriority     = "PRIORITY"
	PropSequence     = "SEQUENCE"
	PropCreated      = "CREATED"
	PropLastModified = "LAST-MODIFIED"
	PropURL          = "URL"
	PropOrganizer    = "ORGANIZER"
	PropAttendee     = "ATTENDEE"
	PropCategories   = "CATEGORIES"
	PropRrule        = "RRULE"
	PropRdate        = "RDATE"
	PropExdate       = "EXDATE"
	PropRecurrenceID = "RECURRENCE-ID"
	PropPercent      = "PERCENT-COMPLETE"
	PropAction       = "ACTION"
	PropTrigger      = "TRIGGER"
	PropRepeat       = "REPEAT"
	PropTzid         = "TZID"
	PropTzname       = "TZNAME"
	PropTzoffsetfrom = "TZOFFSETFROM"
	PropTzoffsetto   = "TZOFFSETTO"
	PropColor        = "COLOR"
	PropRelatedTo    = "RELATED-TO"
	PropGeo          = "GEO"
	PropComment      = "COMMENT"
)

// Parameter names.
const (
	ParamValue    = "VALUE"
	ParamTzid     = "TZID"
	ParamCN       = "CN"
	ParamPartstat = "PARTSTAT"
	ParamRole     = "ROLE"
	ParamRSVP     = "RSVP"
	ParamRange    = "RANGE"
	ParamRelated  = "RELATED"
	ParamAltrep   = "ALTREP"
	ParamLanguage = "LANGUAGE"
)

// Component type names.
const (
	CompCalendar = "VCALENDAR"
	CompEvent    = "VEVENT"
	CompTodo     = "VTODO"
	CompJournal  = "VJOURNAL"
	CompAlarm    = "VALARM"
	CompTimezone = "VTIMEZONE"
	CompStandard = "STANDARD"
	CompDaylight = "DAYLIGHT"
	CompFreeBusy = "VFREEBUSY"
)

// Params holds the parameters attached to a single property instance, e.g.
// `;TZID=America/New_York` or `;VALUE=DATE`. Get matches parameter names
// exactly; the Decoder stores every parsed parameter name upper-cased, so
// the Param* constants match decoded properties.
type Params map[string][]string

func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}
	if v := p[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (p Params) Set(name, value string) {
	p[name] = []string{value}
}

// Prop is a single property instance: a name, its parameters, and its raw
// value string (TEXT values stay in their escaped wire form; Props.Text
// unescapes them).
type Prop struct {
	Name   string
	Params Params
	Value  string
}

func NewProp(name string) *Prop {
	return &Prop{Name: name, Params: Params{}}
}

// Props indexes a component's properties by name, preserving the order and
// multiplicity of repeated properties (ATTENDEE, CATEGORIES, EXDATE, ...).
type Props map[string][]Prop

// Get returns the first instance of name, or nil.
func (p Props) Get(name string) *Prop {
	if v := p[name]; len(v) > 0 {
		return &v[0]
	}
	return nil
}

// All returns every instance of name, in document order.
func (p Props) All(name string) []Prop {
	return p[name]
}

// Add appends a new property instance, preserving any existing ones under
// the same name.
func (p Props) Add(prop Prop) {
	p[prop.Name] = append(p[prop.Name], prop)
}

// Set replaces all instances of prop.Name with exactly this one.
func (p Props) Set(prop Prop) {
	p[prop.Name] = []Prop{prop}
}

// Text returns the unescaped TEXT value of the first instance of name.
func (p Props) Text(name string) (string, bool) {
	prop := p.Get(name)
	if prop == nil {
		return "", false
	}
	return unescapeText(prop.Value), true
}

// Component is a single iCalendar component (VEVENT, VTODO, VALARM, ...), a
// recursive tree of properties and nested sub-components.
type Component struct {
	Name     string
	Props    Props
	Children []*Component
}

func NewComponent(name string) *Component {
	return &Component{Name: name, Props: Props{}}
}

// Children of the given component name, e.g. a VEVENT's VALARMs.
func (c *Component) ChildrenByName(name string) []*Component {
	var out []*Component
	for _, ch := range c.Children {
		if ch.Name == name {
			out = append(out, ch)
		}
	}
	return out
}

// Calendar is a parsed VCALENDAR: its own properties (PRODID, VERSION, ...)
// plus every top-level component it contains (VEVENT, VTODO, VJOURNAL,
// VTIMEZONE, ...).
type Calendar struct {
	Component *Component
}

func NewCalendar() *Calendar {
	comp := NewComponent(CompCalendar)
	comp.Props.Set(Prop{Name: PropVersion, Value: "2.0"})
	comp.Props.Set(Prop{Name: PropProductID, Value: "-//caldav-core//caldav//EN"})
	return &Calendar{Component: comp}
}

func (c *Calendar) Events() []*Event {
	var out []*Event
	for _, ch := range c.Component.ChildrenByName(CompEvent) {
		out = append(out, &Event{Component: ch})
	}
	return out
}

func (c *Calendar) Todos() []*Todo {
	var out []*Todo
	for _, ch := range c.Component.ChildrenByName(CompTodo) {
		out = append(out, &Todo{Component: ch})
	}
	return out
}

func (c *Calendar) Journals() []*Journal {
	var out []*Journal
	for _, ch := range c.Component.ChildrenByName(CompJournal) {
		out = append(out, &Journal{Component: ch})
	}
	return out
}

func (c *Calendar) Timezones() []*Timezone {
	var out []*Timezone
	for _, ch := range c.Component.ChildrenByName(CompTimezone) {
		out = append(out, &Timezone{Component: ch})
	}
	return out
}

// ParseError is returned by Decode when a content line or property value
// cannot be interpreted. Line is 1-indexed and refers to the unfolded
// logical line, not the raw (possibly folded) wire line.
type ParseError struct {
	Line     int
	Property string
	Msg      string
}

func (e *ParseError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("ical: line %d: property %s: %s", e.Line, e.Property, e.Msg)
	}
	return fmt.Sprintf("ical: line %d: %s", e.Line, e.Msg)
}
