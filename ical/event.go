package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event wraps a VEVENT component with typed accessors for the properties a
// CalDAV client cares about. It is a thin view over Component, not a copy:
// mutating the returned values through the setters below mutates the
// underlying component.
type Event struct {
	Component *Component
}

func NewEvent(uid string) *Event {
	if uid == "" {
		uid = uuid.NewString()
	}
	comp := NewComponent(CompEvent)
	comp.Props.Set(Prop{Name: PropUID, Value: uid})
	comp.Props.Set(Prop{Name: PropDtstamp, Value: time.Now().UTC().Format(dateTimeLayoutUTC)})
	return &Event{Component: comp}
}

func (e *Event) UID() string {
	v, _ := e.Component.Props.Text(PropUID)
	return v
}

func (e *Event) Summary() string {
	v, _ := e.Component.Props.Text(PropSummary)
	return v
}

func (e *Event) SetSummary(s string) {
	e.Component.Props.Set(Prop{Name: PropSummary, Value: escapeText(s)})
}

func (e *Event) Description() string {
	v, _ := e.Component.Props.Text(PropDescription)
	return v
}

func (e *Event) SetDescription(s string) {
	e.Component.Props.Set(Prop{Name: PropDescription, Value: escapeText(s)})
}

func (e *Event) Location() string {
	v, _ := e.Component.Props.Text(PropLocation)
	return v
}

// Start returns DTSTART, resolving any TZID against loc (typically
// Calendar.ResolveTimezone).
func (e *Event) Start(loc func(string) (*time.Location, error)) (DateTime, error) {
	p := e.Component.Props.Get(PropDtstart)
	if p == nil {
		return DateTime{}, fmt.Errorf("ical: VEVENT %s has no DTSTART", e.UID())
	}
	return ParseDateTime(p.Value, p.Params, loc)
}

func (e *Event) SetStart(dt DateTime) {
	value, params := dt.Encode()
	e.Component.Props.Set(Prop{Name: PropDtstart, Value: value, Params: params})
}

// End returns DTEND if present, or the computed end from DURATION, or the
// zero value/false if the event has neither (an instantaneous event).
func (e *Event) End(loc func(string) (*time.Location, error)) (DateTime, bool, error) {
	if p := e.Component.Props.Get(PropDtend); p != nil {
		dt, err := ParseDateTime(p.Value, p.Params, loc)
		return dt, true, err
	}
	if p := e.Component.Props.Get(PropDuration); p != nil {
		d, err := ParseDuration(p.Value)
		if err != nil {
			return DateTime{}, false, err
		}
		start, err := e.Start(loc)
		if err != nil {
			return DateTime{}, false, err
		}
		end := start
		end.Time = start.Time.Add(d)
		return end, true, nil
	}
	return DateTime{}, false, nil
}

func (e *Event) SetEnd(dt DateTime) {
	value, params := dt.Encode()
	e.Component.Props.Set(Prop{Name: PropDtend, Value: value, Params: params})
}

// URL is the VEVENT's URL property: a resource associated with the event,
// e.g. a meeting link.
func (e *Event) URL() string {
	v, _ := e.Component.Props.Text(PropURL)
	return v
}

func (e *Event) SetURL(s string) {
	e.Component.Props.Set(Prop{Name: PropURL, Value: s})
}

// Status is one of TENTATIVE, CONFIRMED or CANCELLED (RFC 5545 section
// 3.8.1.11), or "" if absent.
func (e *Event) Status() string {
	v, _ := e.Component.Props.Text(PropStatus)
	return v
}

func (e *Event) SetStatus(s string) {
	e.Component.Props.Set(Prop{Name: PropStatus, Value: s})
}

// Transparency is the VEVENT's TRANSP property, OPAQUE or TRANSPARENT (RFC
// 5545 section 3.8.2.7): whether the event blocks free/busy time.
func (e *Event) Transparency() string {
	v, _ := e.Component.Props.Text(PropTransp)
	return v
}

func (e *Event) SetTransparency(s string) {
	e.Component.Props.Set(Prop{Name: PropTransp, Value: s})
}

// Color is the RFC 7986 COLOR property: a CSS3 color name suggesting how a
// client should render the event.
func (e *Event) Color() string {
	v, _ := e.Component.Props.Text(PropColor)
	return v
}

func (e *Event) SetColor(s string) {
	e.Component.Props.Set(Prop{Name: PropColor, Value: escapeText(s)})
}

// Categories returns the VEVENT's CATEGORIES, a comma-separated TEXT list
// (RFC 5545 section 3.8.1.2); there may be several CATEGORIES properties,
// but in practice calendars emit at most one.
func (e *Event) Categories() []string {
	p := e.Component.Props.Get(PropCategories)
	if p == nil {
		return nil
	}
	out := make([]string, 0, 1)
	for _, v := range splitUnescaped(p.Value) {
		out = append(out, unescapeText(v))
	}
	return out
}

func (e *Event) SetCategories(categories []string) {
	escaped := make([]string, len(categories))
	for i, c := range categories {
		escaped[i] = escapeText(c)
	}
	e.Component.Props.Set(Prop{Name: PropCategories, Value: strings.Join(escaped, ",")})
}

// Attendee is a parsed ATTENDEE or ORGANIZER calendar-user-address
// property: a "mailto:" (or other scheme) URI plus its common parameters.
type Attendee struct {
	Address    string
	CommonName string
	PartStat   string
	Role       string
	RSVP       bool
}

func attendeeFromProp(p Prop) Attendee {
	return Attendee{
		Address:    p.Value,
		CommonName: p.Params.Get(ParamCN),
		PartStat:   p.Params.Get(ParamPartstat),
		Role:       p.Params.Get(ParamRole),
		RSVP:       strings.EqualFold(p.Params.Get(ParamRSVP), "TRUE"),
	}
}

// Organizer returns the VEVENT's ORGANIZER, or false if absent (an event
// with no ORGANIZER is typically one the local user created standalone).
func (e *Event) Organizer() (Attendee, bool) {
	p := e.Component.Props.Get(PropOrganizer)
	if p == nil {
		return Attendee{}, false
	}
	return attendeeFromProp(*p), true
}

// Attendees returns every ATTENDEE attached to the VEVENT, in document
// order.
func (e *Event) Attendees() []Attendee {
	props := e.Component.Props.All(PropAttendee)
	out := make([]Attendee, 0, len(props))
	for _, p := range props {
		out = append(out, attendeeFromProp(p))
	}
	return out
}

// parseUTCTime reads a property whose value is always the UTC DATE-TIME
// form (CREATED, DTSTAMP, LAST-MODIFIED are never floating or zoned, per
// RFC 5545 sections 3.8.7.1/3.8.7.2/3.8.7.3).
func (e *Event) parseUTCTime(name string) (time.Time, bool, error) {
	p := e.Component.Props.Get(name)
	if p == nil {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateTimeLayoutUTC, p.Value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("ical: invalid %s value %q: %w", name, p.Value, err)
	}
	return t, true, nil
}

// Created is the VEVENT's CREATED timestamp, if present.
func (e *Event) Created() (time.Time, bool, error) {
	return e.parseUTCTime(PropCreated)
}

// LastModified is the VEVENT's LAST-MODIFIED timestamp, if present.
func (e *Event) LastModified() (time.Time, bool, error) {
	return e.parseUTCTime(PropLastModified)
}

// DtStamp is the VEVENT's DTSTAMP: the instant this iCalendar object
// representation was created, set automatically by NewEvent.
func (e *Event) DtStamp() (time.Time, bool, error) {
	return e.parseUTCTime(PropDtstamp)
}

func (e *Event) Sequence() int {
	v, ok := e.Component.Props.Text(PropSequence)
	if !ok {
		return 0
	}
	var n int
	fmt.Sscanf(v, "%d", &n)
	return n
}

func (e *Event) RecurrenceRule() string {
	v, _ := e.Component.Props.Text(PropRrule)
	return v
}

func (e *Event) SetRecurrenceRule(rrule string) {
	if rrule == "" {
		delete(e.Component.Props, PropRrule)
		return
	}
	e.Component.Props.Set(Prop{Name: PropRrule, Value: rrule})
}

// RecurrenceID reports whether this VEVENT is an override instance of a
// recurring series (it carries a RECURRENCE-ID), and if so, which instance.
func (e *Event) RecurrenceID(loc func(string) (*time.Location, error)) (DateTime, bool, error) {
	p := e.Component.Props.Get(PropRecurrenceID)
	if p == nil {
		return DateTime{}, false, nil
	}
	dt, err := ParseDateTime(p.Value, p.Params, loc)
	return dt, true, err
}

// ExceptionDates returns the parsed EXDATE values (there may be several
// EXDATE properties, each of which may itself carry a comma-separated
// list, per RFC 5545 section 3.8.5.1).
func (e *Event) ExceptionDates(loc func(string) (*time.Location, error)) ([]DateTime, error) {
	return parseDateTimeList(e.Component.Props.All(PropExdate), loc)
}

// Alarms returns the VALARM sub-components attached to this event.
func (e *Event) Alarms() []*Alarm {
	var out []*Alarm
	for _, ch := range e.Component.ChildrenByName(CompAlarm) {
		out = append(out, &Alarm{Component: ch})
	}
	return out
}

func (e *Event) AddAlarm(a *Alarm) {
	e.Component.Children = append(e.Component.Children, a.Component)
}

func parseDateTimeList(props []Prop, loc func(string) (*time.Location, error)) ([]DateTime, error) {
	var out []DateTime
	for _, p := range props {
		for _, v := range splitUnescaped(p.Value) {
			dt, err := ParseDateTime(v, p.Params, loc)
			if err != nil {
				return nil, err
			}
			out = append(out, dt)
		}
	}
	return out, nil
}

// splitUnescaped splits a comma-separated TEXT/RECUR list on unescaped
// commas, leaving backslash-escaped commas intact.
func splitUnescaped(s string) []string {
	var out []string
	var cur []byte
	esc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if esc {
			cur = append(cur, c)
			esc = false
			continue
		}
		if c == '\\' {
			cur = append(cur, c)
			esc = true
			continue
		}
		if c == ',' {
			out = append(out, string(cur))
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	out = append(out, string(cur))
	return out
}
