package ical

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Timezone wraps a VTIMEZONE component.
type Timezone struct {
	Component *Component
}

func (tz *Timezone) ID() string {
	v, _ := tz.Component.Props.Text(PropTzid)
	return v
}

// Location resolves this VTIMEZONE's TZID against the system's IANA tzdata
// via time.LoadLocation. Real-world VTIMEZONE bodies nearly always name a
// standard IANA zone in their TZID even when they also spell out explicit
// STANDARD/DAYLIGHT rules, so this is sufficient for calendars produced by
// every provider in spec.md's scope.
func (tz *Timezone) Location() (*time.Location, error) {
	return time.LoadLocation(tz.ID())
}

// ResolveTimezone builds a `tzid -> *time.Location` resolver backed by this
// calendar's VTIMEZONE components, falling back to time.LoadLocation(tzid)
// directly for a TZID with no accompanying VTIMEZONE (common with servers
// that omit VTIMEZONE on GET responses and expect the client to already
// know IANA zones).
func (c *Calendar) ResolveTimezone(tzid string) (*time.Location, error) {
	for _, tz := range c.Timezones() {
		if tz.ID() == tzid {
			return tz.Location()
		}
	}
	return time.LoadLocation(tzid)
}

// SynthesizeTimezone builds a VTIMEZONE component for the named IANA zone,
// covering the one STANDARD/DAYLIGHT transition pair framing sampleYear.
// This is used when emitting a calendar object containing a Zoned DateTime
// so that servers and other clients that don't separately resolve IANA
// zone names still receive the offset/DST rules inline, per RFC 5545
// section 3.6.5.
//
// time.Time.ZoneBounds (added in Go 1.19) is used to discover the
// transition times bracketing a sample instant; this is the only portable
// way to derive DST transition data from the stdlib's tzdata without
// embedding the IANA rule tables by hand.
func SynthesizeTimezone(tzid string, sampleYear int) (*Timezone, error) {
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		return nil, fmt.Errorf("ical: unknown timezone %q: %w", tzid, err)
	}

	sample := time.Date(sampleYear, time.July, 1, 12, 0, 0, 0, loc)
	name, offset := sample.Zone()

	start, end := sample.ZoneBounds()

	comp := NewComponent(CompTimezone)
	comp.Props.Set(Prop{Name: PropTzid, Value: tzid})

	if start.IsZero() && end.IsZero() {
		// No DST in this zone: a single STANDARD observance suffices.
		std := NewComponent(CompStandard)
		std.Props.Set(Prop{Name: PropDtstart, Value: "19700101T000000"})
		std.Props.Set(Prop{Name: PropTzoffsetfrom, Value: formatOffset(offset)})
		std.Props.Set(Prop{Name: PropTzoffsetto, Value: formatOffset(offset)})
		std.Props.Set(Prop{Name: PropTzname, Value: name})
		comp.Children = append(comp.Children, std)
		return &Timezone{Component: comp}, nil
	}

	before := sample
	if !start.IsZero() {
		before = start.Add(-time.Hour)
	}
	beforeName, beforeOffset := before.Zone()

	after := sample
	if !end.IsZero() {
		after = end.Add(time.Hour)
	}
	afterName, afterOffset := after.Zone()

	transition := sample
	if !start.IsZero() {
		transition = start
	}

	// A STANDARD->DAYLIGHT transition is one where the offset increases;
	// never determined by sign, since some zones (historically, and a few
	// southern-hemisphere zones today) have a negative standard offset.
	kind := CompDaylight
	if offset < beforeOffset {
		kind = CompStandard
	}

	observance := NewComponent(kind)
	observance.Props.Set(Prop{Name: PropDtstart, Value: transition.Format(dateTimeLayout)})
	observance.Props.Set(Prop{Name: PropTzoffsetfrom, Value: formatOffset(beforeOffset)})
	observance.Props.Set(Prop{Name: PropTzoffsetto, Value: formatOffset(offset)})
	observance.Props.Set(Prop{Name: PropTzname, Value: name})
	observance.Props.Set(Prop{Name: PropRrule, Value: yearlyTransitionRRule(transition)})
	comp.Children = append(comp.Children, observance)

	if !end.IsZero() {
		other := NewComponent(CompStandard)
		if kind == CompStandard {
			other = NewComponent(CompDaylight)
		}
		other.Props.Set(Prop{Name: PropDtstart, Value: end.Format(dateTimeLayout)})
		other.Props.Set(Prop{Name: PropTzoffsetfrom, Value: formatOffset(offset)})
		other.Props.Set(Prop{Name: PropTzoffsetto, Value: formatOffset(afterOffset)})
		other.Props.Set(Prop{Name: PropTzname, Value: afterName})
		other.Props.Set(Prop{Name: PropRrule, Value: yearlyTransitionRRule(end)})
		comp.Children = append(comp.Children, other)
	}

	_ = beforeName
	return &Timezone{Component: comp}, nil
}

var byDayAbbrev = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// yearlyTransitionRRule encodes a recurring yearly transition observed on t
// as FREQ=YEARLY;BYMONTH=<m>;BYDAY=<ord><dow>, per the day-of-month bucket
// rule: 1-7 -> 1, 8-14 -> 2, 15-21 -> 3, 22-28 -> 4, 29-31 -> -1 (the last
// such weekday in the month).
func yearlyTransitionRRule(t time.Time) string {
	var ord int
	switch day := t.Day(); {
	case day <= 7:
		ord = 1
	case day <= 14:
		ord = 2
	case day <= 21:
		ord = 3
	case day <= 28:
		ord = 4
	default:
		ord = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(t.Month()), ord, byDayAbbrev[t.Weekday()])
}

// zonedTimeProps are the properties spec.md's VTIMEZONE synthesis rule
// scans for a referenced TZID: DTSTART, DTEND, DUE, RECURRENCE-ID, EXDATE.
var zonedTimeProps = []string{PropDtstart, PropDtend, PropDue, PropRecurrenceID, PropExdate}

// isUTCZone reports whether tzid names UTC or one of its RFC 5545 synonyms,
// which never get a synthesized VTIMEZONE.
func isUTCZone(tzid string) bool {
	switch strings.ToUpper(tzid) {
	case "Z", "UTC", "ETC/UTC", "GMT":
		return true
	}
	return false
}

// sampleYear extracts the leading 4-digit year off a DATE-TIME value, for
// use as SynthesizeTimezone's sampleYear; it falls back to the current year
// if the value is malformed rather than fail the whole encode.
func sampleYear(value string) int {
	if len(value) >= 4 {
		if y, err := strconv.Atoi(value[:4]); err == nil {
			return y
		}
	}
	return time.Now().Year()
}

// AttachTimezones scans cal for every distinct non-UTC TZID referenced by a
// DTSTART/DTEND/DUE/RECURRENCE-ID/EXDATE and, for any not already covered by
// an existing VTIMEZONE child, prepends a VTIMEZONE synthesized by
// SynthesizeTimezone. This is the generator-side half of the invariant that
// every zoned date-time in an emitted VCALENDAR comes with a matching
// VTIMEZONE (RFC 5545 section 3.6.5); Encoder.Encode calls it on every
// calendar it serializes.
func (c *Calendar) AttachTimezones() {
	referenced := map[string]int{}
	var walk func(comp *Component)
	walk = func(comp *Component) {
		if comp.Name != CompTimezone {
			for _, name := range zonedTimeProps {
				for _, p := range comp.Props.All(name) {
					tzid := p.Params.Get(ParamTzid)
					if tzid == "" || isUTCZone(tzid) {
						continue
					}
					if _, ok := referenced[tzid]; !ok {
						referenced[tzid] = sampleYear(p.Value)
					}
				}
			}
		}
		for _, ch := range comp.Children {
			walk(ch)
		}
	}
	walk(c.Component)

	if len(referenced) == 0 {
		return
	}

	existing := map[string]bool{}
	for _, tz := range c.Timezones() {
		existing[tz.ID()] = true
	}

	tzids := make([]string, 0, len(referenced))
	for tzid := range referenced {
		if !existing[tzid] {
			tzids = append(tzids, tzid)
		}
	}
	sort.Strings(tzids)

	synthesized := make([]*Component, 0, len(tzids))
	for _, tzid := range tzids {
		tz, err := SynthesizeTimezone(tzid, referenced[tzid])
		if err != nil {
			continue
		}
		synthesized = append(synthesized, tz.Component)
	}
	c.Component.Children = append(synthesized, c.Component.Children...)
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, h, m)
}
