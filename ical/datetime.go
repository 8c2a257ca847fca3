package ical

import (
	"fmt"
	"time"
)

// DateTimeKind discriminates the four ways RFC 5545 section 3.3.5 lets a
// DATE-TIME (or, for Date, section 3.3.4 DATE) value be expressed.
type DateTimeKind int

const (
	// Floating has no timezone: it means the same wall-clock time in
	// whatever zone the observer is in (RFC 5545 section 3.3.5 "form #1").
	Floating DateTimeKind = iota
	// UTC is suffixed with "Z" (form #2).
	UTC
	// Zoned carries a TZID parameter naming an IANA zone (form #3).
	Zoned
	// Date is a VALUE=DATE all-day value with no time-of-day component.
	Date
)

const (
	dateTimeLayout    = "20060102T150405"
	dateTimeLayoutUTC = "20060102T150405Z"
	dateLayout        = "20060102"
)

// DateTime is a tagged union over the four DTSTART/DTEND/DUE/EXDATE/
// RECURRENCE-ID value shapes. Time is always populated (in UTC for the UTC
// and Date kinds, and as the literal wall-clock fields for Floating/Zoned);
// Zone is only meaningful for Zoned.
type DateTime struct {
	Kind DateTimeKind
	Time time.Time
	Zone string // IANA zone name, only set when Kind == Zoned
}

// ParseDateTime parses a DTSTART-shaped property value given its VALUE and
// TZID parameters, resolving a Zoned value against loc if non-nil (the
// VTIMEZONE, if any, that accompanied the calendar).
func ParseDateTime(value string, params Params, loc func(tzid string) (*time.Location, error)) (DateTime, error) {
	if params.Get(ParamValue) == "DATE" {
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return DateTime{}, fmt.Errorf("ical: invalid DATE value %q: %w", value, err)
		}
		return DateTime{Kind: Date, Time: t}, nil
	}

	if len(value) > 0 && value[len(value)-1] == 'Z' {
		t, err := time.Parse(dateTimeLayoutUTC, value)
		if err != nil {
			return DateTime{}, fmt.Errorf("ical: invalid UTC DATE-TIME value %q: %w", value, err)
		}
		return DateTime{Kind: UTC, Time: t}, nil
	}

	if tzid := params.Get(ParamTzid); tzid != "" {
		t, err := time.ParseInLocation(dateTimeLayout, value, time.UTC)
		if err != nil {
			return DateTime{}, fmt.Errorf("ical: invalid DATE-TIME value %q: %w", value, err)
		}
		if loc != nil {
			if l, err := loc(tzid); err == nil {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, l)
			}
		}
		return DateTime{Kind: Zoned, Time: t, Zone: tzid}, nil
	}

	t, err := time.Parse(dateTimeLayout, value)
	if err != nil {
		return DateTime{}, fmt.Errorf("ical: invalid floating DATE-TIME value %q: %w", value, err)
	}
	return DateTime{Kind: Floating, Time: t}, nil
}

// Encode renders dt back into a property value plus the parameters (TZID,
// VALUE=DATE) it needs, the inverse of ParseDateTime.
func (dt DateTime) Encode() (value string, params Params) {
	params = Params{}
	switch dt.Kind {
	case Date:
		params.Set(ParamValue, "DATE")
		return dt.Time.Format(dateLayout), params
	case UTC:
		return dt.Time.UTC().Format(dateTimeLayoutUTC), params
	case Zoned:
		params.Set(ParamTzid, dt.Zone)
		return dt.Time.Format(dateTimeLayout), params
	default: // Floating
		return dt.Time.Format(dateTimeLayout), params
	}
}

// UTC returns the instant dt refers to. For Floating values, the time is
// interpreted as already being in UTC, since a floating time is, by
// definition, not anchored to any particular zone; callers that need the
// wall-clock interpretation in a specific zone should use Time directly.
func (dt DateTime) UTC() time.Time {
	switch dt.Kind {
	case Zoned:
		return dt.Time.UTC()
	default:
		return time.Date(dt.Time.Year(), dt.Time.Month(), dt.Time.Day(),
			dt.Time.Hour(), dt.Time.Minute(), dt.Time.Second(), 0, time.UTC)
	}
}
