package ical

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// Recurrence parses this event's RRULE into a *rrule.RRule anchored at its
// DTSTART, the same "DTSTART:...\nRRULE:..." string construction used to
// feed teambition/rrule-go elsewhere in the ecosystem. Returns nil, nil if
// the event has no RRULE.
func (e *Event) Recurrence(loc func(string) (*time.Location, error)) (*rrule.RRule, error) {
	rr := e.RecurrenceRule()
	if rr == "" {
		return nil, nil
	}

	start, err := e.Start(loc)
	if err != nil {
		return nil, err
	}

	spec := "DTSTART:" + start.UTC().Format(dateTimeLayoutUTC) + "\nRRULE:" + rr
	rule, err := rrule.StrToRRule(spec)
	if err != nil {
		return nil, fmt.Errorf("ical: invalid RRULE %q: %w", rr, err)
	}
	return rule, nil
}

// Instance is one concrete occurrence of a recurring VEVENT: either the
// master's Nth generated occurrence, or an override VEVENT carrying a
// RECURRENCE-ID that replaces it.
type Instance struct {
	Start    time.Time
	Override *Event // non-nil if this occurrence has a RECURRENCE-ID override
}

// ExpandInstances computes every occurrence of a (possibly recurring) event
// whose span intersects [rangeStart, rangeEnd), applying RRULE generation,
// RDATE addition, EXDATE subtraction, and RECURRENCE-ID override splicing,
// per RFC 5545 section 3.8.5 and spec.md's recurrence-engine requirements.
// overrides holds any other VEVENTs sharing the same UID (RECURRENCE-ID
// instances), keyed by their RECURRENCE-ID instant.
func ExpandInstances(master *Event, overrides []*Event, rangeStart, rangeEnd time.Time, loc func(string) (*time.Location, error)) ([]Instance, error) {
	start, err := master.Start(loc)
	if err != nil {
		return nil, err
	}

	duration := time.Hour
	if end, ok, err := master.End(loc); err == nil && ok {
		duration = end.UTC().Sub(start.UTC())
	} else if err != nil {
		return nil, err
	}

	overrideByInstant := make(map[int64]*Event, len(overrides))
	for _, ov := range overrides {
		rid, ok, err := ov.RecurrenceID(loc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		overrideByInstant[rid.UTC().Unix()] = ov
	}

	var occurrences []time.Time

	rule, err := master.Recurrence(loc)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		windowStart := rangeStart.Add(-duration)
		occurrences = append(occurrences, rule.Between(windowStart, rangeEnd, true)...)
	} else {
		occurrences = append(occurrences, start.UTC())
	}

	rdates, err := parseDateTimeList(master.Component.Props.All(PropRdate), loc)
	if err != nil {
		return nil, err
	}
	for _, rd := range rdates {
		occurrences = append(occurrences, rd.UTC())
	}

	exdates, err := master.ExceptionDates(loc)
	if err != nil {
		return nil, err
	}
	excluded := make(map[int64]bool, len(exdates))
	for _, ex := range exdates {
		excluded[ex.UTC().Unix()] = true
	}

	sort.Slice(occurrences, func(i, j int) bool { return occurrences[i].Before(occurrences[j]) })

	var instances []Instance
	seen := make(map[int64]bool)
	for _, occ := range occurrences {
		key := occ.Unix()
		if seen[key] || excluded[key] {
			continue
		}
		seen[key] = true

		occEnd := occ.Add(duration)
		if !(occ.Before(rangeEnd) && occEnd.After(rangeStart)) {
			continue
		}

		instances = append(instances, Instance{Start: occ, Override: overrideByInstant[key]})
	}

	return instances, nil
}
