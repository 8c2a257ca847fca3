package caldav

import (
	"strings"
	"time"

	"github.com/caldav-core/caldav/ical"
)

// Filter returns the subset of cos whose root component matches query. A
// nil query returns cos unchanged.
func Filter(query *CalendarQuery, cos []CalendarObject) ([]CalendarObject, error) {
	if query == nil {
		return cos, nil
	}

	var out []CalendarObject
	for _, co := range cos {
		ok, err := Match(query.CompFilter, &co)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, co)
		}
	}
	return out, nil
}

// Match reports whether co's calendar data satisfies filter.
func Match(filter CompFilter, co *CalendarObject) (bool, error) {
	if co.Data == nil || co.Data.Component == nil {
		return false, nil
	}
	return match(filter, co.Data.Component)
}

func match(filter CompFilter, comp *ical.Component) (bool, error) {
	if comp.Name != filter.Name {
		return filter.IsNotDefined, nil
	}

	if !filter.Start.IsZero() || !filter.End.IsZero() {
		ok, err := matchCompTimeRange(filter.Start, filter.End, comp)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, cf := range filter.Comps {
		ok, err := matchCompFilter(cf, comp)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, pf := range filter.Props {
		ok, err := matchPropFilter(pf, comp)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCompFilter(filter CompFilter, comp *ical.Component) (bool, error) {
	var matched bool
	for _, child := range comp.Children {
		ok, err := match(filter, child)
		if err != nil {
			return false, err
		}
		if ok {
			matched = true
		}
	}
	if !matched {
		return filter.IsNotDefined, nil
	}
	return true, nil
}

func matchPropFilter(filter PropFilter, comp *ical.Component) (bool, error) {
	prop := comp.Props.Get(filter.Name)
	if prop == nil {
		return filter.IsNotDefined, nil
	}

	for _, pf := range filter.ParamFilter {
		if !matchParamFilter(pf, prop) {
			return false, nil
		}
	}

	if !filter.Start.IsZero() || !filter.End.IsZero() {
		return matchPropTimeRange(filter.Start, filter.End, prop)
	}
	if filter.TextMatch != nil {
		return matchTextMatch(*filter.TextMatch, prop.Value), nil
	}
	return true, nil
}

// matchCompTimeRange implements RFC 4791 section 9.9's intersection test:
// the start attribute is inclusive, the end attribute is non-inclusive, and
// a recurring component is expanded before testing so that an occurrence
// generated by RRULE/RDATE can satisfy a time-range filter even though the
// master's own DTSTART falls outside it.
func matchCompTimeRange(start, end time.Time, comp *ical.Component) (bool, error) {
	rangeEnd := end
	if rangeEnd.IsZero() {
		rangeEnd = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	switch comp.Name {
	case ical.CompEvent:
		ev := &ical.Event{Component: comp}
		instances, err := ical.ExpandInstances(ev, nil, start, rangeEnd, nil)
		if err != nil {
			return false, err
		}
		return len(instances) > 0, nil
	case ical.CompTodo:
		td := &ical.Todo{Component: comp}
		due, ok, err := td.Due(nil)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		t := due.UTC()
		return (start.IsZero() || !t.Before(start)) && t.Before(rangeEnd), nil
	default:
		// Other component kinds (VJOURNAL, VFREEBUSY, VALARM) don't carry a
		// span the way VEVENT/VTODO do; RFC 4791 doesn't define time-range
		// semantics for them beyond "look at the nearest DTSTART".
		p := comp.Props.Get(ical.PropDtstart)
		if p == nil {
			return false, nil
		}
		dt, err := ical.ParseDateTime(p.Value, p.Params, nil)
		if err != nil {
			return false, err
		}
		t := dt.UTC()
		return (start.IsZero() || !t.Before(start)) && t.Before(rangeEnd), nil
	}
}

func matchPropTimeRange(start, end time.Time, prop *ical.Prop) (bool, error) {
	dt, err := ical.ParseDateTime(prop.Value, prop.Params, nil)
	if err != nil {
		return false, err
	}
	t := dt.UTC()
	if !start.IsZero() && t.Before(start) {
		return false, nil
	}
	if !end.IsZero() && !t.Before(end) {
		return false, nil
	}
	return true, nil
}

func matchParamFilter(filter ParamFilter, prop *ical.Prop) bool {
	value := prop.Params.Get(filter.Name)
	if value == "" {
		return filter.IsNotDefined
	}
	if filter.IsNotDefined {
		return false
	}
	if filter.TextMatch != nil {
		return matchTextMatch(*filter.TextMatch, value)
	}
	return true
}

func matchTextMatch(tm TextMatch, value string) bool {
	ok := strings.Contains(strings.ToLower(value), strings.ToLower(tm.Text))
	if tm.NegateCondition {
		return !ok
	}
	return ok
}
