package ical

import (
	"fmt"
	"time"
)

// Alarm wraps a VALARM component, RFC 5545 section 3.6.6.
type Alarm struct {
	Component *Component
}

// Action values.
const (
	ActionDisplay = "DISPLAY"
	ActionEmail   = "EMAIL"
	ActionAudio   = "AUDIO"
)

func NewAlarm(action string) *Alarm {
	comp := NewComponent(CompAlarm)
	comp.Props.Set(Prop{Name: PropAction, Value: action})
	return &Alarm{Component: comp}
}

func (a *Alarm) Action() string {
	v, _ := a.Component.Props.Text(PropAction)
	return v
}

func (a *Alarm) Description() string {
	v, _ := a.Component.Props.Text(PropDescription)
	return v
}

func (a *Alarm) SetDescription(s string) {
	a.Component.Props.Set(Prop{Name: PropDescription, Value: escapeText(s)})
}

// Trigger is a tagged union over the two TRIGGER shapes: a duration offset
// relative to the parent's DTSTART (or DTEND/DUE if RELATED=END), or an
// absolute VALUE=DATE-TIME instant.
type Trigger struct {
	Absolute   bool
	At         time.Time // valid if Absolute
	Offset     time.Duration
	RelatedEnd bool // RELATED=END, only meaningful if !Absolute
}

func (a *Alarm) Trigger() (Trigger, error) {
	p := a.Component.Props.Get(PropTrigger)
	if p == nil {
		return Trigger{}, fmt.Errorf("ical: VALARM has no TRIGGER")
	}

	if p.Params.Get(ParamValue) == "DATE-TIME" {
		dt, err := ParseDateTime(p.Value, p.Params, nil)
		if err != nil {
			return Trigger{}, err
		}
		return Trigger{Absolute: true, At: dt.UTC()}, nil
	}

	d, err := ParseDuration(p.Value)
	if err != nil {
		return Trigger{}, err
	}
	return Trigger{Offset: d, RelatedEnd: p.Params.Get(ParamRelated) == "END"}, nil
}

func (a *Alarm) SetTrigger(t Trigger) {
	if t.Absolute {
		a.Component.Props.Set(Prop{
			Name:   PropTrigger,
			Value:  t.At.UTC().Format(dateTimeLayoutUTC),
			Params: Params{ParamValue: {"DATE-TIME"}},
		})
		return
	}
	params := Params{}
	if t.RelatedEnd {
		params.Set(ParamRelated, "END")
	}
	a.Component.Props.Set(Prop{Name: PropTrigger, Value: FormatDuration(t.Offset), Params: params})
}

// Repeat is VALARM's REPEAT count paired with its DURATION between repeats.
func (a *Alarm) Repeat() (count int, every time.Duration, err error) {
	v, ok := a.Component.Props.Text(PropRepeat)
	if !ok {
		return 0, 0, nil
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("ical: invalid REPEAT value %q", v)
		}
		count = count*10 + int(r-'0')
	}
	if d, ok := a.Component.Props.Text(PropDuration); ok {
		every, err = ParseDuration(d)
	}
	return count, every, err
}
