package ical

import (
	"time"

	"github.com/google/uuid"
)

// Journal wraps a VJOURNAL component.
type Journal struct {
	Component *Component
}

func NewJournal(uid string) *Journal {
	if uid == "" {
		uid = uuid.NewString()
	}
	comp := NewComponent(CompJournal)
	comp.Props.Set(Prop{Name: PropUID, Value: uid})
	comp.Props.Set(Prop{Name: PropDtstamp, Value: time.Now().UTC().Format(dateTimeLayoutUTC)})
	return &Journal{Component: comp}
}

func (j *Journal) UID() string {
	v, _ := j.Component.Props.Text(PropUID)
	return v
}

func (j *Journal) Summary() string {
	v, _ := j.Component.Props.Text(PropSummary)
	return v
}

func (j *Journal) SetSummary(s string) {
	j.Component.Props.Set(Prop{Name: PropSummary, Value: escapeText(s)})
}

func (j *Journal) Description() string {
	v, _ := j.Component.Props.Text(PropDescription)
	return v
}

func (j *Journal) SetDescription(s string) {
	j.Component.Props.Set(Prop{Name: PropDescription, Value: escapeText(s)})
}

func (j *Journal) Start(loc func(string) (*time.Location, error)) (DateTime, error) {
	p := j.Component.Props.Get(PropDtstart)
	if p == nil {
		return DateTime{}, nil
	}
	return ParseDateTime(p.Value, p.Params, loc)
}
