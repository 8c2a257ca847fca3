package ical

import (
	"time"

	"github.com/google/uuid"
)

// Todo wraps a VTODO component.
type Todo struct {
	Component *Component
}

func NewTodo(uid string) *Todo {
	if uid == "" {
		uid = uuid.NewString()
	}
	comp := NewComponent(CompTodo)
	comp.Props.Set(Prop{Name: PropUID, Value: uid})
	comp.Props.Set(Prop{Name: PropDtstamp, Value: time.Now().UTC().Format(dateTimeLayoutUTC)})
	return &Todo{Component: comp}
}

func (t *Todo) UID() string {
	v, _ := t.Component.Props.Text(PropUID)
	return v
}

func (t *Todo) Summary() string {
	v, _ := t.Component.Props.Text(PropSummary)
	return v
}

func (t *Todo) SetSummary(s string) {
	t.Component.Props.Set(Prop{Name: PropSummary, Value: escapeText(s)})
}

func (t *Todo) Status() string {
	v, _ := t.Component.Props.Text(PropStatus)
	return v
}

func (t *Todo) SetStatus(s string) {
	t.Component.Props.Set(Prop{Name: PropStatus, Value: s})
}

// PercentComplete returns VTODO's PERCENT-COMPLETE, or -1 if absent.
func (t *Todo) PercentComplete() int {
	v, ok := t.Component.Props.Text(PropPercent)
	if !ok {
		return -1
	}
	var n int
	for _, r := range v {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (t *Todo) Due(loc func(string) (*time.Location, error)) (DateTime, bool, error) {
	p := t.Component.Props.Get(PropDue)
	if p == nil {
		return DateTime{}, false, nil
	}
	dt, err := ParseDateTime(p.Value, p.Params, loc)
	return dt, true, err
}

func (t *Todo) Completed(loc func(string) (*time.Location, error)) (DateTime, bool, error) {
	p := t.Component.Props.Get(PropCompleted)
	if p == nil {
		return DateTime{}, false, nil
	}
	dt, err := ParseDateTime(p.Value, p.Params, loc)
	return dt, true, err
}
