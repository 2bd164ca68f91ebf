package session

import (
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/visual"
)

// EventKind says what happened to a registry entry
type EventKind int

const (
	Created EventKind = iota + 1
	Updated
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is published after the registry applied a confirmed mutation.
// Entity is nil for Removed.
type Event struct {
	Kind      EventKind
	ID        int
	Entity    *measurement.Entity
	RequestID string
	// Local is set when the broadcast answers a request sent by this adapter
	Local bool
}

// Observer reacts to registry mutations
type Observer interface {
	Apply(ev Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev Event)

func (f ObserverFunc) Apply(ev Event) { f(ev) }

// Project keeps p in line with the registry
func Project(p *visual.Projection) Observer {
	return ObserverFunc(func(ev Event) {
		switch ev.Kind {
		case Created, Updated:
			p.Refresh(ev.Entity)
		case Removed:
			p.Remove(ev.ID)
		}
	})
}
