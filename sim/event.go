package sim

import (
	"fmt"
	"time"
)

type EventKind int

const (
	GateCrossed EventKind = iota
	Finished
)

func (k EventKind) String() string {
	if k == Finished {
		return "finished"
	}
	return "gate"
}

// Event is a race progress transition produced by a tick.
type Event struct {
	Kind EventKind `json:"-"`
	Name string    `json:"kind"`
	Gate int       `json:"gate"`
	Time time.Time `json:"time"`
}

func gateCrossed(index int, t time.Time) Event {
	return Event{Kind: GateCrossed, Name: GateCrossed.String(), Gate: index, Time: t}
}

func finished(t time.Time) Event {
	return Event{Kind: Finished, Name: Finished.String(), Gate: -1, Time: t}
}

func (e Event) String() string {
	if e.Kind == Finished {
		return fmt.Sprintf("finished at %s", e.Time.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("gate %d crossed at %s", e.Gate+1, e.Time.UTC().Format(time.RFC3339))
}
