package lifecycle

import (
	"github.com/vinochelo/extractor/constants"
)

// Event names a user-initiated status change.
type Event string

const (
	EventMarkPending Event = "mark-pending"
	EventMarkVoided  Event = "mark-voided"
	EventRevert      Event = "revert"
)

// Transition is one legal edge of the estado state machine.
type Transition struct {
	From  constants.RetentionStatus
	Event Event
	To    constants.RetentionStatus
	Label string
}

// Transitions is the complete edge table. Nothing outside it is legal.
var Transitions = []Transition{
	{From: constants.StatusSolicitado, Event: EventMarkPending, To: constants.StatusPendienteAnular, Label: "Marcar Pendiente Anular"},
	{From: constants.StatusPendienteAnular, Event: EventRevert, To: constants.StatusSolicitado, Label: "Revertir a Solicitado"},
	{From: constants.StatusPendienteAnular, Event: EventMarkVoided, To: constants.StatusAnulado, Label: "Marcar como Anulado"},
	{From: constants.StatusAnulado, Event: EventRevert, To: constants.StatusPendienteAnular, Label: "Revertir a Pendiente Anular"},
}

// DeleteLabel is the menu entry for deleting a record.
const DeleteLabel = "Eliminar Retención"

// Action is one entry of a record's action menu.
type Action struct {
	Label  string                    `json:"label"`
	Event  Event                     `json:"event,omitempty"`
	Target constants.RetentionStatus `json:"target,omitempty"`
	Delete bool                      `json:"delete,omitempty"`
}

// Lookup returns the edge from "from" to "to", if any.
func Lookup(from, to constants.RetentionStatus) (Transition, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Next returns the target of applying ev in state from.
func Next(from constants.RetentionStatus, ev Event) (constants.RetentionStatus, bool) {
	for _, t := range Transitions {
		if t.From == from && t.Event == ev {
			return t.To, true
		}
	}
	return "", false
}

// Actions lists what a user may do with a record in the given state: its
// outgoing transitions in table order, then delete. Unknown states only
// offer delete.
func Actions(current constants.RetentionStatus) []Action {
	out := make([]Action, 0, 3)
	for _, t := range Transitions {
		if t.From == current {
			out = append(out, Action{Label: t.Label, Event: t.Event, Target: t.To})
		}
	}
	return append(out, Action{Label: DeleteLabel, Delete: true})
}

// ParseEvent maps a wire value to an Event.
func ParseEvent(s string) (Event, bool) {
	switch ev := Event(s); ev {
	case EventMarkPending, EventMarkVoided, EventRevert:
		return ev, true
	}
	return "", false
}
