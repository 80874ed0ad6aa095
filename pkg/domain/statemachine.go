package domain

// Event is a named transfer-request state machine transition trigger.
type Event string

// Transfer request events. The machine is more promiscuous than the one for
// customer requests as well as being more concise, since it has fewer states.
const (
	EventStart               Event = "start"
	EventProcess1            Event = "process_1"
	EventProcess2            Event = "process_2"
	EventPass                Event = "pass"
	EventFail                Event = "fail"
	EventCancel              Event = "cancel"
	EventCancelBeforeStarted Event = "cancel_before_started"
	EventDetach              Event = "detach"
	EventQC                  Event = "qc"
)

// TransferEffect names the side effect a transition obliges the caller to
// perform in the same unit of work.
type TransferEffect string

const (
	// EffectNone marks a pure state change.
	EffectNone TransferEffect = ""
	// EffectStartOuterRequests starts the matching customer requests out of
	// the source receptacle. Fired on start, and on pass from pending since
	// that path moves through an implied started state.
	EffectStartOuterRequests TransferEffect = "start_outer_requests"
	// EffectRemoveDownstream strips the aliquots this transfer created from
	// the target receptacle and everything transferred onwards from it.
	// Fired on every entry into failed or cancelled.
	EffectRemoveDownstream TransferEffect = "remove_downstream"
)

type transferTransition struct {
	Event  Event
	From   []TransferState
	To     TransferState
	Effect TransferEffect
}

// transferTransitions is the whole machine. Order matters only for events
// with several rows: the first row whose From set holds the current state
// wins.
var transferTransitions = []transferTransition{
	{Event: EventStart, From: []TransferState{TransferStatePending}, To: TransferStateStarted, Effect: EffectStartOuterRequests},
	{Event: EventProcess1, From: []TransferState{TransferStatePending}, To: TransferStateProcessed1},
	{Event: EventProcess2, From: []TransferState{TransferStateProcessed1}, To: TransferStateProcessed2},
	// Jumping straight to passed moves through an implied started state.
	{Event: EventPass, From: []TransferState{TransferStatePending}, To: TransferStatePassed, Effect: EffectStartOuterRequests},
	{Event: EventPass, From: []TransferState{TransferStateStarted, TransferStateFailed, TransferStateProcessed2}, To: TransferStatePassed},
	{Event: EventFail, From: []TransferState{TransferStatePending, TransferStateStarted, TransferStateProcessed1, TransferStateProcessed2, TransferStatePassed}, To: TransferStateFailed, Effect: EffectRemoveDownstream},
	{Event: EventCancel, From: []TransferState{TransferStateStarted, TransferStateProcessed1, TransferStateProcessed2, TransferStatePassed, TransferStateQCComplete}, To: TransferStateCancelled, Effect: EffectRemoveDownstream},
	{Event: EventCancelBeforeStarted, From: []TransferState{TransferStatePending}, To: TransferStateCancelled, Effect: EffectRemoveDownstream},
	{Event: EventDetach, From: []TransferState{TransferStatePending}, To: TransferStatePending},
	{Event: EventQC, From: []TransferState{TransferStatePassed}, To: TransferStateQCComplete},
}

func (t transferTransition) permits(from TransferState) bool {
	for _, s := range t.From {
		if s == from {
			return true
		}
	}
	return false
}

// PermittedEvents returns the events that may fire from the given state, in
// table order.
func PermittedEvents(from TransferState) []Event {
	var events []Event
	seen := map[Event]bool{}
	for _, t := range transferTransitions {
		if t.permits(from) && !seen[t.Event] {
			events = append(events, t.Event)
			seen[t.Event] = true
		}
	}
	return events
}

// Transition resolves the event against the current state and returns the
// resulting state and the side effect the caller must carry out.
func Transition(from TransferState, event Event) (TransferState, TransferEffect, error) {
	for _, t := range transferTransitions {
		if t.Event == event && t.permits(from) {
			return t.To, t.Effect, nil
		}
	}
	return from, EffectNone, InvalidTransitionError{Event: event, From: from}
}

// SuggestedEventTo determines the event to fire when only the target state is
// known. If exactly one permitted event reaches the target that event is
// returned, otherwise the transition is ambiguous and an error is raised so
// the decision goes back to the caller.
func SuggestedEventTo(from, target TransferState) (Event, error) {
	var events []Event
	seen := map[Event]bool{}
	for _, t := range transferTransitions {
		if t.To == target && t.permits(from) && !seen[t.Event] {
			events = append(events, t.Event)
			seen[t.Event] = true
		}
	}
	if len(events) != 1 {
		return "", AmbiguousTransitionError{From: from, Target: target, Events: events}
	}
	return events[0], nil
}
