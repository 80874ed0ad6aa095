package domain

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   TransferState
		event  Event
		to     TransferState
		effect TransferEffect
	}{
		{TransferStatePending, EventStart, TransferStateStarted, EffectStartOuterRequests},
		{TransferStatePending, EventProcess1, TransferStateProcessed1, EffectNone},
		{TransferStateProcessed1, EventProcess2, TransferStateProcessed2, EffectNone},
		{TransferStatePending, EventPass, TransferStatePassed, EffectStartOuterRequests},
		{TransferStateStarted, EventPass, TransferStatePassed, EffectNone},
		{TransferStateFailed, EventPass, TransferStatePassed, EffectNone},
		{TransferStateProcessed2, EventPass, TransferStatePassed, EffectNone},
		{TransferStatePending, EventFail, TransferStateFailed, EffectRemoveDownstream},
		{TransferStateStarted, EventFail, TransferStateFailed, EffectRemoveDownstream},
		{TransferStatePassed, EventFail, TransferStateFailed, EffectRemoveDownstream},
		{TransferStateStarted, EventCancel, TransferStateCancelled, EffectRemoveDownstream},
		{TransferStateQCComplete, EventCancel, TransferStateCancelled, EffectRemoveDownstream},
		{TransferStatePending, EventCancelBeforeStarted, TransferStateCancelled, EffectRemoveDownstream},
		{TransferStatePending, EventDetach, TransferStatePending, EffectNone},
		{TransferStatePassed, EventQC, TransferStateQCComplete, EffectNone},
	}
	for _, tc := range cases {
		to, effect, err := Transition(tc.from, tc.event)
		if err != nil {
			t.Fatalf("%s from %s: unexpected error %v", tc.event, tc.from, err)
		}
		if to != tc.to || effect != tc.effect {
			t.Fatalf("%s from %s: got (%s, %q), want (%s, %q)", tc.event, tc.from, to, effect, tc.to, tc.effect)
		}
	}
}

func TestTransitionRejectsImpermissibleEvents(t *testing.T) {
	cases := []struct {
		from  TransferState
		event Event
	}{
		{TransferStatePending, EventCancel},
		{TransferStateStarted, EventStart},
		{TransferStateFailed, EventFail},
		{TransferStateCancelled, EventPass},
		{TransferStateStarted, EventQC},
		{TransferStateProcessed2, EventProcess1},
	}
	for _, tc := range cases {
		_, _, err := Transition(tc.from, tc.event)
		var invalid InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s from %s: expected InvalidTransitionError, got %v", tc.event, tc.from, err)
		}
		if invalid.Event != tc.event || invalid.From != tc.from {
			t.Fatalf("error names wrong transition: %+v", invalid)
		}
	}
}

func TestPermittedEventsFromPending(t *testing.T) {
	events := PermittedEvents(TransferStatePending)
	want := map[Event]bool{
		EventStart:               true,
		EventProcess1:            true,
		EventPass:                true,
		EventFail:                true,
		EventCancelBeforeStarted: true,
		EventDetach:              true,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events from pending, got %v", len(want), events)
	}
	for _, e := range events {
		if !want[e] {
			t.Fatalf("unexpected event %s from pending", e)
		}
	}
}

func TestSuggestedEventToPicksTheSingleOption(t *testing.T) {
	cases := []struct {
		from   TransferState
		target TransferState
		want   Event
	}{
		{TransferStatePending, TransferStateStarted, EventStart},
		{TransferStatePending, TransferStatePassed, EventPass},
		{TransferStatePending, TransferStateCancelled, EventCancelBeforeStarted},
		{TransferStateStarted, TransferStateCancelled, EventCancel},
		{TransferStatePassed, TransferStateQCComplete, EventQC},
		{TransferStatePassed, TransferStateFailed, EventFail},
	}
	for _, tc := range cases {
		got, err := SuggestedEventTo(tc.from, tc.target)
		if err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.target, err)
		}
		if got != tc.want {
			t.Fatalf("%s -> %s: got %s, want %s", tc.from, tc.target, got, tc.want)
		}
	}
}

func TestSuggestedEventToRejectsUnreachableTargets(t *testing.T) {
	_, err := SuggestedEventTo(TransferStateCancelled, TransferStatePassed)
	var ambiguous AmbiguousTransitionError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousTransitionError, got %v", err)
	}
	if len(ambiguous.Events) != 0 {
		t.Fatalf("no event should reach passed from cancelled: %+v", ambiguous)
	}
}

func TestActiveStatesExcludeTerminalFailures(t *testing.T) {
	active := map[TransferState]bool{}
	for _, s := range TransferActiveStates {
		active[s] = true
	}
	if active[TransferStateFailed] || active[TransferStateCancelled] {
		t.Fatalf("failed and cancelled must not be active states")
	}
	if !active[TransferStatePending] || !active[TransferStatePassed] {
		t.Fatalf("pending and passed are active states")
	}
}
