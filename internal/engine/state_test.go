package engine

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		from State
		ev   Event
		to   State
	}{
		{StateStart, EventResponse, StateFirstPageFetched},
		{StateStart, EventFailure, StateTransientFailure},
		{StateFirstPageFetched, EventPageOK, StatePaginating},
		{StateFirstPageFetched, EventQuotaExceeded, StateQuotaTripped},
		{StateFirstPageFetched, EventForbidden, StateBanned},
		{StateFirstPageFetched, EventFailure, StateTransientFailure},
		{StatePaginating, EventPageOK, StatePaginating},
		{StatePaginating, EventQuotaExceeded, StateQuotaTripped},
		{StatePaginating, EventFailure, StateTransientFailure},
		{StatePaginating, EventBoundReached, StateDone},
		{StateQuotaTripped, EventFinish, StateDone},
		{StateBanned, EventFinish, StateDone},
		{StateTransientFailure, EventFinish, StateDone},
	}

	for _, tt := range tests {
		got, err := Transition(tt.from, tt.ev)
		if err != nil {
			t.Errorf("Transition(%s, %s) unexpected error: %v", tt.from, tt.ev, err)
			continue
		}
		if got != tt.to {
			t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.ev, got, tt.to)
		}
	}
}

func TestTransitionInvalid(t *testing.T) {
	invalid := []struct {
		from State
		ev   Event
	}{
		{StateStart, EventPageOK},
		{StateStart, EventBoundReached},
		{StateFirstPageFetched, EventBoundReached},
		{StateFirstPageFetched, EventResponse},
		{StateBanned, EventPageOK},
		{StateDone, EventPageOK},
		{StateDone, EventFinish},
	}

	for _, tt := range invalid {
		got, err := Transition(tt.from, tt.ev)
		if err == nil {
			t.Errorf("Transition(%s, %s) expected error, got %s", tt.from, tt.ev, got)
		}
		if got != tt.from {
			t.Errorf("Transition(%s, %s) should keep state on error, got %s", tt.from, tt.ev, got)
		}
	}
}

func TestAbandoned(t *testing.T) {
	for _, s := range []State{StateQuotaTripped, StateBanned, StateTransientFailure} {
		if !s.Abandoned() {
			t.Errorf("Expected %s to be abandoned", s)
		}
	}
	for _, s := range []State{StateStart, StateFirstPageFetched, StatePaginating, StateDone} {
		if s.Abandoned() {
			t.Errorf("Expected %s not to be abandoned", s)
		}
	}
}
