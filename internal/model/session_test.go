package model

import "testing"

func TestSessionStatusIsTerminal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status SessionStatus
		want   bool
	}{
		{SessionStatusPending, false},
		{SessionStatusScheduled, false},
		{SessionStatusCompleted, true},
		{SessionStatusMissed, true},
		{SessionStatusCancelledByParent, true},
		{SessionStatusCancelledByTeacher, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSessionStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	initial := []SessionStatus{SessionStatusPending, SessionStatusScheduled}
	terminal := []SessionStatus{
		SessionStatusCompleted, SessionStatusMissed,
		SessionStatusCancelledByParent, SessionStatusCancelledByTeacher,
	}

	// Initial states move anywhere, including between each other
	for _, from := range initial {
		for _, to := range append(initial, terminal...) {
			if !from.CanTransitionTo(to) {
				t.Errorf("%s -> %s should be allowed", from, to)
			}
		}
	}

	// Terminal states never move again, not even to themselves
	for _, from := range terminal {
		for _, to := range append(initial, terminal...) {
			if from.CanTransitionTo(to) {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
		}
	}

	if SessionStatusPending.CanTransitionTo("ARCHIVED") {
		t.Error("transition to unknown status should be rejected")
	}
}
