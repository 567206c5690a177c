package models

import "testing"

func TestCanTransitionMonotonic(t *testing.T) {
	cases := []struct {
		from, to RunStatus
		want     bool
	}{
		{RunStatusPending, RunStatusRunning, true},
		{RunStatusPending, RunStatusCompleted, true},
		{RunStatusPending, RunStatusFailed, true},
		{RunStatusRunning, RunStatusCompleted, true},
		{RunStatusRunning, RunStatusFailed, true},
		{RunStatusRunning, RunStatusPending, false},
		{RunStatusCompleted, RunStatusRunning, false},
		{RunStatusCompleted, RunStatusFailed, false},
		{RunStatusFailed, RunStatusCompleted, false},
		{RunStatusFailed, RunStatusRunning, false},
		{RunStatusRunning, RunStatusRunning, true},
		{RunStatusCompleted, RunStatusCompleted, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if RunStatusPending.IsTerminal() || RunStatusRunning.IsTerminal() {
		t.Fatal("active statuses must not be terminal")
	}
	if !RunStatusCompleted.IsTerminal() || !RunStatusFailed.IsTerminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestIsValidRunStatus(t *testing.T) {
	for _, s := range []RunStatus{RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed} {
		if !IsValidRunStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidRunStatus("paused") {
		t.Error("unknown status accepted")
	}
}
