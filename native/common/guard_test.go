package common

import (
	"errors"
	"testing"

	"acre/core/state"
)

func TestGuardReportsPausedModule(t *testing.T) {
	pauses := NewPauses(nil)
	if err := Guard(pauses, "vault"); err != nil {
		t.Fatalf("unexpected error before pause: %v", err)
	}
	if err := pauses.Pause("vault"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := Guard(pauses, "vault"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "allocator"); err != nil {
		t.Fatalf("other modules must stay active: %v", err)
	}
	if err := Guard(nil, "vault"); err != nil {
		t.Fatalf("nil pause view must not block: %v", err)
	}
}

func TestPausesRejectRedundantTransitions(t *testing.T) {
	pauses := NewPauses(nil)
	if err := pauses.Unpause("vault"); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
	if err := pauses.Pause("vault"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := pauses.Pause("vault"); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("expected ErrAlreadyPaused, got %v", err)
	}
	if got := pauses.Paused(); len(got) != 1 || got[0] != "vault" {
		t.Fatalf("unexpected paused set: %v", got)
	}
}

func TestPausesRevertWithJournal(t *testing.T) {
	journal := state.NewJournal()
	pauses := NewPauses(journal)
	snap := journal.Snapshot()
	if err := pauses.Pause("vault"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	journal.RevertToSnapshot(snap)
	if pauses.IsPaused("vault") {
		t.Fatalf("revert should restore the active state")
	}
}

func TestReentrancyGuard(t *testing.T) {
	var guard ReentrancyGuard
	release, err := guard.Enter()
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, err := guard.Enter(); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
	release()
	if guard.Entered() {
		t.Fatalf("guard should be released")
	}
	release, err = guard.Enter()
	if err != nil {
		t.Fatalf("re-enter after release: %v", err)
	}
	release()
}
