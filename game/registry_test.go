package game

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCreateSession(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	s, err := r.CreateSession(ModeOnline, "match-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID != "match-1" {
		t.Errorf("session id = %q, want match-1", s.ID)
	}

	if _, err := r.CreateSession(ModeOnline, "match-1"); !errors.Is(err, ErrMatchExists) {
		t.Errorf("duplicate id error = %v, want ErrMatchExists", err)
	}

	generated, err := r.CreateSession(ModeSolo, "")
	if err != nil {
		t.Fatalf("CreateSession with empty id: %v", err)
	}
	if generated.ID == "" {
		t.Error("empty id was not replaced with a generated one")
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestAddPlayerRejectsBusyPlayer(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	if _, err := r.CreateSession(ModeOnline, "m1"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateSession(ModeOnline, "m2"); err != nil {
		t.Fatal(err)
	}

	if err := r.AddPlayer("m1", HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := r.AddPlayer("m2", HumanSlot("alice", "Alice", SideLeft)); !errors.Is(err, ErrPlayerBusy) {
		t.Errorf("second join error = %v, want ErrPlayerBusy", err)
	}
	if err := r.AddPlayer("missing", HumanSlot("bob", "Bob", SideLeft)); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("join on missing match error = %v, want ErrMatchNotFound", err)
	}
}

func TestAddPlayerClearsStaleMapping(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	first, err := r.CreateSession(ModeOnline, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateSession(ModeOnline, "m2"); err != nil {
		t.Fatal(err)
	}

	if err := r.AddPlayer("m1", HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}
	if err := first.Start(); err != nil {
		t.Fatal(err)
	}
	first.Stop() // finished sessions no longer pin the player

	if err := r.AddPlayer("m2", HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Errorf("join after previous match finished: %v", err)
	}
}

func TestConcurrentJoinsSamePlayer(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	const sessions = 8
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		if _, err := r.CreateSession(ModeOnline, ids[i]); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, id := range ids {
		wg.Add(1)
		go func(matchID string) {
			defer wg.Done()
			if err := r.AddPlayer(matchID, HumanSlot("alice", "Alice", SideLeft)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("%d concurrent joins succeeded, want exactly 1", succeeded)
	}
}

func TestSessionForPlayer(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	if _, err := r.CreateSession(ModeOnline, "m1"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPlayer("m1", HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}

	s, ok := r.SessionForPlayer("alice")
	if !ok || s.ID != "m1" {
		t.Errorf("SessionForPlayer(alice) = (%v, %v), want m1", s, ok)
	}
	if _, ok := r.SessionForPlayer("nobody"); ok {
		t.Error("SessionForPlayer(nobody) found a session")
	}

	r.RemoveSession("m1")
	if _, ok := r.SessionForPlayer("alice"); ok {
		t.Error("mapping survived session removal")
	}
}

func TestSweep(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	defer r.Drain()

	finished, err := r.CreateSession(ModeOnline, "finished")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateSession(ModeOnline, "fresh"); err != nil {
		t.Fatal(err)
	}

	if err := finished.Start(); err != nil {
		t.Fatal(err)
	}
	finished.Stop()

	// Inside the grace period and under the idle timeout nothing is reaped.
	if removed := r.Sweep(time.Now()); removed != 0 {
		t.Errorf("early sweep removed %d sessions", removed)
	}

	// Beyond the grace period only the finished session goes.
	if removed := r.Sweep(time.Now().Add(FinishedGracePeriod + time.Second)); removed != 1 {
		t.Errorf("grace sweep removed %d sessions, want 1", removed)
	}
	if _, ok := r.Get("finished"); ok {
		t.Error("finished session survived the sweep")
	}

	// Far in the future the idle timeout takes the rest.
	if removed := r.Sweep(time.Now().Add(SessionIdleTimeout + time.Minute)); removed != 1 {
		t.Errorf("idle sweep removed %d sessions, want 1", removed)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after full sweep, want 0", r.Len())
	}
}
