package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"paroles/model"
)

// mockClock is a hand-driven time source.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testCues() []model.Cue {
	return []model.Cue{
		{StartSeconds: 1, EndSeconds: 3, Text: "Premier vers"},
		{StartSeconds: 4, EndSeconds: 10, Text: "Deuxième vers"},
	}
}

func testSong(cut *float64) model.Song {
	return model.Song{ID: "demo", Title: "Démo", Artist: "Artiste inconnu", CutPointSeconds: cut}
}

func recvPayload(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case p, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
	}
	return nil
}

func TestSessionBroadcastsMutations(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	s := NewSession("salon", testSong(nil), testCues(), hub)
	sub := hub.Subscribe("salon", 8)

	got := s.Advance(2)
	if got.Caption != "Premier vers" || got.State.Phase != model.PhasePlaying {
		t.Fatalf("snapshot = %+v, want Premier vers while playing", got)
	}

	var published Snapshot
	if err := json.Unmarshal(recvPayload(t, sub.Send), &published); err != nil {
		t.Fatalf("unmarshal published snapshot: %v", err)
	}
	if published.RoomID != "salon" || published.Caption != "Premier vers" {
		t.Errorf("published = %+v, want the same snapshot the caller got", published)
	}
	if published.State.ClockSeconds != 2 {
		t.Errorf("ClockSeconds = %v, want 2", published.State.ClockSeconds)
	}
}

func TestSessionCutAndReveal(t *testing.T) {
	cut := 5.0
	s := NewSession("salon", testSong(&cut), testCues(), nil)

	if snap := s.Advance(4.5); snap.Caption != "Deuxième vers" {
		t.Fatalf("caption before cut = %q, want Deuxième vers", snap.Caption)
	}
	snap := s.Advance(6)
	if snap.State.Phase != model.PhaseCutoffWaiting || snap.Caption != "" {
		t.Fatalf("snapshot past the cut = %+v, want suppressed caption", snap)
	}

	snap, ok := s.Reveal()
	if !ok || snap.State.Phase != model.PhaseRevealed {
		t.Fatalf("Reveal = (%+v, %v), want revealed", snap, ok)
	}
	if snap.Caption != "Deuxième vers" {
		t.Errorf("caption after reveal = %q, want Deuxième vers", snap.Caption)
	}

	if _, ok := s.Reveal(); ok {
		t.Error("second Reveal acted, want a no-op")
	}
}

func TestSessionResetReArms(t *testing.T) {
	cut := 5.0
	s := NewSession("salon", testSong(&cut), testCues(), nil)
	s.Advance(6)
	if _, ok := s.Reveal(); !ok {
		t.Fatal("Reveal did not act")
	}

	snap := s.Reset(0)
	if snap.State.Phase != model.PhasePlaying || snap.State.ClockSeconds != 0 {
		t.Fatalf("after reset = %+v, want playing at 0", snap)
	}
	if snap := s.Advance(6); snap.State.Phase != model.PhaseCutoffWaiting {
		t.Errorf("phase after replayed cut = %s, want cutoff_waiting", snap.State.Phase)
	}
}

func TestSessionSnapshotReadsWithoutMutating(t *testing.T) {
	s := NewSession("salon", testSong(nil), testCues(), nil)
	s.Advance(2)

	snap := s.Snapshot()
	if snap.Caption != "Premier vers" || snap.State.ClockSeconds != 2 {
		t.Errorf("Snapshot = %+v, want the state left by Advance", snap)
	}
	again := s.Snapshot()
	if again.State != snap.State {
		t.Errorf("repeated Snapshot = %+v, want identical state", again.State)
	}
}

func TestSessionTouchTracksClock(t *testing.T) {
	clk := newMockClock()
	s := newSession("salon", testSong(nil), testCues(), nil, clk)

	start := clk.Now()
	if got := s.LastActive(); !got.Equal(start) {
		t.Fatalf("LastActive = %v, want creation time %v", got, start)
	}
	clk.advance(10 * time.Minute)
	s.Advance(1)
	if got := s.LastActive(); !got.Equal(start.Add(10 * time.Minute)) {
		t.Errorf("LastActive = %v, want the advance time", got)
	}
}
