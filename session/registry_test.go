package session

import (
	"testing"
	"time"

	"paroles/model"
)

func TestRegistryOpenSlugsAndGeneratesIDs(t *testing.T) {
	r := NewRegistry(nil)

	s := r.Open("Salon Du Vendredi", testSong(nil), testCues())
	if s.ID != "salon-du-vendredi" {
		t.Errorf("ID = %q, want salon-du-vendredi", s.ID)
	}

	anon := r.Open("", testSong(nil), testCues())
	if anon.ID == "" {
		t.Error("generated ID is empty")
	}
	if _, ok := r.Get(anon.ID); !ok {
		t.Error("generated session not retrievable")
	}
}

func TestRegistryOpenReplacesExisting(t *testing.T) {
	r := NewRegistry(nil)
	first := r.Open("salon", testSong(nil), testCues())
	second := r.Open("salon", testSong(nil), testCues())

	got, ok := r.Get("salon")
	if !ok {
		t.Fatal("session missing after reopen")
	}
	if got == first || got != second {
		t.Error("Get returned the replaced session")
	}
	if len(r.List()) != 1 {
		t.Errorf("List length = %d, want 1", len(r.List()))
	}
}

func TestRegistryExpiry(t *testing.T) {
	clk := newMockClock()
	r := NewRegistryWithClock(nil, clk)
	r.Open("salon", testSong(nil), testCues())

	clk.advance(sessionExpiry - time.Minute)
	if _, ok := r.Get("salon"); !ok {
		t.Fatal("session expired before the deadline")
	}

	// Registry lookups are not session activity; only session calls
	// touch. Push past expiry measured from the last touch.
	clk.advance(sessionExpiry + time.Minute)
	if _, ok := r.Get("salon"); ok {
		t.Error("session survived past expiry")
	}
	if got := len(r.List()); got != 0 {
		t.Errorf("List length = %d, want 0 after expiry", got)
	}
}

func TestRegistryActivityKeepsSessionAlive(t *testing.T) {
	clk := newMockClock()
	r := NewRegistryWithClock(nil, clk)
	s := r.Open("salon", testSong(nil), testCues())

	// Regular advances keep resetting the idle timer.
	for i := 0; i < 3; i++ {
		clk.advance(sessionExpiry / 2)
		s.Advance(float64(i))
	}
	if _, ok := r.Get("salon"); !ok {
		t.Error("active session expired")
	}
}

func TestRegistryActiveCount(t *testing.T) {
	clk := newMockClock()
	r := NewRegistryWithClock(nil, clk)
	fresh := r.Open("frais", testSong(nil), testCues())
	r.Open("dormant", testSong(nil), testCues())

	clk.advance(activeThreshold + time.Second)
	fresh.Advance(1)

	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("List length = %d, want 2 (idle is not expired)", got)
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.Open("bravo", testSong(nil), testCues())
	r.Open("alpha", testSong(nil), testCues())

	list := r.List()
	if len(list) != 2 || list[0].ID != "alpha" || list[1].ID != "bravo" {
		ids := make([]string, len(list))
		for i, s := range list {
			ids[i] = s.ID
		}
		t.Errorf("List ids = %v, want [alpha bravo]", ids)
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry(nil)
	s := r.Open("salon", testSong(nil), testCues())

	if !r.Close("salon") {
		t.Fatal("Close returned false for a live session")
	}
	if snap := s.Snapshot(); snap.State.Phase != model.PhaseEnded {
		t.Errorf("phase after close = %s, want ended", snap.State.Phase)
	}
	if _, ok := r.Get("salon"); ok {
		t.Error("closed session still retrievable")
	}
	if r.Close("salon") {
		t.Error("second Close returned true")
	}
}
