package playback

import (
	"testing"

	"paroles/model"
)

func fptr(v float64) *float64 {
	return &v
}

func demoCues() []model.Cue {
	return []model.Cue{
		{StartSeconds: 0, EndSeconds: 5, Text: "Hello"},
		{StartSeconds: 5, EndSeconds: 10, Text: "World"},
	}
}

func TestAdvanceBeforeFirstCueShowsNoCaption(t *testing.T) {
	cues := []model.Cue{
		{StartSeconds: 2, EndSeconds: 4, Text: "first"},
		{StartSeconds: 6, EndSeconds: 8, Text: "second"},
	}
	s := NewSynchronizer("demo", cues, nil)

	u := s.Advance(1)
	if u.Phase != model.PhasePlaying {
		t.Fatalf("phase = %s, want %s", u.Phase, model.PhasePlaying)
	}
	if u.Caption != "" || u.CueIndex != -1 {
		t.Fatalf("caption = %q (index %d), want none", u.Caption, u.CueIndex)
	}
}

func TestGapBetweenCuesShowsNoCaption(t *testing.T) {
	cues := []model.Cue{
		{StartSeconds: 0, EndSeconds: 2, Text: "a"},
		{StartSeconds: 4, EndSeconds: 6, Text: "b"},
	}
	s := NewSynchronizer("demo", cues, nil)

	if u := s.Advance(3); u.Caption != "" || u.CueIndex != -1 {
		t.Fatalf("caption in gap = %q (index %d), want none", u.Caption, u.CueIndex)
	}
}

func TestOverlappingCuesPreferLatestStart(t *testing.T) {
	cues := []model.Cue{
		{StartSeconds: 0, EndSeconds: 10, Text: "long"},
		{StartSeconds: 5, EndSeconds: 8, Text: "inner"},
	}
	s := NewSynchronizer("demo", cues, nil)

	if u := s.Advance(7); u.Caption != "inner" {
		t.Fatalf("caption = %q, want %q", u.Caption, "inner")
	}
	// After the inner cue ends the long one is active again.
	if u := s.Advance(9); u.Caption != "long" {
		t.Fatalf("caption = %q, want %q", u.Caption, "long")
	}
}

func TestCutPointStateMachine(t *testing.T) {
	cues := []model.Cue{
		{StartSeconds: 25, EndSeconds: 35, Text: "le refrain"},
		{StartSeconds: 35, EndSeconds: 45, Text: "la suite"},
	}
	s := NewSynchronizer("demo", cues, fptr(30))

	u := s.Advance(29)
	if u.Phase != model.PhasePlaying {
		t.Fatalf("advance(29) phase = %s, want %s", u.Phase, model.PhasePlaying)
	}
	if u.Caption != "le refrain" {
		t.Fatalf("advance(29) caption = %q, want %q", u.Caption, "le refrain")
	}

	u = s.Advance(31)
	if u.Phase != model.PhaseCutoffWaiting {
		t.Fatalf("advance(31) phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
	}
	if u.Caption != "" {
		t.Fatalf("advance(31) caption = %q, want suppressed", u.Caption)
	}

	u, ok := s.Reveal()
	if !ok {
		t.Fatal("reveal from cutoff_waiting should act")
	}
	if u.Phase != model.PhaseRevealed {
		t.Fatalf("reveal phase = %s, want %s", u.Phase, model.PhaseRevealed)
	}
	if u.Caption != "le refrain" {
		t.Fatalf("caption after reveal = %q, want %q", u.Caption, "le refrain")
	}

	// A second reveal is a benign no-op.
	u, ok = s.Reveal()
	if ok {
		t.Fatal("second reveal should be a no-op")
	}
	if u.Phase != model.PhaseRevealed {
		t.Fatalf("phase after second reveal = %s, want %s", u.Phase, model.PhaseRevealed)
	}
}

func TestDemoSongScenario(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), fptr(6))

	u := s.Advance(3)
	if u.Phase != model.PhasePlaying || u.Caption != "Hello" {
		t.Fatalf("advance(3) = %s %q, want playing \"Hello\"", u.Phase, u.Caption)
	}

	u = s.Advance(7)
	if u.Phase != model.PhaseCutoffWaiting {
		t.Fatalf("advance(7) phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
	}
	if u.Caption != "" {
		t.Fatalf("advance(7) caption = %q, want suppressed even though a cue exists", u.Caption)
	}

	if _, ok := s.Reveal(); !ok {
		t.Fatal("reveal should act from cutoff_waiting")
	}
	u = s.Advance(7)
	if u.Phase != model.PhaseRevealed || u.Caption != "World" {
		t.Fatalf("advance(7) after reveal = %s %q, want revealed \"World\"", u.Phase, u.Caption)
	}
}

func TestCueStartedBeforeCutIsSuppressed(t *testing.T) {
	cues := []model.Cue{{StartSeconds: 0, EndSeconds: 40, Text: "spanning"}}
	s := NewSynchronizer("demo", cues, fptr(30))

	if u := s.Advance(20); u.Caption != "spanning" {
		t.Fatalf("advance(20) caption = %q, want %q", u.Caption, "spanning")
	}
	u := s.Advance(35)
	if u.Phase != model.PhaseCutoffWaiting || u.Caption != "" {
		t.Fatalf("advance(35) = %s %q, want cutoff_waiting with no caption", u.Phase, u.Caption)
	}
}

func TestNoCutPlaysThroughToEnded(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), nil)

	if u := s.Advance(9); u.Phase != model.PhasePlaying || u.Caption != "World" {
		t.Fatalf("advance(9) = %s %q, want playing \"World\"", u.Phase, u.Caption)
	}
	if u := s.Advance(10); u.Phase != model.PhaseEnded {
		t.Fatalf("advance(10) phase = %s, want %s", u.Phase, model.PhaseEnded)
	}
	// Ended is terminal for Advance.
	if u := s.Advance(3); u.Phase != model.PhaseEnded || u.Caption != "" {
		t.Fatalf("advance after end = %s %q, want ended with no caption", u.Phase, u.Caption)
	}
}

func TestCutoffWaitingNeverAutoEnds(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), fptr(6))

	if u := s.Advance(7); u.Phase != model.PhaseCutoffWaiting {
		t.Fatalf("advance(7) phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
	}
	// The clock keeps running past the last cue while the host holds the
	// reveal; the machine must keep waiting.
	if u := s.Advance(120); u.Phase != model.PhaseCutoffWaiting {
		t.Fatalf("advance(120) phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
	}
}

func TestRevealedEndsAtLastCueEnd(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), fptr(6))
	s.Advance(7)
	s.Reveal()

	if u := s.Advance(10); u.Phase != model.PhaseEnded {
		t.Fatalf("advance(10) after reveal phase = %s, want %s", u.Phase, model.PhaseEnded)
	}
}

func TestResetRearmsTheCut(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), fptr(6))

	t.Run("from revealed back before the cut", func(t *testing.T) {
		s.Advance(7)
		s.Reveal()
		u := s.Reset(3)
		if u.Phase != model.PhasePlaying {
			t.Fatalf("reset(3) phase = %s, want %s", u.Phase, model.PhasePlaying)
		}
		if u.Caption != "Hello" {
			t.Fatalf("reset(3) caption = %q, want %q", u.Caption, "Hello")
		}
		// The cut fires again on the replay.
		if u := s.Advance(7); u.Phase != model.PhaseCutoffWaiting {
			t.Fatalf("advance(7) after reset phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
		}
	})

	t.Run("to a position past the cut", func(t *testing.T) {
		u := s.Reset(6.5)
		if u.Phase != model.PhaseCutoffWaiting {
			t.Fatalf("reset(6.5) phase = %s, want %s", u.Phase, model.PhaseCutoffWaiting)
		}
	})

	t.Run("out of the terminal phase", func(t *testing.T) {
		s.Reset(3)
		s.Stop()
		u := s.Reset(0)
		if u.Phase != model.PhasePlaying {
			t.Fatalf("reset(0) from ended phase = %s, want %s", u.Phase, model.PhasePlaying)
		}
	})

	t.Run("negative target clamps to zero", func(t *testing.T) {
		s.Reset(-5)
		if st := s.State(); st.ClockSeconds != 0 {
			t.Fatalf("clock after reset(-5) = %v, want 0", st.ClockSeconds)
		}
	})
}

func TestResetWithoutCutReturnsToPlaying(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), nil)
	s.Advance(10)
	if st := s.State(); st.Phase != model.PhaseEnded {
		t.Fatalf("phase = %s, want %s", st.Phase, model.PhaseEnded)
	}
	if u := s.Reset(50); u.Phase != model.PhasePlaying {
		t.Fatalf("reset without cut phase = %s, want %s", u.Phase, model.PhasePlaying)
	}
}

func TestStateTracksLastRevealedCue(t *testing.T) {
	s := NewSynchronizer("demo", demoCues(), fptr(6))

	if st := s.State(); st.LastRevealedCueIndex != -1 {
		t.Fatalf("initial lastRevealedCueIndex = %d, want -1", st.LastRevealedCueIndex)
	}
	s.Advance(3)
	if st := s.State(); st.LastRevealedCueIndex != 0 {
		t.Fatalf("lastRevealedCueIndex = %d, want 0", st.LastRevealedCueIndex)
	}
	// Suppression does not roll the marker back.
	s.Advance(7)
	if st := s.State(); st.LastRevealedCueIndex != 0 {
		t.Fatalf("lastRevealedCueIndex during cutoff = %d, want 0", st.LastRevealedCueIndex)
	}
	s.Reveal()
	s.Advance(7)
	if st := s.State(); st.LastRevealedCueIndex != 1 {
		t.Fatalf("lastRevealedCueIndex after reveal = %d, want 1", st.LastRevealedCueIndex)
	}
}

func TestUnsortedInputIsSortedAtConstruction(t *testing.T) {
	cues := []model.Cue{
		{StartSeconds: 5, EndSeconds: 10, Text: "World"},
		{StartSeconds: 0, EndSeconds: 5, Text: "Hello"},
	}
	s := NewSynchronizer("demo", cues, nil)

	if u := s.Advance(1); u.Caption != "Hello" {
		t.Fatalf("caption = %q, want %q", u.Caption, "Hello")
	}
}

func TestEmptyCueSequence(t *testing.T) {
	s := NewSynchronizer("demo", nil, nil)

	// No cues means nothing to end on; the phase stays playing and the
	// display shows nothing.
	if u := s.Advance(10); u.Phase != model.PhasePlaying || u.Caption != "" {
		t.Fatalf("advance on empty sequence = %s %q, want playing with no caption", u.Phase, u.Caption)
	}
}
