// Package playback drives the cut-point state machine that turns a
// playback clock into caption display state.
package playback

import (
	"sort"

	"paroles/model"
)

// Update is the display state derived from one synchronizer call.
// CueIndex is -1 when no caption is visible, which is a normal condition,
// not an error.
type Update struct {
	Phase    model.PlaybackPhase
	Caption  string
	CueIndex int
}

// Synchronizer owns the playback state of one loaded song. It is not safe
// for concurrent use; a session serializes access and publishes snapshots
// to its subscribers.
type Synchronizer struct {
	songID     string
	cues       []model.Cue
	cutPoint   *float64
	endSeconds float64

	clock        float64
	phase        model.PlaybackPhase
	lastRevealed int
}

// NewSynchronizer builds a synchronizer from a song's cue sequence and
// optional cut point. The cues are copied and kept sorted by start time,
// the order the search relies on.
func NewSynchronizer(songID string, cues []model.Cue, cutPointSeconds *float64) *Synchronizer {
	sorted := make([]model.Cue, len(cues))
	copy(sorted, cues)
	model.SortCues(sorted)

	var cut *float64
	if cutPointSeconds != nil {
		v := *cutPointSeconds
		cut = &v
	}
	return &Synchronizer{
		songID:       songID,
		cues:         sorted,
		cutPoint:     cut,
		endSeconds:   model.LastCueEnd(sorted),
		phase:        model.PhasePlaying,
		lastRevealed: -1,
	}
}

// Advance moves the clock and returns the resulting display state.
// Reaching the cut point while playing enters CutoffWaiting, where every
// caption is suppressed until Reveal, including cues that started before
// the cut. Without a cut the song ends when the clock passes the last cue
// end. Advancing while ended stays ended. Moving the clock backwards is a
// job for Reset, not Advance.
func (s *Synchronizer) Advance(clockSeconds float64) Update {
	s.clock = clockSeconds

	switch s.phase {
	case model.PhasePlaying:
		if s.cutPoint != nil {
			if clockSeconds >= *s.cutPoint {
				s.phase = model.PhaseCutoffWaiting
			}
		} else if len(s.cues) > 0 && clockSeconds >= s.endSeconds {
			s.phase = model.PhaseEnded
		}
	case model.PhaseRevealed:
		if len(s.cues) > 0 && clockSeconds >= s.endSeconds {
			s.phase = model.PhaseEnded
		}
	}

	return s.update()
}

// Reveal discloses the captions held back at the cut point. It only acts
// from CutoffWaiting; anywhere else it is a benign no-op and the second
// return is false.
func (s *Synchronizer) Reveal() (Update, bool) {
	if s.phase != model.PhaseCutoffWaiting {
		return s.update(), false
	}
	s.phase = model.PhaseRevealed
	return s.update(), true
}

// Reset re-seeks the clock, legal from every phase. The machine re-arms:
// back to Playing when the target sits before the cut point (or none is
// configured), straight to CutoffWaiting otherwise. This is the "replay
// from the cut" mechanic, and it also leaves the terminal phase.
func (s *Synchronizer) Reset(toSeconds float64) Update {
	if toSeconds < 0 {
		toSeconds = 0
	}
	s.clock = toSeconds
	if s.cutPoint != nil && toSeconds >= *s.cutPoint {
		s.phase = model.PhaseCutoffWaiting
	} else {
		s.phase = model.PhasePlaying
	}
	return s.update()
}

// Stop ends the session's playback explicitly.
func (s *Synchronizer) Stop() Update {
	s.phase = model.PhaseEnded
	return s.update()
}

// Current reports the display state at the current clock without moving it.
func (s *Synchronizer) Current() Update {
	return s.update()
}

// State returns a snapshot of the authoritative playback state.
func (s *Synchronizer) State() model.PlaybackState {
	return model.PlaybackState{
		SongID:               s.songID,
		ClockSeconds:         s.clock,
		Phase:                s.phase,
		LastRevealedCueIndex: s.lastRevealed,
	}
}

// CutPointSeconds returns a copy of the configured cut point, nil when
// the song plays through.
func (s *Synchronizer) CutPointSeconds() *float64 {
	if s.cutPoint == nil {
		return nil
	}
	v := *s.cutPoint
	return &v
}

// update resolves the visible caption for the current phase and clock.
func (s *Synchronizer) update() Update {
	u := Update{Phase: s.phase, CueIndex: -1}
	if s.phase == model.PhaseCutoffWaiting || s.phase == model.PhaseEnded {
		return u
	}
	idx := s.activeCueIndex(s.clock)
	if idx >= 0 {
		u.CueIndex = idx
		u.Caption = s.cues[idx].Text
		s.lastRevealed = idx
	}
	return u
}

// activeCueIndex finds the cue whose interval contains the clock,
// preferring the latest start when cues overlap. -1 when the clock sits
// in a gap.
func (s *Synchronizer) activeCueIndex(clockSeconds float64) int {
	// First cue starting strictly after the clock; everything before it
	// is a candidate.
	idx := sort.Search(len(s.cues), func(i int) bool {
		return s.cues[i].StartSeconds > clockSeconds
	})
	for j := idx - 1; j >= 0; j-- {
		if s.cues[j].Contains(clockSeconds) {
			return j
		}
	}
	return -1
}
