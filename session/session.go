// Package session hosts live play sessions: each owns one playback
// synchronizer and publishes immutable snapshots to hub subscribers.
package session

import (
	"sync"
	"time"

	"paroles/model"
	"paroles/playback"
)

// Snapshot is the state document published to every subscriber after a
// session mutation. Subscribers only ever see copies.
type Snapshot struct {
	RoomID    string              `json:"roomId"`
	State     model.PlaybackState `json:"state"`
	Caption   string              `json:"caption"`
	CueIndex  int                 `json:"cueIndex"` // -1 when no caption is visible
	SongTitle string              `json:"songTitle"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Session serializes all access to one synchronizer. Every mutation
// publishes the resulting snapshot; reads just report it.
type Session struct {
	ID string

	mu        sync.Mutex
	machine   *playback.Synchronizer
	song      model.Song
	hub       *Hub
	clock     Clock
	createdAt time.Time
	lastTouch time.Time
}

// NewSession builds a standalone session. A nil hub disables broadcasting;
// the session still works for direct callers.
func NewSession(id string, song model.Song, cues []model.Cue, hub *Hub) *Session {
	return newSession(id, song, cues, hub, realClock{})
}

func newSession(id string, song model.Song, cues []model.Cue, hub *Hub, clk Clock) *Session {
	now := clk.Now()
	return &Session{
		ID:        id,
		machine:   playback.NewSynchronizer(song.ID, cues, song.CutPointSeconds),
		song:      song,
		hub:       hub,
		clock:     clk,
		createdAt: now,
		lastTouch: now,
	}
}

// Advance moves the playback clock and broadcasts the new state.
func (s *Session) Advance(clockSeconds float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(s.machine.Advance(clockSeconds))
}

// Reveal discloses the held-back captions. The second return reports
// whether the reveal acted; a no-op reveal still broadcasts the current
// state so late subscribers converge.
func (s *Session) Reveal() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.machine.Reveal()
	return s.publish(u), ok
}

// Reset re-seeks the clock and re-arms the cut point.
func (s *Session) Reset(toSeconds float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(s.machine.Reset(toSeconds))
}

// Stop ends playback.
func (s *Session) Stop() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(s.machine.Stop())
}

// Snapshot reports the current state without mutating it. The read still
// counts as session activity.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTouch = s.clock.Now()
	return s.snapshot(s.machine.Current())
}

// Song returns the loaded song metadata.
func (s *Session) Song() model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song
}

// LastActive returns the time of the most recent session call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// publish must run with the lock held so snapshots reach the hub in
// mutation order.
func (s *Session) publish(u playback.Update) Snapshot {
	s.lastTouch = s.clock.Now()
	snap := s.snapshot(u)
	if s.hub != nil {
		s.hub.Publish(snap)
	}
	return snap
}

func (s *Session) snapshot(u playback.Update) Snapshot {
	return Snapshot{
		RoomID:    s.ID,
		State:     s.machine.State(),
		Caption:   u.Caption,
		CueIndex:  u.CueIndex,
		SongTitle: s.song.Title,
		UpdatedAt: s.lastTouch,
	}
}
