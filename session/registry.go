package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"paroles/catalog"
	"paroles/logger"
	"paroles/model"
)

// Room lifecycle thresholds.
const (
	sessionExpiry   = 2 * time.Hour
	activeThreshold = 30 * time.Second
)

// Clock abstracts time so expiry is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Registry tracks the live sessions by room id and expires the idle ones.
type Registry struct {
	hub   *Hub
	clock Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry broadcasting through hub. A nil hub is
// allowed; sessions then serve direct callers only.
func NewRegistry(hub *Hub) *Registry {
	return NewRegistryWithClock(hub, realClock{})
}

// NewRegistryWithClock injects the time source.
func NewRegistryWithClock(hub *Hub, clk Clock) *Registry {
	return &Registry{
		hub:      hub,
		clock:    clk,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for the room, replacing any session already
// registered under the id. An empty or unusable id gets a generated one.
func (r *Registry) Open(id string, song model.Song, cues []model.Cue) *Session {
	roomID := catalog.SlugID(id)
	if roomID == "" {
		roomID = uuid.NewString()
	}
	s := newSession(roomID, song, cues, r.hub, r.clock)

	r.mu.Lock()
	r.prune()
	r.sessions[roomID] = s
	r.mu.Unlock()

	logger.Info("session opened",
		logger.String("room", roomID),
		logger.String("song", song.ID),
	)
	return s
}

// Get returns the live session for the id. Expired sessions count as
// absent and are removed on the way.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.expired(s) {
		delete(r.sessions, id)
		logger.Info("session expired", logger.String("room", id))
		return nil, false
	}
	return s, true
}

// List returns the live sessions sorted by room id, pruning expired ones.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveCount reports the sessions touched within the activity threshold.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	now := r.clock.Now()
	count := 0
	for _, s := range r.sessions {
		if now.Sub(s.LastActive()) <= activeThreshold {
			count++
		}
	}
	return count
}

// Close stops and removes a session. False when the id is unknown.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Stop()
	logger.Info("session closed", logger.String("room", id))
	return true
}

// Janitor prunes expired sessions periodically until the context ends.
// List and Get already prune; this keeps a quiet registry from hoarding
// long-dead rooms.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			r.prune()
			r.mu.Unlock()
		}
	}
}

// prune removes expired sessions. Callers hold r.mu.
func (r *Registry) prune() {
	for id, s := range r.sessions {
		if r.expired(s) {
			delete(r.sessions, id)
			logger.Info("session expired", logger.String("room", id))
		}
	}
}

func (r *Registry) expired(s *Session) bool {
	return r.clock.Now().Sub(s.LastActive()) > sessionExpiry
}
