package model

// PlaybackPhase is the cut-point state machine phase of a play session.
type PlaybackPhase string

const (
	// PhasePlaying is the initial phase, captions follow the clock.
	PhasePlaying PlaybackPhase = "playing"
	// PhaseCutoffWaiting is entered when the clock reaches the cut point.
	// Every caption is suppressed until the host reveals.
	PhaseCutoffWaiting PlaybackPhase = "cutoff_waiting"
	// PhaseRevealed restores caption display after the cut.
	PhaseRevealed PlaybackPhase = "revealed"
	// PhaseEnded is terminal; only a reset leaves it.
	PhaseEnded PlaybackPhase = "ended"
)

// PlaybackState is the authoritative per-session playback position. It is
// owned by exactly one session and only ever published as a copy.
type PlaybackState struct {
	SongID               string        `json:"songId"`
	ClockSeconds         float64       `json:"clockSeconds"`
	Phase                PlaybackPhase `json:"phase"`
	LastRevealedCueIndex int           `json:"lastRevealedCueIndex"` // -1 until a caption has been shown
}
