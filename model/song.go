package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Difficulty levels accepted in a song config. Advisory only, the game
// engine does not branch on them.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Song represents one playable entry of the catalog.
type Song struct {
	ID                    string   `json:"id"`
	Title                 string   `json:"title"`
	Artist                string   `json:"artist"`
	VideoRef              string   `json:"videoRef,omitempty"`    // public URL or relative path, empty when the song has no video
	SubtitleRef           string   `json:"subtitleRef,omitempty"` // public URL or relative path of the subtitle document
	HasVideo              bool     `json:"hasVideo"`
	CutPointSeconds       *float64 `json:"cutPointSeconds"` // nil = no cut, full playthrough
	DurationSeconds       *float64 `json:"durationSeconds"` // advisory; derived from the last cue end when nil
	Difficulty            string   `json:"difficulty"`
	SubtitleOffsetSeconds float64  `json:"subtitleOffsetSeconds,omitempty"` // shift applied to cue times at load
}

// SongConfig is the config.json document stored next to a song's assets.
// Unknown keys are tolerated so hand-edited files keep working.
type SongConfig struct {
	Title                 string   `json:"title"`
	Artist                string   `json:"artist"`
	CutPointSeconds       *float64 `json:"cutPointSeconds"`
	DurationSeconds       *float64 `json:"durationSeconds"`
	Difficulty            string   `json:"difficulty,omitempty"`
	SubtitleOffsetSeconds float64  `json:"subtitleOffsetSeconds,omitempty"`
}

// ValidationError reports a config field that failed schema validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// ParseSongConfig decodes and validates a config.json document. The raw
// document never crosses this boundary untyped.
func ParseSongConfig(data []byte) (*SongConfig, error) {
	var cfg SongConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ValidationError{Field: "config", Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config against the schema. It returns a
// *ValidationError naming the first offending field.
func (c *SongConfig) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Artist) == "" {
		return &ValidationError{Field: "artist", Reason: "must not be empty"}
	}
	if c.CutPointSeconds != nil && *c.CutPointSeconds < 0 {
		return &ValidationError{Field: "cutPointSeconds", Reason: "must be >= 0"}
	}
	if c.DurationSeconds != nil && *c.DurationSeconds <= 0 {
		return &ValidationError{Field: "durationSeconds", Reason: "must be > 0"}
	}
	if c.CutPointSeconds != nil && c.DurationSeconds != nil && *c.CutPointSeconds > *c.DurationSeconds {
		return &ValidationError{Field: "cutPointSeconds", Reason: "must not exceed durationSeconds"}
	}
	switch c.Difficulty {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return &ValidationError{Field: "difficulty", Reason: "must be easy, medium or hard"}
	}
	return nil
}

// DefaultSongConfig builds the fallback config for a song that ships
// without a config.json: the title is derived from the id and the artist
// is a placeholder.
func DefaultSongConfig(id string) *SongConfig {
	return &SongConfig{
		Title:      TitleFromID(id),
		Artist:     "Artiste inconnu",
		Difficulty: DifficultyMedium,
	}
}

var titleCaser = cases.Title(language.Und)

// TitleFromID turns a slug like "ne-me-quitte-pas" into "Ne Me Quitte Pas".
func TitleFromID(id string) string {
	s := strings.ReplaceAll(id, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return titleCaser.String(strings.TrimSpace(s))
}
