package model

import "sort"

// Cue is one timed lyric fragment of a song.
type Cue struct {
	StartSeconds float64 `json:"start"`
	EndSeconds   float64 `json:"end"`
	Text         string  `json:"text"`
}

// Contains reports whether the clock position falls inside the cue
// interval. The start bound is inclusive, the end bound exclusive.
func (c Cue) Contains(clockSeconds float64) bool {
	return clockSeconds >= c.StartSeconds && clockSeconds < c.EndSeconds
}

// SortCues orders cues by start time ascending. The sort is stable so
// blocks sharing a start keep their input order.
func SortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].StartSeconds < cues[j].StartSeconds
	})
}

// LastCueEnd returns the largest end time in the sequence, which stands in
// for the song duration when no explicit one is configured. Zero for an
// empty sequence.
func LastCueEnd(cues []Cue) float64 {
	var end float64
	for _, c := range cues {
		if c.EndSeconds > end {
			end = c.EndSeconds
		}
	}
	return end
}

// ShiftCues returns a copy of the sequence with every timestamp moved by
// offset seconds. Starts never shift below zero.
func ShiftCues(cues []Cue, offset float64) []Cue {
	if offset == 0 {
		return cues
	}
	shifted := make([]Cue, len(cues))
	for i, c := range cues {
		start := c.StartSeconds + offset
		end := c.EndSeconds + offset
		if start < 0 {
			start = 0
		}
		if end <= start {
			end = start + 0.001
		}
		shifted[i] = Cue{StartSeconds: start, EndSeconds: end, Text: c.Text}
	}
	return shifted
}
