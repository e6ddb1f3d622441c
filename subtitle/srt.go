// Package subtitle parses SRT documents into ordered cue sequences for
// the playback engine.
package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"paroles/model"
)

// Warning records one malformed block that was skipped. Block is the
// 1-based position of the block in the source document.
type Warning struct {
	Block  int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("block %d: %s", w.Block, w.Reason)
}

var (
	blockSplitRe = regexp.MustCompile(`\n\s*\n`)
	timestampRe  = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
)

// Parse reads an SRT document and returns its cues sorted by start time.
// Malformed blocks are skipped and reported as warnings, never as errors;
// playback degrades instead of refusing to start. Sequence numbers are
// ignored, the timestamp line may sit anywhere in a block, and both the
// comma and the dot millisecond separators are accepted.
func Parse(r io.Reader) ([]model.Cue, []Warning, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read subtitle document: %w", err)
	}
	return parseContent(decode(raw))
}

// decode normalizes the raw document to UTF-8 text: BOM stripped, CRLF
// folded, Latin-1 fallback for legacy files.
func decode(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		if decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder())); err == nil {
			raw = decoded
		}
	}
	return strings.ReplaceAll(string(raw), "\r\n", "\n")
}

func parseContent(content string) ([]model.Cue, []Warning, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, nil
	}

	var (
		cues     []model.Cue
		warnings []Warning
	)
	for i, block := range blockSplitRe.Split(content, -1) {
		blockNo := i + 1
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			warnings = append(warnings, Warning{Block: blockNo, Reason: "missing timestamp line"})
			continue
		}

		var (
			timestampLine string
			textLines     []string
		)
		for j, line := range lines {
			if strings.Contains(line, "-->") {
				timestampLine = line
				textLines = lines[j+1:]
				break
			}
		}
		if timestampLine == "" {
			warnings = append(warnings, Warning{Block: blockNo, Reason: "missing timestamp line"})
			continue
		}

		match := timestampRe.FindStringSubmatch(strings.TrimSpace(timestampLine))
		if match == nil {
			warnings = append(warnings, Warning{Block: blockNo, Reason: "unparsable timestamp"})
			continue
		}
		start := timestampSeconds(match[1], match[2], match[3], match[4])
		end := timestampSeconds(match[5], match[6], match[7], match[8])
		if start >= end {
			warnings = append(warnings, Warning{Block: blockNo, Reason: "start not before end"})
			continue
		}

		text := strings.TrimSpace(tagRe.ReplaceAllString(strings.Join(textLines, " "), ""))
		if text == "" {
			warnings = append(warnings, Warning{Block: blockNo, Reason: "empty text"})
			continue
		}

		cues = append(cues, model.Cue{StartSeconds: start, EndSeconds: end, Text: text})
	}

	model.SortCues(cues)
	return cues, warnings, nil
}

// timestampSeconds converts h:mm:ss,mmm parts to seconds, rounded to the
// millisecond.
func timestampSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	total := float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
	return math.Round(total*1000) / 1000
}

// Format renders cues in canonical SRT form: 1-based sequence numbers and
// comma millisecond separators. Parsing the output yields the same
// ordered sequence back.
func Format(cues []model.Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatTimestamp(c.StartSeconds), formatTimestamp(c.EndSeconds), c.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	totalMillis := int64(math.Round(seconds * 1000))
	if totalMillis < 0 {
		totalMillis = 0
	}
	h := totalMillis / 3600000
	m := totalMillis % 3600000 / 60000
	s := totalMillis % 60000 / 1000
	ms := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
