package media

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Method records how a transcript was obtained.
type Method string

const (
	// MethodCaption marks transcripts built from the platform caption track.
	MethodCaption Method = "caption"
	// MethodSpeech marks transcripts produced by speech recognition.
	MethodSpeech Method = "speech"
)

// Valid reports whether the method is one of the known acquisition methods.
func (m Method) Valid() bool {
	return m == MethodCaption || m == MethodSpeech
}

// Segment is one time-aligned slice of transcript text.
type Segment struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Transcript is the normalized output of transcript acquisition. It is
// immutable once built; the cache owns the canonical copy after the first
// successful acquisition.
type Transcript struct {
	Source    VideoSource `json:"source"`
	Method    Method      `json:"method"`
	Language  string      `json:"language"`
	Segments  []Segment   `json:"segments"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// FullText joins segment texts in order with single spaces. The concatenation
// is derived, never stored, so it can always be reconstructed from Segments.
func (t Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks transcript invariants: a known method, and ordered,
// non-overlapping segments with monotonically increasing start times.
func (t Transcript) Validate() error {
	if strings.TrimSpace(t.Source.ID) == "" {
		return errors.New("transcript: source video ID required")
	}
	if !t.Method.Valid() {
		return fmt.Errorf("transcript: unknown method %q", t.Method)
	}
	var prevStart, prevEnd int64 = -1, 0
	for i, seg := range t.Segments {
		if seg.StartMS < 0 {
			return fmt.Errorf("transcript: segment %d has negative start", i)
		}
		if seg.EndMS < seg.StartMS {
			return fmt.Errorf("transcript: segment %d ends before it starts", i)
		}
		if seg.StartMS <= prevStart {
			return fmt.Errorf("transcript: segment %d start %dms does not advance past %dms", i, seg.StartMS, prevStart)
		}
		if seg.StartMS < prevEnd {
			return fmt.Errorf("transcript: segment %d overlaps previous segment", i)
		}
		prevStart = seg.StartMS
		prevEnd = seg.EndMS
	}
	return nil
}

var (
	bracketedCues = regexp.MustCompile(`\[[^\]]*\]`)
	musicMarkers  = regexp.MustCompile(`♪[^♪]*♪`)
	runsOfSpace   = regexp.MustCompile(`\s+`)
)

// CleanCaptionText strips non-speech caption noise ([Music], [Applause],
// ♪ lyric markers ♪) and collapses whitespace.
func CleanCaptionText(text string) string {
	text = bracketedCues.ReplaceAllString(text, "")
	text = musicMarkers.ReplaceAllString(text, "")
	return strings.TrimSpace(runsOfSpace.ReplaceAllString(text, " "))
}
