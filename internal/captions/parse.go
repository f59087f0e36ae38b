package captions

import (
	"encoding/xml"
	"fmt"
	"html"
	"math"
	"sort"

	"tradescribe/internal/media"
)

// Track describes one published caption track.
type Track struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
	Kind     string `xml:"kind,attr"` // "asr" for auto-generated tracks
}

type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []Track  `xml:"track"`
}

type captionDoc struct {
	XMLName xml.Name      `xml:"transcript"`
	Texts   []captionText `xml:"text"`
}

type captionText struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Value string  `xml:",chardata"`
}

func parseTrackList(body []byte) ([]Track, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse track list: %w", err)
	}
	return list.Tracks, nil
}

// parseTrack converts a caption XML payload into ordered, non-overlapping
// segments. Cue noise is stripped and empty cues dropped; overlapping cue
// timings (common in auto-generated tracks) are clamped so the transcript
// invariants hold.
func parseTrack(body []byte) ([]media.Segment, error) {
	var doc captionDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse captions: %w", err)
	}

	segments := make([]media.Segment, 0, len(doc.Texts))
	for _, cue := range doc.Texts {
		text := media.CleanCaptionText(html.UnescapeString(cue.Value))
		if text == "" {
			continue
		}
		start := int64(math.Round(cue.Start * 1000))
		end := start + int64(math.Round(cue.Dur*1000))
		if end < start {
			end = start
		}
		segments = append(segments, media.Segment{StartMS: start, EndMS: end, Text: text})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartMS < segments[j].StartMS
	})

	// Clamp overlaps and collapse duplicate starts.
	cleaned := segments[:0]
	var prevStart, prevEnd int64 = -1, 0
	for _, seg := range segments {
		if seg.StartMS == prevStart {
			continue
		}
		if seg.StartMS < prevEnd {
			if len(cleaned) > 0 {
				cleaned[len(cleaned)-1].EndMS = seg.StartMS
			}
		}
		cleaned = append(cleaned, seg)
		prevStart = seg.StartMS
		prevEnd = seg.EndMS
	}
	return cleaned, nil
}
