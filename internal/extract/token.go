package extract

import (
	"strconv"
	"strings"

	"tradescribe/internal/media"
)

// token is one normalized word of transcript text. Each token remembers the
// segment it came from so matches can be traced back to the source video.
type token struct {
	text      string
	segment   int
	value     float64
	isNumber  bool
	isPercent bool
}

const tokenTrimSet = ".,;:!?()[]{}\"'“”‘’"

// tokenize flattens a transcript into a normalized token stream. Text is
// lowercased, surrounding punctuation stripped, and numeric tokens parsed;
// a trailing percent sign is folded into the token as a unit flag.
func tokenize(t media.Transcript) []token {
	var tokens []token
	for i, seg := range t.Segments {
		for _, field := range strings.Fields(seg.Text) {
			word := strings.Trim(strings.ToLower(field), tokenTrimSet)
			if word == "" {
				continue
			}
			tok := token{text: word, segment: i}
			numeric := word
			if strings.HasSuffix(numeric, "%") {
				numeric = strings.TrimSuffix(numeric, "%")
				tok.isPercent = true
			}
			if value, err := strconv.ParseFloat(numeric, 64); err == nil {
				tok.isNumber = true
				tok.value = value
				tok.text = numeric
			} else {
				tok.isPercent = false
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
