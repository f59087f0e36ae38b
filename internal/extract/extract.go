package extract

import (
	"math"
	"strings"

	"tradescribe/internal/config"
	"tradescribe/internal/media"
)

// Weights govern how a concept's confidence score is assembled. They are
// policy, not behavior: the acceptance scenarios hold across a range of
// sensible values, so operators may tune them without code changes.
type Weights struct {
	Lexical              float64
	Completeness         float64
	Repetition           float64
	ContradictionPenalty float64
}

// Extractor scans transcripts against the domain lexicon.
type Extractor struct {
	lexicon   []LexiconEntry
	weights   Weights
	window    int
	tolerance float64
}

// New builds an extractor from the extraction configuration.
func New(cfg config.Extraction) *Extractor {
	return &Extractor{
		lexicon: defaultLexicon(),
		weights: Weights{
			Lexical:              cfg.LexicalWeight,
			Completeness:         cfg.CompletenessWeight,
			Repetition:           cfg.RepetitionWeight,
			ContradictionPenalty: cfg.ContradictionPenalty,
		},
		window:    cfg.TokenWindow,
		tolerance: cfg.ParameterTolerance,
	}
}

// match is one alias hit before scoring.
type match struct {
	entry    *LexiconEntry
	strength float64
	start    int // first token of the phrase
	end      int // last token of the phrase, inclusive
}

// Extract scans the transcript and returns candidate concepts in first
// occurrence order. It never fails: an empty transcript, or one with no
// recognizable vocabulary, yields an empty slice. No deduplication happens
// here; reconciling repeated or conflicting mentions is the builder's job.
func (e *Extractor) Extract(t media.Transcript) []Concept {
	tokens := tokenize(t)
	if len(tokens) == 0 {
		return nil
	}

	matches := e.scan(tokens)
	if len(matches) == 0 {
		return nil
	}

	mentions := make(map[string]int, len(matches))
	for _, m := range matches {
		mentions[m.entry.Canonical]++
	}

	concepts := make([]Concept, 0, len(matches))
	for _, m := range matches {
		concepts = append(concepts, e.buildConcept(tokens, m, mentions[m.entry.Canonical]))
	}
	e.applyContradictionPenalty(concepts)
	return concepts
}

// scan walks the token stream and records the longest alias hit per lexicon
// entry at each position. Matches for different entries may overlap; a single
// entry never rematches inside its own phrase.
func (e *Extractor) scan(tokens []token) []match {
	var matches []match
	nextAllowed := make([]int, len(e.lexicon))
	for i := range tokens {
		for li := range e.lexicon {
			if i < nextAllowed[li] {
				continue
			}
			entry := &e.lexicon[li]
			bestLen, bestStrength := 0, 0.0
			for _, a := range entry.Aliases {
				words := phraseWords(a.Phrase)
				if len(words) <= bestLen {
					continue
				}
				if matchesAt(tokens, i, words) {
					bestLen, bestStrength = len(words), a.Strength
				}
			}
			if bestLen == 0 {
				continue
			}
			matches = append(matches, match{
				entry:    entry,
				strength: bestStrength,
				start:    i,
				end:      i + bestLen - 1,
			})
			nextAllowed[li] = i + bestLen
		}
	}
	return matches
}

func (e *Extractor) buildConcept(tokens []token, m match, mentionCount int) Concept {
	params := make(map[string]float64, len(m.entry.Params))
	evidenceFirst := tokens[m.start].segment
	evidenceLast := tokens[m.end].segment
	for _, rule := range m.entry.Params {
		value, at, ok := e.findParam(tokens, m, rule)
		if !ok {
			continue
		}
		params[rule.Key] = value
		if seg := tokens[at].segment; seg < evidenceFirst {
			evidenceFirst = seg
		} else if seg > evidenceLast {
			evidenceLast = seg
		}
	}

	coverage := 1.0
	if len(m.entry.Params) > 0 {
		coverage = float64(len(params)) / float64(len(m.entry.Params))
	}
	repetition := math.Min(1, float64(mentionCount-1)/3)
	confidence := clamp01(e.weights.Lexical*m.strength +
		e.weights.Completeness*coverage +
		e.weights.Repetition*repetition)

	kind := m.entry.Kind
	var subject string
	if m.entry.DynamicKind {
		kind = e.resolveRuleKind(tokens, m)
		subject = e.findSubject(tokens, m)
	}

	if len(params) == 0 {
		params = nil
	}
	return Concept{
		Kind:       kind,
		Name:       m.entry.Canonical,
		Subject:    subject,
		Parameters: params,
		Confidence: confidence,
		Evidence:   EvidenceSpan{FirstSegment: evidenceFirst, LastSegment: evidenceLast},
	}
}

// findParam attributes the closest qualifying number within the token window
// to the match, honoring the rule's direction and unit constraints.
func (e *Extractor) findParam(tokens []token, m match, rule ParamRule) (float64, int, bool) {
	switch rule.Direction {
	case paramBefore:
		limit := m.start - e.window
		if limit < 0 {
			limit = 0
		}
		for j := m.start - 1; j >= limit; j-- {
			if !tokens[j].isNumber {
				continue
			}
			if gapIsUnits(tokens[j+1:m.start], rule.Units) {
				return tokens[j].value, j, true
			}
		}
	case paramAfter:
		limit := m.end + e.window
		if limit > len(tokens)-1 {
			limit = len(tokens) - 1
		}
		for j := m.end + 1; j <= limit; j++ {
			if !tokens[j].isNumber {
				continue
			}
			if rule.Percent && !isPercentAt(tokens, j) {
				continue
			}
			return tokens[j].value, j, true
		}
	}
	return 0, 0, false
}

// resolveRuleKind decides entry versus exit for directional rule matches by
// the nearest trigger word before the phrase. Unqualified crosses read as
// entries, matching how strategy narration defaults.
func (e *Extractor) resolveRuleKind(tokens []token, m match) Kind {
	limit := m.start - e.window
	if limit < 0 {
		limit = 0
	}
	for j := m.start - 1; j >= limit; j-- {
		if exitTriggers[tokens[j].text] {
			return KindExitRule
		}
		if entryTriggers[tokens[j].text] {
			return KindEntryRule
		}
	}
	return KindEntryRule
}

// findSubject locates the nearest preceding indicator mention so a rule like
// "RSI crosses below 30" records what it operates on.
func (e *Extractor) findSubject(tokens []token, m match) string {
	limit := m.start - e.window
	if limit < 0 {
		limit = 0
	}
	for j := m.start - 1; j >= limit; j-- {
		for li := range e.lexicon {
			entry := &e.lexicon[li]
			if entry.Kind != KindIndicator {
				continue
			}
			for _, a := range entry.Aliases {
				words := phraseWords(a.Phrase)
				if j+len(words)-1 < m.start && matchesAt(tokens, j, words) {
					return entry.Canonical
				}
			}
		}
	}
	return ""
}

// applyContradictionPenalty downgrades groups of same-named concepts whose
// shared parameter keys disagree beyond tolerance. Both variants stay in the
// output so the builder can surface the conflict instead of guessing.
func (e *Extractor) applyContradictionPenalty(concepts []Concept) {
	type groupKey struct {
		kind Kind
		name string
	}
	groups := make(map[groupKey][]int)
	for i, c := range concepts {
		key := groupKey{c.Kind, c.Name}
		groups[key] = append(groups[key], i)
	}
	for _, indices := range groups {
		if len(indices) < 2 {
			continue
		}
		if !e.groupContradicts(concepts, indices) {
			continue
		}
		for _, i := range indices {
			concepts[i].Confidence = clamp01(concepts[i].Confidence * (1 - e.weights.ContradictionPenalty))
		}
	}
}

func (e *Extractor) groupContradicts(concepts []Concept, indices []int) bool {
	for a := 0; a < len(indices); a++ {
		for b := a + 1; b < len(indices); b++ {
			ca, cb := concepts[indices[a]], concepts[indices[b]]
			for key, va := range ca.Parameters {
				if vb, ok := cb.Parameters[key]; ok && math.Abs(va-vb) > e.tolerance {
					return true
				}
			}
		}
	}
	return false
}

func matchesAt(tokens []token, i int, words []string) bool {
	if i+len(words) > len(tokens) {
		return false
	}
	for k, word := range words {
		if tokens[i+k].text != word {
			return false
		}
	}
	return true
}

// gapIsUnits reports whether every token between a number and its match is a
// recognized unit word. An empty gap qualifies, covering shapes like "20 EMA".
func gapIsUnits(gap []token, units []string) bool {
	for _, tok := range gap {
		found := false
		for _, unit := range units {
			if tok.text == unit {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// isPercentAt accepts "2%" as well as "2 percent".
func isPercentAt(tokens []token, i int) bool {
	if tokens[i].isPercent {
		return true
	}
	if i+1 < len(tokens) {
		next := tokens[i+1].text
		return next == "percent" || next == "percentage"
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func phraseWords(phrase string) []string {
	return strings.Fields(phrase)
}
