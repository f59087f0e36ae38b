package extract

// Kind classifies what a concept contributes to a trading strategy.
type Kind string

const (
	KindIndicator Kind = "INDICATOR"
	KindEntryRule Kind = "ENTRY_RULE"
	KindExitRule  Kind = "EXIT_RULE"
	KindRiskParam Kind = "RISK_PARAM"
	KindTimeframe Kind = "TIMEFRAME"
)

// EvidenceSpan points back at the transcript segments a concept was matched
// in, inclusive on both ends.
type EvidenceSpan struct {
	FirstSegment int `json:"first_segment"`
	LastSegment  int `json:"last_segment"`
}

// Concept is one extracted strategy element. Concepts are immutable once
// created; a corrected reading of the transcript produces a new concept
// rather than editing an existing one.
type Concept struct {
	Kind Kind `json:"kind"`
	// Name is the canonical lexicon name, lowercased.
	Name string `json:"name"`
	// Subject names the indicator a rule concept operates on, when one was
	// found near the match. Empty for concepts that stand alone.
	Subject string `json:"subject,omitempty"`
	// Parameters carry explicit unit keys ("period", "threshold",
	// "stop_loss_pct") so the downstream consumer never guesses units.
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Confidence float64            `json:"confidence"`
	Evidence   EvidenceSpan       `json:"evidence"`
}
