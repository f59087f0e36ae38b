package specbuild

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"tradescribe/internal/extract"
	"tradescribe/internal/media"
)

func testTranscript() media.Transcript {
	return media.Transcript{
		Source:    media.VideoSource{ID: "dQw4w9WgXcQ"},
		Method:    media.MethodCaption,
		Language:  "en",
		Segments:  []media.Segment{{StartMS: 0, EndMS: 5000, Text: "strategy talk"}},
		FetchedAt: time.Now().UTC(),
	}
}

func concept(kind extract.Kind, name string, confidence float64, params map[string]float64) extract.Concept {
	return extract.Concept{Kind: kind, Name: name, Confidence: confidence, Parameters: params}
}

func TestBuildPartitionsByThreshold(t *testing.T) {
	transcript := testTranscript()
	concepts := []extract.Concept{
		concept(extract.KindIndicator, "rsi", 0.9, map[string]float64{"period": 14}),
		concept(extract.KindIndicator, "volume", 0.2, nil),
		concept(extract.KindTimeframe, "1h", 0.8, nil),
	}

	spec := NewBuilder(1e-6).Build(transcript.Source, transcript, concepts, 0.5)

	if got := len(spec.Concepts[extract.KindIndicator]); got != 1 {
		t.Fatalf("accepted indicators = %d, want 1", got)
	}
	if got := len(spec.Concepts[extract.KindTimeframe]); got != 1 {
		t.Fatalf("accepted timeframes = %d, want 1", got)
	}
	if len(spec.Unresolved) != 1 || spec.Unresolved[0].Name != "volume" {
		t.Fatalf("unresolved = %v, want the low-confidence volume mention", spec.Unresolved)
	}
	if spec.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not stamped")
	}
	if spec.Transcript.Method != media.MethodCaption || spec.Transcript.SegmentCount != 1 {
		t.Fatalf("transcript provenance = %+v", spec.Transcript)
	}
}

func TestBuildMergesRedundantDuplicates(t *testing.T) {
	transcript := testTranscript()
	concepts := []extract.Concept{
		concept(extract.KindIndicator, "rsi", 0.87, map[string]float64{"period": 14}),
		concept(extract.KindIndicator, "rsi", 0.57, nil),
		concept(extract.KindIndicator, "rsi", 0.6, map[string]float64{"period": 14.0000001}),
	}

	spec := NewBuilder(1e-3).Build(transcript.Source, transcript, concepts, 0.5)

	indicators := spec.Concepts[extract.KindIndicator]
	if len(indicators) != 1 {
		t.Fatalf("indicators = %v, want single merged rsi", indicators)
	}
	merged := indicators[0]
	if merged.Parameters["period"] != 14 {
		t.Fatalf("merged period = %v, want 14 from the richer mention", merged.Parameters["period"])
	}
	if merged.Confidence != 0.87 {
		t.Fatalf("merged confidence = %v, want the maximum 0.87", merged.Confidence)
	}
}

func TestBuildRetainsConflictingVariants(t *testing.T) {
	transcript := testTranscript()
	concepts := []extract.Concept{
		concept(extract.KindIndicator, "moving average", 0.74, map[string]float64{"period": 50}),
		concept(extract.KindIndicator, "moving average", 0.74, map[string]float64{"period": 20}),
	}

	spec := NewBuilder(1e-6).Build(transcript.Source, transcript, concepts, 0.5)

	indicators := spec.Concepts[extract.KindIndicator]
	if len(indicators) != 2 {
		t.Fatalf("indicators = %v, want both conflicting variants", indicators)
	}
	periods := []float64{indicators[0].Parameters["period"], indicators[1].Parameters["period"]}
	sort.Float64s(periods)
	if periods[0] != 20 || periods[1] != 50 {
		t.Fatalf("variant periods = %v, want [20 50]", periods)
	}
}

func TestBuildNeverPlacesIdentityOnBothSides(t *testing.T) {
	transcript := testTranscript()
	concepts := []extract.Concept{
		concept(extract.KindIndicator, "rsi", 0.9, map[string]float64{"period": 14}),
		concept(extract.KindIndicator, "rsi", 0.3, map[string]float64{"period": 7}),
		concept(extract.KindRiskParam, "stop loss", 0.4, map[string]float64{"stop_loss_pct": 2}),
		concept(extract.KindTimeframe, "1h", 0.8, nil),
		concept(extract.KindTimeframe, "1h", 0.8, nil),
	}

	spec := NewBuilder(1e-6).Build(transcript.Source, transcript, concepts, 0.5)

	identity := func(c extract.Concept) string {
		keys := make([]string, 0, len(c.Parameters))
		for k := range c.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		id := fmt.Sprintf("%s|%s", c.Kind, c.Name)
		for _, k := range keys {
			id += fmt.Sprintf("|%s=%v", k, c.Parameters[k])
		}
		return id
	}

	accepted := make(map[string]bool)
	for _, group := range spec.Concepts {
		for _, c := range group {
			accepted[identity(c)] = true
		}
	}
	for _, c := range spec.Unresolved {
		if accepted[identity(c)] {
			t.Fatalf("identity %q present in both concepts and unresolved", identity(c))
		}
	}
}

func TestBuildKeepsSubjectsDistinct(t *testing.T) {
	transcript := testTranscript()
	concepts := []extract.Concept{
		{Kind: extract.KindEntryRule, Name: "cross below", Subject: "rsi", Confidence: 0.8, Parameters: map[string]float64{"threshold": 30}},
		{Kind: extract.KindEntryRule, Name: "cross below", Subject: "stochastic", Confidence: 0.8, Parameters: map[string]float64{"threshold": 30}},
	}

	spec := NewBuilder(1e-6).Build(transcript.Source, transcript, concepts, 0.5)

	if got := len(spec.Concepts[extract.KindEntryRule]); got != 2 {
		t.Fatalf("entry rules = %d, want 2 (different subjects never merge)", got)
	}
}
