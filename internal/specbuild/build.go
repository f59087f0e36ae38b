package specbuild

import (
	"math"
	"strings"
	"time"

	"tradescribe/internal/extract"
	"tradescribe/internal/media"
)

// TranscriptRef carries the provenance of the transcript a specification was
// built from, without embedding the full segment data.
type TranscriptRef struct {
	Method       media.Method `json:"method"`
	Language     string       `json:"language"`
	SegmentCount int          `json:"segment_count"`
}

// Specification is the terminal artifact of a pipeline run: the reconciled,
// confidence-partitioned concepts for one video, ready for the external
// code-generation consumer.
type Specification struct {
	Source      media.VideoSource                 `json:"source"`
	Transcript  TranscriptRef                     `json:"transcript"`
	Concepts    map[extract.Kind][]extract.Concept `json:"concepts"`
	Unresolved  []extract.Concept                 `json:"unresolved"`
	GeneratedAt time.Time                         `json:"generated_at"`
}

// ConceptCount returns the number of accepted concepts across all kinds.
func (s Specification) ConceptCount() int {
	total := 0
	for _, group := range s.Concepts {
		total += len(group)
	}
	return total
}

// Builder reconciles extracted concepts into a specification.
type Builder struct {
	tolerance float64
}

// NewBuilder returns a builder using the given numeric tolerance for
// parameter equality.
func NewBuilder(tolerance float64) *Builder {
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	return &Builder{tolerance: tolerance}
}

// Build groups concepts by identity, merges redundant duplicates, retains
// genuinely conflicting variants, and partitions the result by the acceptance
// threshold. It never lowers a concept's confidence and never invents
// parameters; ambiguity stays visible in the output instead of being resolved
// by guessing.
func (b *Builder) Build(source media.VideoSource, transcript media.Transcript, concepts []extract.Concept, threshold float64) Specification {
	spec := Specification{
		Source: source,
		Transcript: TranscriptRef{
			Method:       transcript.Method,
			Language:     transcript.Language,
			SegmentCount: len(transcript.Segments),
		},
		Concepts:    make(map[extract.Kind][]extract.Concept),
		GeneratedAt: time.Now().UTC(),
	}

	merged := b.reconcile(concepts)
	for _, c := range merged {
		if c.Confidence >= threshold {
			spec.Concepts[c.Kind] = append(spec.Concepts[c.Kind], c)
		} else {
			spec.Unresolved = append(spec.Unresolved, c)
		}
	}
	return spec
}

type groupKey struct {
	kind    extract.Kind
	name    string
	subject string
}

// reconcile merges duplicate mentions of one concept while preserving first
// occurrence order. A mention whose parameters agree with an existing variant
// (equal within tolerance on every shared key) folds into it, keeping the
// richer parameter set and the higher confidence. Mentions that disagree
// beyond tolerance stay as separate variants.
func (b *Builder) reconcile(concepts []extract.Concept) []extract.Concept {
	var order []extract.Concept
	variantIndex := make(map[groupKey][]int)

	for _, c := range concepts {
		key := groupKey{
			kind:    c.Kind,
			name:    strings.ToLower(strings.TrimSpace(c.Name)),
			subject: strings.ToLower(strings.TrimSpace(c.Subject)),
		}
		mergedInto := -1
		for _, idx := range variantIndex[key] {
			if b.compatible(order[idx], c) {
				order[idx] = b.merge(order[idx], c)
				mergedInto = idx
				break
			}
		}
		if mergedInto < 0 {
			order = append(order, c)
			variantIndex[key] = append(variantIndex[key], len(order)-1)
		}
	}
	return order
}

// compatible reports whether two mentions describe the same configuration:
// every parameter key they share must agree within tolerance.
func (b *Builder) compatible(a, c extract.Concept) bool {
	for key, va := range a.Parameters {
		if vc, ok := c.Parameters[key]; ok && math.Abs(va-vc) > b.tolerance {
			return false
		}
	}
	return true
}

// merge folds mention c into the kept variant a. The variant with more
// parameters wins the parameter set; confidence only ever goes up.
func (b *Builder) merge(a, c extract.Concept) extract.Concept {
	kept := a
	if len(c.Parameters) > len(a.Parameters) {
		kept = c
	}
	if a.Confidence > kept.Confidence {
		kept.Confidence = a.Confidence
	}
	if c.Confidence > kept.Confidence {
		kept.Confidence = c.Confidence
	}
	if a.Evidence.FirstSegment < kept.Evidence.FirstSegment {
		kept.Evidence.FirstSegment = a.Evidence.FirstSegment
	}
	if c.Evidence.LastSegment > kept.Evidence.LastSegment {
		kept.Evidence.LastSegment = c.Evidence.LastSegment
	}
	return kept
}
