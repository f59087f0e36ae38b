package media

import (
	"strings"
	"testing"
	"time"
)

func sampleTranscript() Transcript {
	return Transcript{
		Source:   VideoSource{ID: "dQw4w9WgXcQ", URL: "https://youtu.be/dQw4w9WgXcQ"},
		Method:   MethodCaption,
		Language: "en",
		Segments: []Segment{
			{StartMS: 0, EndMS: 2000, Text: "I use a 14 period RSI,"},
			{StartMS: 2000, EndMS: 5000, Text: "enter when RSI crosses below 30"},
			{StartMS: 5000, EndMS: 7000, Text: "on the 1 hour chart"},
		},
		FetchedAt: time.Now().UTC(),
	}
}

func TestFullTextRoundTrip(t *testing.T) {
	tr := sampleTranscript()

	var parts []string
	for _, seg := range tr.Segments {
		parts = append(parts, seg.Text)
	}
	want := strings.Join(parts, " ")

	if got := tr.FullText(); got != want {
		t.Errorf("FullText mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFullTextSkipsEmptySegments(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{StartMS: 0, EndMS: 1000, Text: "hello"},
		{StartMS: 1000, EndMS: 2000, Text: "   "},
		{StartMS: 2000, EndMS: 3000, Text: "world"},
	}}
	if got := tr.FullText(); got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestValidateAcceptsOrderedSegments(t *testing.T) {
	if err := sampleTranscript().Validate(); err != nil {
		t.Fatalf("Validate failed on well-formed transcript: %v", err)
	}
}

func TestValidateRejectsDisorder(t *testing.T) {
	tr := sampleTranscript()
	tr.Segments[2].StartMS = 1000 // regresses behind segment 1
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate should reject out-of-order segments")
	}

	tr = sampleTranscript()
	tr.Segments[1].EndMS = 500
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate should reject a segment that ends before it starts")
	}

	tr = sampleTranscript()
	tr.Method = Method("telepathy")
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate should reject unknown methods")
	}
}

func TestCleanCaptionText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"[Music] welcome back traders", "welcome back traders"},
		{"the RSI ♪ dramatic sting ♪ just crossed", "the RSI just crossed"},
		{"  lots   of\n whitespace ", "lots of whitespace"},
		{"[Applause]", ""},
	}
	for _, tc := range cases {
		if got := CleanCaptionText(tc.in); got != tc.want {
			t.Errorf("CleanCaptionText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
