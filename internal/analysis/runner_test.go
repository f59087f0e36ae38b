package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"tradescribe/internal/config"
	"tradescribe/internal/extract"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/pipeline"
	"tradescribe/internal/progress"
	"tradescribe/internal/specbuild"
)

type fakeAcquirer struct {
	transcript media.Transcript
	err        error
	calls      int
}

func (f *fakeAcquirer) Acquire(ctx context.Context, src media.VideoSource, forceRefresh bool) (media.Transcript, error) {
	f.calls++
	if f.err != nil {
		return media.Transcript{}, f.err
	}
	t := f.transcript
	t.Source = src
	return t, nil
}

type recordingNotifier struct {
	started   []string
	completed []string
	failed    []string
}

func (r *recordingNotifier) NotifyAnalysisStarted(ctx context.Context, title string) error {
	r.started = append(r.started, title)
	return nil
}

func (r *recordingNotifier) NotifyAnalysisCompleted(ctx context.Context, title string, concepts, unresolved int) error {
	r.completed = append(r.completed, title)
	return nil
}

func (r *recordingNotifier) NotifyAnalysisFailed(ctx context.Context, title, stage string, cause error) error {
	r.failed = append(r.failed, stage)
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.AnalysisDir = t.TempDir()
	return &cfg
}

func strategyTranscript() media.Transcript {
	return media.Transcript{
		Method:   media.MethodCaption,
		Language: "en",
		Segments: []media.Segment{
			{StartMS: 0, EndMS: 4000, Text: "I use a 14 period RSI"},
			{StartMS: 4000, EndMS: 9000, Text: "enter when RSI crosses below 30 on the 1 hour chart"},
			{StartMS: 9000, EndMS: 12000, Text: "stop loss 2%"},
		},
		FetchedAt: time.Now().UTC(),
	}
}

func newTestRunner(cfg *config.Config, acquirer Acquirer, notifier *recordingNotifier, reporter progress.Reporter) *Runner {
	return NewRunner(
		cfg,
		acquirer,
		extract.New(cfg.Extraction),
		specbuild.NewBuilder(cfg.Extraction.ParameterTolerance),
		nil,
		notifier,
		reporter,
		logging.NewNop(),
	)
}

func TestAnalyzeProducesSpecificationAndArtifact(t *testing.T) {
	cfg := testConfig(t)
	acquirer := &fakeAcquirer{transcript: strategyTranscript()}
	notifier := &recordingNotifier{}
	hub := progress.NewHub(32)
	runner := newTestRunner(cfg, acquirer, notifier, hub)

	result, err := runner.Analyze(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("run ID not assigned")
	}
	if result.Source.ID != "dQw4w9WgXcQ" {
		t.Fatalf("source ID = %q", result.Source.ID)
	}
	if result.Specification.ConceptCount() == 0 {
		t.Fatal("no concepts accepted from a clear strategy description")
	}
	if _, ok := result.Specification.Concepts[extract.KindIndicator]; !ok {
		t.Fatalf("no indicators in %v", result.Specification.Concepts)
	}

	data, err := os.ReadFile(result.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var doc struct {
		RunID        string `json:"run_id"`
		Method       string `json:"method"`
		SegmentCount int    `json:"segment_count"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	if doc.RunID != result.RunID {
		t.Fatalf("artifact run ID = %q, want %q", doc.RunID, result.RunID)
	}
	if doc.Method != "caption" || doc.SegmentCount != 3 {
		t.Fatalf("artifact provenance = %+v", doc)
	}

	if len(notifier.started) != 1 || len(notifier.completed) != 1 || len(notifier.failed) != 0 {
		t.Fatalf("notifications = %+v", notifier)
	}

	var sawComplete bool
	for _, event := range hub.Snapshot() {
		if event.Stage == progress.StageComplete {
			sawComplete = true
		}
	}
	if !sawComplete {
		t.Fatal("no completion progress event published")
	}
}

func TestAnalyzeRejectsInvalidURL(t *testing.T) {
	cfg := testConfig(t)
	acquirer := &fakeAcquirer{transcript: strategyTranscript()}
	runner := newTestRunner(cfg, acquirer, &recordingNotifier{}, nil)

	_, err := runner.Analyze(context.Background(), "https://example.com/not-a-video", false)
	if !errors.Is(err, media.ErrInvalidSource) {
		t.Fatalf("error = %v, want ErrInvalidSource", err)
	}
	if acquirer.calls != 0 {
		t.Fatal("acquisition attempted for invalid URL")
	}
}

func TestAnalyzeSurfacesAcquisitionFailure(t *testing.T) {
	cfg := testConfig(t)
	acquirer := &fakeAcquirer{
		err: &pipeline.AcquisitionError{
			Stage:   pipeline.StageSpeech,
			Attempt: []string{pipeline.StageCaptions, pipeline.StageSpeech},
			Err:     pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "transcribe", "whisperx exited 1", nil),
		},
	}
	notifier := &recordingNotifier{}
	runner := newTestRunner(cfg, acquirer, notifier, nil)

	_, err := runner.Analyze(context.Background(), "https://youtu.be/dQw4w9WgXcQ", false)
	if !errors.Is(err, pipeline.ErrAcquisitionFailed) {
		t.Fatalf("error = %v, want acquisition failure", err)
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != pipeline.StageSpeech {
		t.Fatalf("failure notifications = %v, want stage speech", notifier.failed)
	}

	entries, readErr := os.ReadDir(cfg.Paths.AnalysisDir)
	if readErr != nil {
		t.Fatalf("read analysis dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("artifacts written on failed run: %v", entries)
	}
}
