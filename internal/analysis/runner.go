package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tradescribe/internal/config"
	"tradescribe/internal/extract"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/metadata"
	"tradescribe/internal/notifications"
	"tradescribe/internal/pipeline"
	"tradescribe/internal/progress"
	"tradescribe/internal/specbuild"
)

// Acquirer obtains a transcript for a parsed source.
type Acquirer interface {
	Acquire(ctx context.Context, src media.VideoSource, forceRefresh bool) (media.Transcript, error)
}

// MetadataFetcher looks up display metadata for a source.
type MetadataFetcher interface {
	Fetch(ctx context.Context, src media.VideoSource) (metadata.Video, error)
}

// Result is the outcome of one successful analysis run.
type Result struct {
	RunID         string                  `json:"run_id"`
	Source        media.VideoSource       `json:"source"`
	Video         metadata.Video          `json:"video,omitempty"`
	Specification specbuild.Specification `json:"specification"`
	ArtifactPath  string                  `json:"artifact_path"`
	Duration      time.Duration           `json:"duration"`
}

// Runner drives a full pipeline run: parse, acquire, extract, build, persist.
type Runner struct {
	cfg       *config.Config
	acquirer  Acquirer
	extractor *extract.Extractor
	builder   *specbuild.Builder
	metadata  MetadataFetcher
	notifier  notifications.Service
	reporter  progress.Reporter
	logger    *slog.Logger
}

// NewRunner wires the pipeline components together. metadataFetcher may be
// nil when metadata retrieval is disabled.
func NewRunner(
	cfg *config.Config,
	acquirer Acquirer,
	extractor *extract.Extractor,
	builder *specbuild.Builder,
	metadataFetcher MetadataFetcher,
	notifier notifications.Service,
	reporter progress.Reporter,
	logger *slog.Logger,
) *Runner {
	if notifier == nil {
		notifier = notifications.NewService(config.Notifications{})
	}
	if reporter == nil {
		reporter = progress.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		acquirer:  acquirer,
		extractor: extractor,
		builder:   builder,
		metadata:  metadataFetcher,
		notifier:  notifier,
		reporter:  reporter,
		logger:    logging.NewComponentLogger(logger, "analysis"),
	}
}

// Analyze runs the pipeline for one video URL and returns the specification
// result. Metadata and notification failures are logged, never fatal; an
// acquisition failure ends the run with stage attribution intact.
func (r *Runner) Analyze(ctx context.Context, rawURL string, forceRefresh bool) (Result, error) {
	started := time.Now()

	src, err := media.ParseSource(rawURL)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	logger := r.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldVideoID, src.ID))
	logger.Info("analysis started", logging.Bool("force_refresh", forceRefresh))

	video := r.fetchMetadata(ctx, src, logger)
	title := video.Title
	if title == "" {
		title = src.ID
	}
	if err := r.notifier.NotifyAnalysisStarted(ctx, title); err != nil {
		logger.Warn("start notification failed", logging.Error(err))
	}

	transcript, err := r.acquirer.Acquire(ctx, src, forceRefresh)
	if err != nil {
		logger.Error("transcript acquisition failed",
			logging.String(logging.FieldStage, pipeline.FailedStage(err)),
			logging.Error(err))
		if notifyErr := r.notifier.NotifyAnalysisFailed(ctx, title, pipeline.FailedStage(err), err); notifyErr != nil {
			logger.Warn("failure notification failed", logging.Error(notifyErr))
		}
		return Result{}, err
	}

	r.reporter.Publish(progress.Event{
		Stage:   progress.StageExtracting,
		VideoID: src.ID,
		Message: fmt.Sprintf("scanning %d segments", len(transcript.Segments)),
	})
	concepts := r.extractor.Extract(transcript)

	r.reporter.Publish(progress.Event{
		Stage:   progress.StageBuilding,
		VideoID: src.ID,
		Message: fmt.Sprintf("reconciling %d candidate concepts", len(concepts)),
	})
	spec := r.builder.Build(src, transcript, concepts, r.cfg.Extraction.AcceptanceThreshold)

	artifactPath, err := r.persist(runID, src, video, transcript, spec)
	if err != nil {
		logger.Error("artifact write failed", logging.Error(err))
		return Result{}, err
	}

	r.reporter.Publish(progress.Event{
		Stage:   progress.StageComplete,
		VideoID: src.ID,
		Message: fmt.Sprintf("%d concepts, %d unresolved", spec.ConceptCount(), len(spec.Unresolved)),
	})
	logger.Info("analysis complete",
		logging.String("artifact", artifactPath),
		logging.Int("concepts", spec.ConceptCount()),
		logging.Int("unresolved", len(spec.Unresolved)),
		logging.Duration("elapsed", time.Since(started)))
	if err := r.notifier.NotifyAnalysisCompleted(ctx, title, spec.ConceptCount(), len(spec.Unresolved)); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}

	return Result{
		RunID:         runID,
		Source:        src,
		Video:         video,
		Specification: spec,
		ArtifactPath:  artifactPath,
		Duration:      time.Since(started),
	}, nil
}

func (r *Runner) fetchMetadata(ctx context.Context, src media.VideoSource, logger *slog.Logger) metadata.Video {
	if r.metadata == nil {
		return metadata.Video{}
	}
	video, err := r.metadata.Fetch(ctx, src)
	if err != nil {
		logging.WarnWithContext(logger, "metadata lookup failed", "metadata_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "report will be missing title and author"))
		return metadata.Video{}
	}
	return video
}

// artifact is the persisted analysis document.
type artifact struct {
	RunID         string                  `json:"run_id"`
	Source        media.VideoSource       `json:"source"`
	Video         metadata.Video          `json:"video,omitempty"`
	Method        media.Method            `json:"method"`
	Language      string                  `json:"language"`
	SegmentCount  int                     `json:"segment_count"`
	Specification specbuild.Specification `json:"specification"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

// persist writes the analysis artifact under the configured analysis
// directory. The write goes through a temp file and rename so a crashed run
// never leaves a truncated document.
func (r *Runner) persist(runID string, src media.VideoSource, video metadata.Video, transcript media.Transcript, spec specbuild.Specification) (string, error) {
	dir := r.cfg.Paths.AnalysisDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure analysis dir: %w", err)
	}

	doc := artifact{
		RunID:         runID,
		Source:        src,
		Video:         video,
		Method:        transcript.Method,
		Language:      transcript.Language,
		SegmentCount:  len(transcript.Segments),
		Specification: spec,
		GeneratedAt:   spec.GeneratedAt,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode analysis artifact: %w", err)
	}

	name := fmt.Sprintf("analysis_%s_%s.json", src.ID, spec.GeneratedAt.UTC().Format("20060102T150405Z"))
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write analysis artifact: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("finalize analysis artifact: %w", err)
	}
	return finalPath, nil
}
