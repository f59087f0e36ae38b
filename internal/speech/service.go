package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"tradescribe/internal/config"
	"tradescribe/internal/deps"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/pipeline"
)

// Service transcribes a video's audio track with WhisperX when no caption
// track exists. It downloads audio with yt-dlp, resamples with ffmpeg, and
// runs WhisperX through uvx so no Python environment management lands on the
// operator.
type Service struct {
	cfg          config.Speech
	workDir      string
	ytDlpBinary  string
	ffmpegBinary string
	runner       func(ctx context.Context, name string, args ...string) error
	logger       *slog.Logger
}

// NewService creates a speech transcription service rooted at workDir.
func NewService(cfg config.Speech, workDir, ytDlpBinary, ffmpegBinary string, logger *slog.Logger) *Service {
	if ytDlpBinary == "" {
		ytDlpBinary = YtDlpCommand
	}
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		workDir:      workDir,
		ytDlpBinary:  ytDlpBinary,
		ffmpegBinary: ffmpegBinary,
		logger:       logging.NewComponentLogger(logger, "speech"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.runner = runner
}

// Name identifies this strategy in progress events and error attribution.
func (s *Service) Name() string { return pipeline.StageSpeech }

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Acquire downloads the video's audio and transcribes it. Any failure along
// the way is terminal for the run: there is no further fallback behind this
// strategy.
func (s *Service) Acquire(ctx context.Context, src media.VideoSource) (media.Transcript, error) {
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "work_area", "create work directory", err)
	}
	if s.cfg.MinFreeSpaceGiB > 0 {
		status := deps.CheckFreeSpace("work area", s.workDir, float64(s.cfg.MinFreeSpaceGiB))
		if !status.Available {
			return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "work_area", status.Detail, nil)
		}
	}

	// One transcription at a time per work area, across processes. Audio
	// downloads and WhisperX both saturate their resources; overlapping runs
	// only slow each other down.
	unlock, err := s.lockWorkArea(ctx)
	if err != nil {
		return media.Transcript{}, err
	}
	defer unlock()

	videoDir := filepath.Join(s.workDir, src.ID)
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "work_area", "create video directory", err)
	}
	defer func() {
		if err := os.RemoveAll(videoDir); err != nil {
			logging.WarnWithContext(s.logger, "work area cleanup failed", "cleanup_failed",
				logging.String(logging.FieldVideoID, src.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale audio files remain in the work directory"))
		}
	}()

	downloadPath := filepath.Join(videoDir, "audio.source")
	s.logger.Info("downloading audio",
		logging.String(logging.FieldVideoID, src.ID))
	if err := s.run(ctx, s.ytDlpBinary, buildDownloadArgs(src.URL, downloadPath)...); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "download", "yt-dlp audio download", err)
	}

	wavPath := filepath.Join(videoDir, "audio.wav")
	if err := s.run(ctx, s.ffmpegBinary, buildResampleArgs(downloadPath, wavPath)...); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "resample", "ffmpeg resample", err)
	}

	s.logger.Info("transcribing audio",
		logging.String(logging.FieldVideoID, src.ID),
		logging.String("model", s.Model()),
		logging.Bool("cuda", s.cfg.CUDAEnabled))
	args := buildTranscribeArgs(s.cfg.Model, s.cfg.CUDAEnabled, wavPath, videoDir)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "transcribe", "whisperx", err)
	}

	jsonPath := filepath.Join(videoDir, "audio.json")
	transcript, err := loadTranscript(jsonPath, src)
	if err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "parse", "read whisperx output", err)
	}
	if err := transcript.Validate(); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "parse", "invalid transcript", err)
	}
	return transcript, nil
}

func (s *Service) lockWorkArea(ctx context.Context) (func(), error) {
	lock := flock.New(filepath.Join(s.workDir, ".transcribe.lock"))
	locked, err := lock.TryLockContext(ctx, 500*time.Millisecond)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "work_area", "acquire work area lock", err)
	}
	if !locked {
		return nil, pipeline.Wrap(pipeline.ErrTranscriptionFailed, pipeline.StageSpeech, "work_area", "work area lock unavailable", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("work area unlock failed", logging.Error(err))
		}
	}, nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX checkpoint loading. Force legacy behavior.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// whisperSegment is one transcribed span in WhisperX JSON output. Times are
// fractional seconds.
type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperPayload struct {
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

// loadTranscript reads WhisperX JSON output and normalizes it into the
// canonical transcript shape: millisecond timings, ordered, non-overlapping.
func loadTranscript(jsonPath string, src media.VideoSource) (media.Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return media.Transcript{}, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return media.Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	if len(payload.Segments) == 0 {
		return media.Transcript{}, fmt.Errorf("whisperx produced no segments")
	}

	segments := make([]media.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := int64(math.Round(seg.Start * 1000))
		end := int64(math.Round(seg.End * 1000))
		if end <= start {
			continue
		}
		segments = append(segments, media.Segment{StartMS: start, EndMS: end, Text: text})
	}
	if len(segments) == 0 {
		return media.Transcript{}, fmt.Errorf("whisperx produced no usable segments")
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].StartMS < segments[j].StartMS })
	cleaned := segments[:0]
	var prevStart int64 = -1
	for _, seg := range segments {
		if seg.StartMS == prevStart {
			continue
		}
		if n := len(cleaned); n > 0 && seg.StartMS < cleaned[n-1].EndMS {
			cleaned[n-1].EndMS = seg.StartMS
		}
		cleaned = append(cleaned, seg)
		prevStart = seg.StartMS
	}
	segments = cleaned

	language := strings.TrimSpace(payload.Language)
	if language == "" {
		language = "en"
	}
	return media.Transcript{
		Source:    src,
		Method:    media.MethodSpeech,
		Language:  language,
		Segments:  segments,
		FetchedAt: time.Now().UTC(),
	}, nil
}
