package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tradescribe/internal/config"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/pipeline"
)

const whisperOutput = `{
  "language": "en",
  "segments": [
    {"text": " Use a 14 period RSI. ", "start": 0.0, "end": 3.2},
    {"text": "Enter when it crosses below 30.", "start": 3.2, "end": 6.85},
    {"text": "   ", "start": 6.85, "end": 7.0},
    {"text": "Set a stop loss at 2 percent.", "start": 7.0, "end": 9.4}
  ]
}`

func testService(t *testing.T, workDir string) *Service {
	t.Helper()
	cfg := config.Speech{Model: "large-v3-turbo", TimeoutSeconds: 30}
	return NewService(cfg, workDir, "yt-dlp", "ffmpeg", logging.NewNop())
}

func testSource() media.VideoSource {
	return media.VideoSource{ID: "dQw4w9WgXcQ", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
}

func TestAcquireTranscribes(t *testing.T) {
	workDir := t.TempDir()
	svc := testService(t, workDir)
	src := testSource()

	var commands []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		commands = append(commands, name)
		if name == UVXCommand {
			jsonPath := filepath.Join(workDir, src.ID, "audio.json")
			if err := os.WriteFile(jsonPath, []byte(whisperOutput), 0o644); err != nil {
				t.Fatalf("write whisper output: %v", err)
			}
		}
		return nil
	})

	transcript, err := svc.Acquire(context.Background(), src)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	wantCommands := []string{"yt-dlp", "ffmpeg", UVXCommand}
	if len(commands) != len(wantCommands) {
		t.Fatalf("commands = %v, want %v", commands, wantCommands)
	}
	for i, name := range wantCommands {
		if commands[i] != name {
			t.Fatalf("command %d = %q, want %q", i, commands[i], name)
		}
	}

	if transcript.Method != media.MethodSpeech {
		t.Fatalf("method = %q, want speech", transcript.Method)
	}
	if transcript.Language != "en" {
		t.Fatalf("language = %q, want en", transcript.Language)
	}
	if len(transcript.Segments) != 3 {
		t.Fatalf("segments = %d, want 3 (blank cue dropped)", len(transcript.Segments))
	}
	first := transcript.Segments[0]
	if first.StartMS != 0 || first.EndMS != 3200 {
		t.Fatalf("segment timing = (%d, %d), want (0, 3200)", first.StartMS, first.EndMS)
	}
	if first.Text != "Use a 14 period RSI." {
		t.Fatalf("segment text = %q", first.Text)
	}
	if err := transcript.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, err := os.Stat(filepath.Join(workDir, src.ID)); !os.IsNotExist(err) {
		t.Fatal("per-video work directory not cleaned up")
	}
}

func TestAcquireDownloadFailureIsTerminal(t *testing.T) {
	svc := testService(t, t.TempDir())
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name == "yt-dlp" {
			return errors.New("HTTP Error 403: Forbidden")
		}
		return nil
	})

	_, err := svc.Acquire(context.Background(), testSource())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, pipeline.ErrTranscriptionFailed) {
		t.Fatalf("error %v is not a transcription failure", err)
	}
	if errors.Is(err, pipeline.ErrCaptionsUnavailable) {
		t.Fatal("speech failure must not look recoverable to the coordinator")
	}
}

func TestAcquireEmptyWhisperOutput(t *testing.T) {
	workDir := t.TempDir()
	svc := testService(t, workDir)
	src := testSource()

	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name == UVXCommand {
			jsonPath := filepath.Join(workDir, src.ID, "audio.json")
			return os.WriteFile(jsonPath, []byte(`{"language": "en", "segments": []}`), 0o644)
		}
		return nil
	})

	_, err := svc.Acquire(context.Background(), src)
	if err == nil {
		t.Fatal("expected error for empty transcription")
	}
	if !errors.Is(err, pipeline.ErrTranscriptionFailed) {
		t.Fatalf("error %v is not a transcription failure", err)
	}
}

func TestAcquireMissingOutputFile(t *testing.T) {
	svc := testService(t, t.TempDir())
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})

	_, err := svc.Acquire(context.Background(), testSource())
	if err == nil {
		t.Fatal("expected error when whisperx wrote no output")
	}
	if !errors.Is(err, pipeline.ErrTranscriptionFailed) {
		t.Fatalf("error %v is not a transcription failure", err)
	}
}

func TestLoadTranscriptNormalizesTimings(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "audio.json")
	payload := `{
  "language": "en",
  "segments": [
    {"text": "second", "start": 2.0, "end": 5.0},
    {"text": "first", "start": 0.0, "end": 3.0},
    {"text": "duplicate", "start": 2.0, "end": 4.0}
  ]
}`
	if err := os.WriteFile(jsonPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	transcript, err := loadTranscript(jsonPath, testSource())
	if err != nil {
		t.Fatalf("loadTranscript: %v", err)
	}
	if err := transcript.Validate(); err != nil {
		t.Fatalf("normalized transcript invalid: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("segments = %d, want 2 after duplicate collapse", len(transcript.Segments))
	}
	if transcript.Segments[0].EndMS != 2000 {
		t.Fatalf("overlap not clamped: first segment ends at %d", transcript.Segments[0].EndMS)
	}
}

func TestBuildTranscribeArgsDeviceSelection(t *testing.T) {
	cpu := buildTranscribeArgs("", false, "audio.wav", "out")
	if !containsPair(cpu, "--device", CPUDevice) {
		t.Fatalf("cpu args missing device flag: %v", cpu)
	}
	if !containsPair(cpu, "--model", DefaultModel) {
		t.Fatalf("empty model did not default: %v", cpu)
	}

	cuda := buildTranscribeArgs("large-v3", true, "audio.wav", "out")
	if !containsPair(cuda, "--device", CUDADevice) {
		t.Fatalf("cuda args missing device flag: %v", cuda)
	}
	if !containsPair(cuda, "--index-url", CUDAIndexURL) {
		t.Fatalf("cuda args missing torch index: %v", cuda)
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
