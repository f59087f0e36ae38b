package speech

// WhisperX invocation constants. Tuned for transcript fidelity over speed;
// sentence-level segment resolution keeps downstream concept evidence spans
// readable.
const (
	DefaultModel      = "large-v3-turbo"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	BeamSize          = "10"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	YtDlpCommand  = "yt-dlp"
	FFmpegCommand = "ffmpeg"
)

// buildDownloadArgs constructs the yt-dlp arguments that fetch the best
// available audio stream to dest without touching the video track.
func buildDownloadArgs(url, dest string) []string {
	return []string{
		"--quiet",
		"--no-playlist",
		"--format", "bestaudio/best",
		"--output", dest,
		url,
	}
}

// buildResampleArgs converts a downloaded audio file into the mono 16kHz WAV
// layout WhisperX expects.
func buildResampleArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// buildTranscribeArgs constructs the uvx command arguments for WhisperX.
func buildTranscribeArgs(model string, cudaEnabled bool, source, outputDir string) []string {
	args := make([]string, 0, 24)

	if cudaEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	if model == "" {
		model = DefaultModel
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	if cudaEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}
