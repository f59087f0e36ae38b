package config

const (
	defaultCacheDir    = "~/.local/share/tradescribe/cache"
	defaultAnalysisDir = "~/.local/share/tradescribe/analysis"
	defaultLogDir      = "~/.local/share/tradescribe/logs"
	defaultWorkDir     = "~/.local/share/tradescribe/work"

	defaultCaptionsBaseURL   = "https://video.google.com/timedtext"
	defaultCaptionsTimeout   = 15
	defaultRetryAttempts     = 3
	defaultRetryBaseDelayMS  = 500
	defaultRequestsPerSecond = 2.0
	defaultRequestBurst      = 4

	defaultSpeechModel          = "large-v3-turbo"
	defaultSpeechTimeoutSeconds = 1800
	defaultMinFreeSpaceGiB      = 2

	defaultOEmbedBaseURL   = "https://www.youtube.com/oembed"
	defaultMetadataTimeout = 10

	defaultAcceptanceThreshold  = 0.5
	defaultLexicalWeight        = 0.5
	defaultCompletenessWeight   = 0.3
	defaultRepetitionWeight     = 0.2
	defaultContradictionPenalty = 0.15
	defaultTokenWindow          = 6
	defaultParameterTolerance   = 1e-6

	defaultNotifyTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:    defaultCacheDir,
			AnalysisDir: defaultAnalysisDir,
			LogDir:      defaultLogDir,
			WorkDir:     defaultWorkDir,
		},
		Captions: Captions{
			BaseURL:           defaultCaptionsBaseURL,
			Languages:         []string{"en"},
			RequestTimeout:    defaultCaptionsTimeout,
			RetryAttempts:     defaultRetryAttempts,
			RetryBaseDelayMS:  defaultRetryBaseDelayMS,
			RequestsPerSecond: defaultRequestsPerSecond,
			RequestBurst:      defaultRequestBurst,
		},
		Speech: Speech{
			Model:           defaultSpeechModel,
			TimeoutSeconds:  defaultSpeechTimeoutSeconds,
			MinFreeSpaceGiB: defaultMinFreeSpaceGiB,
		},
		Metadata: Metadata{
			Enabled:        true,
			OEmbedBaseURL:  defaultOEmbedBaseURL,
			RequestTimeout: defaultMetadataTimeout,
		},
		Extraction: Extraction{
			AcceptanceThreshold:  defaultAcceptanceThreshold,
			LexicalWeight:        defaultLexicalWeight,
			CompletenessWeight:   defaultCompletenessWeight,
			RepetitionWeight:     defaultRepetitionWeight,
			ContradictionPenalty: defaultContradictionPenalty,
			TokenWindow:          defaultTokenWindow,
			ParameterTolerance:   defaultParameterTolerance,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Started:        false,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
