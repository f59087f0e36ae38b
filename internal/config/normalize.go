package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeSpeech()
	c.normalizeMetadata()
	c.normalizeExtraction()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.AnalysisDir, err = expandPath(c.Paths.AnalysisDir); err != nil {
		return fmt.Errorf("paths.analysis_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	c.Captions.BaseURL = strings.TrimRight(strings.TrimSpace(c.Captions.BaseURL), "/")
	if c.Captions.BaseURL == "" {
		c.Captions.BaseURL = defaultCaptionsBaseURL
	}

	languages := make([]string, 0, len(c.Captions.Languages))
	for _, lang := range c.Captions.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	c.Captions.Languages = languages

	if c.Captions.RequestTimeout <= 0 {
		c.Captions.RequestTimeout = defaultCaptionsTimeout
	}
	if c.Captions.RetryAttempts <= 0 {
		c.Captions.RetryAttempts = defaultRetryAttempts
	}
	if c.Captions.RetryBaseDelayMS <= 0 {
		c.Captions.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Captions.RequestsPerSecond <= 0 {
		c.Captions.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Captions.RequestBurst <= 0 {
		c.Captions.RequestBurst = defaultRequestBurst
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}
	if c.Speech.MinFreeSpaceGiB < 0 {
		c.Speech.MinFreeSpaceGiB = 0
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.OEmbedBaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.OEmbedBaseURL), "/")
	if c.Metadata.OEmbedBaseURL == "" {
		c.Metadata.OEmbedBaseURL = defaultOEmbedBaseURL
	}
	if c.Metadata.RequestTimeout <= 0 {
		c.Metadata.RequestTimeout = defaultMetadataTimeout
	}
}

func (c *Config) normalizeExtraction() {
	e := &c.Extraction
	if e.AcceptanceThreshold == 0 {
		e.AcceptanceThreshold = defaultAcceptanceThreshold
	}
	if e.LexicalWeight <= 0 && e.CompletenessWeight <= 0 && e.RepetitionWeight <= 0 {
		e.LexicalWeight = defaultLexicalWeight
		e.CompletenessWeight = defaultCompletenessWeight
		e.RepetitionWeight = defaultRepetitionWeight
	}
	if e.ContradictionPenalty <= 0 {
		e.ContradictionPenalty = defaultContradictionPenalty
	}
	if e.TokenWindow <= 0 {
		e.TokenWindow = defaultTokenWindow
	}
	if e.ParameterTolerance <= 0 {
		e.ParameterTolerance = defaultParameterTolerance
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
