package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.AnalysisDir == "" {
		return errors.New("paths.analysis_dir must be set")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.RetryAttempts > 10 {
		return fmt.Errorf("captions.retry_attempts %d is unreasonably high (max 10)", c.Captions.RetryAttempts)
	}
	return nil
}

func (c *Config) validateExtraction() error {
	e := c.Extraction
	if e.AcceptanceThreshold < 0 || e.AcceptanceThreshold > 1 {
		return errors.New("extraction.acceptance_threshold must be between 0 and 1")
	}
	for name, w := range map[string]float64{
		"extraction.lexical_weight":      e.LexicalWeight,
		"extraction.completeness_weight": e.CompletenessWeight,
		"extraction.repetition_weight":   e.RepetitionWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if e.ContradictionPenalty < 0 || e.ContradictionPenalty >= 1 {
		return errors.New("extraction.contradiction_penalty must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxEntries < 0 {
		return errors.New("cache.max_entries must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
