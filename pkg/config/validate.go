package config

import (
	"fmt"
	"path/filepath"

	"github.com/cruxrec/cruxrec/pkg/config/validate"
)

// Validate performs validation of the whole configuration and returns all
// problems found, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateSubtitles()...)
	errs = append(errs, c.validateTranscriber()...)
	errs = append(errs, c.validateSummarizer()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateProxy()...)
	errs = append(errs, c.validateGateway()...)

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	if c.Logging.ConfigFile != "" {
		if err := validate.ValidateFileReadable(c.Logging.ConfigFile); err != nil {
			errs = append(errs, validate.ValidationError{
				Path:    "logging.config_file",
				Message: err.Error(),
			})
		}
	}
	if c.Logging.Inline != nil {
		for _, err := range c.Logging.Inline.Validate() {
			errs = append(errs, validate.ValidationError{
				Path:    "logging.inline",
				Message: err.Error(),
			})
		}
	}
	return errs
}

func (c *Config) validateSubtitles() []error {
	var errs []error
	if c.Subtitles.Language == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "subtitles.language",
			Message: "must not be empty",
			Hint:    "use a language code such as \"en\" or \"ru\"",
		})
	}
	if c.Subtitles.Pattern == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "subtitles.pattern",
			Message: "must not be empty",
		})
	}
	if err := validate.ValidateWorkDir(c.Subtitles.WorkDir); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    "subtitles.work_dir",
			Message: err.Error(),
		})
	}
	if c.Subtitles.YtdlpBin == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "subtitles.ytdlp_bin",
			Message: "must not be empty",
		})
	}
	return errs
}

func (c *Config) validateTranscriber() []error {
	var errs []error
	if err := validate.ValidateBaseURL(c.Transcriber.APIBase); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    "transcriber.api_base",
			Message: err.Error(),
		})
	}
	if c.Transcriber.Model == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "transcriber.model",
			Message: "must not be empty",
		})
	}
	if c.Transcriber.YtdlpBin == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "transcriber.ytdlp_bin",
			Message: "must not be empty",
		})
	}
	if c.Transcriber.MaxDuration <= 0 {
		errs = append(errs, validate.ValidationError{
			Path:    "transcriber.max_duration",
			Message: fmt.Sprintf("must be positive; got %v", c.Transcriber.MaxDuration.Std()),
		})
	}
	return errs
}

func (c *Config) validateSummarizer() []error {
	var errs []error
	if err := validate.ValidateBaseURL(c.Summarizer.APIBase); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    "summarizer.api_base",
			Message: err.Error(),
		})
	}
	if c.Summarizer.Model == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "summarizer.model",
			Message: "must not be empty",
		})
	}
	if c.Summarizer.Timeout <= 0 {
		errs = append(errs, validate.ValidationError{
			Path:    "summarizer.timeout",
			Message: fmt.Sprintf("must be positive; got %v", c.Summarizer.Timeout.Std()),
		})
	}
	return errs
}

func (c *Config) validateCache() []error {
	var errs []error
	if !c.Cache.Enabled {
		return errs
	}
	if c.Cache.Path == "" {
		errs = append(errs, validate.ValidationError{
			Path:    "cache.path",
			Message: "must not be empty when cache is enabled",
		})
	} else if dir := filepath.Dir(c.Cache.Path); dir != "" && dir != "." {
		if err := validate.ValidateWorkDir(dir); err != nil {
			errs = append(errs, validate.ValidationError{
				Path:    "cache.path",
				Message: fmt.Sprintf("parent directory: %v", err),
			})
		}
	}
	return errs
}

func (c *Config) validateProxy() []error {
	var errs []error
	if c.Proxy.Disabled {
		return errs
	}
	if err := validate.ValidateHostPort(c.Proxy.Address); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    "proxy.address",
			Message: err.Error(),
		})
	}
	return errs
}

func (c *Config) validateGateway() []error {
	var errs []error
	if !c.Gateway.Enabled {
		return errs
	}
	if err := validate.ValidateListenAddr(c.Gateway.ListenAddr); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    "gateway.listen_addr",
			Message: err.Error(),
		})
	}
	if c.Gateway.MaxJobs < 1 {
		errs = append(errs, validate.ValidationError{
			Path:    "gateway.max_jobs",
			Message: fmt.Sprintf("must be at least 1; got %d", c.Gateway.MaxJobs),
		})
	}
	return errs
}
