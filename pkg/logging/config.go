package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cruxrec/cruxrec/pkg/config/validate"
)

// Handler targets.
const (
	TargetConsole = "console"
	TargetFile    = "file"
)

// Config is the declarative logging document. It is parsed once at process
// start and applied to the registry; after that it is read-only.
type Config struct {
	Version                int                        `yaml:"version"`
	DisableExistingLoggers bool                       `yaml:"disable_existing_loggers"`
	Formatters             map[string]FormatterConfig `yaml:"formatters"`
	Handlers               map[string]HandlerConfig   `yaml:"handlers"`
	Loggers                map[string]LoggerConfig    `yaml:"loggers"`
}

// FormatterConfig names an output template. Templates use %(field)s
// placeholders; see Template for the recognized fields.
type FormatterConfig struct {
	Format string `yaml:"format"`
}

// HandlerConfig describes a sink for formatted records.
type HandlerConfig struct {
	Target    string `yaml:"target"`    // console, file
	Stream    string `yaml:"stream"`    // stdout, stderr (console only)
	Filename  string `yaml:"filename"`  // file only
	Mode      string `yaml:"mode"`      // w (overwrite) or a (append), file only
	Encoding  string `yaml:"encoding"`  // utf-8 is the only supported encoding
	Level     string `yaml:"level"`     // minimum severity
	Formatter string `yaml:"formatter"` // reference into Formatters
}

// LoggerConfig describes a named channel in the logger hierarchy. The empty
// name is the root logger.
type LoggerConfig struct {
	Level     string   `yaml:"level"`
	Handlers  []string `yaml:"handlers"`
	Propagate *bool    `yaml:"propagate"` // nil means true
}

// propagates reports whether records continue to the parent logger.
func (l LoggerConfig) propagates() bool {
	return l.Propagate == nil || *l.Propagate
}

// LoadConfig reads and parses a logging document from disk. Unknown keys are
// rejected so typos surface at startup rather than silently dropping
// handlers.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open logging config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid logging config %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseConfig parses a logging document from raw YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the document invariants: the schema version, that every
// handler references a declared formatter, that every logger references
// declared handlers, and that levels, targets, and file destinations are
// usable. All problems are reported, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, validate.ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("unsupported version %d", c.Version),
			Hint:    "only version 1 is supported",
		})
	}

	for _, name := range sortedKeys(c.Formatters) {
		f := c.Formatters[name]
		if _, err := ParseTemplate(f.Format); err != nil {
			errs = append(errs, validate.ValidationError{
				Path:    fmt.Sprintf("formatters.%s.format", name),
				Message: err.Error(),
			})
		}
	}

	for _, name := range sortedKeys(c.Handlers) {
		errs = append(errs, c.validateHandler(name, c.Handlers[name])...)
	}

	for _, name := range sortedKeys(c.Loggers) {
		errs = append(errs, c.validateLogger(name, c.Loggers[name])...)
	}

	return errs
}

func (c *Config) validateHandler(name string, h HandlerConfig) []error {
	var errs []error
	path := func(field string) string { return fmt.Sprintf("handlers.%s.%s", name, field) }

	switch h.Target {
	case TargetConsole:
		switch h.Stream {
		case "", "stdout", "stderr":
		default:
			errs = append(errs, validate.ValidationError{
				Path:    path("stream"),
				Message: fmt.Sprintf("invalid value %q", h.Stream),
				Hint:    "allowed values: stdout, stderr",
			})
		}
	case TargetFile:
		if h.Filename == "" {
			errs = append(errs, validate.ValidationError{
				Path:    path("filename"),
				Message: "must not be empty for file handlers",
			})
		} else if dir := filepath.Dir(h.Filename); dir != "" && dir != "." {
			if err := validate.ValidateDirWritable(dir); err != nil {
				errs = append(errs, validate.ValidationError{
					Path:    path("filename"),
					Message: fmt.Sprintf("parent directory not writable: %v", err),
				})
			}
		}
		switch h.Mode {
		case "", "w", "a":
		default:
			errs = append(errs, validate.ValidationError{
				Path:    path("mode"),
				Message: fmt.Sprintf("invalid value %q", h.Mode),
				Hint:    "allowed values: w (overwrite), a (append)",
			})
		}
	default:
		errs = append(errs, validate.ValidationError{
			Path:    path("target"),
			Message: fmt.Sprintf("invalid value %q", h.Target),
			Hint:    "allowed values: console, file",
		})
	}

	switch normalizeEncoding(h.Encoding) {
	case "", "utf-8":
	default:
		errs = append(errs, validate.ValidationError{
			Path:    path("encoding"),
			Message: fmt.Sprintf("unsupported encoding %q", h.Encoding),
			Hint:    "only utf-8 is supported",
		})
	}

	if _, err := ParseLevel(h.Level); err != nil {
		errs = append(errs, validate.ValidationError{Path: path("level"), Message: err.Error()})
	}

	if h.Formatter == "" {
		errs = append(errs, validate.ValidationError{
			Path:    path("formatter"),
			Message: "must reference a declared formatter",
		})
	} else if _, ok := c.Formatters[h.Formatter]; !ok {
		errs = append(errs, validate.ValidationError{
			Path:    path("formatter"),
			Message: fmt.Sprintf("references undeclared formatter %q", h.Formatter),
		})
	}

	return errs
}

func (c *Config) validateLogger(name string, l LoggerConfig) []error {
	var errs []error
	key := name
	if key == "" {
		key = "root"
	}

	if _, err := ParseLevel(l.Level); err != nil {
		errs = append(errs, validate.ValidationError{
			Path:    fmt.Sprintf("loggers.%s.level", key),
			Message: err.Error(),
		})
	}
	for i, ref := range l.Handlers {
		if _, ok := c.Handlers[ref]; !ok {
			errs = append(errs, validate.ValidationError{
				Path:    fmt.Sprintf("loggers.%s.handlers[%d]", key, i),
				Message: fmt.Sprintf("references undeclared handler %q", ref),
			})
		}
	}
	return errs
}

func normalizeEncoding(enc string) string {
	enc = strings.ToLower(strings.TrimSpace(enc))
	if enc == "utf8" {
		return "utf-8"
	}
	return enc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
