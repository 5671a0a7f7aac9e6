// Package logging realizes the declarative logging configuration document:
// named formatters compiled into templates, handlers opened as console or
// file sinks, and a hierarchical logger namespace with per-logger levels
// and propagation. The document is parsed once at startup, applied to the
// process-wide registry, and held read-only for the process lifetime.
package logging

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFormat renders records before any configuration is applied.
const DefaultFormat = "%(asctime)s [%(levelname)s] %(name)s: %(message)s"

// DefaultConfig returns the built-in logging document used when no file is
// provided: everything to the console, with the cli and services channels
// additionally captured verbatim in cruxrec.log.
func DefaultConfig() *Config {
	noProp := false
	return &Config{
		Version: 1,
		Formatters: map[string]FormatterConfig{
			"simple":   {Format: DefaultFormat},
			"detailed": {Format: "%(asctime)s [%(levelname)s] %(name)s %(filename)s:%(lineno)d: %(message)s"},
		},
		Handlers: map[string]HandlerConfig{
			"console": {
				Target:    TargetConsole,
				Stream:    "stderr",
				Level:     "DEBUG",
				Formatter: "simple",
			},
			"logfile": {
				Target:    TargetFile,
				Filename:  "cruxrec.log",
				Mode:      "w",
				Encoding:  "utf-8",
				Level:     "DEBUG",
				Formatter: "detailed",
			},
		},
		Loggers: map[string]LoggerConfig{
			"": {
				Level:    "INFO",
				Handlers: []string{"console"},
			},
			"cli": {
				Level:     "DEBUG",
				Handlers:  []string{"console", "logfile"},
				Propagate: &noProp,
			},
			"services": {
				Level:     "DEBUG",
				Handlers:  []string{"console", "logfile"},
				Propagate: &noProp,
			},
		},
	}
}

var (
	mu       sync.Mutex
	registry *Registry
	handles  = make(map[string]*loggerHandle)
)

// loggerHandle keeps the zap logger handed out for a name stable across
// Apply calls; only its core is swapped.
type loggerHandle struct {
	name   string
	core   *swapCore
	logger *zap.Logger
}

// Apply installs a logging document as the process-wide configuration.
// Loggers handed out earlier are rewired to the new tree; when the document
// sets disable_existing_loggers, names it does not cover are silenced
// instead. The previous configuration's file sinks are closed.
func Apply(cfg *Config) error {
	reg, err := Build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	old := registry
	registry = reg
	for name, h := range handles {
		if cfg.DisableExistingLoggers && !reg.configured(name) {
			h.core.store(zapcore.NewNopCore())
			continue
		}
		core, _ := reg.resolvedCore(name)
		h.core.store(core)
	}
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// ApplyFile loads a logging document from disk and applies it.
func ApplyFile(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return Apply(cfg)
}

// GetLogger returns the process-wide logger for a dotted name; the empty
// name is the root logger. Handles are stable: applying a new configuration
// rewires them in place.
func GetLogger(name string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if h, ok := handles[name]; ok {
		return h.logger
	}

	sc := &swapCore{}
	if registry != nil {
		core, _ := registry.resolvedCore(name)
		sc.store(core)
	} else {
		sc.store(fallbackCore())
	}

	logger := zap.New(sc, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(stderrSyncer())))
	if name != "" {
		logger = logger.Named(name)
	}
	handles[name] = &loggerHandle{name: name, core: sc, logger: logger}
	return logger
}

// Flush syncs every sink of the current configuration.
func Flush() {
	mu.Lock()
	reg := registry
	mu.Unlock()
	if reg == nil {
		return
	}
	for _, h := range reg.handlers {
		_ = h.core.Sync()
	}
}

// fallbackCore serves loggers requested before any Apply: stderr, INFO,
// the default template.
func fallbackCore() zapcore.Core {
	tpl, _ := ParseTemplate(DefaultFormat)
	return zapcore.NewCore(newTemplateEncoder(tpl), zapcore.Lock(stderrSyncer()), zapcore.InfoLevel)
}

func stderrSyncer() zapcore.WriteSyncer { return os.Stderr }

// swapCore delegates to the core installed by the most recent Apply.
// Loggers derived with With before an Apply keep the cores they were
// derived from; the named handles themselves always follow the registry.
type swapCore struct {
	v atomic.Value
}

func (c *swapCore) store(core zapcore.Core) { c.v.Store(&core) }

func (c *swapCore) load() zapcore.Core { return *c.v.Load().(*zapcore.Core) }

func (c *swapCore) Enabled(l zapcore.Level) bool { return c.load().Enabled(l) }

func (c *swapCore) With(fields []zapcore.Field) zapcore.Core { return c.load().With(fields) }

func (c *swapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.load().Check(ent, ce)
}

func (c *swapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.load().Write(ent, fields)
}

func (c *swapCore) Sync() error { return c.load().Sync() }
