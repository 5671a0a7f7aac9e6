package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Registry holds the realized logger tree for one applied configuration:
// the open handler sinks plus the declared logger hierarchy. It is built
// once and read-only afterwards.
type Registry struct {
	cfg      *Config
	handlers map[string]*handler
}

// Build validates a logging document and opens its sinks.
func Build(cfg *Config) (*Registry, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid logging config: %w", errors.Join(errs...))
	}
	handlers, err := buildHandlers(cfg)
	if err != nil {
		return nil, err
	}
	return &Registry{cfg: cfg, handlers: handlers}, nil
}

// Logger returns the logger for a dotted name. Undeclared names inherit
// level and handlers from the nearest declared ancestor, falling back to
// the root logger.
func (r *Registry) Logger(name string) *zap.Logger {
	core, needsCaller := r.resolvedCore(name)

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(stderrSyncer()))}
	if needsCaller {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(core, opts...)
	if name != "" {
		logger = logger.Named(name)
	}
	return logger
}

// Close syncs and closes every file sink.
func (r *Registry) Close() error {
	var errs []error
	for _, h := range r.handlers {
		if err := h.core.Sync(); err != nil {
			errs = append(errs, err)
		}
		if h.closer != nil {
			if err := h.closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// resolvedCore assembles the effective core for a name: its own handlers
// plus ancestor handlers collected while propagation stays enabled, all
// gated by the effective level.
func (r *Registry) resolvedCore(name string) (zapcore.Core, bool) {
	chain := r.declaredChain(name)

	level := zapcore.InfoLevel
	if len(chain) > 0 {
		// Level comes from the nearest declared logger; it already
		// validated during Build.
		level, _ = ParseLevel(r.cfg.Loggers[chain[0]].Level)
	}

	var (
		cores       []zapcore.Core
		needsCaller bool
	)
	for _, declared := range chain {
		lc := r.cfg.Loggers[declared]
		for _, ref := range lc.Handlers {
			h := r.handlers[ref]
			cores = append(cores, h.core)
			needsCaller = needsCaller || h.needsCaller
		}
		if !lc.propagates() {
			break
		}
	}

	return &gateCore{Core: zapcore.NewTee(cores...), min: level}, needsCaller
}

// declaredChain lists the declared loggers on the path from name to the
// root, nearest first. The root logger participates only when declared.
func (r *Registry) declaredChain(name string) []string {
	var chain []string
	for cur := name; ; cur = parentName(cur) {
		if _, ok := r.cfg.Loggers[cur]; ok {
			chain = append(chain, cur)
		}
		if cur == "" {
			return chain
		}
	}
}

// configured reports whether a name is covered by the document: the root,
// a declared logger, or a descendant of one. Used by Apply to decide which
// pre-existing loggers survive disable_existing_loggers.
func (r *Registry) configured(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := r.cfg.Loggers[name]; ok {
		return true
	}
	for declared := range r.cfg.Loggers {
		if declared != "" && strings.HasPrefix(name, declared+".") {
			return true
		}
	}
	return false
}

func parentName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// gateCore applies a logger-level threshold in front of its handler tee.
// Handler cores keep their own minimum severities; the gate is the logger's.
type gateCore struct {
	zapcore.Core
	min zapcore.LevelEnabler
}

func (g *gateCore) Enabled(l zapcore.Level) bool {
	return g.min.Enabled(l) && g.Core.Enabled(l)
}

func (g *gateCore) With(fields []zapcore.Field) zapcore.Core {
	return &gateCore{Core: g.Core.With(fields), min: g.min}
}

func (g *gateCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.min.Enabled(ent.Level) {
		return ce
	}
	return g.Core.Check(ent, ce)
}
