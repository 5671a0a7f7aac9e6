package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap/zapcore"
)

// handler is a realized sink: an encoder bound to a write syncer with a
// minimum severity. The logging facility owns the concurrent-write
// discipline, so every sink is wrapped in a lock.
type handler struct {
	name        string
	core        zapcore.Core
	needsCaller bool
	closer      io.Closer // file handlers only
}

// buildHandlers compiles formatters and opens every declared sink. On any
// failure the files opened so far are closed before returning.
func buildHandlers(cfg *Config) (map[string]*handler, error) {
	templates := make(map[string]*Template, len(cfg.Formatters))
	for name, f := range cfg.Formatters {
		tpl, err := ParseTemplate(f.Format)
		if err != nil {
			return nil, fmt.Errorf("formatter %q: %w", name, err)
		}
		templates[name] = tpl
	}

	handlers := make(map[string]*handler, len(cfg.Handlers))
	closeAll := func() {
		for _, h := range handlers {
			if h.closer != nil {
				h.closer.Close()
			}
		}
	}

	for name, hc := range cfg.Handlers {
		tpl, ok := templates[hc.Formatter]
		if !ok {
			closeAll()
			return nil, fmt.Errorf("handler %q references undeclared formatter %q", name, hc.Formatter)
		}
		level, err := ParseLevel(hc.Level)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("handler %q: %w", name, err)
		}

		var (
			ws     zapcore.WriteSyncer
			closer io.Closer
		)
		switch hc.Target {
		case TargetConsole:
			if hc.Stream == "stdout" {
				ws = zapcore.Lock(os.Stdout)
			} else {
				ws = zapcore.Lock(os.Stderr)
			}
		case TargetFile:
			f, err := openLogFile(hc.Filename, hc.Mode)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("handler %q: %w", name, err)
			}
			ws = zapcore.Lock(zapcore.AddSync(f))
			closer = f
		default:
			closeAll()
			return nil, fmt.Errorf("handler %q: invalid target %q", name, hc.Target)
		}

		handlers[name] = &handler{
			name:        name,
			core:        zapcore.NewCore(newTemplateEncoder(tpl), ws, level),
			needsCaller: tpl.usesCaller(),
			closer:      closer,
		}
	}
	return handlers, nil
}

// openLogFile opens a file sink honoring the configured open mode:
// "w" truncates any previous contents, "a" appends.
func openLogFile(path, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	switch mode {
	case "", "w":
		flags |= os.O_TRUNC
	case "a":
		flags |= os.O_APPEND
	default:
		return nil, fmt.Errorf("invalid file mode %q", mode)
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}
