// Package cli implements the cruxrec command handlers: the summarization
// flow, subtitle and transcript utilities, configuration management, and
// the interactive setup wizard.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/logging"
)

// Setup loads the application configuration and applies the logging
// document. An empty path searches the default locations; a missing file
// falls back to defaults.
func Setup(configPath string) (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath("cruxrec.yaml")
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", e)
		}
		return nil, fmt.Errorf("invalid configuration (%d problems)", len(errs))
	}

	switch {
	case cfg.Logging.ConfigFile != "":
		if err := logging.ApplyFile(cfg.Logging.ConfigFile); err != nil {
			return nil, fmt.Errorf("apply logging config: %w", err)
		}
	case cfg.Logging.Inline != nil:
		if err := logging.Apply(cfg.Logging.Inline); err != nil {
			return nil, fmt.Errorf("apply logging config: %w", err)
		}
	default:
		if err := logging.Apply(logging.DefaultConfig()); err != nil {
			return nil, fmt.Errorf("apply logging defaults: %w", err)
		}
	}

	return cfg, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
	}
}
