package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cruxrec/cruxrec/pkg/cache"
	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/pipeline"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
	"github.com/cruxrec/cruxrec/pkg/subtitles"
)

// runOptions carries per-invocation flags shared by the pipeline commands.
type runOptions struct {
	Lang    string
	AutoSub bool
	NoCache bool
	Format  string
	Timeout time.Duration
}

func parseRunOptions(args []string) (runOptions, []string) {
	opts := runOptions{Format: "text", Timeout: 15 * time.Minute}
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--lang":
			if i+1 < len(args) {
				i++
				opts.Lang = args[i]
			}
		case "--auto-sub":
			opts.AutoSub = true
		case "--no-cache":
			opts.NoCache = true
		case "-f", "--format":
			if i+1 < len(args) {
				i++
				opts.Format = args[i]
			}
		case "-t", "--timeout":
			if i+1 < len(args) {
				i++
				if d, err := time.ParseDuration(args[i]); err == nil {
					opts.Timeout = d
				}
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return opts, rest
}

// openCache opens the configured cache, downgrading failures to a warning
// so a broken cache never blocks the pipeline.
func openCache(cfg *config.Config, noCache bool) *cache.Cache {
	cacheCfg := cfg.Cache
	if noCache {
		cacheCfg.Enabled = false
	}
	store, err := cache.Open(cacheCfg)
	if err != nil {
		logging.GetLogger("cli").Warn("Cache unavailable, continuing without it", zap.Error(err))
		store, _ = cache.Open(config.CacheConfig{Enabled: false})
	}
	return store
}

// HandleSummarizeCommand runs the full pipeline and prints the summary.
func HandleSummarizeCommand(cfg *config.Config, args []string) {
	opts, rest := parseRunOptions(args)
	if len(rest) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: cruxrec summarize <prompt> <url> [--lang <code>] [--auto-sub] [--no-cache]\n")
		os.Exit(1)
	}
	prompt, url := rest[0], rest[1]

	logger := logging.GetLogger("cli")
	logger.Info("Fetching subtitles...")

	store := openCache(cfg, opts.NoCache)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	res, err := pipeline.New(cfg, store).Run(ctx, pipeline.Request{
		URL:     url,
		Prompt:  prompt,
		Lang:    opts.Lang,
		AutoSub: opts.AutoSub,
	}, nil)
	if err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Failed to summarize: %v\n", err)
		os.Exit(1)
	}

	if opts.Format == "json" {
		printJSON(res)
		return
	}
	fmt.Println(res.Summary)
}

// HandleSubsCommand implements `subs fetch <url>` and `subs clean`.
func HandleSubsCommand(cfg *config.Config, args []string) {
	opts, rest := parseRunOptions(args)
	if len(rest) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: cruxrec subs <fetch <url>|clean> [--lang <code>] [--auto-sub]\n")
		os.Exit(1)
	}

	proxy := proxyclient.New(cfg.Proxy.Address, cfg.Proxy.Disabled)
	provider := subtitles.NewProvider(cfg.Subtitles, proxy)

	switch rest[0] {
	case "fetch":
		if len(rest) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: cruxrec subs fetch <url> [--lang <code>] [--auto-sub]\n")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()

		text, err := provider.Fetch(ctx, rest[1], opts.Lang, opts.AutoSub)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch subtitles: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)

	case "clean":
		if err := provider.Remove(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clean subtitle files: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown subs subcommand: %s\n", rest[0])
		os.Exit(1)
	}
}

// HandleTranscribeCommand produces a transcript, via subtitles or audio
// transcription, and prints it.
func HandleTranscribeCommand(cfg *config.Config, args []string) {
	opts, rest := parseRunOptions(args)
	if len(rest) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: cruxrec transcribe <url> [--lang <code>] [--no-cache]\n")
		os.Exit(1)
	}
	url := rest[0]

	store := openCache(cfg, opts.NoCache)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	res, err := pipeline.New(cfg, store).Transcript(ctx, pipeline.Request{
		URL:     url,
		Lang:    opts.Lang,
		AutoSub: opts.AutoSub,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to transcribe: %v\n", err)
		os.Exit(1)
	}

	if opts.Format == "json" {
		printJSON(res)
		return
	}
	fmt.Println(res.Transcript)
}

// HandleConfigCommand implements `config show|validate|path`.
func HandleConfigCommand(cfg *config.Config, configPath string, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: cruxrec config <show|validate|path>\n")
		os.Exit(1)
	}

	switch args[0] {
	case "show":
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	case "validate":
		if errs := cfg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "%v\n", e)
			}
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
	case "path":
		path := configPath
		if path == "" {
			path, _ = config.DefaultPath("cruxrec.yaml")
		}
		fmt.Println(path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// HandleCacheCommand implements `cache purge`.
func HandleCacheCommand(cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "purge" {
		fmt.Fprintf(os.Stderr, "Usage: cruxrec cache purge\n")
		os.Exit(1)
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := store.Purge(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to purge cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d expired entries\n", n)
}
