package main

import (
	"fmt"
	"os"

	"github.com/cruxrec/cruxrec/pkg/cli"
	"github.com/cruxrec/cruxrec/pkg/logging"
)

var configPath = ""

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	args := parseGlobalFlags(os.Args[2:])

	switch command {
	case "version":
		fmt.Printf("cruxrec %s", version)
		if commit != "" {
			fmt.Printf(" (commit %s)", commit)
		}
		if date != "" {
			fmt.Printf(" built %s", date)
		}
		fmt.Println()
		return

	case "init":
		cli.HandleInitCommand()
		return

	case "help", "--help", "-h":
		showHelp()
		return
	}

	cfg, err := cli.Setup(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logging.Flush()

	switch command {
	case "summarize":
		cli.HandleSummarizeCommand(cfg, args)
	case "subs":
		cli.HandleSubsCommand(cfg, args)
	case "transcribe":
		cli.HandleTranscribeCommand(cfg, args)
	case "config":
		cli.HandleConfigCommand(cfg, configPath, args)
	case "cache":
		cli.HandleCacheCommand(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		showHelp()
		os.Exit(1)
	}
}

// parseGlobalFlags strips flags every command understands and returns the
// remaining arguments.
func parseGlobalFlags(args []string) []string {
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return rest
}

func showHelp() {
	fmt.Printf("CruxRec - Extract YouTube subtitles and summarize them\n\n")
	fmt.Printf("Usage: cruxrec <command> [args...]\n\n")

	fmt.Printf("Commands:\n")
	fmt.Printf("  summarize <prompt> <url>      - Fetch subtitles (or transcribe) and summarize\n")
	fmt.Printf("  subs fetch <url>              - Fetch and print cleaned subtitles\n")
	fmt.Printf("  subs clean                    - Remove leftover subtitle files\n")
	fmt.Printf("  transcribe <url>              - Print the transcript for a video\n")
	fmt.Printf("  config <show|validate|path>   - Inspect the configuration\n")
	fmt.Printf("  cache purge                   - Remove expired cache entries\n")
	fmt.Printf("  init                          - Interactive setup wizard\n")
	fmt.Printf("  version                       - Show version information\n\n")

	fmt.Printf("Command Flags:\n")
	fmt.Printf("  --lang <code>                 - Subtitle language (default from config)\n")
	fmt.Printf("  --auto-sub                    - Prefer auto-generated subtitles\n")
	fmt.Printf("  --no-cache                    - Bypass the local cache\n")
	fmt.Printf("  -f, --format <format>         - Output format: text, json (default: text)\n")
	fmt.Printf("  -t, --timeout <duration>      - Operation timeout (default: 15m)\n\n")

	fmt.Printf("Global Flags:\n")
	fmt.Printf("  -c, --config <path>           - Configuration file path\n\n")

	fmt.Printf("Environment:\n")
	fmt.Printf("  GEMINI_KEY                    - Gemini API key for summarization\n")
	fmt.Printf("  OPENAI_API_KEY                - OpenAI API key for transcription\n\n")

	fmt.Printf("Examples:\n")
	fmt.Printf("  cruxrec summarize \"Key takeaways, bullet points\" https://youtu.be/xyz\n")
	fmt.Printf("  cruxrec subs fetch https://youtu.be/xyz --lang en --auto-sub\n")
}
