package subtitles

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	timestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d+\s*-->\s*\d{2}:\d{2}:\d{2}\.\d+`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// ParseFile reads a WebVTT subtitle file and returns its cleaned text.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading file %q: %w", path, err)
	}
	return Parse(string(data)), nil
}

// Parse strips WebVTT structure from subtitle content: header lines, cue
// timestamps, HTML tags, blank lines, and consecutive duplicate lines
// (auto-generated tracks repeat each line as the cue scrolls).
func Parse(content string) string {
	var cleaned []string
	prev := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") {
			continue
		}

		if timestampRe.MatchString(line) {
			continue
		}

		line = strings.TrimSpace(htmlTagRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}

		if line != prev {
			cleaned = append(cleaned, line)
			prev = line
		}
	}

	return strings.Join(cleaned, "\n")
}
