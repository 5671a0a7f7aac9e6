// Package subtitles downloads and cleans video subtitles via yt-dlp.
package subtitles

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/errors"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
)

// outputTemplate is the yt-dlp output template for subtitle downloads; the
// extension is filled in by yt-dlp.
const outputTemplate = "subs.%(ext)s"

// commandRunner abstracts subprocess execution so tests can stub yt-dlp.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// Provider fetches subtitles for video URLs: official subtitles first, with
// a fallback to auto-generated ones when the official track is missing or
// empty.
type Provider struct {
	cfg    config.SubtitlesConfig
	proxy  *proxyclient.Proxy
	logger *zap.Logger
	runner commandRunner
}

// NewProvider creates a subtitle provider.
func NewProvider(cfg config.SubtitlesConfig, proxy *proxyclient.Proxy) *Provider {
	return &Provider{
		cfg:    cfg,
		proxy:  proxy,
		logger: logging.GetLogger("services"),
		runner: execRunner{},
	}
}

// Fetch downloads and parses subtitles for a URL. It tries the official
// track first (unless autoSub is set), falls back to auto-generated
// subtitles, and returns the cleaned transcript text.
func (p *Provider) Fetch(ctx context.Context, url, lang string, autoSub bool) (string, error) {
	if lang == "" {
		lang = p.cfg.Language
	}

	if err := p.download(ctx, url, lang, autoSub); err != nil {
		p.logger.Warn("Error downloading subtitles", zap.Error(err))
	}

	subFile := p.usableSubtitleFile()

	if subFile == "" && !autoSub {
		p.logger.Debug("Official subtitles not found or empty, trying auto-generated subtitles...")
		if err := p.download(ctx, url, lang, true); err != nil {
			p.logger.Debug("Fallback download (auto-sub) failed", zap.Error(err))
			return "", errors.ErrNoSubtitles
		}
		subFile = p.usableSubtitleFile()
	}

	if subFile == "" {
		p.logger.Debug("Could not locate a valid downloaded subtitle file")
		return "", errors.ErrNoSubtitles
	}
	// A leftover file would shadow the next video's subtitles.
	defer os.Remove(subFile)

	text, err := ParseFile(subFile)
	if err != nil {
		return "", err
	}
	if text == "" {
		p.logger.Debug("Parsed subtitles are empty")
		return "", errors.ErrNoSubtitles
	}
	return text, nil
}

// download runs yt-dlp for the subtitle track without downloading media.
func (p *Provider) download(ctx context.Context, url, lang string, writeAuto bool) error {
	args := []string{
		"--skip-download",
		"--output", filepath.Join(p.cfg.WorkDir, outputTemplate),
	}
	if writeAuto {
		args = append(args, "--write-auto-subs")
	} else {
		args = append(args, "--write-subs")
	}
	if lang != "" {
		args = append(args, "--sub-langs", lang)
	}
	args = append(args, p.proxy.SubprocessArgs()...)
	args = append(args, url)

	p.logger.Debug("Starting subtitles download",
		zap.Bool("auto", writeAuto),
		zap.String("lang", lang))
	return p.runner.Run(ctx, p.cfg.YtdlpBin, args...)
}

// usableSubtitleFile locates the downloaded subtitle file and rejects empty
// ones.
func (p *Provider) usableSubtitleFile() string {
	subFile, err := FindSubtitleFile(p.cfg.Pattern, p.cfg.WorkDir)
	if err != nil || subFile == "" {
		p.logger.Debug("No subtitle files found", zap.String("pattern", p.cfg.Pattern))
		return ""
	}
	info, err := os.Stat(subFile)
	if err != nil {
		return ""
	}
	if info.Size() == 0 {
		p.logger.Debug("Subtitle file is empty, ignoring", zap.String("file", subFile))
		return ""
	}
	return subFile
}

// FindSubtitleFile returns the first file under dir whose base name matches
// the glob pattern, or "" when none match.
func FindSubtitleFile(pattern, dir string) (string, error) {
	resolved, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	var matches []string
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// Remove deletes leftover subtitle files matching the pattern.
func (p *Provider) Remove() error {
	resolved, err := filepath.Abs(p.cfg.WorkDir)
	if err != nil {
		return err
	}

	deleted := 0
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ok, matchErr := filepath.Match(p.cfg.Pattern, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			p.logger.Warn("Failed to remove subtitle file",
				zap.String("file", path), zap.Error(err))
			return nil
		}
		p.logger.Debug("Removed subtitle file", zap.String("file", path))
		deleted++
		return nil
	})
	if err != nil {
		return err
	}

	if deleted > 0 {
		p.logger.Info(fmt.Sprintf("Removed %d subtitle file(s)", deleted))
	} else {
		p.logger.Debug("No subtitle files found to remove",
			zap.String("pattern", p.cfg.Pattern))
	}
	return nil
}
