// Package transcribe produces a transcript for videos that have no usable
// subtitles: the video is downloaded, its audio extracted with ffmpeg, and
// the audio sent to a Whisper-compatible transcription API.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/errors"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
)

// commandRunner abstracts subprocess execution so tests can stub the
// external tools.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Transcriber downloads a video, extracts its audio, and transcribes it.
type Transcriber struct {
	cfg    config.TranscriberConfig
	proxy  *proxyclient.Proxy
	client *http.Client
	logger *zap.Logger
	runner commandRunner
}

// New creates a transcriber. Downloads and API traffic are routed through
// the proxy when one is enabled.
func New(cfg config.TranscriberConfig, proxy *proxyclient.Proxy) *Transcriber {
	return &Transcriber{
		cfg:    cfg,
		proxy:  proxy,
		client: proxy.HTTPClient(10 * time.Minute),
		logger: logging.GetLogger("services"),
		runner: execRunner{},
	}
}

// apiKey resolves the transcription API key from config or environment.
func (t *Transcriber) apiKey() (string, error) {
	if t.cfg.APIKey != "" {
		return t.cfg.APIKey, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: set OPENAI_API_KEY or transcriber.api_key", errors.ErrMissingAPIKey)
}

// TranscribeFromURL transcribes a video from its URL: download, audio
// extraction, then the transcription API. Temporary media files are removed
// before returning.
func (t *Transcriber) TranscribeFromURL(ctx context.Context, rawURL string) (string, error) {
	if _, err := t.apiKey(); err != nil {
		return "", err
	}

	videoFile, err := t.downloadVideo(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(videoFile)
	t.logger.Info("Downloaded video", zap.String("file", videoFile))

	audioFile, err := t.extractAudio(ctx, videoFile)
	if err != nil {
		return "", err
	}
	defer os.Remove(audioFile)
	t.logger.Info("Extracted audio", zap.String("file", audioFile))

	text, err := t.transcribeAudio(ctx, audioFile)
	if err != nil {
		return "", err
	}
	t.logger.Info("Transcription finished", zap.Int("chars", len(text)))
	return text, nil
}

// downloadVideo fetches the video with yt-dlp after checking its duration
// against the configured limit.
func (t *Transcriber) downloadVideo(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid video URL: %w", err)
	}
	outtmpl := fmt.Sprintf("%s-%%(id)s.%%(ext)s", parsed.Hostname())

	args := []string{
		"--no-playlist",
		"--skip-download",
		"--print", "duration",
		"--print", "filename",
		"--output", outtmpl,
	}
	if t.cfg.CookiesFile != "" {
		if _, err := os.Stat(t.cfg.CookiesFile); err == nil {
			args = append(args, "--cookies", t.cfg.CookiesFile)
		}
	}
	args = append(args, t.proxy.SubprocessArgs()...)
	args = append(args, rawURL)

	out, err := t.runner.Output(ctx, t.cfg.YtdlpBin, args...)
	if err != nil {
		return "", fmt.Errorf("probe video metadata: %w", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("unexpected yt-dlp metadata output: %q", out)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
	if err != nil {
		return "", fmt.Errorf("parse video duration %q: %w", lines[0], err)
	}
	filename := strings.TrimSpace(lines[1])

	if time.Duration(duration*float64(time.Second)) > t.cfg.MaxDuration.Std() {
		return "", fmt.Errorf("%w: %.0fs > %s", errors.ErrVideoTooLong, duration, t.cfg.MaxDuration.Std())
	}

	dlArgs := []string{"--no-playlist", "--quiet", "--output", outtmpl}
	dlArgs = append(dlArgs, t.proxy.SubprocessArgs()...)
	dlArgs = append(dlArgs, rawURL)
	if err := t.runner.Run(ctx, t.cfg.YtdlpBin, dlArgs...); err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	return filename, nil
}

// extractAudio pulls the audio track out of the video file as m4a.
func (t *Transcriber) extractAudio(ctx context.Context, videoFile string) (string, error) {
	audioFile := strings.TrimSuffix(videoFile, filepath.Ext(videoFile)) + ".m4a"
	err := t.runner.Run(ctx, t.cfg.FfmpegBin,
		"-i", videoFile, "-q:a", "0", "-map", "a", "-y", audioFile)
	if err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	return audioFile, nil
}

// transcribeAudio converts the audio to PCM WAV when needed and sends it to
// the transcription API.
func (t *Transcriber) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	codec, err := t.runner.Output(ctx, t.cfg.FfprobeBin,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath)
	if err != nil {
		t.logger.Warn("ffprobe failed, sending audio as-is", zap.Error(err))
	}

	if codec != "" && codec != "pcm_s16le" {
		wavPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".wav"
		err := t.runner.Run(ctx, t.cfg.FfmpegBin,
			"-i", audioPath, "-acodec", "pcm_s16le", "-y", wavPath)
		if err != nil {
			return "", fmt.Errorf("convert audio to WAV: %w", err)
		}
		defer os.Remove(wavPath)
		audioPath = wavPath
		t.logger.Info("Audio converted to WAV", zap.String("file", wavPath))
	}

	t.logger.Info("Transcribing via Whisper API", zap.String("file", audioPath))
	return t.requestTranscription(ctx, audioPath)
}
