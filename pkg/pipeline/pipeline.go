// Package pipeline wires the subtitle, transcription, and summarization
// services into the end-to-end flow: fetch subtitles, fall back to audio
// transcription, then summarize.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/cache"
	"github.com/cruxrec/cruxrec/pkg/config"
	crerrors "github.com/cruxrec/cruxrec/pkg/errors"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
	"github.com/cruxrec/cruxrec/pkg/subtitles"
	"github.com/cruxrec/cruxrec/pkg/summarize"
	"github.com/cruxrec/cruxrec/pkg/transcribe"
)

// Stage identifies the step a running pipeline is in. Stages are reported
// to the progress observer in order.
type Stage string

const (
	StageSubtitles  Stage = "fetching_subtitles"
	StageTranscribe Stage = "transcribing"
	StageSummarize  Stage = "summarizing"
	StageDone       Stage = "done"
)

// Observer receives stage transitions from a running pipeline. A nil
// observer is valid.
type Observer func(stage Stage, detail string)

// SubtitleFetcher fetches subtitle text for a video URL.
type SubtitleFetcher interface {
	Fetch(ctx context.Context, url, lang string, autoSub bool) (string, error)
}

// Transcriber produces a transcript from a video URL.
type Transcriber interface {
	TranscribeFromURL(ctx context.Context, url string) (string, error)
}

// Summarizer condenses a transcript into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, transcript string) (string, error)
}

// keyChecker is implemented by services that can verify their credentials
// up front, before the pipeline does any expensive work.
type keyChecker interface {
	CheckKey() error
}

// Pipeline runs the subtitles -> transcription -> summary flow for one or
// more requests. It is safe for concurrent use.
type Pipeline struct {
	cfg        *config.Config
	subs       SubtitleFetcher
	transcribe Transcriber
	summarize  Summarizer
	store      *cache.Cache
	logger     *zap.Logger
}

// New builds a pipeline from the application configuration, constructing
// the real service clients.
func New(cfg *config.Config, store *cache.Cache) *Pipeline {
	proxy := proxyclient.New(cfg.Proxy.Address, cfg.Proxy.Disabled)
	return &Pipeline{
		cfg:        cfg,
		subs:       subtitles.NewProvider(cfg.Subtitles, proxy),
		transcribe: transcribe.New(cfg.Transcriber, proxy),
		summarize:  summarize.New(cfg.Summarizer, proxy),
		store:      store,
		logger:     logging.GetLogger("services"),
	}
}

// NewWithServices builds a pipeline from caller-supplied services. Used by
// tests and by embedders that bring their own clients.
func NewWithServices(cfg *config.Config, subs SubtitleFetcher, tr Transcriber, sum Summarizer, store *cache.Cache) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		subs:       subs,
		transcribe: tr,
		summarize:  sum,
		store:      store,
		logger:     logging.GetLogger("services"),
	}
}

// Request describes one summarization run.
type Request struct {
	URL     string
	Prompt  string
	Lang    string // empty uses the configured default
	AutoSub bool
}

// Result carries the pipeline output along with provenance flags.
type Result struct {
	Summary       string
	Transcript    string
	FromCache     bool // summary served from cache
	Transcribed   bool // transcript came from audio transcription
	TranscriptHit bool // transcript served from cache
}

// Run executes the full flow for a request. The observer, when non-nil, is
// told about each stage transition.
func (p *Pipeline) Run(ctx context.Context, req Request, observe Observer) (*Result, error) {
	if observe == nil {
		observe = func(Stage, string) {}
	}
	p.logger.Debug("Pipeline started", zap.String("url", req.URL))

	if summary, ok, err := p.store.GetSummary(ctx, req.URL, req.Prompt); err != nil {
		p.logger.Warn("Summary cache lookup failed", zap.Error(err))
	} else if ok {
		observe(StageDone, "summary served from cache")
		return &Result{Summary: summary, FromCache: true}, nil
	}

	// Fail on a missing key before downloading anything.
	if kc, ok := p.summarize.(keyChecker); ok {
		if err := kc.CheckKey(); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	transcript, err := p.obtainTranscript(ctx, req, res, observe)
	if err != nil {
		return nil, err
	}
	res.Transcript = transcript

	observe(StageSummarize, "")
	summary, err := p.summarize.Summarize(ctx, req.Prompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("summarize transcript: %w", err)
	}
	res.Summary = summary

	if err := p.store.PutSummary(ctx, req.URL, req.Prompt, summary); err != nil {
		p.logger.Warn("Failed to cache summary", zap.Error(err))
	}

	observe(StageDone, "")
	return res, nil
}

// Transcript runs only the transcript-producing half of the flow.
func (p *Pipeline) Transcript(ctx context.Context, req Request, observe Observer) (*Result, error) {
	if observe == nil {
		observe = func(Stage, string) {}
	}

	res := &Result{}
	transcript, err := p.obtainTranscript(ctx, req, res, observe)
	if err != nil {
		return nil, err
	}
	res.Transcript = transcript
	observe(StageDone, "")
	return res, nil
}

// obtainTranscript finds transcript text for the request: cache, then
// subtitles, then audio transcription.
func (p *Pipeline) obtainTranscript(ctx context.Context, req Request, res *Result, observe Observer) (string, error) {
	if transcript, ok, err := p.store.GetTranscript(ctx, req.URL); err != nil {
		p.logger.Warn("Transcript cache lookup failed", zap.Error(err))
	} else if ok {
		res.TranscriptHit = true
		return transcript, nil
	}

	lang := req.Lang
	if lang == "" {
		lang = p.cfg.Subtitles.Language
	}

	observe(StageSubtitles, "")
	transcript, err := p.subs.Fetch(ctx, req.URL, lang, req.AutoSub)
	switch {
	case err == nil:
		// subtitles found
	case errors.Is(err, crerrors.ErrNoSubtitles):
		p.logger.Warn("Failed to retrieve subtitles, falling back to transcription",
			zap.String("url", req.URL))
		observe(StageTranscribe, "no subtitles available")
		transcript, err = p.transcribe.TranscribeFromURL(ctx, req.URL)
		if err != nil {
			return "", fmt.Errorf("transcribe video: %w", err)
		}
		res.Transcribed = true
	default:
		return "", fmt.Errorf("fetch subtitles: %w", err)
	}

	if transcript == "" {
		return "", crerrors.ErrNoTranscript
	}

	if err := p.store.PutTranscript(ctx, req.URL, transcript); err != nil {
		p.logger.Warn("Failed to cache transcript", zap.Error(err))
	}
	return transcript, nil
}
