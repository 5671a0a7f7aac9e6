// Package summarize turns a transcript into a summary using the Gemini
// generateContent API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/errors"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
)

// Client calls the Gemini API to summarize text.
type Client struct {
	cfg    config.SummarizerConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a summarizer client. HTTP traffic is routed through the proxy
// when one is enabled.
func New(cfg config.SummarizerConfig, proxy *proxyclient.Proxy) *Client {
	return &Client{
		cfg:    cfg,
		client: proxy.HTTPClient(cfg.Timeout.Std()),
		logger: logging.GetLogger("services"),
	}
}

// apiKey resolves the Gemini API key from config or environment.
func (c *Client) apiKey() (string, error) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	if key := os.Getenv("GEMINI_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: set GEMINI_KEY or summarizer.api_key", errors.ErrMissingAPIKey)
}

// CheckKey reports whether an API key is available, without any network
// traffic. Used as a preflight before the expensive pipeline stages.
func (c *Client) CheckKey() error {
	_, err := c.apiKey()
	return err
}

// Request/response shapes for the generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize sends the prompt and transcript to Gemini and returns the
// generated summary.
func (c *Client) Summarize(ctx context.Context, prompt, transcript string) (string, error) {
	key, err := c.apiKey()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", errors.ErrNoTranscript
	}

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt + "\n\n" + transcript}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode summarize request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.APIBase, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	c.logger.Debug("Requesting summary",
		zap.String("model", c.cfg.Model),
		zap.Int("transcript_chars", len(transcript)))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewUpstreamError("gemini", "summarize request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.NewUpstreamError("gemini", strings.TrimSpace(string(msg)), resp.StatusCode, nil)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.NewUpstreamError("gemini", "empty response, no candidates returned", resp.StatusCode, nil)
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	summary := strings.TrimSpace(sb.String())
	c.logger.Info("Summary generated", zap.Int("chars", len(summary)))
	return summary, nil
}
