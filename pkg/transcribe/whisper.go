package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cruxrec/cruxrec/pkg/errors"
)

// transcriptionResponse is the relevant subset of the Whisper API reply.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// requestTranscription uploads the audio file as multipart form data to the
// transcription endpoint and returns the recognized text.
func (t *Transcriber) requestTranscription(ctx context.Context, audioPath string) (string, error) {
	key, err := t.apiKey()
	if err != nil {
		return "", err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	if err := mw.WriteField("model", t.cfg.Model); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.APIBase, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.NewUpstreamError("whisper", "transcription request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.NewUpstreamError("whisper", strings.TrimSpace(string(msg)), resp.StatusCode, nil)
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", errors.ErrNoTranscript
	}
	return parsed.Text, nil
}
