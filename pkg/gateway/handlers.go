package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/memory"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/httputil"
	"github.com/cruxrec/cruxrec/pkg/pipeline"
)

// submitRequest is the body of POST /v1/summarize and /v1/transcribe.
type submitRequest struct {
	URL     string `json:"url"`
	Prompt  string `json:"prompt,omitempty"`
	Lang    string `json:"lang,omitempty"`
	AutoSub bool   `json:"auto_sub,omitempty"`
}

func (r *submitRequest) validate(needPrompt bool) string {
	if strings.TrimSpace(r.URL) == "" {
		return "missing 'url'"
	}
	if needPrompt && strings.TrimSpace(r.Prompt) == "" {
		return "missing 'prompt'"
	}
	return ""
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(g.started).String(),
	})
}

// statusHandler reports process health plus host CPU and memory usage.
func (g *Gateway) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":        "ok",
		"uptime":        time.Since(g.started).String(),
		"jobs":          len(g.jobs.List()),
		"cache_enabled": g.store.Enabled(),
	}

	if mem, err := memory.Get(); err == nil {
		status["memory_used_percent"] = float64(mem.Used) / float64(mem.Total) * 100
	}
	if usage, err := cpuUsagePercent(500 * time.Millisecond); err == nil {
		status["cpu_used_percent"] = usage
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}

// cpuUsagePercent samples CPU counters over the interval.
func cpuUsagePercent(interval time.Duration) (float64, error) {
	before, err := cpu.Get()
	if err != nil {
		return 0, err
	}
	time.Sleep(interval)
	after, err := cpu.Get()
	if err != nil {
		return 0, err
	}
	total := float64(after.Total - before.Total)
	if total == 0 {
		return 0, nil
	}
	idle := float64(after.Idle - before.Idle)
	return (1.0 - idle/total) * 100.0, nil
}

func (g *Gateway) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	g.submit(w, r, JobSummarize, true)
}

func (g *Gateway) transcribeHandler(w http.ResponseWriter, r *http.Request) {
	g.submit(w, r, JobTranscribe, false)
}

func (g *Gateway) submit(w http.ResponseWriter, r *http.Request, kind JobKind, needPrompt bool) {
	var req submitRequest
	if err := httputil.DecodeJSONStrict(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if msg := req.validate(needPrompt); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	// Jobs outlive the submitting request, so they run on the server's
	// base context rather than the request context.
	job := g.jobs.Submit(g.baseContext(), kind, pipeline.Request{
		URL:     req.URL,
		Prompt:  req.Prompt,
		Lang:    req.Lang,
		AutoSub: req.AutoSub,
	})
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

// baseContext returns the context background jobs should run on.
func (g *Gateway) baseContext() context.Context {
	if g.server != nil {
		return g.server.BaseContext(nil)
	}
	return context.Background()
}

func (g *Gateway) cachePurgeHandler(w http.ResponseWriter, r *http.Request) {
	n, err := g.store.Purge(r.Context())
	if err != nil {
		g.logger.Error("Cache purge failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}
	g.logger.Info("Cache purged via API", zap.Int64("rows", n))
	httputil.WriteSuccess(w)
}

func (g *Gateway) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"jobs": g.jobs.List()})
}

func (g *Gateway) jobHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := g.jobs.Get(id)
	if !ok {
		g.logger.Debug("Job not found", zap.String("job_id", id))
		httputil.WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}
