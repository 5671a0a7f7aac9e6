package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/cache"
	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/pipeline"
)

type stubSubs struct {
	text string
	gate chan struct{} // when set, Fetch blocks until closed
}

func (s *stubSubs) Fetch(ctx context.Context, url, lang string, autoSub bool) (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	return s.text, nil
}

type stubTranscriber struct{}

func (s *stubTranscriber) TranscribeFromURL(ctx context.Context, url string) (string, error) {
	return "", nil
}

type stubSummarizer struct{ text string }

func (s *stubSummarizer) Summarize(ctx context.Context, prompt, transcript string) (string, error) {
	return s.text, nil
}

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	store, err := cache.Open(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	pipe := pipeline.NewWithServices(config.DefaultConfig(),
		&stubSubs{text: "transcript"}, &stubTranscriber{}, &stubSummarizer{text: "summary"}, store)
	return New(config.GatewayConfig{Enabled: true, ListenAddr: "127.0.0.1:0", MaxJobs: 2}, pipe, store)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodGet, "/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["cache_enabled"] != false {
		t.Errorf("cache_enabled = %v, want false", body["cache_enabled"])
	}
	if _, ok := body["jobs"]; !ok {
		t.Errorf("jobs count missing from %v", body)
	}
}

func TestSubmitValidation(t *testing.T) {
	g := testGateway(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing url", "/v1/summarize", `{"prompt":"p"}`},
		{"missing prompt", "/v1/summarize", `{"url":"https://youtu.be/x"}`},
		{"unknown field", "/v1/summarize", `{"url":"u","prompt":"p","bogus":1}`},
		{"not json", "/v1/summarize", `nope`},
		{"transcribe missing url", "/v1/transcribe", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, g.Router(), http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTranscribeDoesNotRequirePrompt(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodPost, "/v1/transcribe", `{"url":"https://youtu.be/x"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	g.jobs.Wait()
}

func TestJobLifecycle(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodPost, "/v1/summarize",
		`{"url":"https://youtu.be/x","prompt":"tl;dr"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	var submitted Job
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if submitted.ID == "" || submitted.Kind != JobSummarize {
		t.Fatalf("got job %+v", submitted)
	}

	g.jobs.Wait()

	rec = doJSON(t, g.Router(), http.MethodGet, "/v1/jobs/"+submitted.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("job status = %d", rec.Code)
	}
	var job Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.State != JobDone {
		t.Errorf("state = %q, want done (error: %s)", job.State, job.Error)
	}
	if job.Result == nil || job.Result.Summary != "summary" {
		t.Errorf("result = %+v", job.Result)
	}

	rec = doJSON(t, g.Router(), http.MethodGet, "/v1/jobs", "")
	var list struct {
		Jobs []Job `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 {
		t.Errorf("job list = %+v", list.Jobs)
	}
}

func TestSubmitReturnsSnapshot(t *testing.T) {
	g := testGateway(t)

	job := g.jobs.Submit(context.Background(), JobSummarize,
		pipeline.Request{URL: "https://youtu.be/x", Prompt: "p"})
	g.jobs.Wait()

	// The returned value must be detached from the job goroutine's copy.
	if job.State != JobQueued {
		t.Errorf("submitted snapshot mutated to %q", job.State)
	}
	stored, ok := g.jobs.Get(job.ID)
	if !ok || stored.State != JobDone {
		t.Errorf("stored job = %+v", stored)
	}
}

func TestWatcherCancelDuringUpdates(t *testing.T) {
	m := newJobManager(nil, 1, zap.NewNop())
	m.jobs["x"] = &Job{ID: "x", State: JobRunning}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Hammer updates against watchers subscribing and canceling; a send
	// racing a close would panic the updater goroutine.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.update("x", func(j *Job) { j.Stage = "spin" })
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					ch, cancel := m.Watch("x")
					select {
					case <-ch:
					default:
					}
					cancel()
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestJobWebsocketDeliversTerminalState(t *testing.T) {
	g := testGateway(t)

	job := g.jobs.Submit(context.Background(), JobSummarize,
		pipeline.Request{URL: "https://youtu.be/x", Prompt: "p"})
	g.jobs.Wait()

	srv := httptest.NewServer(g.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/jobs/" + job.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The job finished before we connected; the first snapshot must still
	// carry the terminal state.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap Job
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.State != JobDone {
		t.Errorf("state = %q, want done", snap.State)
	}
	if snap.Result == nil || snap.Result.Summary != "summary" {
		t.Errorf("result = %+v", snap.Result)
	}

	if err := conn.ReadJSON(&snap); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal closure after terminal snapshot, got %v", err)
	}
}

func TestCachePurgeEndpoint(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodPost, "/v1/cache/purge", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestJobNotFound(t *testing.T) {
	g := testGateway(t)

	rec := doJSON(t, g.Router(), http.MethodGet, "/v1/jobs/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWatchReceivesUpdates(t *testing.T) {
	store, err := cache.Open(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	subs := &stubSubs{text: "transcript", gate: make(chan struct{})}
	pipe := pipeline.NewWithServices(config.DefaultConfig(),
		subs, &stubTranscriber{}, &stubSummarizer{text: "summary"}, store)
	g := New(config.GatewayConfig{Enabled: true, ListenAddr: "127.0.0.1:0", MaxJobs: 2}, pipe, store)

	job := g.jobs.Submit(context.Background(), JobSummarize,
		pipeline.Request{URL: "https://youtu.be/x", Prompt: "p"})

	// Subscribe while the pipeline is parked in the subtitle fetch, then
	// let it run to completion.
	updates, cancel := g.jobs.Watch(job.ID)
	defer cancel()
	close(subs.gate)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.State == JobDone {
				if snap.Result == nil || snap.Result.Summary != "summary" {
					t.Fatalf("done snapshot missing result: %+v", snap)
				}
				return
			}
			if snap.State == JobFailed {
				t.Fatalf("job failed: %s", snap.Error)
			}
		case <-deadline:
			t.Fatalf("no done update received")
		}
	}
}
