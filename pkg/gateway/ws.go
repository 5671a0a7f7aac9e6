package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/httputil"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For early development we accept any origin; tighten later.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// jobWebsocketHandler upgrades to WS and streams job state snapshots to the
// client until the job reaches a terminal state or the client goes away.
func (g *Gateway) jobWebsocketHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := g.jobs.Get(id); !ok {
		httputil.WriteError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("Job ws: upgrade failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := g.jobs.Watch(id)
	defer cancel()

	// Snapshot after subscribing: a terminal transition between the two
	// would otherwise never reach this watcher.
	job, ok := g.jobs.Get(id)
	if !ok {
		return
	}

	// Reader loop only notices client disconnects; inbound frames are
	// discarded.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeSnapshot := func(j Job) bool {
		conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
		if err := conn.WriteJSON(j); err != nil {
			return false
		}
		return true
	}

	// Send the current state first so late subscribers see something
	// immediately.
	if !writeSnapshot(job) {
		return
	}
	if job.State == JobDone || job.State == JobFailed {
		g.closeWS(conn)
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case j, ok := <-updates:
			if !ok {
				return
			}
			if !writeSnapshot(j) {
				return
			}
			if j.State == JobDone || j.State == JobFailed {
				g.closeWS(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (g *Gateway) closeWS(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
}
