// Package admin exposes the stage's observability surface over HTTP: a
// Prometheus /metrics endpoint, a /healthz probe, and a /stats/stream
// WebSocket feed of periodic snapshots (channel count and ready flag), for
// operators who don't want to scrape Prometheus on a timer to watch a stage
// during a rollout.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsrhaslab/paio-stage/internal/stage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves the stage's admin HTTP surface.
type Server struct {
	st           *stage.Stage
	httpServer   *http.Server
	streamPeriod time.Duration
}

// NewServer constructs an admin Server bound to listenAddr, streaming
// channel statistics every streamPeriod to connected WebSocket clients.
func NewServer(st *stage.Stage, listenAddr string, streamPeriod time.Duration) *Server {
	s := &Server{st: st, streamPeriod: streamPeriod}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/stats/stream", s.handleStatsStream).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.httpServer = &http.Server{Addr: listenAddr, Handler: r}
	return s
}

// ListenAndServe blocks serving the admin surface until the server is shut
// down or an error other than http.ErrServerClosed occurs.
func (s *Server) ListenAndServe() error {
	slog.Info("admin: listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the admin HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.st.IsReady() || s.st.IsInterrupted() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ready":       s.st.IsReady(),
		"interrupted": s.st.IsInterrupted(),
	})
}

// handleStatsStream upgrades to a WebSocket and pushes a JSON snapshot of
// the stage's channel count every streamPeriod until the client
// disconnects.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("admin: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.streamPeriod)
	defer ticker.Stop()

	for range ticker.C {
		snapshot := map[string]any{
			"channels":  s.st.Core().ChannelCount(),
			"ready":     s.st.IsReady(),
			"timestamp": fmt.Sprintf("%d", time.Now().UnixMilli()),
		}
		if err := conn.WriteJSON(snapshot); err != nil {
			slog.Debug("admin: stats stream client disconnected", "error", err)
			return
		}
	}
}
