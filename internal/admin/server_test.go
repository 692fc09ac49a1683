package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/stage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthzReadyStage(t *testing.T) {
	st := stage.NewStage(1, "test-stage", "opt")
	srv := NewServer(st, "127.0.0.1:0", time.Second)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, false, body["interrupted"])
}

func TestHandleHealthzUnreadyStageReturns503(t *testing.T) {
	st := &stage.Stage{}
	srv := NewServer(st, "127.0.0.1:0", time.Second)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleStatsStreamPushesSnapshots(t *testing.T) {
	st := stage.NewStage(2, "test-stage", "opt")
	srv := NewServer(st, "127.0.0.1:0", 20*time.Millisecond)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot map[string]any
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.EqualValues(t, 2, snapshot["channels"])
	assert.Equal(t, true, snapshot["ready"])
}
