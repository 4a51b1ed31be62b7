package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrichaudit/suppress/internal/suppress"
	"github.com/ostrichaudit/suppress/internal/telemetry/logging"
)

func testServer() *Server {
	return NewServer(logging.New(logging.Config{Level: logging.ErrorLevel}))
}

func TestHandleSuppress_Success(t *testing.T) {
	srv := testServer()
	req := suppressRequest{
		Rows: []suppress.InputRow{
			{"region": "north", "count": 3},
			{"region": "south", "count": 20},
		},
		Config: suppress.Config{Dimensions: []string{"region"}, Threshold: 11, IncidenceColumn: "count"},
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/suppress", bytes.NewReader(body))
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var out suppress.Output
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Stats.RedactedCells)
}

func TestHandleSuppress_InvalidConfigReturnsBadRequest(t *testing.T) {
	srv := testServer()
	req := suppressRequest{Config: suppress.Config{}}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/suppress", bytes.NewReader(body))
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSuppress_MalformedBodyReturnsBadRequest(t *testing.T) {
	srv := testServer()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/suppress", bytes.NewReader([]byte("not json")))
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSuppressStream_ReturnsResult(t *testing.T) {
	srv := testServer()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/v1/suppress/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	req := suppressRequest{
		Rows: []suppress.InputRow{
			{"region": "north", "count": 3},
			{"region": "south", "count": 20},
		},
		Config: suppress.Config{Dimensions: []string{"region"}, Threshold: 11, IncidenceColumn: "count"},
	}
	require.NoError(t, conn.WriteJSON(req))

	var first progressMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "progress", first.Type)

	var second progressMessage
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, "result", second.Type)
	require.NotNil(t, second.Result)
	assert.Equal(t, 1, second.Result.Stats.RedactedCells)
}

func TestHealthz(t *testing.T) {
	srv := testServer()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
