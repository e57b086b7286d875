package broadcast

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencelamp/presencelamp-go/internal/engine"
	"github.com/presencelamp/presencelamp-go/internal/services/pubsub"
)

type fakeHandler struct {
	mu       sync.Mutex
	commands []engine.Command
	snapshot engine.Snapshot
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		snapshot: engine.Snapshot{Mode: "breath", Brightness: 200},
	}
}

func (f *fakeHandler) HandleCommand(cmd engine.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeHandler) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeHandler) commandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func newTestHub() (*Hub, *fakeHandler, *pubsub.PubSub) {
	handler := newFakeHandler()
	ps := pubsub.New()
	hub := NewHub(handler, ps, "http://localhost:3000", false)
	return hub, handler, ps
}

func TestHealthEndpoint(t *testing.T) {
	hub, _, _ := newTestHub()
	server := httptest.NewServer(hub.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetState(t *testing.T) {
	hub, _, _ := newTestHub()
	server := httptest.NewServer(hub.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "breath", snap.Mode)
	assert.Equal(t, 200, snap.Brightness)
}

func TestPostCommand(t *testing.T) {
	hub, handler, _ := newTestHub()
	server := httptest.NewServer(hub.Router())
	defer server.Close()

	body := bytes.NewBufferString(`{"action": "setcolor", "value": "#1A2B3C"}`)
	resp, err := http.Post(server.URL+"/api/command", "application/json", body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 1, handler.commandCount())
	assert.Equal(t, engine.Command{Action: "setcolor", Value: "#1A2B3C"}, handler.commands[0])
}

func TestPostCommandMalformedBody(t *testing.T) {
	hub, handler, _ := newTestHub()
	server := httptest.NewServer(hub.Router())
	defer server.Close()

	body := bytes.NewBufferString(`{not json`)
	resp, err := http.Post(server.URL+"/api/command", "application/json", body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, handler.commandCount())
}

func TestPostCommandGetStateAnswersInline(t *testing.T) {
	hub, handler, _ := newTestHub()
	server := httptest.NewServer(hub.Router())
	defer server.Close()

	body := bytes.NewBufferString(`{"action": "getstate"}`)
	resp, err := http.Post(server.URL+"/api/command", "application/json", body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "breath", snap.Mode)
	assert.Equal(t, 0, handler.commandCount(), "getstate never reaches the engine")
}

func wsURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

func TestWebSocketReceivesInitialSnapshot(t *testing.T) {
	hub, _, _ := newTestHub()
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub.Router())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, "breath", snap.Mode)
}

func TestWebSocketBroadcastsSnapshots(t *testing.T) {
	hub, _, ps := newTestHub()
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub.Router())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // initial snapshot
	require.NoError(t, err)

	// The pump subscribes asynchronously on Start; give it a beat.
	time.Sleep(50 * time.Millisecond)
	ps.Publish(pubsub.TopicSnapshot, engine.Snapshot{Mode: "night", Brightness: 40})

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, "night", snap.Mode)
	assert.Equal(t, 40, snap.Brightness)
}

func TestWebSocketCommands(t *testing.T) {
	hub, handler, _ := newTestHub()
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub.Router())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // initial snapshot
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action": "setmode", "value": "night"}`)))

	deadline := time.Now().Add(2 * time.Second)
	for handler.commandCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, handler.commandCount())
	assert.Equal(t, "setmode", handler.commands[0].Action)

	// Malformed frames are dropped without killing the connection.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{bad")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action": "getstate"}`)))

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, "breath", snap.Mode)
}

func TestStopWithBusyClient(t *testing.T) {
	hub, _, _ := newTestHub()
	hub.Start()

	server := httptest.NewServer(hub.Router())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // initial snapshot
	require.NoError(t, err)

	// Keep the read loop replying to getstate while Stop tears down the
	// connections. Replies race the shutdown and must never panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"action": "getstate"}`)); err != nil {
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Stop()
	<-done

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestClientCountTracksConnections(t *testing.T) {
	hub, _, _ := newTestHub()
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub.Router())
	defer server.Close()

	assert.Equal(t, 0, hub.ClientCount())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, hub.ClientCount())

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}
