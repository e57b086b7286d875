// Package broadcast serves the WebSocket state feed and the HTTP API.
package broadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/lucsky/cuid"
	"github.com/rs/cors"

	"github.com/presencelamp/presencelamp-go/internal/engine"
	"github.com/presencelamp/presencelamp-go/internal/services/pubsub"
)

// Handler is the engine surface the hub drives.
type Handler interface {
	HandleCommand(cmd engine.Command)
	Snapshot() engine.Snapshot
}

// client is one connected WebSocket dashboard.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts snapshots to WebSocket clients and accepts commands.
type Hub struct {
	mu sync.RWMutex

	handler Handler
	ps      *pubsub.PubSub
	clients map[string]*client

	upgrader websocket.Upgrader

	corsOrigin string
	devMode    bool

	stopChan chan struct{}
	running  bool
}

// NewHub creates a broadcast hub.
func NewHub(handler Handler, ps *pubsub.PubSub, corsOrigin string, devMode bool) *Hub {
	return &Hub{
		handler: handler,
		ps:      ps,
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		corsOrigin: corsOrigin,
		devMode:    devMode,
		stopChan:   make(chan struct{}),
	}
}

// Start begins pumping snapshot broadcasts to connected clients.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.pumpSnapshots()
}

// Stop disconnects all clients and stops the pump. It only closes the
// underlying connections; each client's send channel is closed by its own
// readLoop via removeClient, so in-flight replies never hit a closed channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopChan)

	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	log.Printf("🔌 Broadcast hub stopped")
}

// Router builds the HTTP routes.
func (h *Hub) Router() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{h.corsOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            h.devMode,
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", h.handleHealth)
	router.Get("/api/state", h.handleGetState)
	router.Post("/api/command", h.handlePostCommand)
	router.Get("/ws", h.handleWebSocket)

	return router
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Hub) handleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.handler.Snapshot())
}

// handlePostCommand accepts one command as JSON. Malformed bodies get a 400;
// unknown actions are accepted and ignored, matching the engine's policy.
func (h *Hub) handlePostCommand(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command body", http.StatusBadRequest)
		return
	}

	if cmd.Action == "getstate" {
		h.handleGetState(w, r)
		return
	}

	h.handler.HandleCommand(cmd)
	w.WriteHeader(http.StatusAccepted)
}

// handleWebSocket upgrades the connection and registers the client.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("🔌 WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   cuid.New(),
		conn: conn,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("🔌 WebSocket client connected (%d total)", count)

	// New clients get the current state immediately.
	if payload, err := json.Marshal(h.handler.Snapshot()); err == nil {
		c.send <- payload
	}

	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop consumes client messages: JSON commands, with getstate answered
// to the requesting client only.
func (h *Hub) readLoop(c *client) {
	defer h.removeClient(c)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd engine.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			// Malformed input is dropped silently.
			continue
		}

		if cmd.Action == "getstate" {
			if reply, err := json.Marshal(h.handler.Snapshot()); err == nil {
				select {
				case c.send <- reply:
				default:
				}
			}
			continue
		}

		h.handler.HandleCommand(cmd)
	}
}

func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	log.Printf("🔌 WebSocket client disconnected (%d total)", count)
}

// pumpSnapshots forwards snapshot broadcasts to every connected client.
func (h *Hub) pumpSnapshots() {
	sub := h.ps.Subscribe(pubsub.TopicSnapshot, 16)
	defer h.ps.Unsubscribe(sub)

	for {
		select {
		case <-h.stopChan:
			return
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			snap, ok := msg.(engine.Snapshot)
			if !ok {
				continue
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			h.broadcast(payload)
		}
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow client: drop the frame rather than block the pump.
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
