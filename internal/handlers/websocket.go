package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"rapports-sync/internal/interfaces"
	"rapports-sync/internal/syncer"
)

// WebSocketHub manages UI connections. It streams sync progress out and
// routes sub-project selection answers back to their pending prompts.
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     arbor.ILogger

	pending   map[string]chan selectionAnswer
	pendingMu sync.Mutex
}

type selectionAnswer struct {
	Value     string
	Cancelled bool
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(logger arbor.ILogger) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
		pending:    make(map[string]chan selectionAnswer),
	}
	go hub.run()
	return hub
}

// run manages client connections and broadcasts
func (h *WebSocketHub) run() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.Debug().Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			h.logger.Debug().Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn().Err(err).Msg("Failed to send WebSocket message")
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()

		case <-ticker.C:
			h.send(map[string]interface{}{"type": "status", "status": "online"})
		}
	}
}

func (h *WebSocketHub) send(msg map[string]interface{}) {
	msg["timestamp"] = time.Now().Unix()
	data, _ := json.Marshal(msg)
	h.broadcast <- data
}

// SendProgress broadcasts one operator-facing status line.
func (h *WebSocketHub) SendProgress(message string) {
	h.send(map[string]interface{}{"type": "progress", "message": message})
}

// SendReport broadcasts the final tally of a run.
func (h *WebSocketHub) SendReport(report *interfaces.SyncReport) {
	h.send(map[string]interface{}{"type": "report", "report": report})
}

// RunGate forwards disambiguation requests from the sync pipeline to the
// connected UI and feeds the answers back. Call in a goroutine; returns
// when ctx ends.
func (h *WebSocketHub) RunGate(ctx context.Context, gate *syncer.Gate) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-gate.Requests():
			answer, err := h.promptSelection(ctx, req)
			if err != nil || answer.Cancelled {
				req.Cancel()
				continue
			}
			req.Resolve(answer.Value)
		}
	}
}

// promptSelection pushes a selection prompt to the UI and waits for the
// matching answer. The wait is unbounded; only the operator or context
// cancellation ends it.
func (h *WebSocketHub) promptSelection(ctx context.Context, req *syncer.SelectionRequest) (selectionAnswer, error) {
	id := uuid.NewString()
	answers := make(chan selectionAnswer, 1)

	h.pendingMu.Lock()
	h.pending[id] = answers
	h.pendingMu.Unlock()

	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, id)
		h.pendingMu.Unlock()
	}()

	h.send(map[string]interface{}{
		"type":       "select_subproject",
		"id":         id,
		"keyword":    req.Keyword,
		"candidates": req.Candidates,
		"default":    req.Default().Value,
	})

	select {
	case answer := <-answers:
		return answer, nil
	case <-ctx.Done():
		return selectionAnswer{}, ctx.Err()
	}
}

type inboundMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Value     string `json:"value"`
	Cancelled bool   `json:"cancelled"`
}

func (h *WebSocketHub) handleInbound(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn().Err(err).Msg("Unreadable WebSocket message")
		return
	}

	if msg.Type != "select_response" {
		return
	}

	h.pendingMu.Lock()
	answers, ok := h.pending[msg.ID]
	h.pendingMu.Unlock()
	if !ok {
		h.logger.Warn().Str("id", msg.ID).Msg("Selection answer for unknown prompt")
		return
	}

	answers <- selectionAnswer{Value: msg.Value, Cancelled: msg.Cancelled}
}

// Upgrader for WebSocket connections
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local UI only
	},
}

// WebSocketHandler handles WebSocket connection requests
func (h *WebSocketHub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.register <- conn

	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleInbound(data)
		}
	}()
}
