package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cwsl/rfdecode"
)

const feedBacklog = 100

// FeedHandler broadcasts decoded messages to websocket clients. New clients
// receive the recent backlog first, then live messages as they arrive.
type FeedHandler struct {
	clients   map[*websocket.Conn]*sync.Mutex // each connection has its own write mutex
	clientsMu sync.RWMutex

	backlog   []rfdecode.Message
	backlogMu sync.RWMutex

	upgrader websocket.Upgrader
}

// NewFeedHandler creates a feed handler with an empty backlog.
func NewFeedHandler() *FeedHandler {
	return &FeedHandler{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		backlog: make([]rfdecode.Message, 0, feedBacklog),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades one connection and replays the backlog to it.
func (h *FeedHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Feed] Upgrade failed: %v", err)
		return
	}

	mu := &sync.Mutex{}
	h.clientsMu.Lock()
	h.clients[conn] = mu
	h.clientsMu.Unlock()
	log.Printf("[Feed] Client connected: %s", conn.RemoteAddr())

	h.backlogMu.RLock()
	replay := make([]rfdecode.Message, len(h.backlog))
	copy(replay, h.backlog)
	h.backlogMu.RUnlock()
	for _, msg := range replay {
		if err := h.writeMessage(conn, mu, msg); err != nil {
			h.drop(conn)
			return
		}
	}

	// Reader loop exists only to detect disconnects; clients send nothing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// Broadcast sends one message to every connected client and appends it to
// the backlog.
func (h *FeedHandler) Broadcast(msg rfdecode.Message) {
	h.backlogMu.Lock()
	if len(h.backlog) >= feedBacklog {
		h.backlog = h.backlog[1:]
	}
	h.backlog = append(h.backlog, msg)
	h.backlogMu.Unlock()

	h.clientsMu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.clientsMu.RUnlock()

	for conn, mu := range conns {
		if err := h.writeMessage(conn, mu, msg); err != nil {
			h.drop(conn)
		}
	}
}

func (h *FeedHandler) writeMessage(conn *websocket.Conn, mu *sync.Mutex, msg rfdecode.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *FeedHandler) drop(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		log.Printf("[Feed] Client disconnected: %s", conn.RemoteAddr())
	}
	h.clientsMu.Unlock()
}

// Close disconnects all clients.
func (h *FeedHandler) Close() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
