package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dom/star-diary/internal/logging"
)

// Hub tracks connected feed clients and fans messages out to them.
// Membership changes go through Run; Broadcast only reads the set.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	log        logging.Logger
	mu         sync.RWMutex
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log.With("component", "feed"),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			watchers := len(h.clients)
			h.mu.Unlock()

			h.log.Info(context.Background(), "feed client connected", "user", client.username, "watchers", watchers)
			if msg, err := NewMessage(MessageTypeConnected, ConnectedPayload{
				UserID:   client.userID.String(),
				Username: client.username,
				Watchers: watchers,
			}); err == nil {
				client.Send(msg)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.Info(context.Background(), "feed client disconnected", "user", client.username)
			}
			h.mu.Unlock()
		}
	}
}

// Stop closes every client and waits for Run to return.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister is safe to call after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every client and returns how many accepted it.
// Clients whose send buffer is full are disconnected.
func (h *Hub) Broadcast(msg *Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error(context.Background(), "marshal feed message", "error", err)
		return 0
	}

	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.clients {
		if client.trySend(data) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn(context.Background(), "dropping slow feed client", "user", client.username)
		go h.Unregister(client)
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
