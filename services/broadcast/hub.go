// Package broadcast delivers incident events to connected staff over
// websockets. The hub owns all client registration and room membership;
// rooms are assigned server-side from the authenticated user's role.
package broadcast

import (
	"encoding/json"

	"github.com/interamericana/registro/core"
)

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	events     chan core.Event
	done       chan struct{}
	logger     core.Logger
}

var _ core.Broadcaster = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan core.Event, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run loops until Stop is called. It must run in its own goroutine; all
// map access happens here so clients and publishers never share locks.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			h.logger.Debug("ws client connected", map[string]interface{}{"client": client.id, "user": client.userID, "rooms": client.rooms})

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}

		case evt := <-h.events:
			h.dispatch(evt)

		case <-h.done:
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for delivery. It never blocks the caller: when
// the hub is saturated the event is dropped and logged.
func (h *Hub) Publish(evt core.Event) {
	select {
	case h.events <- evt:
	default:
		h.logger.Warn("ws event dropped, hub saturated", map[string]interface{}{"type": evt.Kind})
	}
}

func (h *Hub) dispatch(evt core.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshalling ws event", err)
		return
	}
	for id, client := range h.clients {
		if !evt.All && !client.inAny(evt.Rooms) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// slow consumer; drop it rather than stall the hub
			delete(h.clients, id)
			close(client.send)
		}
	}
}
