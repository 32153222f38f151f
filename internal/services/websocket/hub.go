// Package websocket fans out logged tracking events to connected viewers.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"diettracker/internal/logger"
	"diettracker/internal/model"
)

// EventMessage is the payload pushed to viewers after a meal is logged.
type EventMessage struct {
	Type      string              `json:"type"`
	Event     model.TrackingEvent `json:"event"`
	Remaining float64             `json:"remaining"`
	Message   string              `json:"message"`
}

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run serves the hub until stop is closed, then disconnects every viewer.
func (h *HubService) Run(stop <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case <-stop:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	h.register <- client
}

func (h *HubService) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// Broadcast queues a raw message. A full queue drops the message rather
// than stalling the caller.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, dropping message")
	}
}

// BroadcastEvent announces a logged meal.
func (h *HubService) BroadcastEvent(event model.TrackingEvent, remaining float64, message string) {
	payload, err := json.Marshal(EventMessage{
		Type:      "event_logged",
		Event:     event,
		Remaining: remaining,
		Message:   message,
	})
	if err != nil {
		h.logger.Error("Failed to encode event for viewers: %v", err)
		return
	}
	h.Broadcast(payload)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
