package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/richyrich98/dotanddot/internal/report"
	"github.com/richyrich98/dotanddot/internal/storage"
	"github.com/richyrich98/dotanddot/pkg/logger"
)

const redisChannel = "reports:feed"

// Hub fans submitted reports out to connected analyst clients. It also
// publishes every event to a redis channel so other server instances can
// relay it to their own clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	redis      storage.RedisClient
	logger     logger.Logger
	mu         sync.RWMutex
	ctx        context.Context
}

func NewHub(ctx context.Context, redisClient storage.RedisClient, log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		logger:     log,
		ctx:        ctx,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

// PublishReport implements report.Publisher. It never blocks the caller:
// if the hub's queue is full the event is dropped.
func (h *Hub) PublishReport(r *report.LocationReport) {
	select {
	case h.broadcast <- NewReportEvent(r):
	default:
		h.logger.Warn("feed queue full, dropping report event", "report_id", r.ID)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Debug("feed client connected", "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("feed client disconnected", "clients", len(h.clients))
	}
}

func (h *Hub) broadcastEvent(event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Publish for multi-server fan-out
	if data, err := json.Marshal(event); err == nil {
		h.redis.Publish(h.ctx, redisChannel, data)
	}

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Client's send channel is full, drop it
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
}
