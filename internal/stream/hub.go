package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is the envelope sent to local UI clients: "state" snapshots,
// "sent" records, and "notice" messages.
type Event struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     time.Time       `json:"at"`
	Origin string          `json:"origin,omitempty"`
}

// Hub fans tracker events out to the driver UI websocket clients. With
// a redis client configured, events are also bridged over pub/sub so a
// co-located dashboard process can follow the same session. The origin
// id keeps a hub from re-broadcasting its own bridged events.
type Hub struct {
	redis     *redis.Client
	vehicleID string
	origin    string
	clients   map[*Client]struct{}
	mu        sync.RWMutex
}

type Client struct {
	Send chan []byte
}

func NewHub(redisClient *redis.Client, vehicleID string) *Hub {
	h := &Hub{
		redis:     redisClient,
		vehicleID: vehicleID,
		origin:    uuid.NewString(),
		clients:   map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register() *Client {
	client := &Client{Send: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// Publish implements the tracker's Notifier.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg, err := json.Marshal(Event{Event: event, Data: data, At: time.Now(), Origin: h.origin})
	if err != nil {
		return
	}
	h.broadcast(msg)

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), h.channel(), msg).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- msg:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	pubsub := h.redis.Subscribe(context.Background(), h.channel())
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		if ev.Origin == h.origin {
			continue
		}
		h.broadcast([]byte(msg.Payload))
	}
}

func (h *Hub) channel() string {
	return "fleettrack:" + h.vehicleID + ":events"
}
