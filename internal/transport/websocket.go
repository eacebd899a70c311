package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agent-fleettrack/internal/track"
)

const (
	redialBase = time.Second
	redialMax  = 30 * time.Second
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Websocket streams location events over a persistent connection,
// dialing with the access token as a bearer credential. Dropped
// connections redial with backoff until Disconnect is called.
type Websocket struct {
	endpoint string

	mu     sync.Mutex
	conn   *websocket.Conn
	token  string
	events track.TransportEvents
	closed bool
}

func NewWebsocket(endpoint string) *Websocket {
	return &Websocket{endpoint: endpoint}
}

func (w *Websocket) Connect(ctx context.Context, token string, events track.TransportEvents) error {
	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return nil
	}
	w.token = token
	w.events = events
	w.closed = false
	w.mu.Unlock()

	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	go w.readLoop(conn)
	return nil
}

func (w *Websocket) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+w.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.endpoint, header)
	return conn, err
}

func (w *Websocket) Disconnect() {
	w.mu.Lock()
	w.closed = true
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (w *Websocket) SendLocation(vehicleID string, s track.Sample) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}

	data, err := json.Marshal(payloadFrom(vehicleID, s))
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{Event: "sendLocation", Data: data})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return errors.New("websocket not connected")
	}
	return w.conn.WriteMessage(websocket.TextMessage, msg)
}

// readLoop surfaces server-pushed error events and triggers the redial
// loop when the connection drops.
func (w *Websocket) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.handleDrop(err)
			return
		}

		var ev envelope
		if json.Unmarshal(msg, &ev) != nil {
			continue
		}
		if ev.Event == "error" {
			w.mu.Lock()
			onError := w.events.OnError
			w.mu.Unlock()
			if onError != nil {
				onError(errors.New(string(ev.Data)))
			}
		}
	}
}

func (w *Websocket) handleDrop(err error) {
	w.mu.Lock()
	closed := w.closed
	onDisconnect := w.events.OnDisconnect
	w.conn = nil
	w.mu.Unlock()

	if closed {
		return
	}
	if onDisconnect != nil {
		onDisconnect(err.Error())
	}
	go w.redial()
}

func (w *Websocket) redial() {
	backoff := redialBase
	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		onConnect := w.events.OnConnect
		w.mu.Unlock()

		conn, err := w.dial(context.Background())
		if err == nil {
			w.mu.Lock()
			if w.closed {
				w.mu.Unlock()
				_ = conn.Close()
				return
			}
			w.conn = conn
			w.mu.Unlock()
			go w.readLoop(conn)
			if onConnect != nil {
				onConnect()
			}
			return
		}

		time.Sleep(backoff)
		if backoff < redialMax {
			backoff *= 2
		}
	}
}
