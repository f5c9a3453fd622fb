package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
)

// StateFunc returns the payload of a get_state request.
type StateFunc func() any

// Client represents a connected WebSocket client.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub manages WebSocket clients and bridges them to the event bus.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	bus         *events.Bus
	state       StateFunc
	unsubscribe func()
}

// NewHub creates a new WebSocket hub connected to an event bus.
func NewHub(bus *events.Bus, state StateFunc) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		bus:     bus,
		state:   state,
	}

	// Subscribe to all events and bridge to WS clients
	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		frame, err := NewEventFrame(string(e.Type), e)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.broadcast(data)
	})

	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends data to all connected clients.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("ws client too slow, frame dropped")
		}
	}
}

// register adds a client to the hub.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "clients", len(h.clients))
}

// unregister removes a client from the hub.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client disconnected", "clients", len(h.clients))
	}
}

// ServeWS handles a WebSocket upgrade and manages the client lifecycle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		c.handleFrame(frame)
	}
}

// handleFrame processes an incoming WS frame.
func (c *Client) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameTypeRequest:
		c.handleRequest(frame)
	default:
		slog.Debug("ws unknown frame type", "type", frame.Type)
	}
}

// handleRequest validates a request and publishes the matching input event.
func (c *Client) handleRequest(frame Frame) {
	switch Method(frame.Method) {
	case MethodSendMessage:
		var params SendMessageParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(frame.ID, "invalid params")
			return
		}
		if strings.TrimSpace(params.Content) == "" {
			c.sendError(frame.ID, "content is required")
			return
		}
		c.publish(events.UserMessagePayload{Content: params.Content})
		c.sendOK(frame.ID, map[string]string{"status": "sent"})

	case MethodSelectReply:
		var params SelectReplyParams
		if err := json.Unmarshal(frame.Params, &params); err != nil || params.ReplyID == "" {
			c.sendError(frame.ID, "reply_id is required")
			return
		}
		c.publish(events.UserReplyPayload{ReplyID: params.ReplyID})
		c.sendOK(frame.ID, map[string]string{"status": "sent"})

	case MethodSetDemo, MethodToggleDemo:
		var params DemoParams
		if len(frame.Params) > 0 {
			if err := json.Unmarshal(frame.Params, &params); err != nil {
				c.sendError(frame.ID, "invalid params")
				return
			}
		}
		if err := validScenario(params.Scenario); err != nil {
			c.sendError(frame.ID, err.Error())
			return
		}
		c.publish(events.DemoSetPayload{
			Scenario: params.Scenario,
			Toggle:   Method(frame.Method) == MethodToggleDemo,
		})
		c.sendOK(frame.ID, map[string]string{"status": "sent"})

	case MethodClear:
		c.publish(events.ConversationClearPayload{})
		c.sendOK(frame.ID, map[string]string{"status": "sent"})

	case MethodGetState:
		if c.hub.state == nil {
			c.sendError(frame.ID, "state not available")
			return
		}
		c.sendOK(frame.ID, c.hub.state())

	default:
		c.sendError(frame.ID, "unknown method: "+frame.Method)
	}
}

func validScenario(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return nil
	}
	if _, err := demo.ParseScenario(s); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}

func (c *Client) publish(p events.EventPayload) {
	c.hub.bus.Publish(events.NewTypedEvent(events.SourceWS, p))
}

// writePump writes queued messages to the WS connection.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sendOK(id string, payload any) {
	c.reply(id, true, payload, "")
}

func (c *Client) sendError(id string, errMsg string) {
	c.reply(id, false, nil, errMsg)
}

func (c *Client) reply(id string, ok bool, payload any, errMsg string) {
	f, err := NewResponseFrame(id, ok, payload, errMsg)
	if err != nil {
		slog.Error("marshal response frame", "error", err)
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, live := c.hub.clients[c]; !live {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
		close(c.send)
	}
}
