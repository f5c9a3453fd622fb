// Package ws provides a WebSocket client for the FakeGPT gateway.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coder/websocket"

	wsprotocol "github.com/dohr-michael/fakegpt/internal/gateway/ws"
)

// Client is a WebSocket client for the FakeGPT gateway.
type Client struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the gateway WebSocket endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// Send writes a request frame and returns its id.
func (c *Client) Send(method wsprotocol.Method, params any) (string, error) {
	seq := atomic.AddUint64(&c.reqSeq, 1)
	id := fmt.Sprintf("req-%d", seq)

	frame, err := wsprotocol.NewRequestFrame(id, method, params)
	if err != nil {
		return "", err
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return "", err
	}
	return id, c.conn.Write(c.ctx, websocket.MessageText, data)
}

// SendMessage sends a user message to the gateway.
func (c *Client) SendMessage(content string) (string, error) {
	return c.Send(wsprotocol.MethodSendMessage, wsprotocol.SendMessageParams{Content: content})
}

// SelectReply selects a quick reply offered by the bot.
func (c *Client) SelectReply(replyID string) (string, error) {
	return c.Send(wsprotocol.MethodSelectReply, wsprotocol.SelectReplyParams{ReplyID: replyID})
}

// SetDemo arms a demo scenario; "off" disables demo mode.
func (c *Client) SetDemo(scenario string, toggle bool) (string, error) {
	method := wsprotocol.MethodSetDemo
	if toggle {
		method = wsprotocol.MethodToggleDemo
	}
	return c.Send(method, wsprotocol.DemoParams{Scenario: scenario})
}

// Clear restarts the conversation.
func (c *Client) Clear() (string, error) {
	return c.Send(wsprotocol.MethodClear, nil)
}

// GetState asks for a conversation snapshot.
func (c *Client) GetState() (string, error) {
	return c.Send(wsprotocol.MethodGetState, nil)
}

// ReadFrame reads the next frame from the connection.
func (c *Client) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// Await reads frames until the response to request id arrives. Event frames
// read meanwhile are handed to onEvent when it is not nil. A response with
// ok=false is returned together with an error.
func (c *Client) Await(id string, onEvent func(wsprotocol.Frame)) (wsprotocol.Frame, error) {
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		switch {
		case f.Type == wsprotocol.FrameTypeEvent:
			if onEvent != nil {
				onEvent(f)
			}
		case f.Type == wsprotocol.FrameTypeResponse && f.ID == id:
			if f.OK == nil || !*f.OK {
				return f, errors.New(f.Error)
			}
			return f, nil
		}
	}
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
