package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by calls made on, or interrupted by, a closed
// Client.
var ErrClientClosed = errors.New("rpc client closed")

// Client is a JSON-RPC client over a single WebSocket connection. It is safe
// for concurrent use.
type Client struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	calls   map[uint64]chan Response
	notes   map[string]chan []byte
	closed  bool
	readErr error

	done chan struct{}
}

// Dial connects to a server at url, e.g. ws://127.0.0.1:22766/rpc.
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Client{
		ws:    ws,
		calls: make(map[uint64]chan Response),
		notes: make(map[string]chan []byte),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call invokes method with positional params and decodes the result into
// result, which may be nil. Server errors are returned as *Error.
func (c *Client) Call(ctx context.Context, method string, result any, params ...any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Response, 1)
	c.calls[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.calls, id)
		c.mu.Unlock()
	}()

	req := Request{
		JSONRPC: version,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
		Method:  method,
	}
	if len(params) > 0 {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	if err := c.write(req); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-c.done:
		return c.closeErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe opens a one-shot subscription and waits for its notification.
// When ctx ends first the subscription is released on the server.
func (c *Client) Subscribe(ctx context.Context) ([]byte, error) {
	var id string
	if err := c.Call(ctx, MethodSubscribe, &id); err != nil {
		return nil, err
	}

	ch := c.noteChan(id)
	defer c.dropNote(id)

	select {
	case content := <-ch:
		return content, nil
	case <-c.done:
		return nil, c.closeErr()
	case <-ctx.Done():
		unsubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Call(unsubCtx, MethodUnsubscribe, nil, id)
		return nil, ctx.Err()
	}
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.writeMu.Unlock()

	err := c.ws.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		if env.Method == NotificationEntry {
			// The notification can beat Subscribe to registering its
			// channel, so either side may create it.
			select {
			case c.noteChan(env.Params.Subscription) <- env.Params.Result:
			default:
			}
			continue
		}

		id, err := strconv.ParseUint(string(env.ID), 10, 64)
		if err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.calls[id]
		c.mu.Unlock()
		if ok {
			ch <- Response{JSONRPC: env.JSONRPC, ID: env.ID, Result: env.Result, Error: env.Error}
		}
	}
}

func (c *Client) noteChan(id string) chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.notes[id]
	if !ok {
		ch = make(chan []byte, 1)
		c.notes[id] = ch
	}
	return ch
}

func (c *Client) dropNote(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.notes, id)
}

func (c *Client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.readErr == nil {
		return ErrClientClosed
	}
	return fmt.Errorf("%w: %v", ErrClientClosed, c.readErr)
}
