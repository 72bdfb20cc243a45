package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ericfisherdev/fastclip/internal/application"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 20
)

// Server upgrades HTTP requests to WebSocket connections and answers JSON-RPC
// calls on them.
type Server struct {
	svc      *application.ClipboardService
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
}

// NewServer creates a Server backed by svc.
func NewServer(svc *application.ClipboardService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*conn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until the peer
// disconnects or the server is closed.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		server:  s,
		ws:      ws,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]pendingSub),
	}

	if !s.track(c) {
		_ = ws.Close()
		cancel()
		return
	}
	defer s.untrack(c)

	c.serve()
}

// Close terminates every open connection. Pending subscriptions end without a
// notification.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Conns returns the number of open connections.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

type pendingSub struct {
	sub    *application.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

// conn is one WebSocket peer. Reads happen on the serve goroutine only;
// writes are serialised by writeMu since notifications come from other
// goroutines.
type conn struct {
	server *Server
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]pendingSub
	closing bool
	wg      sync.WaitGroup
}

// spawn runs fn on a tracked goroutine unless the connection is closing.
func (c *conn) spawn(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

func (c *conn) serve() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.spawn(c.keepalive)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handle(data)
	}
}

// close cancels pending subscriptions, waits for their goroutines and closes
// the socket. Safe to call more than once.
func (c *conn) close() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	c.cancel()
	_ = c.ws.Close()
	c.wg.Wait()

	c.mu.Lock()
	for id, p := range c.pending {
		c.server.svc.UnsubscribeEntry(p.sub.ID())
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

func (c *conn) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.cancel()
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *conn) handle(data []byte) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		c.writeError(nil, CodeInvalidRequest, "batch requests are not supported")
		return
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		c.writeError(nil, CodeParseError, "parse error")
		return
	}
	if req.JSONRPC != version || req.Method == "" {
		c.writeError(req.ID, CodeInvalidRequest, "invalid request")
		return
	}

	if len(req.ID) == 0 && req.Method == MethodSubscribe {
		// A subscription opened by a notification could never be named in
		// unsubscribe_entry or delivered, so nothing is registered.
		c.server.logger.Debug("ignoring subscribe_entry without id")
		return
	}

	result, rpcErr := c.dispatch(req)
	if len(req.ID) == 0 {
		// Notifications get no reply.
		return
	}
	if rpcErr != nil {
		c.writeError(req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	c.writeResult(req.ID, result)

	if req.Method == MethodSubscribe {
		if id, ok := result.(string); ok {
			c.startDelivery(id)
		}
	}
}

func (c *conn) dispatch(req Request) (any, *Error) {
	svc := c.server.svc

	switch req.Method {
	case MethodPing:
		return svc.Ping(), nil

	case MethodGetEntries:
		entries, err := svc.EntriesJSON()
		if err != nil {
			return nil, c.serviceError(req.Method, err)
		}
		return entries, nil

	case MethodGetEntry:
		var index int
		if err := positional(req.Params, &index); err != nil {
			return nil, invalidParams(err)
		}
		entry, err := svc.Entry(index)
		if err != nil {
			return nil, c.serviceError(req.Method, err)
		}
		return entry, nil

	case MethodRemoveEntry:
		var index int
		if err := positional(req.Params, &index); err != nil {
			return nil, invalidParams(err)
		}
		if err := svc.RemoveEntry(c.ctx, index); err != nil {
			return nil, c.serviceError(req.Method, err)
		}
		return true, nil

	case MethodAddEntry:
		var p AddEntryParams
		if err := positional(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		kind := model.EntryKindText
		if p.Kind != "" {
			parsed, err := model.ParseEntryKind(p.Kind)
			if err != nil {
				return nil, invalidParams(err)
			}
			kind = parsed
		}
		entry, err := svc.AddEntry(c.ctx, p.Content, kind)
		if err != nil {
			return nil, c.serviceError(req.Method, err)
		}
		return entry, nil

	case MethodSubscribe:
		id := uuid.NewString()
		ctx, cancel := context.WithCancel(c.ctx)
		c.mu.Lock()
		c.pending[id] = pendingSub{sub: svc.OpenSubscription(), ctx: ctx, cancel: cancel}
		c.mu.Unlock()
		return id, nil

	case MethodUnsubscribe:
		var id string
		if err := positional(req.Params, &id); err != nil {
			return nil, invalidParams(err)
		}
		return c.unsubscribe(id), nil

	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// startDelivery waits for the subscription's single message and sends it as
// an s_entry notification. It runs after the subscribe reply was written so
// the client always sees the id first.
func (c *conn) startDelivery(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}

	c.spawn(func() {
		defer p.cancel()

		content, err := p.sub.Next(p.ctx)

		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()

		if err != nil {
			if errors.Is(err, application.ErrHubClosed) {
				c.server.logger.Debug("subscription ended by shutdown", "subscription", id)
			}
			return
		}

		c.write(Notification{
			JSONRPC: version,
			Method:  NotificationEntry,
			Params:  SubscriptionResult{Subscription: id, Result: content},
		})
	})
}

// unsubscribe releases a pending subscription. It reports false when the id
// is unknown or the notification was already sent.
func (c *conn) unsubscribe(id string) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	released := c.server.svc.UnsubscribeEntry(p.sub.ID())
	p.cancel()
	return released
}

func (c *conn) serviceError(method string, err error) *Error {
	switch {
	case errors.Is(err, application.ErrInvalidOperation):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, application.ErrEmptyHistory):
		return &Error{Code: CodeEmptyHistory, Message: "clipboard history is empty"}
	default:
		c.server.logger.Error("rpc call failed", "method", method, "error", err)
		return &Error{Code: CodeServerError, Message: "internal server error"}
	}
}

func (c *conn) writeResult(id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		c.server.logger.Error("marshal rpc result", "error", err)
		c.writeError(id, CodeServerError, "internal server error")
		return
	}
	c.write(Response{JSONRPC: version, ID: id, Result: data})
}

func (c *conn) writeError(id json.RawMessage, code int, msg string) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	c.write(Response{JSONRPC: version, ID: id, Error: &Error{Code: code, Message: msg}})
}

func (c *conn) write(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(v); err != nil {
		c.server.logger.Debug("websocket write failed", "error", err)
	}
}

// positional decodes the first element of a params array into dst.
func positional(params json.RawMessage, dst any) error {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return fmt.Errorf("params must be an array: %w", err)
	}
	if len(args) != 1 {
		return fmt.Errorf("expected 1 parameter, got %d", len(args))
	}
	if err := json.Unmarshal(args[0], dst); err != nil {
		return fmt.Errorf("decode parameter: %w", err)
	}
	return nil
}

func invalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: err.Error()}
}
