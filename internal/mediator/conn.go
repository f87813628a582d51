package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"credvault/internal/logging"
)

const (
	maxMessageSize = 512 * 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// conn is one authenticated websocket session.
type conn struct {
	id       string
	ws       *websocket.Conn
	mediator *Mediator
	limiter  *rate.Limiter
	logger   *logging.Logger

	send   chan []byte
	closed chan struct{}
}

func newConn(ws *websocket.Conn, m *Mediator, limiter *rate.Limiter, logger *logging.Logger) *conn {
	return &conn{
		id:       uuid.NewString(),
		ws:       ws,
		mediator: m,
		limiter:  limiter,
		logger:   logger,
		send:     make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

// run serves the session until the peer disconnects or ctx is done.
func (c *conn) run(ctx context.Context) {
	c.logger.Debug("mediator.conn.opened", "Connection opened", map[string]interface{}{
		"conn": c.id,
	})

	go c.writePump()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ws.Close()
		case <-stop:
		}
	}()

	c.readPump(ctx)
	close(c.send)

	c.logger.Debug("mediator.conn.closed", "Connection closed", map[string]interface{}{
		"conn": c.id,
	})
}

func (c *conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("mediator.conn.read_error", "Websocket read error", map[string]interface{}{
					"conn":  c.id,
					"error": err.Error(),
				})
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		resp := c.handleFrame(ctx, data)
		if !c.write(resp) {
			return
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.closed)
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) write(resp *ResponseFrame) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("mediator.conn.marshal_failed", "Failed to encode response", map[string]interface{}{
			"conn":  c.id,
			"error": err.Error(),
		})
		return true
	}
	select {
	case c.send <- data:
		return true
	case <-c.closed:
		return false
	}
}

// handleFrame takes one request from Received to Responded.
func (c *conn) handleFrame(ctx context.Context, data []byte) *ResponseFrame {
	var req RequestFrame
	if err := json.Unmarshal(data, &req); err != nil {
		return newErrorResponse("", CodeInvalidRequest, "invalid frame")
	}
	if req.Type != FrameTypeRequest || req.ID == "" {
		return newErrorResponse(req.ID, CodeInvalidRequest, "expected a request frame with an id")
	}

	if !c.limiter.Allow() {
		c.logger.Warn("mediator.rate_limited", "Request rate limited", map[string]interface{}{
			"conn":   c.id,
			"method": req.Method,
		})
		return newErrorResponse(req.ID, CodeRateLimited, "too many requests")
	}

	if !IsOperation(req.Method) {
		c.logger.Warn("mediator.request.rejected", "Unknown method", map[string]interface{}{
			"conn":   c.id,
			"method": req.Method,
		})
		return newErrorResponse(req.ID, CodeUnknownMethod, "unknown method")
	}

	result, err := c.mediator.Dispatch(ctx, req.Method, req.Params)
	if err != nil {
		if errors.Is(err, ErrMalformedRequest) {
			return newErrorResponse(req.ID, CodeInvalidRequest, "malformed params")
		}
		return newErrorResponse(req.ID, CodeInternal, msgInternal)
	}

	resp, err := newOKResponse(req.ID, result)
	if err != nil {
		return newErrorResponse(req.ID, CodeInternal, msgInternal)
	}
	return resp
}
