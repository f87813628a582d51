package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Caller is the five-operation surface as seen by a less-trusted consumer.
// *Client reaches a remote mediator; InProcess wraps a local one.
type Caller interface {
	Store(ctx context.Context, provider, credType, value string) (Result, error)
	Get(ctx context.Context, provider, credType string) (GetResult, error)
	Delete(ctx context.Context, provider, credType string) (Result, error)
	List(ctx context.Context) (ListResult, error)
	IsAvailable(ctx context.Context) (Availability, error)
}

var (
	// ErrUnauthorized is returned by Dial when the server rejects the token.
	ErrUnauthorized = errors.New("mediator rejected token")
	// ErrClosed is returned for calls on a closed client.
	ErrClosed = errors.New("mediator connection closed")
)

// RemoteError is a protocol-level rejection returned by the server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client is a websocket connection to a mediator Server. It is safe for
// concurrent use; responses are matched to requests by id.
type Client struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *ResponseFrame
	err     error

	done chan struct{}
}

// URL builds the websocket URL for a listen address such as 127.0.0.1:47821.
func URL(listen string) string {
	u := url.URL{Scheme: "ws", Host: listen, Path: Path}
	return u.String()
}

// Dial connects to the mediator at rawURL presenting token.
func Dial(ctx context.Context, rawURL, token string) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, rawURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("dial mediator: %w", err)
	}

	c := &Client{
		ws:      ws,
		pending: make(map[string]chan *ResponseFrame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close terminates the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
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
			c.fail(err)
			return
		}
		var resp ResponseFrame
		if err := json.Unmarshal(data, &resp); err != nil || resp.Type != FrameTypeResponse {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = errors.Join(ErrClosed, err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call sends one request and decodes the payload into out.
func (c *Client) Call(ctx context.Context, method string, params, out interface{}) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		raw = data
	}

	id := uuid.NewString()
	ch := make(chan *ResponseFrame, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := json.Marshal(RequestFrame{Type: FrameTypeRequest, ID: id, Method: method, Params: raw})
	if err != nil {
		c.forget(id)
		return err
	}

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
	} else {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	}
	err = c.ws.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return err
		}
		if !resp.OK {
			if resp.Error == nil {
				return &RemoteError{Code: CodeInternal, Message: msgInternal}
			}
			return &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Payload, out)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Store implements Caller.
func (c *Client) Store(ctx context.Context, provider, credType, value string) (Result, error) {
	var res Result
	err := c.Call(ctx, OpStore, storeParams{Provider: provider, Type: credType, Value: value}, &res)
	return res, err
}

// Get implements Caller.
func (c *Client) Get(ctx context.Context, provider, credType string) (GetResult, error) {
	var res GetResult
	err := c.Call(ctx, OpGet, credentialParams{Provider: provider, Type: credType}, &res)
	return res, err
}

// Delete implements Caller.
func (c *Client) Delete(ctx context.Context, provider, credType string) (Result, error) {
	var res Result
	err := c.Call(ctx, OpDelete, credentialParams{Provider: provider, Type: credType}, &res)
	return res, err
}

// List implements Caller.
func (c *Client) List(ctx context.Context) (ListResult, error) {
	var res ListResult
	err := c.Call(ctx, OpList, nil, &res)
	return res, err
}

// IsAvailable implements Caller.
func (c *Client) IsAvailable(ctx context.Context) (Availability, error) {
	var res Availability
	err := c.Call(ctx, OpIsAvailable, nil, &res)
	return res, err
}

// InProcess adapts a local Mediator to Caller.
type InProcess struct {
	M *Mediator
}

// Store implements Caller.
func (p InProcess) Store(ctx context.Context, provider, credType, value string) (Result, error) {
	return p.M.Store(ctx, provider, credType, value), nil
}

// Get implements Caller.
func (p InProcess) Get(ctx context.Context, provider, credType string) (GetResult, error) {
	return p.M.Get(ctx, provider, credType), nil
}

// Delete implements Caller.
func (p InProcess) Delete(ctx context.Context, provider, credType string) (Result, error) {
	return p.M.Delete(ctx, provider, credType), nil
}

// List implements Caller.
func (p InProcess) List(ctx context.Context) (ListResult, error) {
	return p.M.List(ctx), nil
}

// IsAvailable implements Caller.
func (p InProcess) IsAvailable(ctx context.Context) (Availability, error) {
	return p.M.IsAvailable(ctx), nil
}
