package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"credvault/internal/config"
	"credvault/internal/logging"
)

const testToken = "test-token-0123456789"

func newTestServer(t *testing.T, rpm, burst int) (*httptest.Server, string) {
	t.Helper()
	m, _ := newTestMediator(t)
	srv, err := NewServer(config.MediatorConfig{
		Listen:       "127.0.0.1:0",
		Token:        testToken,
		RateLimitRPM: rpm,
		Burst:        burst,
	}, m, logging.NewLogger(logging.LevelError))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, "ws" + strings.TrimPrefix(ts.URL, "http") + Path
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, testToken)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewServer_RequiresToken(t *testing.T) {
	_, err := NewServer(config.MediatorConfig{Listen: "127.0.0.1:0"}, nil, nil)
	if !errors.Is(err, ErrTokenRequired) {
		t.Errorf("NewServer() error = %v, want ErrTokenRequired", err)
	}
}

func TestNewServer_RequiresRateLimit(t *testing.T) {
	for _, rpm := range []int{0, -5} {
		_, err := NewServer(config.MediatorConfig{
			Listen:       "127.0.0.1:0",
			Token:        testToken,
			RateLimitRPM: rpm,
			Burst:        1,
		}, nil, nil)
		if err == nil {
			t.Errorf("NewServer(rpm=%d) should fail", rpm)
		}
	}
}

func TestServer_RejectsBadToken(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)

	for _, token := range []string{"", "wrong", testToken + "x"} {
		_, err := Dial(context.Background(), url, token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Dial(token=%q) error = %v, want ErrUnauthorized", token, err)
		}
	}
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+testToken)
	header.Set("Origin", "https://evil.example.com")

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Dial() with foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %v, want 403", resp)
	}
}

func TestServer_RoundTripOverWebsocket(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)
	c := dialTest(t, url)
	ctx := context.Background()

	avail, err := c.IsAvailable(ctx)
	if err != nil || !avail.Available {
		t.Fatalf("IsAvailable() = %+v, %v", avail, err)
	}

	res, err := c.Store(ctx, "anthropic", "api-key", "sk-test-123")
	if err != nil || !res.Success {
		t.Fatalf("Store() = %+v, %v", res, err)
	}

	got, err := c.Get(ctx, "anthropic", "api-key")
	if err != nil || !got.Success || got.Value == nil || *got.Value != "sk-test-123" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	list, err := c.List(ctx)
	if err != nil || !list.Success || len(list.Credentials) != 1 {
		t.Fatalf("List() = %+v, %v", list, err)
	}

	res, err = c.Delete(ctx, "anthropic", "api-key")
	if err != nil || !res.Success {
		t.Fatalf("Delete() = %+v, %v", res, err)
	}

	got, err = c.Get(ctx, "anthropic", "api-key")
	if err != nil || !got.Success || got.Value != nil {
		t.Errorf("Get() after delete = %+v, %v", got, err)
	}
}

func TestServer_OperationFailureIsPayload(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)
	c := dialTest(t, url)

	res, err := c.Store(context.Background(), "", "api-key", "v")
	if err != nil {
		t.Fatalf("Store() transport error = %v", err)
	}
	if res.Success || res.Error != "validation failed: provider is required" {
		t.Errorf("Store() = %+v", res)
	}
}

func TestServer_RejectsUnknownMethod(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)
	c := dialTest(t, url)

	err := c.Call(context.Background(), "deleteAll", nil, nil)
	var re *RemoteError
	if !errors.As(err, &re) || re.Code != CodeUnknownMethod {
		t.Errorf("Call(deleteAll) error = %v, want %s", err, CodeUnknownMethod)
	}

	err = c.Call(context.Background(), OpGet, map[string]string{"provider": "a", "type": "b", "path": "/etc"}, nil)
	if !errors.As(err, &re) || re.Code != CodeInvalidRequest {
		t.Errorf("Call(get with extra field) error = %v, want %s", err, CodeInvalidRequest)
	}
}

func TestServer_RejectsMalformedFrames(t *testing.T) {
	_, url := newTestServer(t, 6000, 100)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+testToken)
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()

	frames := []string{
		`not json`,
		`{"type":"event","id":"1","method":"list"}`,
		`{"type":"req","method":"list"}`,
	}
	for _, f := range frames {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var resp ResponseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.OK || resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
			t.Errorf("frame %q -> %s, want %s", f, data, CodeInvalidRequest)
		}
	}
}

func TestServer_RateLimit(t *testing.T) {
	_, url := newTestServer(t, 1, 2)
	c := dialTest(t, url)
	ctx := context.Background()

	var limited bool
	for i := 0; i < 5; i++ {
		_, err := c.List(ctx)
		var re *RemoteError
		if errors.As(err, &re) && re.Code == CodeRateLimited {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected a RATE_LIMITED response after exceeding burst")
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	m, _ := newTestMediator(t)
	srv, err := NewServer(config.MediatorConfig{Listen: "127.0.0.1:0", Token: testToken}, m, logging.NewLogger(logging.LevelError))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	c, err := Dial(context.Background(), URL(ln.Addr().String()), testToken)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	_ = c.Close()
	if _, err := c.List(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("List() after shutdown error = %v, want ErrClosed", err)
	}
}

func TestURL(t *testing.T) {
	if got := URL("127.0.0.1:47821"); got != "ws://127.0.0.1:47821"+Path {
		t.Errorf("URL() = %q", got)
	}
}
