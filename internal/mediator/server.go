package mediator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"credvault/internal/config"
	"credvault/internal/logging"
)

// Path is the websocket endpoint served by Server.
const Path = "/v1/vault"

// ErrTokenRequired is returned when the server is configured without a token.
var ErrTokenRequired = errors.New("mediator token is required")

// Server exposes a Mediator over an authenticated loopback websocket.
type Server struct {
	addr     string
	token    string
	rpm      int
	burst    int
	mediator *Mediator
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs a server for m. cfg.Token must be set and the rate
// limit must allow at least one request per minute.
func NewServer(cfg config.MediatorConfig, m *Mediator, logger *logging.Logger) (*Server, error) {
	if cfg.Token == "" {
		return nil, ErrTokenRequired
	}
	if cfg.RateLimitRPM < 1 {
		return nil, fmt.Errorf("rate_limit_rpm must be at least 1, got %d", cfg.RateLimitRPM)
	}
	s := &Server{
		addr:     cfg.Listen,
		token:    cfg.Token,
		rpm:      cfg.RateLimitRPM,
		burst:    cfg.Burst,
		mediator: m,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}
	return s, nil
}

// Handler returns the HTTP handler serving Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleUpgrade)
	return mux
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Open websocket sessions
// are closed when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	s.logger.Info("mediator.started", "Access mediator listening", map[string]interface{}{
		"listen": ln.Addr().String(),
		"path":   Path,
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)

	s.logger.Info("mediator.stopped", "Access mediator stopped", nil)
	return err
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("mediator.auth_failed", "Rejected connection without valid token", map[string]interface{}{
			"remote": r.RemoteAddr,
		})
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("mediator.upgrade_failed", "Websocket upgrade failed", map[string]interface{}{
			"remote": r.RemoteAddr,
			"error":  err.Error(),
		})
		return
	}

	c := newConn(ws, s.mediator, s.newLimiter(), s.logger)
	c.run(r.Context())
}

func (s *Server) authorized(r *http.Request) bool {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	presented := strings.TrimPrefix(header, prefix)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) == 1
}

// newLimiter returns a per-connection token bucket.
func (s *Server) newLimiter() *rate.Limiter {
	burst := s.burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(s.rpm)/60.0), burst)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// checkOrigin admits non-browser clients and pages served from loopback.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
