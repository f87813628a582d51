// Package syncagent pushes decrypted credentials to the local runtime that
// performs outbound provider calls.
package syncagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"credvault/internal/config"
	"credvault/internal/credentials"
	"credvault/internal/logging"
)

// ErrTokenRequired is returned by Sync when no consumer token is configured.
// Plaintext values are never sent over an unauthenticated channel.
var ErrTokenRequired = errors.New("sync token is required")

// Source is the read side of the vault. *credentials.Store satisfies it.
type Source interface {
	List(ctx context.Context) ([]credentials.Metadata, error)
	Get(ctx context.Context, provider, credType string) (string, bool, error)
}

// Payload is the body POSTed to the consumer for each credential.
type Payload struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// Failure records one credential that was not delivered.
type Failure struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	Error    string `json:"error"`
}

// Report summarizes one sync pass.
type Report struct {
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"failures"`
}

// Agent delivers every stored credential to the consumer endpoint. Each
// pass re-sends the full set; deliveries are independent of each other.
type Agent struct {
	endpoint    string
	token       string
	concurrency int
	client      *http.Client
	source      Source
	logger      *logging.Logger

	mu      sync.Mutex
	running bool
	pending bool
	idle    *sync.Cond
}

// New creates an agent for cfg reading from source.
func New(cfg config.SyncConfig, source Source, logger *logging.Logger) *Agent {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	a := &Agent{
		endpoint:    cfg.Endpoint,
		token:       cfg.Token,
		concurrency: concurrency,
		client:      &http.Client{Timeout: timeout},
		source:      source,
		logger:      logger,
	}
	a.idle = sync.NewCond(&a.mu)
	return a
}

// Sync runs one pass. A failure to list the vault aborts the pass; any
// per-credential failure is recorded in the report and the pass continues.
// If ctx ends early the partial report is returned along with ctx.Err().
// Without a token nothing is read or sent.
func (a *Agent) Sync(ctx context.Context) (*Report, error) {
	if a.token == "" {
		a.logger.Error("sync.refused", "No sync token configured, refusing to deliver credentials", map[string]interface{}{
			"endpoint": a.endpoint,
		})
		return nil, ErrTokenRequired
	}

	items, err := a.source.List(ctx)
	if err != nil {
		a.logger.Error("sync.list_failed", "Could not enumerate credentials", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	report := &Report{Failures: []Failure{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for _, md := range items {
		g.Go(func() error {
			delivered, skipped, err := a.deliverOne(ctx, md)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Attempted++
				report.Failures = append(report.Failures, Failure{
					Provider: md.Provider,
					Type:     md.Type,
					Error:    err.Error(),
				})
			case skipped:
				report.Skipped++
			case delivered:
				report.Attempted++
				report.Delivered++
			}
			return nil
		})
	}
	_ = g.Wait()

	a.logger.Info("sync.completed", "Credential sync completed", map[string]interface{}{
		"attempted": report.Attempted,
		"delivered": report.Delivered,
		"skipped":   report.Skipped,
		"failed":    len(report.Failures),
	})
	return report, ctx.Err()
}

// Trigger requests a background pass. Calls made while a pass is running
// collapse into a single follow-up pass so no change is missed.
func (a *Agent) Trigger(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.pending = true
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	go a.loop(ctx)
}

// Wait blocks until no triggered pass is running.
func (a *Agent) Wait() {
	a.mu.Lock()
	for a.running {
		a.idle.Wait()
	}
	a.mu.Unlock()
}

func (a *Agent) loop(ctx context.Context) {
	for {
		if _, err := a.Sync(ctx); err != nil {
			a.logger.Warn("sync.trigger_failed", "Triggered sync did not complete", map[string]interface{}{
				"error": err.Error(),
			})
		}

		a.mu.Lock()
		if !a.pending || ctx.Err() != nil {
			a.running = false
			a.pending = false
			a.idle.Broadcast()
			a.mu.Unlock()
			return
		}
		a.pending = false
		a.mu.Unlock()
	}
}

// deliverOne reads and posts a single credential. skipped is true when the
// credential disappeared between list and get.
func (a *Agent) deliverOne(ctx context.Context, md credentials.Metadata) (delivered, skipped bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, false, err
	}

	value, found, err := a.source.Get(ctx, md.Provider, md.Type)
	if err != nil {
		a.logFailure(md, "read", err)
		return false, false, fmt.Errorf("read credential: %w", err)
	}
	if !found {
		return false, true, nil
	}

	if err := a.post(ctx, Payload{Provider: md.Provider, Type: md.Type, Value: value}); err != nil {
		a.logFailure(md, "deliver", err)
		return false, false, err
	}

	a.logger.Debug("sync.delivered", "Credential delivered", map[string]interface{}{
		"provider": md.Provider,
		"type":     md.Type,
	})
	return true, false, nil
}

func (a *Agent) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to consumer: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("consumer returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *Agent) logFailure(md credentials.Metadata, stage string, err error) {
	a.logger.Warn("sync.delivery_failed", "Credential not delivered", map[string]interface{}{
		"provider": md.Provider,
		"type":     md.Type,
		"stage":    stage,
		"error":    err.Error(),
	})
}
