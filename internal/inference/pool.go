package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"kinetic/internal/config"
)

// Pool owns the inference clients for a process: one client per endpoint,
// created on first use, shared across pipeline runs, and disposed at
// shutdown. It replaces any ambient per-module client caching.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
	timeout time.Duration
}

// NewPool builds a client pool using the configured request timeout.
func NewPool(cfg *config.Config) *Pool {
	timeout := time.Duration(cfg.Inference.TimeoutSeconds) * time.Second
	return &Pool{clients: make(map[string]*Client), timeout: timeout}
}

// Client returns the shared client for an endpoint, creating it when
// first requested.
func (p *Pool) Client(baseURL string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[baseURL]; ok {
		return c
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: p.timeout},
	}
	p.clients[baseURL] = c
	return c
}

// Close releases idle connections held by all clients.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.http.CloseIdleConnections()
	}
	p.clients = make(map[string]*Client)
}

// Client talks to one remote inference endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// DepthMap submits image or video bytes and returns the rendered depth
// image.
func (c *Client) DepthMap(ctx context.Context, input []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/depth", bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("build depth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("depth request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("depth request: unexpected status %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read depth response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("depth response was empty")
	}
	return data, nil
}
