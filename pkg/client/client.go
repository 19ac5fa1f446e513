// Package client is a typed HTTP client for a running farmkeep daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig targets a daemon on the default listen address.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:4501/api",
		Timeout: 10 * time.Second,
	}
}

// Client talks to the daemon's RPC surface.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type params struct {
	Path string `json:"path,omitempty"`
	ID   string `json:"id,omitempty"`
}

type response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// ShareStatus mirrors the daemon's status entries.
type ShareStatus struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
	State  string         `json:"state"`
	Meta   struct {
		FarmerState map[string]any `json:"farmerState"`
		PID         int            `json:"pid"`
		LogSinkPath string         `json:"logSinkPath"`
	} `json:"meta"`
}

// Start launches a share from the config at path and returns its id.
func (c *Client) Start(ctx context.Context, configPath string) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "start", params{Path: configPath}, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// Stop sends the graceful interrupt to the share's worker.
func (c *Client) Stop(ctx context.Context, id string) error {
	return c.post(ctx, "stop", params{ID: id}, nil)
}

// Restart stops and relaunches the share; pass "*" for every share.
func (c *Client) Restart(ctx context.Context, id string) error {
	return c.post(ctx, "restart", params{ID: id}, nil)
}

// Destroy removes the share from the daemon entirely.
func (c *Client) Destroy(ctx context.Context, id string) error {
	return c.post(ctx, "destroy", params{ID: id}, nil)
}

// Killall destroys every share and terminates the daemon.
func (c *Client) Killall(ctx context.Context) error {
	return c.post(ctx, "killall", params{}, nil)
}

// Save persists the daemon's registry to its snapshot file (or path).
func (c *Client) Save(ctx context.Context, path string) error {
	return c.post(ctx, "save", params{Path: path}, nil)
}

// Load relaunches every share from the daemon's snapshot file (or path).
func (c *Client) Load(ctx context.Context, path string) error {
	return c.post(ctx, "load", params{Path: path}, nil)
}

// Status lists every registered share.
func (c *Client) Status(ctx context.Context) ([]ShareStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	var out []ShareStatus
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, method string, p params, out any) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if r.Error != "" {
		return fmt.Errorf("%s", r.Error)
	}
	if out != nil && len(r.Result) > 0 {
		return json.Unmarshal(r.Result, out)
	}
	return nil
}
