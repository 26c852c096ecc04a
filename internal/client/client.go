// Package client is the customer and admin workflow on top of the REST
// API: checkout with seat selection, promo and tax, the admin scheduling
// state machine, and catalog browsing.  Every call takes the caller's
// context and is attempted once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config locates the backend.
type Config struct {
	Host    string
	Port    string
	Timeout time.Duration
}

// LoadConfig reads API_HOST, API_PORT and API_TIMEOUT, defaulting to
// localhost:8080 and 10s.
func LoadConfig() Config {
	cfg := Config{Host: "localhost", Port: "8080", Timeout: 10 * time.Second}
	if v := strings.TrimSpace(os.Getenv("API_HOST")); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("API_PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("API_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		} else {
			log.Printf("client: invalid API_TIMEOUT %q, using %s", v, cfg.Timeout)
		}
	}
	return cfg
}

// BaseURL is http://host:port, or Host itself when it already carries a
// scheme.
func (c Config) BaseURL() string {
	if strings.Contains(c.Host, "://") {
		return strings.TrimRight(c.Host, "/")
	}
	return "http://" + net.JoinHostPort(c.Host, c.Port)
}

// Client talks to the API.  The access token is attached to every request
// once set.  A Client is not safe for concurrent use while SetToken runs.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	logger  *log.Logger
}

// New builds a client for baseURL.
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	return &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger,
	}, nil
}

// SetToken sets the bearer token; "" signs out.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current access token.
func (c *Client) Token() string { return c.token }

// Authenticated reports whether a token is set.  Whether it is still valid
// is for the server to decide.
func (c *Client) Authenticated() bool { return c.token != "" }

type errorBody struct {
	Error string   `json:"error"`
	Seats []string `json:"seats"`
}

// do sends one request.  in is JSON encoded when non-nil and out decoded
// when non-nil.  Non-2xx answers become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	rel := &url.URL{Path: c.baseURL.Path + path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	endpoint := c.baseURL.ResolveReference(rel)

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ae := &APIError{Status: resp.StatusCode, Message: MsgSomethingWrong}
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			if eb.Error != "" {
				ae.Message = eb.Error
			}
			ae.Seats = eb.Seats
		}
		if resp.StatusCode >= 500 {
			c.logger.Printf("client: %s %s returned %d", method, path, resp.StatusCode)
		}
		return ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
