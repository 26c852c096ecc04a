// Package taxrate resolves a sales-tax rate for a ZIP code through an
// external lookup service.  Lookups are cached in Redis and failures are
// swallowed by Resolver so checkout proceeds with a rate of 0.
package taxrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the lookup service has no rate for the ZIP.
var ErrNotFound = errors.New("taxrate: not found")

// ErrInvalidZip is returned before any request for malformed input.
var ErrInvalidZip = errors.New("taxrate: invalid zip")

// Lookup defines the contract for querying a rate by ZIP.
type Lookup interface {
	Rate(ctx context.Context, zip string) (float64, error)
}

// HTTPClient implements Lookup over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a lookup client for baseURL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tax rate url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
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

type rateResponse struct {
	Zip  string  `json:"zip"`
	Rate float64 `json:"rate"`
}

// Rate fetches GET {base}/rates?zip=.
func (c *HTTPClient) Rate(ctx context.Context, zip string) (float64, error) {
	zip, err := NormalizeZip(zip)
	if err != nil {
		return 0, err
	}
	rel := &url.URL{Path: c.baseURL.Path + "/rates"}
	q := rel.Query()
	q.Set("zip", zip)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload rateResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return 0, fmt.Errorf("decode tax rate response: %w", err)
		}
		if payload.Rate < 0 || payload.Rate >= 1 {
			return 0, fmt.Errorf("taxrate: implausible rate %v for %s", payload.Rate, zip)
		}
		return payload.Rate, nil
	case http.StatusNotFound:
		return 0, ErrNotFound
	default:
		c.logger.Printf("taxrate: unexpected status %d for zip %q", resp.StatusCode, zip)
		return 0, fmt.Errorf("taxrate: upstream returned %d", resp.StatusCode)
	}
}

// NormalizeZip keeps the 5-digit prefix of a US ZIP or ZIP+4.
func NormalizeZip(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	if len(s) != 5 {
		return "", ErrInvalidZip
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrInvalidZip
		}
	}
	return s, nil
}
