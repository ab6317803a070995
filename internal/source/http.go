package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTP fetches a published CSV over GET. Failures are not retried.
type HTTP struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHTTP(rawURL string, timeout time.Duration) *HTTP {
	return &HTTP{url: rawURL, timeout: timeout, client: newPooledClient()}
}

// WithClient swaps the HTTP client. Used by tests.
func (h *HTTP) WithClient(c *http.Client) *HTTP {
	h.client = c
	return h
}

func (h *HTTP) Name() string {
	if u, err := url.Parse(h.url); err == nil && u.Host != "" {
		return "http:" + u.Host
	}
	return "http"
}

func (h *HTTP) Fetch(ctx context.Context) (string, error) {
	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("fetch %s: unexpected status %s", h.Name(), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return "", ErrTooLarge
	}
	return string(body), nil
}

func newPooledClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}
