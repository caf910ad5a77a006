// Package fetch retrieves gallery markup through the CORS relay. The
// hostname allow-list is enforced here before any request is issued; the
// relay repeats the same check on its side.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// AllowedDomain is the single hostname suffix the fetcher will touch.
const AllowedDomain = "galleryepic.com"

const pageCacheSize = 64

// Metrics receives request observations from the client. Satisfied by
// scraper.Metrics; nil disables instrumentation.
type Metrics interface {
	IncRequest(phase string)
	ObserveDuration(d time.Duration)
}

// Client fetches pages via the relay's JSON envelope endpoints.
type Client struct {
	relayURL     string
	timeout      time.Duration
	checkTimeout time.Duration
	httpClient   *http.Client
	cache        *lru.Cache[string, string]
	metrics      Metrics

	mu      sync.Mutex
	session string
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics wires request instrumentation into the client.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeouts overrides the content and existence-check timeouts.
func WithTimeouts(content, check time.Duration) Option {
	return func(c *Client) {
		c.timeout = content
		c.checkTimeout = check
	}
}

// WithTransport swaps the underlying round tripper, used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient builds a relay client. The page cache absorbs the duplicate
// fetch of listing page 1, which both the profile loader and the page
// loop request at run start.
func NewClient(relayURL string, opts ...Option) *Client {
	cache, _ := lru.New[string, string](pageCacheSize)
	c := &Client{
		relayURL:     strings.TrimSuffix(relayURL, "/"),
		timeout:      30 * time.Second,
		checkTimeout: 15 * time.Second,
		httpClient:   &http.Client{},
		cache:        cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scrapeEnvelope struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
	Status  int    `json:"status"`
	Error   string `json:"error"`
}

// ResetCache drops all cached pages. Called at the start of a crawl run
// so a reused client never serves markup fetched by a previous run.
func (c *Client) ResetCache() {
	c.cache.Purge()
}

// SetSession tags subsequent scrape requests with the crawl session
// identifier so the relay can correlate abort notifications with
// in-flight work.
func (c *Client) SetSession(id string) {
	c.mu.Lock()
	c.session = id
	c.mu.Unlock()
}

func (c *Client) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// FetchPage retrieves the raw markup of target through the relay.
func (c *Client) FetchPage(ctx context.Context, target string) (string, error) {
	if err := checkAllowed(target); err != nil {
		return "", err
	}

	if html, ok := c.cache.Get(target); ok {
		return html, nil
	}

	path := "/api/scrape?url=" + url.QueryEscape(target)
	if sid := c.sessionID(); sid != "" {
		path += "&sessionId=" + url.QueryEscape(sid)
	}

	body, status, err := c.relayGet(ctx, path, c.timeout)
	if err != nil {
		return "", err
	}

	var envelope scrapeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", ErrNetwork{Err: fmt.Errorf("decode relay response: %w", err)}
	}
	if !envelope.Success {
		return "", classifyRelayFailure(status, envelope.Error)
	}

	c.cache.Add(target, envelope.HTML)
	return envelope.HTML, nil
}

// Check probes target existence through the relay and returns the
// mirrored upstream status code.
func (c *Client) Check(ctx context.Context, target string) (int, error) {
	if err := checkAllowed(target); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.relayURL+"/api/check?url="+url.QueryEscape(target), nil)
	if err != nil {
		return 0, ErrNetwork{Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe("check", start)
	if err != nil {
		return 0, classifyTransportError(err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// Abort notifies the relay that a session's in-flight work can be dropped.
// Best-effort: errors are reported but callers treat them as advisory.
func (c *Client) Abort(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/api/abort", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("abort notification failed", slog.String("session", sessionID), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) relayGet(ctx context.Context, path string, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.relayURL+path, nil)
	if err != nil {
		return nil, 0, ErrNetwork{Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe("scrape", start)
	if err != nil {
		return nil, 0, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, ErrNetwork{Err: err}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) observe(phase string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.IncRequest(phase)
	c.metrics.ObserveDuration(time.Since(start))
}

func checkAllowed(target string) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return ErrDomainNotAllowed{Host: target}
	}
	host := parsed.Hostname()
	if !strings.HasSuffix(host, AllowedDomain) {
		return ErrDomainNotAllowed{Host: host}
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	return ErrNetwork{Err: err}
}

func classifyRelayFailure(status int, message string) error {
	err := fmt.Errorf("relay: %s", message)
	switch status {
	case http.StatusForbidden:
		return ErrDomainNotAllowed{Host: message}
	case http.StatusGatewayTimeout:
		return ErrTimeout{Err: err}
	case http.StatusServiceUnavailable:
		return ErrNetwork{Err: err}
	default:
		return ErrUpstream{Status: status, Err: err}
	}
}
