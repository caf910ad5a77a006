// Package relay implements the CORS relay the fetch client talks to: a
// thin same-origin proxy that fetches gallery pages on behalf of browser
// clients, enforcing the hostname allow-list at the service boundary.
package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jed556/Gallery-Epic-Scraper/fetch"
	"github.com/Jed556/Gallery-Epic-Scraper/scraper"
)

// Options configures the relay server.
type Options struct {
	UserAgent      string
	Timeout        time.Duration // content fetches
	CheckTimeout   time.Duration // existence checks
	AllowedOrigins []string
	Metrics        *scraper.Metrics
	Transport      http.RoundTripper // overridden by tests
}

// Server proxies gallery requests and tracks active crawl sessions for
// best-effort abort notifications.
type Server struct {
	opts     Options
	upstream *http.Client

	mu       sync.Mutex
	sessions map[string]bool
}

// New builds a relay server.
func New(opts Options) *Server {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 15 * time.Second
	}

	return &Server{
		opts:     opts,
		upstream: &http.Client{Transport: opts.Transport},
		sessions: make(map[string]bool),
	}
}

// Router assembles the gin engine with all relay routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	if len(s.opts.AllowedOrigins) > 0 {
		router.Use(CORS(s.opts.AllowedOrigins))
	}
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "Method not allowed"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Gallery Epic Scraper relay is running"})
	})
	if s.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	router.GET("/api/scrape", s.handleScrape)
	router.GET("/api/check", s.handleCheck)
	router.HEAD("/api/check", s.handleCheck)
	router.POST("/api/abort", s.handleAbort)

	return router
}

func (s *Server) handleScrape(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "URL parameter is required"})
		return
	}
	if !allowedHost(target) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Domain not allowed"})
		return
	}
	if sid := c.Query("sessionId"); sid != "" {
		s.TrackSession(sid)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid URL"})
		return
	}
	s.browserHeaders(req)

	resp, err := s.upstream.Do(req)
	if err != nil {
		status, message := classifyUpstreamError(err)
		c.JSON(status, gin.H{"success": false, "error": message})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"html":    string(body),
		"status":  resp.StatusCode,
		"headers": gin.H{"content-type": contentType},
	})
}

func (s *Server) handleCheck(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if !allowedHost(target) {
		c.Status(http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	s.browserHeaders(req)

	resp, err := s.upstream.Do(req)
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer resp.Body.Close()

	// Mirror the upstream status with an empty body.
	c.Status(resp.StatusCode)
}

type abortRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleAbort(c *gin.Context) {
	var req abortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "sessionId is required"})
		return
	}

	s.mu.Lock()
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()

	// Stateless acknowledgment: unknown sessions are acked all the same.
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Scraping session aborted"})
}

// TrackSession registers an active session so an abort can drop it.
func (s *Server) TrackSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = true
}

// SessionActive reports whether a session is still tracked.
func (s *Server) SessionActive(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func (s *Server) browserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func allowedHost(target string) bool {
	parsed, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.HasSuffix(parsed.Hostname(), fetch.AllowedDomain)
}

func classifyUpstreamError(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Upstream timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout, "Upstream timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return http.StatusServiceUnavailable, "Upstream unreachable"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return http.StatusServiceUnavailable, "Upstream unreachable"
	}
	return http.StatusInternalServerError, "Internal server error"
}
