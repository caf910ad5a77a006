// Package scraper implements the page-by-page crawl engine: pagination,
// per-item detail enrichment, dedupe, pacing, progressive emission, and
// cancellation.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/Jed556/Gallery-Epic-Scraper/config"
	"github.com/Jed556/Gallery-Epic-Scraper/fetch"
	"github.com/Jed556/Gallery-Epic-Scraper/models"
	"github.com/Jed556/Gallery-Epic-Scraper/parser"
)

var (
	// ErrMissingCoserID is returned when a run is started without the
	// required target identifier. No network I/O happens in that case.
	ErrMissingCoserID = errors.New("coser id is required")

	// ErrRunInProgress is returned when Run is called on an engine that
	// already owns an active crawl session.
	ErrRunInProgress = errors.New("a crawl is already running on this engine")
)

const (
	// Pacing between enrichment fetches, gentle enough for the site.
	detailPause   = 350 * time.Millisecond
	fallbackPause = 250 * time.Millisecond

	eventBuffer = 32
)

// Engine runs crawls against a single coser gallery. One engine holds at
// most one active session; concurrent runs are rejected.
type Engine struct {
	cfg     *config.Config
	client  *fetch.Client
	Metrics *Metrics

	state atomic.Int32

	mu     sync.Mutex
	sess   *session
	cancel context.CancelFunc

	requestCount int64
	errorCount   int64

	errMu        sync.Mutex
	errorsByType map[string]int
}

// NewEngine builds an engine from a validated config.
func NewEngine(cfg *config.Config, client *fetch.Client, metrics *Metrics) *Engine {
	return &Engine{
		cfg:          cfg,
		client:       client,
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}
}

// State reports the engine's current lifecycle phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Run starts a crawl and returns its event stream. The stream carries
// progress, profile, and accumulated-items events and terminates with a
// DoneEvent, after which the channel is closed. The caller must drain it.
func (e *Engine) Run(ctx context.Context) (<-chan Event, error) {
	if strings.TrimSpace(e.cfg.CoserID) == "" {
		e.state.Store(int32(StateFailed))
		return nil, ErrMissingCoserID
	}

	e.mu.Lock()
	if State(e.state.Load()) == StateRunning {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	sess := newSession()
	runCtx, cancel := context.WithCancel(ctx)
	e.sess = sess
	e.cancel = cancel
	e.state.Store(int32(StateRunning))
	e.mu.Unlock()

	// Nothing persists across runs: the page cache is dropped along with
	// the counters so a reused engine re-fetches everything.
	e.client.ResetCache()
	e.client.SetSession(sess.id)

	atomic.StoreInt64(&e.requestCount, 0)
	atomic.StoreInt64(&e.errorCount, 0)
	e.errMu.Lock()
	e.errorsByType = make(map[string]int)
	e.errMu.Unlock()

	slog.Info("starting crawl session",
		slog.String("session", sess.id),
		slog.String("coser", e.cfg.CoserID),
		slog.Int("max_pages", e.cfg.MaxPages),
	)

	events := make(chan Event, eventBuffer)
	go e.run(runCtx, cancel, sess, events)
	return events, nil
}

// Abort requests cancellation of the active run. Already-accumulated items
// are kept. A best-effort notification is sent to the relay so it can drop
// in-flight upstream work; its failure never affects client-side abort.
func (e *Engine) Abort() {
	e.mu.Lock()
	sess, cancel := e.sess, e.cancel
	e.mu.Unlock()
	if sess == nil {
		return
	}

	sess.abort()
	go func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := e.client.Abort(ctx, sess.id); err != nil {
			slog.Debug("relay abort notification failed", slog.Any("error", err))
		}
	}()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, sess *session, events chan<- Event) {
	defer cancel()

	result := &models.CrawlResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}

	events <- ProgressEvent{Percent: 5, Status: "Starting parallel data loading..."}

	// The profile loads concurrently with the page loop; neither blocks
	// the other, and completion waits for both.
	profileCh := make(chan *models.CoserProfile, 1)
	go func() {
		profile := e.loadProfile(ctx, sess)
		events <- ProfileEvent{Profile: profile}
		events <- ProgressEvent{Percent: 15, Status: "Profile loaded! Starting page scraping..."}
		profileCh <- profile
	}()

	events <- ProgressEvent{Percent: 10, Status: "Starting page scraping..."}

	items := e.crawlPages(ctx, sess, events, result)
	profile := <-profileCh

	state := StateCompleted
	if sess.isAborted() || ctx.Err() != nil {
		state = StateAborted
	}

	result.Items = items
	result.Profile = profile
	result.TotalCount = len(items)
	result.EndTime = time.Now()
	result.RequestCount = int(atomic.LoadInt64(&e.requestCount))
	result.ErrorCount = int(atomic.LoadInt64(&e.errorCount))
	e.errMu.Lock()
	for label, count := range e.errorsByType {
		result.ErrorsByType[label] = count
	}
	e.errMu.Unlock()

	if state == StateCompleted {
		events <- ProgressEvent{
			Percent: 100,
			Status:  fmt.Sprintf("Completed! Scraped %d items for coser %s", len(items), e.cfg.CoserID),
			Page:    result.PageCount,
		}
	}
	events <- DoneEvent{State: state, Result: result}
	close(events)

	e.state.Store(int32(state))
	e.mu.Lock()
	e.sess = nil
	e.cancel = nil
	e.mu.Unlock()

	slog.Info("crawl session finished",
		slog.String("session", sess.id),
		slog.String("state", state.String()),
		slog.Int("items", len(items)),
		slog.Int("pages", result.PageCount),
	)
}

func (e *Engine) crawlPages(ctx context.Context, sess *session, events chan<- Event, result *models.CrawlResult) []*models.GalleryItem {
	var all []*models.GalleryItem
	maxPages := e.cfg.MaxPages

	for page := 1; page <= maxPages; page++ {
		if sess.isAborted() || ctx.Err() != nil {
			break
		}

		events <- ProgressEvent{
			Percent: 15 + float64(page)/float64(maxPages)*85,
			Status:  fmt.Sprintf("Scraping page %d/%d...", page, maxPages),
			Page:    page,
		}

		stubs, stop := e.fetchListing(ctx, sess, page)
		if stop {
			break
		}

		pageItems := e.enrichPage(ctx, sess, page, stubs)
		result.PageCount++
		e.Metrics.IncPages()

		if len(pageItems) > 0 {
			all = append(all, pageItems...)
			events <- ItemsEvent{Items: append([]*models.GalleryItem(nil), all...)}
		}

		if page < maxPages && !sess.isAborted() {
			sleep(ctx, e.cfg.DelayPerPage)
		}
	}

	return all
}

// fetchListing retrieves one listing page and extracts its item stubs.
// The stop result folds together "no more items" and fetch failure: both
// end pagination without failing the run.
func (e *Engine) fetchListing(ctx context.Context, sess *session, page int) ([]parser.ItemStub, bool) {
	doc, err := e.fetchDoc(ctx, e.cfg.PageURL(page))
	if err != nil {
		e.recordError(err)
		slog.Warn("page fetch failed, stopping pagination",
			slog.Int("page", page),
			slog.Any("error", err),
		)
		return nil, true
	}

	stubs, noMore := parser.ExtractItemStubs(doc, e.cfg.BaseURL)
	if noMore {
		slog.Debug("pagination ended", slog.Int("page", page))
		return nil, true
	}

	if sess.cosplayerName() == "" {
		sess.setName(parser.ExtractCosplayerName(doc))
	}
	return stubs, false
}

// enrichPage dedupes stubs against the session seen-set and enriches the
// new ones with detail-page stats. Concurrency bounds the number of
// simultaneous detail fetches; items keep container-encounter order.
func (e *Engine) enrichPage(ctx context.Context, sess *session, page int, stubs []parser.ItemStub) []*models.GalleryItem {
	var fresh []parser.ItemStub
	for _, stub := range stubs {
		if sess.markSeen(stub.DownloadID + "-" + stub.DownloadURL) {
			fresh = append(fresh, stub)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	limit := e.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}

	items := make([]*models.GalleryItem, len(fresh))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, stub := range fresh {
		g.Go(func() error {
			items[i] = e.enrich(ctx, sess, page, stub)
			return nil
		})
	}
	g.Wait()
	return items
}

// enrich builds a full item from a stub. Detail and fallback fetch
// failures are non-fatal: the item keeps whatever the listing provided.
func (e *Engine) enrich(ctx context.Context, sess *session, page int, stub parser.ItemStub) *models.GalleryItem {
	item := &models.GalleryItem{
		Page:        page,
		Cosplay:     stub.Cosplay,
		Origin:      stub.Origin,
		Photos:      stub.Photos,
		Videos:      stub.Videos,
		DownloadID:  stub.DownloadID,
		DownloadURL: stub.DownloadURL,
		Thumbnail:   stub.Thumbnail,
		DetailURL:   stub.DetailURL,
		ScrapedAt:   time.Now(),
	}

	if stub.DetailURL != "" {
		if doc, err := e.fetchDoc(ctx, stub.DetailURL); err != nil {
			e.recordError(err)
			slog.Debug("detail fetch failed",
				slog.String("url", stub.DetailURL),
				slog.Any("error", err),
			)
		} else {
			stats := parser.ExtractDetailStats(doc)
			item.Views = stats.Views
			item.Downloads = stats.Downloads
			item.DateCreated = stats.CreatedDate
			item.FileSize = stats.FileSize
		}
		sleep(ctx, detailPause)
	}

	if item.FileSize == "" || e.cfg.ResolveDownloads {
		if doc, err := e.fetchDoc(ctx, stub.DownloadURL); err != nil {
			e.recordError(err)
			slog.Debug("fallback size fetch failed",
				slog.String("url", stub.DownloadURL),
				slog.Any("error", err),
			)
		} else if size := parser.ExtractFallbackFileSize(doc); size != "" {
			item.FileSize = size
		}
		sleep(ctx, fallbackPause)
	}

	item.Cosplayer = sess.cosplayerName()
	item.SizeBytes = parser.ParseSizeBytes(item.FileSize)
	e.Metrics.IncItems()
	return item
}

// loadProfile fetches and parses the coser profile once per run. Any
// failure yields the synthesized fallback profile, never a run failure.
func (e *Engine) loadProfile(ctx context.Context, sess *session) *models.CoserProfile {
	profileURL := e.cfg.ProfileURL()

	doc, err := e.fetchDoc(ctx, profileURL)
	if err != nil {
		e.recordError(err)
		slog.Warn("profile fetch failed, using fallback",
			slog.String("coser", e.cfg.CoserID),
			slog.Any("error", err),
		)
		return models.FallbackProfile(e.cfg.CoserID, profileURL)
	}

	profile := parser.ExtractProfile(doc, e.cfg.CoserID, e.cfg.BaseURL, profileURL)
	if name := parser.ExtractCosplayerName(doc); name != "" {
		sess.setName(name)
	}
	return profile
}

func (e *Engine) fetchDoc(ctx context.Context, target string) (*goquery.Document, error) {
	atomic.AddInt64(&e.requestCount, 1)
	html, err := e.client.FetchPage(ctx, target)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (e *Engine) recordError(err error) {
	label := fetch.ErrorTypeLabel(err)
	atomic.AddInt64(&e.errorCount, 1)
	e.errMu.Lock()
	e.errorsByType[label]++
	e.errMu.Unlock()
	e.Metrics.IncError(label)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
